package export

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

type blockKind int

const (
	blockHeading blockKind = iota
	blockParagraph
	blockBullet
	blockCode
)

// block 渲染二进制格式时使用的扁平段落
type block struct {
	kind  blockKind
	level int
	text  string
}

var parser = goldmark.New(goldmark.WithExtensions(extension.GFM)).Parser()

// parseBlocks 将 Markdown 拆成标题、段落、列表项与代码块
func parseBlocks(markdown string) []block {
	src := []byte(markdown)
	doc := parser.Parse(text.NewReader(src))

	var out []block
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			out = append(out, block{kind: blockHeading, level: node.Level, text: inlineText(node, src)})
			return ast.WalkSkipChildren, nil
		case *ast.ListItem:
			if c := node.FirstChild(); c != nil {
				out = append(out, block{kind: blockBullet, text: inlineText(c, src)})
			}
			// 嵌套列表继续展开
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if c.Kind() == ast.KindList {
					_ = ast.Walk(c, func(nn ast.Node, e bool) (ast.WalkStatus, error) {
						if li, ok := nn.(*ast.ListItem); ok && e && li.FirstChild() != nil {
							out = append(out, block{kind: blockBullet, level: 1, text: inlineText(li.FirstChild(), src)})
						}
						return ast.WalkContinue, nil
					})
				}
			}
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			var sb strings.Builder
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				sb.Write(seg.Value(src))
			}
			out = append(out, block{kind: blockCode, text: strings.TrimRight(sb.String(), "\n")})
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph, *ast.TextBlock:
			if t := inlineText(n, src); t != "" {
				out = append(out, block{kind: blockParagraph, text: t})
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return out
}

// inlineText 取节点的纯文本，去掉强调、链接等行内标记
func inlineText(n ast.Node, src []byte) string {
	var sb strings.Builder
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch t := c.(type) {
			case *ast.Text:
				sb.Write(t.Segment.Value(src))
				if t.SoftLineBreak() || t.HardLineBreak() {
					sb.WriteByte(' ')
				}
			case *ast.String:
				sb.Write(t.Value)
			case *ast.AutoLink:
				sb.Write(t.URL(src))
			case *ast.RawHTML:
				for i := 0; i < t.Segments.Len(); i++ {
					seg := t.Segments.At(i)
					sb.Write(seg.Value(src))
				}
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}

// documentTitle 文档中的一级标题
func documentTitle(blocks []block) string {
	for _, b := range blocks {
		if b.kind == blockHeading && b.level == 1 {
			return b.text
		}
	}
	return ""
}
