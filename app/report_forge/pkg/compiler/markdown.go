package compiler

import (
	"bytes"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// heading 文档中的一个顶层标题
type heading struct {
	line      int // 标题文字所在行（0 起）
	underline int // setext 标题的下划线行，ATX 为 -1
	level     int
	text      string
}

var parser = goldmark.New().Parser()

// findHeadings 用 goldmark 定位顶层标题，代码块和引用中的 # 不会被误认
func findHeadings(src []byte) []heading {
	root := parser.Parse(text.NewReader(src))

	var out []heading
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		if h.Parent() == nil || h.Parent().Kind() != ast.KindDocument {
			return ast.WalkSkipChildren, nil
		}
		lines := h.Lines()
		if lines.Len() == 0 {
			return ast.WalkSkipChildren, nil
		}

		var sb strings.Builder
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.Write(bytes.TrimSpace(seg.Value(src)))
		}
		first := lines.At(0)
		last := lines.At(lines.Len() - 1)
		lineNo := bytes.Count(src[:first.Start], []byte("\n"))

		hd := heading{line: lineNo, underline: -1, level: h.Level, text: strings.TrimSpace(sb.String())}
		if !isATX(src, first.Start) {
			hd.underline = bytes.Count(src[:last.Start], []byte("\n")) + 1
		}
		out = append(out, hd)
		return ast.WalkSkipChildren, nil
	})
	return out
}

// trailing setext 标题文字第一行之后的续行与下划线行号
func (h heading) trailing() []int {
	if h.underline < 0 {
		return nil
	}
	out := make([]int, 0, h.underline-h.line)
	for i := h.line + 1; i <= h.underline; i++ {
		out = append(out, i)
	}
	return out
}

// isATX 判断标题文字所在行是否以 # 开头
func isATX(src []byte, offset int) bool {
	start := bytes.LastIndexByte(src[:offset], '\n') + 1
	return strings.HasPrefix(strings.TrimLeft(string(src[start:offset]), " "), "#")
}

// normalizeSection 章节正文内的标题降到 ### 及以下并保持相对层级，
// 开头与章节标题重复的标题去掉
func normalizeSection(body, sectionHeading string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return body
	}
	src := []byte(body)
	hs := findHeadings(src)
	if len(hs) == 0 {
		return body
	}

	lines := strings.Split(body, "\n")
	drop := make(map[int]bool)
	replace := make(map[int]string)

	minLevel := 6
	for _, h := range hs {
		if h.level < minLevel {
			minLevel = h.level
		}
	}
	shift := 0
	if minLevel < 3 {
		shift = 3 - minLevel
	}

	for i, h := range hs {
		for _, l := range h.trailing() {
			drop[l] = true
		}
		if i == 0 && h.line == 0 && sameHeading(h.text, sectionHeading) {
			drop[h.line] = true
			continue
		}
		level := h.level + shift
		if level > 6 {
			level = 6
		}
		replace[h.line] = strings.Repeat("#", level) + " " + h.text
	}

	out := make([]string, 0, len(lines))
	for i, l := range lines {
		if drop[i] {
			continue
		}
		if r, ok := replace[i]; ok {
			l = r
		}
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// dedupeAdjacentHeadings 去掉紧挨着（中间只有空行）的同级同名标题
func dedupeAdjacentHeadings(doc string) string {
	src := []byte(doc)
	hs := findHeadings(src)
	if len(hs) < 2 {
		return doc
	}
	lines := strings.Split(doc, "\n")
	drop := make(map[int]bool)
	for i := 1; i < len(hs); i++ {
		prev, cur := hs[i-1], hs[i]
		if prev.level != cur.level || !sameHeading(prev.text, cur.text) {
			continue
		}
		end := prev.line
		if prev.underline >= 0 {
			end = prev.underline
		}
		if blankBetween(lines, end, cur.line) {
			drop[cur.line] = true
			for _, l := range cur.trailing() {
				drop[l] = true
			}
		}
	}
	if len(drop) == 0 {
		return doc
	}
	out := make([]string, 0, len(lines))
	for i, l := range lines {
		if !drop[i] {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

func blankBetween(lines []string, from, to int) bool {
	for i := from + 1; i < to && i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != "" {
			return false
		}
	}
	return true
}

func sameHeading(a, b string) bool {
	norm := func(s string) string {
		return strings.ToLower(strings.TrimSpace(strings.Trim(s, "*_` ")))
	}
	return norm(a) == norm(b)
}

// WordCount 统计字数：英文按词，中日韩按字
func WordCount(s string) int {
	n := 0
	for _, f := range strings.Fields(s) {
		if strings.Trim(f, "#*-_>|`") == "" {
			continue
		}
		han := 0
		other := false
		for _, r := range f {
			if unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r) || unicode.Is(unicode.Hangul, r) {
				han++
			} else if unicode.IsLetter(r) || unicode.IsDigit(r) {
				other = true
			}
		}
		n += han
		if other || han == 0 {
			n++
		}
	}
	return n
}

// levelTwoHeadings 文档中的二级标题
func levelTwoHeadings(doc string) []string {
	var out []string
	for _, h := range findHeadings([]byte(doc)) {
		if h.level == 2 {
			out = append(out, h.text)
		}
	}
	return out
}
