package export

import (
	"bytes"
	"strings"

	"github.com/gomutex/godocx"

	dm "github.com/iWorld-y/report_forge/app/report_forge/pkg/model"
)

// DOCX Word 文档，一级标题作为文档标题，其余标题按层级映射到 Heading 样式
type DOCX struct{}

func (DOCX) Render(report *dm.Report) ([]byte, error) {
	blocks := parseBlocks(report.Draft.Markdown)

	doc, err := godocx.NewDocument()
	if err != nil {
		return nil, err
	}
	if documentTitle(blocks) == "" {
		doc.AddHeading(title(report, blocks), 0)
	}

	for _, b := range blocks {
		switch b.kind {
		case blockHeading:
			switch b.level {
			case 1:
				doc.AddHeading(b.text, 0)
			case 2:
				doc.AddHeading(b.text, 1)
			case 3:
				doc.AddHeading(b.text, 2)
			default:
				doc.AddHeading(b.text, 3)
			}
		case blockBullet:
			style := "List Bullet"
			if b.level > 0 {
				style = "List Bullet 2"
			}
			doc.AddParagraph(b.text).Style(style)
		case blockCode:
			for _, line := range strings.Split(b.text, "\n") {
				doc.AddParagraph(line)
			}
		default:
			doc.AddParagraph(b.text)
		}
	}

	var buf bytes.Buffer
	if err := doc.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
