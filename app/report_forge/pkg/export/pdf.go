package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	dm "github.com/iWorld-y/report_forge/app/report_forge/pkg/model"
)

// PDF 使用内置字体排版，仅支持 cp1252 字符集，其他字符会被替换
type PDF struct{}

func (PDF) Render(report *dm.Report) ([]byte, error) {
	blocks := parseBlocks(report.Draft.Markdown)

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	docTitle := title(report, blocks)
	pdf.SetTitle(docTitle, true)
	pdf.SetCreator("report_forge", true)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 18)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 8, fmt.Sprintf("%d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	for _, b := range blocks {
		pdf.SetTextColor(34, 34, 34)
		switch b.kind {
		case blockHeading:
			size := map[int]float64{1: 20, 2: 15, 3: 12.5}[b.level]
			if size == 0 {
				size = 11.5
			}
			pdf.Ln(3)
			pdf.SetFont("Helvetica", "B", size)
			if b.level == 2 {
				pdf.SetTextColor(47, 111, 223)
			}
			pdf.MultiCell(0, size*0.5, tr(b.text), "", "L", false)
			pdf.Ln(2)
		case blockBullet:
			pdf.SetFont("Helvetica", "", 11)
			indent := 4.0 + float64(b.level)*6
			pdf.SetX(20 + indent)
			pdf.MultiCell(0, 5.5, tr("- "+b.text), "", "L", false)
		case blockCode:
			pdf.SetFont("Courier", "", 9.5)
			pdf.MultiCell(0, 4.8, tr(b.text), "", "L", false)
			pdf.Ln(2)
		default:
			pdf.SetFont("Helvetica", "", 11)
			pdf.MultiCell(0, 5.5, tr(b.text), "", "J", false)
			pdf.Ln(2)
		}
	}

	if bm := report.Benchmark; bm != nil {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.SetTextColor(110, 110, 110)
		pdf.MultiCell(0, 5, tr(strings.TrimSpace("Quality score "+formatScore(bm.Aggregate))), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatScore(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
