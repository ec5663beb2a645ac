package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	dm "github.com/iWorld-y/report_forge/app/report_forge/pkg/model"
)

// Styles for terminal output
var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00D4FF"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")).Width(18)
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EEEEEE"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E22E"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FD971F"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F92672"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(0, 1)
)

func field(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value)
}

// bar 文本进度条
func bar(score float64, width int) string {
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	filled := int(score*float64(width) + 0.5)
	return strings.Repeat("█", filled) + mutedStyle.Render(strings.Repeat("░", width-filled))
}

// renderBenchmark 把评估结果渲染成终端面板
func renderBenchmark(b *dm.BenchmarkReport) string {
	if b == nil {
		return mutedStyle.Render("benchmark disabled")
	}
	var sb strings.Builder
	sb.WriteString(headerStyle.Render("Benchmark") + "\n")
	for _, m := range b.Metrics {
		sb.WriteString(fmt.Sprintf("%s%s %.2f %s\n",
			labelStyle.Render(m.Name), bar(m.Score, 20), m.Score, mutedStyle.Render(fmt.Sprintf("(w %.2f)", m.Weight))))
	}

	verdict := successStyle.Render("meets threshold")
	if !b.MeetsThreshold {
		verdict = warningStyle.Render("below threshold")
	}
	sb.WriteString(fmt.Sprintf("%s%.2f / %.2f  %s\n", labelStyle.Render("aggregate"), b.Aggregate, b.Threshold, verdict))
	if b.Err != "" {
		sb.WriteString(errorStyle.Render("evaluator: "+b.Err) + "\n")
	}
	if len(b.Recommendations) > 0 {
		sb.WriteString("\n" + headerStyle.Render("Recommendations") + "\n")
		for _, r := range b.Recommendations {
			sb.WriteString("  • " + r + "\n")
		}
	}
	return boxStyle.Render(strings.TrimRight(sb.String(), "\n"))
}
