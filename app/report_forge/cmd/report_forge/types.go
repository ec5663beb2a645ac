package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	dm "github.com/iWorld-y/report_forge/app/report_forge/pkg/model"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/prompts"
)

var typesCmd = &cobra.Command{
	Use:     "types [report-type]",
	Short:   "List report types, or show the default structure of one type",
	Aliases: []string{"template"},
	Args:    cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 1 {
			fmt.Println(renderTemplate(prompts.Template(dm.ReportType(args[0]))))
			return
		}
		fmt.Println(headerStyle.Render("Report types"))
		for _, t := range dm.ReportTypes {
			tpl := prompts.Template(t)
			fmt.Println(field(string(t), fmt.Sprintf("%d sections", len(tpl.Sections))) + "  " + mutedStyle.Render(tpl.Title))
		}
		tones := make([]string, 0, len(dm.Tones))
		for _, t := range dm.Tones {
			tones = append(tones, string(t))
		}
		fmt.Println()
		fmt.Println(field("tones", strings.Join(tones, ", ")))
		fmt.Println(field("lengths", "short, medium, detailed"))
	},
}

func init() {
	typesCmd.PersistentPreRunE = skipConfig
}

func renderTemplate(tpl prompts.ReportTemplate) string {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render(string(tpl.ReportType)) + "  " + mutedStyle.Render(tpl.Title) + "\n\n")
	for i, s := range tpl.Sections {
		sb.WriteString(fmt.Sprintf("%2d. %s %s\n", i+1, valueStyle.Render(s.Heading), mutedStyle.Render("- "+s.Intent)))
	}
	if len(tpl.Criteria) > 0 {
		sb.WriteString("\n" + headerStyle.Render("Quality criteria") + "\n")
		for _, c := range tpl.Criteria {
			sb.WriteString("  • " + c + "\n")
		}
	}
	return boxStyle.Render(strings.TrimRight(sb.String(), "\n"))
}
