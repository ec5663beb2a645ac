package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iWorld-y/report_forge/app/report_forge/pkg/compiler"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/export"
	dm "github.com/iWorld-y/report_forge/app/report_forge/pkg/model"
)

var (
	flagOutput        string
	flagConvertFormat string
)

var convertCmd = &cobra.Command{
	Use:   "convert <file.md>",
	Short: "Convert a markdown report into pdf, docx, pptx or html",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		format := dm.Format(strings.ToLower(flagConvertFormat))
		info, ok := export.Info(format)
		if !ok {
			return fmt.Errorf("unsupported format: %s", format)
		}

		name := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		report := &dm.Report{
			ID:        name,
			Spec:      dm.NewSpec(name).Normalize(),
			Draft:     compiler.FromMarkdown(string(doc)),
			CreatedAt: time.Now(),
		}
		content, err := export.NewRegistry().Render(report, format)
		if err != nil {
			return err
		}

		out := flagOutput
		if out == "" {
			out = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + info.Extension
		}
		if err := os.WriteFile(out, content, 0o644); err != nil {
			return err
		}
		fmt.Println(field("saved", out))
		return nil
	},
}

func init() {
	convertCmd.PersistentPreRunE = skipConfig
	convertCmd.Flags().StringVarP(&flagConvertFormat, "format", "f", string(dm.FormatPDF), "target format")
	convertCmd.Flags().StringVarP(&flagOutput, "out", "o", "", "output file (defaults to the input name with the new extension)")
}
