package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iWorld-y/report_forge/app/report_forge/pkg/export"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/logger"
	dm "github.com/iWorld-y/report_forge/app/report_forge/pkg/model"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/workflow"
)

var (
	flagType        string
	flagTone        string
	flagLength      string
	flagFormats     []string
	flagNoBenchmark bool
	flagOutDir      string
	flagTitle       string
)

var generateCmd = &cobra.Command{
	Use:   "generate <topic>",
	Short: "Generate a report and export it in the requested formats",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec := dm.Spec{
			Topic:            strings.Join(args, " "),
			ReportType:       dm.ReportType(flagType),
			Tone:             dm.Tone(flagTone),
			Length:           dm.Length(flagLength),
			BenchmarkEnabled: !flagNoBenchmark,
		}
		for _, f := range flagFormats {
			spec.Formats = append(spec.Formats, dm.Format(f))
		}
		if flagTitle != "" {
			spec.Options = map[string]any{"title": flagTitle}
		}
		spec = spec.Normalize()
		if err := spec.Validate(); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		// Ctrl+C 取消生成
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		engine, cleanup, err := workflow.NewEngineFromConfig(ctx, cfg, nil, logger.Log)
		if err != nil {
			return err
		}
		defer cleanup()

		fmt.Println(headerStyle.Render("report_forge") + " " + mutedStyle.Render(string(spec.ReportType)+" · "+string(spec.Tone)+" · "+string(spec.Length)))
		fmt.Println(field("topic", spec.Topic))

		report, err := engine.Generate(ctx, spec, printProgress)
		if err != nil {
			return err
		}

		paths, err := writeExports(report, flagOutDir)
		if err != nil {
			return err
		}

		fmt.Println()
		fmt.Println(field("report id", report.ID))
		fmt.Println(field("words", fmt.Sprintf("%d", report.Draft.WordCount)))
		fmt.Println(field("redraft cycles", fmt.Sprintf("%d", report.Cycles)))
		if report.Degraded {
			fmt.Println(field("status", warningStyle.Render("degraded")))
			for _, d := range report.Diagnostics {
				fmt.Println(mutedStyle.Render("  - " + d))
			}
		} else {
			fmt.Println(field("status", successStyle.Render("done")))
		}
		for _, p := range paths {
			fmt.Println(field("saved", p))
		}
		fmt.Println(renderBenchmark(report.Benchmark))
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVarP(&flagType, "type", "t", string(dm.ReportMarketAnalysis), "report type")
	generateCmd.Flags().StringVar(&flagTone, "tone", string(dm.ToneProfessional), "writing tone")
	generateCmd.Flags().StringVarP(&flagLength, "length", "l", string(dm.LengthMedium), "short, medium or detailed")
	generateCmd.Flags().StringSliceVarP(&flagFormats, "format", "f", []string{string(dm.FormatMarkdown)}, "output formats (markdown,pdf,pptx,docx,html)")
	generateCmd.Flags().BoolVar(&flagNoBenchmark, "no-benchmark", false, "skip quality benchmarking")
	generateCmd.Flags().StringVarP(&flagOutDir, "out", "o", "output", "output directory")
	generateCmd.Flags().StringVar(&flagTitle, "title", "", "override the document title")
}

func printProgress(p workflow.Progress) {
	msg := fmt.Sprintf("[%3d%%] %-12s %s", p.Percent, p.State, p.Message)
	if p.State == workflow.StateFailed {
		fmt.Println(errorStyle.Render(msg))
		return
	}
	fmt.Println(mutedStyle.Render(msg))
}

// writeExports 按请求的格式写出文件，文件名取自主题
func writeExports(report *dm.Report, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	registry := export.NewRegistry()
	base := slug(report.Spec.Topic)
	var paths []string
	for _, f := range report.Spec.Formats {
		content, err := registry.Render(report, f)
		if err != nil {
			return paths, fmt.Errorf("render %s: %w", f, err)
		}
		info, _ := export.Info(f)
		path := filepath.Join(dir, base+info.Extension)
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// slug 文件名安全的主题
func slug(topic string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(topic) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r > 127:
			sb.WriteRune(r)
			dash = false
		case !dash && sb.Len() > 0:
			sb.WriteByte('-')
			dash = true
		}
	}
	s := strings.Trim(sb.String(), "-")
	if s == "" {
		return "report"
	}
	if len([]rune(s)) > 60 {
		s = strings.TrimRight(string([]rune(s)[:60]), "-")
	}
	return s
}
