package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iWorld-y/report_forge/app/report_forge/pkg/logger"
	dm "github.com/iWorld-y/report_forge/app/report_forge/pkg/model"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/workflow"
)

var (
	flagExemplar string
	flagJSON     bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <file.md>",
	Short: "Score an existing markdown report against the quality rubric",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		spec := dm.NewSpec(args[0])
		spec.ReportType = dm.ReportType(flagType)
		spec.Tone = dm.Tone(flagTone)
		spec.Length = dm.Length(flagLength)
		if flagExemplar != "" {
			ex, err := os.ReadFile(flagExemplar)
			if err != nil {
				return err
			}
			spec.Options = map[string]any{"exemplar": string(ex)}
		}

		ctx := context.Background()
		engine, cleanup, err := workflow.NewEngineFromConfig(ctx, cfg, nil, logger.Log)
		if err != nil {
			return err
		}
		defer cleanup()

		report, err := engine.Evaluate(ctx, spec, string(doc))
		if err != nil {
			return err
		}
		if flagJSON {
			out, _ := json.MarshalIndent(report, "", "  ")
			fmt.Println(string(out))
			return nil
		}
		fmt.Println(renderBenchmark(report))
		return nil
	},
}

func init() {
	evaluateCmd.Flags().StringVarP(&flagType, "type", "t", string(dm.ReportMarketAnalysis), "report type")
	evaluateCmd.Flags().StringVar(&flagTone, "tone", string(dm.ToneProfessional), "expected tone")
	evaluateCmd.Flags().StringVarP(&flagLength, "length", "l", string(dm.LengthMedium), "expected length")
	evaluateCmd.Flags().StringVar(&flagExemplar, "exemplar", "", "reference document to compare against")
	evaluateCmd.Flags().BoolVar(&flagJSON, "json", false, "print the raw benchmark report")
}
