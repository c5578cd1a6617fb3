package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/brand-scorecard/internal/model"
	"github.com/sells-group/brand-scorecard/internal/pipeline"
	"github.com/sells-group/brand-scorecard/internal/registry"
)

var (
	runBrand          string
	runContext        string
	runMaxCompetitors int
	runNoStore        bool
	runProgress       bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build a scorecard for a single brand",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx, "run", !runNoStore)
		if err != nil {
			return err
		}
		defer env.Close()

		input, err := runInput(runBrand, runContext, runMaxCompetitors)
		if err != nil {
			return err
		}

		var emit registry.Emitter
		if runProgress {
			emit = progressPrinter(cmd.ErrOrStderr())
		} else {
			emit = logProgress
		}

		out, err := env.Registry.ExecuteWorkflow(ctx, registry.WorkflowBrandScorecard, input, emit)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		sc, ok := out.(*model.Scorecard)
		if ok {
			zap.L().Info("scorecard complete",
				zap.String("id", sc.ID),
				zap.String("brand", sc.BrandName),
				zap.String("company_size", string(sc.CompanySize)),
				zap.Int("competitors", len(sc.Competitors)),
				zap.Float64("cost_usd", sc.Usage.EstimatedCostUSD),
			)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

// runInput builds the workflow request body. A negative maxCompetitors
// leaves the configured cap in place.
func runInput(brand, brandContext string, maxCompetitors int) (json.RawMessage, error) {
	req := pipeline.Request{Brand: brand, Context: brandContext}
	if maxCompetitors >= 0 {
		req.MaxCompetitors = &maxCompetitors
	}
	b, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "encode run request")
	}
	return b, nil
}

func logProgress(ev model.StepEvent) {
	zap.L().Debug("step",
		zap.String("step", ev.Step),
		zap.String("status", string(ev.Status)),
		zap.String("message", ev.Message),
	)
}

// progressPrinter writes each event as an NDJSON line without its output.
func progressPrinter(w io.Writer) registry.Emitter {
	enc := json.NewEncoder(w)
	return func(ev model.StepEvent) {
		ev.Output = nil
		_ = enc.Encode(ev)
	}
}

func init() {
	runCmd.Flags().StringVar(&runBrand, "brand", "", "brand name (required)")
	runCmd.Flags().StringVar(&runContext, "context", "", "disambiguating context, e.g. an industry or product")
	runCmd.Flags().IntVar(&runMaxCompetitors, "max-competitors", -1, "competitors to analyze (default from config)")
	runCmd.Flags().BoolVar(&runNoStore, "no-store", false, "do not persist the scorecard")
	runCmd.Flags().BoolVar(&runProgress, "progress", false, "print step events to stderr as NDJSON")
	_ = runCmd.MarkFlagRequired("brand")
	rootCmd.AddCommand(runCmd)
}
