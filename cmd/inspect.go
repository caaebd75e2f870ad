package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/andresmejia3/keybench/internal/features"
	"github.com/andresmejia3/keybench/internal/pipeline"
	"github.com/andresmejia3/keybench/internal/utils"
	"github.com/andresmejia3/keybench/internal/vision"
	"github.com/spf13/cobra"
)

var (
	inspectOpts       Options
	inspectDetector   string
	inspectDescriptor string
	inspectHeadless   bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Run a single detector/descriptor pair and show the matches of every frame pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		inspectOpts.Detectors = []string{inspectDetector}
		inspectOpts.Descriptors = []string{inspectDescriptor}
		inspectOpts.Visualize = !inspectHeadless
		return runInspect(cmd.Context(), inspectOpts)
	},
}

func init() {
	bindPipelineFlags(inspectCmd.Flags(), &inspectOpts)
	inspectCmd.Flags().StringVar(&inspectDetector, "detector", "FAST", "Detector kind")
	inspectCmd.Flags().StringVar(&inspectDescriptor, "descriptor", "BRISK", "Descriptor kind")
	inspectCmd.Flags().BoolVar(&inspectHeadless, "headless", false, "Do not open a window (combine with --debug-screenshots)")
	rootCmd.AddCommand(inspectCmd)
}

// frameReporter prints one line per processed frame.
type frameReporter struct{}

func (frameReporter) FrameProcessed(pair pipeline.ConfigPair, index int) {
	fmt.Fprintf(os.Stderr, "🖼️  %s frame %d processed\n", pair, index)
}

func (frameReporter) PairFinished(r pipeline.Report) {
	fmt.Fprintf(os.Stderr, "✅ %s finished: %s\n", r.Pair, r.Status)
}

func runInspect(ctx context.Context, opts Options) error {
	cfg, pairs, err := validateBenchFlags(&opts)
	if err != nil {
		utils.ShowError("Invalid inspect configuration", err)
		return err
	}
	pair := pairs[0]

	if err := features.CheckPairing(pair.Detector, pair.Descriptor); err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  %v\n", err)
	}

	driverOpts := []pipeline.Option{pipeline.WithLogger(logger), pipeline.WithObserver(frameReporter{})}
	if cfg.Visualize {
		driverOpts = append(driverOpts, pipeline.WithVisualizer(newVisualizer(opts)))
	}
	driver, err := pipeline.New(cfg, vision.NewToolkit(), frameSource(opts), driverOpts...)
	if err != nil {
		utils.ShowError("Failed to build pipeline", err)
		return err
	}

	rep, err := driver.RunPair(ctx, pair)
	if err != nil {
		utils.ShowError(fmt.Sprintf("Failed to inspect %s", pair), err)
		return err
	}

	printSummary(os.Stderr, []pipeline.Report{rep})
	fmt.Fprintf(os.Stderr, "🔗 Average matches per frame pair: %.1f (%.3f ms)\n", rep.AverageMatches(), rep.AverageMatchTimeMs())
	return nil
}
