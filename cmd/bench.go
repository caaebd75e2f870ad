package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/andresmejia3/keybench/internal/features"
	"github.com/andresmejia3/keybench/internal/pipeline"
	"github.com/andresmejia3/keybench/internal/report"
	"github.com/andresmejia3/keybench/internal/utils"
	"github.com/andresmejia3/keybench/internal/vision"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var benchOpts Options

var benchCmd = &cobra.Command{
	Use:         "bench",
	Short:       "Benchmark every detector/descriptor pair over the frame sequence",
	Annotations: map[string]string{dbAnnotation: "optional"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runBench(cmd.Context(), benchOpts)
	},
}

func init() {
	bindPipelineFlags(benchCmd.Flags(), &benchOpts)
	benchCmd.Flags().StringSliceVar(&benchOpts.Detectors, "detectors", defaultDetectors(), "Detector kinds to benchmark")
	benchCmd.Flags().StringSliceVar(&benchOpts.Descriptors, "descriptors", defaultDescriptors(), "Descriptor kinds to benchmark")
	benchCmd.Flags().StringVar(&benchOpts.DetectorCSV, "detector-csv", "task7.csv", "Output file for the detector summary")
	benchCmd.Flags().StringVar(&benchOpts.CombinedCSV, "combined-csv", "task8_task9.csv", "Output file for the detector/descriptor summary")
	benchCmd.Flags().StringVar(&benchOpts.RunName, "name", "", "Name of the run when results are stored in PostgreSQL")
	benchCmd.Flags().BoolVarP(&benchOpts.Visualize, "visualize", "v", false, "Show the matches of every frame pair and wait for a key press")
	rootCmd.AddCommand(benchCmd)
}

// bindPipelineFlags registers the flags bench and inspect share.
func bindPipelineFlags(fs *pflag.FlagSet, opts *Options) {
	def := pipeline.DefaultConfig()
	kitti := vision.KITTISource("../images")
	fs.StringVarP(&opts.ImageDir, "images", "i", kitti.Dir, "Directory holding the frame images")
	fs.StringVar(&opts.ImagePrefix, "prefix", kitti.Prefix, "File name prefix before the frame index")
	fs.StringVar(&opts.ImageExt, "ext", kitti.Ext, "Frame file extension")
	fs.IntVar(&opts.IndexWidth, "index-width", kitti.Width, "Zero padding of the frame index")
	fs.IntVar(&opts.StartIndex, "start", def.StartIndex, "First frame index")
	fs.IntVar(&opts.EndIndex, "end", def.EndIndex, "Last frame index (inclusive)")
	fs.StringVar(&opts.Region, "roi", def.Region.String(), "Region of interest as x,y,width,height")
	fs.BoolVar(&opts.FullFrame, "full-frame", false, "Keep keypoints outside the region of interest")
	fs.StringVar(&opts.Matcher, "matcher", string(def.Matcher), "Matcher (MAT_BF, MAT_FLANN)")
	fs.StringVar(&opts.Selector, "selector", string(def.Selector), "Selector (SEL_NN, SEL_KNN)")
	fs.StringVar(&opts.Norm, "norm", "", "Distance for brute force matching (DES_BINARY, DES_HOG); default follows the descriptor")
	fs.Float64Var(&opts.Ratio, "ratio", def.RatioThreshold, "Distance ratio threshold for SEL_KNN")
	fs.BoolVar(&opts.LimitKeypoints, "limit-keypoints", def.LimitKeypoints, "Keep only the strongest keypoints of every frame")
	fs.IntVar(&opts.MaxKeypoints, "max-keypoints", def.MaxKeypoints, "Keypoint cap used with --limit-keypoints")
	fs.IntVar(&opts.BufferSize, "buffer", def.BufferCapacity, "Number of frames held in memory")
	fs.BoolVarP(&opts.DebugScreenshots, "debug-screenshots", "d", false, "Save match images of every frame pair")
	fs.StringVar(&opts.ScreenshotDir, "screenshot-dir", "debug_frames", "Directory for --debug-screenshots")
	fs.IntVar(&opts.ScreenshotWidth, "screenshot-width", 0, "Scale screenshots down to this width (0 keeps the drawn size)")
}

// defaultDetectors lists every detector this build can run.
func defaultDetectors() []string {
	var out []string
	for _, k := range features.DetectorKinds {
		if k == features.Harris && !vision.ContribEnabled {
			continue
		}
		out = append(out, string(k))
	}
	return out
}

// defaultDescriptors lists every descriptor this build can run.
func defaultDescriptors() []string {
	var out []string
	for _, k := range features.DescriptorKinds {
		if (k == features.DescBRIEF || k == features.DescFREAK) && !vision.ContribEnabled {
			continue
		}
		out = append(out, string(k))
	}
	return out
}

// buildConfig turns flags into a validated pipeline configuration.
func buildConfig(opts Options) (pipeline.Config, error) {
	cfg := pipeline.DefaultConfig()
	cfg.StartIndex = opts.StartIndex
	cfg.EndIndex = opts.EndIndex
	cfg.BufferCapacity = opts.BufferSize
	cfg.FocusOnRegion = !opts.FullFrame
	cfg.RatioThreshold = opts.Ratio
	cfg.LimitKeypoints = opts.LimitKeypoints
	cfg.MaxKeypoints = opts.MaxKeypoints
	cfg.Visualize = opts.Visualize || opts.DebugScreenshots

	var err error
	if cfg.FocusOnRegion {
		if cfg.Region, err = features.ParseRect(opts.Region); err != nil {
			return cfg, err
		}
	}
	if cfg.Matcher, err = features.ParseMatcherKind(opts.Matcher); err != nil {
		return cfg, err
	}
	if cfg.Selector, err = features.ParseSelectorKind(opts.Selector); err != nil {
		return cfg, err
	}
	if opts.Norm != "" {
		if cfg.DescriptorNorm, err = features.ParseDescriptorNorm(opts.Norm); err != nil {
			return cfg, err
		}
	}
	return cfg, cfg.Validate()
}

// buildPairs parses the detector and descriptor lists into their cross product.
func buildPairs(detectors, descriptors []string) ([]pipeline.ConfigPair, error) {
	if len(detectors) == 0 || len(descriptors) == 0 {
		return nil, errors.New("at least one detector and one descriptor are required")
	}
	dets := make([]features.DetectorKind, 0, len(detectors))
	for _, s := range detectors {
		k, err := features.ParseDetectorKind(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		dets = append(dets, k)
	}
	descs := make([]features.DescriptorKind, 0, len(descriptors))
	for _, s := range descriptors {
		k, err := features.ParseDescriptorKind(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		descs = append(descs, k)
	}
	return pipeline.CrossProduct(dets, descs), nil
}

// validateBenchFlags checks everything that can fail before a frame is loaded.
func validateBenchFlags(opts *Options) (pipeline.Config, []pipeline.ConfigPair, error) {
	info, err := os.Stat(opts.ImageDir)
	if err != nil {
		return pipeline.Config{}, nil, fmt.Errorf("image directory: %w", err)
	}
	if !info.IsDir() {
		return pipeline.Config{}, nil, fmt.Errorf("image path %s is not a directory", opts.ImageDir)
	}
	if opts.IndexWidth < 0 {
		return pipeline.Config{}, nil, fmt.Errorf("index width must be >= 0, got %d", opts.IndexWidth)
	}
	if opts.ScreenshotWidth < 0 {
		return pipeline.Config{}, nil, fmt.Errorf("screenshot width must be >= 0, got %d", opts.ScreenshotWidth)
	}
	cfg, err := buildConfig(*opts)
	if err != nil {
		return cfg, nil, err
	}
	pairs, err := buildPairs(opts.Detectors, opts.Descriptors)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, pairs, nil
}

func frameSource(opts Options) vision.FileSource {
	return vision.FileSource{Dir: opts.ImageDir, Prefix: opts.ImagePrefix, Width: opts.IndexWidth, Ext: opts.ImageExt}
}

func newVisualizer(opts Options) *vision.Visualizer {
	v := &vision.Visualizer{Window: opts.Visualize, Logger: logger}
	if opts.DebugScreenshots {
		v.ScreenshotDir = opts.ScreenshotDir
		v.ScreenshotWidth = opts.ScreenshotWidth
	}
	return v
}

// runBench wires the image source, toolkit, sinks and progress bar around the driver.
func runBench(ctx context.Context, opts Options) error {
	cfg, pairs, err := validateBenchFlags(&opts)
	if err != nil {
		utils.ShowError("Invalid benchmark configuration", err)
		return err
	}
	fmt.Fprintf(os.Stderr, "📂 Frames %d..%d from %s\n", cfg.StartIndex, cfg.EndIndex, opts.ImageDir)
	fmt.Fprintf(os.Stderr, "⚙️  Benchmarking %d configuration pairs (%s, %s)\n", len(pairs), cfg.Matcher, cfg.Selector)

	csvSink, err := report.NewCSVSink(opts.DetectorCSV, opts.CombinedCSV)
	if err != nil {
		utils.ShowError("Failed to create CSV reports", err)
		return err
	}
	sinks := []report.Sink{csvSink}

	if DB != nil {
		name := opts.RunName
		if name == "" {
			name = fmt.Sprintf("%s %s", cfg.Matcher, cfg.Selector)
		}
		runID, err := DB.CreateRun(ctx, name, frameSource(opts).Path(cfg.StartIndex), cfg.FrameCount())
		if err != nil {
			csvSink.Close()
			utils.ShowError("Failed to register benchmark run", err)
			return err
		}
		dbSink := DB.NewSink(runID)
		fmt.Fprintf(os.Stderr, "🗄️  Storing results as run %d\n", dbSink.RunID())
		sinks = append(sinks, dbSink)
	}
	sink := report.Multi(sinks...)
	defer sink.Close()

	bar := progressbar.NewOptions(len(pairs)*cfg.FrameCount(),
		progressbar.OptionSetDescription("🔍 keybench"),
		progressbar.OptionSetWriter(os.Stderr), // Write bar to Stderr
		progressbar.OptionShowCount(),
	)
	progress := newBarObserver(bar, cfg.FrameCount())

	driverOpts := []pipeline.Option{pipeline.WithLogger(logger), pipeline.WithObserver(progress)}
	if cfg.Visualize {
		driverOpts = append(driverOpts, pipeline.WithVisualizer(newVisualizer(opts)))
	}
	driver, err := pipeline.New(cfg, vision.NewToolkit(), frameSource(opts), driverOpts...)
	if err != nil {
		utils.ShowError("Failed to build pipeline", err)
		return err
	}

	reports, err := driver.Run(ctx, pairs, sink)
	bar.Finish()
	fmt.Fprintln(os.Stderr)
	if err != nil {
		if errors.Is(err, pipeline.ErrImageLoad) {
			utils.ShowError("Failed to load frame", err)
		} else {
			utils.ShowError("Benchmark aborted", err)
		}
		return err
	}

	printSummary(os.Stderr, reports)
	fmt.Fprintf(os.Stderr, "🏁 Benchmark Complete. Reports written to %s and %s\n", opts.DetectorCSV, opts.CombinedCSV)
	return nil
}

// barObserver advances the progress bar per frame and skips the frames a
// pair never reached.
type barObserver struct {
	bar       *progressbar.ProgressBar
	perPair   int
	pairSoFar int
}

func newBarObserver(bar *progressbar.ProgressBar, framesPerPair int) *barObserver {
	return &barObserver{bar: bar, perPair: framesPerPair}
}

func (o *barObserver) FrameProcessed(pipeline.ConfigPair, int) {
	o.pairSoFar++
	o.bar.Add(1)
}

func (o *barObserver) PairFinished(pipeline.Report) {
	if rest := o.perPair - o.pairSoFar; rest > 0 {
		o.bar.Add(rest)
	}
	o.pairSoFar = 0
}

func printSummary(out io.Writer, reports []pipeline.Report) {
	fmt.Fprintf(out, "---------------------------------------------------------\n")
	fmt.Fprintf(out, "📊 BENCHMARK SUMMARY\n")
	fmt.Fprintf(out, "---------------------------------------------------------\n")

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "PAIR\tFAMILY\tSTATUS\tKEYPOINTS\tDESCRIBED\tDETECT MS\tTOTAL MS\tMATCHES")
	fmt.Fprintln(w, "----\t------\t------\t---------\t---------\t---------\t--------\t-------")
	for _, r := range reports {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\t%.1f\t%.3f\t%.3f\t%.1f\n",
			r.Pair, r.Pair.Detector.Family(), r.Status,
			r.AverageKeypointsDetected(), r.AverageKeypointsDescribed(),
			r.AverageDetectorTimeMs(), r.AverageTotalTimeMs(),
			r.AverageMatches(),
		)
	}
	w.Flush()

	for _, r := range reports {
		if r.Status != pipeline.StatusComplete {
			fmt.Fprintf(out, "⚠️  %s %s: %s\n", r.Pair, r.Status, r.Err)
		}
	}
}
