package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/andresmejia3/keybench/internal/buffer"
	"github.com/andresmejia3/keybench/internal/features"
	"github.com/andresmejia3/keybench/internal/types"
)

// ErrImageLoad marks a frame that could not be read. It ends the whole run.
var ErrImageLoad = errors.New("failed to load image")

// ImageSource returns the grayscale image for an absolute frame index.
type ImageSource interface {
	Load(index int) (*image.Gray, error)
}

// Sink persists one report per configuration pair.
type Sink interface {
	Write(ctx context.Context, r Report) error
}

// Visualizer shows the matches between two consecutive frames of a pair.
type Visualizer interface {
	Show(pair ConfigPair, prev, curr *types.Frame) error
}

// Observer is told about progress. Calls happen on the driver's goroutine.
type Observer interface {
	FrameProcessed(pair ConfigPair, index int)
	PairFinished(r Report)
}

// Driver runs configuration pairs over the frame sequence, one frame at a time.
type Driver struct {
	cfg      Config
	toolkit  features.Toolkit
	source   ImageSource
	log      *slog.Logger
	clock    features.Clock
	visual   Visualizer
	observer Observer
}

// Option customizes a Driver.
type Option func(*Driver)

func WithLogger(l *slog.Logger) Option { return func(d *Driver) { d.log = l } }

func WithClock(c features.Clock) Option { return func(d *Driver) { d.clock = c } }

// WithVisualizer is only used when Config.Visualize is set.
func WithVisualizer(v Visualizer) Option { return func(d *Driver) { d.visual = v } }

func WithObserver(o Observer) Option { return func(d *Driver) { d.observer = o } }

// New validates cfg and builds a Driver.
func New(cfg Config, tk features.Toolkit, src ImageSource, opts ...Option) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	d := &Driver{
		cfg:     cfg,
		toolkit: tk,
		source:  src,
		log:     slog.Default(),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Run executes every pair in order and hands each report to sink.
// A pair that fails or hits an incompatible pairing still produces a
// report; image-load failures, sink failures and cancellation stop the run.
func (d *Driver) Run(ctx context.Context, pairs []ConfigPair, sink Sink) ([]Report, error) {
	reports := make([]Report, 0, len(pairs))
	for _, pair := range pairs {
		rep, err := d.RunPair(ctx, pair)
		if err != nil {
			return reports, err
		}
		if sink != nil {
			if err := sink.Write(ctx, rep); err != nil {
				return reports, fmt.Errorf("failed to write report for %s: %w", pair, err)
			}
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

// RunPair runs one configuration over the frame sequence with a fresh frame buffer.
//
// Per frame: load, detect, filter to the region, describe (or stop on an
// incompatible pairing), match against the previous frame once two frames
// are resident, then update the aggregate.
func (d *Driver) RunPair(ctx context.Context, pair ConfigPair) (Report, error) {
	rep := Report{Pair: pair, Status: StatusComplete}
	frames := buffer.New[*types.Frame](d.cfg.BufferCapacity)
	log := d.log.With("detector", pair.Detector, "descriptor", pair.Descriptor)
	matchOpts := d.cfg.matchOptions(pair.Descriptor)

	log.Info("configuration started", "frames", d.cfg.FrameCount())

frameLoop:
	for idx := d.cfg.StartIndex; idx <= d.cfg.EndIndex; idx++ {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		img, err := d.source.Load(idx)
		if err != nil {
			if errors.Is(err, ErrImageLoad) {
				return rep, err
			}
			return rep, fmt.Errorf("%w: frame %d: %w", ErrImageLoad, idx, err)
		}
		frame := &types.Frame{Index: idx, Image: img}
		frames.Push(frame)
		rep.Stats.FramesAttempted++

		det, err := features.Detect(d.toolkit, img, pair.Detector, d.clock)
		if err != nil {
			d.fail(&rep, log, idx, err)
			break frameLoop
		}
		rep.Stats.FramesDetected++
		rep.Stats.KeypointsDetected += len(det.Keypoints)
		rep.Stats.DetectorTime += det.Elapsed

		kps := det.Keypoints
		if d.cfg.FocusOnRegion {
			kps = features.FilterRegion(kps, d.cfg.Region)
		}
		if d.cfg.LimitKeypoints {
			kps = features.RetainBest(kps, d.cfg.MaxKeypoints, pair.Detector.Ranked())
			log.Debug("keypoints limited", "frame", idx, "max", d.cfg.MaxKeypoints)
		}
		rep.Stats.KeypointsFiltered += len(kps)
		frame.Keypoints = kps

		if err := features.CheckPairing(pair.Detector, pair.Descriptor); err != nil {
			rep.Status = StatusIncompatible
			rep.Err = err.Error()
			log.Warn("skipping remaining frames", "frame", idx, "reason", err)
			break frameLoop
		}

		desc, err := features.Describe(d.toolkit, img, kps, pair.Descriptor, d.clock)
		if err != nil {
			d.fail(&rep, log, idx, err)
			break frameLoop
		}
		frame.Keypoints = desc.Keypoints
		frame.Descriptors = desc.Descriptors
		rep.Stats.FramesDescribed++
		rep.Stats.KeypointsDescribed += desc.Descriptors.Rows
		rep.Stats.DescriptorTime += desc.Elapsed
		rep.Stats.TotalTime += det.Elapsed + desc.Elapsed

		if frames.Len() >= 2 {
			prev, err := frames.SecondLast()
			if err != nil {
				d.fail(&rep, log, idx, err)
				break frameLoop
			}
			res, err := features.MatchDescriptors(d.toolkit, &prev.Descriptors, &frame.Descriptors, matchOpts, d.clock, log)
			if err != nil {
				d.fail(&rep, log, idx, err)
				break frameLoop
			}
			frame.Matches = res.Matches
			rep.Stats.MatchInvocations++
			rep.Stats.MatchesFound += len(res.Matches)
			rep.Stats.MatchTime += res.Elapsed

			if d.cfg.Visualize && d.visual != nil {
				if err := d.visual.Show(pair, prev, frame); err != nil {
					log.Warn("visualization failed", "frame", idx, "error", err)
				}
			}
		}

		log.Debug("frame processed",
			"frame", idx,
			"detected", len(det.Keypoints),
			"described", desc.Descriptors.Rows,
			"matches", len(frame.Matches),
		)
		if d.observer != nil {
			d.observer.FrameProcessed(pair, idx)
		}
	}

	log.Info("configuration finished",
		"status", rep.Status,
		"avg_keypoints", rep.AverageKeypointsDetected(),
		"avg_described", rep.AverageKeypointsDescribed(),
		"avg_detector_ms", rep.AverageDetectorTimeMs(),
		"avg_total_ms", rep.AverageTotalTimeMs(),
		"avg_matches", rep.AverageMatches(),
	)
	if d.observer != nil {
		d.observer.PairFinished(rep)
	}
	return rep, nil
}

func (d *Driver) fail(rep *Report, log *slog.Logger, idx int, err error) {
	rep.Status = StatusFailed
	rep.Err = err.Error()
	log.Error("configuration aborted", "frame", idx, "error", err)
}
