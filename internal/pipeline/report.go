package pipeline

import (
	"time"

	"github.com/andresmejia3/keybench/internal/features"
)

// ConfigPair is one detector/descriptor combination run over every frame.
type ConfigPair struct {
	Detector   features.DetectorKind
	Descriptor features.DescriptorKind
}

func (p ConfigPair) String() string {
	return string(p.Detector) + "+" + string(p.Descriptor)
}

// CrossProduct pairs every detector with every descriptor, detectors outermost.
func CrossProduct(dets []features.DetectorKind, descs []features.DescriptorKind) []ConfigPair {
	pairs := make([]ConfigPair, 0, len(dets)*len(descs))
	for _, det := range dets {
		for _, desc := range descs {
			pairs = append(pairs, ConfigPair{Detector: det, Descriptor: desc})
		}
	}
	return pairs
}

// AggregateStats accumulates over the frames of one configuration pair.
type AggregateStats struct {
	FramesAttempted int
	FramesDetected  int
	FramesDescribed int

	KeypointsDetected  int // before region filtering
	KeypointsFiltered  int // after region filtering and the optional cap
	KeypointsDescribed int // descriptor rows

	MatchInvocations int
	MatchesFound     int

	DetectorTime   time.Duration
	DescriptorTime time.Duration
	TotalTime      time.Duration // detection plus description, for described frames only
	MatchTime      time.Duration
}

// Status tells how a configuration pair's frame loop ended.
type Status string

const (
	StatusComplete     Status = "complete"
	StatusIncompatible Status = "incompatible"
	StatusFailed       Status = "failed"
)

// Report is the finalized outcome of one configuration pair.
type Report struct {
	Pair   ConfigPair
	Stats  AggregateStats
	Status Status
	Err    string
}

// Detector averages divide by the frames that were detected, descriptor
// averages by the frames that were described. A pair cut short by an
// incompatible pairing is averaged over what it actually processed.

func (r Report) AverageKeypointsDetected() float64 {
	return perFrame(float64(r.Stats.KeypointsDetected), r.Stats.FramesDetected)
}

func (r Report) AverageKeypointsDescribed() float64 {
	return perFrame(float64(r.Stats.KeypointsDescribed), r.Stats.FramesDescribed)
}

func (r Report) AverageDetectorTimeMs() float64 {
	return perFrame(features.Milliseconds(r.Stats.DetectorTime), r.Stats.FramesDetected)
}

func (r Report) AverageTotalTimeMs() float64 {
	return perFrame(features.Milliseconds(r.Stats.TotalTime), r.Stats.FramesDescribed)
}

func (r Report) AverageMatches() float64 {
	return perFrame(float64(r.Stats.MatchesFound), r.Stats.MatchInvocations)
}

func (r Report) AverageMatchTimeMs() float64 {
	return perFrame(features.Milliseconds(r.Stats.MatchTime), r.Stats.MatchInvocations)
}

func perFrame(total float64, frames int) float64 {
	if frames == 0 {
		return 0
	}
	return total / float64(frames)
}
