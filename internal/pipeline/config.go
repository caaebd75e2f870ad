package pipeline

import (
	"fmt"

	"github.com/andresmejia3/keybench/internal/features"
)

// Config holds every tunable of a benchmark run. The zero value is not
// usable; start from DefaultConfig.
type Config struct {
	StartIndex     int // first frame index, inclusive
	EndIndex       int // last frame index, inclusive
	BufferCapacity int

	FocusOnRegion bool
	Region        features.Rect

	// DescriptorNorm overrides the matcher distance; empty picks it from the descriptor kind.
	DescriptorNorm features.DescriptorNorm
	Matcher        features.MatcherKind
	Selector       features.SelectorKind
	RatioThreshold float64

	LimitKeypoints bool
	MaxKeypoints   int

	Visualize bool
}

// DefaultConfig returns the settings for the 10-frame KITTI sequence.
func DefaultConfig() Config {
	return Config{
		StartIndex:     0,
		EndIndex:       9,
		BufferCapacity: 2,
		FocusOnRegion:  true,
		Region:         features.VehicleRect,
		Matcher:        features.MatcherBruteForce,
		Selector:       features.SelectKNN,
		RatioThreshold: features.DefaultRatio,
		LimitKeypoints: false,
		MaxKeypoints:   50,
	}
}

// FrameCount is the number of frames each configuration pair runs over.
func (c Config) FrameCount() int {
	return c.EndIndex - c.StartIndex + 1
}

// Validate checks the configuration before any frame is loaded.
func (c Config) Validate() error {
	if c.StartIndex < 0 {
		return fmt.Errorf("start index must be >= 0, got %d", c.StartIndex)
	}
	if c.EndIndex < c.StartIndex {
		return fmt.Errorf("end index %d is before start index %d", c.EndIndex, c.StartIndex)
	}
	if c.BufferCapacity < 1 {
		return fmt.Errorf("buffer capacity must be >= 1, got %d", c.BufferCapacity)
	}
	if c.FocusOnRegion && c.Region.Empty() {
		return fmt.Errorf("region of interest %s has no area", c.Region)
	}
	if c.DescriptorNorm != "" {
		if _, err := features.ParseDescriptorNorm(string(c.DescriptorNorm)); err != nil {
			return err
		}
	}
	if _, err := features.ParseMatcherKind(string(c.Matcher)); err != nil {
		return err
	}
	if _, err := features.ParseSelectorKind(string(c.Selector)); err != nil {
		return err
	}
	if c.RatioThreshold <= 0 || c.RatioThreshold > 1 {
		return fmt.Errorf("ratio threshold must be in (0, 1], got %g", c.RatioThreshold)
	}
	if c.LimitKeypoints && c.MaxKeypoints < 1 {
		return fmt.Errorf("max keypoints must be >= 1 when limiting, got %d", c.MaxKeypoints)
	}
	return nil
}

func (c Config) matchOptions(desc features.DescriptorKind) features.MatchOptions {
	norm := c.DescriptorNorm
	if norm == "" {
		norm = desc.Norm()
	}
	return features.MatchOptions{
		Matcher:  c.Matcher,
		Selector: c.Selector,
		Norm:     norm,
		Ratio:    c.RatioThreshold,
	}
}
