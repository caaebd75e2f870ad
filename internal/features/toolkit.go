package features

import (
	"image"
	"time"

	"github.com/andresmejia3/keybench/internal/types"
)

// Detector finds keypoints in a grayscale image.
type Detector interface {
	Detect(img *image.Gray) ([]types.Keypoint, error)
	Close() error
}

// Extractor computes one descriptor row per keypoint. Keypoints it cannot
// describe are dropped, and the returned slice lines up with the rows.
type Extractor interface {
	Compute(img *image.Gray, kps []types.Keypoint) ([]types.Keypoint, types.Descriptors, error)
	Close() error
}

// Matcher searches ref for the nearest rows of src.
type Matcher interface {
	Match(src, ref types.Descriptors) ([]types.Match, error)
	KnnMatch(src, ref types.Descriptors, k int) ([][]types.Match, error)
	Close() error
}

// Toolkit builds detectors, extractors and matchers by kind.
type Toolkit interface {
	NewDetector(kind DetectorKind) (Detector, error)
	NewExtractor(kind DescriptorKind) (Extractor, error)
	NewMatcher(kind MatcherKind, norm DescriptorNorm) (Matcher, error)
}

// Clock returns the current time. Tests stub it to make timings deterministic.
type Clock func() time.Time

// Milliseconds converts a duration to fractional milliseconds.
func Milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func clockOrDefault(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}
