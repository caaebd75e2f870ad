//go:build contrib

package vision

import (
	"fmt"

	"github.com/andresmejia3/keybench/internal/features"
	"gocv.io/x/gocv/contrib"
)

const (
	harrisOctaves   = 6
	harrisCornerThr = 0.01
	harrisDoGThr    = 0.01
	harrisMaxCorner = 5000
	harrisLayers    = 4

	briefBytes = 32
)

// ContribEnabled reports whether the opencv_contrib kinds are compiled in.
const ContribEnabled = true

func newContribDetector(kind features.DetectorKind) (features.Detector, error) {
	if kind == features.Harris {
		d := contrib.NewHarrisLaplaceFeatureDetectorWithParams(harrisOctaves, harrisCornerThr, harrisDoGThr, harrisMaxCorner, harrisLayers)
		return &cvDetector{d: &d}, nil
	}
	return nil, fmt.Errorf("%w: %q", features.ErrUnsupportedDetector, kind)
}

func newContribExtractor(kind features.DescriptorKind) (features.Extractor, error) {
	switch kind {
	case features.DescBRIEF:
		e := contrib.NewBriefDescriptorExtractorWithParams(briefBytes, false)
		return &cvExtractor{e: &e}, nil
	case features.DescFREAK:
		e := contrib.NewFREAK()
		return &cvExtractor{e: &e}, nil
	}
	return nil, fmt.Errorf("%w: %q", features.ErrUnsupportedDescriptor, kind)
}
