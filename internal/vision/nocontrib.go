//go:build !contrib

package vision

import (
	"fmt"

	"github.com/andresmejia3/keybench/internal/features"
)

// ContribEnabled reports whether the opencv_contrib kinds are compiled in.
const ContribEnabled = false

func newContribDetector(kind features.DetectorKind) (features.Detector, error) {
	return nil, fmt.Errorf("%w: %q needs a build with -tags contrib", features.ErrUnsupportedDetector, kind)
}

func newContribExtractor(kind features.DescriptorKind) (features.Extractor, error) {
	return nil, fmt.Errorf("%w: %q needs a build with -tags contrib", features.ErrUnsupportedDescriptor, kind)
}
