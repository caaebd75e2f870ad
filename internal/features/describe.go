package features

import (
	"fmt"
	"image"
	"time"

	"github.com/andresmejia3/keybench/internal/types"
)

// Description is the output of one extractor call. Keypoints and
// Descriptors rows line up one to one.
type Description struct {
	Keypoints   []types.Keypoint
	Descriptors types.Descriptors
	Elapsed     time.Duration
}

// Describe computes descriptors of the given kind for kps. The extractor is
// built even for an empty keypoint set so unsupported kinds still fail.
func Describe(tk Toolkit, img *image.Gray, kps []types.Keypoint, kind DescriptorKind, clock Clock) (Description, error) {
	clock = clockOrDefault(clock)

	ext, err := tk.NewExtractor(kind)
	if err != nil {
		return Description{}, err
	}
	defer ext.Close()

	if len(kps) == 0 {
		return Description{Descriptors: types.Descriptors{Type: kind.Type()}}, nil
	}

	start := clock()
	kept, desc, err := ext.Compute(img, kps)
	elapsed := clock().Sub(start)
	if err != nil {
		return Description{}, fmt.Errorf("%s extraction failed: %w", kind, err)
	}
	if desc.Rows != len(kept) {
		return Description{}, fmt.Errorf("%s extraction returned %d rows for %d keypoints", kind, desc.Rows, len(kept))
	}
	return Description{Keypoints: kept, Descriptors: desc, Elapsed: elapsed}, nil
}
