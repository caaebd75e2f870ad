package features

import (
	"cmp"
	"fmt"
	"image"
	"slices"
	"time"

	"github.com/andresmejia3/keybench/internal/types"
)

// Detection is the output of one detector call.
type Detection struct {
	Keypoints []types.Keypoint
	Elapsed   time.Duration
}

// Detect runs the detector of the given kind on img. Only the detect call is timed.
func Detect(tk Toolkit, img *image.Gray, kind DetectorKind, clock Clock) (Detection, error) {
	clock = clockOrDefault(clock)

	det, err := tk.NewDetector(kind)
	if err != nil {
		return Detection{}, err
	}
	defer det.Close()

	start := clock()
	kps, err := det.Detect(img)
	elapsed := clock().Sub(start)
	if err != nil {
		return Detection{}, fmt.Errorf("%s detection failed: %w", kind, err)
	}
	return Detection{Keypoints: kps, Elapsed: elapsed}, nil
}

// RetainBest caps kps at max keypoints. Ranked detectors keep the highest
// responses; unranked ones keep the first max in their native order.
func RetainBest(kps []types.Keypoint, max int, ranked bool) []types.Keypoint {
	if max < 0 || len(kps) <= max {
		return kps
	}
	if !ranked {
		return kps[:max]
	}

	best := slices.Clone(kps)
	slices.SortStableFunc(best, func(a, b types.Keypoint) int {
		return cmp.Compare(b.Response, a.Response)
	})
	return best[:max]
}
