// Package vision implements the feature toolkit on top of OpenCV through gocv,
// plus the frame source and match visualizer that need OpenCV image I/O.
package vision

import (
	"fmt"
	"image"
	"math"

	"github.com/andresmejia3/keybench/internal/features"
	"github.com/andresmejia3/keybench/internal/types"
	"gocv.io/x/gocv"
)

const (
	fastThreshold = 30

	// gocv's GoodFeaturesToTrack takes no block size, so OpenCV scores
	// corners over its default 3x3 block. 4 sets the spacing and Keypoint.Size.
	shiTomasiBlockSize = 4
	shiTomasiOverlap   = 0.0
	shiTomasiQuality   = 0.01
)

// Toolkit builds OpenCV-backed detectors, extractors and matchers. HARRIS,
// BRIEF and FREAK live in opencv_contrib and need the contrib build tag.
type Toolkit struct{}

func NewToolkit() *Toolkit { return &Toolkit{} }

var _ features.Toolkit = (*Toolkit)(nil)

// keypointDetector is the subset of gocv's feature2d types used for detection.
type keypointDetector interface {
	Detect(src gocv.Mat) []gocv.KeyPoint
	Close() error
}

// keypointComputer is the subset of gocv's feature2d types used for description.
type keypointComputer interface {
	Compute(src gocv.Mat, mask gocv.Mat, kps []gocv.KeyPoint) ([]gocv.KeyPoint, gocv.Mat)
	Close() error
}

func (tk *Toolkit) NewDetector(kind features.DetectorKind) (features.Detector, error) {
	switch kind {
	case features.ShiTomasi:
		return shiTomasi{}, nil
	case features.Harris:
		return newContribDetector(kind)
	case features.FAST:
		d := gocv.NewFastFeatureDetectorWithParams(fastThreshold, true, gocv.FastFeatureDetectorType9To16)
		return &cvDetector{d: &d}, nil
	case features.BRISK:
		d := gocv.NewBRISK()
		return &cvDetector{d: &d}, nil
	case features.ORB:
		d := gocv.NewORB()
		return &cvDetector{d: &d}, nil
	case features.AKAZE:
		d := gocv.NewAKAZE()
		return &cvDetector{d: &d}, nil
	case features.SIFT:
		d := gocv.NewSIFT()
		return &cvDetector{d: &d}, nil
	}
	return nil, fmt.Errorf("%w: %q", features.ErrUnsupportedDetector, kind)
}

func (tk *Toolkit) NewExtractor(kind features.DescriptorKind) (features.Extractor, error) {
	switch kind {
	case features.DescBRISK:
		e := gocv.NewBRISK()
		return &cvExtractor{e: &e}, nil
	case features.DescORB:
		e := gocv.NewORB()
		return &cvExtractor{e: &e}, nil
	case features.DescAKAZE:
		e := gocv.NewAKAZE()
		return &cvExtractor{e: &e}, nil
	case features.DescSIFT:
		e := gocv.NewSIFT()
		return &cvExtractor{e: &e}, nil
	case features.DescBRIEF, features.DescFREAK:
		return newContribExtractor(kind)
	}
	return nil, fmt.Errorf("%w: %q", features.ErrUnsupportedDescriptor, kind)
}

func (tk *Toolkit) NewMatcher(kind features.MatcherKind, norm features.DescriptorNorm) (features.Matcher, error) {
	switch kind {
	case features.MatcherBruteForce:
		var normType gocv.NormType
		switch norm {
		case features.NormBinary:
			normType = gocv.NormHamming2
		case features.NormHOG:
			normType = gocv.NormL2
		default:
			return nil, fmt.Errorf("%w: %q", features.ErrUnsupportedNorm, norm)
		}
		m := gocv.NewBFMatcherWithParams(normType, false)
		return &bfMatcher{m: m}, nil
	case features.MatcherFLANN:
		return &flannMatcher{m: gocv.NewFlannBasedMatcher()}, nil
	}
	return nil, fmt.Errorf("%w: %q", features.ErrUnsupportedMatcher, kind)
}

type cvDetector struct {
	d keypointDetector
}

func (c *cvDetector) Detect(img *image.Gray) ([]types.Keypoint, error) {
	m, err := grayToMat(img)
	if err != nil {
		return nil, err
	}
	defer m.Close()
	return fromKeyPoints(c.d.Detect(m)), nil
}

func (c *cvDetector) Close() error { return c.d.Close() }

// shiTomasi runs goodFeaturesToTrack with a minimum distance equal to the
// block size, so neighbouring corners never overlap.
type shiTomasi struct{}

func (shiTomasi) Detect(img *image.Gray) ([]types.Keypoint, error) {
	m, err := grayToMat(img)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	corners := gocv.NewMat()
	defer corners.Close()
	gocv.GoodFeaturesToTrack(m, &corners, shiTomasiMaxCorners(m.Rows(), m.Cols()), shiTomasiQuality, shiTomasiMinDistance())

	kps := make([]types.Keypoint, 0, corners.Rows())
	for i := 0; i < corners.Rows(); i++ {
		pt := corners.GetVecfAt(i, 0)
		kps = append(kps, types.Keypoint{X: float64(pt[0]), Y: float64(pt[1]), Size: shiTomasiBlockSize, Angle: -1})
	}
	return kps, nil
}

func (shiTomasi) Close() error { return nil }

func shiTomasiMinDistance() float64 {
	return (1 - shiTomasiOverlap) * shiTomasiBlockSize
}

// shiTomasiMaxCorners allows one corner per minimum-distance step of the
// image area, so dense textures are never cut off early.
func shiTomasiMaxCorners(rows, cols int) int {
	return int(float64(rows*cols) / math.Max(1, shiTomasiMinDistance()))
}

type cvExtractor struct {
	e keypointComputer
}

func (c *cvExtractor) Compute(img *image.Gray, kps []types.Keypoint) ([]types.Keypoint, types.Descriptors, error) {
	m, err := grayToMat(img)
	if err != nil {
		return nil, types.Descriptors{}, err
	}
	defer m.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	kept, descMat := c.e.Compute(m, mask, toKeyPoints(kps))
	defer descMat.Close()
	desc, err := fromMat(descMat)
	if err != nil {
		return nil, types.Descriptors{}, err
	}
	return fromKeyPoints(kept), desc, nil
}

func (c *cvExtractor) Close() error { return c.e.Close() }

type bfMatcher struct {
	m gocv.BFMatcher
}

func (b *bfMatcher) Match(src, ref types.Descriptors) ([]types.Match, error) {
	q, t, err := matPair(src, ref)
	if err != nil {
		return nil, err
	}
	defer q.Close()
	defer t.Close()
	return fromDMatches(b.m.Match(q, t)), nil
}

func (b *bfMatcher) KnnMatch(src, ref types.Descriptors, k int) ([][]types.Match, error) {
	q, t, err := matPair(src, ref)
	if err != nil {
		return nil, err
	}
	defer q.Close()
	defer t.Close()
	return fromKnn(b.m.KnnMatch(q, t, k)), nil
}

func (b *bfMatcher) Close() error { return b.m.Close() }

// flannMatcher only exposes k-nearest search; single matches use k=1.
type flannMatcher struct {
	m gocv.FlannBasedMatcher
}

func (f *flannMatcher) Match(src, ref types.Descriptors) ([]types.Match, error) {
	knn, err := f.KnnMatch(src, ref, 1)
	if err != nil {
		return nil, err
	}
	return features.SelectBest(knn), nil
}

func (f *flannMatcher) KnnMatch(src, ref types.Descriptors, k int) ([][]types.Match, error) {
	if src.Type != types.Float || ref.Type != types.Float {
		return nil, fmt.Errorf("FLANN requires float descriptors, got %s and %s", src.Type, ref.Type)
	}
	q, t, err := matPair(src, ref)
	if err != nil {
		return nil, err
	}
	defer q.Close()
	defer t.Close()
	return fromKnn(f.m.KnnMatch(q, t, k)), nil
}

func (f *flannMatcher) Close() error { return f.m.Close() }

func matPair(src, ref types.Descriptors) (gocv.Mat, gocv.Mat, error) {
	q, err := toMat(src)
	if err != nil {
		return gocv.Mat{}, gocv.Mat{}, err
	}
	t, err := toMat(ref)
	if err != nil {
		q.Close()
		return gocv.Mat{}, gocv.Mat{}, err
	}
	return q, t, nil
}

func fromKnn(knn [][]gocv.DMatch) [][]types.Match {
	out := make([][]types.Match, len(knn))
	for i, row := range knn {
		out[i] = fromDMatches(row)
	}
	return out
}
