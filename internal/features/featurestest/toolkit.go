// Package featurestest provides a deterministic pure-Go Toolkit for tests.
//
// The fake detector reports a keypoint for every pixel brighter than
// Threshold, so tests control detections by painting images. Descriptors
// encode the keypoint position and matching is an exhaustive search.
package featurestest

import (
	"errors"
	"fmt"
	"image"
	"math"
	"math/bits"
	"sort"

	"github.com/andresmejia3/keybench/internal/features"
	"github.com/andresmejia3/keybench/internal/types"
)

// Threshold is the brightness above which a pixel becomes a keypoint.
const Threshold = 200

// DescriptorCols is the row width of every fake descriptor.
const DescriptorCols = 4

// Toolkit counts every call so tests can assert on pipeline behaviour.
type Toolkit struct {
	DetectErr  map[features.DetectorKind]error
	ComputeErr map[features.DescriptorKind]error
	MatchErr   error

	Detects    int
	Computes   int
	MatchCalls int
	Open       int // objects built and not yet closed
}

func New() *Toolkit {
	return &Toolkit{
		DetectErr:  map[features.DetectorKind]error{},
		ComputeErr: map[features.DescriptorKind]error{},
	}
}

func (tk *Toolkit) NewDetector(kind features.DetectorKind) (features.Detector, error) {
	if _, err := features.ParseDetectorKind(string(kind)); err != nil {
		return nil, err
	}
	tk.Open++
	return &detector{tk: tk, kind: kind}, nil
}

func (tk *Toolkit) NewExtractor(kind features.DescriptorKind) (features.Extractor, error) {
	if _, err := features.ParseDescriptorKind(string(kind)); err != nil {
		return nil, err
	}
	tk.Open++
	return &extractor{tk: tk, kind: kind}, nil
}

func (tk *Toolkit) NewMatcher(kind features.MatcherKind, norm features.DescriptorNorm) (features.Matcher, error) {
	if _, err := features.ParseMatcherKind(string(kind)); err != nil {
		return nil, err
	}
	tk.Open++
	return &matcher{tk: tk, kind: kind, norm: norm}, nil
}

type detector struct {
	tk   *Toolkit
	kind features.DetectorKind
}

func (d *detector) Detect(img *image.Gray) ([]types.Keypoint, error) {
	d.tk.Detects++
	if err := d.tk.DetectErr[d.kind]; err != nil {
		return nil, err
	}
	if img == nil {
		return nil, errors.New("nil image")
	}

	var kps []types.Keypoint
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := img.GrayAt(x, y).Y
			if v <= Threshold {
				continue
			}
			kp := types.Keypoint{X: float64(x), Y: float64(y), Size: 4}
			if d.kind.Ranked() {
				kp.Response = float64(v)
			}
			kps = append(kps, kp)
		}
	}
	return kps, nil
}

func (d *detector) Close() error {
	d.tk.Open--
	return nil
}

type extractor struct {
	tk   *Toolkit
	kind features.DescriptorKind
}

func (e *extractor) Compute(img *image.Gray, kps []types.Keypoint) ([]types.Keypoint, types.Descriptors, error) {
	e.tk.Computes++
	if err := e.tk.ComputeErr[e.kind]; err != nil {
		return nil, types.Descriptors{}, err
	}

	desc := types.Descriptors{Type: e.kind.Type(), Rows: len(kps), Cols: DescriptorCols}
	for _, kp := range kps {
		row := [DescriptorCols]uint8{
			uint8(int(kp.X) & 0xff), uint8(int(kp.X) >> 8),
			uint8(int(kp.Y) & 0xff), uint8(int(kp.Y) >> 8),
		}
		for _, v := range row {
			if desc.Type == types.Float {
				desc.Floats = append(desc.Floats, float32(v))
			} else {
				desc.Bytes = append(desc.Bytes, v)
			}
		}
	}
	return kps, desc, nil
}

func (e *extractor) Close() error {
	e.tk.Open--
	return nil
}

type matcher struct {
	tk   *Toolkit
	kind features.MatcherKind
	norm features.DescriptorNorm
}

func (m *matcher) Match(src, ref types.Descriptors) ([]types.Match, error) {
	knn, err := m.KnnMatch(src, ref, 1)
	if err != nil {
		return nil, err
	}
	return features.SelectBest(knn), nil
}

func (m *matcher) KnnMatch(src, ref types.Descriptors, k int) ([][]types.Match, error) {
	m.tk.MatchCalls++
	if m.tk.MatchErr != nil {
		return nil, m.tk.MatchErr
	}
	if m.kind == features.MatcherFLANN && (src.Type != types.Float || ref.Type != types.Float) {
		return nil, fmt.Errorf("flann needs float descriptors, got %s and %s", src.Type, ref.Type)
	}
	if src.Type != ref.Type || src.Cols != ref.Cols {
		return nil, fmt.Errorf("descriptor mismatch: %s/%d vs %s/%d", src.Type, src.Cols, ref.Type, ref.Cols)
	}

	out := make([][]types.Match, 0, src.Rows)
	for i := 0; i < src.Rows; i++ {
		cands := make([]types.Match, 0, ref.Rows)
		for j := 0; j < ref.Rows; j++ {
			cands = append(cands, types.Match{SourceIndex: i, RefIndex: j, Distance: m.distance(&src, &ref, i, j)})
		}
		sort.SliceStable(cands, func(a, b int) bool { return cands[a].Distance < cands[b].Distance })
		if len(cands) > k {
			cands = cands[:k]
		}
		out = append(out, cands)
	}
	return out, nil
}

func (m *matcher) distance(src, ref *types.Descriptors, i, j int) float64 {
	if src.Type == types.Float {
		var sum float64
		a, b := src.FloatRow(i), ref.FloatRow(j)
		for c := range a {
			d := float64(a[c] - b[c])
			sum += d * d
		}
		return math.Sqrt(sum)
	}
	var dist int
	a, b := src.ByteRow(i), ref.ByteRow(j)
	for c := range a {
		dist += bits.OnesCount8(a[c] ^ b[c])
	}
	return float64(dist)
}

func (m *matcher) Close() error {
	m.tk.Open--
	return nil
}
