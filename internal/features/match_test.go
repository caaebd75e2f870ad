package features_test

import (
	"errors"
	"testing"
	"time"

	"github.com/andresmejia3/keybench/internal/features"
	"github.com/andresmejia3/keybench/internal/features/featurestest"
	"github.com/andresmejia3/keybench/internal/types"
)

func TestSelectRatio(t *testing.T) {
	knn := [][]types.Match{
		{{SourceIndex: 0, RefIndex: 3, Distance: 10}, {SourceIndex: 0, RefIndex: 1, Distance: 20}}, // 10 < 16, kept
		{{SourceIndex: 1, RefIndex: 0, Distance: 16}, {SourceIndex: 1, RefIndex: 2, Distance: 20}}, // 16 == 16, rejected
		{{SourceIndex: 2, RefIndex: 4, Distance: 5}},                                               // single candidate, skipped
		{},
		{{SourceIndex: 4, RefIndex: 2, Distance: 0}, {SourceIndex: 4, RefIndex: 1, Distance: 1}}, // kept
		{{SourceIndex: 5, RefIndex: 2, Distance: 0}, {SourceIndex: 5, RefIndex: 1, Distance: 0}}, // ties never pass
	}

	got := features.SelectRatio(knn, 0.8)
	if len(got) != 2 {
		t.Fatalf("SelectRatio() kept %d matches, want 2: %v", len(got), got)
	}
	if got[0].SourceIndex != 0 || got[0].RefIndex != 3 || got[1].SourceIndex != 4 {
		t.Errorf("SelectRatio() = %v", got)
	}

	// Every emitted match strictly satisfies the ratio rule.
	for _, m := range got {
		cands := knn[m.SourceIndex]
		if !(cands[0].Distance < 0.8*cands[1].Distance) {
			t.Errorf("match %v violates ratio test", m)
		}
	}
}

func TestSelectBest(t *testing.T) {
	knn := [][]types.Match{
		{{SourceIndex: 0, RefIndex: 2, Distance: 1}, {SourceIndex: 0, RefIndex: 0, Distance: 4}},
		{},
		{{SourceIndex: 2, RefIndex: 1, Distance: 7}},
	}
	got := features.SelectBest(knn)
	if len(got) != 2 || got[0].RefIndex != 2 || got[1].RefIndex != 1 {
		t.Errorf("SelectBest() = %v", got)
	}
}

func binaryDesc(rows ...[]uint8) types.Descriptors {
	d := types.Descriptors{Type: types.Binary, Rows: len(rows)}
	for _, r := range rows {
		d.Cols = len(r)
		d.Bytes = append(d.Bytes, r...)
	}
	return d
}

func TestMatchDescriptors(t *testing.T) {
	src := func() types.Descriptors {
		return binaryDesc([]uint8{0x00, 0x00}, []uint8{0xff, 0x00}, []uint8{0x0f, 0x0f})
	}
	ref := func() types.Descriptors {
		return binaryDesc([]uint8{0x00, 0x01}, []uint8{0xff, 0x03}, []uint8{0xf0, 0xf0})
	}

	tests := []struct {
		name        string
		opts        features.MatchOptions
		wantMatches int
	}{
		// Hamming: row0 -> 1 vs 8 (kept), row1 -> 2 vs 8 (kept), row2 -> 6 vs 7 (ambiguous)
		{"BF nearest neighbour", features.MatchOptions{Matcher: features.MatcherBruteForce, Selector: features.SelectNearest, Norm: features.NormBinary}, 3},
		{"BF ratio test", features.MatchOptions{Matcher: features.MatcherBruteForce, Selector: features.SelectKNN, Norm: features.NormBinary, Ratio: 0.8}, 2},
		{"FLANN nearest neighbour", features.MatchOptions{Matcher: features.MatcherFLANN, Selector: features.SelectNearest, Norm: features.NormBinary}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tk := featurestest.New()
			s, r := src(), ref()
			res, err := features.MatchDescriptors(tk, &s, &r, tt.opts, nil, nil)
			if err != nil {
				t.Fatalf("MatchDescriptors() error = %v", err)
			}
			if len(res.Matches) != tt.wantMatches {
				t.Errorf("got %d matches, want %d: %v", len(res.Matches), tt.wantMatches, res.Matches)
			}
			if tk.Open != 0 {
				t.Errorf("%d matcher(s) left open", tk.Open)
			}
		})
	}
}

func TestMatchDescriptorsFLANNConvertsInPlace(t *testing.T) {
	tk := featurestest.New()
	s := binaryDesc([]uint8{1, 2}, []uint8{3, 4})
	r := binaryDesc([]uint8{1, 2}, []uint8{9, 9})

	opts := features.MatchOptions{Matcher: features.MatcherFLANN, Selector: features.SelectKNN, Norm: features.NormBinary}
	if _, err := features.MatchDescriptors(tk, &s, &r, opts, nil, nil); err != nil {
		t.Fatalf("MatchDescriptors() error = %v", err)
	}
	if s.Type != types.Float || r.Type != types.Float {
		t.Fatalf("descriptors not converted: %s, %s", s.Type, r.Type)
	}
	if s.Floats[3] != 4 || len(s.Bytes) != 0 {
		t.Errorf("conversion lost data: %v", s.Floats)
	}
}

func TestMatchDescriptorsEmpty(t *testing.T) {
	tk := featurestest.New()
	empty := types.Descriptors{Type: types.Binary}
	full := binaryDesc([]uint8{1})

	opts := features.MatchOptions{Matcher: features.MatcherBruteForce, Selector: features.SelectKNN, Norm: features.NormBinary}
	for _, pair := range [][2]*types.Descriptors{{&empty, &full}, {&full, &empty}, {&empty, &empty}} {
		res, err := features.MatchDescriptors(tk, pair[0], pair[1], opts, nil, nil)
		if err != nil || len(res.Matches) != 0 {
			t.Errorf("MatchDescriptors(empty) = (%v, %v), want no matches and no error", res.Matches, err)
		}
	}
	if tk.MatchCalls != 0 {
		t.Errorf("matcher called %d times for empty input", tk.MatchCalls)
	}
}

func TestMatchDescriptorsErrors(t *testing.T) {
	s := binaryDesc([]uint8{1})
	r := binaryDesc([]uint8{1})

	_, err := features.MatchDescriptors(featurestest.New(), &s, &r,
		features.MatchOptions{Matcher: features.MatcherBruteForce, Selector: "SEL_RADIUS"}, nil, nil)
	if !errors.Is(err, features.ErrUnsupportedSelector) {
		t.Errorf("unknown selector: err = %v", err)
	}

	tk := featurestest.New()
	tk.MatchErr = errors.New("boom")
	_, err = features.MatchDescriptors(tk, &s, &r,
		features.MatchOptions{Matcher: features.MatcherBruteForce, Selector: features.SelectNearest}, nil, nil)
	if err == nil {
		t.Error("expected backend failure to surface")
	}
}

func TestMatchDescriptorsRejectsHammingOnFloat(t *testing.T) {
	floatDesc := func() types.Descriptors {
		return types.Descriptors{Type: types.Float, Rows: 2, Cols: 2, Floats: []float32{1, 2, 3, 4}}
	}
	opts := features.MatchOptions{Matcher: features.MatcherBruteForce, Selector: features.SelectKNN, Norm: features.NormBinary}

	tests := []struct {
		name     string
		src, ref types.Descriptors
	}{
		{"Float source", floatDesc(), binaryDesc([]uint8{1, 2}, []uint8{3, 4})},
		{"Float reference", binaryDesc([]uint8{1, 2}, []uint8{3, 4}), floatDesc()},
		{"Both float", floatDesc(), floatDesc()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tk := featurestest.New()
			_, err := features.MatchDescriptors(tk, &tt.src, &tt.ref, opts, nil, nil)
			if !errors.Is(err, features.ErrUnsupportedNorm) {
				t.Errorf("err = %v, want ErrUnsupportedNorm", err)
			}
			if tk.MatchCalls != 0 || tk.Open != 0 {
				t.Errorf("backend reached: %d match calls, %d open", tk.MatchCalls, tk.Open)
			}
		})
	}

	// DES_HOG over float rows is the supported brute-force combination.
	s, r := floatDesc(), floatDesc()
	opts.Norm = features.NormHOG
	if _, err := features.MatchDescriptors(featurestest.New(), &s, &r, opts, nil, nil); err != nil {
		t.Errorf("DES_HOG on float descriptors: %v", err)
	}
}

func TestMatchDescriptorsTiming(t *testing.T) {
	now := time.Unix(0, 0)
	clock := func() time.Time {
		now = now.Add(3 * time.Millisecond)
		return now
	}
	s := binaryDesc([]uint8{1}, []uint8{2})
	r := binaryDesc([]uint8{1}, []uint8{2})

	res, err := features.MatchDescriptors(featurestest.New(), &s, &r,
		features.MatchOptions{Matcher: features.MatcherBruteForce, Selector: features.SelectNearest, Norm: features.NormBinary}, clock, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Elapsed != 3*time.Millisecond {
		t.Errorf("Elapsed = %v, want 3ms", res.Elapsed)
	}
}
