package features

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/andresmejia3/keybench/internal/types"
)

// DefaultRatio is the distance ratio used to reject ambiguous KNN matches.
const DefaultRatio = 0.8

// MatchOptions configures MatchDescriptors.
type MatchOptions struct {
	Matcher  MatcherKind
	Selector SelectorKind
	Norm     DescriptorNorm
	Ratio    float64
}

// MatchResult is the output of one matching call.
type MatchResult struct {
	Matches []types.Match
	Elapsed time.Duration
}

// MatchDescriptors finds correspondences from src rows to ref rows.
// FLANN matching converts both matrices to float in place first.
// An empty matrix on either side yields no matches and no error.
func MatchDescriptors(tk Toolkit, src, ref *types.Descriptors, opts MatchOptions, clock Clock, logger *slog.Logger) (MatchResult, error) {
	clock = clockOrDefault(clock)
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Ratio <= 0 {
		opts.Ratio = DefaultRatio
	}

	if opts.Selector != SelectNearest && opts.Selector != SelectKNN {
		return MatchResult{}, fmt.Errorf("%w: %q", ErrUnsupportedSelector, opts.Selector)
	}
	if src.Empty() || ref.Empty() {
		return MatchResult{}, nil
	}

	if opts.Matcher == MatcherFLANN {
		src.ConvertToFloat()
		ref.ConvertToFloat()
	}
	// OpenCV aborts the process on Hamming distances over float rows.
	if opts.Matcher == MatcherBruteForce && opts.Norm == NormBinary &&
		(src.Type == types.Float || ref.Type == types.Float) {
		return MatchResult{}, fmt.Errorf("%w: %s needs binary descriptors, got %s and %s",
			ErrUnsupportedNorm, opts.Norm, src.Type, ref.Type)
	}

	m, err := tk.NewMatcher(opts.Matcher, opts.Norm)
	if err != nil {
		return MatchResult{}, err
	}
	defer m.Close()

	start := clock()
	var matches []types.Match
	switch opts.Selector {
	case SelectNearest:
		matches, err = m.Match(*src, *ref)
	case SelectKNN:
		var knn [][]types.Match
		knn, err = m.KnnMatch(*src, *ref, 2)
		if err == nil {
			matches = SelectRatio(knn, opts.Ratio)
		}
	}
	elapsed := clock().Sub(start)
	if err != nil {
		return MatchResult{}, fmt.Errorf("%s matching failed: %w", opts.Matcher, err)
	}

	logger.Debug("descriptors matched",
		"matcher", opts.Matcher,
		"norm", opts.Norm,
		"selector", opts.Selector,
		"matches", len(matches),
		"elapsed_ms", Milliseconds(elapsed),
	)
	return MatchResult{Matches: matches, Elapsed: elapsed}, nil
}

// SelectBest keeps the nearest candidate of every query row.
func SelectBest(knn [][]types.Match) []types.Match {
	out := make([]types.Match, 0, len(knn))
	for _, cands := range knn {
		if len(cands) > 0 {
			out = append(out, cands[0])
		}
	}
	return out
}

// SelectRatio keeps the best candidate only when it is clearly closer than
// the runner-up: best < ratio * second. Rows with fewer than two candidates
// are dropped.
func SelectRatio(knn [][]types.Match, ratio float64) []types.Match {
	out := make([]types.Match, 0, len(knn))
	for _, cands := range knn {
		if len(cands) < 2 {
			continue
		}
		if cands[0].Distance < ratio*cands[1].Distance {
			out = append(out, cands[0])
		}
	}
	return out
}
