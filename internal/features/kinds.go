package features

import (
	"errors"
	"fmt"
	"strings"

	"github.com/andresmejia3/keybench/internal/types"
)

var (
	ErrUnsupportedDetector   = errors.New("unsupported detector")
	ErrUnsupportedDescriptor = errors.New("unsupported descriptor")
	ErrUnsupportedMatcher    = errors.New("unsupported matcher")
	ErrUnsupportedSelector   = errors.New("unsupported selector")
	ErrUnsupportedNorm       = errors.New("unsupported descriptor norm")
	// ErrIncompatiblePairing marks a detector/descriptor combination the backend cannot describe.
	ErrIncompatiblePairing = errors.New("incompatible detector/descriptor pairing")
)

// DetectorKind selects a keypoint detector.
type DetectorKind string

const (
	ShiTomasi DetectorKind = "SHITOMASI"
	Harris    DetectorKind = "HARRIS"
	FAST      DetectorKind = "FAST"
	BRISK     DetectorKind = "BRISK"
	ORB       DetectorKind = "ORB"
	AKAZE     DetectorKind = "AKAZE"
	SIFT      DetectorKind = "SIFT"
)

// DetectorKinds lists every supported detector in benchmark order.
var DetectorKinds = []DetectorKind{ShiTomasi, Harris, FAST, BRISK, ORB, AKAZE, SIFT}

// Family groups detectors by how they find keypoints.
type Family string

const (
	FamilyCornerResponse Family = "corner-response"
	FamilyBinaryCorner   Family = "binary-corner"
	FamilyBlob           Family = "blob"
	FamilyScaleInvariant Family = "scale-invariant"
)

func (k DetectorKind) Family() Family {
	switch k {
	case ShiTomasi, Harris:
		return FamilyCornerResponse
	case FAST, BRISK, ORB:
		return FamilyBinaryCorner
	case AKAZE:
		return FamilyBlob
	case SIFT:
		return FamilyScaleInvariant
	}
	return ""
}

// Ranked reports whether the detector fills Keypoint.Response.
// Shi-Tomasi corners come back sorted by quality instead.
func (k DetectorKind) Ranked() bool {
	return k != ShiTomasi
}

// ParseDetectorKind resolves a detector name, ignoring case.
func ParseDetectorKind(s string) (DetectorKind, error) {
	k := DetectorKind(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range DetectorKinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedDetector, s)
}

// DescriptorKind selects a descriptor extractor.
type DescriptorKind string

const (
	DescBRISK DescriptorKind = "BRISK"
	DescBRIEF DescriptorKind = "BRIEF"
	DescORB   DescriptorKind = "ORB"
	DescFREAK DescriptorKind = "FREAK"
	DescAKAZE DescriptorKind = "AKAZE"
	DescSIFT  DescriptorKind = "SIFT"
)

// DescriptorKinds lists every supported descriptor in benchmark order.
var DescriptorKinds = []DescriptorKind{DescBRISK, DescBRIEF, DescORB, DescFREAK, DescAKAZE, DescSIFT}

// Type is the element type of the matrix the extractor produces.
func (k DescriptorKind) Type() types.DescriptorType {
	if k == DescSIFT {
		return types.Float
	}
	return types.Binary
}

// Norm is the distance family a brute-force matcher should use for this descriptor.
func (k DescriptorKind) Norm() DescriptorNorm {
	if k.Type() == types.Float {
		return NormHOG
	}
	return NormBinary
}

// ParseDescriptorKind resolves a descriptor name, ignoring case.
func ParseDescriptorKind(s string) (DescriptorKind, error) {
	k := DescriptorKind(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range DescriptorKinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedDescriptor, s)
}

// MatcherKind selects between exhaustive and approximate search.
type MatcherKind string

const (
	MatcherBruteForce MatcherKind = "MAT_BF"
	MatcherFLANN      MatcherKind = "MAT_FLANN"
)

func ParseMatcherKind(s string) (MatcherKind, error) {
	switch k := MatcherKind(strings.ToUpper(strings.TrimSpace(s))); k {
	case MatcherBruteForce, MatcherFLANN:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedMatcher, s)
}

// SelectorKind selects how candidates are turned into matches.
type SelectorKind string

const (
	SelectNearest SelectorKind = "SEL_NN"
	SelectKNN     SelectorKind = "SEL_KNN"
)

func ParseSelectorKind(s string) (SelectorKind, error) {
	switch k := SelectorKind(strings.ToUpper(strings.TrimSpace(s))); k {
	case SelectNearest, SelectKNN:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedSelector, s)
}

// DescriptorNorm picks the distance used by the brute-force matcher.
type DescriptorNorm string

const (
	NormBinary DescriptorNorm = "DES_BINARY" // Hamming
	NormHOG    DescriptorNorm = "DES_HOG"    // L2
)

func ParseDescriptorNorm(s string) (DescriptorNorm, error) {
	switch n := DescriptorNorm(strings.ToUpper(strings.TrimSpace(s))); n {
	case NormBinary, NormHOG:
		return n, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedNorm, s)
}

// CheckPairing rejects detector/descriptor combinations OpenCV cannot describe.
func CheckPairing(det DetectorKind, desc DescriptorKind) error {
	switch {
	case det == SIFT && desc == DescORB:
		// ORB's descriptor overflows on SIFT's octave encoding.
		return fmt.Errorf("%w: %s keypoints with %s descriptors", ErrIncompatiblePairing, det, desc)
	case desc == DescAKAZE && det != AKAZE:
		// The AKAZE extractor needs the class ids its own detector sets.
		return fmt.Errorf("%w: %s descriptors require AKAZE keypoints, got %s", ErrIncompatiblePairing, desc, det)
	}
	return nil
}
