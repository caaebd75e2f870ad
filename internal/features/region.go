package features

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/andresmejia3/keybench/internal/types"
)

// Rect is an axis-aligned region in pixel coordinates.
type Rect struct {
	X, Y, W, H int
}

// VehicleRect frames the preceding vehicle in the KITTI sequence.
var VehicleRect = Rect{X: 535, Y: 180, W: 180, H: 150}

// Contains follows OpenCV's cv::Rect convention: the left and top edges are
// inside, the right and bottom edges are not.
func (r Rect) Contains(x, y float64) bool {
	return float64(r.X) <= x && x < float64(r.X+r.W) &&
		float64(r.Y) <= y && y < float64(r.Y+r.H)
}

func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

func (r Rect) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", r.X, r.Y, r.W, r.H)
}

// FilterRegion keeps the keypoints that fall inside rect, preserving order.
func FilterRegion(kps []types.Keypoint, rect Rect) []types.Keypoint {
	kept := make([]types.Keypoint, 0, len(kps))
	for _, kp := range kps {
		if rect.Contains(kp.X, kp.Y) {
			kept = append(kept, kp)
		}
	}
	return kept
}

// ParseRect reads a rectangle written as "x,y,w,h".
func ParseRect(s string) (Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Rect{}, fmt.Errorf("rectangle must be x,y,w,h, got %q", s)
	}
	var vals [4]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Rect{}, fmt.Errorf("invalid rectangle component %q: %w", p, err)
		}
		vals[i] = v
	}
	r := Rect{X: vals[0], Y: vals[1], W: vals[2], H: vals[3]}
	if r.Empty() {
		return Rect{}, fmt.Errorf("rectangle %q has no area", s)
	}
	return r, nil
}
