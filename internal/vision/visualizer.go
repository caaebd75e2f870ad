package vision

import (
	"fmt"
	"image/color"
	"log/slog"

	"github.com/andresmejia3/keybench/internal/pipeline"
	"github.com/andresmejia3/keybench/internal/types"
	"github.com/andresmejia3/keybench/internal/utils"
	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
)

// Visualizer draws the matches between two consecutive frames side by side.
// It can show them in a window, write them to a screenshot directory, or both.
type Visualizer struct {
	Window        bool   // block on a key press in an OpenCV window
	ScreenshotDir string // empty disables screenshots
	// ScreenshotWidth scales screenshots down to this width, keeping the
	// aspect ratio. Zero keeps the drawn size.
	ScreenshotWidth int
	Logger          *slog.Logger
}

func (v *Visualizer) Show(pair pipeline.ConfigPair, prev, curr *types.Frame) error {
	canvas, err := v.Render(prev, curr)
	if err != nil {
		return err
	}
	defer canvas.Close()

	if v.ScreenshotDir != "" {
		if err := utils.EnsureDir(v.ScreenshotDir); err != nil {
			return err
		}
		path := utils.ScreenshotPath(v.ScreenshotDir, pair.String(), prev.Index, curr.Index)
		if err := v.save(canvas, path); err != nil {
			return err
		}
		if v.Logger != nil {
			v.Logger.Debug("screenshot written", "path", path)
		}
	}

	if v.Window {
		win := gocv.NewWindow("Matching keypoints between two camera images: " + pair.String())
		defer win.Close()
		win.IMShow(canvas)
		win.WaitKey(0)
	}
	return nil
}

func (v *Visualizer) save(canvas gocv.Mat, path string) error {
	img, err := canvas.ToImage()
	if err != nil {
		return fmt.Errorf("failed to convert screenshot: %w", err)
	}
	if v.ScreenshotWidth > 0 && v.ScreenshotWidth < img.Bounds().Dx() {
		img = imaging.Resize(img, v.ScreenshotWidth, 0, imaging.Lanczos)
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to write screenshot %s: %w", path, err)
	}
	return nil
}

// Render draws prev on the left and curr on the right with rich keypoints
// and a line per match. The caller closes the returned Mat.
func (v *Visualizer) Render(prev, curr *types.Frame) (gocv.Mat, error) {
	left, err := grayToMat(prev.Image)
	if err != nil {
		return gocv.Mat{}, err
	}
	defer left.Close()
	right, err := grayToMat(curr.Image)
	if err != nil {
		return gocv.Mat{}, err
	}
	defer right.Close()

	out := gocv.NewMat()
	gocv.DrawMatches(
		left, toKeyPoints(prev.Keypoints),
		right, toKeyPoints(curr.Keypoints),
		toDMatches(curr.Matches),
		&out,
		color.RGBA{G: 255, A: 255},
		color.RGBA{R: 255, B: 255, A: 255},
		nil,
		gocv.DrawRichKeyPoints,
	)
	if out.Empty() {
		out.Close()
		return gocv.Mat{}, fmt.Errorf("failed to draw matches for frames %d and %d", prev.Index, curr.Index)
	}
	return out, nil
}
