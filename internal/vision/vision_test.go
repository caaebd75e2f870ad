package vision

import (
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/andresmejia3/keybench/internal/features"
	"github.com/andresmejia3/keybench/internal/pipeline"
	"github.com/andresmejia3/keybench/internal/types"
)

// checkerboard returns a w x h image of alternating cell x cell squares.
func checkerboard(w, h, cell int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/cell+y/cell)%2 == 0 {
				img.Pix[y*img.Stride+x] = 230
			} else {
				img.Pix[y*img.Stride+x] = 20
			}
		}
	}
	return img
}

// squares paints bright size x size blocks every step pixels, leaving a
// margin so border-sensitive detectors see every corner.
func squares(w, h, size, step, margin int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 30
	}
	for y0 := margin; y0+size <= h-margin; y0 += step {
		for x0 := margin; x0+size <= w-margin; x0 += step {
			for y := y0; y < y0+size; y++ {
				for x := x0; x < x0+size; x++ {
					img.Pix[y*img.Stride+x] = 220
				}
			}
		}
	}
	return img
}

func TestDescriptorMatConversion(t *testing.T) {
	tests := []struct {
		name string
		in   types.Descriptors
	}{
		{"binary", types.Descriptors{Type: types.Binary, Rows: 2, Cols: 3, Bytes: []uint8{1, 2, 3, 4, 5, 255}}},
		{"float", types.Descriptors{Type: types.Float, Rows: 2, Cols: 2, Floats: []float32{0.5, -1, 3.25, 1e6}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := toMat(tt.in)
			if err != nil {
				t.Fatalf("toMat failed: %v", err)
			}
			defer m.Close()
			if m.Rows() != tt.in.Rows || m.Cols() != tt.in.Cols {
				t.Fatalf("unexpected shape %dx%d", m.Rows(), m.Cols())
			}
			out, err := fromMat(m)
			if err != nil {
				t.Fatalf("fromMat failed: %v", err)
			}
			if out.Type != tt.in.Type || out.Rows != tt.in.Rows || out.Cols != tt.in.Cols {
				t.Errorf("header mismatch: got %+v", out)
			}
			for i := range tt.in.Bytes {
				if out.Bytes[i] != tt.in.Bytes[i] {
					t.Errorf("byte %d: got %d, want %d", i, out.Bytes[i], tt.in.Bytes[i])
				}
			}
			for i := range tt.in.Floats {
				if out.Floats[i] != tt.in.Floats[i] {
					t.Errorf("float %d: got %f, want %f", i, out.Floats[i], tt.in.Floats[i])
				}
			}
		})
	}
}

func TestToolkitRejectsUnknownKinds(t *testing.T) {
	tk := NewToolkit()
	if _, err := tk.NewDetector("SURF"); !errors.Is(err, features.ErrUnsupportedDetector) {
		t.Errorf("expected ErrUnsupportedDetector, got %v", err)
	}
	if _, err := tk.NewExtractor("LATCH"); !errors.Is(err, features.ErrUnsupportedDescriptor) {
		t.Errorf("expected ErrUnsupportedDescriptor, got %v", err)
	}
	if _, err := tk.NewMatcher("MAT_KD", features.NormBinary); !errors.Is(err, features.ErrUnsupportedMatcher) {
		t.Errorf("expected ErrUnsupportedMatcher, got %v", err)
	}
	if _, err := tk.NewMatcher(features.MatcherBruteForce, "DES_L1"); !errors.Is(err, features.ErrUnsupportedNorm) {
		t.Errorf("expected ErrUnsupportedNorm, got %v", err)
	}
}

func TestDetectors(t *testing.T) {
	img := squares(240, 200, 14, 32, 40)
	tk := NewToolkit()

	for _, kind := range []features.DetectorKind{features.ShiTomasi, features.FAST, features.ORB} {
		t.Run(string(kind), func(t *testing.T) {
			det, err := features.Detect(tk, img, kind, nil)
			if err != nil {
				t.Fatalf("Detect failed: %v", err)
			}
			if len(det.Keypoints) == 0 {
				t.Fatal("expected keypoints on the square corners")
			}
			b := img.Bounds()
			for _, kp := range det.Keypoints {
				if kp.X < 0 || kp.Y < 0 || kp.X >= float64(b.Dx()) || kp.Y >= float64(b.Dy()) {
					t.Errorf("keypoint outside image: %+v", kp)
				}
			}
		})
	}
}

func TestShiTomasiMaxCorners(t *testing.T) {
	tests := []struct {
		rows, cols, want int
	}{
		{375, 1242, 375 * 1242 / 4},
		{200, 240, 12000},
		{2, 2, 1},
	}
	for _, tt := range tests {
		if got := shiTomasiMaxCorners(tt.rows, tt.cols); got != tt.want {
			t.Errorf("shiTomasiMaxCorners(%d, %d) = %d, want %d", tt.rows, tt.cols, got, tt.want)
		}
	}
	if shiTomasiMinDistance() != shiTomasiBlockSize {
		t.Errorf("min distance %v, want the block size without overlap", shiTomasiMinDistance())
	}
}

func TestShiTomasiKeypoints(t *testing.T) {
	// 32x32 blocks of 6px with 6px gaps give 4096 square corners.
	img := squares(400, 400, 6, 12, 10)
	det, err := features.Detect(NewToolkit(), img, features.ShiTomasi, nil)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(det.Keypoints) <= 1000 {
		t.Fatalf("got %d corners on a dense texture, want more than 1000", len(det.Keypoints))
	}
	for _, kp := range det.Keypoints {
		if kp.Size != shiTomasiBlockSize || kp.Response != 0 || kp.Angle != -1 {
			t.Fatalf("unexpected Shi-Tomasi keypoint %+v", kp)
		}
	}
}

func TestDescribeAndMatchSameImage(t *testing.T) {
	img := squares(240, 200, 14, 32, 40)
	tk := NewToolkit()

	det, err := features.Detect(tk, img, features.ORB, nil)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	desc, err := features.Describe(tk, img, det.Keypoints, features.DescORB, nil)
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if desc.Descriptors.Rows != len(desc.Keypoints) {
		t.Fatalf("rows %d do not line up with %d keypoints", desc.Descriptors.Rows, len(desc.Keypoints))
	}
	if desc.Descriptors.Type != types.Binary || desc.Descriptors.Cols != 32 {
		t.Fatalf("unexpected ORB matrix %s x%d", desc.Descriptors.Type, desc.Descriptors.Cols)
	}

	src, ref := desc.Descriptors, desc.Descriptors
	opts := features.MatchOptions{Matcher: features.MatcherBruteForce, Selector: features.SelectNearest, Norm: features.NormBinary}
	res, err := features.MatchDescriptors(tk, &src, &ref, opts, nil, nil)
	if err != nil {
		t.Fatalf("MatchDescriptors failed: %v", err)
	}
	if len(res.Matches) != src.Rows {
		t.Fatalf("expected one match per row, got %d for %d rows", len(res.Matches), src.Rows)
	}
	for _, m := range res.Matches {
		if m.Distance != 0 {
			t.Errorf("matching an image against itself should give zero distance, got %+v", m)
		}
	}

	flannSrc, flannRef := desc.Descriptors, desc.Descriptors
	opts.Matcher = features.MatcherFLANN
	res, err = features.MatchDescriptors(tk, &flannSrc, &flannRef, opts, nil, nil)
	if err != nil {
		t.Fatalf("FLANN MatchDescriptors failed: %v", err)
	}
	if len(res.Matches) != src.Rows {
		t.Errorf("expected one FLANN match per row, got %d", len(res.Matches))
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	src := FileSource{Dir: dir, Prefix: "000000", Width: 4, Ext: ".png"}

	f, err := os.Create(src.Path(3))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, checkerboard(64, 48, 8)); err != nil {
		t.Fatal(err)
	}
	f.Close()

	img, err := src.Load(3)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Errorf("unexpected bounds %v", img.Bounds())
	}
	if img.GrayAt(0, 0).Y != 230 || img.GrayAt(8, 0).Y != 20 {
		t.Errorf("unexpected pixels %d %d", img.GrayAt(0, 0).Y, img.GrayAt(8, 0).Y)
	}

	if _, err := src.Load(4); !errors.Is(err, pipeline.ErrImageLoad) {
		t.Errorf("expected ErrImageLoad for a missing frame, got %v", err)
	}

	if err := os.WriteFile(src.Path(5), []byte("not a png"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := src.Load(5); !errors.Is(err, pipeline.ErrImageLoad) {
		t.Errorf("expected ErrImageLoad for a corrupt frame, got %v", err)
	}
}

func TestKITTISourcePath(t *testing.T) {
	got := KITTISource("../images").Path(9)
	want := filepath.FromSlash("../images/KITTI/2011_09_26/image_00/data/0000000009.png")
	if got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
}

func TestVisualizerWritesScreenshot(t *testing.T) {
	dir := t.TempDir()
	v := &Visualizer{ScreenshotDir: dir}
	prev := &types.Frame{
		Index:     0,
		Image:     checkerboard(64, 48, 8),
		Keypoints: []types.Keypoint{{X: 8, Y: 8, Size: 7}},
	}
	curr := &types.Frame{
		Index:     1,
		Image:     checkerboard(64, 48, 8),
		Keypoints: []types.Keypoint{{X: 9, Y: 8, Size: 7}},
		Matches:   []types.Match{{SourceIndex: 0, RefIndex: 0, Distance: 3}},
	}

	pair := pipeline.ConfigPair{Detector: features.FAST, Descriptor: features.DescBRISK}
	if err := v.Show(pair, prev, curr); err != nil {
		t.Fatalf("Show failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "FAST_BRISK_0000_0001.png")); err != nil {
		t.Errorf("expected screenshot: %v", err)
	}

	v.ScreenshotWidth = 64
	if err := v.Show(pair, prev, curr); err != nil {
		t.Fatalf("Show failed: %v", err)
	}
	f, err := os.Open(filepath.Join(dir, "FAST_BRISK_0000_0001.png"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("screenshot is not a png: %v", err)
	}
	if cfg.Width != 64 || cfg.Height != 24 {
		t.Errorf("scaled screenshot is %dx%d, want 64x24", cfg.Width, cfg.Height)
	}
}
