package utils

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFramePath(t *testing.T) {
	tests := []struct {
		name   string
		dir    string
		prefix string
		index  int
		width  int
		ext    string
		want   string
	}{
		{"kitti layout", "images/KITTI/2011_09_26/image_00/data", "000000", 7, 4, ".png", "images/KITTI/2011_09_26/image_00/data/0000000007.png"},
		{"no dir", "", "frame_", 12, 3, ".jpg", "frame_012.jpg"},
		{"index wider than pad", "data", "", 12345, 4, ".png", "data/12345.png"},
		{"zero width", "data", "img", 3, 0, ".png", "data/img3.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FramePath(tt.dir, tt.prefix, tt.index, tt.width, tt.ext); got != filepath.FromSlash(tt.want) {
				t.Errorf("FramePath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScreenshotPath(t *testing.T) {
	got := ScreenshotPath("debug", "FAST+BRISK", 3, 4)
	if got != filepath.Join("debug", "FAST_BRISK_0003_0004.png") {
		t.Errorf("ScreenshotPath() = %q", got)
	}
}

func TestErrorBox(t *testing.T) {
	box := ErrorBox("Failed to load frames", errors.New("no such file"))
	if !strings.Contains(box, "KEYBENCH ERROR: Failed to load frames") {
		t.Errorf("missing context in %q", box)
	}
	if !strings.Contains(box, "DETAILS: no such file") {
		t.Errorf("missing details in %q", box)
	}
	if strings.Contains(ErrorBox("plain", nil), "DETAILS") {
		t.Error("expected no details line for nil error")
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir failed: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("expected %s to exist: %v", dir, err)
	}
	if err := EnsureDir(""); err != nil {
		t.Errorf("empty dir should be a no-op: %v", err)
	}
}
