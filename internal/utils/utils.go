package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// --- 1. Fatal Errors ---

// Die is the unified exit strategy for keybench.
// It prints a formatted error box and exits with status 1.
func Die(context string, err error) {
	ShowError(context, err)
	os.Exit(1)
}

// ShowError prints the error box without exiting, for commands that return errors.
func ShowError(context string, err error) {
	fmt.Fprint(os.Stderr, ErrorBox(context, err))
}

// ErrorBox formats the message printed by Die.
func ErrorBox(context string, err error) string {
	var b strings.Builder
	b.WriteString("\n---------------------------------------------------------\n")
	fmt.Fprintf(&b, "🚨 KEYBENCH ERROR: %s\n", context)
	if err != nil {
		fmt.Fprintf(&b, "DETAILS: %v\n", err)
	}
	b.WriteString("---------------------------------------------------------\n")
	return b.String()
}

// --- 2. Frame Files ---

// FramePath assembles dir/prefix + zero-padded index + ext, e.g.
// FramePath("images", "0000", 7, 6, ".png") is "images/0000000007.png"
// with width counting only the index digits.
func FramePath(dir, prefix string, index, width int, ext string) string {
	name := fmt.Sprintf("%s%0*d%s", prefix, width, index, ext)
	if dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}

// ScreenshotPath names the debug image written for a matched frame pair.
func ScreenshotPath(dir, pair string, prev, curr int) string {
	name := fmt.Sprintf("%s_%04d_%04d.png", strings.ReplaceAll(pair, "+", "_"), prev, curr)
	return filepath.Join(dir, name)
}

// EnsureDir creates dir (and parents) when it is non-empty.
func EnsureDir(dir string) error {
	if dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
