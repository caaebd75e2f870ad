package vision

import (
	"fmt"
	"image"
	"os"

	"github.com/andresmejia3/keybench/internal/pipeline"
	"github.com/andresmejia3/keybench/internal/utils"
	"gocv.io/x/gocv"
)

// FileSource reads numbered frames from disk and converts them to grayscale.
type FileSource struct {
	Dir    string
	Prefix string
	Width  int // zero padding of the frame index
	Ext    string
}

// KITTISource points at the first camera of the 2011_09_26 KITTI drive.
func KITTISource(root string) FileSource {
	return FileSource{
		Dir:    root + "/KITTI/2011_09_26/image_00/data",
		Prefix: "000000",
		Width:  4,
		Ext:    ".png",
	}
}

// Path returns the file name of frame index.
func (s FileSource) Path(index int) string {
	return utils.FramePath(s.Dir, s.Prefix, index, s.Width, s.Ext)
}

func (s FileSource) Load(index int) (*image.Gray, error) {
	path := s.Path(index)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %w", pipeline.ErrImageLoad, err)
	}

	color := gocv.IMRead(path, gocv.IMReadColor)
	defer color.Close()
	if color.Empty() {
		return nil, fmt.Errorf("%w: %s is not a readable image", pipeline.ErrImageLoad, path)
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(color, &gray, gocv.ColorBGRToGray)

	img, err := matToGray(gray)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", pipeline.ErrImageLoad, path, err)
	}
	return img, nil
}
