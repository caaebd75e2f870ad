package vision

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/draw"
	"math"

	"github.com/andresmejia3/keybench/internal/types"
	"gocv.io/x/gocv"
)

func grayToMat(img *image.Gray) (gocv.Mat, error) {
	if img == nil {
		return gocv.Mat{}, fmt.Errorf("nil image")
	}
	return gocv.ImageGrayToMatGray(img)
}

// matToGray converts an 8-bit single channel Mat to an image.
func matToGray(m gocv.Mat) (*image.Gray, error) {
	img, err := m.ToImage()
	if err != nil {
		return nil, err
	}
	if g, ok := img.(*image.Gray); ok {
		return g, nil
	}
	g := image.NewGray(img.Bounds())
	draw.Draw(g, g.Bounds(), img, img.Bounds().Min, draw.Src)
	return g, nil
}

func toKeyPoints(kps []types.Keypoint) []gocv.KeyPoint {
	out := make([]gocv.KeyPoint, len(kps))
	for i, kp := range kps {
		out[i] = gocv.KeyPoint{X: kp.X, Y: kp.Y, Size: kp.Size, Angle: kp.Angle, Response: kp.Response, Octave: kp.Octave, ClassID: -1}
	}
	return out
}

func fromKeyPoints(kps []gocv.KeyPoint) []types.Keypoint {
	out := make([]types.Keypoint, len(kps))
	for i, kp := range kps {
		out[i] = types.Keypoint{X: kp.X, Y: kp.Y, Size: kp.Size, Angle: kp.Angle, Response: kp.Response, Octave: kp.Octave}
	}
	return out
}

// fromMat copies a CV_8U or CV_32F descriptor matrix out of OpenCV memory.
func fromMat(m gocv.Mat) (types.Descriptors, error) {
	if m.Empty() {
		return types.Descriptors{}, nil
	}
	rows, cols := m.Rows(), m.Cols()
	switch m.Type() {
	case gocv.MatTypeCV8U:
		return types.Descriptors{Type: types.Binary, Rows: rows, Cols: cols, Bytes: m.ToBytes()}, nil
	case gocv.MatTypeCV32F:
		data, err := m.DataPtrFloat32()
		if err != nil {
			return types.Descriptors{}, err
		}
		floats := make([]float32, len(data))
		copy(floats, data)
		return types.Descriptors{Type: types.Float, Rows: rows, Cols: cols, Floats: floats}, nil
	default:
		return types.Descriptors{}, fmt.Errorf("unsupported descriptor mat type %v", m.Type())
	}
}

// toMat builds an OpenCV-owned copy of d.
func toMat(d types.Descriptors) (gocv.Mat, error) {
	var (
		data []byte
		typ  gocv.MatType
	)
	switch d.Type {
	case types.Float:
		data = make([]byte, 4*len(d.Floats))
		for i, f := range d.Floats {
			binary.LittleEndian.PutUint32(data[4*i:], math.Float32bits(f))
		}
		typ = gocv.MatTypeCV32F
	default:
		data = d.Bytes
		typ = gocv.MatTypeCV8U
	}
	m, err := gocv.NewMatFromBytes(d.Rows, d.Cols, typ, data)
	if err != nil {
		return gocv.Mat{}, err
	}
	defer m.Close()
	return m.Clone(), nil
}

func fromDMatches(ms []gocv.DMatch) []types.Match {
	out := make([]types.Match, len(ms))
	for i, m := range ms {
		out[i] = types.Match{SourceIndex: m.QueryIdx, RefIndex: m.TrainIdx, Distance: m.Distance}
	}
	return out
}

func toDMatches(ms []types.Match) []gocv.DMatch {
	out := make([]gocv.DMatch, len(ms))
	for i, m := range ms {
		out[i] = gocv.DMatch{QueryIdx: m.SourceIndex, TrainIdx: m.RefIndex, Distance: m.Distance}
	}
	return out
}
