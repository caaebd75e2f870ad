package types

import "image"

// Keypoint is a salient image location reported by a detector.
type Keypoint struct {
	X, Y     float64
	Size     float64
	Angle    float64
	Response float64 // 0 for detectors that don't rank their output
	Octave   int
}

// Match is a correspondence between a source and a reference descriptor row.
type Match struct {
	SourceIndex int
	RefIndex    int
	Distance    float64
}

// DescriptorType is the element type of a descriptor matrix.
type DescriptorType int

const (
	// Binary descriptors are rows of bytes compared with Hamming distance.
	Binary DescriptorType = iota
	// Float descriptors are rows of float32 compared with L2 distance.
	Float
)

func (t DescriptorType) String() string {
	if t == Float {
		return "float"
	}
	return "binary"
}

// Descriptors is a row-major matrix with one row per keypoint.
// Only the slice matching Type is populated.
type Descriptors struct {
	Type   DescriptorType
	Rows   int
	Cols   int
	Bytes  []uint8
	Floats []float32
}

// Empty reports whether the matrix has no rows.
func (d *Descriptors) Empty() bool {
	return d == nil || d.Rows == 0
}

// ByteRow returns row i of a binary matrix.
func (d *Descriptors) ByteRow(i int) []uint8 {
	return d.Bytes[i*d.Cols : (i+1)*d.Cols]
}

// FloatRow returns row i of a float matrix.
func (d *Descriptors) FloatRow(i int) []float32 {
	return d.Floats[i*d.Cols : (i+1)*d.Cols]
}

// ConvertToFloat turns a binary matrix into a float matrix in place,
// one float per byte. Float matrices are left untouched.
func (d *Descriptors) ConvertToFloat() {
	if d.Type == Float {
		return
	}
	floats := make([]float32, len(d.Bytes))
	for i, b := range d.Bytes {
		floats[i] = float32(b)
	}
	d.Type = Float
	d.Floats = floats
	d.Bytes = nil
}

// Frame holds one loaded camera image and everything derived from it.
type Frame struct {
	Index       int
	Image       *image.Gray
	Keypoints   []Keypoint
	Descriptors Descriptors
	Matches     []Match
}
