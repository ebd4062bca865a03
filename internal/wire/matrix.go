package wire

import (
	"io"

	"gonum.org/v1/gonum/mat"
)

// WriteMatrix writes m as rows, cols (int64) then row-major binary32
// values, matching the source's MatrixXf serialization template. A nil m
// is written as a 0x0 matrix.
func WriteMatrix(w io.Writer, m *mat.Dense) error {
	rows, cols := 0, 0
	if m != nil {
		rows, cols = m.Dims()
	}
	if err := WriteInt64(w, int64(rows)); err != nil {
		return err
	}
	if err := WriteInt64(w, int64(cols)); err != nil {
		return err
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if err := WriteFloat32(w, float32(m.At(i, j))); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReadMatrix reads a matrix written by WriteMatrix. A 0x0 matrix decodes
// to nil, so a round trip of a nil input returns nil rather than an
// empty *mat.Dense.
func ReadMatrix(r io.Reader) (*mat.Dense, error) {
	rows, err := ReadInt64(r)
	if err != nil {
		return nil, err
	}
	cols, err := ReadInt64(r)
	if err != nil {
		return nil, err
	}
	if rows == 0 || cols == 0 {
		for i := int64(0); i < rows*cols; i++ {
			if _, err := ReadFloat32(r); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}

	data := make([]float64, rows*cols)
	for i := range data {
		v, err := ReadFloat32(r)
		if err != nil {
			return nil, err
		}
		data[i] = float64(v)
	}
	return mat.NewDense(int(rows), int(cols), data), nil
}
