// Package vector implements VectorContainer: an in-memory batch of
// fixed-dimensionality float32 points, with streaming load/store against
// the raw concatenated-float file format spec.md §3/§4.2 defines.
//
// The on-disk layout is a bare concatenation of D*N IEEE-754 binary32
// floats in the host's native byte order -- no header. File size divided
// by (D*4) yields the point count.
package vector

import (
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/ngina/ktreego/internal/ktreeerr"
)

// BatchSize is the number of points streamed per read during the
// summarizer's passes and during split's partition pass (spec.md §4.4,
// §4.5: "batch = 1000").
const BatchSize = 1000

// bytesPerFloat32 is the on-disk width of one float32 component.
const bytesPerFloat32 = 4

// Container is an ordered, owned sequence of D-dimensional vectors.
type Container struct {
	dim    int
	points [][]float32
}

// NewContainer returns an empty container for D-dimensional points.
func NewContainer(dim int) *Container {
	return &Container{dim: dim}
}

// Dim returns the configured vector dimensionality.
func (c *Container) Dim() int { return c.dim }

// Size returns the number of points currently held.
func (c *Container) Size() int { return len(c.points) }

// Append adds a point to the end of the container. point must have length
// Dim().
func (c *Container) Append(point []float32) {
	c.points = append(c.points, point)
}

// At returns the point at index, or nil if it was removed.
func (c *Container) At(index int) []float32 {
	if index < 0 || index >= len(c.points) {
		return nil
	}
	return c.points[index]
}

// Remove nulls the slot at index rather than shifting, preserving index
// stability for every other point.
func (c *Container) Remove(index int) []float32 {
	if index < 0 || index >= len(c.points) {
		return nil
	}
	removed := c.points[index]
	c.points[index] = nil
	return removed
}

// ToMatrix returns a dense row-major (n, D) view of the container's points.
func (c *Container) ToMatrix() *mat.Dense {
	n := len(c.points)
	if n == 0 {
		return mat.NewDense(0, c.dim, nil)
	}
	data := make([]float64, 0, n*c.dim)
	for _, p := range c.points {
		for _, v := range p {
			data = append(data, float64(v))
		}
	}
	return mat.NewDense(n, c.dim, data)
}

// LoadFromFile opens path for binary read. If takeAll, n is derived from
// file size / (D*4); otherwise the file must be at least n*D*4 bytes, and
// exactly n points are read.
func LoadFromFile(path string, dim int, takeAll bool, n int) (*Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(ktreeerr.ErrIO, "opening %s: %v", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(ktreeerr.ErrIO, "stating %s: %v", path, err)
	}

	pointBytes := int64(dim) * bytesPerFloat32
	if takeAll {
		if pointBytes == 0 {
			return nil, errors.Wrapf(ktreeerr.ErrIO, "invalid dimensions for %s", path)
		}
		n = int(info.Size() / pointBytes)
	} else {
		expected := int64(n) * pointBytes
		if info.Size() < expected {
			return nil, errors.Wrapf(ktreeerr.ErrIO, "%s: expected at least %d bytes for %d points, got %d", path, expected, n, info.Size())
		}
	}

	c := NewContainer(dim)
	raw := make([]byte, int(pointBytes))
	for i := 0; i < n; i++ {
		if _, err := io.ReadFull(f, raw); err != nil {
			return nil, errors.Wrapf(ktreeerr.ErrIO, "reading point %d from %s: %v", i, path, err)
		}
		point := make([]float32, dim)
		decodeFloats(raw, point)
		c.Append(point)
	}
	return c, nil
}

// StreamFile reads n points from path in fixed BatchSize batches, invoking
// fn with each batch of raw float32 rows (row-major, len(batch) == to_read,
// each row of length dim). This is the streaming primitive the summarizer's
// two passes and the builder's partition pass use so that indexing never
// materializes an entire dataset file in memory at once.
func StreamFile(path string, dim, n int, fn func(batch [][]float32) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(ktreeerr.ErrIO, "opening %s: %v", path, err)
	}
	defer f.Close()

	raw := make([]byte, BatchSize*dim*bytesPerFloat32)
	read := 0
	for read < n {
		toRead := BatchSize
		if remaining := n - read; remaining < toRead {
			toRead = remaining
		}
		chunk := raw[:toRead*dim*bytesPerFloat32]
		if _, err := io.ReadFull(f, chunk); err != nil {
			return errors.Wrapf(ktreeerr.ErrIO, "reading batch at offset %d from %s: %v", read, path, err)
		}
		batch := make([][]float32, toRead)
		for i := 0; i < toRead; i++ {
			row := make([]float32, dim)
			decodeFloats(chunk[i*dim*bytesPerFloat32:], row)
			batch[i] = row
		}
		if err := fn(batch); err != nil {
			return err
		}
		read += toRead
	}
	return nil
}

// SaveToFile writes the raw concatenation of the container's points to
// indexDir/relativeName.
func (c *Container) SaveToFile(indexDir, relativeName string) error {
	path := indexDir + string(os.PathSeparator) + relativeName
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(ktreeerr.ErrIO, "creating %s: %v", path, err)
	}
	defer f.Close()

	raw := make([]byte, int(bytesPerFloat32)*c.dim)
	for _, p := range c.points {
		encodeFloats(p, raw)
		if _, err := f.Write(raw); err != nil {
			return errors.Wrapf(ktreeerr.ErrIO, "writing %s: %v", path, err)
		}
	}
	return nil
}

// EncodePoint encodes one point into dst, which must be len(point)*4 bytes.
// Exported so the tree builder can stream individual points straight to a
// child file without materializing a full Container.
func EncodePoint(point []float32, dst []byte) {
	encodeFloats(point, dst)
}

func encodeFloats(src []float32, dst []byte) {
	for i, v := range src {
		binary.NativeEndian.PutUint32(dst[i*bytesPerFloat32:], math.Float32bits(v))
	}
}

func decodeFloats(src []byte, dst []float32) {
	for i := range dst {
		dst[i] = math.Float32frombits(binary.NativeEndian.Uint32(src[i*bytesPerFloat32:]))
	}
}
