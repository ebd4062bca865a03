// Package wire implements the length-prefixed binary primitives spec.md
// §4.9's persistence format is built from: fixed-width ints and floats,
// length-prefixed sequences and strings, and matrices. internal/codec
// composes these into the tree/node/config encoding; wire itself knows
// nothing about tree or config, which keeps it free of the import cycle
// those two packages would otherwise form through codec.
package wire

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"

	"github.com/ngina/ktreego/internal/ktreeerr"
)

// WriteInt64 writes v as a fixed 8-byte native-endian integer, matching
// the source's `size_t`-width length prefixes and index fields.
func WriteInt64(w io.Writer, v int64) error {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], uint64(v))
	if _, err := w.Write(buf[:]); err != nil {
		return errors.Wrap(ktreeerr.ErrIO, err.Error())
	}
	return nil
}

// ReadInt64 reads a fixed 8-byte native-endian integer.
func ReadInt64(r io.Reader) (int64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, errors.Wrap(ktreeerr.ErrCorruptIndex, err.Error())
	}
	return int64(binary.NativeEndian.Uint64(buf[:])), nil
}

// WriteFloat32 writes v as a 4-byte native-endian IEEE-754 binary32.
func WriteFloat32(w io.Writer, v float32) error {
	var buf [4]byte
	binary.NativeEndian.PutUint32(buf[:], math.Float32bits(v))
	if _, err := w.Write(buf[:]); err != nil {
		return errors.Wrap(ktreeerr.ErrIO, err.Error())
	}
	return nil
}

// ReadFloat32 reads a 4-byte native-endian IEEE-754 binary32.
func ReadFloat32(r io.Reader) (float32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, errors.Wrap(ktreeerr.ErrCorruptIndex, err.Error())
	}
	return math.Float32frombits(binary.NativeEndian.Uint32(buf[:])), nil
}

// WriteByte writes a single tag/presence byte ('L'/'I', 'Y'/'N').
func WriteByte(w io.Writer, b byte) error {
	if _, err := w.Write([]byte{b}); err != nil {
		return errors.Wrap(ktreeerr.ErrIO, err.Error())
	}
	return nil
}

// ReadByte reads a single tag/presence byte.
func ReadByte(r io.Reader) (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, errors.Wrap(ktreeerr.ErrCorruptIndex, err.Error())
	}
	return buf[0], nil
}

// WriteString writes a length-prefixed byte string.
func WriteString(w io.Writer, s string) error {
	if err := WriteInt64(w, int64(len(s))); err != nil {
		return err
	}
	if _, err := io.WriteString(w, s); err != nil {
		return errors.Wrap(ktreeerr.ErrIO, err.Error())
	}
	return nil
}

// ReadString reads a length-prefixed byte string.
func ReadString(r io.Reader) (string, error) {
	n, err := ReadInt64(r)
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", errors.Wrapf(ktreeerr.ErrCorruptIndex, "negative string length %d", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", errors.Wrap(ktreeerr.ErrCorruptIndex, err.Error())
	}
	return string(buf), nil
}

// WriteInts writes a length-prefixed sequence of int64-encoded ints.
func WriteInts(w io.Writer, vals []int) error {
	if err := WriteInt64(w, int64(len(vals))); err != nil {
		return err
	}
	for _, v := range vals {
		if err := WriteInt64(w, int64(v)); err != nil {
			return err
		}
	}
	return nil
}

// ReadInts reads a length-prefixed sequence of int64-encoded ints.
func ReadInts(r io.Reader) ([]int, error) {
	n, err := ReadInt64(r)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, errors.Wrapf(ktreeerr.ErrCorruptIndex, "negative sequence length %d", n)
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]int, n)
	for i := range out {
		v, err := ReadInt64(r)
		if err != nil {
			return nil, err
		}
		out[i] = int(v)
	}
	return out, nil
}

// WriteFloat32s writes a length-prefixed sequence of float64 values,
// narrowed to binary32 on the wire (the source's std::vector<float>).
func WriteFloat32s(w io.Writer, vals []float64) error {
	if err := WriteInt64(w, int64(len(vals))); err != nil {
		return err
	}
	for _, v := range vals {
		if err := WriteFloat32(w, float32(v)); err != nil {
			return err
		}
	}
	return nil
}

// ReadFloat32s reads a length-prefixed sequence of binary32 values,
// widened back to float64 for in-memory use.
func ReadFloat32s(r io.Reader) ([]float64, error) {
	n, err := ReadInt64(r)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, errors.Wrapf(ktreeerr.ErrCorruptIndex, "negative sequence length %d", n)
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]float64, n)
	for i := range out {
		v, err := ReadFloat32(r)
		if err != nil {
			return nil, err
		}
		out[i] = float64(v)
	}
	return out, nil
}
