package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestInt64RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteInt64(&buf, -42))
	got, err := ReadInt64(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(-42), got)
}

func TestStringRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteString(&buf, "node_1_data_ab.dat"))
	got, err := ReadString(&buf)
	require.NoError(t, err)
	assert.Equal(t, "node_1_data_ab.dat", got)
}

func TestIntsRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	vals := []int{2, 4, 4}
	require.NoError(t, WriteInts(&buf, vals))
	got, err := ReadInts(&buf)
	require.NoError(t, err)
	assert.Equal(t, vals, got)
}

func TestFloat32sRoundTripNarrowsPrecision(t *testing.T) {
	var buf bytes.Buffer
	vals := []float64{1.5, -2.25, 0}
	require.NoError(t, WriteFloat32s(&buf, vals))
	got, err := ReadFloat32s(&buf)
	require.NoError(t, err)
	assert.Equal(t, vals, got)
}

func TestMatrixRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	m := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, WriteMatrix(&buf, m))
	got, err := ReadMatrix(&buf)
	require.NoError(t, err)
	assert.True(t, mat.Equal(m, got))
}

func TestMatrixRoundTripNil(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMatrix(&buf, nil))
	got, err := ReadMatrix(&buf)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReadStringTruncatedErrors(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteInt64(&buf, 10))
	buf.WriteString("short")
	_, err := ReadString(&buf)
	assert.Error(t, err)
}
