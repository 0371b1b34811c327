package codec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderCompactAndBytes(t *testing.T) {
	// compact(3) single-byte mode, then 3 bytes, then compact(300) two-byte mode.
	data := []byte{0x0c, 0xaa, 0xbb, 0xcc, 0xb1, 0x04}
	r := NewReader(data)

	n, err := r.ReadLength()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := r.ReadBytes(n)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xaa, 0xbb, 0xcc}, got)
	assert.Equal(t, 4, r.Offset())

	v, err := r.ReadCompact()
	require.NoError(t, err)
	assert.Equal(t, uint64(300), v)
	assert.Equal(t, 0, r.Remaining())
}

func TestReaderReadBytesSharesBuffer(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	r := NewReader(data)

	_, err := r.ReadBytes(1)
	require.NoError(t, err)
	got, err := r.ReadBytes(2)
	require.NoError(t, err)

	data[1] = 9
	assert.Equal(t, byte(9), got[0])
}

func TestReaderTruncated(t *testing.T) {
	r := NewReader([]byte{1, 2})
	_, err := r.ReadBytes(3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTruncated))
	assert.Equal(t, 0, r.Offset(), "failed read must not advance")

	_, err = NewReader(nil).ReadByte()
	assert.True(t, errors.Is(err, ErrTruncated))

	_, err = NewReader(nil).ReadCompact()
	assert.True(t, errors.Is(err, ErrTruncated))

	// compact(5) as a length with only one byte behind it.
	_, err = NewReader([]byte{0x14, 0x00}).ReadLength()
	assert.True(t, errors.Is(err, ErrTruncated))
}

type pair struct {
	ID    uint32
	Owner [4]byte
}

func TestDecodeStrict(t *testing.T) {
	var out pair
	err := DecodeStrict([]byte{7, 0, 0, 0, 1, 2, 3, 4}, &out)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), out.ID)
	assert.Equal(t, [4]byte{1, 2, 3, 4}, out.Owner)

	err = DecodeStrict([]byte{7, 0, 0, 0, 1, 2, 3, 4, 5}, &pair{})
	assert.True(t, errors.Is(err, ErrTrailingBytes))

	err = DecodeStrict([]byte{7, 0, 0, 0, 1, 2}, &pair{})
	assert.True(t, errors.Is(err, ErrTruncated))
}

func TestDecodeHex(t *testing.T) {
	got, err := DecodeHex("0x0102")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, got)

	got, err = DecodeHex(" 0a0b\n")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0a, 0x0b}, got)

	for _, input := range []string{"", "0xzz", "0x123", "hello"} {
		_, err := DecodeHex(input)
		assert.Truef(t, errors.Is(err, ErrMalformedHex), "input %q", input)
	}

	assert.Equal(t, "0x0102", EncodeHex([]byte{1, 2}))
}
