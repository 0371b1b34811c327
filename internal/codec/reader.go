package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
)

var (
	// ErrTruncated is returned when the input ends before a value is complete.
	ErrTruncated = errors.New("truncated input")
	// ErrTrailingBytes is returned by DecodeStrict when bytes remain after the target is filled.
	ErrTrailingBytes = errors.New("trailing bytes")
)

// Reader is a cursor over a SCALE-encoded byte slice.
type Reader struct {
	buf []byte
	r   *bytes.Reader
	dec *scale.Decoder
}

// NewReader wraps data. The slice is not copied; ReadBytes returns sub-slices of it.
func NewReader(data []byte) *Reader {
	r := bytes.NewReader(data)
	return &Reader{
		buf: data,
		r:   r,
		dec: scale.NewDecoder(r),
	}
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int {
	return len(r.buf) - r.r.Len()
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return r.r.Len()
}

// ReadByte reads a single byte.
func (r *Reader) ReadByte() (byte, error) {
	b, err := r.r.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("%w: read byte at %d", ErrTruncated, r.Offset())
	}
	return b, nil
}

// ReadBytes advances the cursor by n bytes and returns them without copying.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative length %d", n)
	}
	off := r.Offset()
	if r.r.Len() < n {
		return nil, fmt.Errorf("%w: need %d bytes at %d, have %d", ErrTruncated, n, off, r.r.Len())
	}
	if _, err := r.r.Seek(int64(n), io.SeekCurrent); err != nil {
		return nil, fmt.Errorf("seek: %w", err)
	}
	return r.buf[off : off+n], nil
}

// Span returns buf[start:end] without copying. Bounds are clamped to the consumed input.
func (r *Reader) Span(start, end int) []byte {
	off := r.Offset()
	if end > off {
		end = off
	}
	if start < 0 {
		start = 0
	}
	if start > end {
		start = end
	}
	return r.buf[start:end]
}

// ReadCompact reads a SCALE compact unsigned integer.
func (r *Reader) ReadCompact() (uint64, error) {
	off := r.Offset()
	v, err := r.dec.DecodeUintCompact()
	if err != nil {
		return 0, fmt.Errorf("%w: compact at %d: %v", ErrTruncated, off, err)
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("compact at %d overflows uint64: %s", off, v.String())
	}
	return v.Uint64(), nil
}

// ReadLength reads a compact length prefix and checks it against the unread input.
func (r *Reader) ReadLength() (int, error) {
	off := r.Offset()
	n, err := r.ReadCompact()
	if err != nil {
		return 0, err
	}
	if n > uint64(r.r.Len()) {
		return 0, fmt.Errorf("%w: length %d at %d exceeds remaining %d", ErrTruncated, n, off, r.r.Len())
	}
	return int(n), nil
}

// Decode fills target using the reflective SCALE decoder.
func (r *Reader) Decode(target interface{}) error {
	off := r.Offset()
	if err := r.dec.Decode(target); err != nil {
		return fmt.Errorf("%w: decode %T at %d: %v", ErrTruncated, target, off, err)
	}
	return nil
}

// DecodeStrict decodes data into target and requires every byte to be consumed.
func DecodeStrict(data []byte, target interface{}) error {
	r := NewReader(data)
	if err := r.Decode(target); err != nil {
		return err
	}
	if r.Remaining() != 0 {
		return fmt.Errorf("%w: %d of %d bytes unconsumed by %T", ErrTrailingBytes, r.Remaining(), len(data), target)
	}
	return nil
}
