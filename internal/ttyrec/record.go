// Package ttyrec decodes and encodes the ttyrec wire format: a 12-byte
// fixed header (seconds, microseconds, length, all little-endian uint32)
// followed by exactly length bytes of opaque terminal payload.
package ttyrec

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/sergeknystautas/ttyplay/internal/ttytime"
)

// HeaderSize is the on-disk size of a record header: three little-endian
// uint32 fields (seconds, microseconds, length).
const HeaderSize = 12

// MaxPayload is the largest payload this codec will accept. The original
// player hard-codes this as a "max record length" buffer size; records
// that declare a larger length are treated as corrupt rather than read.
const MaxPayload = 8192

// ClearScreenMarker is the literal byte sequence that marks a navigable
// clear-screen point: ESC [ 2 J.
var ClearScreenMarker = []byte{0x1b, 0x5b, 0x32, 0x4a}

// ErrPayloadTooLarge is returned by ReadNext when a header declares a
// length exceeding MaxPayload.
var ErrPayloadTooLarge = errors.New("ttyrec: record payload exceeds maximum supported size")

// ErrShortRead is returned by ReadNext when a record's payload is shorter
// on disk than its header declares: a truncated/corrupt recording.
var ErrShortRead = errors.New("ttyrec: short read, recording is truncated or corrupt")

// Record is one decoded ttyrec frame.
type Record struct {
	Timestamp ttytime.Value
	Payload   []byte
}

// Reader decodes records from an underlying byte stream. It is not safe
// for concurrent use.
type Reader struct {
	r *bufio.Reader
}

// Buffered returns the number of bytes already read from the underlying
// stream but not yet consumed by ReadNext. Callers that need the true
// stream offset of the next unread byte (e.g. to rewind a seekable
// stream to a record boundary) must subtract this from the underlying
// stream's current position, since bufio reads ahead of what ReadNext
// has actually decoded.
func (d *Reader) Buffered() int {
	return d.r.Buffered()
}

// NewReader wraps r for record-at-a-time decoding.
func NewReader(r io.Reader) *Reader {
	if br, ok := r.(*bufio.Reader); ok {
		return &Reader{r: br}
	}
	return &Reader{r: bufio.NewReaderSize(r, MaxPayload+HeaderSize)}
}

// ReadNext decodes the next record. It returns io.EOF (unwrapped) when
// fewer than HeaderSize bytes remain, matching the original format's lack
// of any trailer or end marker: EOF at a header boundary is the only
// well-formed way to end a file.
func (d *Reader) ReadNext() (Record, error) {
	// Peek rather than read, so a trailing partial header is left
	// unconsumed when it is reported as end of stream.
	raw, err := d.r.Peek(HeaderSize)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("%w: %v", ErrShortRead, err)
	}
	var hdr [HeaderSize]byte
	copy(hdr[:], raw)
	d.r.Discard(HeaderSize)

	sec := binary.LittleEndian.Uint32(hdr[0:4])
	usec := binary.LittleEndian.Uint32(hdr[4:8])
	length := binary.LittleEndian.Uint32(hdr[8:12])

	if length > MaxPayload {
		return Record{}, fmt.Errorf("%w: declared length %d exceeds %d", ErrPayloadTooLarge, length, MaxPayload)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(d.r, payload); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrShortRead, err)
	}

	return Record{
		Timestamp: ttytime.Value{Sec: int64(sec), Usec: int64(usec)},
		Payload:   payload,
	}, nil
}

// ClearScreenOffset returns the byte offset of the first occurrence of
// ClearScreenMarker within payload, and true, or (0, false) if absent.
// Only the first occurrence within a payload is ever significant.
func ClearScreenOffset(payload []byte) (int, bool) {
	for i := 0; i+len(ClearScreenMarker) <= len(payload); i++ {
		if payload[i] == ClearScreenMarker[0] &&
			payload[i+1] == ClearScreenMarker[1] &&
			payload[i+2] == ClearScreenMarker[2] &&
			payload[i+3] == ClearScreenMarker[3] {
			return i, true
		}
	}
	return 0, false
}

// Write emits a payload unchanged to w, the terminal output sink. It never
// re-encodes a header: playback only ever writes payload bytes forward.
func Write(w io.Writer, payload []byte) error {
	_, err := w.Write(payload)
	return err
}

// EncodeHeader renders (timestamp, length) into the 12-byte on-disk
// layout. It exists for the test suite and for any future recorder; the
// player itself never writes headers.
func EncodeHeader(ts ttytime.Value, length uint32) [HeaderSize]byte {
	var hdr [HeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(ts.Sec))
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(ts.Usec))
	binary.LittleEndian.PutUint32(hdr[8:12], length)
	return hdr
}
