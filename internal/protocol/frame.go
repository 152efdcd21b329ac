package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
)

// headerSize is the length of the video-frame length prefix.
const headerSize = 4

// initialChunk caps the up-front allocation for a frame body; larger frames
// grow as bytes actually arrive.
const initialChunk = 1 << 20

// ErrFrameTooLarge is returned when a frame exceeds the u32 prefix or a reader's limit.
var ErrFrameTooLarge = errors.New("frame too large")

// WriteFrame writes one video frame: the 4-byte big-endian length followed
// by the payload.
func WriteFrame(w io.Writer, payload []byte) error {
	if uint64(len(payload)) > math.MaxUint32 {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}

	var header [headerSize]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))

	bufs := net.Buffers{header[:], payload}
	_, err := bufs.WriteTo(w)
	return err
}

// ReadFrame reads one video frame with no size limit beyond the u32 prefix.
func ReadFrame(r io.Reader) ([]byte, error) {
	return (&FrameReader{R: r}).ReadFrame()
}

// FrameReader reads video frames from R, rejecting any frame whose declared
// length exceeds MaxSize (zero means no limit).
type FrameReader struct {
	R       io.Reader
	MaxSize uint32
}

// ReadFrame returns the next payload. io.EOF means the peer closed cleanly
// between frames; ErrTruncated means it closed inside a header or payload,
// in which case the partial frame is discarded.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(fr.R, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: short length prefix", ErrTruncated)
		}
		return nil, err
	}

	size := binary.BigEndian.Uint32(header[:])
	if fr.MaxSize > 0 && size > fr.MaxSize {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrFrameTooLarge, size, fr.MaxSize)
	}

	buf := bytes.NewBuffer(make([]byte, 0, min(int(size), initialChunk)))
	n, err := io.CopyN(buf, fr.R, int64(size))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: got %d of %d payload bytes", ErrTruncated, n, size)
		}
		return nil, err
	}

	return buf.Bytes(), nil
}
