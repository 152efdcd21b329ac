// Package protocol implements the two framings used between the sensor and
// feedback processes: gesture commands ([u8 length][UTF-8 label]) and video
// frames ([u32 big-endian length][payload]).
package protocol

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// MaxLabelLen is the largest label a one-byte length prefix can carry.
const MaxLabelLen = 255

var (
	// ErrLabelTooLong is returned by WriteCommand for labels over MaxLabelLen bytes.
	ErrLabelTooLong = errors.New("label exceeds 255 bytes")
	// ErrInvalidLabel is returned when a label is not valid UTF-8.
	ErrInvalidLabel = errors.New("label is not valid UTF-8")
	// ErrTruncated is returned when the stream ends inside a message.
	ErrTruncated = errors.New("stream ended mid-message")
)

// WriteCommand writes one gesture-command frame. The label is validated
// before anything is written, so a rejected label never leaves a dangling
// length byte on the stream.
func WriteCommand(w io.Writer, label string) error {
	if len(label) > MaxLabelLen {
		return fmt.Errorf("%w: %d bytes", ErrLabelTooLong, len(label))
	}
	if !utf8.ValidString(label) {
		return ErrInvalidLabel
	}

	buf := make([]byte, 1+len(label))
	buf[0] = byte(len(label))
	copy(buf[1:], label)

	_, err := w.Write(buf)
	return err
}

// ReadCommand reads one gesture-command frame. It returns io.EOF when the
// peer closed the stream cleanly before a length byte, and ErrTruncated when
// the stream ends inside the label.
func ReadCommand(r io.Reader) (string, error) {
	var size [1]byte
	if _, err := io.ReadFull(r, size[:]); err != nil {
		return "", err
	}

	label := make([]byte, size[0])
	if _, err := io.ReadFull(r, label); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return "", fmt.Errorf("%w: want %d label bytes", ErrTruncated, size[0])
		}
		return "", err
	}

	if !utf8.Valid(label) {
		return "", ErrInvalidLabel
	}
	return string(label), nil
}
