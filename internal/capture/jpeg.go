package capture

import (
	"context"
	"fmt"

	"gocv.io/x/gocv"
)

// DefaultJPEGQuality is the encoder quality used for the video channel.
const DefaultJPEGQuality = 80

// EncodeJPEG encodes mat as a JPEG at the given quality (1..100). The
// returned slice is owned by the caller.
func EncodeJPEG(mat *gocv.Mat, quality int) ([]byte, error) {
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, *mat, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// JPEGSource reads frames from a Camera and encodes them for the video
// channel. The camera must already be open.
type JPEGSource struct {
	cam     Camera
	quality int
	mirror  bool
}

// NewJPEGSource creates a JPEGSource. When mirror is set frames are flipped
// horizontally so the signer sees themselves as in a mirror.
func NewJPEGSource(cam Camera, quality int, mirror bool) *JPEGSource {
	return &JPEGSource{cam: cam, quality: quality, mirror: mirror}
}

// Next reads and encodes one frame. Camera errors are returned unchanged,
// so an exhausted MockCamera ends the source with io.EOF.
func (s *JPEGSource) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	frame, err := s.cam.ReadFrame()
	if err != nil {
		return nil, err
	}
	defer frame.Close()

	if s.mirror {
		gocv.Flip(*frame, frame, 1)
	}
	return EncodeJPEG(frame, s.quality)
}
