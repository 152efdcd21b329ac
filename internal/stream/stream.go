// Package stream connects a sensor/feedback process and a recognition
// process over one duplex TCP connection. Video frames flow from the server
// to the client; gesture commands flow back.
//
// Each connection runs a send loop and a receive loop under an errgroup. The
// per-session stability state is owned by exactly one of the two loops and
// crosses to the other only through channels.
package stream

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"time"

	"github.com/soyle-app/soyle/internal/detector"
	"github.com/soyle-app/soyle/internal/gesture"
)

// ErrDisconnected is returned when the peer closes the connection.
var ErrDisconnected = errors.New("peer disconnected")

// FrameSource produces encoded outbound frames. Next blocks until a frame is
// ready; io.EOF means the source is exhausted.
type FrameSource interface {
	Next(ctx context.Context) ([]byte, error)
}

// FrameSourceFunc adapts a function to FrameSource.
type FrameSourceFunc func(ctx context.Context) ([]byte, error)

// Next implements FrameSource.
func (f FrameSourceFunc) Next(ctx context.Context) ([]byte, error) {
	return f(ctx)
}

// Observation is one analyzed frame.
type Observation struct {
	Session string                   `json:"session"`
	Frame   []byte                   `json:"-"`
	Hands   []detector.HandLandmarks `json:"hands"`
	Results []gesture.Result         `json:"results"`
	Raw     gesture.Label            `json:"raw"`
	Stable  gesture.Label            `json:"stable"`
	At      time.Time                `json:"at"`
}

// FrameSink receives every analyzed frame. Observe is called from the
// receive loop and must return quickly.
type FrameSink interface {
	Observe(obs Observation)
}

// SinkFunc adapts a function to FrameSink.
type SinkFunc func(obs Observation)

// Observe implements FrameSink.
func (f SinkFunc) Observe(obs Observation) {
	f(obs)
}

// SessionInfo describes one connection.
type SessionInfo struct {
	ID        string
	Role      string
	Peer      string
	StartedAt time.Time
}

// Spoken event sources.
const (
	SourceCamera = "camera" // label classified from a local camera
	SourceRemote = "remote" // label received as a command
)

// SpokenEvent is a phrase fired by a session's gate.
type SpokenEvent struct {
	Session string
	Label   gesture.Label
	Phrase  string
	Source  string
	At      time.Time
}

// Recorder is notified of session lifecycle and spoken phrases.
type Recorder interface {
	SessionStarted(info SessionInfo)
	SessionEnded(info SessionInfo, reason string, at time.Time)
	Spoken(ev SpokenEvent)
}

// Recorders fans out to several recorders in order.
type Recorders []Recorder

// SessionStarted implements Recorder.
func (rs Recorders) SessionStarted(info SessionInfo) {
	for _, r := range rs {
		r.SessionStarted(info)
	}
}

// SessionEnded implements Recorder.
func (rs Recorders) SessionEnded(info SessionInfo, reason string, at time.Time) {
	for _, r := range rs {
		r.SessionEnded(info, reason, at)
	}
}

// Spoken implements Recorder.
func (rs Recorders) Spoken(ev SpokenEvent) {
	for _, r := range rs {
		r.Spoken(ev)
	}
}

type nopRecorder struct{}

func (nopRecorder) SessionStarted(SessionInfo)                  {}
func (nopRecorder) SessionEnded(SessionInfo, string, time.Time) {}
func (nopRecorder) Spoken(SpokenEvent)                          {}

// endReason turns a session's terminal error into a short description.
func endReason(err error) string {
	switch {
	case err == nil:
		return "closed"
	case errors.Is(err, ErrDisconnected):
		return "peer closed"
	case errors.Is(err, context.Canceled):
		return "shutdown"
	case errors.Is(err, os.ErrDeadlineExceeded):
		return "timeout"
	default:
		return err.Error()
	}
}

// isClosed reports whether err comes from using a connection that was
// already closed, which happens when the other loop tears the session down.
func isClosed(err error) bool {
	return errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe)
}

func setReadDeadline(conn net.Conn, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	return conn.SetReadDeadline(time.Now().Add(d))
}

func setWriteDeadline(conn net.Conn, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	return conn.SetWriteDeadline(time.Now().Add(d))
}
