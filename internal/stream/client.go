package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/soyle-app/soyle/internal/detector"
	"github.com/soyle-app/soyle/internal/gesture"
	"github.com/soyle-app/soyle/internal/protocol"
	"github.com/soyle-app/soyle/internal/stability"
)

// overrideQueue bounds pending manual commands.
const overrideQueue = 8

// ClientConfig configures the recognition side.
type ClientConfig struct {
	Addr         string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration // zero waits forever for the next frame
	WriteTimeout time.Duration
	MaxFrameSize uint32 // zero accepts any u32 length

	// Detector analyzes inbound frames. When nil, frames are only forwarded
	// to Sink and commands come from Override alone.
	Detector      detector.Detector
	Classifier    *gesture.Classifier
	Dwell         time.Duration
	ProcessEveryN int // classify every Nth frame; others reuse the last result

	Sink     FrameSink
	Recorder Recorder
}

// ClientStats is a snapshot of the client's session.
type ClientStats struct {
	Session    string        `json:"session,omitempty"`
	Status     gesture.Label `json:"status"`
	LastSent   gesture.Label `json:"last_sent,omitempty"`
	FramesRead uint64        `json:"frames_read"`
	Sent       uint64        `json:"commands_sent"`
}

// Client dials the server, classifies the frames it receives and sends back
// the stable label whenever it changes.
type Client struct {
	cfg       ClientConfig
	rec       Recorder
	overrides chan gesture.Label

	framesRead atomic.Uint64
	sent       atomic.Uint64

	mu       sync.RWMutex
	status   gesture.Label
	session  string
	lastSent gesture.Label
}

// NewClient creates a Client. Its status is CONNECTING until a connection is up.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Classifier == nil {
		cfg.Classifier = gesture.NewClassifier(gesture.DefaultConfig())
	}
	if cfg.Dwell <= 0 {
		cfg.Dwell = stability.DefaultDwell
	}
	if cfg.ProcessEveryN < 1 {
		cfg.ProcessEveryN = 1
	}

	var rec Recorder = nopRecorder{}
	if cfg.Recorder != nil {
		rec = cfg.Recorder
	}
	return &Client{
		cfg:       cfg,
		rec:       rec,
		overrides: make(chan gesture.Label, overrideQueue),
		status:    gesture.Connecting,
	}
}

// Status returns CONNECTING while no connection is up, otherwise the
// current stable label.
func (c *Client) Status() gesture.Label {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Stats returns a snapshot of the current session.
func (c *Client) Stats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ClientStats{
		Session:    c.session,
		Status:     c.status,
		LastSent:   c.lastSent,
		FramesRead: c.framesRead.Load(),
		Sent:       c.sent.Load(),
	}
}

// Override queues a manual command. It is sent even if it repeats the last
// command. It reports false for labels that are not poses or when the queue
// is full.
func (c *Client) Override(label gesture.Label) bool {
	if !label.IsPose() {
		return false
	}
	select {
	case c.overrides <- label:
		return true
	default:
		return false
	}
}

// Run dials the server and runs one session. It returns ErrDisconnected when
// the server goes away and nil when ctx is canceled.
func (c *Client) Run(ctx context.Context) error {
	c.setStatus(gesture.Connecting)

	d := net.Dialer{Timeout: c.cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", c.cfg.Addr)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("dial %s: %w", c.cfg.Addr, err)
	}
	return c.RunConn(ctx, conn)
}

// RunConn runs one session over an established connection and closes it on
// return.
func (c *Client) RunConn(ctx context.Context, conn net.Conn) error {
	info := SessionInfo{
		ID:        uuid.NewString(),
		Role:      RoleClient,
		Peer:      conn.RemoteAddr().String(),
		StartedAt: time.Now(),
	}
	logger := log.WithFields(log.Fields{"session": info.ID, "component": "client"})
	logger.Infof("Connected to %s", info.Peer)

	c.drainOverrides()
	c.mu.Lock()
	c.session = info.ID
	c.status = gesture.NoHand
	c.lastSent = ""
	c.mu.Unlock()
	c.rec.SessionStarted(info)

	labels := make(chan gesture.Label, 1)

	g, gctx := errgroup.WithContext(ctx)
	stop := context.AfterFunc(gctx, func() { conn.Close() })
	defer stop()

	g.Go(func() error { return c.receiveLoop(gctx, conn, info.ID, labels, logger) })
	g.Go(func() error { return c.sendLoop(gctx, conn, labels, logger) })

	err := g.Wait()
	conn.Close()
	if ctx.Err() != nil {
		err = ctx.Err()
	}

	reason := endReason(err)
	c.rec.SessionEnded(info, reason, time.Now())
	c.setStatus(gesture.Connecting)
	logger.Infof("Disconnected: %s", reason)

	if ctx.Err() != nil {
		return nil
	}
	return err
}

// receiveLoop reads frames, runs classification and the stability filter,
// and hands stable label changes to the send loop. It owns the filter.
func (c *Client) receiveLoop(ctx context.Context, conn net.Conn, session string, labels chan gesture.Label, logger *log.Entry) error {
	fr := &protocol.FrameReader{R: conn, MaxSize: c.cfg.MaxFrameSize}
	filter := stability.NewFilter(c.cfg.Dwell)

	var (
		n       int
		raw     = gesture.NoHand
		hands   []detector.HandLandmarks
		results []gesture.Result
		prev    = filter.Stable()
	)

	for {
		if err := setReadDeadline(conn, c.cfg.ReadTimeout); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}

		frame, err := fr.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return ErrDisconnected
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("receive frame: %w", err)
		}
		c.framesRead.Add(1)
		now := time.Now()

		if c.cfg.Detector != nil {
			if n%c.cfg.ProcessEveryN == 0 {
				detected, err := detector.DetectEncoded(c.cfg.Detector, frame)
				if err != nil {
					logger.Warnf("Error detecting hands: %v", err)
					// A failed frame is not evidence that the last pose is still held.
					hands, results, raw = nil, nil, gesture.Unknown
				} else {
					hands = detected
					raw, results = c.cfg.Classifier.ClassifyFrame(hands)
				}
			}
			n++

			stable := filter.Update(raw, now)
			if stable != prev {
				logger.WithField("label", stable).Debugf("Stable label changed from %s", prev)
				prev = stable
				c.setStatus(stable)
				offerLatest(labels, stable)
			}
		}

		if c.cfg.Sink != nil {
			c.cfg.Sink.Observe(Observation{
				Session: session,
				Frame:   frame,
				Hands:   hands,
				Results: results,
				Raw:     raw,
				Stable:  filter.Stable(),
				At:      now,
			})
		}
	}
}

// sendLoop writes commands for stable label changes and manual overrides.
// Meta labels and repeats of the last sent label are not sent.
func (c *Client) sendLoop(ctx context.Context, conn net.Conn, labels <-chan gesture.Label, logger *log.Entry) error {
	var last gesture.Label
	for {
		var (
			label  gesture.Label
			manual bool
		)
		select {
		case <-ctx.Done():
			return nil
		case label = <-labels:
		case label = <-c.overrides:
			manual = true
		}

		if !manual && (label.IsMeta() || label == last) {
			continue
		}

		if err := setWriteDeadline(conn, c.cfg.WriteTimeout); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
		if err := protocol.WriteCommand(conn, string(label)); err != nil {
			if errors.Is(err, protocol.ErrLabelTooLong) || errors.Is(err, protocol.ErrInvalidLabel) {
				logger.WithField("label", label).Warnf("Dropping command: %v", err)
				continue
			}
			if isClosed(err) && ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("send command: %w", err)
		}

		last = label
		c.sent.Add(1)
		c.mu.Lock()
		c.lastSent = label
		c.mu.Unlock()
		logger.WithField("label", label).Infof("Sent command (manual=%t)", manual)
	}
}

func (c *Client) setStatus(label gesture.Label) {
	c.mu.Lock()
	c.status = label
	c.mu.Unlock()
}

func (c *Client) drainOverrides() {
	for {
		select {
		case <-c.overrides:
		default:
			return
		}
	}
}

// offerLatest puts l on a one-slot channel, replacing any value the reader
// has not taken yet. There must be a single writer.
func offerLatest(ch chan gesture.Label, l gesture.Label) {
	select {
	case ch <- l:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- l:
	default:
	}
}
