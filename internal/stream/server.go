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
	"golang.org/x/time/rate"

	"github.com/soyle-app/soyle/internal/gesture"
	"github.com/soyle-app/soyle/internal/protocol"
	"github.com/soyle-app/soyle/internal/stability"
)

// Session roles.
const (
	RoleServer = "server"
	RoleClient = "client"
	RoleLocal  = "local" // camera and speech in one process
)

// sourceRetryDelay is how long the send loop waits after a failed frame grab.
const sourceRetryDelay = 100 * time.Millisecond

// ServerConfig configures the sensor/feedback side.
type ServerConfig struct {
	Source FrameSource // nil sends no video
	FPS    float64     // outbound frame rate; zero is unpaced

	Phrases  stability.Phrasebook
	Speaker  stability.Speaker
	Cooldown time.Duration

	// IdleTimeout ends a session when no command arrives for this long. A
	// held gesture sends nothing, so zero (never) suits most setups.
	IdleTimeout  time.Duration
	WriteTimeout time.Duration // also detects a peer that stopped reading frames

	Recorder Recorder
}

// ServerStatus is a snapshot of the server's current session.
type ServerStatus struct {
	Connected   bool          `json:"connected"`
	Session     string        `json:"session,omitempty"`
	Peer        string        `json:"peer,omitempty"`
	LastCommand gesture.Label `json:"last_command,omitempty"`
	LastSpoken  gesture.Label `json:"last_spoken,omitempty"`
	FramesSent  uint64        `json:"frames_sent"`
	Sessions    int           `json:"sessions"`
}

// Server accepts one client at a time. Commands from the client drive a
// per-session debounce gate; the server streams frames back.
type Server struct {
	cfg ServerConfig
	rec Recorder

	framesSent atomic.Uint64

	mu     sync.RWMutex
	status ServerStatus
}

// NewServer creates a Server.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = stability.DefaultCooldown
	}
	if cfg.Phrases == nil {
		cfg.Phrases = stability.PhraseMap{}
	}
	if cfg.Speaker == nil {
		cfg.Speaker = stability.SpeakerFunc(func(string) {})
	}

	var rec Recorder = nopRecorder{}
	if cfg.Recorder != nil {
		rec = cfg.Recorder
	}
	return &Server{cfg: cfg, rec: rec}
}

// Status returns the current session snapshot.
func (s *Server) Status() ServerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.status
	st.FramesSent = s.framesSent.Load()
	return st
}

// Serve accepts connections on ln and serves them one after another until
// ctx is canceled. It closes ln before returning.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()
	defer ln.Close()

	log.WithField("component", "server").Infof("Listening on %s", ln.Addr())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		if err := s.ServeConn(ctx, conn); err != nil && ctx.Err() == nil {
			log.WithField("component", "server").Infof("Session ended: %s", endReason(err))
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// ServeConn runs one session on conn until either side closes it or ctx is
// canceled. conn is always closed on return. A clean peer close returns
// ErrDisconnected.
func (s *Server) ServeConn(ctx context.Context, conn net.Conn) error {
	info := SessionInfo{
		ID:        uuid.NewString(),
		Role:      RoleServer,
		Peer:      conn.RemoteAddr().String(),
		StartedAt: time.Now(),
	}
	logger := log.WithFields(log.Fields{"session": info.ID, "component": "server"})
	logger.Infof("Client connected from %s", info.Peer)

	s.rec.SessionStarted(info)
	s.mu.Lock()
	s.status = ServerStatus{Connected: true, Session: info.ID, Peer: info.Peer, Sessions: s.status.Sessions + 1}
	s.mu.Unlock()

	gate := stability.NewGate(s.cfg.Cooldown, s.cfg.Phrases, s.cfg.Speaker)
	gate.OnSpeak = func(label gesture.Label, phrase string, at time.Time) {
		logger.WithField("label", label).Infof("Speaking %q", phrase)
		s.mu.Lock()
		s.status.LastSpoken = label
		s.mu.Unlock()
		s.rec.Spoken(SpokenEvent{Session: info.ID, Label: label, Phrase: phrase, Source: SourceRemote, At: at})
	}

	g, gctx := errgroup.WithContext(ctx)
	stop := context.AfterFunc(gctx, func() { conn.Close() })
	defer stop()

	g.Go(func() error { return s.sendLoop(gctx, conn, logger) })
	g.Go(func() error { return s.receiveLoop(gctx, conn, gate, logger) })

	err := g.Wait()
	conn.Close()
	if ctx.Err() != nil {
		err = ctx.Err()
	}

	reason := endReason(err)
	s.rec.SessionEnded(info, reason, time.Now())
	s.mu.Lock()
	s.status.Connected = false
	s.mu.Unlock()
	logger.Infof("Client disconnected: %s", reason)

	return err
}

// sendLoop streams frames from the source at the configured rate.
func (s *Server) sendLoop(ctx context.Context, conn net.Conn, logger *log.Entry) error {
	if s.cfg.Source == nil {
		<-ctx.Done()
		return nil
	}

	limit := rate.Inf
	if s.cfg.FPS > 0 {
		limit = rate.Limit(s.cfg.FPS)
	}
	limiter := rate.NewLimiter(limit, 1)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		frame, err := s.cfg.Source.Next(ctx)
		if errors.Is(err, io.EOF) {
			logger.Debug("Frame source exhausted")
			<-ctx.Done()
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warnf("Error reading frame: %v", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(sourceRetryDelay):
			}
			continue
		}

		if err := setWriteDeadline(conn, s.cfg.WriteTimeout); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
		if err := protocol.WriteFrame(conn, frame); err != nil {
			if isClosed(err) && ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("send frame: %w", err)
		}
		s.framesSent.Add(1)
	}
}

// receiveLoop feeds inbound commands to the gate. It is the gate's only user.
func (s *Server) receiveLoop(ctx context.Context, conn net.Conn, gate *stability.Gate, logger *log.Entry) error {
	for {
		if err := setReadDeadline(conn, s.cfg.IdleTimeout); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}

		raw, err := protocol.ReadCommand(conn)
		if errors.Is(err, protocol.ErrInvalidLabel) {
			logger.Warn("Dropping command with invalid label")
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return ErrDisconnected
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("receive command: %w", err)
		}

		label := gesture.Label(raw)
		logger.WithField("label", label).Debug("Command received")

		s.mu.Lock()
		s.status.LastCommand = label
		s.mu.Unlock()

		gate.Offer(label, time.Now())
	}
}
