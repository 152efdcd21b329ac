package server

import (
	"context"
	"encoding/json"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/soyle-app/soyle/internal/stream"
)

// subscriberBuffer is how many messages a slow websocket client may lag
// behind before messages are dropped for it.
const subscriberBuffer = 16

// Hub fans analyzed frames out to HTTP viewers. It keeps the latest encoded
// frame for MJPEG and broadcasts observation JSON to websocket subscribers.
// Observe never blocks on a viewer.
type Hub struct {
	mu      sync.Mutex
	frame   []byte
	seq     uint64
	last    *stream.Observation
	updated chan struct{}
	subs    map[chan []byte]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		updated: make(chan struct{}),
		subs:    make(map[chan []byte]struct{}),
	}
}

// Observe implements stream.FrameSink.
func (h *Hub) Observe(obs stream.Observation) {
	msg, err := json.Marshal(obs)
	if err != nil {
		log.WithField("component", "hub").Errorf("Failed to encode observation: %v", err)
		msg = nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if len(obs.Frame) > 0 {
		h.frame = obs.Frame
		h.seq++
		close(h.updated)
		h.updated = make(chan struct{})
	}
	o := obs
	o.Frame = nil
	h.last = &o

	if msg == nil {
		return
	}
	for ch := range h.subs {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Last returns the most recent observation without its frame.
func (h *Hub) Last() (stream.Observation, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last == nil {
		return stream.Observation{}, false
	}
	return *h.last, true
}

// NextFrame blocks until a frame newer than after is available and returns
// it with its sequence number.
func (h *Hub) NextFrame(ctx context.Context, after uint64) ([]byte, uint64, error) {
	for {
		h.mu.Lock()
		if h.seq > after && h.frame != nil {
			frame, seq := h.frame, h.seq
			h.mu.Unlock()
			return frame, seq, nil
		}
		wait := h.updated
		h.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, after, ctx.Err()
		case <-wait:
		}
	}
}

// Subscribe registers a websocket subscriber. The returned cancel function
// unregisters it and closes the channel.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of connected websocket clients.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
