package audio

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// AsyncSpeaker hands phrases to a background goroutine so callers never wait
// on playback. When the queue is full new phrases are dropped.
type AsyncSpeaker struct {
	next  Speaker
	queue chan string

	closeOnce sync.Once
	done      chan struct{}
}

// NewAsyncSpeaker starts the playback goroutine.
func NewAsyncSpeaker(next Speaker, depth int) *AsyncSpeaker {
	if depth < 1 {
		depth = 1
	}
	s := &AsyncSpeaker{
		next:  next,
		queue: make(chan string, depth),
		done:  make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *AsyncSpeaker) run() {
	defer close(s.done)
	for phrase := range s.queue {
		s.next.Speak(phrase)
	}
}

// Speak implements Speaker. It must not be called after Close.
func (s *AsyncSpeaker) Speak(phrase string) {
	select {
	case s.queue <- phrase:
	default:
		log.WithField("phrase", phrase).Warn("speech queue full, dropping phrase")
	}
}

// Close stops accepting phrases and waits for queued ones to play.
func (s *AsyncSpeaker) Close() error {
	s.closeOnce.Do(func() {
		close(s.queue)
	})
	<-s.done
	return nil
}
