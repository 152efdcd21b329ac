package stream

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/soyle-app/soyle/internal/store"
)

// StoreRecorder persists sessions and spoken events. Write failures are
// logged and never interrupt a session.
type StoreRecorder struct {
	store *store.Store
}

// NewStoreRecorder creates a Recorder backed by s.
func NewStoreRecorder(s *store.Store) *StoreRecorder {
	return &StoreRecorder{store: s}
}

// SessionStarted implements Recorder.
func (r *StoreRecorder) SessionStarted(info SessionInfo) {
	err := r.store.Sessions().Start(&store.Session{
		ID:        info.ID,
		Role:      info.Role,
		Peer:      info.Peer,
		StartedAt: info.StartedAt,
	})
	if err != nil {
		log.WithField("session", info.ID).Errorf("Failed to record session start: %v", err)
	}
}

// SessionEnded implements Recorder.
func (r *StoreRecorder) SessionEnded(info SessionInfo, reason string, at time.Time) {
	if err := r.store.Sessions().End(info.ID, reason, at); err != nil {
		log.WithField("session", info.ID).Errorf("Failed to record session end: %v", err)
	}
}

// Spoken implements Recorder.
func (r *StoreRecorder) Spoken(ev SpokenEvent) {
	err := r.store.Events().Create(&store.SpokenEvent{
		SessionID: ev.Session,
		Label:     string(ev.Label),
		Phrase:    ev.Phrase,
		Source:    ev.Source,
		SpokenAt:  ev.At,
	})
	if err != nil {
		log.WithFields(log.Fields{"session": ev.Session, "label": ev.Label}).Errorf("Failed to record spoken event: %v", err)
	}
}
