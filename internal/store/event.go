package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Event sources.
const (
	SourceCamera = "camera" // stable label from the classifier
	SourceRemote = "remote" // gesture command received over the network
)

// SpokenEvent records one phrase that was played.
type SpokenEvent struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id,omitempty"`
	Label     string    `json:"label"`
	Phrase    string    `json:"phrase"`
	Source    string    `json:"source"`
	SpokenAt  time.Time `json:"spoken_at"`
}

// EventRepository stores spoken events.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Create inserts e, assigning an ID and timestamp when they are empty.
func (r *EventRepository) Create(e *SpokenEvent) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.SpokenAt.IsZero() {
		e.SpokenAt = time.Now()
	}
	e.SpokenAt = e.SpokenAt.UTC()
	if e.Source == "" {
		e.Source = SourceCamera
	}

	_, err := r.db.Exec(
		`INSERT INTO spoken_events (id, session_id, label, phrase, source, spoken_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, nullString(e.SessionID), e.Label, e.Phrase, e.Source, e.SpokenAt,
	)
	return err
}

// GetByID retrieves an event by its ID.
func (r *EventRepository) GetByID(id string) (*SpokenEvent, error) {
	row := r.db.QueryRow(
		`SELECT id, session_id, label, phrase, source, spoken_at FROM spoken_events WHERE id = ?`,
		id,
	)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// List returns up to limit events, newest first.
func (r *EventRepository) List(limit int) ([]*SpokenEvent, error) {
	return r.query(
		`SELECT id, session_id, label, phrase, source, spoken_at FROM spoken_events
		 ORDER BY spoken_at DESC LIMIT ?`,
		limit,
	)
}

// ListBySession returns a session's events in the order they were spoken.
func (r *EventRepository) ListBySession(sessionID string) ([]*SpokenEvent, error) {
	return r.query(
		`SELECT id, session_id, label, phrase, source, spoken_at FROM spoken_events
		 WHERE session_id = ? ORDER BY spoken_at`,
		sessionID,
	)
}

// CountByLabel returns how often each label was spoken since the given time.
func (r *EventRepository) CountByLabel(since time.Time) (map[string]int, error) {
	rows, err := r.db.Query(
		`SELECT label, COUNT(*) FROM spoken_events WHERE spoken_at >= ? GROUP BY label`,
		since.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, err
		}
		counts[label] = n
	}
	return counts, rows.Err()
}

func (r *EventRepository) query(q string, args ...any) ([]*SpokenEvent, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*SpokenEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (*SpokenEvent, error) {
	e := &SpokenEvent{}
	var sessionID sql.NullString
	if err := s.Scan(&e.ID, &sessionID, &e.Label, &e.Phrase, &e.Source, &e.SpokenAt); err != nil {
		return nil, err
	}
	e.SessionID = sessionID.String
	return e, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
