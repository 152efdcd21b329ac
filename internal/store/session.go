package store

import (
	"database/sql"
	"errors"
	"time"
)

// Session roles.
const (
	RoleServer = "server"
	RoleClient = "client"
	RoleLocal  = "local"
)

// Session records the lifetime of one stream connection.
type Session struct {
	ID        string     `json:"id"`
	Role      string     `json:"role"`
	Peer      string     `json:"peer"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	EndReason string     `json:"end_reason,omitempty"`
}

// SessionRepository stores stream sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Start inserts a new open session.
func (r *SessionRepository) Start(s *Session) error {
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now()
	}
	s.StartedAt = s.StartedAt.UTC()

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, role, peer, started_at) VALUES (?, ?, ?, ?)`,
		s.ID, s.Role, s.Peer, s.StartedAt,
	)
	return err
}

// End closes a session with the reason it ended.
func (r *SessionRepository) End(id, reason string, at time.Time) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET ended_at = ?, end_reason = ? WHERE id = ? AND ended_at IS NULL`,
		at.UTC(), reason, id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	s := &Session{}
	var ended sql.NullTime

	err := r.db.QueryRow(
		`SELECT id, role, peer, started_at, ended_at, end_reason FROM sessions WHERE id = ?`,
		id,
	).Scan(&s.ID, &s.Role, &s.Peer, &s.StartedAt, &ended, &s.EndReason)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if ended.Valid {
		s.EndedAt = &ended.Time
	}
	return s, nil
}

// List returns up to limit sessions, newest first.
func (r *SessionRepository) List(limit int) ([]*Session, error) {
	rows, err := r.db.Query(
		`SELECT id, role, peer, started_at, ended_at, end_reason FROM sessions
		 ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		s := &Session{}
		var ended sql.NullTime
		if err := rows.Scan(&s.ID, &s.Role, &s.Peer, &s.StartedAt, &ended, &s.EndReason); err != nil {
			return nil, err
		}
		if ended.Valid {
			t := ended.Time
			s.EndedAt = &t
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}
