package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Phrase overrides per label and language
		`CREATE TABLE IF NOT EXISTS phrases (
			label TEXT NOT NULL,
			lang TEXT NOT NULL,
			text TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (label, lang)
		)`,

		// Stream sessions, one row per accepted or dialed connection
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			role TEXT NOT NULL CHECK(role IN ('server', 'client', 'local')),
			peer TEXT NOT NULL DEFAULT '',
			started_at DATETIME NOT NULL,
			ended_at DATETIME,
			end_reason TEXT NOT NULL DEFAULT ''
		)`,

		// Every phrase that was actually spoken
		`CREATE TABLE IF NOT EXISTS spoken_events (
			id TEXT PRIMARY KEY,
			session_id TEXT REFERENCES sessions(id) ON DELETE SET NULL,
			label TEXT NOT NULL,
			phrase TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT 'camera',
			spoken_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_spoken_events_spoken_at ON spoken_events(spoken_at)`,
		`CREATE INDEX IF NOT EXISTS idx_spoken_events_session_id ON spoken_events(session_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
