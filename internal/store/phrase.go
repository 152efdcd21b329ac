package store

import (
	"database/sql"
	"errors"
	"time"
)

// Phrase is a user override of the spoken text for one label and language.
type Phrase struct {
	Label     string    `json:"label"`
	Lang      string    `json:"lang"`
	Text      string    `json:"text"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PhraseRepository provides CRUD operations for phrase overrides.
type PhraseRepository struct {
	db *sql.DB
}

// Phrases returns the phrase repository for this store.
func (s *Store) Phrases() *PhraseRepository {
	return &PhraseRepository{db: s.db}
}

// Upsert creates or replaces the override for p.Label and p.Lang.
func (r *PhraseRepository) Upsert(p *Phrase) error {
	p.UpdatedAt = time.Now().UTC()

	_, err := r.db.Exec(
		`INSERT INTO phrases (label, lang, text, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(label, lang) DO UPDATE SET text = excluded.text, updated_at = excluded.updated_at`,
		p.Label, p.Lang, p.Text, p.UpdatedAt,
	)
	return err
}

// Get retrieves the override for label in lang.
func (r *PhraseRepository) Get(label, lang string) (*Phrase, error) {
	p := &Phrase{}
	err := r.db.QueryRow(
		`SELECT label, lang, text, updated_at FROM phrases WHERE label = ? AND lang = ?`,
		label, lang,
	).Scan(&p.Label, &p.Lang, &p.Text, &p.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// ListByLang retrieves every override for lang ordered by label.
func (r *PhraseRepository) ListByLang(lang string) ([]*Phrase, error) {
	rows, err := r.db.Query(
		`SELECT label, lang, text, updated_at FROM phrases WHERE lang = ? ORDER BY label`,
		lang,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var phrases []*Phrase
	for rows.Next() {
		p := &Phrase{}
		if err := rows.Scan(&p.Label, &p.Lang, &p.Text, &p.UpdatedAt); err != nil {
			return nil, err
		}
		phrases = append(phrases, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return phrases, nil
}

// Delete removes the override for label in lang.
func (r *PhraseRepository) Delete(label, lang string) error {
	result, err := r.db.Exec(`DELETE FROM phrases WHERE label = ? AND lang = ?`, label, lang)
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
