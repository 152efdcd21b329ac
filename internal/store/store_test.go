package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Fatal("database file should not exist before creating store")
	}

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("database file should exist after creating store")
	}
	if s.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", s.Path(), dbPath)
	}
}

func TestNewStore_RunsMigrations(t *testing.T) {
	s := newTestStore(t)

	for _, table := range []string{"phrases", "sessions", "spoken_events"} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q should exist after migrations: %v", table, err)
		}
	}

	for _, idx := range []string{"idx_spoken_events_spoken_at", "idx_spoken_events_session_id"} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='index' AND name=?",
			idx,
		).Scan(&name)
		if err != nil {
			t.Errorf("index %q should exist after migrations: %v", idx, err)
		}
	}
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := s.Phrases().Upsert(&Phrase{Label: "FIST", Lang: "ru", Text: "SOS"}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	s.Close()

	s, err = New(dbPath)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer s.Close()

	p, err := s.Phrases().Get("FIST", "ru")
	if err != nil || p.Text != "SOS" {
		t.Errorf("Get() after reopen = %+v, %v", p, err)
	}
}

func TestStore_Close(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("close should not return error: %v", err)
	}

	if _, err := s.DB().Exec("SELECT 1"); err == nil {
		t.Error("DB operations should fail after close")
	}
}

func TestStore_ForeignKeysEnabled(t *testing.T) {
	s := newTestStore(t)

	var fkEnabled int
	if err := s.DB().QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		t.Fatalf("failed to check foreign keys pragma: %v", err)
	}
	if fkEnabled != 1 {
		t.Error("foreign keys should be enabled")
	}
}

func TestPhraseRepository(t *testing.T) {
	s := newTestStore(t)
	repo := s.Phrases()

	t.Run("upsert creates then replaces", func(t *testing.T) {
		p := &Phrase{Label: "PEACE", Lang: "ru", Text: "Спасибо большое"}
		if err := repo.Upsert(p); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
		if p.UpdatedAt.IsZero() {
			t.Error("UpdatedAt should be set")
		}

		if err := repo.Upsert(&Phrase{Label: "PEACE", Lang: "ru", Text: "Благодарю"}); err != nil {
			t.Fatalf("second Upsert() error = %v", err)
		}

		got, err := repo.Get("PEACE", "ru")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Text != "Благодарю" {
			t.Errorf("Text = %q, want replaced text", got.Text)
		}
	})

	t.Run("languages are independent", func(t *testing.T) {
		if err := repo.Upsert(&Phrase{Label: "PEACE", Lang: "en", Text: "Thanks"}); err != nil {
			t.Fatal(err)
		}
		if err := repo.Upsert(&Phrase{Label: "FIST", Lang: "en", Text: "Help!"}); err != nil {
			t.Fatal(err)
		}

		en, err := repo.ListByLang("en")
		if err != nil {
			t.Fatalf("ListByLang() error = %v", err)
		}
		if len(en) != 2 || en[0].Label != "FIST" || en[1].Label != "PEACE" {
			t.Errorf("ListByLang(en) = %+v", en)
		}

		ru, _ := repo.ListByLang("ru")
		if len(ru) != 1 {
			t.Errorf("ListByLang(ru) has %d rows, want 1", len(ru))
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := repo.Delete("FIST", "en"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := repo.Get("FIST", "en"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
		if err := repo.Delete("FIST", "en"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound deleting twice, got %v", err)
		}
	})
}

func TestSessionRepository(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	sess := &Session{ID: "s-1", Role: RoleServer, Peer: "127.0.0.1:50000", StartedAt: start}
	if err := repo.Start(sess); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	got, err := repo.GetByID("s-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.EndedAt != nil {
		t.Error("new session should be open")
	}
	if !got.StartedAt.Equal(start) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, start)
	}

	end := start.Add(90 * time.Second)
	if err := repo.End("s-1", "peer closed", end); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if err := repo.End("s-1", "again", end); !errors.Is(err, ErrNotFound) {
		t.Errorf("ending a closed session should return ErrNotFound, got %v", err)
	}

	got, _ = repo.GetByID("s-1")
	if got.EndedAt == nil || !got.EndedAt.Equal(end) || got.EndReason != "peer closed" {
		t.Errorf("ended session = %+v", got)
	}

	if err := repo.Start(&Session{ID: "s-2", Role: RoleClient, StartedAt: start.Add(time.Hour)}); err != nil {
		t.Fatal(err)
	}
	list, err := repo.List(10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != "s-2" {
		t.Errorf("List() should be newest first, got %+v", list)
	}

	if err := repo.Start(&Session{ID: "s-3", Role: "observer"}); err == nil {
		t.Error("expected role check constraint to reject unknown role")
	}
	if _, err := repo.GetByID("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestEventRepository(t *testing.T) {
	s := newTestStore(t)
	events := s.Events()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := s.Sessions().Start(&Session{ID: "sess", Role: RoleServer, StartedAt: base}); err != nil {
		t.Fatal(err)
	}

	seed := []*SpokenEvent{
		{SessionID: "sess", Label: "FIST", Phrase: "Помогите", Source: SourceRemote, SpokenAt: base},
		{SessionID: "sess", Label: "PEACE", Phrase: "Спасибо", Source: SourceRemote, SpokenAt: base.Add(2 * time.Second)},
		{Label: "FIST", Phrase: "Помогите", SpokenAt: base.Add(4 * time.Second)},
	}
	for _, e := range seed {
		if err := events.Create(e); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if e.ID == "" {
			t.Error("Create should assign an ID")
		}
	}

	t.Run("defaults", func(t *testing.T) {
		got, err := events.GetByID(seed[2].ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if got.Source != SourceCamera || got.SessionID != "" {
			t.Errorf("event = %+v, want camera source and no session", got)
		}
	})

	t.Run("list newest first with limit", func(t *testing.T) {
		got, err := events.List(2)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(got) != 2 || got[0].ID != seed[2].ID || got[1].ID != seed[1].ID {
			t.Errorf("List(2) returned wrong order: %+v", got)
		}
	})

	t.Run("by session", func(t *testing.T) {
		got, err := events.ListBySession("sess")
		if err != nil {
			t.Fatalf("ListBySession() error = %v", err)
		}
		if len(got) != 2 || got[0].Label != "FIST" || got[1].Label != "PEACE" {
			t.Errorf("ListBySession() = %+v", got)
		}
	})

	t.Run("counts", func(t *testing.T) {
		counts, err := events.CountByLabel(base.Add(time.Second))
		if err != nil {
			t.Fatalf("CountByLabel() error = %v", err)
		}
		if counts["FIST"] != 1 || counts["PEACE"] != 1 {
			t.Errorf("CountByLabel() = %v", counts)
		}
	})

	t.Run("unknown session violates foreign key", func(t *testing.T) {
		err := events.Create(&SpokenEvent{SessionID: "nope", Label: "OK", Phrase: "Окей"})
		if err == nil {
			t.Error("expected foreign key error")
		}
	})

	t.Run("missing event", func(t *testing.T) {
		if _, err := events.GetByID("missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}
