package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestSetup(t *testing.T) {
	defer log.SetOutput(os.Stderr)
	defer log.SetLevel(log.InfoLevel)

	t.Run("rejects unknown level", func(t *testing.T) {
		if _, err := Setup(Options{Level: "chatty"}); err == nil {
			t.Error("expected error for invalid level")
		}
	})

	t.Run("applies level", func(t *testing.T) {
		c, err := Setup(Options{Level: "debug"})
		if err != nil {
			t.Fatalf("Setup() error = %v", err)
		}
		defer c.Close()

		if log.GetLevel() != log.DebugLevel {
			t.Errorf("level = %s, want debug", log.GetLevel())
		}
	})

	t.Run("writes to rotating file", func(t *testing.T) {
		dir := t.TempDir()
		c, err := Setup(Options{Dir: dir, Name: "unit", NoColors: true})
		if err != nil {
			t.Fatalf("Setup() error = %v", err)
		}

		log.WithField("session", "abc").Info("hello file")
		if err := c.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		log.SetOutput(os.Stderr)

		data, err := os.ReadFile(filepath.Join(dir, "unit.log"))
		if err != nil {
			t.Fatalf("failed to read log file: %v", err)
		}
		if !strings.Contains(string(data), "hello file") || !strings.Contains(string(data), "abc") {
			t.Errorf("log file missing entry: %q", data)
		}
	})
}
