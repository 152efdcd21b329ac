package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/soyle-app/soyle/internal/gesture"
)

// DefaultPlayer plays pre-recorded clips.
const DefaultPlayer = "mpg123"

// ClipSpeaker plays <dir>/<LABEL>.mp3 for a phrase instead of synthesizing it.
type ClipSpeaker struct {
	player  string
	timeout time.Duration
	files   map[string]string // phrase -> clip path
}

// NewClipSpeaker indexes the clips for every phrase in table. Labels without a
// clip on disk are skipped with a warning.
func NewClipSpeaker(dir, player string, table map[gesture.Label]string) (*ClipSpeaker, error) {
	if player == "" {
		player = DefaultPlayer
	}
	path, err := exec.LookPath(player)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not found", ErrNoEngine, player)
	}

	files := make(map[string]string, len(table))
	for label, phrase := range table {
		clip := filepath.Join(dir, string(label)+".mp3")
		if _, err := os.Stat(clip); err != nil {
			log.WithField("label", label).Warnf("audio clip not found at %s", clip)
			continue
		}
		files[phrase] = clip
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no audio clips in %s", dir)
	}

	return &ClipSpeaker{player: path, timeout: DefaultTimeout, files: files}, nil
}

// Speak implements Speaker.
func (s *ClipSpeaker) Speak(phrase string) {
	clip, ok := s.files[phrase]
	if !ok {
		log.WithField("phrase", phrase).Warn("no audio clip for phrase")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := exec.CommandContext(ctx, s.player, "-q", clip).Run(); err != nil {
		log.WithError(err).WithField("clip", clip).Warn("clip playback failed")
	}
}
