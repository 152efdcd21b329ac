package audio

import (
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/soyle-app/soyle/internal/gesture"
)

// New picks the best available speaker: recorded clips when clipDir is set,
// then a TTS engine, then LogSpeaker. A missing engine disables audio rather
// than failing.
func New(opts Options, clipDir string, table map[gesture.Label]string) Speaker {
	if clipDir != "" {
		clips, err := NewClipSpeaker(clipDir, "", table)
		if err == nil {
			log.Infof("audio: playing clips from %s", clipDir)
			return clips
		}
		log.WithError(err).Warn("audio: clips unavailable, falling back to speech engine")
	}

	tts, err := NewCommandSpeaker(opts)
	if err != nil {
		if errors.Is(err, ErrNoEngine) {
			log.WithError(err).Warn("audio disabled")
		} else {
			log.WithError(err).Error("audio: engine setup failed")
		}
		return LogSpeaker{}
	}
	log.Infof("audio: using %s", tts.Engine())
	return tts
}
