// Package audio speaks phrases through an external text-to-speech engine or
// a directory of pre-recorded clips.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// ErrNoEngine is returned when no speech engine can be found.
var ErrNoEngine = errors.New("no speech engine available")

// DefaultTimeout bounds a single utterance.
const DefaultTimeout = 10 * time.Second

// Speaker plays a phrase. Implementations log their own failures.
type Speaker interface {
	Speak(phrase string)
}

// Options selects and tunes the speech engine.
type Options struct {
	Command string        // explicit engine binary; empty means auto-detect
	Lang    string        // espeak voice when Voice is empty, e.g. "ru"
	Voice   string        // engine-specific voice name
	RateWPM int           // words per minute; zero keeps the engine default
	Timeout time.Duration // per utterance; zero means DefaultTimeout
}

// engines are tried in order during auto-detection.
var engines = []string{"say", "espeak-ng", "espeak"}

// CommandSpeaker runs a TTS binary once per phrase.
type CommandSpeaker struct {
	path string
	opts Options
}

// NewCommandSpeaker locates the engine binary.
func NewCommandSpeaker(opts Options) (*CommandSpeaker, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	candidates := engines
	if opts.Command != "" {
		candidates = []string{opts.Command}
	}
	for _, name := range candidates {
		if p, err := exec.LookPath(name); err == nil {
			return &CommandSpeaker{path: p, opts: opts}, nil
		}
	}
	return nil, fmt.Errorf("%w: tried %s", ErrNoEngine, strings.Join(candidates, ", "))
}

// Engine returns the resolved engine binary.
func (s *CommandSpeaker) Engine() string {
	return s.path
}

// Speak implements Speaker. It blocks until the engine exits or times out.
func (s *CommandSpeaker) Speak(phrase string) {
	if err := s.Run(context.Background(), phrase); err != nil {
		log.WithError(err).WithField("phrase", phrase).Warn("speech failed")
	}
}

// Run speaks phrase and reports the engine's failure, if any.
func (s *CommandSpeaker) Run(ctx context.Context, phrase string) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.path, s.args(phrase)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("speech timeout after %s", s.opts.Timeout)
	}
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("speech engine failed: %w, stderr: %s", err, msg)
		}
		return fmt.Errorf("speech engine failed: %w", err)
	}
	return nil
}

func (s *CommandSpeaker) args(phrase string) []string {
	var args []string
	switch filepath.Base(s.path) {
	case "say":
		if s.opts.Voice != "" {
			args = append(args, "-v", s.opts.Voice)
		}
		if s.opts.RateWPM > 0 {
			args = append(args, "-r", strconv.Itoa(s.opts.RateWPM))
		}
	default:
		voice := s.opts.Voice
		if voice == "" {
			voice = s.opts.Lang
		}
		if voice != "" {
			args = append(args, "-v", voice)
		}
		if s.opts.RateWPM > 0 {
			args = append(args, "-s", strconv.Itoa(s.opts.RateWPM))
		}
	}
	return append(args, phrase)
}

// LogSpeaker only logs phrases. It stands in when no engine is installed.
type LogSpeaker struct{}

// Speak implements Speaker.
func (LogSpeaker) Speak(phrase string) {
	log.WithField("phrase", phrase).Info("speak (no audio engine)")
}
