// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger setup.
type Options struct {
	Level    string // logrus level name; empty means info
	Dir      string // rotating file sink directory; empty disables it
	Name     string // log file base name, usually the binary name
	NoColors bool
	Caller   bool // include file:line of the call site
}

// Setup configures the standard logrus logger and returns a closer for the
// file sink, if any.
func Setup(opts Options) (io.Closer, error) {
	level := log.InfoLevel
	if opts.Level != "" {
		lvl, err := log.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = lvl
	}
	log.SetLevel(level)

	f := &formatter.Formatter{
		NoColors:        opts.NoColors,
		TimestampFormat: "2006-01-02 15:04:05.000",
		HideKeys:        false,
		FieldsOrder:     []string{"session", "component", "label"},
		CallerFirst:     true,
	}
	if opts.Caller {
		f.CustomCallerFormatter = func(fr *runtime.Frame) string {
			s := strings.Split(fr.Function, ".")
			return fmt.Sprintf(" [%s:%d][%s()]", path.Base(fr.File), fr.Line, s[len(s)-1])
		}
	}
	log.SetFormatter(f)
	log.SetReportCaller(opts.Caller)

	if opts.Dir == "" {
		log.SetOutput(os.Stderr)
		return nopCloser{}, nil
	}

	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	name := opts.Name
	if name == "" {
		name = "soyle"
	}
	file := &lumberjack.Logger{
		Filename:   filepath.Join(opts.Dir, name+".log"),
		LocalTime:  true,
		Compress:   true,
		MaxSize:    20,
		MaxAge:     7,
		MaxBackups: 3,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, file))
	return file, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
