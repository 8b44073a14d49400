// Package logging builds the logrus logger shared by the CLI and the engine.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// FileName is the log file created under the cache log directory.
const FileName = "lineage.log"

// Options configures New.
type Options struct {
	Level  string    // threshold for Stderr; the file always gets debug
	JSON   bool      // JSON instead of text
	LogDir string    // empty disables the file
	Stderr io.Writer // defaults to os.Stderr
}

// New returns a logger writing entries at or above Level to Stderr and every
// debug-or-higher entry to LogDir/lineage.log. The returned close function
// releases the file.
func New(opts Options) (*logrus.Logger, func() error, error) {
	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.DebugLevel)
	if level > logrus.DebugLevel {
		log.SetLevel(level)
	}

	var console logrus.Formatter = &logrus.TextFormatter{DisableTimestamp: true}
	var file logrus.Formatter = &logrus.TextFormatter{DisableColors: true, FullTimestamp: true}
	if opts.JSON {
		console = &logrus.JSONFormatter{}
		file = &logrus.JSONFormatter{}
	}
	log.AddHook(&writerHook{w: stderr, formatter: console, levels: levelsUpTo(level)})

	closeFn := func() error { return nil }
	if opts.LogDir != "" {
		if err := os.MkdirAll(opts.LogDir, 0o755); err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(filepath.Join(opts.LogDir, FileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, err
		}
		fileLevel := logrus.DebugLevel
		if level > fileLevel {
			fileLevel = level
		}
		log.AddHook(&writerHook{w: f, formatter: file, levels: levelsUpTo(fileLevel)})
		closeFn = f.Close
	}
	return log, closeFn, nil
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.PanicLevel)
	return log
}

// writerHook sends entries at the given levels to w.
type writerHook struct {
	w         io.Writer
	formatter logrus.Formatter
	levels    []logrus.Level
}

func (h *writerHook) Levels() []logrus.Level {
	return h.levels
}

func (h *writerHook) Fire(e *logrus.Entry) error {
	b, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	_, err = h.w.Write(b)
	return err
}

func levelsUpTo(max logrus.Level) []logrus.Level {
	var out []logrus.Level
	for _, l := range logrus.AllLevels {
		if l <= max {
			out = append(out, l)
		}
	}
	return out
}
