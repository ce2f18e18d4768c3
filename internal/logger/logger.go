// Package logger builds a *log.Logger that writes to a size/age-rotated
// file under <rootDir>/log, and tees output to stdout when the caller
// passes tee=true. This is the plain-text diagnostic trail adapters and the
// dispatcher write to; structured service events go through zap instead
// (see internal/config for the zap.S() usage pattern).
package logger

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/natefinch/lumberjack"
)

// Options tunes the rotation policy. Zero value yields sane defaults.
type Options struct {
	MaxSizeMB  int // rotate after the file reaches this size
	MaxBackups int // old rotated files to keep
	MaxAgeDays int // days to retain old rotated files
	Compress   bool
}

func (o Options) withDefaults() Options {
	if o.MaxSizeMB == 0 {
		o.MaxSizeMB = 50
	}
	if o.MaxBackups == 0 {
		o.MaxBackups = 7
	}
	if o.MaxAgeDays == 0 {
		o.MaxAgeDays = 30
	}
	return o
}

// New returns a logger that writes to <rootDir>/log/flatradar.log, rotated
// by lumberjack once it exceeds Options.MaxSizeMB. When tee is true, the
// logger also writes to stdout, making local development easier.
func New(rootDir string, tee bool, opts Options) (*log.Logger, error) {
	opts = opts.withDefaults()

	logDir := filepath.Join(rootDir, "log")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, err
	}

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "flatradar.log"),
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	}

	var w io.Writer = rotator
	if tee {
		w = io.MultiWriter(os.Stdout, rotator)
	}

	l := log.New(w, "", log.LstdFlags|log.Lshortfile)
	l.Printf("logger online (tee=%v, rotate=%dMB)", tee, opts.MaxSizeMB)
	return l, nil
}
