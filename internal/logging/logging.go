// Package logging builds the bridge logger.
//
// Protocol traffic owns stdout and stdin, so logs go to stderr plus a
// bridge.log under the cache directory. A log file that cannot be
// opened degrades to stderr alone rather than failing startup.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// New returns a configured logger. An empty file selects the default
// bridge.log location.
func New(level logrus.Level, file string) *logrus.Logger {
	log := logrus.New()
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	log.SetOutput(os.Stderr)

	path := file
	if path == "" {
		path = DefaultPath()
	}
	if path == "" {
		return log
	}

	f, err := openLogFile(path)
	if err != nil {
		log.WithError(err).Warn("log file unavailable, logging to stderr only")
		return log
	}

	log.SetOutput(io.MultiWriter(os.Stderr, f))
	log.WithField("path", path).Info("logging to file")
	return log
}

// DefaultPath returns the bridge.log location under the cache
// directory, or "" when no home can be resolved.
func DefaultPath() string {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, "copilot-bridge", "bridge.log")
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
