package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ppiankov/guardsim/internal/config"
)

// logSink owns the file behind the default logger when log.file is set.
type logSink struct {
	mu   sync.Mutex
	file *os.File
}

var sink logSink

// writer returns the destination for path, reusing the open file when the
// path is unchanged. An empty path means stderr.
func (s *logSink) writer(path string) (io.Writer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file != nil && s.file.Name() == path {
		return s.file, nil
	}
	if s.file != nil {
		_ = s.file.Close()
		s.file = nil
	}
	if path == "" {
		return os.Stderr, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	s.file = f
	return f, nil
}

func (s *logSink) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// configureLogger installs the default slog logger from the log settings.
// Command output stays on stdout regardless.
func configureLogger(cfg *config.Config, overrideLevel string) error {
	level, err := parseLogLevel(cfg.Log.Level, overrideLevel)
	if err != nil {
		return err
	}
	w, err := sink.writer(strings.TrimSpace(cfg.Log.File))
	if err != nil {
		return err
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(w, opts)
	if cfg.Log.Format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// parseLogLevel prefers the --log-level flag over the configured level.
func parseLogLevel(configured, override string) (slog.Level, error) {
	name := strings.TrimSpace(override)
	if name == "" {
		name = strings.TrimSpace(configured)
	}
	if name == "" {
		return slog.LevelInfo, nil
	}
	if strings.EqualFold(name, "warning") {
		name = "warn"
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: want debug, info, warn or error", name)
	}
	return level, nil
}
