package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where and how verbosely the service logs.
type Options struct {
	Level string
	// File enables a rotated log file in addition to stdout.
	File string
}

// New builds the process logger. Output always goes to stdout; when a file is
// configured it is tee'd into a lumberjack-rotated file as well.
func New(opts Options) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(level)

	out, err := output(os.Stdout, opts.File)
	if err != nil {
		return nil, err
	}
	logger.SetOutput(out)
	return logger, nil
}

func output(stdout io.Writer, file string) (io.Writer, error) {
	file = strings.TrimSpace(file)
	if file == "" {
		return stdout, nil
	}
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	rotated := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
	return io.MultiWriter(stdout, rotated), nil
}

func parseLevel(raw string) (logrus.Level, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return logrus.InfoLevel, nil
	}
	level, err := logrus.ParseLevel(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", raw, err)
	}
	return level, nil
}
