package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds a JSON structured logger. When filePath is non-empty, output
// goes to a size-rotated file; otherwise to stdout. An unparseable level
// falls back to info.
func New(level, filePath string) *logrus.Logger {
	log := logrus.New()

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)
	log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	log.SetOutput(buildOutput(filePath))

	if err != nil {
		log.WithField("level", level).Warn("unknown log level, using info")
	}
	return log
}

func buildOutput(filePath string) io.Writer {
	if filePath == "" {
		return os.Stdout
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return os.Stdout
	}
	return &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    50, // megabytes
		MaxBackups: 3,
	}
}
