// Package logger provides the shared structured logger.
package logger

import (
	"github.com/rs/zerolog"
	"os"
	"time"
)

// InitLog sets up a process-wide zerolog logger writing to stderr.
func InitLog() *zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	return &logger
}
