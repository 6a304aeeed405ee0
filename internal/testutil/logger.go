package testutil

import (
	"go.uber.org/zap"

	"github.com/dtroode/flashcards-server/internal/logger"
)

// MakeNoopLogger returns a logger that discards everything.
func MakeNoopLogger() *logger.Logger {
	return logger.NewFromZap(zap.NewNop())
}
