package tagver

import (
	"io"
	"log/slog"
	"sync"
)

var (
	logger   = slog.New(slog.NewTextHandler(io.Discard, nil))
	loggerMu sync.RWMutex
)

// SetLogger sets the logger used for diagnostics such as shallow clone
// warnings and ignored tags. Output is discarded until it is called.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logger = l
}

func log() *slog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}
