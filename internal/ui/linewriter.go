package ui

import (
	"bytes"
	"io"
	"strings"
	"sync"
)

type lineWriter struct {
	mu      sync.Mutex
	pending []byte
	emit    func(line string)
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = append(w.pending, p...)
	for {
		i := bytes.IndexByte(w.pending, '\n')
		if i == -1 {
			break
		}
		line := strings.TrimSuffix(string(w.pending[:i]), "\r")
		w.pending = w.pending[i+1:]
		if line != "" {
			w.emit(line)
		}
	}
	return len(p), nil
}

// DebugWriter returns a writer that logs each complete line at debug level.
func (l *Logger) DebugWriter() io.Writer {
	return &lineWriter{emit: func(line string) { l.Debug("%s", line) }}
}
