// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"bytes"
	"log/slog"
	"sync"
)

// outputTailLines is how many trailing output lines an ExitError keeps.
const outputTailLines = 20

// outputLog forwards bridge output to the structured logger one line at
// a time and remembers the most recent lines for ExitError. os/exec
// copies stdout and stderr from separate goroutines, so both streams
// share one outputLog guarded by mu.
type outputLog struct {
	logger *slog.Logger

	mu      sync.Mutex
	partial map[string][]byte
	tail    []string
}

func newOutputLog(logger *slog.Logger) *outputLog {
	return &outputLog{
		logger:  logger,
		partial: make(map[string][]byte),
	}
}

// stream returns an io.Writer for one named stream.
func (o *outputLog) stream(name string) *streamWriter {
	return &streamWriter{log: o, name: name}
}

type streamWriter struct {
	log  *outputLog
	name string
}

func (w *streamWriter) Write(data []byte) (int, error) {
	w.log.write(w.name, data)
	return len(data), nil
}

func (o *outputLog) write(stream string, data []byte) {
	o.mu.Lock()
	defer o.mu.Unlock()

	buffer := append(o.partial[stream], data...)
	for {
		newline := bytes.IndexByte(buffer, '\n')
		if newline < 0 {
			break
		}
		o.emitLocked(stream, string(bytes.TrimRight(buffer[:newline], "\r")))
		buffer = buffer[newline+1:]
	}
	o.partial[stream] = append([]byte(nil), buffer...)
}

// flush emits any unterminated final lines. Called after the process
// has been reaped and os/exec has finished copying.
func (o *outputLog) flush() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, stream := range []string{"stdout", "stderr"} {
		if remaining := o.partial[stream]; len(remaining) > 0 {
			o.emitLocked(stream, string(remaining))
		}
		delete(o.partial, stream)
	}
}

func (o *outputLog) emitLocked(stream, line string) {
	if line == "" {
		return
	}
	o.logger.Info("bridge output", "stream", stream, "line", line)
	o.tail = append(o.tail, line)
	if len(o.tail) > outputTailLines {
		o.tail = o.tail[len(o.tail)-outputTailLines:]
	}
}

// lines returns a copy of the retained tail.
func (o *outputLog) lines() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.tail...)
}
