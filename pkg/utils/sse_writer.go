package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"mealrelay/internal/models/response_models"
)

var ErrStreamClosed = errors.New("event stream closed")

// SSEWriter frames stream events as "data: <json>\n\n" and flushes each one.
// Nothing is written after a terminal event.
type SSEWriter struct {
	mu     sync.Mutex
	w      http.ResponseWriter
	closed bool
	ended  bool
}

func NewSSEWriter(w http.ResponseWriter) *SSEWriter {
	return &SSEWriter{w: w}
}

func (s *SSEWriter) Send(event response_models.StreamEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.ended {
		return ErrStreamClosed
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		s.closed = true
		return fmt.Errorf("%w: %v", ErrStreamClosed, err)
	}
	if flusher, ok := s.w.(http.Flusher); ok {
		flusher.Flush()
	}

	if event.Terminal() {
		s.ended = true
	}
	return nil
}

// Terminated reports whether a complete or error event has been written.
func (s *SSEWriter) Terminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}
