// Package sink delivers synthesized action observations to their destination:
// a JSONL file, an MQTT topic, the log, or any fan-out of those.
package sink

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/offlinefirst/deskpilot/pkg/action"
)

// Observation pairs one synthesized action with the moment it was observed and,
// optionally, the context frame cached before it happened.
type Observation struct {
	Timestamp time.Time
	Action    action.Action
	Frame     []byte
}

// Sink receives observations. Emit must be safe to call from a single
// synthesizer goroutine; Close flushes and releases the destination.
type Sink interface {
	Emit(ctx context.Context, obs Observation) error
	Close() error
}

// record is the wire shape shared by the JSONL and MQTT sinks.
type record struct {
	Timestamp time.Time       `json:"timestamp"`
	Kind      action.Kind     `json:"kind"`
	Summary   string          `json:"summary"`
	Action    json.RawMessage `json:"action"`
	Frame     string          `json:"frame,omitempty"`
}

// newRecord redacts and encodes one observation.
func newRecord(obs Observation, redactor Redactor) (record, error) {
	cleaned := redactor.ApplyAction(obs.Action)
	encoded, err := action.Encode(cleaned)
	if err != nil {
		return record{}, fmt.Errorf("encode action: %w", err)
	}

	rec := record{
		Timestamp: obs.Timestamp.UTC(),
		Kind:      cleaned.Kind(),
		Summary:   action.Summary(cleaned),
		Action:    encoded,
	}
	if len(obs.Frame) > 0 {
		rec.Frame = base64.StdEncoding.EncodeToString(obs.Frame)
	}
	return rec, nil
}

// JSONL appends one JSON record per line to a file.
type JSONL struct {
	mu       sync.Mutex
	file     *os.File
	encoder  *json.Encoder
	redactor Redactor
	frames   bool
}

// NewJSONL opens (or creates) path for appending observations. withFrames
// controls whether cached context frames are embedded in records.
func NewJSONL(path string, redactor Redactor, withFrames bool) (*JSONL, error) {
	if path == "" {
		return nil, errors.New("sink path must not be empty")
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open sink file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetEscapeHTML(false)

	return &JSONL{file: file, encoder: encoder, redactor: redactor, frames: withFrames}, nil
}

// Emit writes one observation as a single line.
func (s *JSONL) Emit(ctx context.Context, obs Observation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.frames {
		obs.Frame = nil
	}
	rec, err := newRecord(obs, s.redactor)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.encoder.Encode(rec); err != nil {
		return fmt.Errorf("write observation: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (s *JSONL) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("close sink file: %w", err)
	}
	return nil
}

// Log writes observation summaries to a logger. Frames are never logged.
type Log struct {
	logger   *slog.Logger
	redactor Redactor
}

// NewLog builds a sink that records observations at info level.
func NewLog(logger *slog.Logger, redactor Redactor) *Log {
	return &Log{logger: logger, redactor: redactor}
}

// Emit logs one observation summary.
func (s *Log) Emit(ctx context.Context, obs Observation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cleaned := s.redactor.ApplyAction(obs.Action)
	s.logger.Info("observed action",
		"kind", cleaned.Kind(),
		"summary", action.Summary(cleaned),
		"at", obs.Timestamp.UTC().Format(time.RFC3339))
	return nil
}

// Close is a no-op.
func (s *Log) Close() error {
	return nil
}

// Fanout delivers each observation to every member sink. The first emit error
// stops delivery for that observation; Close closes every member and returns
// the first failure.
type Fanout []Sink

// Emit forwards to each member in order.
func (f Fanout) Emit(ctx context.Context, obs Observation) error {
	for _, s := range f {
		if err := s.Emit(ctx, obs); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all members.
func (f Fanout) Close() error {
	var first error
	for _, s := range f {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
