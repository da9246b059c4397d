package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Event is the canonical audit event model used by internal dispatching and root APIs.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	Tree      string            `json:"tree,omitempty"`
	RecordID  string            `json:"record_id,omitempty"`
	IP        string            `json:"ip,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sink receives emitted audit events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink writes audit events into a buffered channel.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan Event, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line. Encoding failures drop the
// event.
type JSONWriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	if w == nil {
		return &JSONWriterSink{}
	}
	return &JSONWriterSink{enc: json.NewEncoder(w)}
}

func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	if s == nil || s.enc == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.enc.Encode(event)
}

// MarshalLogObject renders the event as zap fields. Empty optional fields are
// omitted and metadata nests under "meta".
func (e Event) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddTime("ts_event", e.Timestamp)
	enc.AddBool("success", e.Success)
	for _, f := range [...]struct{ k, v string }{
		{"user_id", e.UserID},
		{"tree", e.Tree},
		{"record_id", e.RecordID},
		{"ip", e.IP},
		{"error", e.Error},
	} {
		if f.v != "" {
			enc.AddString(f.k, f.v)
		}
	}
	if len(e.Metadata) == 0 {
		return nil
	}
	return enc.AddObject("meta", zapcore.ObjectMarshalerFunc(func(m zapcore.ObjectEncoder) error {
		for k, v := range e.Metadata {
			m.AddString(k, v)
		}
		return nil
	}))
}

// ZapSink writes every event as one structured log entry named after the
// event type. Failed events log at warn level.
type ZapSink struct {
	logger *zap.Logger
}

func NewZapSink(logger *zap.Logger) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger.Named("audit")}
}

func (s *ZapSink) Emit(_ context.Context, event Event) {
	if s == nil {
		return
	}
	level := zapcore.InfoLevel
	if !event.Success {
		level = zapcore.WarnLevel
	}
	if ce := s.logger.Check(level, event.EventType); ce != nil {
		ce.Write(zap.Inline(event))
	}
}
