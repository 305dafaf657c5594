package goQuiz

import (
	"io"
	"log/slog"

	"github.com/MrEthical07/goQuiz/internal/audit"
)

// AuditEvent is one structured audit record.
type AuditEvent = audit.Event

// AuditSink receives audit events from the engine's dispatcher goroutine.
type AuditSink = audit.Sink

// NoOpSink discards every event.
type NoOpSink = audit.NoOpSink

// ChannelSink forwards events to a buffered channel.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = audit.JSONWriterSink

// SlogSink logs events through an slog.Logger.
type SlogSink = audit.SlogSink

// NewChannelSink returns a ChannelSink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink { return audit.NewChannelSink(buffer) }

// NewJSONWriterSink returns a sink writing JSON lines to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink { return audit.NewJSONWriterSink(w) }

// NewSlogSink returns a sink logging through logger.
func NewSlogSink(logger *slog.Logger) *SlogSink { return audit.NewSlogSink(logger) }
