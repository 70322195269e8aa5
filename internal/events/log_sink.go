package events

import (
	"context"
	"log"
)

// LogSink writes events to the standard logger. Used when no broker is configured.
type LogSink struct{}

func NewLogSink() *LogSink { return &LogSink{} }

func (LogSink) Publish(_ context.Context, e Event) error {
	log.Printf("event %s booking=%s %s->%s actor=%s", e.Type, e.BookingRef, e.From, e.To, e.ActorID)
	return nil
}

func (LogSink) Close() error { return nil }
