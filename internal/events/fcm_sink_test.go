package events

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/messaging"
)

type fakeMessenger struct {
	sent []*messaging.Message
	err  error
}

func (f *fakeMessenger) Send(_ context.Context, msg *messaging.Message) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return "projects/p/messages/1", nil
}

func TestFCMSink_Publish(t *testing.T) {
	fm := &fakeMessenger{}
	s := NewFCMSinkWithClient(fm)
	if err := s.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(fm.sent) != 1 {
		t.Fatalf("sent %d messages", len(fm.sent))
	}
	msg := fm.sent[0]
	if msg.Topic != "booking-BKG-1234" {
		t.Errorf("topic = %q", msg.Topic)
	}
	if msg.Data["type"] != "booking.accepted" || msg.Data["to"] != "accepted" || msg.Data["occurred_at"] != "2026-03-01T09:00:00Z" {
		t.Errorf("data = %v", msg.Data)
	}
	if msg.Notification == nil || msg.Notification.Title != "Booking accepted" {
		t.Errorf("notification = %+v", msg.Notification)
	}
}

func TestFCMSink_SilentEvents(t *testing.T) {
	fm := &fakeMessenger{}
	e := sampleEvent()
	e.Type = BookingChargesUpdated
	if err := NewFCMSinkWithClient(fm).Publish(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	if fm.sent[0].Notification != nil {
		t.Errorf("charges update should be data-only")
	}
}

func TestFCMSink_SendError(t *testing.T) {
	boom := errors.New("unavailable")
	if err := NewFCMSinkWithClient(&fakeMessenger{err: boom}).Publish(context.Background(), sampleEvent()); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}

func TestFanout(t *testing.T) {
	a, b := NewMemorySink(), NewMemorySink()
	boom := errors.New("down")
	a.FailWith(boom)

	f := Fanout{a, b}
	err := f.Publish(context.Background(), sampleEvent())
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want joined failure", err)
	}
	if len(b.Events()) != 1 {
		t.Errorf("healthy sink got %d events, want 1", len(b.Events()))
	}
	if err := f.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}
