package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Messenger is the subset of messaging.Client the sink uses.
type Messenger interface {
	Send(ctx context.Context, msg *messaging.Message) (string, error)
}

// FCMSink pushes each event as a data message to the booking's FCM topic.
// Apps subscribe both parties to TopicFor(ref) when a booking is created.
type FCMSink struct {
	client Messenger
}

func NewFCMSink(ctx context.Context, projectID, credentialsFile string) (*FCMSink, error) {
	opts := []option.ClientOption{}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialising firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialising firebase messaging client: %w", err)
	}
	return &FCMSink{client: client}, nil
}

func NewFCMSinkWithClient(c Messenger) *FCMSink {
	return &FCMSink{client: c}
}

// TopicFor returns the FCM topic carrying one booking's updates.
func TopicFor(ref string) string {
	return "booking-" + ref
}

func (s *FCMSink) Publish(ctx context.Context, e Event) error {
	msg := &messaging.Message{
		Topic: TopicFor(e.BookingRef),
		Data: map[string]string{
			"type":        string(e.Type),
			"booking_ref": e.BookingRef,
			"from":        e.From,
			"to":          e.To,
			"actor_id":    string(e.ActorID),
			"occurred_at": e.OccurredAt.UTC().Format(time.RFC3339),
		},
		Android: &messaging.AndroidConfig{Priority: "high"},
	}
	if title, body := notificationText(e); title != "" {
		msg.Notification = &messaging.Notification{Title: title, Body: body}
	}
	if _, err := s.client.Send(ctx, msg); err != nil {
		return fmt.Errorf("sending FCM for %s %s: %w", e.BookingRef, e.Type, err)
	}
	return nil
}

func (s *FCMSink) Close() error { return nil }

// notificationText is empty for events that should update the app silently.
func notificationText(e Event) (string, string) {
	switch e.Type {
	case BookingAccepted:
		return "Booking accepted", fmt.Sprintf("A carrier accepted booking %s", e.BookingRef)
	case BookingRejected:
		return "Booking declined", fmt.Sprintf("Booking %s was declined", e.BookingRef)
	case BookingCancelled:
		return "Booking cancelled", fmt.Sprintf("Booking %s was cancelled", e.BookingRef)
	case BookingStatusUpdated:
		return "Trip update", fmt.Sprintf("Booking %s is now %s", e.BookingRef, strings.ReplaceAll(e.To, "_", " "))
	}
	return "", ""
}
