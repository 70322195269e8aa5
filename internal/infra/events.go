// README: Builds the booking event sink selected by configuration.
package infra

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"farmhaul/internal/config"
	"farmhaul/internal/events"
)

// SinkDeps carries the clients some drivers need. Unused fields may be zero.
type SinkDeps struct {
	Redis           *redis.Client
	FirebaseProject string
	FirebaseCreds   string
}

// NewEventSink returns one sink per configured driver, fanned out when there
// is more than one.
func NewEventSink(ctx context.Context, cfg config.EventsConfig, deps SinkDeps) (events.Sink, error) {
	if len(cfg.Drivers) == 0 {
		return events.NewLogSink(), nil
	}
	var sinks events.Fanout
	for _, driver := range cfg.Drivers {
		s, err := newSink(ctx, driver, cfg, deps)
		if err != nil {
			_ = sinks.Close()
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return sinks, nil
}

func newSink(ctx context.Context, driver string, cfg config.EventsConfig, deps SinkDeps) (events.Sink, error) {
	switch driver {
	case "log":
		return events.NewLogSink(), nil
	case "redis":
		if deps.Redis == nil {
			return nil, fmt.Errorf("redis event sink: no redis client")
		}
		return events.NewRedisSink(deps.Redis, cfg.Channel), nil
	case "kafka":
		return events.NewKafkaSink(cfg.Brokers, cfg.Topic), nil
	case "amqp":
		return events.NewAMQPSink(cfg.URL, cfg.Exchange)
	case "fcm":
		if deps.FirebaseProject == "" {
			return nil, fmt.Errorf("fcm event sink: no firebase project")
		}
		return events.NewFCMSink(ctx, deps.FirebaseProject, deps.FirebaseCreds)
	default:
		return nil, fmt.Errorf("unknown event driver %q", driver)
	}
}
