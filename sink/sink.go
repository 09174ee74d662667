package sink

import (
	"context"

	"wander-core/domain/event"
	"wander-core/errors"
)

// Channel buffers server events for one consumer. The owner of the
// channel (a connection write pump, a test) drains it at its own pace.
type Channel struct {
	Events chan event.ServerEvent
}

func NewChannel(bufferSize int) *Channel {
	return &Channel{Events: make(chan event.ServerEvent, bufferSize)}
}

// Consume hands the event to the owning consumer.
// A full buffer means the consumer is too slow: the event is shed
// rather than blocking the delivery path, and ErrSlowConsumer reports
// the shed so the caller can account for it.
func (s *Channel) Consume(ctx context.Context, e event.ServerEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.ErrSlowConsumer
	}
}
