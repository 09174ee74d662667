package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"wander-core/domain/event"
	"wander-core/sink"

	"github.com/google/uuid"
)

// Conn adapts one TCP session into an event consumer. Events are
// buffered in a sink channel and drained by a single write pump, so
// delivery never blocks on a slow socket.
type Conn struct {
	id           string
	raw          net.Conn
	log          *slog.Logger
	sink         *sink.Channel
	writeTimeout time.Duration
	closeOnce    sync.Once
	done         chan struct{}
}

func NewConn(log *slog.Logger, raw net.Conn, bufferSize int, writeTimeout time.Duration) *Conn {
	c := &Conn{
		id:           uuid.NewString(),
		raw:          raw,
		log:          log,
		sink:         sink.NewChannel(bufferSize),
		writeTimeout: writeTimeout,
		done:         make(chan struct{}),
	}
	go c.writePump()
	return c
}

func (c *Conn) ID() string { return c.id }

// Consume enqueues an event for the write pump. A closed connection is
// reported so the caller can account for the dropped delivery.
func (c *Conn) Consume(ctx context.Context, e event.ServerEvent) error {
	select {
	case <-c.done:
		return fmt.Errorf("connection %s: %w", c.id, net.ErrClosed)
	default:
	}
	return c.sink.Consume(ctx, e)
}

// Close is idempotent and terminal: a closed connection is never reused.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if err := c.raw.Close(); err != nil {
			c.log.Debug(fmt.Sprintf("Closing connection %s: %v", c.id, err))
		}
	})
}

func (c *Conn) writePump() {
	for {
		select {
		case <-c.done:
			return
		case e := <-c.sink.Events:
			line, err := EncodeEvent(e)
			if err != nil {
				c.log.Error("Failed to encode outgoing event", "event", e.EventName(), "error", err)
				continue
			}
			if err := c.raw.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
				c.Close()
				return
			}
			if _, err := c.raw.Write(line); err != nil {
				c.log.Debug(fmt.Sprintf("Write to %s failed, closing: %v", c.id, err))
				c.Close()
				return
			}
		}
	}
}
