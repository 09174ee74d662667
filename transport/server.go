package transport

import (
	"bufio"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"wander-core/domain"
	"wander-core/domain/event"
	"wander-core/errors"
	"wander-core/realtime"
)

type GatewayConfig struct {
	Host                 string
	Port                 int
	ReadTimeout          time.Duration
	WriteTimeout         time.Duration
	ConnectionBufferSize int
}

// Gateway accepts TCP sessions and dispatches their wire events to the
// realtime services. One goroutine per session; all delivered events go
// back through the session's write pump.
type Gateway struct {
	log       *slog.Logger
	config    GatewayConfig
	lifecycle *realtime.Lifecycle
	router    *realtime.Router
	tracker   *realtime.StatusTracker
	notifier  *realtime.Notifier
}

func NewGateway(log *slog.Logger, config GatewayConfig, lifecycle *realtime.Lifecycle,
	router *realtime.Router, tracker *realtime.StatusTracker, notifier *realtime.Notifier) *Gateway {
	return &Gateway{
		log:       log,
		config:    config,
		lifecycle: lifecycle,
		router:    router,
		tracker:   tracker,
		notifier:  notifier,
	}
}

func (g *Gateway) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", g.config.Host, g.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("gateway listen on %s: %w", addr, err)
	}
	return g.serve(ctx, listener)
}

func (g *Gateway) serve(ctx context.Context, listener net.Listener) error {
	stop := context.AfterFunc(ctx, func() { listener.Close() })
	defer stop()
	g.log.Info("Realtime gateway listening", "addr", listener.Addr().String())

	for {
		raw, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || stderrors.Is(err, net.ErrClosed) {
				return nil
			}
			g.log.Warn("Failed to accept connection", "error", err)
			continue
		}
		go g.handle(ctx, raw)
	}
}

func (g *Gateway) handle(ctx context.Context, raw net.Conn) {
	conn := NewConn(g.log, raw, g.config.ConnectionBufferSize, g.config.WriteTimeout)
	release := context.AfterFunc(ctx, conn.Close)
	defer release()
	defer conn.Close()
	defer g.lifecycle.Unbind(ctx, conn)

	g.log.Debug(fmt.Sprintf("New session %s from %s", conn.ID(), raw.RemoteAddr()))

	var boundUser string
	var pending []byte
	reader := bufio.NewReader(raw)
	for {
		if err := raw.SetReadDeadline(time.Now().Add(g.config.ReadTimeout)); err != nil {
			return
		}
		chunk, err := reader.ReadBytes('\n')
		// A timeout hands back whatever was read before it fired; keep
		// those bytes so a frame split across deadlines is not lost.
		pending = append(pending, chunk...)
		if err != nil {
			var netErr net.Error
			if stderrors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			g.log.Debug(fmt.Sprintf("Session %s read ended: %v", conn.ID(), err))
			return
		}
		line := pending
		pending = nil
		g.dispatch(ctx, conn, &boundUser, line)
	}
}

// dispatch routes one wire line. Failures caused by this line go back to
// this session only; other sessions never hear about them.
func (g *Gateway) dispatch(ctx context.Context, conn *Conn, boundUser *string, line []byte) {
	envelope, err := DecodeEnvelope(line)
	if err != nil {
		g.fail(ctx, conn, err.Error())
		return
	}

	if envelope.Event == event.UserConnected {
		g.bind(ctx, conn, boundUser, envelope)
		return
	}
	if *boundUser == "" {
		g.fail(ctx, conn, "session not bound, send userConnected first")
		return
	}

	switch envelope.Event {
	case event.SendMessage:
		var payload SendMessagePayload
		if err := decodePayload(envelope, &payload); err != nil {
			g.fail(ctx, conn, err.Error())
			return
		}
		_, err := g.router.Send(ctx, domain.SendMessageCommand{
			SenderID:   *boundUser,
			ReceiverID: payload.ReceiverID,
			Text:       payload.Text,
		})
		g.report(ctx, conn, err)
	case event.UpdateMessageStatus:
		var payload UpdateStatusPayload
		if err := decodePayload(envelope, &payload); err != nil {
			g.fail(ctx, conn, err.Error())
			return
		}
		_, _, err := g.tracker.UpdateStatus(ctx, domain.UpdateStatusCommand{
			MessageID: payload.MessageID,
			Status:    domain.MessageStatus(payload.Status),
		})
		g.report(ctx, conn, err)
	case event.MarkAsRead:
		var payload MarkReadPayload
		if err := decodePayload(envelope, &payload); err != nil {
			g.fail(ctx, conn, err.Error())
			return
		}
		_, err := g.notifier.MarkRead(ctx, *boundUser, payload.NotificationID)
		g.report(ctx, conn, err)
	case event.MarkAllRead:
		_, err := g.notifier.MarkAllRead(ctx, *boundUser)
		g.report(ctx, conn, err)
	default:
		g.fail(ctx, conn, fmt.Sprintf("unknown event %q", envelope.Event))
	}
}

func (g *Gateway) bind(ctx context.Context, conn *Conn, boundUser *string, envelope Envelope) {
	var payload ConnectPayload
	if err := decodePayload(envelope, &payload); err != nil {
		g.fail(ctx, conn, err.Error())
		return
	}
	if *boundUser != "" && *boundUser != payload.UserID {
		g.fail(ctx, conn, "session already bound to another user")
		return
	}
	if err := g.lifecycle.Bind(ctx, conn, payload.UserID); err != nil {
		g.report(ctx, conn, err)
		return
	}
	*boundUser = payload.UserID
}

// report sends the error back to the originating session. Validation
// details are safe to echo; anything else stays in the logs.
func (g *Gateway) report(ctx context.Context, conn *Conn, err error) {
	if err == nil {
		return
	}
	var validation errors.ValidationError
	if stderrors.As(err, &validation) {
		g.fail(ctx, conn, validation.Error())
		return
	}
	if stderrors.Is(err, errors.ErrNotificationNotFound) || stderrors.Is(err, errors.ErrNotRecipient) {
		g.fail(ctx, conn, err.Error())
		return
	}
	g.log.Error("Failed to handle wire event", "session", conn.ID(), "error", err)
	g.fail(ctx, conn, "internal error")
}

func (g *Gateway) fail(ctx context.Context, conn *Conn, message string) {
	if err := conn.Consume(ctx, event.Failure{Message: message}); err != nil {
		g.log.Debug(fmt.Sprintf("Dropped error event for closed session %s", conn.ID()))
	}
}

func decodePayload(envelope Envelope, out any) error {
	if len(envelope.Data) == 0 {
		return fmt.Errorf("%s without payload", envelope.Event)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("malformed %s payload: %w", envelope.Event, err)
	}
	return nil
}
