// Package gateway exposes a navigator session over a websocket.
//
// A browser-side speech recognizer connects to /ws and sends one JSON message
// per event:
//
//	{"type": "utterance", "text": "clicar em enviar"}
//	{"type": "listening", "active": true}
//	{"type": "error", "code": "no-speech"}
//
// Error codes follow the Web Speech API; a recognizer that cannot run at all
// reports "not-supported".
//
// The gateway pushes every status line change as
// {"type": "status", "status": {...}} and answers each utterance with
// {"type": "outcome", "outcome": {...}}. Status messages are coalesced: a slow
// client only ever receives the most recent one.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/voicenav/internal/navigator"
	"github.com/MrWong99/voicenav/internal/observe"
	"github.com/MrWong99/voicenav/internal/status"
)

// Client message types.
const (
	TypeUtterance = "utterance"
	TypeListening = "listening"
	TypeError     = "error"
)

// Server message types.
const (
	TypeStatus  = "status"
	TypeOutcome = "outcome"
	TypeAck     = "ack"
)

// ClientMessage is a message received from the recognizer.
type ClientMessage struct {
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	Active bool   `json:"active,omitempty"`
	Code   string `json:"code,omitempty"`
}

// StatusPayload is the wire form of a [status.Message].
type StatusPayload struct {
	Seq     uint64 `json:"seq"`
	Kind    string `json:"kind,omitempty"`
	Text    string `json:"text"`
	Visible bool   `json:"visible"`
}

// ServerMessage is a message pushed to the recognizer.
type ServerMessage struct {
	Type    string             `json:"type"`
	Status  *StatusPayload     `json:"status,omitempty"`
	Outcome *navigator.Summary `json:"outcome,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// Session is the navigator surface the gateway drives.
// [*navigator.Navigator] implements it.
type Session interface {
	Handle(ctx context.Context, utterance string) (navigator.Outcome, error)
	SetListening(ctx context.Context, active bool) error
	ReportRecognizerError(code string)
}

// StatusSource publishes status line changes. [*status.Board] implements it.
type StatusSource interface {
	Current() status.Message
	Subscribe(fn func(status.Message)) (cancel func())
}

// Option configures a [Gateway].
type Option func(*Gateway)

// WithOriginPatterns allows cross-origin connections from hosts matching
// patterns (see [websocket.AcceptOptions]). By default only same-origin
// connections are accepted.
func WithOriginPatterns(patterns ...string) Option {
	return func(g *Gateway) {
		g.origins = patterns
	}
}

// Gateway is an http.Handler serving the websocket endpoint.
type Gateway struct {
	session Session
	status  StatusSource
	origins []string
}

var _ http.Handler = (*Gateway)(nil)

// New returns a Gateway forwarding to session and streaming status from src.
func New(session Session, src StatusSource, opts ...Option) *Gateway {
	g := &Gateway{session: session, status: src}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Register mounts the gateway at GET /ws.
func (g *Gateway) Register(mux *http.ServeMux) {
	mux.Handle("GET /ws", g)
}

// ServeHTTP upgrades the request and serves the connection until either side
// closes it.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: g.origins})
	if err != nil {
		observe.Logger(r.Context()).Warn("gateway: accept", "err", err)
		return
	}
	defer conn.CloseNow()

	log := observe.Logger(r.Context()).With("remote", r.RemoteAddr)
	log.Info("gateway: client connected")

	err = g.serve(r.Context(), conn)
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		log.Info("gateway: client disconnected")
		return
	}
	if errors.Is(err, context.Canceled) {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	log.Warn("gateway: connection failed", "err", err)
	conn.Close(websocket.StatusInternalError, "")
}

func (g *Gateway) serve(ctx context.Context, conn *websocket.Conn) error {
	eg, ctx := errgroup.WithContext(ctx)

	latest := make(chan status.Message, 1)
	cancel := g.status.Subscribe(func(m status.Message) { offer(latest, m) })
	defer cancel()
	offer(latest, g.status.Current())

	eg.Go(func() error {
		var sent uint64
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case m := <-latest:
				if m.Seq != 0 && m.Seq <= sent {
					continue
				}
				sent = m.Seq
				if err := wsjson.Write(ctx, conn, statusMessage(m)); err != nil {
					return fmt.Errorf("gateway: write status: %w", err)
				}
			}
		}
	})

	eg.Go(func() error {
		for {
			var msg ClientMessage
			if err := wsjson.Read(ctx, conn, &msg); err != nil {
				return err
			}
			reply, ok := g.dispatch(ctx, msg)
			if !ok {
				continue
			}
			if err := wsjson.Write(ctx, conn, reply); err != nil {
				return fmt.Errorf("gateway: write reply: %w", err)
			}
		}
	})

	return eg.Wait()
}

// dispatch applies one client message. The boolean is false when no reply is
// due.
func (g *Gateway) dispatch(ctx context.Context, msg ClientMessage) (ServerMessage, bool) {
	switch msg.Type {
	case TypeUtterance:
		out, err := g.session.Handle(ctx, msg.Text)
		sum := out.Summary()
		if err != nil {
			sum.Error = err.Error()
		}
		return ServerMessage{Type: TypeOutcome, Outcome: &sum}, true

	case TypeListening:
		if err := g.session.SetListening(ctx, msg.Active); err != nil {
			return ServerMessage{Type: TypeAck, Error: err.Error()}, true
		}
		return ServerMessage{Type: TypeAck}, true

	case TypeError:
		g.session.ReportRecognizerError(msg.Code)
		return ServerMessage{}, false
	}
	slog.Debug("gateway: unknown message type", "type", msg.Type)
	return ServerMessage{Type: TypeError, Error: fmt.Sprintf("unknown message type %q", msg.Type)}, true
}

func statusMessage(m status.Message) ServerMessage {
	return ServerMessage{
		Type: TypeStatus,
		Status: &StatusPayload{
			Seq:     m.Seq,
			Kind:    string(m.Event.Kind),
			Text:    m.Text,
			Visible: m.Visible,
		},
	}
}

// offer replaces the pending message in ch with m without blocking.
func offer(ch chan status.Message, m status.Message) {
	for {
		select {
		case ch <- m:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
