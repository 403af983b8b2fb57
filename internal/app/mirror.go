package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/MrWong99/voicenav/internal/status"
	"github.com/MrWong99/voicenav/pkg/dom"
)

// mirrorTimeout bounds one in-page status update.
const mirrorTimeout = 2 * time.Second

// statusMirror copies board messages into the page's own status box. Board
// subscribers must not block, so messages are handed to a goroutine through a
// one-slot channel that always holds the latest message.
type statusMirror struct {
	display dom.StatusDisplay
	latest  chan status.Message
	done    chan struct{}
	exited  chan struct{}
}

func newStatusMirror(d dom.StatusDisplay) *statusMirror {
	m := &statusMirror{
		display: d,
		latest:  make(chan status.Message, 1),
		done:    make(chan struct{}),
		exited:  make(chan struct{}),
	}
	go m.loop()
	return m
}

func (m *statusMirror) offer(msg status.Message) {
	for {
		select {
		case m.latest <- msg:
			return
		default:
		}
		select {
		case <-m.latest:
		default:
		}
	}
}

func (m *statusMirror) loop() {
	defer close(m.exited)
	var shown uint64
	for {
		select {
		case <-m.done:
			return
		case msg := <-m.latest:
			if msg.Seq <= shown {
				continue
			}
			shown = msg.Seq
			ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
			if err := m.display.ShowStatus(ctx, msg.Text, msg.Visible); err != nil {
				slog.Warn("app: mirror status into page", "err", err)
			}
			cancel()
		}
	}
}

// close stops the goroutine and waits for an in-flight update.
func (m *statusMirror) close() {
	close(m.done)
	<-m.exited
}
