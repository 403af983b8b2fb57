package status

import (
	"log/slog"
	"sync"
	"time"
)

// Message is one state of the status line.
type Message struct {
	// Seq increases with every published message. Subscribers receiving
	// messages out of order should ignore those older than the last one seen.
	Seq uint64

	// Text is the displayed text. It is kept on dismissal so presenters can
	// fade it out.
	Text string

	// Visible reports whether the status line is shown.
	Visible bool

	// Event is the event the message was rendered from; zero for raw text.
	Event Event

	// Duration is the scheduled display time, 0 when sticky.
	Duration time.Duration
}

// BoardOption configures a [Board].
type BoardOption func(*Board)

// WithDurations overrides [DefaultDurations].
func WithDurations(d Durations) BoardOption {
	return func(b *Board) {
		b.durations = d
	}
}

// Board is the single status line of a session. Every new message replaces the
// previous one ("last message wins"); a timed message is dismissed only if no
// newer message was shown before its duration elapsed.
//
// All methods are safe for concurrent use. Subscribers are invoked
// synchronously on the publishing goroutine (or the dismissal timer's) and
// must not block.
type Board struct {
	mu        sync.Mutex
	seq       uint64
	current   Message
	durations Durations
	timer     *time.Timer
	closed    bool

	nextSub uint64
	subs    map[uint64]func(Message)
}

// NewBoard returns an empty, hidden Board.
func NewBoard(opts ...BoardOption) *Board {
	b := &Board{
		durations: DefaultDurations(),
		subs:      make(map[uint64]func(Message)),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Durations returns the board's display durations.
func (b *Board) Durations() Durations {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.durations
}

// SetDurations replaces the display durations for messages published from now
// on. A pending dismissal keeps its original schedule.
func (b *Board) SetDurations(d Durations) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.durations = d
}

// Report shows the text of ev for the duration configured for its kind.
// KindIdle hides the status line like [Board.Hide].
func (b *Board) Report(ev Event) {
	b.mu.Lock()
	d := b.durations.For(ev.Kind)
	text := b.current.Text
	b.mu.Unlock()

	if ev.Kind == KindIdle {
		b.publish(Message{Text: text, Event: ev}, 0)
		return
	}
	b.publish(Message{Text: Text(ev), Visible: true, Event: ev, Duration: d}, d)
}

// Show displays text. A positive d schedules its dismissal; an empty text
// hides the status line.
func (b *Board) Show(text string, d time.Duration) {
	if text == "" {
		b.publish(Message{}, 0)
		return
	}
	b.publish(Message{Text: text, Visible: true, Duration: d}, d)
}

// Hide hides the status line, keeping its last text.
func (b *Board) Hide() {
	b.Report(Event{Kind: KindIdle})
}

// Current returns the latest message.
func (b *Board) Current() Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Subscribe registers fn for every future message and returns a function that
// removes it.
func (b *Board) Subscribe(fn func(Message)) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextSub
	b.nextSub++
	b.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Close stops any pending dismissal and drops all subscribers. Messages
// published after Close are ignored.
func (b *Board) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.closed = true
	clear(b.subs)
}

func (b *Board) publish(msg Message, d time.Duration) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.seq++
	msg.Seq = b.seq
	b.current = msg

	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if d > 0 {
		seq := msg.Seq
		b.timer = time.AfterFunc(d, func() { b.dismiss(seq) })
	}
	subs := b.subscribers()
	b.mu.Unlock()

	slog.Debug("status: message", "seq", msg.Seq, "text", msg.Text, "visible", msg.Visible)
	for _, fn := range subs {
		fn(msg)
	}
}

// dismiss hides the message published as seq unless a newer one replaced it.
func (b *Board) dismiss(seq uint64) {
	b.mu.Lock()
	if b.closed || b.seq != seq {
		b.mu.Unlock()
		return
	}
	b.seq++
	msg := Message{Seq: b.seq, Text: b.current.Text, Event: b.current.Event}
	b.current = msg
	b.timer = nil
	subs := b.subscribers()
	b.mu.Unlock()

	for _, fn := range subs {
		fn(msg)
	}
}

// subscribers snapshots the subscriber set. b.mu must be held.
func (b *Board) subscribers() []func(Message) {
	out := make([]func(Message), 0, len(b.subs))
	for _, fn := range b.subs {
		out = append(out, fn)
	}
	return out
}
