package status_test

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/MrWong99/voicenav/internal/status"
	"github.com/MrWong99/voicenav/pkg/command"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ev   status.Event
		want string
	}{
		{status.Event{Kind: status.KindUnrecognized}, "Comando não reconhecido."},
		{status.Event{Kind: status.KindInvalidTarget}, "Comando inválido: target não especificado."},
		{status.Event{Kind: status.KindNotFound, Target: "botão azul"}, `Não encontrei: "botão azul"`},
		{status.Event{Kind: status.KindAmbiguous, Count: 3}, "Encontrei 3 resultados. Diga o número."},
		{status.Event{Kind: status.KindInvalidChoice, Raw: "sete"}, `"sete"? Escolha inválida.`},
		{status.Event{Kind: status.KindListening}, "Ouvindo..."},
		{status.Event{Kind: status.KindHeard, Raw: "clicar em enviar"}, `Você disse: "clicar em enviar"`},
		{status.Event{Kind: status.KindExecuting, Action: command.Click}, "Executando: clicar"},
		{status.Event{Kind: status.KindExecuting, Action: command.Fill}, "Executando: preencher"},
		{status.Event{Kind: status.KindRecognizerError, Raw: "network"}, "Erro: network"},
		{status.Event{Kind: status.KindNoSpeech}, "Não ouvi nada."},
		{status.Event{Kind: status.KindUnsupported}, "API de Voz não suportada."},
		{status.Event{Kind: status.KindPageError}, "Erro ao ler a página."},
		{status.Event{Kind: status.KindIdle}, ""},
		{status.Event{Kind: "bogus"}, ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.ev.Kind), func(t *testing.T) {
			t.Parallel()
			if got := status.Text(tt.ev); got != tt.want {
				t.Errorf("Text(%+v) = %q, want %q", tt.ev, got, tt.want)
			}
		})
	}
}

func TestDurations_For(t *testing.T) {
	t.Parallel()

	d := status.DefaultDurations()
	tests := []struct {
		kind status.Kind
		want time.Duration
	}{
		{status.KindUnrecognized, 3 * time.Second},
		{status.KindInvalidTarget, 3 * time.Second},
		{status.KindNotFound, 3 * time.Second},
		{status.KindInvalidChoice, 3 * time.Second},
		{status.KindNoSpeech, 3 * time.Second},
		{status.KindRecognizerError, 3 * time.Second},
		{status.KindPageError, 3 * time.Second},
		{status.KindExecuting, 2 * time.Second},
		{status.KindUnsupported, 5 * time.Second},
		{status.KindAmbiguous, 0},
		{status.KindListening, 0},
		{status.KindHeard, 0},
	}
	for _, tt := range tests {
		if got := d.For(tt.kind); got != tt.want {
			t.Errorf("For(%s) = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

// recorder collects board messages.
type recorder struct {
	mu   sync.Mutex
	msgs []status.Message
}

func (r *recorder) record(m status.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
}

func (r *recorder) all() []status.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]status.Message(nil), r.msgs...)
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestBoard_ReportPublishesToSubscribers(t *testing.T) {
	t.Parallel()

	b := status.NewBoard()
	defer b.Close()

	var rec recorder
	cancel := b.Subscribe(rec.record)
	defer cancel()

	b.Report(status.Event{Kind: status.KindAmbiguous, Count: 2})

	msgs := rec.all()
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	m := msgs[0]
	if !m.Visible || m.Text != "Encontrei 2 resultados. Diga o número." || m.Seq != 1 {
		t.Errorf("message = %+v", m)
	}
	if m.Duration != 0 {
		t.Errorf("ambiguity prompt should be sticky, got %v", m.Duration)
	}
	if got := b.Current(); got != m {
		t.Errorf("Current = %+v, want %+v", got, m)
	}
}

func TestBoard_TimedMessageIsDismissed(t *testing.T) {
	t.Parallel()

	b := status.NewBoard(status.WithDurations(status.Durations{Error: 20 * time.Millisecond}))
	defer b.Close()

	b.Report(status.Event{Kind: status.KindUnrecognized})
	if !b.Current().Visible {
		t.Fatal("message should be visible immediately")
	}

	waitFor(t, func() bool { return !b.Current().Visible })
	if got := b.Current().Text; got != "Comando não reconhecido." {
		t.Errorf("dismissal should keep the text, got %q", got)
	}
}

func TestBoard_SetDurations(t *testing.T) {
	t.Parallel()

	b := status.NewBoard(status.WithDurations(status.Durations{}))
	defer b.Close()

	want := status.Durations{Error: 20 * time.Millisecond}
	b.SetDurations(want)
	if got := b.Durations(); got != want {
		t.Fatalf("Durations() = %+v, want %+v", got, want)
	}

	b.Report(status.Event{Kind: status.KindNoSpeech})
	waitFor(t, func() bool { return !b.Current().Visible })
}

func TestBoard_LastMessageWins(t *testing.T) {
	t.Parallel()

	b := status.NewBoard(status.WithDurations(status.Durations{Error: 20 * time.Millisecond}))
	defer b.Close()

	b.Report(status.Event{Kind: status.KindNotFound, Target: "x"})
	b.Report(status.Event{Kind: status.KindListening})

	time.Sleep(80 * time.Millisecond)

	cur := b.Current()
	if !cur.Visible || cur.Text != "Ouvindo..." {
		t.Errorf("newer sticky message was dismissed by an older timer: %+v", cur)
	}
}

func TestBoard_SameTextShownTwiceKeepsLatestTimer(t *testing.T) {
	t.Parallel()

	b := status.NewBoard()
	defer b.Close()

	b.Show("Executando: clicar", 30*time.Millisecond)
	time.Sleep(15 * time.Millisecond)
	b.Show("Executando: clicar", 200*time.Millisecond)
	time.Sleep(40 * time.Millisecond)

	if !b.Current().Visible {
		t.Error("re-shown message dismissed by the first timer")
	}
}

func TestBoard_ShowEmptyHides(t *testing.T) {
	t.Parallel()

	b := status.NewBoard()
	defer b.Close()

	b.Show("Ouvindo...", 0)
	b.Show("", 0)
	if b.Current().Visible {
		t.Error("empty Show should hide the status line")
	}

	b.Show("Ouvindo...", 0)
	b.Report(status.Event{Kind: status.KindIdle})
	if b.Current().Visible {
		t.Error("idle event should hide the status line")
	}
}

func TestBoard_HideKeepsText(t *testing.T) {
	t.Parallel()

	b := status.NewBoard()
	defer b.Close()

	b.Show("Ouvindo...", 0)
	b.Hide()

	cur := b.Current()
	if cur.Visible || cur.Text != "Ouvindo..." {
		t.Errorf("Current = %+v", cur)
	}
}

func TestBoard_SequenceIncreases(t *testing.T) {
	t.Parallel()

	b := status.NewBoard()
	defer b.Close()

	var rec recorder
	b.Subscribe(rec.record)

	b.Show("a", 0)
	b.Show("b", 0)
	b.Hide()

	msgs := rec.all()
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].Seq <= msgs[i-1].Seq {
			t.Errorf("seq not increasing: %d then %d", msgs[i-1].Seq, msgs[i].Seq)
		}
	}
}

func TestBoard_SubscribeCancel(t *testing.T) {
	t.Parallel()

	b := status.NewBoard()
	defer b.Close()

	var rec recorder
	cancel := b.Subscribe(rec.record)
	b.Show("a", 0)
	cancel()
	cancel()
	b.Show("b", 0)

	if got := len(rec.all()); got != 1 {
		t.Errorf("got %d messages after cancel, want 1", got)
	}
}

func TestBoard_CloseStopsDismissal(t *testing.T) {
	t.Parallel()

	b := status.NewBoard()

	var rec recorder
	b.Subscribe(rec.record)
	b.Show("Erro: network", 20*time.Millisecond)
	b.Close()

	time.Sleep(50 * time.Millisecond)
	b.Show("after close", 0)

	msgs := rec.all()
	if len(msgs) != 1 {
		t.Errorf("got %d messages, want only the one before Close: %+v", len(msgs), msgs)
	}
}

func TestBoard_ConcurrentPublishers(t *testing.T) {
	t.Parallel()

	b := status.NewBoard(status.WithDurations(status.Durations{Error: time.Millisecond}))
	defer b.Close()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				if i%2 == 0 {
					b.Report(status.Event{Kind: status.KindUnrecognized})
				} else {
					b.Show("Ouvindo...", 0)
				}
			}
		}()
	}
	wg.Wait()

	if b.Current().Seq == 0 {
		t.Error("no message recorded")
	}
}
