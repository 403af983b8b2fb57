package app_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/MrWong99/voicenav/internal/app"
	"github.com/MrWong99/voicenav/internal/config"
	"github.com/MrWong99/voicenav/internal/gateway"
	"github.com/MrWong99/voicenav/internal/navigator"
	"github.com/MrWong99/voicenav/internal/observe"
	"github.com/MrWong99/voicenav/pkg/dom/htmlpage"
	"github.com/MrWong99/voicenav/pkg/dom/mock"
)

const page = `<html><body>
	<label for="email">E-mail</label><input id="email">
	<button>Enviar</button>
</body></html>`

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{LogLevel: config.LogInfo},
		Browser: config.BrowserConfig{Backend: config.BackendHTML},
		Navigator: config.NavigatorConfig{
			HighlightClear: time.Hour,
		},
	}
}

func newPage(t *testing.T) *htmlpage.Page {
	t.Helper()
	p, err := htmlpage.ParseString(page)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func newApp(t *testing.T, cfg *config.Config, opts ...app.Option) *app.App {
	t.Helper()
	opts = append([]app.Option{app.WithMetrics(testMetrics(t))}, opts...)
	a, err := app.New(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	return a
}

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

func TestNew_OpensBackendFromConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "page.html")
	if err := os.WriteFile(path, []byte(page), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := testConfig()
	cfg.Browser.HTMLFile = path

	a := newApp(t, cfg)
	out, err := a.Navigator().Handle(context.Background(), "clicar em enviar")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if out.Kind != navigator.OutcomeDispatched {
		t.Errorf("outcome = %v, want dispatched", out.Kind)
	}
	if a.Addr() != nil {
		t.Errorf("Addr() = %v, want nil without listen_addr", a.Addr())
	}
}

func TestNew_BackendErrors(t *testing.T) {
	t.Parallel()

	t.Run("not registered", func(t *testing.T) {
		t.Parallel()
		_, err := app.New(context.Background(), testConfig(),
			app.WithRegistry(config.NewRegistry()), app.WithMetrics(testMetrics(t)))
		if !errors.Is(err, config.ErrBackendNotRegistered) {
			t.Errorf("err = %v, want ErrBackendNotRegistered", err)
		}
	})

	t.Run("missing html file", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cfg.Browser.HTMLFile = filepath.Join(t.TempDir(), "missing.html")
		_, err := app.New(context.Background(), cfg, app.WithMetrics(testMetrics(t)))
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("err = %v, want os.ErrNotExist", err)
		}
	})
}

func TestApp_HTTPSurfaces(t *testing.T) {
	t.Parallel()

	p := newPage(t)
	cfg := testConfig()
	cfg.Server.ListenAddr = "127.0.0.1:0"
	a := newApp(t, cfg, app.WithBackend(p))
	base := "http://" + a.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		var resp *http.Response
		waitFor(t, func() bool {
			var err error
			resp, err = http.Get(base + path)
			return err == nil
		})
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, resp.StatusCode)
		}
	}

	wsCtx, wsCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer wsCancel()
	conn, _, err := websocket.Dial(wsCtx, "ws://"+a.Addr().String()+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	if err := wsjson.Write(wsCtx, conn, gateway.ClientMessage{Type: gateway.TypeUtterance, Text: "preencher e-mail com a@b.c"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	for {
		var msg gateway.ServerMessage
		if err := wsjson.Read(wsCtx, conn, &msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if msg.Type != gateway.TypeOutcome {
			continue
		}
		if msg.Outcome.Outcome != "dispatched" || msg.Outcome.Element != "e1" {
			t.Errorf("outcome = %+v, want dispatched on e1", msg.Outcome)
		}
		break
	}
	conn.Close(websocket.StatusNormalClosure, "")
	if v := p.Value("e1"); v != "a@b.c" {
		t.Errorf("e1 value = %q", v)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestApp_StatusMirroredIntoPage(t *testing.T) {
	t.Parallel()

	p := newPage(t)
	a := newApp(t, testConfig(), app.WithBackend(p))

	if err := a.Navigator().SetListening(context.Background(), true); err != nil {
		t.Fatalf("SetListening: %v", err)
	}
	waitFor(t, func() bool {
		text, visible := p.Status()
		return text == "Ouvindo..." && visible
	})

	if err := a.Navigator().SetListening(context.Background(), false); err != nil {
		t.Fatalf("SetListening: %v", err)
	}
	waitFor(t, func() bool {
		_, visible := p.Status()
		return !visible
	})
}

func TestApp_ConsoleEndsRun(t *testing.T) {
	t.Parallel()

	p := newPage(t)
	cfg := testConfig()
	cfg.Console.Enabled = true
	var out bytes.Buffer
	a := newApp(t, cfg,
		app.WithBackend(p),
		app.WithConsoleIO(strings.NewReader("preencher e-mail com x@y.z\n"), &out),
	)

	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run = %v, want nil at end of input", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return at end of console input")
	}
	if v := p.Value("e1"); v != "x@y.z" {
		t.Errorf("e1 value = %q", v)
	}
}

func TestApp_ApplyConfig(t *testing.T) {
	t.Parallel()

	lv := new(slog.LevelVar)
	old := testConfig()
	a := newApp(t, old, app.WithBackend(newPage(t)), app.WithLevelVar(lv))

	if out, _ := a.Navigator().Handle(context.Background(), "clicar em envair"); out.Kind != navigator.OutcomeNotFound {
		t.Fatalf("outcome = %v, want not-found before reload", out.Kind)
	}

	updated := testConfig()
	updated.Server.LogLevel = config.LogDebug
	updated.Finder.FuzzyThreshold = 0.85
	updated.Navigator.ErrorDuration = 7 * time.Second
	a.ApplyConfig(old, updated)

	if lv.Level() != slog.LevelDebug {
		t.Errorf("level = %v, want debug", lv.Level())
	}
	if got := a.Board().Durations().Error; got != 7*time.Second {
		t.Errorf("error duration = %v, want 7s", got)
	}
	if out, _ := a.Navigator().Handle(context.Background(), "clicar em envair"); out.Kind != navigator.OutcomeDispatched {
		t.Errorf("outcome = %v, want dispatched after enabling fuzzy matching", out.Kind)
	}
}

func TestShutdown_ClosesBackendOnce(t *testing.T) {
	t.Parallel()

	b := &mock.Backend{}
	a, err := app.New(context.Background(), testConfig(), app.WithBackend(b), app.WithMetrics(testMetrics(t)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
	if b.CloseCount != 1 {
		t.Errorf("CloseCount = %d, want 1", b.CloseCount)
	}
}

func TestShutdown_DeadlineExceeded(t *testing.T) {
	t.Parallel()

	a, err := app.New(context.Background(), testConfig(), app.WithBackend(&mock.Backend{}), app.WithMetrics(testMetrics(t)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.Shutdown(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Shutdown = %v, want context.Canceled", err)
	}
}
