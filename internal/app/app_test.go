package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tablevox/tablevox/internal/config"
	"github.com/tablevox/tablevox/pkg/stt"
	"github.com/tablevox/tablevox/pkg/types"
)

// fakeStream is a minimal stt.SessionHandle for wiring tests.
type fakeStream struct {
	words  chan types.WordEvent
	pauses chan types.PauseEvent
	once   sync.Once
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		words:  make(chan types.WordEvent, 8),
		pauses: make(chan types.PauseEvent, 8),
	}
}

func (f *fakeStream) SendAudio([]byte) error          { return nil }
func (f *fakeStream) Words() <-chan types.WordEvent   { return f.words }
func (f *fakeStream) Pauses() <-chan types.PauseEvent { return f.pauses }

func (f *fakeStream) Close() error {
	f.once.Do(func() {
		close(f.words)
		close(f.pauses)
	})
	return nil
}

type fakeSTT struct{}

func (fakeSTT) StartStream(context.Context, stt.StreamConfig) (stt.SessionHandle, error) {
	return newFakeStream(), nil
}

// fakeSynth returns canned audio bytes for any text.
type fakeSynth struct {
	lastText string
}

func (f *fakeSynth) Synthesize(_ context.Context, text string) (io.ReadCloser, error) {
	f.lastText = text
	return io.NopCloser(strings.NewReader("RIFFaudio")), nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{ListenAddr: "127.0.0.1:0"},
		Agent:  config.AgentConfig{Restaurant: "Verdura"},
	}
}

func TestNew_RequiresSTT(t *testing.T) {
	t.Parallel()

	if _, err := New(testConfig(), Providers{}); err == nil {
		t.Error("want error when no STT provider is supplied")
	}
}

func TestNew_LLMModeRequiresLLM(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Agent.Mode = config.ModeLLM
	if _, err := New(cfg, Providers{STT: fakeSTT{}}); err == nil {
		t.Error("want error for llm mode without an LLM provider")
	}
}

func TestApp_HealthEndpoints(t *testing.T) {
	t.Parallel()

	a, err := New(testConfig(), Providers{STT: fakeSTT{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest("GET", path, nil)
			rec := httptest.NewRecorder()
			a.srv.Handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("GET %s = %d, want 200; body %s", path, rec.Code, rec.Body)
			}
			var body struct {
				Status string `json:"status"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Status != "ok" {
				t.Errorf("status = %q, want ok", body.Status)
			}
		})
	}
}

func TestApp_MetricsEndpoint(t *testing.T) {
	t.Parallel()

	a, err := New(testConfig(), Providers{STT: fakeSTT{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	a.srv.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d, want 200", rec.Code)
	}
}

func TestApp_Speak(t *testing.T) {
	t.Parallel()

	synth := &fakeSynth{}
	a, err := New(testConfig(), Providers{STT: fakeSTT{}, TTS: synth})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	audio, err := a.Speak(context.Background(), "Your table is booked.")
	if err != nil {
		t.Fatalf("Speak: %v", err)
	}
	defer audio.Close()

	data, err := io.ReadAll(audio)
	if err != nil {
		t.Fatalf("read audio: %v", err)
	}
	if len(data) == 0 {
		t.Error("Speak returned empty audio")
	}
	if synth.lastText != "Your table is booked." {
		t.Errorf("synthesizer saw %q", synth.lastText)
	}
}

func TestApp_SpeakWithoutTTS(t *testing.T) {
	t.Parallel()

	a, err := New(testConfig(), Providers{STT: fakeSTT{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := a.Speak(context.Background(), "hello"); err == nil {
		t.Error("want error when no synthesizer is configured")
	}
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	a, err := New(testConfig(), Providers{STT: fakeSTT{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	// Start a session so shutdown has something to drain.
	time.Sleep(20 * time.Millisecond)
	if _, err := a.Sessions().Start(ctx); err != nil {
		t.Fatalf("Start session: %v", err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v, want nil on clean shutdown", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if n := a.Sessions().Count(); n != 0 {
		t.Errorf("active sessions after shutdown = %d, want 0", n)
	}
}

func TestBuildProviders_Defaults(t *testing.T) {
	t.Parallel()

	reg := DefaultRegistry()
	cfg := testConfig()

	// stt.name empty defaults to kyutai.
	p, err := BuildProviders(cfg, reg)
	if err != nil {
		t.Fatalf("BuildProviders: %v", err)
	}
	if p.STT == nil {
		t.Error("STT provider not built")
	}
	if p.LLM != nil || p.TTS != nil {
		t.Error("LLM/TTS built without configuration")
	}
}

func TestBuildProviders_FullStack(t *testing.T) {
	t.Parallel()

	reg := DefaultRegistry()
	cfg := testConfig()
	cfg.LLM = config.LLMConfig{Name: "mock", Model: "test"}
	cfg.TTS = config.TTSConfig{Name: "cartesia", APIKey: "key", Voice: "v1"}

	p, err := BuildProviders(cfg, reg)
	if err != nil {
		t.Fatalf("BuildProviders: %v", err)
	}
	if p.STT == nil || p.LLM == nil || p.TTS == nil {
		t.Errorf("providers not fully built: %+v", p)
	}
}

func TestBuildProviders_UnknownProvider(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.LLM = config.LLMConfig{Name: "telepathy", Model: "m"}
	if _, err := BuildProviders(cfg, DefaultRegistry()); err == nil {
		t.Error("want error for unregistered provider name")
	}
}
