package kyutai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/tablevox/tablevox/pkg/stt"
)

func TestParseServerEvent(t *testing.T) {
	t.Parallel()

	arrival := time.Date(2025, 3, 10, 18, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		data string
		kind eventKind
	}{
		{"word", `{"type":"Word","text":"hello"}`, eventWord},
		{"step", `{"type":"Step","prs":[0.1,0.2,0.8,0.9]}`, eventPause},
		{"step without prs", `{"type":"Step"}`, eventPause},
		{"empty word dropped", `{"type":"Word","text":""}`, eventIgnored},
		{"ready ignored", `{"type":"Ready"}`, eventIgnored},
		{"marker ignored", `{"type":"Marker","id":3}`, eventIgnored},
		{"malformed json ignored", `{"type":`, eventIgnored},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			word, pause, kind := parseServerEvent([]byte(tt.data), arrival)
			if kind != tt.kind {
				t.Fatalf("kind = %d, want %d", kind, tt.kind)
			}
			switch kind {
			case eventWord:
				if word.Text != "hello" || !word.ArrivalTime.Equal(arrival) {
					t.Errorf("word = %+v", word)
				}
			case eventPause:
				if tt.name == "step" && len(pause.Probabilities) != 4 {
					t.Errorf("probabilities = %v, want 4 heads", pause.Probabilities)
				}
			}
		})
	}
}

func TestProvider_BuildURL(t *testing.T) {
	t.Parallel()

	p, err := New("", WithSampleRate(16000))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := p.buildURL(stt.StreamConfig{SampleRate: 24000, Language: "en"})
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}
	want := "ws://127.0.0.1:8080/api/asr-streaming?language=en&sample_rate=24000"
	if got != want {
		t.Errorf("url = %q, want %q", got, want)
	}

	// Config zero falls back to the provider default.
	got, err = p.buildURL(stt.StreamConfig{})
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}
	if want := "ws://127.0.0.1:8080/api/asr-streaming?sample_rate=16000"; got != want {
		t.Errorf("url = %q, want %q", got, want)
	}
}

// Close must not wait for the server to speak: a quiet connection leaves the
// read loop blocked in conn.Read, and Close has to unblock it itself.
func TestSession_CloseOnQuietServer(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()
		// Consume client messages, send nothing back.
		for {
			if _, _, err := conn.Read(r.Context()); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	p, err := New("ws" + strings.TrimPrefix(srv.URL, "http"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sess, err := p.StartStream(context.Background(), stt.StreamConfig{})
	if err != nil {
		t.Fatalf("StartStream: %v", err)
	}

	closed := make(chan struct{})
	go func() {
		_ = sess.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(3 * time.Second):
		t.Fatal("Close did not return within 3s")
	}

	// The read loop closes the event channels on exit.
	if _, ok := <-sess.Words(); ok {
		t.Error("words channel still open after Close")
	}
	if _, ok := <-sess.Pauses(); ok {
		t.Error("pauses channel still open after Close")
	}

	if err := sess.SendAudio([]byte{0}); err == nil {
		t.Error("SendAudio should fail on a closed session")
	}
}
