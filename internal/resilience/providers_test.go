package resilience

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/tablevox/tablevox/pkg/llm"
	"github.com/tablevox/tablevox/pkg/tts"
)

// flakyLLM fails a fixed number of times before succeeding.
type flakyLLM struct {
	failures int
	calls    int
	reply    string
}

func (f *flakyLLM) StreamCompletion(ctx context.Context, _ llm.CompletionRequest) (<-chan llm.Chunk, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errBackend
	}
	out := make(chan llm.Chunk, 1)
	out <- llm.Chunk{Text: f.reply, FinishReason: "stop"}
	close(out)
	return out, nil
}

func (f *flakyLLM) Complete(ctx context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errBackend
	}
	return &llm.CompletionResponse{Content: f.reply}, nil
}

type fixedSynth struct {
	err   error
	audio string
	calls int
}

func (f *fixedSynth) Synthesize(context.Context, string) (io.ReadCloser, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader(f.audio)), nil
}

var _ tts.Synthesizer = (*fixedSynth)(nil)

func TestLLM_FailsOverToSecondary(t *testing.T) {
	t.Parallel()

	primary := &flakyLLM{failures: 1000}
	secondary := &flakyLLM{reply: "from secondary"}

	f := NewLLM(primary, "primary", Config{})
	f.AddFallback("secondary", secondary)

	resp, err := f.Complete(context.Background(), llm.CompletionRequest{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "from secondary" {
		t.Errorf("content = %q, want the fallback's reply", resp.Content)
	}
	if primary.calls != 1 {
		t.Errorf("primary calls = %d, want 1", primary.calls)
	}
}

func TestLLM_AllBackendsFailing(t *testing.T) {
	t.Parallel()

	f := NewLLM(&flakyLLM{failures: 1000}, "primary", Config{})
	f.AddFallback("secondary", &flakyLLM{failures: 1000})

	if _, err := f.Complete(context.Background(), llm.CompletionRequest{}); !errors.Is(err, ErrAllFailed) {
		t.Errorf("Complete = %v, want ErrAllFailed", err)
	}
}

func TestLLM_OpenBreakerSkipsPrimary(t *testing.T) {
	t.Parallel()

	primary := &flakyLLM{failures: 1000}
	secondary := &flakyLLM{reply: "ok"}

	f := NewLLM(primary, "primary", Config{
		CircuitBreaker: BreakerConfig{MaxFailures: 2},
	})
	f.AddFallback("secondary", secondary)

	for range 3 {
		if _, err := f.Complete(context.Background(), llm.CompletionRequest{}); err != nil {
			t.Fatalf("Complete: %v", err)
		}
	}
	// After two failures the primary's breaker is open; the third round must
	// not have reached it.
	if primary.calls != 2 {
		t.Errorf("primary calls = %d, want 2", primary.calls)
	}
	if secondary.calls != 3 {
		t.Errorf("secondary calls = %d, want 3", secondary.calls)
	}
}

func TestLLM_StreamCompletionFailsOver(t *testing.T) {
	t.Parallel()

	f := NewLLM(&flakyLLM{failures: 1000}, "primary", Config{})
	f.AddFallback("secondary", &flakyLLM{reply: "streamed"})

	chunks, err := f.StreamCompletion(context.Background(), llm.CompletionRequest{})
	if err != nil {
		t.Fatalf("StreamCompletion: %v", err)
	}
	var text strings.Builder
	for c := range chunks {
		text.WriteString(c.Text)
	}
	if text.String() != "streamed" {
		t.Errorf("streamed text = %q", text.String())
	}
}

func TestTTS_FailsOver(t *testing.T) {
	t.Parallel()

	primary := &fixedSynth{err: errBackend}
	secondary := &fixedSynth{audio: "pcm"}

	f := NewTTS(primary, "primary", Config{})
	f.AddFallback("secondary", secondary)

	rc, err := f.Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "pcm" {
		t.Errorf("audio = %q, want the fallback's output", data)
	}
}

func TestGroup_Primary(t *testing.T) {
	t.Parallel()

	p := &flakyLLM{}
	g := NewGroup[llm.Provider](p, "p", Config{})
	if g.Primary() != llm.Provider(p) {
		t.Error("Primary did not return the first entry")
	}
}
