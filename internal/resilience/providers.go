package resilience

import (
	"context"
	"io"

	"github.com/tablevox/tablevox/pkg/llm"
	"github.com/tablevox/tablevox/pkg/stt"
	"github.com/tablevox/tablevox/pkg/tts"
)

// LLM implements [llm.Provider] with automatic failover across multiple
// completion backends, each behind its own circuit breaker.
type LLM struct {
	group *Group[llm.Provider]
}

var _ llm.Provider = (*LLM)(nil)

// NewLLM creates an [LLM] with primary as the preferred backend.
func NewLLM(primary llm.Provider, primaryName string, cfg Config) *LLM {
	return &LLM{group: NewGroup(primary, primaryName, cfg)}
}

// AddFallback registers an additional completion backend.
func (f *LLM) AddFallback(name string, provider llm.Provider) {
	f.group.AddFallback(name, provider)
}

// StreamCompletion opens a stream on the first healthy backend. Only the
// initial connection participates in failover; once a stream is established,
// mid-stream errors are surfaced to the caller as usual.
func (f *LLM) StreamCompletion(ctx context.Context, req llm.CompletionRequest) (<-chan llm.Chunk, error) {
	return Do(f.group, func(p llm.Provider) (<-chan llm.Chunk, error) {
		return p.StreamCompletion(ctx, req)
	})
}

// Complete sends the request to the first healthy backend.
func (f *LLM) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return Do(f.group, func(p llm.Provider) (*llm.CompletionResponse, error) {
		return p.Complete(ctx, req)
	})
}

// STT implements [stt.Provider] with failover at stream-open time. A live
// transcription session is bound to whichever backend opened it; failover
// applies to the next StartStream call, not mid-session.
type STT struct {
	group *Group[stt.Provider]
}

var _ stt.Provider = (*STT)(nil)

// NewSTT creates an [STT] with primary as the preferred recogniser.
func NewSTT(primary stt.Provider, primaryName string, cfg Config) *STT {
	return &STT{group: NewGroup(primary, primaryName, cfg)}
}

// AddFallback registers an additional recogniser.
func (f *STT) AddFallback(name string, provider stt.Provider) {
	f.group.AddFallback(name, provider)
}

// StartStream opens a transcription session on the first healthy recogniser.
func (f *STT) StartStream(ctx context.Context, cfg stt.StreamConfig) (stt.SessionHandle, error) {
	return Do(f.group, func(p stt.Provider) (stt.SessionHandle, error) {
		return p.StartStream(ctx, cfg)
	})
}

// TTS implements [tts.Synthesizer] with failover across synthesis backends.
type TTS struct {
	group *Group[tts.Synthesizer]
}

var _ tts.Synthesizer = (*TTS)(nil)

// NewTTS creates a [TTS] with primary as the preferred synthesizer.
func NewTTS(primary tts.Synthesizer, primaryName string, cfg Config) *TTS {
	return &TTS{group: NewGroup(primary, primaryName, cfg)}
}

// AddFallback registers an additional synthesizer.
func (f *TTS) AddFallback(name string, synth tts.Synthesizer) {
	f.group.AddFallback(name, synth)
}

// Synthesize renders text on the first healthy synthesizer.
func (f *TTS) Synthesize(ctx context.Context, text string) (io.ReadCloser, error) {
	return Do(f.group, func(s tts.Synthesizer) (io.ReadCloser, error) {
		return s.Synthesize(ctx, text)
	})
}
