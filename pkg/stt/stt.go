// Package stt defines the provider interface for streaming speech-to-text
// backends.
//
// Unlike transcript-oriented STT APIs, providers here expose the raw event
// stream of an incremental recognizer: individual decoded words and the
// model's pause-probability estimates between decoding steps. Utterance
// boundaries are not decided by the provider; the segmentation layer owns
// that.
package stt

import (
	"context"

	"github.com/tablevox/tablevox/pkg/types"
)

// StreamConfig carries per-session parameters for a transcription stream.
type StreamConfig struct {
	// SampleRate is the PCM sample rate of the audio in Hz. Zero means use
	// the provider default.
	SampleRate int

	// Language is a BCP-47 language code hint. Providers may ignore it.
	Language string
}

// Provider opens streaming transcription sessions.
type Provider interface {
	// StartStream connects to the recognizer and returns a live session.
	// The session must be closed by the caller.
	StartStream(ctx context.Context, cfg StreamConfig) (SessionHandle, error)
}

// SessionHandle is a live transcription session.
//
// The Words and Pauses channels are closed together when the session ends,
// whether by Close, context cancellation, or a connection failure. Callers
// must drain both.
type SessionHandle interface {
	// SendAudio queues a PCM audio chunk for delivery to the recognizer.
	// Returns an error once the session is closed.
	SendAudio(chunk []byte) error

	// Words returns the channel of decoded word events.
	Words() <-chan types.WordEvent

	// Pauses returns the channel of per-step pause probability events.
	Pauses() <-chan types.PauseEvent

	// Close terminates the session and releases the connection. Safe to call
	// more than once.
	Close() error
}
