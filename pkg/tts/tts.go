// Package tts defines the provider interface for text-to-speech backends.
package tts

import (
	"context"
	"io"
)

// Synthesizer converts reply text into audio.
//
// Implementations must be safe for concurrent use; a single synthesizer is
// shared across sessions.
type Synthesizer interface {
	// Synthesize renders text as audio and returns a stream of encoded
	// bytes. The caller must close the returned reader.
	Synthesize(ctx context.Context, text string) (io.ReadCloser, error)
}
