// Package types defines the shared types used across all TableVox packages.
//
// These types form the lingua franca between the speech event source, the
// utterance segmenter, the chat history, and the dialogue manager. They are
// intentionally minimal — each package defines its own domain types, but
// cross-cutting data structures live here to avoid circular imports.
package types

import "time"

// WordEvent is a single recognised word delivered by the streaming speech
// recogniser. Words arrive incrementally while the user is speaking.
type WordEvent struct {
	// Text is the recognised word, without surrounding whitespace.
	Text string

	// ArrivalTime marks when the word was received from the recogniser.
	// The first word of an utterance fixes the utterance's start time.
	ArrivalTime time.Time
}

// PauseEvent is a periodic semantic voice-activity signal from the
// recogniser. The recogniser runs several pause-prediction heads, each tuned
// to a different silence horizon (0.5 s, 1.0 s, 2.0 s, 3.0 s); Probabilities
// is indexed by head.
type PauseEvent struct {
	// Probabilities holds one pause probability per prediction head,
	// ordered from the shortest to the longest horizon.
	Probabilities []float64
}

// Utterance is a complete, pause-delimited span of user speech.
// It is the record handed to downstream consumers (dialogue manager,
// transcript logging).
type Utterance struct {
	// Timestamp is the utterance start time in Unix epoch seconds.
	// It equals the arrival time of the utterance's first word.
	Timestamp float64 `json:"timestamp"`

	// Text is the utterance content: buffered words joined by single spaces.
	Text string `json:"text"`

	// Speaker identifies who spoke. Always "user" in the current pipeline.
	Speaker string `json:"speaker"`

	// Confidence is a fixed placeholder in [0, 1]. The upstream recogniser
	// provides no calibrated score, so callers must not treat this value as
	// meaningful beyond "present".
	Confidence float64 `json:"confidence"`
}

// Message is a single role-tagged message exchanged with an LLM backend.
type Message struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the text content of the message.
	Content string
}
