// Package segment converts the recogniser's incremental word and pause-signal
// stream into discrete finished utterances.
//
// The recogniser emits words one at a time, interleaved with periodic pause
// predictions from several detection heads, each tuned to a different silence
// horizon. A shorter horizon segments more aggressively but risks cutting the
// speaker off mid-sentence; a longer one adds latency. The default head is the
// 2.0-second horizon, which balances responsiveness against premature cut-off.
//
// A Segmenter is owned by exactly one conversation session and driven from a
// single goroutine; it is not safe for concurrent use.
package segment

import (
	"log/slog"
	"strings"
	"time"

	"github.com/tablevox/tablevox/pkg/types"
)

const (
	// DefaultPauseHead selects the 2.0-second pause-prediction head.
	DefaultPauseHead = 2

	// pauseThreshold is the probability above which the selected head is
	// treated as an utterance boundary.
	pauseThreshold = 0.5

	// placeholderConfidence is attached to every emitted utterance. The
	// upstream signal carries no calibrated confidence.
	placeholderConfidence = 0.95
)

// Segmenter accumulates word events until the selected pause-prediction head
// reports a boundary, then emits the buffered words as one utterance.
type Segmenter struct {
	pauseHead int

	words     []string
	started   bool
	startTime time.Time
}

// Option is a functional option for configuring a [Segmenter].
type Option func(*Segmenter)

// WithPauseHead selects which pause-prediction head decides utterance
// boundaries. Default: [DefaultPauseHead].
func WithPauseHead(head int) Option {
	return func(s *Segmenter) {
		s.pauseHead = head
	}
}

// New returns a Segmenter in its idle state.
func New(opts ...Option) *Segmenter {
	s := &Segmenter{pauseHead: DefaultPauseHead}
	for _, o := range opts {
		o(s)
	}
	return s
}

// OnWord buffers a recognised word. The first word of an utterance records
// the utterance start time and marks speech as started.
func (s *Segmenter) OnWord(text string, arrival time.Time) {
	if !s.started {
		s.started = true
		s.startTime = arrival
	}
	s.words = append(s.words, text)
}

// OnPause processes a pause-prediction vector. When the selected head exceeds
// the boundary threshold and speech has started, the buffered words are
// emitted as a finished utterance and the segmenter resets to idle. Pause
// signals before any speech are ignored.
//
// A malformed vector (too short for the selected head) fails only that event:
// it is logged and dropped, and the session continues.
func (s *Segmenter) OnPause(probabilities []float64) (types.Utterance, bool) {
	if s.pauseHead < 0 || s.pauseHead >= len(probabilities) {
		slog.Warn("segment: pause event dropped, probability vector too short",
			"len", len(probabilities),
			"head", s.pauseHead,
		)
		return types.Utterance{}, false
	}
	if probabilities[s.pauseHead] <= pauseThreshold || !s.started {
		return types.Utterance{}, false
	}
	return s.emit()
}

// Boundary reports whether the selected head in probabilities exceeds the
// boundary threshold. Unlike [Segmenter.OnPause] it does not consume buffered
// words; callers use it to detect silence while nothing has been said.
func (s *Segmenter) Boundary(probabilities []float64) bool {
	if s.pauseHead < 0 || s.pauseHead >= len(probabilities) {
		return false
	}
	return probabilities[s.pauseHead] > pauseThreshold
}

// Flush emits any buffered words as a final utterance. Call at end of stream
// so trailing speech without a closing pause signal is not lost.
func (s *Segmenter) Flush() (types.Utterance, bool) {
	if !s.started {
		return types.Utterance{}, false
	}
	return s.emit()
}

// Speaking reports whether the segmenter is mid-utterance, i.e. at least one
// word has been buffered since the last boundary.
func (s *Segmenter) Speaking() bool {
	return s.started
}

// emit builds the utterance from the buffer and resets to idle.
func (s *Segmenter) emit() (types.Utterance, bool) {
	u := types.Utterance{
		Timestamp:  float64(s.startTime.UnixNano()) / float64(time.Second),
		Text:       strings.Join(s.words, " "),
		Speaker:    "user",
		Confidence: placeholderConfidence,
	}
	s.words = s.words[:0]
	s.started = false
	s.startTime = time.Time{}
	if u.Text == "" {
		return types.Utterance{}, false
	}
	return u, true
}
