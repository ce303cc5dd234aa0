// Package session runs the per-conversation event loop that ties the speech
// event stream, utterance segmentation, chat history, and response generation
// together.
//
// A [Session] is driven by exactly one goroutine (the one calling [Session.Run])
// and owns all per-conversation state: the segmenter, the turn history, and in
// structured mode the dialogue manager. Everything that mutates that state —
// word arrival, pause signals, streamed completion deltas — flows through a
// single select loop, so none of it needs locking.
//
// The [Manager] in this package tracks the set of live sessions.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tablevox/tablevox/internal/chat"
	"github.com/tablevox/tablevox/internal/dialogue"
	"github.com/tablevox/tablevox/internal/nlu"
	"github.com/tablevox/tablevox/internal/observe"
	"github.com/tablevox/tablevox/internal/segment"
	"github.com/tablevox/tablevox/pkg/llm"
	"github.com/tablevox/tablevox/pkg/stt"
	"github.com/tablevox/tablevox/pkg/types"
)

// Mode selects how replies are generated.
type Mode string

const (
	// ModeStructured drives the deterministic reservation state machine.
	ModeStructured Mode = "structured"

	// ModeLLM streams the conversation history to an LLM provider and
	// speaks its completion.
	ModeLLM Mode = "llm"
)

// defaultSystemPrompt seeds the chat history when no prompt is configured.
// The %s is the restaurant name.
const defaultSystemPrompt = "You are a friendly and efficient phone assistant for the restaurant %s. " +
	"Help callers make reservations by collecting the party size, date, time, and a name. " +
	"Keep replies short and natural, as they will be spoken aloud."

// Reply is one assistant response emitted by a session.
type Reply struct {
	// Text is the response to speak back to the caller.
	Text string

	// State is the dialogue state after this turn. Empty in llm mode.
	State dialogue.State

	// Completed is true on exactly the turn a reservation finalizes.
	// Always false in llm mode.
	Completed bool
}

// Config carries everything a [Session] needs. Zero values fall back to
// sensible defaults; only llm mode has a hard requirement (a provider).
type Config struct {
	// ID identifies the session in logs and metrics.
	ID string

	// Mode selects the reply engine. Default: [ModeStructured].
	Mode Mode

	// Restaurant is the venue name used in prompts and replies.
	Restaurant string

	// SystemPrompt overrides the generated system prompt.
	SystemPrompt string

	// LLM generates replies in llm mode. Required for [ModeLLM].
	LLM llm.Provider

	// Temperature and MaxTokens are passed through to completion requests.
	Temperature float64
	MaxTokens   int

	// Normalizer, when set, repairs transcripts before intent parsing in
	// structured mode.
	Normalizer *nlu.Normalizer

	// PauseHead selects the pause-prediction head for utterance boundaries.
	// Zero means [segment.DefaultPauseHead].
	PauseHead int

	// OnUtterance, when set, is invoked for every finalized user utterance.
	// Called from the Run goroutine; it must not block.
	OnUtterance func(types.Utterance)

	Metrics *observe.Metrics
	Logger  *slog.Logger

	// Clock overrides the time source. Default: [time.Now].
	Clock func() time.Time
}

// Session is one live conversation. Not safe for concurrent use except where
// noted: [Session.Replies] may be read from any goroutine.
type Session struct {
	cfg     Config
	log     *slog.Logger
	metrics *observe.Metrics
	clock   func() time.Time

	seg     *segment.Segmenter
	history *chat.History
	dlg     *dialogue.Manager

	replies chan Reply

	// Everything below is touched only by the Run goroutine.
	userSpoke     bool
	botSpoke      bool
	silenceMarked bool
	cancelLLM context.CancelFunc
	llmWords  <-chan string
	llmStart  time.Time
	llmText   strings.Builder
}

// New validates cfg and returns a ready Session. The conversation history is
// seeded with the system prompt; no goroutines start until [Session.Run].
func New(cfg Config) (*Session, error) {
	if cfg.Mode == "" {
		cfg.Mode = ModeStructured
	}
	if cfg.Mode != ModeStructured && cfg.Mode != ModeLLM {
		return nil, fmt.Errorf("session: unknown mode %q", cfg.Mode)
	}
	if cfg.Mode == ModeLLM && cfg.LLM == nil {
		return nil, fmt.Errorf("session: llm mode requires an LLM provider")
	}
	if cfg.Restaurant == "" {
		cfg.Restaurant = "our restaurant"
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = fmt.Sprintf(defaultSystemPrompt, cfg.Restaurant)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	var segOpts []segment.Option
	if cfg.PauseHead != 0 {
		segOpts = append(segOpts, segment.WithPauseHead(cfg.PauseHead))
	}

	dlgOpts := []dialogue.Option{dialogue.WithClock(cfg.Clock)}
	if cfg.Normalizer != nil {
		dlgOpts = append(dlgOpts, dialogue.WithNormalizer(cfg.Normalizer))
	}

	return &Session{
		cfg:     cfg,
		log:     cfg.Logger.With("session_id", cfg.ID),
		metrics: cfg.Metrics,
		clock:   cfg.Clock,
		seg:     segment.New(segOpts...),
		history: chat.New(cfg.SystemPrompt),
		dlg:     dialogue.New(cfg.Restaurant, dlgOpts...),
		replies: make(chan Reply, 8),
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.cfg.ID
}

// Replies returns the channel of assistant responses. It is closed when
// [Session.Run] returns. Safe to read from any goroutine.
func (s *Session) Replies() <-chan Reply {
	return s.replies
}

// History returns the conversation turn log. Callers must not touch it while
// Run is active; it is intended for inspection after the session ends.
func (s *Session) History() *chat.History {
	return s.history
}

// State returns the dialogue state. Meaningful only in structured mode and
// only between Run loop iterations (i.e. after Run returns).
func (s *Session) State() dialogue.State {
	return s.dlg.State()
}

// Run consumes the transcription stream until it ends or ctx is cancelled.
//
// When the word channel closes, buffered speech is flushed as a final
// utterance and handled before Run returns nil. When ctx is cancelled any
// partial utterance is discarded and Run returns ctx.Err(). Either way the
// replies channel is closed on return.
func (s *Session) Run(ctx context.Context, stream stt.SessionHandle) error {
	defer close(s.replies)
	defer s.abortCompletion()

	words := stream.Words()
	pauses := stream.Pauses()

	for {
		if words == nil && pauses == nil && s.llmWords == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case w, ok := <-words:
			if !ok {
				words = nil
				if u, ok := s.seg.Flush(); ok {
					s.handleUtterance(ctx, u)
				}
				continue
			}
			s.handleWord(ctx, w)

		case p, ok := <-pauses:
			if !ok {
				pauses = nil
				continue
			}
			if u, ok := s.seg.OnPause(p.Probabilities); ok {
				s.handleUtterance(ctx, u)
			} else {
				s.handleSilence(p.Probabilities)
			}

		case d, ok := <-s.llmWords:
			if !ok {
				s.finishCompletion(ctx)
				continue
			}
			s.handleAssistantDelta(d)
		}
	}
}

// handleWord records one recognised word. The first word of a new utterance
// while the assistant holds the floor is a barge-in: the assistant turn is
// truncated and any in-flight completion dropped.
func (s *Session) handleWord(ctx context.Context, w types.WordEvent) {
	// An in-flight completion counts as the assistant holding the floor even
	// when a silence turn sits at the history's tail.
	if !s.seg.Speaking() && (s.cancelLLM != nil || s.history.ConversationPhase() == chat.PhaseBotSpeaking) {
		s.history.AppendDelta(chat.InterruptionMarker, chat.RoleUser)
		if s.cancelLLM != nil {
			s.abortCompletion()
			s.metrics.RecordInterruption(ctx, s.cfg.ID)
			s.log.Debug("user barged in, dropped in-flight completion")
		}
	}

	delta := w.Text
	if s.userSpoke {
		delta = " " + delta
	}
	s.history.AppendDelta(delta, chat.RoleUser)
	s.userSpoke = true
	s.silenceMarked = false

	s.seg.OnWord(w.Text, w.ArrivalTime)
}

// handleSilence records a silence sentinel when a pause boundary fires while
// the caller has said nothing and no completion is streaming. Marked at most
// once per stretch of silence; the next word clears the guard.
func (s *Session) handleSilence(probabilities []float64) {
	if s.silenceMarked || s.seg.Speaking() || s.llmWords != nil {
		return
	}
	if !s.seg.Boundary(probabilities) {
		return
	}
	s.history.AppendDelta(chat.SilenceMarker, chat.RoleUser)
	s.silenceMarked = true
	s.userSpoke = false
	s.log.Debug("caller silence recorded")
}

// handleUtterance dispatches a finalized utterance to the configured reply
// engine.
func (s *Session) handleUtterance(ctx context.Context, u types.Utterance) {
	s.metrics.RecordUtterance(ctx, s.cfg.ID)
	s.log.Debug("utterance finalized", "text", u.Text)
	if s.cfg.OnUtterance != nil {
		s.cfg.OnUtterance(u)
	}

	switch s.cfg.Mode {
	case ModeLLM:
		s.startCompletion(ctx)
	default:
		s.respondStructured(ctx, u.Text)
	}
}

// respondStructured runs one turn of the reservation state machine and emits
// the reply.
func (s *Session) respondStructured(ctx context.Context, text string) {
	start := s.clock()
	res := s.dlg.ProcessUserInput(text)

	s.recordTurnMetrics(ctx, res)
	s.appendAssistant(res.Reply)
	s.metrics.TurnDuration.Record(ctx, s.clock().Sub(start).Seconds())

	s.emit(ctx, Reply{Text: res.Reply, State: res.State, Completed: res.Completed})
}

// recordTurnMetrics counts the slot extractions this turn contributed and the
// reservation completion, if any.
func (s *Session) recordTurnMetrics(ctx context.Context, res dialogue.Result) {
	e := res.Entities
	if e.PartySize > 0 {
		s.metrics.RecordExtraction(ctx, "party_size")
	}
	if e.Date != "" {
		s.metrics.RecordExtraction(ctx, "date")
	}
	if e.Time != "" {
		s.metrics.RecordExtraction(ctx, "time")
	}
	if e.Name != "" {
		s.metrics.RecordExtraction(ctx, "name")
	}
	if e.Phone != "" {
		s.metrics.RecordExtraction(ctx, "phone")
	}
	if res.Completed {
		s.metrics.ReservationsCompleted.Add(ctx, 1)
		s.log.Info("reservation completed",
			"party_size", res.Record.PartySize,
			"date", res.Record.Date,
			"time", res.Record.Time,
			"name", res.Record.Name,
		)
	}
}

// startCompletion opens a completion stream over the current history and
// routes its output back into the Run loop as word-aligned deltas.
func (s *Session) startCompletion(ctx context.Context) {
	s.abortCompletion()

	llmCtx, cancel := context.WithCancel(ctx)
	chunks, err := s.cfg.LLM.StreamCompletion(llmCtx, llm.CompletionRequest{
		Messages:    s.history.Messages(),
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	})
	if err != nil {
		cancel()
		s.metrics.RecordProviderError(ctx, "llm", "start_stream")
		s.log.Error("completion request failed", "err", err)
		return
	}

	raw := make(chan string)
	go func() {
		defer close(raw)
		for c := range chunks {
			if c.FinishReason == "error" {
				s.metrics.RecordProviderError(llmCtx, "llm", "stream")
				s.log.Error("completion stream error", "err", c.Text)
				return
			}
			if c.Text == "" {
				continue
			}
			select {
			case raw <- c.Text:
			case <-llmCtx.Done():
				return
			}
		}
	}()

	s.cancelLLM = cancel
	s.llmWords = llm.RechunkWords(raw)
	s.llmStart = s.clock()
	s.llmText.Reset()
}

// handleAssistantDelta merges one word-aligned completion delta into the
// history.
func (s *Session) handleAssistantDelta(d string) {
	delta := d
	if s.llmText.Len() == 0 && s.botSpoke {
		delta = " " + delta
	}
	s.history.AppendDelta(delta, chat.RoleAssistant)
	s.llmText.WriteString(d)
}

// finishCompletion runs when the completion stream drains: the accumulated
// text becomes one Reply.
func (s *Session) finishCompletion(ctx context.Context) {
	s.llmWords = nil
	if s.cancelLLM != nil {
		s.cancelLLM()
		s.cancelLLM = nil
	}

	text := strings.TrimSpace(s.llmText.String())
	s.llmText.Reset()
	if text == "" {
		return
	}

	s.botSpoke = true
	s.metrics.LLMDuration.Record(ctx, s.clock().Sub(s.llmStart).Seconds())
	s.emit(ctx, Reply{Text: text})
}

// abortCompletion cancels any in-flight completion and discards its remaining
// output. The partial assistant text already merged into the history stays;
// the interruption sentinel has trimmed it by the time this runs.
func (s *Session) abortCompletion() {
	if s.cancelLLM == nil {
		return
	}
	s.cancelLLM()
	s.cancelLLM = nil

	// Drain off-loop so the rechunker can finish and exit.
	go func(ch <-chan string) {
		for range ch {
		}
	}(s.llmWords)
	s.llmWords = nil
	s.llmText.Reset()
}

// appendAssistant merges a complete reply into the history as an assistant
// delta.
func (s *Session) appendAssistant(text string) {
	if s.botSpoke {
		text = " " + text
	}
	s.history.AppendDelta(text, chat.RoleAssistant)
	s.botSpoke = true
}

// emit delivers a reply without wedging the loop when the consumer is gone.
func (s *Session) emit(ctx context.Context, r Reply) {
	select {
	case s.replies <- r:
	case <-ctx.Done():
	}
}
