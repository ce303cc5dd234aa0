// Package chat maintains the ordered, role-tagged turn log of one
// conversation.
//
// Turn content grows by delta appends: the streaming pipeline delivers user
// speech and assistant responses in fragments, and each fragment is merged
// onto the most recent turn of the matching role. Two sentinel deltas carry
// control semantics — [InterruptionMarker] truncates the assistant's
// in-progress turn when the user barges in, and [SilenceMarker] records that
// the user stayed silent when given the floor.
//
// A History is owned by exactly one conversation session and mutated from a
// single goroutine (the session event loop); it is not safe for concurrent
// use.
package chat

import (
	"fmt"
	"strings"

	"github.com/tablevox/tablevox/pkg/types"
)

// Sentinel deltas recognised by [History.AppendDelta].
const (
	// InterruptionMarker truncates trailing whitespace off the most recent
	// assistant turn. Sent when the user starts speaking over the assistant.
	InterruptionMarker = "\x00"

	// SilenceMarker records a silent user turn as an empty user message.
	// Downstream consumers treat empty-text turns as semantically distinct
	// from absent ones.
	SilenceMarker = "[USER_SILENCE]"
)

// Role tags who produced a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one role-tagged message in the conversation log.
type Turn struct {
	Role    Role
	Content string
}

// Phase is the derived "who is talking" state of the conversation. It is a
// pure function of the history's final turn and is never stored.
type Phase string

const (
	PhaseWaitingForUser Phase = "waiting_for_user"
	PhaseUserSpeaking   Phase = "user_speaking"
	PhaseBotSpeaking    Phase = "bot_speaking"
)

// History is the ordered turn log of one conversation. It always begins with
// a system turn.
type History struct {
	turns []Turn
}

// New creates a History seeded with the given system prompt as its first turn.
func New(systemPrompt string) *History {
	return &History{
		turns: []Turn{{Role: RoleSystem, Content: systemPrompt}},
	}
}

// AppendDelta merges a message fragment into the history and reports whether
// a new turn was created.
//
// Sentinels are handled first: [InterruptionMarker] trims trailing whitespace
// off the last assistant turn (found by scanning backward) and appends
// nothing; [SilenceMarker] appends a new empty user turn.
//
// For ordinary text the delta is concatenated onto the last turn whose role
// equals role — which, when roles interleave, may not be the final turn of
// the history — or starts a new turn when no turn of that role exists yet.
func (h *History) AppendDelta(delta string, role Role) bool {
	if delta == InterruptionMarker {
		for i := len(h.turns) - 1; i >= 0; i-- {
			if h.turns[i].Role == RoleAssistant {
				h.turns[i].Content = strings.TrimRight(h.turns[i].Content, " \t\n\r")
				break
			}
		}
		return false
	}

	if delta == SilenceMarker {
		h.turns = append(h.turns, Turn{Role: RoleUser})
		return true
	}

	for i := len(h.turns) - 1; i >= 0; i-- {
		if h.turns[i].Role == role {
			h.turns[i].Content += delta
			return false
		}
	}
	h.turns = append(h.turns, Turn{Role: role, Content: delta})
	return true
}

// ConversationPhase derives the current phase from the final turn:
// assistant → bot speaking; user with non-blank content → user speaking;
// user with blank content, or system → waiting for user.
//
// Any other role is an invariant violation by the caller and panics; roles
// are assigned exclusively by this package and the session loop, so an
// unknown role can only mean corrupted state.
func (h *History) ConversationPhase() Phase {
	if len(h.turns) == 0 {
		return PhaseWaitingForUser
	}
	last := h.turns[len(h.turns)-1]
	switch last.Role {
	case RoleAssistant:
		return PhaseBotSpeaking
	case RoleUser:
		if strings.TrimSpace(last.Content) != "" {
			return PhaseUserSpeaking
		}
		return PhaseWaitingForUser
	case RoleSystem:
		return PhaseWaitingForUser
	default:
		panic(fmt.Sprintf("chat: unknown role %q in history", last.Role))
	}
}

// SetSystemPrompt replaces the content of the system turn in place. If the
// history has no system turn (after Clear(false)), one is prepended.
func (h *History) SetSystemPrompt(prompt string) {
	for i := range h.turns {
		if h.turns[i].Role == RoleSystem {
			h.turns[i].Content = prompt
			return
		}
	}
	h.turns = append([]Turn{{Role: RoleSystem, Content: prompt}}, h.turns...)
}

// Clear resets the history. With keepSystem it retains only the system turn
// (if one exists); otherwise the history becomes empty.
func (h *History) Clear(keepSystem bool) {
	if keepSystem {
		for _, t := range h.turns {
			if t.Role == RoleSystem {
				h.turns = []Turn{t}
				return
			}
		}
	}
	h.turns = nil
}

// Recent returns the last limit turns in order. A limit larger than the
// history returns everything; a non-positive limit returns nil.
func (h *History) Recent(limit int) []Turn {
	if limit <= 0 {
		return nil
	}
	start := len(h.turns) - limit
	if start < 0 {
		start = 0
	}
	out := make([]Turn, len(h.turns)-start)
	copy(out, h.turns[start:])
	return out
}

// Len returns the number of turns.
func (h *History) Len() int {
	return len(h.turns)
}

// Turns returns a copy of the full turn log.
func (h *History) Turns() []Turn {
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Messages converts the turn log into LLM messages, ready to hand to a
// completion request.
func (h *History) Messages() []types.Message {
	out := make([]types.Message, len(h.turns))
	for i, t := range h.turns {
		out[i] = types.Message{Role: string(t.Role), Content: t.Content}
	}
	return out
}
