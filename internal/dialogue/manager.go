// Package dialogue drives the reservation conversation as a four-state
// machine: greeting, collecting, confirming, complete.
//
// The manager is deliberately deterministic. Every user utterance passes
// through the same path — optional transcript repair, intent classification,
// entity extraction, slot update, state handler — and the reply is assembled
// from fixed templates. There is no generative model in this loop, which is
// what makes the agent's behavior testable turn by turn.
package dialogue

import (
	"fmt"
	"strings"
	"time"

	"github.com/tablevox/tablevox/internal/nlu"
	"github.com/tablevox/tablevox/internal/reservation"
)

// State names a position in the conversation flow.
type State string

const (
	StateGreeting   State = "greeting"
	StateCollecting State = "collecting"
	StateConfirming State = "confirming"
	StateComplete   State = "complete"
)

// Result is the outcome of processing one user utterance.
type Result struct {
	// Reply is the text to speak back to the user.
	Reply string

	// State is the conversation state after the transition.
	State State

	// Intent is the classification of the processed utterance.
	Intent nlu.Intent

	// Entities holds the slot values this utterance contributed.
	Entities nlu.Entities

	// Completed is true on exactly the turn the reservation finalizes.
	Completed bool

	// Record is a snapshot of the reservation after this turn.
	Record reservation.Record
}

var affirmativeWords = []string{"yes", "correct", "right", "confirm", "yep", "yeah", "sure"}

var negativeWords = []string{"no", "wrong", "incorrect", "change"}

// questions maps each missing field to the prompt that asks for it.
var questions = map[reservation.Field]string{
	reservation.FieldPartySize: "How many people will be dining?",
	reservation.FieldDate:      "What date would you like to reserve for?",
	reservation.FieldTime:      "What time would you prefer?",
	reservation.FieldName:      "May I have a name for the reservation?",
}

// Option is a functional option for configuring a [Manager].
type Option func(*Manager)

// WithClock overrides the time source used to resolve relative dates.
// Default: [time.Now].
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithNormalizer enables transcript repair before intent parsing.
func WithNormalizer(n *nlu.Normalizer) Option {
	return func(m *Manager) {
		m.normalizer = n
	}
}

// Manager holds the conversation state and reservation record of one session.
// It is owned by the session event loop and is not safe for concurrent use.
type Manager struct {
	restaurant string
	now        func() time.Time
	normalizer *nlu.Normalizer

	state  State
	record reservation.Record
}

// New returns a [Manager] in the greeting state. restaurant is the venue name
// woven into the greeting and the final confirmation.
func New(restaurant string, opts ...Option) *Manager {
	m := &Manager{
		restaurant: restaurant,
		now:        time.Now,
		state:      StateGreeting,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// State returns the current conversation state.
func (m *Manager) State() State {
	return m.state
}

// Record returns a snapshot of the reservation record.
func (m *Manager) Record() reservation.Record {
	return m.record
}

// Reset returns the manager to the greeting state with an empty record.
func (m *Manager) Reset() {
	m.state = StateGreeting
	m.record.Reset()
}

// ProcessUserInput advances the conversation with one user utterance and
// returns the reply to speak.
//
// Extracted entities are applied to the record before the state handler runs,
// so a single utterance carrying several details ("table for 4 tomorrow at
// 7 pm") fills them all in one turn. Later mentions of a field overwrite
// earlier ones.
func (m *Manager) ProcessUserInput(text string) Result {
	if m.normalizer != nil {
		text = m.normalizer.Normalize(text)
	}

	intent := nlu.Classify(text)
	ents := nlu.Extract(text, m.now())
	m.apply(ents)

	res := Result{Intent: intent, Entities: ents}
	switch m.state {
	case StateGreeting:
		res.Reply = m.handleGreeting(intent, ents)
	case StateCollecting:
		res.Reply = m.handleCollecting(ents)
	case StateConfirming:
		res.Reply, res.Completed = m.handleConfirming(text, ents)
	case StateComplete:
		res.Reply = "Your reservation is already complete! Would you like to make another reservation?"
	default:
		res.Reply = "I'm not sure how to help with that. Let's continue with your reservation."
	}

	res.State = m.state
	res.Record = m.record
	return res
}

// apply copies the non-zero entity values onto the record.
func (m *Manager) apply(ents nlu.Entities) {
	if ents.PartySize > 0 {
		m.record.PartySize = ents.PartySize
	}
	if ents.Date != "" {
		m.record.Date = ents.Date
	}
	if ents.Time != "" {
		m.record.Time = ents.Time
	}
	if ents.Name != "" {
		m.record.Name = ents.Name
	}
	if ents.Phone != "" {
		m.record.Phone = ents.Phone
	}
}

// handleGreeting either welcomes the caller or, when they open with
// reservation language or concrete details, skips the pleasantries and goes
// straight to collecting.
func (m *Manager) handleGreeting(intent nlu.Intent, ents nlu.Entities) string {
	m.state = StateCollecting
	if intent == nlu.IntentMakeReservation || !ents.Empty() {
		return m.handleCollecting(ents)
	}
	return fmt.Sprintf(
		"Welcome to %s! I'd be happy to help you make a reservation. How many people will be dining?",
		m.restaurant)
}

// handleCollecting acknowledges what this turn contributed and asks for the
// highest-priority missing field, or moves to confirmation when the record
// is complete.
func (m *Manager) handleCollecting(ents nlu.Entities) string {
	if m.record.IsComplete() {
		m.state = StateConfirming
		return m.confirmationPrompt()
	}

	reply := m.acknowledge(ents)
	missing := m.record.MissingFields()
	return reply + questions[missing[0]]
}

// acknowledge names the single most significant detail the utterance added,
// in field priority order. One acknowledgment per turn keeps the spoken
// reply short.
func (m *Manager) acknowledge(ents nlu.Entities) string {
	switch {
	case ents.PartySize > 0:
		return fmt.Sprintf("Great! A table for %d. ", ents.PartySize)
	case ents.Date != "":
		return fmt.Sprintf("Perfect, %s. ", reservation.FormatDate(ents.Date))
	case ents.Time != "":
		return fmt.Sprintf("Excellent, %s. ", reservation.FormatTime(ents.Time))
	case ents.Name != "":
		return fmt.Sprintf("Thank you, %s. ", ents.Name)
	}
	return ""
}

// handleConfirming resolves the yes/no question. Corrections win over the
// binary answer: an utterance carrying fresh details reopens collection
// without wiping what is already filled, while an outright denial starts the
// whole reservation over.
func (m *Manager) handleConfirming(text string, ents nlu.Entities) (reply string, completed bool) {
	lower := strings.ToLower(text)

	if containsAny(lower, affirmativeWords) {
		m.state = StateComplete
		return m.finalize(), true
	}

	if containsAny(lower, negativeWords) {
		m.state = StateCollecting
		m.record.Reset()
		return "I apologize for the confusion. Let's start over. How many people will be dining?", false
	}

	if !ents.Empty() {
		m.state = StateCollecting
		return m.handleCollecting(ents), false
	}

	return "I didn't catch that. Could you please confirm if these details are correct? (Yes or No)", false
}

func (m *Manager) confirmationPrompt() string {
	return fmt.Sprintf("Let me confirm your reservation: %s. Is this correct?", m.record.Summary())
}

func (m *Manager) finalize() string {
	return fmt.Sprintf(
		"Perfect! Your reservation is confirmed: %s at %s for %d %s under the name %s. "+
			"We look forward to seeing you at %s! You will receive a confirmation via SMS shortly. "+
			"Is there anything else I can help you with today?",
		reservation.FormatDate(m.record.Date),
		reservation.FormatTime(m.record.Time),
		m.record.PartySize,
		reservation.GuestNoun(m.record.PartySize),
		m.record.Name,
		m.restaurant)
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
