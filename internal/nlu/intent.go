// Package nlu resolves a small, fixed slot set from free-form utterance text
// using deterministic keyword and pattern rules.
//
// This is deliberately not a general NLU engine: intent classification is
// first-match-wins over fixed keyword sets, and every entity extractor is an
// ordered strategy table of (pattern, convert) pairs. All patterns are Go
// regexps, so matching is linearly bounded — safe to run on every utterance
// of a live session.
//
// Every extractor is a total function over its input: unparsable text yields
// "no match", never an error.
package nlu

import "strings"

// Intent is the coarse classification of one utterance.
type Intent string

const (
	IntentMakeReservation Intent = "make_reservation"
	IntentInquiry         Intent = "inquiry"
	IntentCancelOrModify  Intent = "cancel_or_modify"
	IntentGreeting        Intent = "greeting"
	IntentUnknown         Intent = "unknown"
)

// intentKeywords pairs each intent with its trigger keywords, in match
// priority order. Reservation language wins over everything else so that
// "book a table for friday" is a reservation, not an inquiry.
var intentKeywords = []struct {
	intent   Intent
	keywords []string
}{
	{IntentMakeReservation, []string{
		"reservation", "reserve", "book", "table", "booking", "appointment", "spot",
	}},
	{IntentInquiry, []string{
		"menu", "price", "hours", "location", "address",
	}},
	{IntentCancelOrModify, []string{
		"cancel", "change", "modify", "reschedule",
	}},
	{IntentGreeting, []string{
		"hello", "hi", "hey", "good morning", "good evening",
	}},
}

// Classify returns the first intent whose keyword set matches text.
// Matching is case-insensitive substring containment; no match yields
// [IntentUnknown].
func Classify(text string) Intent {
	lower := strings.ToLower(text)
	for _, ik := range intentKeywords {
		for _, kw := range ik.keywords {
			if strings.Contains(lower, kw) {
				return ik.intent
			}
		}
	}
	return IntentUnknown
}
