package nlu

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

const (
	normPhoneticThreshold = 0.80
	normFuzzyThreshold    = 0.90

	// Tokens shorter than this are never rewritten. Short function words
	// ("to", "for", "two") are too close to each other phonetically.
	minCorrectableLen = 4
)

// schedulingVocabulary is the closed word set the extractors key on. A
// streaming transcriber frequently mangles exactly these words, so they are
// the only ones worth repairing.
var schedulingVocabulary = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
	"january", "february", "march", "april", "june", "july", "august",
	"september", "october", "november", "december",
	"three", "four", "five", "seven", "eight", "nine",
	"today", "tonight", "tomorrow",
	"reservation", "reserve", "table", "people", "person", "guests",
	"morning", "evening", "afternoon",
}

// Normalizer repairs misheard scheduling vocabulary in transcript text before
// entity extraction. It runs two stages per token: Double Metaphone code
// overlap selects phonetic candidates, then Jaro-Winkler similarity ranks
// them; with no phonetic candidate a stricter pure-similarity fallback
// applies. Tokens below threshold pass through untouched, so the worst case
// is the unrepaired transcript.
//
// A Normalizer is read-only after construction and safe for concurrent use.
type Normalizer struct {
	phoneticThreshold float64
	fuzzyThreshold    float64

	vocab      []string
	vocabSet   map[string]struct{}
	vocabCodes []map[string]struct{}
}

// NormalizerOption is a functional option for configuring a [Normalizer].
type NormalizerOption func(*Normalizer)

// WithVocabulary replaces the default scheduling vocabulary.
func WithVocabulary(words []string) NormalizerOption {
	return func(n *Normalizer) {
		n.vocab = words
	}
}

// WithPhoneticThreshold sets the minimum Jaro-Winkler score for a
// phonetically-matched correction. Default: 0.80.
func WithPhoneticThreshold(threshold float64) NormalizerOption {
	return func(n *Normalizer) {
		n.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score for a correction
// with no phonetic code overlap. Default: 0.90.
func WithFuzzyThreshold(threshold float64) NormalizerOption {
	return func(n *Normalizer) {
		n.fuzzyThreshold = threshold
	}
}

// NewNormalizer returns a [Normalizer] with Double Metaphone codes
// precomputed for its vocabulary.
func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{
		phoneticThreshold: normPhoneticThreshold,
		fuzzyThreshold:    normFuzzyThreshold,
		vocab:             schedulingVocabulary,
	}
	for _, o := range opts {
		o(n)
	}

	n.vocabSet = make(map[string]struct{}, len(n.vocab))
	n.vocabCodes = make([]map[string]struct{}, len(n.vocab))
	for i, w := range n.vocab {
		n.vocabSet[w] = struct{}{}
		n.vocabCodes[i] = metaphoneCodes(w)
	}
	return n
}

// Normalize returns text with misheard vocabulary words replaced by their
// closest match. Capitalized tokens are left alone; they are likely names,
// and rewriting a name is worse than missing a weekday.
func (n *Normalizer) Normalize(text string) string {
	fields := strings.Fields(text)
	changed := false
	for i, f := range fields {
		core, prefix, suffix := splitPunct(f)
		repaired, ok := n.correct(core)
		if !ok {
			continue
		}
		fields[i] = prefix + repaired + suffix
		changed = true
	}
	if !changed {
		return text
	}
	return strings.Join(fields, " ")
}

// correct returns the vocabulary replacement for token, if any.
func (n *Normalizer) correct(token string) (string, bool) {
	if len(token) < minCorrectableLen || !isLowerAlpha(token) {
		return "", false
	}
	if _, ok := n.vocabSet[token]; ok {
		return "", false
	}

	tokenCodes := metaphoneCodes(token)

	var (
		best         string
		bestScore    float64
		bestPhonetic bool
	)
	for i, w := range n.vocab {
		score := matchr.JaroWinkler(token, w, false)
		phonetic := codesOverlap(tokenCodes, n.vocabCodes[i])

		switch {
		case phonetic && score >= n.phoneticThreshold:
			if !bestPhonetic || score > bestScore {
				best, bestScore, bestPhonetic = w, score, true
			}
		case !phonetic && !bestPhonetic && score >= n.fuzzyThreshold:
			if score > bestScore {
				best, bestScore = w, score
			}
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}

func metaphoneCodes(word string) map[string]struct{} {
	codes := make(map[string]struct{}, 2)
	p, s := matchr.DoubleMetaphone(word)
	if p != "" {
		codes[p] = struct{}{}
	}
	if s != "" {
		codes[s] = struct{}{}
	}
	return codes
}

func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// splitPunct separates leading and trailing punctuation from a token so
// "toosday," repairs its core and keeps the comma.
func splitPunct(token string) (core, prefix, suffix string) {
	start := 0
	for start < len(token) && isPunctByte(token[start]) {
		start++
	}
	end := len(token)
	for end > start && isPunctByte(token[end-1]) {
		end--
	}
	return token[start:end], token[:start], token[end:]
}

func isPunctByte(b byte) bool {
	return b < 0x80 && (unicode.IsPunct(rune(b)) || unicode.IsSymbol(rune(b)))
}

func isLowerAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
