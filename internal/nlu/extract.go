package nlu

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Entities holds the slot values recovered from one utterance. Zero values
// mean "not mentioned", matching the reservation record convention.
type Entities struct {
	PartySize int
	Date      string // ISO YYYY-MM-DD
	Time      string // 24-hour HH:MM
	Name      string
	Phone     string // (XXX) XXX-XXXX
}

// Empty reports whether no entity was recovered.
func (e Entities) Empty() bool {
	return e == Entities{}
}

// Extract runs every extractor against text. Relative date expressions are
// resolved against now, which callers inject so that session replays and
// tests stay deterministic.
//
// The digits of an accepted time or phone match are hidden from the
// party-size extractor, so "7 pm" fills the time slot without the bare-digit
// catch-all also reading a party of 7. Digits outside any time or phone
// match keep the catch-all behavior.
func Extract(text string, now time.Time) Entities {
	var e Entities

	timeVal, timeLoc, timeOK := extractTimeSpan(text)
	phoneVal, phoneLoc, phoneOK := extractPhoneSpan(text)
	if timeOK {
		e.Time = timeVal
	}
	if phoneOK {
		e.Phone = phoneVal
	}

	masked := text
	if timeOK || phoneOK {
		masked = maskSpans(text, timeLoc, phoneLoc)
	}
	if n, ok := ExtractPartySize(masked); ok {
		e.PartySize = n
	}

	if d, ok := ExtractDate(text, now); ok {
		e.Date = d
	}
	if n, ok := ExtractName(text); ok {
		e.Name = n
	}
	return e
}

// maskSpans blanks the given [start,end) spans with spaces, preserving
// offsets and word boundaries for the remaining text.
func maskSpans(text string, spans ...[]int) string {
	b := []byte(text)
	for _, span := range spans {
		if span == nil {
			continue
		}
		for i := span[0]; i < span[1] && i < len(b); i++ {
			b[i] = ' '
		}
	}
	return string(b)
}

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

// partySizePatterns are tried in order; the noun-anchored forms outrank the
// bare-number fallbacks so "table for 2 at 7" reads the 2, not the 7.
var partySizePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(\d+)\s+(?:people|person|guests?|pax)\b`),
	regexp.MustCompile(`(?i)\bparty\s+of\s+(\d+)\b`),
	regexp.MustCompile(`(?i)\bfor\s+(\d+)\b`),
	regexp.MustCompile(`(?i)\b(one|two|three|four|five|six|seven|eight|nine|ten)\s+(?:people|person|guests?)\b`),
	regexp.MustCompile(`(?i)\b(\d+)\b`),
	regexp.MustCompile(`(?i)\b(one|two|three|four|five|six|seven|eight|nine|ten)\b`),
}

// ExtractPartySize recovers the number of guests from text.
func ExtractPartySize(text string) (int, bool) {
	for _, re := range partySizePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		word := strings.ToLower(m[1])
		if n, ok := numberWords[word]; ok {
			return n, true
		}
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n, true
		}
	}
	return 0, false
}

// weekdayNames is indexed Monday=0 through Sunday=6, the order people list
// the week in when speaking.
var weekdayNames = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

var monthNumbers = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4,
	"may": 5, "june": 6, "july": 7, "august": 8,
	"september": 9, "october": 10, "november": 11, "december": 12,
}

var (
	numericDateRe  = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})\b`)
	monthDayDateRe = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{1,2})`)
)

// ExtractDate recovers a reservation date from text as ISO YYYY-MM-DD,
// resolving relative expressions against now.
//
// "today" and "tonight" mean now's date; "tomorrow" the day after. A bare
// weekday name means its next occurrence, where naming now's own weekday
// points a full week ahead unless the text says "next" (people saying
// "friday" on a Friday mean the coming one). Numeric MM/DD (or MM-DD) and
// "Month Day" forms take now's year.
func ExtractDate(text string, now time.Time) (string, bool) {
	lower := strings.ToLower(text)

	if strings.Contains(lower, "today") || strings.Contains(lower, "tonight") {
		return now.Format("2006-01-02"), true
	}
	if strings.Contains(lower, "tomorrow") {
		return now.AddDate(0, 0, 1).Format("2006-01-02"), true
	}

	// Monday-based index of now, matching weekdayNames.
	nowIdx := (int(now.Weekday()) + 6) % 7
	for i, day := range weekdayNames {
		if !strings.Contains(lower, day) {
			continue
		}
		ahead := ((i - nowIdx) % 7 + 7) % 7
		if ahead == 0 && !strings.Contains(lower, "next") {
			ahead = 7
		}
		return now.AddDate(0, 0, ahead).Format("2006-01-02"), true
	}

	if m := numericDateRe.FindStringSubmatch(text); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			return fmt.Sprintf("%04d-%02d-%02d", now.Year(), month, day), true
		}
	}
	if m := monthDayDateRe.FindStringSubmatch(text); m != nil {
		month := monthNumbers[strings.ToLower(m[1])]
		day, _ := strconv.Atoi(m[2])
		if day >= 1 && day <= 31 {
			return fmt.Sprintf("%04d-%02d-%02d", now.Year(), month, day), true
		}
	}
	return "", false
}

// timePatterns are tried in order: clocked forms with a meridiem outrank
// bare ones so "7:30 pm" never half-matches as "7:30".
var timePatterns = []struct {
	re         *regexp.Regexp
	hasMinutes bool
	hasPeriod  bool
}{
	{regexp.MustCompile(`(?i)\b(\d{1,2}):(\d{2})\s*(am|pm)\b`), true, true},
	{regexp.MustCompile(`(?i)\b(\d{1,2})\s*(am|pm)\b`), false, true},
	{regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`), true, false},
}

// ExtractTime recovers a reservation time from text in 24-hour HH:MM form.
// Meridiem conversion follows clock convention: "12 am" is 00:00 and
// "12 pm" is 12:00.
func ExtractTime(text string) (string, bool) {
	val, _, ok := extractTimeSpan(text)
	return val, ok
}

// extractTimeSpan additionally reports the [start,end) byte span of the
// accepted match.
func extractTimeSpan(text string) (string, []int, bool) {
	for _, tp := range timePatterns {
		loc := tp.re.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		m := groupsFromIndex(text, loc)

		hour, _ := strconv.Atoi(m[1])
		minute := 0
		periodIdx := 2
		if tp.hasMinutes {
			minute, _ = strconv.Atoi(m[2])
			periodIdx = 3
		}

		if tp.hasPeriod {
			switch strings.ToLower(m[periodIdx]) {
			case "pm":
				if hour != 12 {
					hour += 12
				}
			case "am":
				if hour == 12 {
					hour = 0
				}
			}
		}

		if hour > 23 || minute > 59 {
			continue
		}
		return fmt.Sprintf("%02d:%02d", hour, minute), loc[0:2], true
	}
	return "", nil, false
}

// groupsFromIndex materializes submatch strings from a SubmatchIndex result.
func groupsFromIndex(text string, loc []int) []string {
	m := make([]string, len(loc)/2)
	for i := range m {
		start, end := loc[2*i], loc[2*i+1]
		if start >= 0 {
			m[i] = text[start:end]
		}
	}
	return m
}

// namePatterns capture one or two capitalized tokens after an introduction
// phrase. The capitalization requirement is what keeps "under the table"
// from yielding a guest called "the".
var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:my name is|name is|i am|i'm|this is)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`),
	regexp.MustCompile(`(?:under|for)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`),
}

// ExtractName recovers the guest name from text. Matching is case sensitive
// on purpose; see namePatterns.
func ExtractName(text string) (string, bool) {
	for _, re := range namePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1], true
		}
	}
	return "", false
}

var phonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(\d{3}[-.\s]?\d{3}[-.\s]?\d{4})\b`),
	regexp.MustCompile(`\(\d{3}\)\s*\d{3}[-.\s]?\d{4}`),
}

// ExtractPhone recovers a ten-digit phone number from text, normalised to
// "(XXX) XXX-XXXX". Matches with any other digit count are rejected.
func ExtractPhone(text string) (string, bool) {
	val, _, ok := extractPhoneSpan(text)
	return val, ok
}

// extractPhoneSpan additionally reports the [start,end) byte span of the
// accepted match.
func extractPhoneSpan(text string) (string, []int, bool) {
	for _, re := range phonePatterns {
		loc := re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		var digits strings.Builder
		for _, c := range text[loc[0]:loc[1]] {
			if c >= '0' && c <= '9' {
				digits.WriteRune(c)
			}
		}
		if digits.Len() == 10 {
			d := digits.String()
			return fmt.Sprintf("(%s) %s-%s", d[:3], d[3:6], d[6:]), loc, true
		}
	}
	return "", nil, false
}
