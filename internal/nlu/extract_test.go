package nlu

import (
	"testing"
	"time"
)

// monday is a fixed reference point for relative date resolution.
var monday = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func TestExtractPartySize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want int
		ok   bool
	}{
		{"4 people", 4, true},
		{"2 guests", 2, true},
		{"a party of 6", 6, true},
		{"three people please", 3, true},
		{"a table for 2 at 7 pm", 2, true}, // "for 2" outranks the bare 7
		{"at 7", 7, true},                  // bare-digit fallback
		{"ten", 10, true},
		{"no numbers here", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ExtractPartySize(tt.text)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ExtractPartySize(%q) = (%d, %v), want (%d, %v)",
				tt.text, got, ok, tt.want, tt.ok)
		}
	}
}

func TestExtractDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{"today would be great", "2025-03-10", true},
		{"tonight", "2025-03-10", true},
		{"tomorrow evening", "2025-03-11", true},
		{"friday please", "2025-03-14", true},
		{"monday", "2025-03-17", true}, // naming today's weekday means next week
		{"how about 12/25", "2025-12-25", true},
		{"3-14 works", "2025-03-14", true},
		{"march 14", "2025-03-14", true},
		{"December 25", "2025-12-25", true},
		{"sometime soon", "", false},
		{"99/99", "", false},
	}
	for _, tt := range tests {
		got, ok := ExtractDate(tt.text, monday)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ExtractDate(%q) = (%q, %v), want (%q, %v)",
				tt.text, got, ok, tt.want, tt.ok)
		}
	}
}

func TestExtractTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{"7 pm", "19:00", true},
		{"7:30 pm", "19:30", true},
		{"at 19:00", "19:00", true},
		{"9 AM", "09:00", true},
		{"12 pm", "12:00", true}, // noon stays 12
		{"12 am", "00:00", true}, // midnight wraps to 0
		{"12:30 am", "00:30", true},
		{"no time mentioned", "", false},
		{"99:99", "", false},
	}
	for _, tt := range tests {
		got, ok := ExtractTime(tt.text)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ExtractTime(%q) = (%q, %v), want (%q, %v)",
				tt.text, got, ok, tt.want, tt.ok)
		}
	}
}

func TestExtractName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{"my name is John Smith", "John Smith", true},
		{"name is Alice", "Alice", true},
		{"i'm Maria Garcia", "Maria Garcia", true},
		{"put it under Chen", "Chen", true},
		{"reservation for Dana", "Dana", true},
		{"put it under the table", "", false}, // lowercase after the phrase
		{"this is jane", "", false},           // names must be capitalized
		{"nothing here", "", false},
	}
	for _, tt := range tests {
		got, ok := ExtractName(tt.text)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ExtractName(%q) = (%q, %v), want (%q, %v)",
				tt.text, got, ok, tt.want, tt.ok)
		}
	}
}

func TestExtractPhone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{"555-123-4567", "(555) 123-4567", true},
		{"call me at 555.123.4567", "(555) 123-4567", true},
		{"(555) 123 4567", "(555) 123-4567", true},
		{"5551234567", "(555) 123-4567", true},
		{"my number is 12345", "", false},
		{"no phone", "", false},
	}
	for _, tt := range tests {
		got, ok := ExtractPhone(tt.text)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ExtractPhone(%q) = (%q, %v), want (%q, %v)",
				tt.text, got, ok, tt.want, tt.ok)
		}
	}
}

func TestExtract_CombinedUtterance(t *testing.T) {
	t.Parallel()

	got := Extract("a table for 4 tomorrow at 7 pm, my name is John Smith", monday)
	want := Entities{
		PartySize: 4,
		Date:      "2025-03-11",
		Time:      "19:00",
		Name:      "John Smith",
	}
	if got != want {
		t.Errorf("Extract = %+v, want %+v", got, want)
	}
}

// Digits consumed by a time or phone match are invisible to the party-size
// catch-all; a bare number with no such match still falls through to it.
func TestExtract_TimeAndPhoneDigitsDoNotBecomePartySize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want Entities
	}{
		{"7 pm", Entities{Time: "19:00"}},
		{"at 7:30 pm", Entities{Time: "19:30"}},
		{"555-123-4567", Entities{Phone: "(555) 123-4567"}},
		{"at 7", Entities{PartySize: 7}}, // no time match, catch-all applies
	}
	for _, tt := range tests {
		if got := Extract(tt.text, monday); got != tt.want {
			t.Errorf("Extract(%q) = %+v, want %+v", tt.text, got, tt.want)
		}
	}
}

func TestEntities_Empty(t *testing.T) {
	t.Parallel()

	if !(Entities{}).Empty() {
		t.Error("zero Entities should be empty")
	}
	if (Entities{PartySize: 2}).Empty() {
		t.Error("Entities with a field set should not be empty")
	}
}
