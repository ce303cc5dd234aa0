// Package reservation defines the structured record a conversation fills in:
// who is coming, when, and under what name.
//
// A Record is owned by exactly one dialogue session and mutated only from its
// event loop; it is not safe for concurrent use.
package reservation

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Field names the slots of a [Record]. The order of [Required] is the
// question-asking priority of the dialogue manager.
type Field string

const (
	FieldPartySize       Field = "party size"
	FieldDate            Field = "date"
	FieldTime            Field = "time"
	FieldName            Field = "name"
	FieldPhone           Field = "phone"
	FieldSpecialRequests Field = "special requests"
)

// Required lists the fields that must be filled before the reservation can be
// confirmed, in asking priority order.
var Required = []Field{FieldPartySize, FieldDate, FieldTime, FieldName}

// Record accumulates reservation details across turns. The zero value of
// each field means "not yet provided".
type Record struct {
	// PartySize is the number of guests. Always positive when set.
	PartySize int

	// Date is the reservation date in ISO YYYY-MM-DD form.
	Date string

	// Time is the reservation time in 24-hour HH:MM form.
	Time string

	// Name is the name the reservation is held under.
	Name string

	// Phone is a normalised (XXX) XXX-XXXX phone number.
	Phone string

	// SpecialRequests holds free-text requests, if any.
	SpecialRequests string
}

// IsComplete reports whether every required field is filled.
func (r *Record) IsComplete() bool {
	return len(r.MissingFields()) == 0
}

// MissingFields returns the unfilled required fields in asking priority order.
func (r *Record) MissingFields() []Field {
	var missing []Field
	if r.PartySize == 0 {
		missing = append(missing, FieldPartySize)
	}
	if r.Date == "" {
		missing = append(missing, FieldDate)
	}
	if r.Time == "" {
		missing = append(missing, FieldTime)
	}
	if r.Name == "" {
		missing = append(missing, FieldName)
	}
	return missing
}

// Reset wipes every field back to empty. It is idempotent and never partial.
func (r *Record) Reset() {
	*r = Record{}
}

// Summary renders the filled fields as natural language for the confirmation
// prompt, e.g. "3 people, on Friday, March 14, 2025, at 07:00 PM, under the
// name John Smith". Returns "no details yet" when nothing is filled.
func (r *Record) Summary() string {
	var parts []string
	if r.PartySize > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", r.PartySize, GuestNoun(r.PartySize)))
	}
	if r.Date != "" {
		parts = append(parts, "on "+FormatDate(r.Date))
	}
	if r.Time != "" {
		parts = append(parts, "at "+FormatTime(r.Time))
	}
	if r.Name != "" {
		parts = append(parts, "under the name "+r.Name)
	}
	if len(parts) == 0 {
		return "no details yet"
	}
	return strings.Join(parts, ", ")
}

// GuestNoun returns "person" or "people" with correct number agreement.
func GuestNoun(n int) string {
	if n == 1 {
		return "person"
	}
	return "people"
}

// FormatDate renders an ISO date as "Monday, January 2, 2006" for display.
// Unparsable input is returned unchanged.
func FormatDate(iso string) string {
	d, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return iso
	}
	return d.Format("Monday, January 2, 2006")
}

// FormatTime renders a 24-hour HH:MM value as "03:04 PM" for display.
// Unparsable input is returned unchanged.
func FormatTime(hhmm string) string {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return hhmm
	}
	return t.Format("03:04 PM")
}

// recordJSON is the wire shape handed to persistence or confirmation
// collaborators: unset fields serialise as null.
type recordJSON struct {
	PartySize       *int    `json:"party_size"`
	Date            *string `json:"date"`
	Time            *string `json:"time"`
	Name            *string `json:"name"`
	Phone           *string `json:"phone"`
	SpecialRequests *string `json:"special_requests"`
}

// MarshalJSON implements json.Marshaler, mapping zero-valued fields to null.
func (r *Record) MarshalJSON() ([]byte, error) {
	out := recordJSON{}
	if r.PartySize > 0 {
		out.PartySize = &r.PartySize
	}
	if r.Date != "" {
		out.Date = &r.Date
	}
	if r.Time != "" {
		out.Time = &r.Time
	}
	if r.Name != "" {
		out.Name = &r.Name
	}
	if r.Phone != "" {
		out.Phone = &r.Phone
	}
	if r.SpecialRequests != "" {
		out.SpecialRequests = &r.SpecialRequests
	}
	return json.Marshal(out)
}
