package reservation

import (
	"encoding/json"
	"strings"
	"testing"
)

func filled() *Record {
	return &Record{
		PartySize: 3,
		Date:      "2025-03-14",
		Time:      "19:00",
		Name:      "John Smith",
		Phone:     "(555) 123-4567",
	}
}

func TestRecord_MissingFieldsPriorityOrder(t *testing.T) {
	t.Parallel()

	r := &Record{}
	got := r.MissingFields()
	want := []Field{FieldPartySize, FieldDate, FieldTime, FieldName}
	if len(got) != len(want) {
		t.Fatalf("missing = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("missing[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	r.PartySize = 2
	if got := r.MissingFields(); got[0] != FieldDate {
		t.Errorf("next missing = %q, want date", got[0])
	}
}

func TestRecord_IsComplete(t *testing.T) {
	t.Parallel()

	r := filled()
	if !r.IsComplete() {
		t.Error("record with all required fields should be complete")
	}

	r.Phone = ""
	r.SpecialRequests = ""
	if !r.IsComplete() {
		t.Error("phone and special requests are optional")
	}

	r.Name = ""
	if r.IsComplete() {
		t.Error("missing name should make the record incomplete")
	}
}

// Completeness is monotonic: further extractions that do not clear a required
// field keep the record complete.
func TestRecord_CompletenessMonotonic(t *testing.T) {
	t.Parallel()

	r := filled()
	if !r.IsComplete() {
		t.Fatal("precondition: record complete")
	}

	r.PartySize = 5
	r.Time = "20:30"
	r.SpecialRequests = "window seat"
	if !r.IsComplete() {
		t.Error("overwriting filled fields must not lose completeness")
	}
}

func TestRecord_ResetIdempotent(t *testing.T) {
	t.Parallel()

	r := filled()
	r.Reset()
	if *r != (Record{}) {
		t.Errorf("after reset: %+v, want zero record", *r)
	}

	r.Reset()
	if *r != (Record{}) {
		t.Error("second reset must leave the record empty")
	}
}

func TestRecord_Summary(t *testing.T) {
	t.Parallel()

	r := filled()
	got := r.Summary()
	for _, want := range []string{
		"3 people",
		"on Friday, March 14, 2025",
		"at 07:00 PM",
		"under the name John Smith",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("summary %q missing %q", got, want)
		}
	}

	if got := (&Record{}).Summary(); got != "no details yet" {
		t.Errorf("empty summary = %q", got)
	}

	one := &Record{PartySize: 1}
	if !strings.Contains(one.Summary(), "1 person") {
		t.Errorf("singular summary = %q, want \"1 person\"", one.Summary())
	}
}

func TestFormatDate(t *testing.T) {
	t.Parallel()

	if got := FormatDate("2025-12-25"); got != "Thursday, December 25, 2025" {
		t.Errorf("FormatDate = %q", got)
	}
	if got := FormatDate("not-a-date"); got != "not-a-date" {
		t.Errorf("unparsable date = %q, want passthrough", got)
	}
}

func TestFormatTime(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, want string }{
		{"19:00", "07:00 PM"},
		{"00:00", "12:00 AM"},
		{"12:00", "12:00 PM"},
		{"09:15", "09:15 AM"},
		{"garbage", "garbage"},
	}
	for _, tt := range tests {
		if got := FormatTime(tt.in); got != tt.want {
			t.Errorf("FormatTime(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRecord_MarshalJSON_NullsForUnset(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(&Record{PartySize: 2, Name: "Ana"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if m["party_size"] != float64(2) {
		t.Errorf("party_size = %v", m["party_size"])
	}
	if m["name"] != "Ana" {
		t.Errorf("name = %v", m["name"])
	}
	for _, key := range []string{"date", "time", "phone", "special_requests"} {
		if v, ok := m[key]; !ok || v != nil {
			t.Errorf("%s = %v, want explicit null", key, v)
		}
	}
}
