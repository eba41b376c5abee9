package matching

import (
	"testing"
	"time"

	"github.com/ehr/recon/internal/platform/outcome"
)

func validRequest() *MatchRequest {
	return &MatchRequest{
		Bookings: []Booking{
			{ID: "booking_1", Patient: "patient_1", Test: "test_1", Insurance: "AON", ReservationDate: "2025-05-15T10:30:00.000Z"},
		},
		Claims: []Claim{
			{ID: "claim_1", MedicalServiceCode: "medical_service_1", BookingDate: "2025-05-15T10:30:00.000Z", Insurance: "AON", Patient: "patient_1"},
		},
	}
}

func expressions(issues []outcome.Issue) map[string]string {
	out := make(map[string]string)
	for _, issue := range issues {
		for _, expr := range issue.Expression {
			out[expr] = issue.Code
		}
	}
	return out
}

func TestValidate_Valid(t *testing.T) {
	if issues := validRequest().Validate(); len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}
}

func TestValidate_EmptyArraysAreValid(t *testing.T) {
	req := &MatchRequest{Bookings: []Booking{}, Claims: []Claim{}}
	if issues := req.Validate(); len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}
}

func TestValidate_MissingArrays(t *testing.T) {
	issues := (&MatchRequest{}).Validate()
	got := expressions(issues)
	if got["bookings"] != outcome.CodeInvalid {
		t.Errorf("expected invalid issue for bookings, got %+v", issues)
	}
	if got["claims"] != outcome.CodeInvalid {
		t.Errorf("expected invalid issue for claims, got %+v", issues)
	}
}

func TestValidate_MissingFields(t *testing.T) {
	req := validRequest()
	req.Bookings = append(req.Bookings, Booking{ID: "booking_2"})
	req.Claims[0].Patient = ""

	got := expressions(req.Validate())

	for _, field := range []string{
		"bookings[1].patient",
		"bookings[1].test",
		"bookings[1].insurance",
		"bookings[1].reservationDate",
		"claims[0].patient",
	} {
		if got[field] != outcome.CodeRequired {
			t.Errorf("expected required issue for %s, got %q", field, got[field])
		}
	}
	if _, ok := got["bookings[1].id"]; ok {
		t.Error("did not expect an issue for bookings[1].id")
	}
}

func TestValidate_BadDates(t *testing.T) {
	req := validRequest()
	req.Bookings[0].ReservationDate = "15/05/2025"
	req.Claims[0].BookingDate = "tomorrow"

	got := expressions(req.Validate())

	if got["bookings[0].reservationDate"] != outcome.CodeInvalid {
		t.Errorf("expected invalid reservationDate, got %+v", got)
	}
	if got["claims[0].bookingDate"] != outcome.CodeInvalid {
		t.Errorf("expected invalid bookingDate, got %+v", got)
	}
}

func TestIsDateString(t *testing.T) {
	valid := []string{
		"2025-05-15T10:30:00.000Z",
		"2025-05-15T10:30:00Z",
		"2025-05-15T12:30:00+02:00",
		"2025-05-15T10:30:00+0000",
		"2025-05-15T12:30:00.000+0200",
		"2025-05-15T10:30:00",
		"2025-05-15T10:30",
		"2025-05-15 10:30:00",
		"2025-05-15",
	}
	for _, s := range valid {
		if !IsDateString(s) {
			t.Errorf("IsDateString(%q) = false, want true", s)
		}
	}
	invalid := []string{"", "   ", "2025-13-01", "2025-05-15T10:30:00+02", "15/05/2025", "10:30", "not-a-date"}
	for _, s := range invalid {
		if IsDateString(s) {
			t.Errorf("IsDateString(%q) = true, want false", s)
		}
	}
}

func TestParseTimestamp_OffsetWithoutColon(t *testing.T) {
	got, ok := parseTimestamp("2025-05-15T12:30:00+0200")
	if !ok {
		t.Fatal("expected the timestamp to parse")
	}
	want := time.Date(2025, 5, 15, 10, 30, 0, 0, time.UTC)
	if !got.Equal(want) || got.Location() != time.UTC {
		t.Errorf("parseTimestamp = %v, want %v", got, want)
	}
	if st := newStamp("2025-05-15T12:30:00+0200"); st.day != "2025-05-15" || st.clock != "10:30" {
		t.Errorf("newStamp = %+v, want day 2025-05-15 clock 10:30", st)
	}
}
