package matching

import (
	"fmt"

	"github.com/ehr/recon/internal/platform/outcome"
)

const dateStringMessage = "must be an ISO-8601 date string"

// Validate checks the shape of a match request and returns every problem
// found. A nil result means the request can be handed to the Matcher.
func (r *MatchRequest) Validate() []outcome.Issue {
	var issues []outcome.Issue
	if r.Bookings == nil {
		issues = append(issues, outcome.Invalid("bookings", "must be an array"))
	}
	if r.Claims == nil {
		issues = append(issues, outcome.Invalid("claims", "must be an array"))
	}
	for i := range r.Bookings {
		issues = append(issues, r.Bookings[i].validate(fmt.Sprintf("bookings[%d]", i))...)
	}
	for i := range r.Claims {
		issues = append(issues, r.Claims[i].validate(fmt.Sprintf("claims[%d]", i))...)
	}
	return issues
}

func (b *Booking) validate(path string) []outcome.Issue {
	var issues []outcome.Issue
	issues = requireString(issues, path+".id", b.ID)
	issues = requireString(issues, path+".patient", b.Patient)
	issues = requireString(issues, path+".test", b.Test)
	issues = requireString(issues, path+".insurance", b.Insurance)
	issues = requireDate(issues, path+".reservationDate", b.ReservationDate)
	return issues
}

func (c *Claim) validate(path string) []outcome.Issue {
	var issues []outcome.Issue
	issues = requireString(issues, path+".id", c.ID)
	issues = requireString(issues, path+".medicalServiceCode", c.MedicalServiceCode)
	issues = requireDate(issues, path+".bookingDate", c.BookingDate)
	issues = requireString(issues, path+".insurance", c.Insurance)
	issues = requireString(issues, path+".patient", c.Patient)
	return issues
}

func requireString(issues []outcome.Issue, field, value string) []outcome.Issue {
	if value == "" {
		return append(issues, outcome.Required(field))
	}
	return issues
}

func requireDate(issues []outcome.Issue, field, value string) []outcome.Issue {
	if value == "" {
		return append(issues, outcome.Required(field))
	}
	if !IsDateString(value) {
		return append(issues, outcome.Invalid(field, dateStringMessage))
	}
	return issues
}
