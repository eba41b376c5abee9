package matching

// Factor names reported in Result.Mismatch, listed in reporting order.
const (
	FactorTest      = "test"
	FactorTime      = "time"
	FactorInsurance = "insurance"
)

// Booking is a scheduled test reservation.
type Booking struct {
	ID              string `json:"id"`
	Patient         string `json:"patient"`
	Test            string `json:"test"`
	Insurance       string `json:"insurance"`
	ReservationDate string `json:"reservationDate"`
}

// Claim is an insurance billing record for a rendered service.
type Claim struct {
	ID                 string `json:"id"`
	MedicalServiceCode string `json:"medicalServiceCode"`
	BookingDate        string `json:"bookingDate"`
	Insurance          string `json:"insurance"`
	Patient            string `json:"patient"`
}

// Result is one committed booking/claim pair. Mismatch lists the soft
// factors that failed and is omitted when every factor matched.
type Result struct {
	Booking  string   `json:"booking"`
	Claim    string   `json:"claim"`
	Mismatch []string `json:"mismatch,omitempty"`
}

// Report is the outcome of one reconciliation run.
type Report struct {
	Matches    []Result
	Candidates int
}

// MatchRequest is the payload accepted by the match endpoint and the
// offline match command.
type MatchRequest struct {
	Bookings []Booking `json:"bookings"`
	Claims   []Claim   `json:"claims"`
}

// MatchResponse is the payload returned by the match endpoint.
type MatchResponse struct {
	Matches []Result `json:"matches"`
}

// candidate is a pair that passed the mandatory criteria, with its score.
type candidate struct {
	booking  *Booking
	claim    *Claim
	score    int
	mismatch []string
}
