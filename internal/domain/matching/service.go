package matching

import "sort"

// Matcher reconciles bookings against claims one to one.
//
// Pairs must share a patient and a UTC calendar day before they are scored.
// Each surviving pair scores one point per matching soft factor (test code,
// time of day, insurance) and pairs are committed greedily from the highest
// score down. Greedy commitment does not guarantee the maximum total score.
//
// A Matcher only holds the read-only test code map, so a single instance can
// serve concurrent calls.
type Matcher struct {
	tests *TestCodeMap
}

// NewMatcher creates a Matcher that translates booking test codes with tests.
func NewMatcher(tests *TestCodeMap) *Matcher {
	return &Matcher{tests: tests}
}

// TestCodes returns the map the Matcher was built with.
func (m *Matcher) TestCodes() *TestCodeMap {
	return m.tests
}

// Match returns the committed pairs for the given bookings and claims.
// Neither input slice is modified.
func (m *Matcher) Match(bookings []Booking, claims []Claim) []Result {
	return m.Reconcile(bookings, claims).Matches
}

// Reconcile is Match plus the number of scored candidates.
func (m *Matcher) Reconcile(bookings []Booking, claims []Claim) *Report {
	candidates := m.candidates(bookings, claims)
	rank(candidates)
	return &Report{
		Matches:    assign(candidates),
		Candidates: len(candidates),
	}
}

type stampedBooking struct {
	booking *Booking
	when    stamp
}

// candidates scores every pair that passes the mandatory criteria. Bookings
// are grouped by patient so a claim is only compared with its own patient's
// bookings. Output order is claim order, then booking order per patient.
func (m *Matcher) candidates(bookings []Booking, claims []Claim) []candidate {
	byPatient := make(map[string][]stampedBooking)
	for i := range bookings {
		b := &bookings[i]
		byPatient[b.Patient] = append(byPatient[b.Patient], stampedBooking{
			booking: b,
			when:    newStamp(b.ReservationDate),
		})
	}

	var out []candidate
	for i := range claims {
		c := &claims[i]
		related, ok := byPatient[c.Patient]
		if !ok {
			continue
		}
		claimWhen := newStamp(c.BookingDate)
		for _, sb := range related {
			if !passesMandatoryCriteria(sb.booking, sb.when, c, claimWhen) {
				continue
			}
			score, mismatch := m.score(sb.booking, sb.when, c, claimWhen)
			out = append(out, candidate{
				booking:  sb.booking,
				claim:    c,
				score:    score,
				mismatch: mismatch,
			})
		}
	}
	return out
}

// passesMandatoryCriteria requires the same patient and the same UTC day.
// A timestamp that cannot be parsed has no day and never passes.
func passesMandatoryCriteria(b *Booking, bw stamp, c *Claim, cw stamp) bool {
	return b.Patient == c.Patient && bw.day != "" && bw.day == cw.day
}

// score evaluates every factor; a failed factor never short-circuits the
// others. Mismatch is always ordered test, time, insurance.
func (m *Matcher) score(b *Booking, bw stamp, c *Claim, cw stamp) (int, []string) {
	score := 0
	var mismatch []string

	if code, ok := m.tests.Translate(b.Test); ok && code == c.MedicalServiceCode {
		score++
	} else {
		mismatch = append(mismatch, FactorTest)
	}

	if bw.clock != "" && bw.clock == cw.clock {
		score++
	} else {
		mismatch = append(mismatch, FactorTime)
	}

	if b.Insurance == c.Insurance {
		score++
	} else {
		mismatch = append(mismatch, FactorInsurance)
	}

	return score, mismatch
}

// rank orders candidates by descending score. Equal scores keep generation
// order.
func rank(candidates []candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
}

// assign walks ranked candidates once and commits every pair whose booking
// and claim are both still free. Skipped candidates are not retried.
func assign(candidates []candidate) []Result {
	results := make([]Result, 0)
	usedBookings := make(map[string]bool)
	usedClaims := make(map[string]bool)

	for _, cand := range candidates {
		if usedBookings[cand.booking.ID] || usedClaims[cand.claim.ID] {
			continue
		}
		res := Result{
			Booking: cand.booking.ID,
			Claim:   cand.claim.ID,
		}
		if len(cand.mismatch) > 0 {
			res.Mismatch = cand.mismatch
		}
		results = append(results, res)
		usedBookings[cand.booking.ID] = true
		usedClaims[cand.claim.ID] = true
	}
	return results
}
