package matching

import "sort"

// TestMapping pairs a booking test code with the billing service code it is
// claimed under.
type TestMapping struct {
	BookingTestID string `json:"bookingTestId" yaml:"bookingTestId"`
	ClaimTestID   string `json:"claimTestId" yaml:"claimTestId"`
}

// TestCodeMap translates booking test codes into billing service codes.
// It is built once and never mutated, so concurrent lookups are safe.
type TestCodeMap struct {
	codes map[string]string
}

// NewTestCodeMap collapses an ordered list of mappings into a lookup.
// When a booking code appears more than once the last entry wins.
func NewTestCodeMap(mappings []TestMapping) *TestCodeMap {
	codes := make(map[string]string, len(mappings))
	for _, m := range mappings {
		codes[m.BookingTestID] = m.ClaimTestID
	}
	return &TestCodeMap{codes: codes}
}

// Translate returns the billing code for a booking test code.
func (m *TestCodeMap) Translate(bookingTestID string) (string, bool) {
	if m == nil {
		return "", false
	}
	code, ok := m.codes[bookingTestID]
	return code, ok
}

// Len returns the number of distinct booking codes.
func (m *TestCodeMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.codes)
}

// Entries returns the effective mappings ordered by booking code.
func (m *TestCodeMap) Entries() []TestMapping {
	entries := make([]TestMapping, 0, m.Len())
	if m == nil {
		return entries
	}
	for booking, claim := range m.codes {
		entries = append(entries, TestMapping{BookingTestID: booking, ClaimTestID: claim})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].BookingTestID < entries[j].BookingTestID
	})
	return entries
}

// DefaultTestMappings is the reference table compiled into the binary.
func DefaultTestMappings() []TestMapping {
	return []TestMapping{
		{BookingTestID: "test_1", ClaimTestID: "medical_service_1"},
		{BookingTestID: "test_2", ClaimTestID: "medical_service_2"},
		{BookingTestID: "test_3", ClaimTestID: "medical_service_3"},
		{BookingTestID: "test_4", ClaimTestID: "medical_service_4"},
		{BookingTestID: "test_5", ClaimTestID: "medical_service_5"},
		{BookingTestID: "test_6", ClaimTestID: "medical_service_3"},
	}
}
