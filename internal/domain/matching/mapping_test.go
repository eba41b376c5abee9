package matching

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewTestCodeMap_LastEntryWins(t *testing.T) {
	m := NewTestCodeMap([]TestMapping{
		{BookingTestID: "test_1", ClaimTestID: "medical_service_1"},
		{BookingTestID: "test_2", ClaimTestID: "medical_service_2"},
		{BookingTestID: "test_1", ClaimTestID: "medical_service_9"},
	})

	code, ok := m.Translate("test_1")
	if !ok || code != "medical_service_9" {
		t.Errorf("Translate(test_1) = %q, %v; want medical_service_9, true", code, ok)
	}
	if m.Len() != 2 {
		t.Errorf("expected 2 distinct codes, got %d", m.Len())
	}
}

func TestTestCodeMap_UnknownCode(t *testing.T) {
	m := NewTestCodeMap(DefaultTestMappings())
	if code, ok := m.Translate("nope"); ok || code != "" {
		t.Errorf("Translate(nope) = %q, %v; want empty, false", code, ok)
	}
}

func TestTestCodeMap_NilIsEmpty(t *testing.T) {
	var m *TestCodeMap
	if _, ok := m.Translate("test_1"); ok {
		t.Error("nil map should not translate")
	}
	if m.Len() != 0 {
		t.Errorf("expected Len() 0, got %d", m.Len())
	}
	if entries := m.Entries(); entries == nil || len(entries) != 0 {
		t.Errorf("expected empty non-nil entries, got %v", entries)
	}
}

func TestTestCodeMap_EntriesSorted(t *testing.T) {
	m := NewTestCodeMap([]TestMapping{
		{BookingTestID: "b", ClaimTestID: "2"},
		{BookingTestID: "a", ClaimTestID: "1"},
		{BookingTestID: "c", ClaimTestID: "3"},
	})
	entries := m.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, want := range []string{"a", "b", "c"} {
		if entries[i].BookingTestID != want {
			t.Errorf("entries[%d] = %q, want %q", i, entries[i].BookingTestID, want)
		}
	}
}

func TestDefaultTestMappings(t *testing.T) {
	m := NewTestCodeMap(DefaultTestMappings())
	code, ok := m.Translate("test_1")
	if !ok || code != "medical_service_1" {
		t.Errorf("Translate(test_1) = %q, %v; want medical_service_1, true", code, ok)
	}
}

// -- Sources --

type failingSource struct{ err error }

func (f failingSource) LoadTestMappings(context.Context) ([]TestMapping, error) {
	return nil, f.err
}

type staticSource []TestMapping

func (s staticSource) LoadTestMappings(context.Context) ([]TestMapping, error) {
	return s, nil
}

func TestLoadTestCodeMap_Builtin(t *testing.T) {
	m, err := LoadTestCodeMap(context.Background(), NewBuiltinSource())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Len() != len(DefaultTestMappings()) {
		t.Errorf("expected %d codes, got %d", len(DefaultTestMappings()), m.Len())
	}
}

func TestLoadTestCodeMap_SourceError(t *testing.T) {
	boom := errors.New("boom")
	_, err := LoadTestCodeMap(context.Background(), failingSource{err: boom})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped source error, got %v", err)
	}
}

func TestLoadTestCodeMap_RejectsEmptyBookingCode(t *testing.T) {
	_, err := LoadTestCodeMap(context.Background(), staticSource{{BookingTestID: "", ClaimTestID: "x"}})
	if err == nil {
		t.Fatal("expected error for empty bookingTestId")
	}
}

func TestYAMLSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mappings.yaml")
	content := `mappings:
  - bookingTestId: test_1
    claimTestId: medical_service_7
  - bookingTestId: test_2
    claimTestId: medical_service_2
  - bookingTestId: test_1
    claimTestId: medical_service_8
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	mappings, err := NewYAMLSource(path).LoadTestMappings(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mappings) != 3 {
		t.Fatalf("expected 3 mappings in file order, got %d", len(mappings))
	}
	if mappings[0].ClaimTestID != "medical_service_7" || mappings[2].ClaimTestID != "medical_service_8" {
		t.Errorf("unexpected order: %+v", mappings)
	}

	code, _ := NewTestCodeMap(mappings).Translate("test_1")
	if code != "medical_service_8" {
		t.Errorf("expected last entry to win, got %q", code)
	}
}

func TestYAMLSource_MissingFile(t *testing.T) {
	_, err := NewYAMLSource(filepath.Join(t.TempDir(), "missing.yaml")).LoadTestMappings(context.Background())
	if err == nil || !strings.Contains(err.Error(), "read mapping file") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestParseYAMLMappings_Invalid(t *testing.T) {
	if _, err := ParseYAMLMappings([]byte("mappings: [unterminated")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestParseYAMLMappings_Empty(t *testing.T) {
	mappings, err := ParseYAMLMappings([]byte(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mappings == nil || len(mappings) != 0 {
		t.Errorf("expected empty non-nil mappings, got %v", mappings)
	}
}
