package matching

import (
	"context"
	"fmt"
)

// MappingSource supplies the ordered booking→billing test code mappings.
// Sources are read once at startup.
type MappingSource interface {
	LoadTestMappings(ctx context.Context) ([]TestMapping, error)
}

// MappingStore is a MappingSource whose contents can be replaced.
type MappingStore interface {
	MappingSource
	ReplaceTestMappings(ctx context.Context, mappings []TestMapping) error
}

type builtinSource struct{}

// NewBuiltinSource returns the source backed by DefaultTestMappings.
func NewBuiltinSource() MappingSource { return builtinSource{} }

func (builtinSource) LoadTestMappings(context.Context) ([]TestMapping, error) {
	return DefaultTestMappings(), nil
}

// LoadTestCodeMap reads src and builds the lookup used by the Matcher.
func LoadTestCodeMap(ctx context.Context, src MappingSource) (*TestCodeMap, error) {
	mappings, err := src.LoadTestMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load test mappings: %w", err)
	}
	for i, m := range mappings {
		if m.BookingTestID == "" {
			return nil, fmt.Errorf("test mapping %d: bookingTestId is empty", i)
		}
	}
	return NewTestCodeMap(mappings), nil
}
