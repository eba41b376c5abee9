package matching

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// mappingFile is the on-disk layout of a YAML mapping table:
//
//	mappings:
//	  - bookingTestId: test_1
//	    claimTestId: medical_service_1
type mappingFile struct {
	Mappings []TestMapping `yaml:"mappings"`
}

type yamlSource struct {
	path string
}

// NewYAMLSource returns a source that reads mappings from a YAML file.
func NewYAMLSource(path string) MappingSource {
	return &yamlSource{path: path}
}

func (s *yamlSource) LoadTestMappings(ctx context.Context) ([]TestMapping, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read mapping file %s: %w", s.path, err)
	}
	return ParseYAMLMappings(data)
}

// ParseYAMLMappings decodes a YAML mapping table, keeping entry order.
func ParseYAMLMappings(data []byte) ([]TestMapping, error) {
	var f mappingFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse mapping file: %w", err)
	}
	if f.Mappings == nil {
		return []TestMapping{}, nil
	}
	return f.Mappings, nil
}

// MarshalYAMLMappings encodes mappings in the layout ParseYAMLMappings reads.
func MarshalYAMLMappings(mappings []TestMapping) ([]byte, error) {
	return yaml.MarshalWithOptions(mappingFile{Mappings: mappings}, yaml.Indent(2))
}
