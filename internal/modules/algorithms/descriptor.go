// Package algorithms discovers prediction algorithm descriptors, materializes
// them into prediction callables for concrete parameter vectors and writes
// trained copies back to disk.
package algorithms

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/domain"
	"gopkg.in/yaml.v3"
)

// Descriptor is an on-disk algorithm definition. The id is the file stem.
type Descriptor struct {
	ID          string                 `json:"-" yaml:"-"`
	Kind        string                 `json:"kind" yaml:"kind"`
	Description string                 `json:"description" yaml:"description"`
	Parameters  domain.ParameterVector `json:"parameters" yaml:"parameters"`
	Path        string                 `json:"-" yaml:"-"`
}

// Info converts the descriptor to the registry view.
func (d Descriptor) Info() domain.AlgorithmInfo {
	return domain.AlgorithmInfo{
		ID:          d.ID,
		Kind:        d.Kind,
		Description: d.Description,
		Parameters:  d.Parameters.Clone(),
		SourcePath:  d.Path,
	}
}

// Stem returns the file name without directory and extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IsDescriptorFile reports whether path has a supported extension.
func IsDescriptorFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// ReadDescriptor parses a YAML or JSON descriptor file.
func ReadDescriptor(path string) (Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Descriptor{}, fmt.Errorf("failed to read descriptor: %w", err)
	}
	d, err := ParseDescriptor(data, filepath.Ext(path))
	if err != nil {
		return Descriptor{}, fmt.Errorf("%s: %w", path, err)
	}
	d.ID = Stem(path)
	d.Path = path
	return d, nil
}

// ParseDescriptor decodes descriptor bytes; ext selects the format.
func ParseDescriptor(data []byte, ext string) (Descriptor, error) {
	var raw struct {
		Kind        string         `json:"kind" yaml:"kind"`
		Description string         `json:"description" yaml:"description"`
		Parameters  map[string]any `json:"parameters" yaml:"parameters"`
	}

	switch strings.ToLower(ext) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return Descriptor{}, fmt.Errorf("invalid JSON descriptor: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Descriptor{}, fmt.Errorf("invalid YAML descriptor: %w", err)
		}
	}

	if raw.Kind == "" {
		return Descriptor{}, fmt.Errorf("descriptor has no kind")
	}
	params := domain.NormalizeParams(raw.Parameters)
	for k, v := range params {
		if !isScalar(v) {
			return Descriptor{}, fmt.Errorf("parameter %q must be a number, boolean, string or null", k)
		}
	}

	return Descriptor{Kind: raw.Kind, Description: raw.Description, Parameters: params}, nil
}

// MarshalDescriptor encodes d in the format selected by ext.
func MarshalDescriptor(d Descriptor, ext string) ([]byte, error) {
	out := struct {
		Kind        string                 `json:"kind" yaml:"kind"`
		Description string                 `json:"description" yaml:"description"`
		Parameters  domain.ParameterVector `json:"parameters" yaml:"parameters"`
	}{d.Kind, d.Description, d.Parameters}

	if strings.ToLower(ext) == ".json" {
		return json.MarshalIndent(out, "", "  ")
	}
	return yaml.Marshal(out)
}

func isScalar(v any) bool {
	if v == nil || domain.IsNumeric(v) {
		return true
	}
	switch v.(type) {
	case bool, string:
		return true
	}
	return false
}
