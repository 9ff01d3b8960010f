// Package fixtures reads change log records for the mock server from JSON or
// YAML files shaped like the object-changes endpoint payload.
package fixtures

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/atvirokodosprendimai/nbchanges/internal/core/domain"
	"gopkg.in/yaml.v3"
)

var ErrEmptyFixture = errors.New("fixture contains no document")

// Load reads path and decodes it by extension: .yaml and .yml are YAML,
// everything else is JSON.
func Load(path string) ([]domain.ChangeRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeYAML(data)
	default:
		return DecodeJSON(data)
	}
}

// DecodeJSON accepts a bare array of records or a {"results": [...]} envelope.
func DecodeJSON(data []byte) ([]domain.ChangeRecord, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyFixture
	}

	if data[0] == '{' {
		var envelope struct {
			Results json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			return nil, fmt.Errorf("decode fixture envelope: %w", err)
		}
		if len(envelope.Results) == 0 {
			return nil, fmt.Errorf("decode fixture envelope: missing results")
		}
		data = envelope.Results
	}

	var records []domain.ChangeRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode fixture records: %w", err)
	}
	return records, nil
}

// DecodeYAML converts a YAML document to JSON and decodes it with DecodeJSON,
// so both formats go through the same record decoder.
func DecodeYAML(data []byte) ([]domain.ChangeRecord, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode fixture yaml: %w", err)
	}
	if doc == nil {
		return nil, ErrEmptyFixture
	}

	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("convert fixture yaml: %w", err)
	}
	return DecodeJSON(b)
}
