// Package region defines the extracted-record interchange format shared by
// the extractor, the overlay renderer, and the layout proposer: one record
// per page region, carrying its semantic type, transcribed text, and
// simplified boundary polygon.
package region

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/globalise-huygens/document-feature-extraction/internal/geometry"
)

// Record is one extracted page region. Records are independent and
// self-contained; no cross-record references exist.
type Record struct {
	Type              string        `json:"type"`
	Text              string        `json:"text"`
	SimplifiedPolygon geometry.Ring `json:"simplified_polygon"`
}

// Marshal serializes records as a UTF-8 JSON array with four-space
// indentation and non-ASCII characters left unescaped. The formatting is a
// convention shared with the sibling tools, not a byte-for-byte contract.
func Marshal(records []Record) ([]byte, error) {
	// Normalize nil polygons on a copy; serialization must not write
	// back into the caller's records.
	out := make([]Record, len(records))
	copy(out, records)
	for i := range out {
		if out[i].SimplifiedPolygon == nil {
			out[i].SimplifiedPolygon = geometry.Ring{}
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("failed to encode records: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Unmarshal parses a record array previously written by Marshal.
func Unmarshal(data []byte) ([]Record, error) {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}
	return records, nil
}

// WriteFile writes records to path in the interchange format.
func WriteFile(path string, records []Record) error {
	data, err := Marshal(records)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write records: %w", err)
	}
	return nil
}

// ReadFile reads a record array from path.
func ReadFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return Unmarshal(data)
}

// MoveMarginaliaLast reorders records so that marginalia-typed entries come
// after everything else, preserving the relative order within both groups.
// This is the reading-order convention of the downstream tooling: marginal
// notes are read after the main text flow.
func MoveMarginaliaLast(records []Record) []Record {
	main := make([]Record, 0, len(records))
	var marginalia []Record
	for _, r := range records {
		if strings.EqualFold(r.Type, "marginalia") {
			marginalia = append(marginalia, r)
		} else {
			main = append(main, r)
		}
	}
	return append(main, marginalia...)
}
