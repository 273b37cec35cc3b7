package region

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/globalise-huygens/document-feature-extraction/internal/geometry"
)

// The sibling tools of this pipeline emit a small family of region JSON
// shapes: a bare array of records keyed by simplified_polygon, a bare
// array keyed by polygon, and an object wrapping such an array in a
// regions field. Normalize maps every known shape into []Record at the
// ingestion boundary; unknown shapes are rejected with a clear error
// instead of being guessed at.

// ErrUnknownShape reports region JSON that matches none of the known
// interchange shapes.
var ErrUnknownShape = errors.New("unrecognized region JSON shape")

type looseRegion struct {
	Type              string        `json:"type"`
	Text              string        `json:"text"`
	Polygon           geometry.Ring `json:"polygon"`
	SimplifiedPolygon geometry.Ring `json:"simplified_polygon"`
}

type regionsEnvelope struct {
	Regions []looseRegion `json:"regions"`
}

// Normalize parses region JSON in any of the known interchange shapes and
// returns canonical records. Entries without a type are dropped: a
// type-less region is meaningless to every consumer.
func Normalize(data []byte) ([]Record, error) {
	var loose []looseRegion
	if err := json.Unmarshal(data, &loose); err == nil {
		return fromLoose(loose), nil
	}

	var envelope regionsEnvelope
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Regions != nil {
		return fromLoose(envelope.Regions), nil
	}

	return nil, fmt.Errorf("%w: expected a record array or a regions object", ErrUnknownShape)
}

func fromLoose(loose []looseRegion) []Record {
	records := make([]Record, 0, len(loose))
	for _, lr := range loose {
		if lr.Type == "" {
			continue
		}
		poly := lr.SimplifiedPolygon
		if len(poly) == 0 {
			poly = lr.Polygon
		}
		if poly == nil {
			poly = geometry.Ring{}
		}
		records = append(records, Record{
			Type:              lr.Type,
			Text:              lr.Text,
			SimplifiedPolygon: poly,
		})
	}
	return records
}
