// Package extract implements the region extraction pass: it turns PAGE-XML
// layout ground truth into the simplified region records consumed by every
// downstream tool in this pipeline.
package extract

import (
	"github.com/sirupsen/logrus"

	"github.com/globalise-huygens/document-feature-extraction/internal/geometry"
	"github.com/globalise-huygens/document-feature-extraction/internal/pagexml"
	"github.com/globalise-huygens/document-feature-extraction/internal/region"
)

// TypeFallback selects what to do when a region's custom attribute yields
// no semantic type. The sibling scripts historically disagreed; the policy
// is explicit configuration here.
type TypeFallback string

const (
	// FallbackKind uses the region's structural tag name (e.g. "ImageRegion").
	FallbackKind TypeFallback = "kind"
	// FallbackUnknown uses the literal string "unknown".
	FallbackUnknown TypeFallback = "unknown"
)

// DefaultKinds is the closed set of structural region kinds searched for in
// a page. Different corpora use different subsets; override via Options.
var DefaultKinds = []string{
	"TextRegion",
	"ImageRegion",
	"LineDrawingRegion",
	"GraphicRegion",
	"TableRegion",
	"ChartRegion",
	"SeparatorRegion",
	"MathsRegion",
	"ChemRegion",
	"MusicRegion",
	"AdvertRegion",
	"NoiseRegion",
	"UnknownRegion",
	"CustomRegion",
	"FrameRegion",
}

// textlessKinds never carry transcriptions; text resolution is skipped for
// them but type and polygon extraction still run.
var textlessKinds = map[string]bool{
	"ImageRegion":       true,
	"GraphicRegion":     true,
	"SeparatorRegion":   true,
	"LineDrawingRegion": true,
}

// Options configures one extraction pass.
type Options struct {
	// Tolerance is the polygon simplification distance in pixels.
	Tolerance float64
	// Kinds is the region kind whitelist; DefaultKinds when empty.
	Kinds []string
	// TypeFallback applies when the custom attribute has no type.
	TypeFallback TypeFallback
	// Rounding normalizes parsed boundary coordinates.
	Rounding geometry.RoundingPolicy
	// MarginaliaLast applies the reading-order convention that moves
	// marginalia records to the end of the output.
	MarginaliaLast bool
}

// DefaultOptions returns the extraction defaults used by the reference
// corpus.
func DefaultOptions() Options {
	return Options{
		Tolerance:    geometry.DefaultTolerance,
		Kinds:        DefaultKinds,
		TypeFallback: FallbackKind,
		Rounding:     geometry.PolicyFloat,
	}
}

// Extractor maps parsed PAGE-XML documents to region records.
type Extractor struct {
	opts Options
	log  *logrus.Logger
}

// New creates an extractor. A nil logger falls back to the standard one.
func New(opts Options, log *logrus.Logger) *Extractor {
	if opts.Tolerance <= 0 {
		opts.Tolerance = geometry.DefaultTolerance
	}
	if len(opts.Kinds) == 0 {
		opts.Kinds = DefaultKinds
	}
	if opts.TypeFallback == "" {
		opts.TypeFallback = FallbackKind
	}
	if opts.Rounding == "" {
		opts.Rounding = geometry.PolicyFloat
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Extractor{opts: opts, log: log}
}

// Extract produces records for one document. Regions are visited kind by
// kind in whitelist order, matching the traversal of the reference
// tooling; within a kind, document order is preserved. A document without
// a Page element yields no records.
func (e *Extractor) Extract(doc *pagexml.Document) []region.Record {
	if doc.Page == nil {
		return nil
	}

	var records []region.Record
	for _, kind := range e.opts.Kinds {
		for i := range doc.Page.Regions {
			r := &doc.Page.Regions[i]
			if r.Kind() != kind {
				continue
			}
			if rec, ok := e.extractRegion(r); ok {
				records = append(records, rec)
			}
		}
	}

	if e.opts.MarginaliaLast {
		records = region.MoveMarginaliaLast(records)
	}
	return records
}

// extractRegion builds one record. The record is emitted if and only if a
// type resolved; a malformed or missing boundary still emits with an empty
// polygon.
func (e *Extractor) extractRegion(r *pagexml.Region) (region.Record, bool) {
	typ, ok := pagexml.StructureType(r.Custom)
	if !ok {
		switch e.opts.TypeFallback {
		case FallbackUnknown:
			typ = "unknown"
		default:
			typ = r.Kind()
		}
	}
	if typ == "" {
		return region.Record{}, false
	}

	var text string
	if !textlessKinds[r.Kind()] {
		text = r.Text()
	}

	ring := r.Boundary()
	if r.Coords != nil && r.Coords.Points != "" && len(ring) == 0 {
		e.log.WithFields(logrus.Fields{
			"region": r.ID,
			"kind":   r.Kind(),
		}).Warn("unparsable region boundary, emitting empty polygon")
	}
	ring = e.opts.Rounding.ApplyRing(ring)
	simplified := geometry.Simplify(ring, e.opts.Tolerance)
	if simplified == nil {
		simplified = geometry.Ring{}
	}

	return region.Record{
		Type:              typ,
		Text:              text,
		SimplifiedPolygon: simplified,
	}, true
}
