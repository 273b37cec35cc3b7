// Package pagexml parses PAGE-XML layout ground truth files into an
// in-memory document model. The namespace URI varies by corpus vintage and
// is inferred from the root element; files without a namespace are handled
// the same way.
package pagexml

import (
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/globalise-huygens/document-feature-extraction/internal/geometry"
)

// Document is one parsed PAGE-XML file describing a single page image.
// It is read once, consumed, and never written back.
type Document struct {
	XMLName xml.Name
	Page    *Page `xml:"Page"`
}

// Namespace returns the XML namespace URI inferred from the root element,
// or the empty string when the document carries none.
func (d *Document) Namespace() string {
	return d.XMLName.Space
}

// Page carries the page image metadata and the ordered region children.
type Page struct {
	ImageFilename string   `xml:"imageFilename,attr"`
	ImageWidth    int      `xml:"imageWidth,attr"`
	ImageHeight   int      `xml:"imageHeight,attr"`
	Regions       []Region `xml:",any"`
}

// Region is a semantically distinct area of the page. The element tag name
// (TextRegion, ImageRegion, ...) is its structural kind; the optional
// custom attribute may refine it with a semantic type.
type Region struct {
	XMLName    xml.Name
	ID         string      `xml:"id,attr"`
	Custom     string      `xml:"custom,attr"`
	Coords     *Coords     `xml:"Coords"`
	Lines      []TextLine  `xml:"TextLine"`
	TextEquivs []TextEquiv `xml:"TextEquiv"`
}

// Kind returns the structural category of the region: its tag name without
// the namespace part.
func (r *Region) Kind() string {
	return r.XMLName.Local
}

// Coords holds the region boundary as a space-separated "x,y" point list.
type Coords struct {
	Points string `xml:"points,attr"`
}

// TextLine is a single transcribed line inside a text-bearing region.
type TextLine struct {
	ID        string     `xml:"id,attr"`
	Coords    *Coords    `xml:"Coords"`
	TextEquiv *TextEquiv `xml:"TextEquiv"`
	Words     []Word     `xml:"Word"`
}

// Word is a word-level transcription unit, used as a fallback when a line
// has no line-level transcription.
type Word struct {
	ID        string     `xml:"id,attr"`
	TextEquiv *TextEquiv `xml:"TextEquiv"`
}

// TextEquiv carries a transcription in its Unicode child.
type TextEquiv struct {
	Unicode string `xml:"Unicode"`
}

// ParseFile reads and parses one PAGE-XML file.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data)
}

// Parse parses PAGE-XML bytes. A document without a Page element parses
// successfully and simply has no regions; malformed XML is an error for
// this one document only.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse PAGE-XML: %w", err)
	}
	if doc.Page != nil {
		// Elements like ReadingOrder or PrintSpace also unmarshal into the
		// catch-all region slice; they carry no boundary or text and are
		// filtered out by kind during extraction.
		doc.Page.Regions = filterKnownRegions(doc.Page.Regions)
	}
	return &doc, nil
}

// filterKnownRegions drops Page children that are not region elements.
func filterKnownRegions(regions []Region) []Region {
	out := regions[:0]
	for _, r := range regions {
		if strings.HasSuffix(r.XMLName.Local, "Region") {
			out = append(out, r)
		}
	}
	return out
}

// Text resolves the transcribed content of the region: line-level
// transcriptions are preferred, falling back to word-level concatenation
// when a line carries none, and to a region-level TextEquiv when the
// region has no lines at all. Parts are joined with single spaces; the
// result is empty when nothing was transcribed.
func (r *Region) Text() string {
	var parts []string

	if len(r.Lines) == 0 {
		for _, te := range r.TextEquivs {
			if s := strings.TrimSpace(te.Unicode); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	}

	for _, line := range r.Lines {
		if line.TextEquiv != nil {
			if s := strings.TrimSpace(line.TextEquiv.Unicode); s != "" {
				parts = append(parts, s)
				continue
			}
		}
		var words []string
		for _, w := range line.Words {
			if w.TextEquiv == nil {
				continue
			}
			if s := strings.TrimSpace(w.TextEquiv.Unicode); s != "" {
				words = append(words, s)
			}
		}
		if len(words) > 0 {
			parts = append(parts, strings.Join(words, " "))
		}
	}
	return strings.Join(parts, " ")
}

// Boundary parses the region's own Coords attribute into a ring. Malformed
// point tokens are skipped individually; a region without Coords yields an
// empty ring. Only the direct region boundary is read, never nested line
// boundaries.
func (r *Region) Boundary() geometry.Ring {
	if r.Coords == nil {
		return geometry.Ring{}
	}
	return ParsePoints(r.Coords.Points)
}

// ParsePoints parses a whitespace-separated list of "x,y" tokens. Tokens
// that do not parse as a coordinate pair are skipped, matching the lenient
// handling of hand-edited ground truth (double spaces, stray fragments).
func ParsePoints(s string) geometry.Ring {
	ring := geometry.Ring{}
	for _, token := range strings.Fields(s) {
		x, y, ok := parsePair(token)
		if !ok {
			continue
		}
		ring = append(ring, geometry.Point{X: x, Y: y})
	}
	return ring
}

func parsePair(token string) (x, y float64, ok bool) {
	i := strings.IndexByte(token, ',')
	if i <= 0 || i == len(token)-1 {
		return 0, 0, false
	}
	var err error
	if x, err = strconv.ParseFloat(token[:i], 64); err != nil {
		return 0, 0, false
	}
	if y, err = strconv.ParseFloat(token[i+1:], 64); err != nil {
		return 0, 0, false
	}
	return x, y, true
}
