package extract

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/globalise-huygens/document-feature-extraction/internal/geometry"
	"github.com/globalise-huygens/document-feature-extraction/internal/pagexml"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func parseDoc(t *testing.T, data string) *pagexml.Document {
	t.Helper()
	doc, err := pagexml.Parse([]byte(data))
	if err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}
	return doc
}

func TestExtract_ParagraphScenario(t *testing.T) {
	doc := parseDoc(t, `<?xml version="1.0" encoding="UTF-8"?>
<PcGts xmlns="http://schema.primaresearch.org/PAGE/gts/pagecontent/2013-07-15">
  <Page imageFilename="p.jpg" imageWidth="2000" imageHeight="3000">
    <TextRegion id="r1" custom="structure {type:paragraph;}">
      <Coords points="100,100 100,200 600,200 600,100"/>
      <TextLine id="l1">
        <TextEquiv><Unicode>Hello world</Unicode></TextEquiv>
      </TextLine>
    </TextRegion>
  </Page>
</PcGts>`)

	opts := DefaultOptions()
	opts.Tolerance = 1.0 // low enough not to remove rectangle corners
	records := New(opts, quietLogger()).Extract(doc)

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.Type != "paragraph" {
		t.Errorf("expected type paragraph, got %q", rec.Type)
	}
	if rec.Text != "Hello world" {
		t.Errorf("expected text 'Hello world', got %q", rec.Text)
	}
	want := geometry.Ring{{X: 100, Y: 100}, {X: 100, Y: 200}, {X: 600, Y: 200}, {X: 600, Y: 100}, {X: 100, Y: 100}}
	if len(rec.SimplifiedPolygon) != len(want) {
		t.Fatalf("expected %d polygon points, got %d: %v", len(want), len(rec.SimplifiedPolygon), rec.SimplifiedPolygon)
	}
	for i := range want {
		if rec.SimplifiedPolygon[i] != want[i] {
			t.Errorf("polygon point %d: expected %v, got %v", i, want[i], rec.SimplifiedPolygon[i])
		}
	}
}

func TestExtract_FallbackToKind(t *testing.T) {
	doc := parseDoc(t, `<PcGts><Page imageWidth="100" imageHeight="100">
  <ImageRegion id="img1" custom="">
    <Coords points="700,50 700,450 1200,450 1200,50"/>
  </ImageRegion>
</Page></PcGts>`)

	records := New(DefaultOptions(), quietLogger()).Extract(doc)

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Type != "ImageRegion" {
		t.Errorf("expected fallback type ImageRegion, got %q", records[0].Type)
	}
	if records[0].Text != "" {
		t.Errorf("expected empty text for image region, got %q", records[0].Text)
	}
}

func TestExtract_FallbackUnknown(t *testing.T) {
	doc := parseDoc(t, `<PcGts><Page imageWidth="100" imageHeight="100">
  <TextRegion id="r1"><Coords points="1,1 2,2 3,1"/></TextRegion>
</Page></PcGts>`)

	opts := DefaultOptions()
	opts.TypeFallback = FallbackUnknown
	records := New(opts, quietLogger()).Extract(doc)

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Type != "unknown" {
		t.Errorf("expected fallback type unknown, got %q", records[0].Type)
	}
}

func TestExtract_TwoPointBoundaryPassThrough(t *testing.T) {
	doc := parseDoc(t, `<PcGts><Page imageWidth="100" imageHeight="100">
  <TextRegion id="r1" custom="structure {type:paragraph;}">
    <Coords points="10,10 20,20"/>
  </TextRegion>
</Page></PcGts>`)

	records := New(DefaultOptions(), quietLogger()).Extract(doc)

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	// Fewer than three points: simplification is a no-op, the pair is
	// passed through unchanged and unclosed.
	want := geometry.Ring{{X: 10, Y: 10}, {X: 20, Y: 20}}
	got := records[0].SimplifiedPolygon
	if len(got) != len(want) {
		t.Fatalf("expected %d points, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("point %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestExtract_MalformedBoundaryEmitsEmptyPolygon(t *testing.T) {
	doc := parseDoc(t, `<PcGts><Page imageWidth="100" imageHeight="100">
  <TextRegion id="r1" custom="structure {type:paragraph;}">
    <Coords points="not points at all"/>
    <TextLine id="l1"><TextEquiv><Unicode>text survives</Unicode></TextEquiv></TextLine>
  </TextRegion>
</Page></PcGts>`)

	records := New(DefaultOptions(), quietLogger()).Extract(doc)

	if len(records) != 1 {
		t.Fatalf("region with malformed boundary must still emit, got %d records", len(records))
	}
	if len(records[0].SimplifiedPolygon) != 0 {
		t.Errorf("expected empty polygon, got %v", records[0].SimplifiedPolygon)
	}
	if records[0].Text != "text survives" {
		t.Errorf("expected text to survive, got %q", records[0].Text)
	}
}

func TestExtract_KindWhitelist(t *testing.T) {
	doc := parseDoc(t, `<PcGts><Page imageWidth="100" imageHeight="100">
  <TextRegion id="r1" custom="structure {type:paragraph;}"><Coords points="1,1 2,2 3,1"/></TextRegion>
  <ImageRegion id="r2"><Coords points="1,1 2,2 3,1"/></ImageRegion>
</Page></PcGts>`)

	opts := DefaultOptions()
	opts.Kinds = []string{"TextRegion"}
	records := New(opts, quietLogger()).Extract(doc)

	if len(records) != 1 {
		t.Fatalf("expected 1 record with narrowed whitelist, got %d", len(records))
	}
	if records[0].Type != "paragraph" {
		t.Errorf("expected paragraph, got %q", records[0].Type)
	}
}

func TestExtract_KindTraversalOrder(t *testing.T) {
	// Records follow whitelist kind order, not page document order.
	doc := parseDoc(t, `<PcGts><Page imageWidth="100" imageHeight="100">
  <ImageRegion id="i1"><Coords points="1,1 2,2 3,1"/></ImageRegion>
  <TextRegion id="t1" custom="structure {type:paragraph;}"><Coords points="1,1 2,2 3,1"/></TextRegion>
</Page></PcGts>`)

	records := New(DefaultOptions(), quietLogger()).Extract(doc)

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Type != "paragraph" || records[1].Type != "ImageRegion" {
		t.Errorf("unexpected traversal order: %q then %q", records[0].Type, records[1].Type)
	}
}

func TestExtract_MarginaliaLast(t *testing.T) {
	doc := parseDoc(t, `<PcGts><Page imageWidth="100" imageHeight="100">
  <TextRegion id="r1" custom="structure {type:marginalia;}">
    <TextLine id="l1"><TextEquiv><Unicode>note</Unicode></TextEquiv></TextLine>
  </TextRegion>
  <TextRegion id="r2" custom="structure {type:paragraph;}">
    <TextLine id="l2"><TextEquiv><Unicode>body</Unicode></TextEquiv></TextLine>
  </TextRegion>
</Page></PcGts>`)

	opts := DefaultOptions()
	opts.MarginaliaLast = true
	records := New(opts, quietLogger()).Extract(doc)

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Type != "paragraph" || records[1].Type != "marginalia" {
		t.Errorf("expected marginalia moved last, got %q then %q", records[0].Type, records[1].Type)
	}
}

func TestExtract_IntRounding(t *testing.T) {
	doc := parseDoc(t, `<PcGts><Page imageWidth="100" imageHeight="100">
  <TextRegion id="r1" custom="structure {type:paragraph;}">
    <Coords points="10.7,10.9 20.2,20.6"/>
  </TextRegion>
</Page></PcGts>`)

	opts := DefaultOptions()
	opts.Rounding = geometry.PolicyInt
	records := New(opts, quietLogger()).Extract(doc)

	got := records[0].SimplifiedPolygon
	want := geometry.Ring{{X: 10, Y: 10}, {X: 20, Y: 20}}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("point %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestExtract_NoPage(t *testing.T) {
	doc := parseDoc(t, `<PcGts><Metadata/></PcGts>`)
	if records := New(DefaultOptions(), quietLogger()).Extract(doc); len(records) != 0 {
		t.Errorf("expected no records without a Page element, got %d", len(records))
	}
}
