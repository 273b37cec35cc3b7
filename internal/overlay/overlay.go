package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/globalise-huygens/document-feature-extraction/internal/geometry"
	"github.com/globalise-huygens/document-feature-extraction/internal/pagexml"
	"github.com/globalise-huygens/document-feature-extraction/internal/region"
)

// Region is the minimal shape the renderer consumes: a semantic type and a
// boundary polygon. Both region sources (PAGE-XML ground truth and
// extracted record JSON) adapt into it; the renderer never alters them.
type Region struct {
	Type    string
	Polygon geometry.Ring
}

// FromRecords adapts extracted records for rendering.
func FromRecords(records []region.Record) []Region {
	out := make([]Region, 0, len(records))
	for _, rec := range records {
		out = append(out, Region{Type: rec.Type, Polygon: rec.SimplifiedPolygon})
	}
	return out
}

// FromDocument adapts PAGE-XML regions for rendering. Coordinates are
// truncated to whole pixels, the convention of the XML-side overlay
// tooling. Regions without a parsable boundary are dropped; the type falls
// back to the structural kind when the custom attribute has none.
func FromDocument(doc *pagexml.Document) []Region {
	if doc.Page == nil {
		return nil
	}
	out := make([]Region, 0, len(doc.Page.Regions))
	for i := range doc.Page.Regions {
		r := &doc.Page.Regions[i]
		ring := r.Boundary()
		if len(ring) == 0 {
			continue
		}
		typ, ok := pagexml.StructureType(r.Custom)
		if !ok {
			typ = r.Kind()
		}
		out = append(out, Region{
			Type:    typ,
			Polygon: geometry.PolicyInt.ApplyRing(ring),
		})
	}
	return out
}

// Renderer composites region fills and labels over page images.
type Renderer struct {
	colors    ColorTable
	face      font.Face
	labelSize float64
}

// DefaultLabelSize is the label text height in points, sized for ~300 dpi
// manuscript scans.
const DefaultLabelSize = 100

// NewRenderer creates a renderer. A nil color table uses the corpus
// defaults; a non-positive label size uses DefaultLabelSize.
func NewRenderer(colors ColorTable, labelSize float64) (*Renderer, error) {
	if colors == nil {
		colors = DefaultColors()
	}
	if labelSize <= 0 {
		labelSize = DefaultLabelSize
	}

	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse label font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    labelSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create label face: %w", err)
	}

	return &Renderer{colors: colors, face: face, labelSize: labelSize}, nil
}

// Draw returns a copy of base with every region filled semi-transparently
// and labeled with its color-table key. Regions with fewer than three
// points cannot be filled and are skipped.
func (r *Renderer) Draw(base image.Image, regions []Region) *image.NRGBA {
	bounds := base.Bounds()
	dst := image.NewNRGBA(bounds)
	draw.Draw(dst, bounds, base, bounds.Min, draw.Src)

	if len(regions) == 0 {
		return dst
	}

	layer := image.NewNRGBA(bounds)
	for _, reg := range regions {
		if len(reg.Polygon) < 3 {
			continue
		}
		col, _ := r.colors.Resolve(reg.Type)
		fillPolygon(layer, reg.Polygon, col)
	}
	draw.Draw(dst, bounds, layer, bounds.Min, draw.Over)

	for _, reg := range regions {
		if len(reg.Polygon) < 3 {
			continue
		}
		_, label := r.colors.Resolve(reg.Type)
		r.drawLabel(dst, reg.Polygon, label)
	}
	return dst
}

// fillPolygon rasterizes the ring onto the layer with the given fill.
func fillPolygon(layer *image.NRGBA, ring geometry.Ring, col color.NRGBA) {
	b := layer.Bounds()
	ras := vector.NewRasterizer(b.Dx(), b.Dy())
	ras.MoveTo(float32(ring[0].X), float32(ring[0].Y))
	for _, pt := range ring[1:] {
		ras.LineTo(float32(pt.X), float32(pt.Y))
	}
	ras.ClosePath()
	ras.Draw(layer, b, image.NewUniform(col), image.Point{})
}

// drawLabel writes the label just inside the polygon's top-left corner.
func (r *Renderer) drawLabel(dst *image.NRGBA, ring geometry.Ring, label string) {
	minX, minY := ring[0].X, ring[0].Y
	for _, pt := range ring[1:] {
		if pt.X < minX {
			minX = pt.X
		}
		if pt.Y < minY {
			minY = pt.Y
		}
	}

	x := int(minX) + 5
	y := int(minY) + 2
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.NRGBA{0, 0, 0, 255}),
		Face: r.face,
		Dot:  fixed.P(x, y+r.face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(label)
}

// SideBySide pastes two equally tall images next to each other, left then
// right, for direct visual comparison.
func SideBySide(left, right image.Image) *image.NRGBA {
	lb, rb := left.Bounds(), right.Bounds()
	height := lb.Dy()
	if rb.Dy() > height {
		height = rb.Dy()
	}
	combined := image.NewNRGBA(image.Rect(0, 0, lb.Dx()+rb.Dx(), height))
	draw.Draw(combined, image.Rect(0, 0, lb.Dx(), lb.Dy()), left, lb.Min, draw.Src)
	draw.Draw(combined, image.Rect(lb.Dx(), 0, lb.Dx()+rb.Dx(), rb.Dy()), right, rb.Min, draw.Src)
	return combined
}
