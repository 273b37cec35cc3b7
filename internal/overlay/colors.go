// Package overlay renders region polygons as semi-transparent labeled
// fills over page scans, and produces side-by-side comparison sheets of
// two region sources (ground-truth XML vs extracted JSON) for visual QA.
package overlay

import (
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// DefaultKey is the color-table entry used for region types without a
// color of their own.
const DefaultKey = "default"

// fillAlpha is the default opacity of region fills. 100 of 255 keeps the
// handwriting underneath legible.
const fillAlpha = 100

// ColorTable maps region types to fill colors.
type ColorTable map[string]color.NRGBA

// DefaultColors returns the color conventions of the reference corpus.
func DefaultColors() ColorTable {
	return ColorTable{
		"paragraph":      {0, 0, 255, fillAlpha},
		"marginalia":     {0, 128, 0, fillAlpha},
		"signature-mark": {255, 0, 0, fillAlpha},
		"header":         {128, 0, 128, fillAlpha},
		"catch-word":     {255, 165, 0, fillAlpha},
		"page-number":    {255, 255, 0, fillAlpha},
		DefaultKey:       {128, 128, 128, fillAlpha},
	}
}

// Resolve returns the fill color for a region type and the table key that
// provided it (the key doubles as the drawn label).
func (t ColorTable) Resolve(regionType string) (color.NRGBA, string) {
	if c, ok := t[regionType]; ok {
		return c, regionType
	}
	if c, ok := t[DefaultKey]; ok {
		return c, DefaultKey
	}
	return color.NRGBA{128, 128, 128, fillAlpha}, DefaultKey
}

// ParseColorTable builds a table from type -> "#rrggbb" hex strings, as
// written in configuration files. The alpha applies to every entry; zero
// means the default fill opacity.
func ParseColorTable(hexColors map[string]string, alpha uint8) (ColorTable, error) {
	if alpha == 0 {
		alpha = fillAlpha
	}
	table := make(ColorTable, len(hexColors))
	for typ, hex := range hexColors {
		c, err := colorful.Hex(hex)
		if err != nil {
			return nil, fmt.Errorf("invalid color %q for type %q: %w", hex, typ, err)
		}
		r, g, b := c.RGB255()
		table[typ] = color.NRGBA{R: r, G: g, B: b, A: alpha}
	}
	if _, ok := table[DefaultKey]; !ok {
		table[DefaultKey] = color.NRGBA{128, 128, 128, alpha}
	}
	return table, nil
}
