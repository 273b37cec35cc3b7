// Package geometry provides the polygon types shared across the extraction
// pipeline and the boundary simplification used to thin out hand-traced
// region outlines.
package geometry

import (
	"encoding/json"
	"math"
)

// Point is an absolute pixel position on a page image.
type Point struct {
	X float64
	Y float64
}

// MarshalJSON encodes the point as a two-element [x, y] array, the
// interchange form used by every tool in this family.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

// UnmarshalJSON decodes a two-element [x, y] array.
func (p *Point) UnmarshalJSON(data []byte) error {
	var pair [2]float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	p.X = pair[0]
	p.Y = pair[1]
	return nil
}

// Ring is an ordered sequence of points describing a closed polygon
// boundary. The first and last point need not be literally identical in
// source data; a ring is only meaningful as a closed loop.
type Ring []Point

// Closed reports whether the first and last point coincide.
func (r Ring) Closed() bool {
	if len(r) < 2 {
		return false
	}
	return r[0] == r[len(r)-1]
}

// Close returns a copy of the ring with the first point appended as the
// last if the ring is not already closed. Rings with fewer than two points
// are returned as-is.
func (r Ring) Close() Ring {
	out := make(Ring, len(r))
	copy(out, r)
	if len(out) >= 2 && !out.Closed() {
		out = append(out, out[0])
	}
	return out
}

// RoundingPolicy controls how parsed coordinates are normalized. Two
// sibling conventions exist in the corpus: one keeps floats, one truncates
// to whole pixels.
type RoundingPolicy string

const (
	// PolicyFloat keeps fractional coordinates, rounded to two decimals.
	PolicyFloat RoundingPolicy = "float"
	// PolicyInt truncates coordinates to whole pixel values.
	PolicyInt RoundingPolicy = "int"
)

// Apply normalizes a single coordinate value under the policy.
func (p RoundingPolicy) Apply(v float64) float64 {
	if p == PolicyInt {
		return math.Trunc(v)
	}
	return round2(v)
}

// ApplyRing normalizes every coordinate of a ring under the policy,
// returning a new ring.
func (p RoundingPolicy) ApplyRing(r Ring) Ring {
	out := make(Ring, len(r))
	for i, pt := range r {
		out[i] = Point{X: p.Apply(pt.X), Y: p.Apply(pt.Y)}
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
