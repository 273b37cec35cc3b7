package geometry

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

// DefaultTolerance is the simplification tolerance used when none is
// configured. Tuned for ~300 dpi manuscript scans; adjust per corpus.
const DefaultTolerance = 200.0

// Simplify reduces the point density of a closed polygon boundary using
// Ramer-Douglas-Peucker, keeping the approximate shape within tolerance
// distance units.
//
// Rings with fewer than three points are returned unchanged: there is not
// enough geometry to form a polygon, so simplification is a no-op. An open
// ring is closed (first point appended) before simplifying, and the result
// is explicitly re-closed even when the algorithm drops the duplicate. All
// output coordinates are rounded to two decimals.
//
// The plain Douglas-Peucker reduction can introduce self-intersections on
// degenerate input. When that happens the original closed ring is returned
// instead, rounded but unsimplified. This is a local recovery, not an error.
func Simplify(ring Ring, tolerance float64) Ring {
	if len(ring) < 3 {
		return ring
	}

	closed := ring.Close()

	line := make(orb.LineString, len(closed))
	for i, pt := range closed {
		line[i] = orb.Point{pt.X, pt.Y}
	}

	out := simplify.DouglasPeucker(tolerance).LineString(line.Clone())
	if len(out) == 0 {
		return Ring{}
	}

	result := make(Ring, len(out))
	for i, pt := range out {
		result[i] = Point{X: pt.X(), Y: pt.Y()}
	}
	result = result.Close()

	if selfIntersects(result) {
		return PolicyFloat.ApplyRing(closed)
	}
	return PolicyFloat.ApplyRing(result)
}

// selfIntersects reports whether any two non-adjacent boundary segments of
// the closed ring properly cross.
func selfIntersects(r Ring) bool {
	n := len(r) - 1 // segment count of the closed ring
	if n < 4 {
		return false
	}
	for i := 0; i < n; i++ {
		for j := i + 2; j < n; j++ {
			// The last segment is adjacent to the first.
			if i == 0 && j == n-1 {
				continue
			}
			if segmentsCross(r[i], r[i+1], r[j], r[j+1]) {
				return true
			}
		}
	}
	return false
}

// segmentsCross reports a proper crossing between segments (a,b) and (c,d).
// Touching at endpoints does not count.
func segmentsCross(a, b, c, d Point) bool {
	d1 := orient(c, d, a)
	d2 := orient(c, d, b)
	d3 := orient(a, b, c)
	d4 := orient(a, b, d)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func orient(a, b, c Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}
