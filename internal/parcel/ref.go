// Package parcel fetches cadastral parcel geometry from the INSPIRE WFS and
// turns it into GML or GeoJSON results.
package parcel

import (
	"strings"

	"github.com/paulmach/orb"
)

// RefLen is the length of the parcel part of a cadastral reference. 18 and
// 20 character references carry a property suffix the WFS does not use.
const RefLen = 14

// Ref14 trims, upper-cases and truncates refcat to RefLen characters.
func Ref14(refcat string) (string, bool) {
	r := []rune(strings.ToUpper(strings.TrimSpace(refcat)))
	if len(r) > RefLen {
		r = r[:RefLen]
	}
	return string(r), len(r) > 0
}

// Stats previews a coordinate list so a caller can tell real geometry from a
// degenerate response. A and B are the first and second ordinate, whatever
// their meaning in the source CRS.
type Stats struct {
	Count  int         `json:"count"`
	MinA   float64     `json:"min_a"`
	MaxA   float64     `json:"max_a"`
	MinB   float64     `json:"min_b"`
	MaxB   float64     `json:"max_b"`
	RangeA float64     `json:"range_a"`
	RangeB float64     `json:"range_b"`
	First5 []orb.Point `json:"first_5"`
}

// PreviewStats returns nil for an empty list.
func PreviewStats(coords []orb.Point) *Stats {
	if len(coords) == 0 {
		return nil
	}
	s := &Stats{Count: len(coords)}
	s.MinA, s.MaxA = coords[0][0], coords[0][0]
	s.MinB, s.MaxB = coords[0][1], coords[0][1]
	for _, c := range coords[1:] {
		s.MinA = min(s.MinA, c[0])
		s.MaxA = max(s.MaxA, c[0])
		s.MinB = min(s.MinB, c[1])
		s.MaxB = max(s.MaxB, c[1])
	}
	s.RangeA = s.MaxA - s.MinA
	s.RangeB = s.MaxB - s.MinB
	s.First5 = append([]orb.Point(nil), coords[:min(5, len(coords))]...)
	return s
}
