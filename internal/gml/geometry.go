package gml

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// minRingPoints is the smallest valid closed ring: three vertices plus closure.
const minRingPoints = 4

var numberPattern = regexp.MustCompile(`[-+]?\d*\.\d+|[-+]?\d+`)

// declared geometry containers, in lookup preference order
var srsContainers = []string{"MultiSurface", "Surface", "Polygon", "Point"}

func parseNumbers(s string) []float64 {
	toks := numberPattern.FindAllString(s, -1)
	out := make([]float64, 0, len(toks))
	for _, tok := range toks {
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			continue
		}
		out = append(out, f)
	}
	return out
}

// pairs groups a flat ordinate list into consecutive pairs. A trailing odd
// ordinate is dropped. dim > 2 keeps the first two ordinates of each tuple.
func pairs(nums []float64, dim int) []orb.Point {
	if dim < 2 {
		dim = 2
	}
	out := make([]orb.Point, 0, len(nums)/dim)
	for i := 0; i+1 < len(nums) && i+dim <= len(nums); i += dim {
		out = append(out, orb.Point{nums[i], nums[i+1]})
	}
	return out
}

func dimension(el *element) int {
	v, ok := el.attr("srsDimension")
	if !ok {
		return 2
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 2 {
		return 2
	}
	return n
}

// ringCoords prefers a flattened posList over discrete pos elements.
func ringCoords(ring *element) []orb.Point {
	if pl := ring.child("posList"); pl != nil && strings.TrimSpace(pl.text.String()) != "" {
		return pairs(parseNumbers(pl.text.String()), dimension(pl))
	}

	var coords []orb.Point
	for _, p := range ring.childrenNamed("pos") {
		txt := strings.TrimSpace(p.text.String())
		if txt == "" {
			continue
		}
		nums := parseNumbers(txt)
		if len(nums) >= 2 {
			coords = append(coords, orb.Point{nums[0], nums[1]})
		}
	}
	return coords
}

// closeRing appends the first pair when the ring is open.
func closeRing(coords []orb.Point) orb.Ring {
	if len(coords) == 0 {
		return nil
	}
	ring := orb.Ring(coords)
	if !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return ring
}

func validRing(el *element) (orb.Ring, bool) {
	r := closeRing(ringCoords(el))
	if len(r) < minRingPoints {
		return nil, false
	}
	return r, true
}

// polygonFrom reads the first exterior ring and every interior ring below el.
func polygonFrom(el *element) (orb.Polygon, bool) {
	ext := el.find("exterior")
	if ext == nil {
		return nil, false
	}
	lr := ext.find("LinearRing")
	if lr == nil {
		return nil, false
	}
	outer, ok := validRing(lr)
	if !ok {
		return nil, false
	}

	poly := orb.Polygon{outer}
	for _, in := range el.findAll("interior") {
		for _, lr := range in.findAll("LinearRing") {
			if hole, ok := validRing(lr); ok {
				poly = append(poly, hole)
			}
		}
	}
	return poly, true
}

// Polygons returns one polygon per surfaceMember, or the first Polygon element
// when the document has no surface members. An empty result means "no
// geometry" and is not an error.
func (d *Document) Polygons() []orb.Polygon {
	members := d.findAll("surfaceMember")
	if len(members) > 0 {
		polys := make([]orb.Polygon, 0, len(members))
		for _, sm := range members {
			if p, ok := polygonFrom(sm); ok {
				polys = append(polys, p)
			}
		}
		return polys
	}

	if el := d.find("Polygon"); el != nil {
		if p, ok := polygonFrom(el); ok {
			return []orb.Polygon{p}
		}
	}
	return []orb.Polygon{}
}

// SRSName returns the srsName declared on the outermost geometry container, or
// on the first element carrying one.
func (d *Document) SRSName() (string, bool) {
	for _, local := range srsContainers {
		if el := d.find(local); el != nil {
			if v, ok := el.attr("srsName"); ok && v != "" {
				return v, true
			}
		}
	}

	var name string
	d.root.walk(func(e *element) bool {
		if v, ok := e.attr("srsName"); ok && v != "" {
			name = v
			return false
		}
		return true
	})
	return name, name != ""
}

// FirstRing returns the raw pairs of the first LinearRing posList (or the
// first posList anywhere) without closing it. Fewer than two pairs is a
// failure.
func (d *Document) FirstRing() ([]orb.Point, bool) {
	var pl *element
	d.root.walk(func(e *element) bool {
		if !e.isGML("LinearRing") {
			return true
		}
		if c := e.child("posList"); c != nil && strings.TrimSpace(c.text.String()) != "" {
			pl = c
			return false
		}
		return true
	})
	if pl == nil {
		d.root.walk(func(e *element) bool {
			if e.isGML("posList") && strings.TrimSpace(e.text.String()) != "" {
				pl = e
				return false
			}
			return true
		})
	}
	if pl == nil {
		return nil, false
	}

	nums := parseNumbers(pl.text.String())
	if len(nums) < 4 {
		return nil, false
	}
	return pairs(nums, 2), true
}

func (d *Document) find(local string) *element {
	var hit *element
	d.root.walk(func(e *element) bool {
		if e.isGML(local) {
			hit = e
			return false
		}
		return true
	})
	return hit
}

func (d *Document) findAll(local string) []*element {
	var out []*element
	d.root.walk(func(e *element) bool {
		if e.isGML(local) {
			out = append(out, e)
		}
		return true
	})
	return out
}

// ExtractPolygons parses gml and returns its polygons. The error is non-nil
// only for malformed XML.
func ExtractPolygons(data []byte) ([]orb.Polygon, error) {
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return doc.Polygons(), nil
}

// SRSName parses gml and returns the declared srsName, if any.
func SRSName(data []byte) (string, bool) {
	doc, err := Parse(data)
	if err != nil {
		return "", false
	}
	return doc.SRSName()
}

// FirstRing parses gml and returns the first ring preview, if any.
func FirstRing(data []byte) ([]orb.Point, bool) {
	doc, err := Parse(data)
	if err != nil {
		return nil, false
	}
	return doc.FirstRing()
}
