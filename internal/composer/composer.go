// Package composer assembles normalized parcel polygons into an RFC 7946
// FeatureCollection.
package composer

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	h3 "github.com/uber/h3-go/v4"

	"github.com/carlosGalisteo/catastro-mcp-server/internal/reproject"
)

// CRSHint is advertised in feature properties; RFC 7946 output is lon/lat.
const CRSHint = "OGC:CRS84"

// ErrNoGeometry is returned when there are no polygons to assemble.
var ErrNoGeometry = errors.New("composer: no geometry")

type Options struct {
	Transformer reproject.Transformer
	// H3Resolution adds an h3_cell property when in 0..15.
	H3Resolution int
}

type Input struct {
	Ref14 string
	// SRSName is the srsName reported by the WFS, before normalization.
	SRSName  string
	Polygons []orb.Polygon
	Note     string
}

type Result struct {
	Collection     *geojson.FeatureCollection
	GeometryType   string
	AxisFixApplied bool
	// Bound is computed on unrounded lon/lat; zero when HasBound is false.
	Bound    orb.Bound
	HasBound bool
}

type Assembler struct {
	opts Options
}

func New(opts Options) *Assembler {
	if opts.Transformer == nil {
		opts.Transformer = reproject.Unavailable()
	}
	return &Assembler{opts: opts}
}

// Assemble normalizes every ring of every polygon on its own and wraps the
// result in a single-feature collection. reproject.ErrReprojectionUnavailable
// is returned unchanged (wrapped) so callers can fall back to EPSG:4326.
func (a *Assembler) Assemble(in Input) (Result, error) {
	if len(in.Polygons) == 0 {
		return Result{}, ErrNoGeometry
	}

	polys := make([]orb.Polygon, 0, len(in.Polygons))
	swappedAny := false
	for pi, p := range in.Polygons {
		out := make(orb.Polygon, 0, len(p))
		for ri, ring := range p {
			r, swapped, err := reproject.RingToLonLat(ring, in.SRSName, a.opts.Transformer)
			if err != nil {
				return Result{}, fmt.Errorf("polygon %d ring %d: %w", pi, ri, err)
			}
			swappedAny = swappedAny || swapped
			out = append(out, r)
		}
		polys = append(polys, out)
	}

	bound, hasBound := boundOf(polys)

	var geom orb.Geometry
	var typ string
	if len(polys) == 1 {
		geom, typ = roundPolygon(polys[0]), "Polygon"
	} else {
		mp := make(orb.MultiPolygon, 0, len(polys))
		for _, p := range polys {
			mp = append(mp, roundPolygon(p))
		}
		geom, typ = mp, "MultiPolygon"
	}

	f := geojson.NewFeature(geom)
	f.Properties["refcat"] = in.Ref14
	f.Properties["source_srsName"] = in.SRSName
	f.Properties["axis_fix_applied"] = swappedAny
	f.Properties["crs_hint"] = CRSHint
	if in.Note != "" {
		f.Properties["note"] = in.Note
	}
	if hasBound {
		if cell, ok := a.cellFor(bound); ok {
			f.Properties["h3_cell"] = cell
		}
	}

	fc := geojson.NewFeatureCollection()
	if hasBound {
		bb := geojson.BBox{
			round(bound.Min[0]), round(bound.Min[1]),
			round(bound.Max[0]), round(bound.Max[1]),
		}
		f.BBox = bb
		fc.BBox = bb
	}
	fc.Append(f)

	return Result{
		Collection:     fc,
		GeometryType:   typ,
		AxisFixApplied: swappedAny,
		Bound:          bound,
		HasBound:       hasBound,
	}, nil
}

func (a *Assembler) cellFor(b orb.Bound) (string, bool) {
	res := a.opts.H3Resolution
	if res < 0 || res > 15 {
		return "", false
	}
	c := b.Center()
	cell, err := h3.LatLngToCell(h3.LatLng{Lat: c[1], Lng: c[0]}, res)
	if err != nil {
		return "", false
	}
	return cell.String(), true
}

func boundOf(polys []orb.Polygon) (orb.Bound, bool) {
	var (
		b     orb.Bound
		found bool
	)
	for _, p := range polys {
		for _, r := range p {
			for _, pt := range r {
				if !found {
					b = orb.Bound{Min: pt, Max: pt}
					found = true
					continue
				}
				b = b.Extend(pt)
			}
		}
	}
	return b, found
}

func roundPolygon(p orb.Polygon) orb.Polygon {
	out := make(orb.Polygon, len(p))
	for i, r := range p {
		rr := make(orb.Ring, len(r))
		for j, pt := range r {
			rr[j] = orb.Point{round(pt[0]), round(pt[1])}
		}
		out[i] = rr
	}
	return out
}

// round to 7 decimals, about 1 cm
func round(v float64) float64 {
	const scale = 1e7
	return math.Round(v*scale) / scale
}

// Encode serializes the collection as compact JSON.
func Encode(fc *geojson.FeatureCollection) ([]byte, error) {
	b, err := fc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal FeatureCollection: %w", err)
	}
	return b, nil
}
