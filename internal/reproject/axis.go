package reproject

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/carlosGalisteo/catastro-mcp-server/internal/srs"
)

// Policy is the axis treatment selected for a reported srsName.
type Policy int

const (
	// PassThrough leaves coordinates untouched. Used for CRS84 and for any
	// srsName the normalizer does not recognize (coordinates may be wrong).
	PassThrough Policy = iota
	// Swap exchanges each pair. The Catastro WFS emits EPSG:4326 as (lat, lon).
	Swap
	// Project runs (east, north) through the Transformer.
	Project
)

func (p Policy) String() string {
	switch p {
	case Swap:
		return "swap"
	case Project:
		return "project"
	}
	return "passthrough"
}

// PolicyFor picks the axis policy for srsName and returns the EPSG code when
// the policy is Project.
func PolicyFor(srsName string) (Policy, int) {
	if srs.IsCRS84(srsName) {
		return PassThrough, 0
	}
	if srs.IsEPSG4326(srsName) {
		return Swap, 4326
	}
	if code, ok := srs.EPSGCode(srsName); ok && IsProjected(code) {
		return Project, code
	}
	return PassThrough, 0
}

// ToLonLat returns a new slice holding coords in (lon, lat) order. The bool
// reports whether the EPSG:4326 swap was applied. The swap is unconditional:
// calling ToLonLat twice under EPSG:4326 swaps twice.
func ToLonLat(coords []orb.Point, srsName string, tf Transformer) ([]orb.Point, bool, error) {
	policy, code := PolicyFor(srsName)
	out := make([]orb.Point, len(coords))

	switch policy {
	case Swap:
		for i, c := range coords {
			out[i] = orb.Point{c[1], c[0]}
		}
		return out, true, nil

	case Project:
		if tf == nil || !tf.Available() {
			return nil, false, fmt.Errorf("%w: %s", ErrReprojectionUnavailable, srsName)
		}
		for i, c := range coords {
			lon, lat, err := tf.ToLonLat(code, c[0], c[1])
			if err != nil {
				return nil, false, fmt.Errorf("reproject EPSG:%d: %w", code, err)
			}
			out[i] = orb.Point{lon, lat}
		}
		return out, false, nil
	}

	copy(out, coords)
	return out, false, nil
}

// RingToLonLat is ToLonLat for a single ring.
func RingToLonLat(r orb.Ring, srsName string, tf Transformer) (orb.Ring, bool, error) {
	pts, swapped, err := ToLonLat(r, srsName, tf)
	if err != nil {
		return nil, false, err
	}
	return orb.Ring(pts), swapped, nil
}
