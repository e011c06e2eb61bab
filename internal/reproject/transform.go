// Package reproject converts parcel coordinates into (lon, lat) WGS84.
//
// Coordinate transforms are reached through the Transformer port. The port is
// chosen once at startup: Builtin() carries the projections the Catastro WFS
// can serve, Unavailable() reports that no transform capability exists, in
// which case callers re-request geometry at EPSG:4326.
package reproject

import "errors"

var (
	// ErrReprojectionUnavailable means a projected CRS needed conversion but the
	// configured Transformer cannot perform it. Recoverable.
	ErrReprojectionUnavailable = errors.New("reproject: reprojection unavailable")

	ErrUnsupportedCRS = errors.New("reproject: unsupported crs")
)

// Transformer converts between a projected EPSG system and WGS84 lon/lat.
// Projected input is always (east, north).
type Transformer interface {
	Available() bool
	ToLonLat(epsg int, x, y float64) (lon, lat float64, err error)
	FromLonLat(epsg int, lon, lat float64) (x, y float64, err error)
}

// IsProjected reports whether epsg is one of the projected systems the
// normalizer reprojects: WGS84/UTM north, ETRS89/UTM, Web Mercator and
// ETRS89-LAEA Europe.
func IsProjected(epsg int) bool {
	switch {
	case epsg >= 32601 && epsg <= 32660:
		return true
	case epsg >= 25801 && epsg <= 25860:
		return true
	case epsg == 3857, epsg == 3785, epsg == 3035:
		return true
	}
	return false
}

type builtin struct{}

// Builtin returns the pure-Go transformer backed by go-spatial/proj.
func Builtin() Transformer { return builtin{} }

func (builtin) Available() bool { return true }

func (builtin) ToLonLat(epsg int, x, y float64) (float64, float64, error) {
	p, err := forEPSG(epsg)
	if err != nil {
		return 0, 0, err
	}
	return p.toLonLat(x, y)
}

func (builtin) FromLonLat(epsg int, lon, lat float64) (float64, float64, error) {
	p, err := forEPSG(epsg)
	if err != nil {
		return 0, 0, err
	}
	return p.fromLonLat(lon, lat)
}

type unavailable struct{}

// Unavailable returns a Transformer that refuses every conversion.
func Unavailable() Transformer { return unavailable{} }

func (unavailable) Available() bool { return false }

func (unavailable) ToLonLat(int, float64, float64) (float64, float64, error) {
	return 0, 0, ErrReprojectionUnavailable
}

func (unavailable) FromLonLat(int, float64, float64) (float64, float64, error) {
	return 0, 0, ErrReprojectionUnavailable
}

// FromConfig maps the REPROJECTION setting to a Transformer. Anything other
// than "off" selects the builtin projections.
func FromConfig(mode string) Transformer {
	if mode == "off" {
		return Unavailable()
	}
	return Builtin()
}
