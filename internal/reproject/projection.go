package reproject

import (
	"fmt"
	"math"
	"sync"

	"github.com/go-spatial/proj"
	"github.com/go-spatial/proj/core"
	"github.com/go-spatial/proj/support"
)

type ellipsoid struct {
	a float64 // semi-major axis, metres
	f float64 // flattening
}

var grs80 = ellipsoid{a: 6378137, f: 1 / 298.257222101}

func (el ellipsoid) e2() float64 { return el.f * (2 - el.f) }

// projection converts between one projected system and WGS84 degrees.
type projection interface {
	toLonLat(x, y float64) (lon, lat float64, err error)
	fromLonLat(lon, lat float64) (x, y float64, err error)
}

var projections sync.Map // epsg -> projection

func forEPSG(epsg int) (projection, error) {
	if p, ok := projections.Load(epsg); ok {
		return p.(projection), nil
	}
	var (
		p   projection
		err error
	)
	switch {
	case epsg >= 32601 && epsg <= 32660:
		p, err = newUTM("WGS84", epsg-32600)
	case epsg >= 25801 && epsg <= 25860:
		p, err = newUTM("GRS80", epsg-25800)
	case epsg == 3857, epsg == 3785:
		p = webMercator{}
	case epsg == 3035:
		p = newLAEA(grs80, 52, 10, 4321000, 3210000)
	default:
		return nil, fmt.Errorf("%w: EPSG:%d", ErrUnsupportedCRS, epsg)
	}
	if err != nil {
		return nil, fmt.Errorf("reproject: EPSG:%d: %w", epsg, err)
	}
	stored, _ := projections.LoadOrStore(epsg, p)
	return stored.(projection), nil
}

const deg = math.Pi / 180

// utm runs a go-spatial/proj utm operation (extended transverse Mercator).
type utm struct {
	op core.IConvertLPToXY
}

func newUTM(ellps string, zone int) (*utm, error) {
	ps, err := support.NewProjString(fmt.Sprintf("+proj=utm +zone=%d +ellps=%s", zone, ellps))
	if err != nil {
		return nil, err
	}
	_, opx, err := core.NewSystem(ps)
	if err != nil {
		return nil, err
	}
	op, ok := opx.(core.IConvertLPToXY)
	if !ok {
		return nil, fmt.Errorf("utm zone %d: operation is not a forward/inverse projection", zone)
	}
	return &utm{op: op}, nil
}

func (u *utm) fromLonLat(lon, lat float64) (float64, float64, error) {
	xy, err := u.op.Forward(&core.CoordLP{Lam: lon * deg, Phi: lat * deg})
	if err != nil {
		return 0, 0, err
	}
	return xy.X, xy.Y, nil
}

func (u *utm) toLonLat(x, y float64) (float64, float64, error) {
	lp, err := u.op.Inverse(&core.CoordXY{X: x, Y: y})
	if err != nil {
		return 0, 0, err
	}
	return lp.Lam / deg, lp.Phi / deg, nil
}

// webMercator is the spherical pseudo-Mercator of EPSG:3857.
type webMercator struct{}

func (webMercator) fromLonLat(lon, lat float64) (float64, float64, error) {
	xy, err := proj.Convert(proj.EPSG3857, []float64{lon, lat})
	if err != nil {
		return 0, 0, err
	}
	return xy[0], xy[1], nil
}

func (webMercator) toLonLat(x, y float64) (float64, float64, error) {
	ll, err := proj.Inverse(proj.EPSG3857, []float64{x, y})
	if err != nil {
		return 0, 0, err
	}
	return ll[0], ll[1], nil
}

// laea is the ellipsoidal Lambert Azimuthal Equal Area, oblique aspect.
// go-spatial/proj registers no laea operation, so EPSG:3035 is computed here.
type laea struct {
	a, e, e2     float64
	lon0         float64
	fe, fn       float64
	qP, rq, d    float64
	sinB0, cosB0 float64
	phi0         float64
}

func newLAEA(el ellipsoid, lat0, lon0, fe, fn float64) *laea {
	l := &laea{
		a:    el.a,
		e2:   el.e2(),
		e:    math.Sqrt(el.e2()),
		lon0: lon0 * deg,
		fe:   fe,
		fn:   fn,
		phi0: lat0 * deg,
	}
	l.qP = l.q(math.Pi / 2)
	q0 := l.q(l.phi0)
	b0 := math.Asin(q0 / l.qP)
	l.sinB0, l.cosB0 = math.Sin(b0), math.Cos(b0)
	l.rq = l.a * math.Sqrt(l.qP/2)
	sinPhi0 := math.Sin(l.phi0)
	l.d = l.a * (math.Cos(l.phi0) / math.Sqrt(1-l.e2*sinPhi0*sinPhi0)) / (l.rq * l.cosB0)
	return l
}

func (l *laea) q(phi float64) float64 {
	s := math.Sin(phi)
	return (1 - l.e2) * (s/(1-l.e2*s*s) - 1/(2*l.e)*math.Log((1-l.e*s)/(1+l.e*s)))
}

func (l *laea) fromLonLat(lon, lat float64) (float64, float64, error) {
	beta := math.Asin(l.q(lat*deg) / l.qP)
	dl := lon*deg - l.lon0
	sinB, cosB := math.Sin(beta), math.Cos(beta)

	b := l.rq * math.Sqrt(2/(1+l.sinB0*sinB+l.cosB0*cosB*math.Cos(dl)))
	x := l.fe + b*l.d*cosB*math.Sin(dl)
	y := l.fn + (b/l.d)*(l.cosB0*sinB-l.sinB0*cosB*math.Cos(dl))
	return x, y, nil
}

func (l *laea) toLonLat(x, y float64) (float64, float64, error) {
	dx, dy := x-l.fe, y-l.fn
	rho := math.Hypot(dx/l.d, l.d*dy)
	if rho == 0 {
		return l.lon0 / deg, l.phi0 / deg, nil
	}
	c := 2 * math.Asin(rho/(2*l.rq))
	sinC, cosC := math.Sin(c), math.Cos(c)

	betaP := math.Asin(cosC*l.sinB0 + l.d*dy*sinC*l.cosB0/rho)
	lam := l.lon0 + math.Atan2(dx*sinC, l.d*rho*l.cosB0*cosC-l.d*l.d*dy*l.sinB0*sinC)

	e2, e4 := l.e2, l.e2*l.e2
	e6 := e4 * e2
	phi := betaP +
		(e2/3+31*e4/180+517*e6/5040)*math.Sin(2*betaP) +
		(23*e4/360+251*e6/3780)*math.Sin(4*betaP) +
		(761*e6/45360)*math.Sin(6*betaP)
	return lam / deg, phi / deg, nil
}
