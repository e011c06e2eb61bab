package composer

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/paulmach/orb"

	"github.com/carlosGalisteo/catastro-mcp-server/internal/reproject"
)

func square(x, y, d float64) orb.Polygon {
	return orb.Polygon{orb.Ring{{x, y}, {x + d, y}, {x + d, y + d}, {x, y + d}, {x, y}}}
}

type decoded struct {
	Type     string    `json:"type"`
	BBox     []float64 `json:"bbox"`
	Features []struct {
		Type     string    `json:"type"`
		BBox     []float64 `json:"bbox"`
		Geometry struct {
			Type        string          `json:"type"`
			Coordinates json.RawMessage `json:"coordinates"`
		} `json:"geometry"`
		Properties map[string]any `json:"properties"`
	} `json:"features"`
}

func decode(t *testing.T, r Result) decoded {
	t.Helper()
	b, err := Encode(r.Collection)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var d decoded
	if err := json.Unmarshal(b, &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return d
}

func TestAssemble_SinglePolygon(t *testing.T) {
	a := New(Options{H3Resolution: -1})
	res, err := a.Assemble(Input{
		Ref14:    "9872023VH5797S",
		SRSName:  "urn:ogc:def:crs:CRS::84",
		Polygons: []orb.Polygon{square(-3.7, 40.4, 0.001)},
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	d := decode(t, res)
	if d.Type != "FeatureCollection" || len(d.Features) != 1 {
		t.Fatalf("bad collection: %+v", d)
	}
	f := d.Features[0]
	if f.Geometry.Type != "Polygon" || res.GeometryType != "Polygon" {
		t.Fatalf("geometry type=%q", f.Geometry.Type)
	}
	if f.Properties["refcat"] != "9872023VH5797S" || f.Properties["axis_fix_applied"] != false {
		t.Fatalf("properties: %v", f.Properties)
	}
	if f.Properties["crs_hint"] != CRSHint || f.Properties["source_srsName"] != "urn:ogc:def:crs:CRS::84" {
		t.Fatalf("properties: %v", f.Properties)
	}
	if _, ok := f.Properties["h3_cell"]; ok {
		t.Fatalf("h3_cell must be absent when disabled")
	}
}

func TestAssemble_TwoPolygonsAndBBox(t *testing.T) {
	a := New(Options{H3Resolution: -1})
	res, err := a.Assemble(Input{
		Ref14:   "38001A00100001",
		SRSName: "urn:ogc:def:crs:EPSG::4326",
		Polygons: []orb.Polygon{
			// lat, lon on the wire
			{orb.Ring{{28.1, -16.5}, {28.1, -16.4}, {28.2, -16.4}, {28.1, -16.5}}},
			{orb.Ring{{28.3, -16.7}, {28.3, -16.6}, {28.35, -16.6}, {28.3, -16.7}}},
		},
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	d := decode(t, res)
	f := d.Features[0]
	if f.Geometry.Type != "MultiPolygon" {
		t.Fatalf("geometry type=%q want MultiPolygon", f.Geometry.Type)
	}
	if f.Properties["axis_fix_applied"] != true {
		t.Fatalf("axis fix not reported")
	}

	want := []float64{-16.7, 28.1, -16.4, 28.35}
	for _, bb := range [][]float64{d.BBox, f.BBox} {
		if len(bb) != 4 {
			t.Fatalf("bbox=%v", bb)
		}
		for i := range want {
			if bb[i] != want[i] {
				t.Fatalf("bbox=%v want %v", bb, want)
			}
		}
	}

	var coords [][][][2]float64
	if err := json.Unmarshal(f.Geometry.Coordinates, &coords); err != nil {
		t.Fatalf("coords: %v", err)
	}
	if coords[0][0][0] != [2]float64{-16.5, 28.1} {
		t.Fatalf("first vertex not lon/lat: %v", coords[0][0][0])
	}
}

func TestAssemble_RoundsOnlyOnOutput(t *testing.T) {
	a := New(Options{H3Resolution: -1})
	p := orb.Polygon{orb.Ring{
		{-3.123456789, 40.000000049}, {-3.1, 40.000000049}, {-3.1, 40.1}, {-3.123456789, 40.000000049},
	}}
	res, err := a.Assemble(Input{Ref14: "X", SRSName: "CRS:84", Polygons: []orb.Polygon{p}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.Bound.Min[0] != -3.123456789 {
		t.Fatalf("bound must keep full precision: %v", res.Bound)
	}
	d := decode(t, res)
	if d.BBox[0] != -3.1234568 || d.BBox[1] != 40.0 {
		t.Fatalf("bbox not rounded to 7 decimals: %v", d.BBox)
	}
	var coords [][][2]float64
	_ = json.Unmarshal(d.Features[0].Geometry.Coordinates, &coords)
	if coords[0][0][0] != -3.1234568 {
		t.Fatalf("coordinate not rounded: %v", coords[0][0])
	}
}

func TestAssemble_H3Cell(t *testing.T) {
	a := New(Options{H3Resolution: 9})
	res, err := a.Assemble(Input{Ref14: "X", SRSName: "CRS:84", Polygons: []orb.Polygon{square(-3.7, 40.4, 0.001)}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	cell, _ := res.Collection.Features[0].Properties["h3_cell"].(string)
	if len(cell) != 15 {
		t.Fatalf("h3_cell=%q", cell)
	}
}

func TestAssemble_ProjectedNeedsTransformer(t *testing.T) {
	in := Input{
		Ref14:    "X",
		SRSName:  "urn:ogc:def:crs:EPSG::25830",
		Polygons: []orb.Polygon{square(440000, 4474000, 20)},
	}
	if _, err := New(Options{}).Assemble(in); !errors.Is(err, reproject.ErrReprojectionUnavailable) {
		t.Fatalf("want ErrReprojectionUnavailable, got %v", err)
	}

	res, err := New(Options{Transformer: reproject.Builtin(), H3Resolution: -1}).Assemble(in)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.AxisFixApplied {
		t.Fatalf("projected input must not report a swap")
	}
	if lon := res.Bound.Min[0]; lon < -3.72 || lon > -3.70 {
		t.Fatalf("reprojected lon=%v", lon)
	}
}

func TestAssemble_NoGeometry(t *testing.T) {
	if _, err := New(Options{}).Assemble(Input{Ref14: "X"}); !errors.Is(err, ErrNoGeometry) {
		t.Fatalf("want ErrNoGeometry, got %v", err)
	}
}
