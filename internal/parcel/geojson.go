package parcel

import (
	"context"
	"errors"
	"fmt"

	"github.com/paulmach/orb/geojson"

	"github.com/carlosGalisteo/catastro-mcp-server/internal/composer"
	"github.com/carlosGalisteo/catastro-mcp-server/internal/gml"
	"github.com/carlosGalisteo/catastro-mcp-server/internal/reproject"
	"github.com/carlosGalisteo/catastro-mcp-server/internal/srs"
)

// Conversion is a parcel GML document assembled into GeoJSON.
type Conversion struct {
	Collection *geojson.FeatureCollection
	// SRSName is the srsName of the GML that was actually converted.
	SRSName        string
	AxisFixApplied bool
	// FromSameGML is false when the first document needed reprojection
	// that was unavailable and EPSG:4326 was fetched instead.
	FromSameGML bool
}

// Convert assembles body into GeoJSON. When body is in a projected CRS and
// reprojection is unavailable the parcel is requested again at EPSG:4326.
// Domain failures are returned as *Failure.
func (r *Resolver) Convert(ctx context.Context, ref14 string, body []byte) (Conversion, error) {
	conv, err := r.assemble(ref14, body)
	if err == nil {
		conv.FromSameGML = true
		return conv, nil
	}
	if !errors.Is(err, reproject.ErrReprojectionUnavailable) {
		return Conversion{}, err
	}

	r.logger.InfoContext(ctx, "reprojection unavailable, refetching at EPSG:4326", "refcat", ref14)
	out, ferr := r.Resolve(ctx, ref14, srs.EPSG4326)
	if ferr != nil {
		return Conversion{}, ferr
	}
	if !out.OK {
		return Conversion{}, &Failure{
			Kind: FailureReprojection,
			Note: fmt.Sprintf("reprojection unavailable and EPSG:4326 refetch failed: %s", out.Note),
		}
	}
	return r.assemble(ref14, []byte(out.GML))
}

func (r *Resolver) assemble(ref14 string, body []byte) (Conversion, error) {
	polys, err := gml.ExtractPolygons(body)
	if err != nil {
		return Conversion{}, &Failure{Kind: FailureParse, Note: err.Error()}
	}
	name := srsNameOf(body)
	res, err := r.assembler.Assemble(composer.Input{Ref14: ref14, SRSName: name, Polygons: polys})
	switch {
	case errors.Is(err, composer.ErrNoGeometry):
		return Conversion{}, &Failure{Kind: FailureParse, Note: "no polygon geometry in GML"}
	case err != nil:
		return Conversion{}, err
	}
	return Conversion{Collection: res.Collection, SRSName: name, AxisFixApplied: res.AxisFixApplied}, nil
}

type GeoJSONResult struct {
	OK                   bool                       `json:"ok"`
	UsedRefcat           string                     `json:"used_refcat,omitempty"`
	Source               string                     `json:"source,omitempty"`
	RequestedSRS         string                     `json:"requested_srs,omitempty"`
	ResolvedSRS          string                     `json:"resolved_srs,omitempty"`
	ResponseSRSName      string                     `json:"response_srsName,omitempty"`
	AxisFixApplied       bool                       `json:"axis_fix_applied"`
	ConvertedFromSameGML bool                       `json:"converted_from_same_gml"`
	GeoJSON              *geojson.FeatureCollection `json:"geojson"`
	GeoJSONText          string                     `json:"geojson_text,omitempty"`
	Note                 string                     `json:"note"`
	Failure              FailureKind                `json:"failure,omitempty"`
}

// GeoJSON resolves the parcel at srsName (EPSG:4326 when empty) and converts
// the GML to a lon/lat FeatureCollection.
func (r *Resolver) GeoJSON(ctx context.Context, refcat, srsName string) (GeoJSONResult, error) {
	if srsName == "" {
		srsName = srs.EPSG4326
	}
	out, err := r.Resolve(ctx, refcat, srsName)
	if err != nil {
		return GeoJSONResult{}, err
	}
	res := GeoJSONResult{UsedRefcat: out.UsedRefcat, RequestedSRS: srsName}
	if !out.OK {
		res.Note, res.Failure = out.Note, out.Failure
		return res, nil
	}

	conv, err := r.Convert(ctx, out.UsedRefcat, []byte(out.GML))
	var f *Failure
	switch {
	case errors.As(err, &f):
		res.Note, res.Failure = f.Note, f.Kind
		return res, nil
	case err != nil:
		return GeoJSONResult{}, err
	}

	text, err := composer.Encode(conv.Collection)
	if err != nil {
		return GeoJSONResult{}, err
	}
	res.OK = true
	res.Source = "gml-convert"
	res.ResolvedSRS = out.ResolvedSRS
	res.ResponseSRSName = conv.SRSName
	res.AxisFixApplied = conv.AxisFixApplied
	res.ConvertedFromSameGML = conv.FromSameGML
	res.GeoJSON = conv.Collection
	res.GeoJSONText = string(text)
	res.Note = "converted from GML to GeoJSON (lon/lat)"
	if !conv.FromSameGML {
		res.ResolvedSRS = srs.EPSG4326
		res.Note = "reprojection unavailable; converted from an EPSG:4326 refetch (lon/lat)"
	}
	return res, nil
}
