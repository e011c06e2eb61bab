package parcel

import (
	"context"
	"fmt"

	"github.com/paulmach/orb"

	"github.com/carlosGalisteo/catastro-mcp-server/internal/core/ogc"
	"github.com/carlosGalisteo/catastro-mcp-server/internal/gml"
	"github.com/carlosGalisteo/catastro-mcp-server/internal/srs"
)

// VertexLimit caps every vertex list in a VerticesResult.
const VertexLimit = 50

type VerticesResult struct {
	OK                    bool        `json:"ok"`
	UsedRefcat            string      `json:"used_refcat,omitempty"`
	ResponseSRSName4326   string      `json:"response_srsName_4326,omitempty"`
	EPSGUTMRecommended    int         `json:"epsg_utm_recommended,omitempty"`
	Vertices4326          []orb.Point `json:"vertices_4326_latlon,omitempty"`
	Stats4326             *Stats      `json:"stats_4326,omitempty"`
	ReprojectionAvailable bool        `json:"reprojection_available"`
	VerticesUTM           []orb.Point `json:"vertices_utm_m,omitempty"`
	StatsUTM              *Stats      `json:"stats_utm,omitempty"`
	Note                  string      `json:"note"`
	Failure               FailureKind `json:"failure,omitempty"`
}

// wantsUTM reports whether a vertices request asks for metres as well.
func wantsUTM(srsName string) bool {
	if srs.IsAuto(srsName) {
		return true
	}
	code, ok := srs.EPSGCode(srsName)
	return ok && ((code > 25800 && code <= 25860) || (code > 32600 && code <= 32660))
}

// Vertices returns the first ring of the parcel at EPSG:4326 as (lat, lon)
// and, when the request asks for UTM and reprojection is available, the
// same vertices in metres under the zone CandidateEPSG recommends.
func (r *Resolver) Vertices(ctx context.Context, refcat, srsName string) (VerticesResult, error) {
	ref14, ok := Ref14(refcat)
	if !ok {
		return VerticesResult{Note: "empty cadastral reference", Failure: FailureEmptyReference}, nil
	}

	body, err := r.fetch.GetParcel(ctx, ref14, srs.EPSG4326)
	if err != nil {
		return VerticesResult{}, err
	}
	res := VerticesResult{UsedRefcat: ref14, ReprojectionAvailable: r.tf.Available()}
	if ogc.IsExceptionReport(body) {
		res.Note = ogc.Head(string(body), ExceptionExcerpt)
		res.Failure = FailureUpstreamException
		return res, nil
	}

	res.ResponseSRSName4326 = srsNameOf(body)
	ring, ok := gml.FirstRing(body)
	if !ok {
		res.Note = "cannot parse EPSG:4326 posList"
		res.Failure = FailureParse
		return res, nil
	}

	epsg := CandidateEPSG(UTMZone(ring[0][1]))
	res.OK = true
	res.EPSGUTMRecommended = epsg
	res.Vertices4326 = ring[:min(VertexLimit, len(ring))]
	res.Stats4326 = PreviewStats(ring)

	switch {
	case !wantsUTM(srsName):
		res.Note = "EPSG:4326 vertices only (lat, lon)"
	case !r.tf.Available():
		res.Note = "EPSG:4326 vertices only (lat, lon); reprojection is disabled on this server"
	default:
		utm := make([]orb.Point, 0, len(ring))
		for _, c := range ring {
			x, y, err := r.tf.FromLonLat(epsg, c[1], c[0])
			if err != nil {
				res.Note = fmt.Sprintf("EPSG:4326 vertices only (lat, lon); %v", err)
				return res, nil
			}
			utm = append(utm, orb.Point{x, y})
		}
		res.VerticesUTM = utm[:min(VertexLimit, len(utm))]
		res.StatsUTM = PreviewStats(utm)
		res.Note = fmt.Sprintf("UTM vertices reprojected to %s (metres)", srs.Label(epsg))
	}
	return res, nil
}
