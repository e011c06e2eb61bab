package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/carlosGalisteo/catastro-mcp-server/internal/composer"
	"github.com/carlosGalisteo/catastro-mcp-server/internal/logger"
	"github.com/carlosGalisteo/catastro-mcp-server/internal/parcel"
)

type Request struct {
	Refcat string
	// SRS selects the GML CRS; AUTO when empty. GeoJSON is always lon/lat.
	SRS       string
	OutDir    string
	Basename  string
	Overwrite bool
}

type GMLArtifact struct {
	Artifact
	RequestedSRS    string `json:"requested_srs"`
	ResolvedSRS     string `json:"resolved_srs,omitempty"`
	ResponseSRSName string `json:"response_srsName,omitempty"`
}

type GeoJSONArtifact struct {
	Artifact
	ConvertedFromSameGML bool `json:"converted_from_same_gml"`
}

type Result struct {
	OK         bool               `json:"ok"`
	UsedRefcat string             `json:"used_refcat,omitempty"`
	Sink       string             `json:"sink,omitempty"`
	GML        *GMLArtifact       `json:"gml,omitempty"`
	GeoJSON    *GeoJSONArtifact   `json:"geojson,omitempty"`
	Note       string             `json:"note"`
	Failure    parcel.FailureKind `json:"failure,omitempty"`
}

type Exporter struct {
	parcels  *parcel.Resolver
	sink     Sink
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewExporter(parcels *parcel.Resolver, sink Sink, notifier Notifier, logger *slog.Logger) *Exporter {
	if notifier == nil {
		notifier = NopNotifier()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Exporter{parcels: parcels, sink: sink, notifier: notifier, logger: logger, now: time.Now}
}

// Export writes <basename>.gml at the requested CRS and <basename>.geojson
// in lon/lat. When the GML is projected and reprojection is unavailable the
// GeoJSON comes from an EPSG:4326 refetch. Sink errors (ErrExists,
// ErrOutsideRoot) and transport errors are returned as errors.
func (e *Exporter) Export(ctx context.Context, req Request) (Result, error) {
	ref14, ok := parcel.Ref14(req.Refcat)
	if !ok {
		return Result{Note: "empty cadastral reference", Failure: parcel.FailureEmptyReference}, nil
	}
	ctx = logger.WithRefcat(ctx, ref14)
	srsName := req.SRS
	if strings.TrimSpace(srsName) == "" {
		srsName = "AUTO"
	}
	base := strings.TrimSpace(req.Basename)
	if base == "" {
		base = ref14
	}

	out, err := e.parcels.Resolve(ctx, ref14, srsName)
	if err != nil {
		return Result{}, err
	}
	res := Result{UsedRefcat: ref14, Sink: e.sink.Name()}
	if !out.OK {
		res.Note, res.Failure = out.Note, out.Failure
		return res, nil
	}

	gmlBody := []byte(out.GML)
	ga, err := e.sink.Write(ctx, req.OutDir, base+".gml", gmlBody, req.Overwrite)
	if err != nil {
		return Result{}, fmt.Errorf("write gml: %w", err)
	}
	res.GML = &GMLArtifact{
		Artifact:        ga,
		RequestedSRS:    srsName,
		ResolvedSRS:     out.ResolvedSRS,
		ResponseSRSName: out.ResponseSRSName,
	}

	conv, err := e.parcels.Convert(ctx, ref14, gmlBody)
	var f *parcel.Failure
	switch {
	case errors.As(err, &f):
		res.Note = "GML written but GeoJSON failed: " + f.Note
		res.Failure = f.Kind
		return res, nil
	case err != nil:
		return Result{}, err
	}

	text, err := composer.Encode(conv.Collection)
	if err != nil {
		return Result{}, err
	}
	ja, err := e.sink.Write(ctx, req.OutDir, base+".geojson", text, req.Overwrite)
	if err != nil {
		return Result{}, fmt.Errorf("write geojson: %w", err)
	}
	res.GeoJSON = &GeoJSONArtifact{Artifact: ja, ConvertedFromSameGML: conv.FromSameGML}
	res.OK = true
	res.Note = "export completed; GeoJSON is lon/lat (WGS84)"

	e.notifier.Notify(Event{
		Type:        EventCompleted,
		Refcat:      ref14,
		Sink:        e.sink.Name(),
		ResolvedSRS: out.ResolvedSRS,
		Artifacts:   []Artifact{ga, ja},
		TS:          e.now().UTC(),
	})
	e.logger.InfoContext(ctx, "parcel exported",
		"refcat", ref14, "sink", e.sink.Name(), "gml", ga.Location, "geojson", ja.Location)
	return res, nil
}
