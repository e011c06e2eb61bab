package parcel

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/carlosGalisteo/catastro-mcp-server/internal/composer"
	"github.com/carlosGalisteo/catastro-mcp-server/internal/core/observability"
	"github.com/carlosGalisteo/catastro-mcp-server/internal/core/ogc"
	"github.com/carlosGalisteo/catastro-mcp-server/internal/gml"
	"github.com/carlosGalisteo/catastro-mcp-server/internal/reproject"
	"github.com/carlosGalisteo/catastro-mcp-server/internal/srs"
)

// ExceptionExcerpt bounds how much of an exception report is echoed back.
const ExceptionExcerpt = 1200

const unknownSRS = "unknown"

// Fetcher runs the GetParcel stored query. *inspire.Client implements it.
type Fetcher interface {
	GetParcel(ctx context.Context, ref14, srsName string) ([]byte, error)
}

// State is a step of the AUTO CRS resolution. An Outcome reports the
// terminal state and, for failures, Stage names the step that failed.
type State string

const (
	StateFetchBaseline   State = "FETCH_BASELINE"
	StateExtractBaseline State = "EXTRACT_BASELINE"
	StateDeriveZone      State = "DERIVE_ZONE"
	StateSelectCandidate State = "SELECT_CANDIDATE"
	StateFetchCandidate  State = "FETCH_CANDIDATE"
	StateVerify          State = "VERIFY"
	StateSucceed         State = "SUCCEED"
	StateSucceedDegraded State = "SUCCEED_DEGRADED"
	StateFail            State = "FAIL"
	// StateManual is the single request of a non-AUTO call.
	StateManual State = "MANUAL"
)

type FailureKind string

const (
	FailureUpstreamException FailureKind = "upstream_exception"
	FailureParse             FailureKind = "parse_failure"
	FailureReprojection      FailureKind = "reprojection_unavailable"
	FailureSanityCheck       FailureKind = "sanity_check"
	FailureEmptyReference    FailureKind = "empty_reference"
)

// Failure is a domain failure: the upstream answered, but not with usable
// geometry. Transport errors are never Failures.
type Failure struct {
	Kind FailureKind
	Note string
}

func (f *Failure) Error() string { return fmt.Sprintf("%s: %s", f.Kind, f.Note) }

type Diagnostic struct {
	ResponseSRSName4326 string `json:"response_srsName_4326,omitempty"`
	Zone                int    `json:"utm_zone,omitempty"`
	CandidateEPSG       int    `json:"epsg_candidate,omitempty"`
	Baseline            *Stats `json:"coords_4326_preview,omitempty"`
	Candidate           *Stats `json:"coords_utm_preview,omitempty"`
	Preview             *Stats `json:"coords_preview,omitempty"`
}

// Outcome is the result of resolving one parcel. OK is true for SUCCEED and
// SUCCEED_DEGRADED; degraded outcomes explain themselves in Note.
type Outcome struct {
	OK              bool        `json:"ok"`
	UsedRefcat      string      `json:"used_refcat,omitempty"`
	RequestedSRS    string      `json:"requested_srs,omitempty"`
	ResolvedSRS     string      `json:"resolved_srs,omitempty"`
	ResponseSRSName string      `json:"response_srsName,omitempty"`
	GML             string      `json:"gml,omitempty"`
	Note            string      `json:"note"`
	Failure         FailureKind `json:"failure,omitempty"`
	State           State       `json:"state"`
	Stage           State       `json:"stage,omitempty"`
	CRSMismatch     bool        `json:"crs_mismatch,omitempty"`
	Diagnostic      *Diagnostic `json:"diagnostic,omitempty"`
}

// Err returns the failure of a not-OK outcome.
func (o Outcome) Err() error {
	if o.OK {
		return nil
	}
	return &Failure{Kind: o.Failure, Note: o.Note}
}

func fail(ref14 string, stage State, kind FailureKind, note string) Outcome {
	return Outcome{UsedRefcat: ref14, Note: note, Failure: kind, State: StateFail, Stage: stage}
}

type Config struct {
	Fetcher     Fetcher
	Transformer reproject.Transformer
	// H3Resolution is forwarded to the GeoJSON assembler.
	H3Resolution int
	Logger       *slog.Logger
}

type Resolver struct {
	fetch     Fetcher
	tf        reproject.Transformer
	assembler *composer.Assembler
	logger    *slog.Logger
}

func NewResolver(cfg Config) *Resolver {
	if cfg.Transformer == nil {
		cfg.Transformer = reproject.Unavailable()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{
		fetch:     cfg.Fetcher,
		tf:        cfg.Transformer,
		assembler: composer.New(composer.Options{Transformer: cfg.Transformer, H3Resolution: cfg.H3Resolution}),
		logger:    cfg.Logger,
	}
}

// UTMZone is the 6 degree UTM zone containing lon.
func UTMZone(lon float64) int {
	return int(math.Floor((lon+180)/6)) + 1
}

// CandidateEPSG picks the UTM code the Catastro WFS serves correctly for a
// zone: WGS84/UTM for the Canary Islands (27, 28), ETRS89/UTM elsewhere.
func CandidateEPSG(zone int) int {
	if zone == 27 || zone == 28 {
		return 32600 + zone
	}
	return 25800 + zone
}

// Resolve fetches the GML of one parcel. An AUTO srsName (or an empty one)
// runs the two-step CRS resolution; anything else is requested as given.
func (r *Resolver) Resolve(ctx context.Context, refcat, srsName string) (Outcome, error) {
	ref14, ok := Ref14(refcat)
	if !ok {
		return fail("", StateFetchBaseline, FailureEmptyReference, "empty cadastral reference"), nil
	}
	if strings.TrimSpace(srsName) == "" {
		srsName = "AUTO"
	}
	if srs.IsAuto(srsName) {
		out, err := r.auto(ctx, ref14, srsName)
		if err != nil {
			observability.IncAutoCRSOutcome("error")
			return Outcome{}, err
		}
		observability.IncAutoCRSOutcome(strings.ToLower(string(out.State)))
		r.logger.InfoContext(ctx, "auto crs resolved",
			"refcat", ref14, "state", string(out.State), "resolved_srs", out.ResolvedSRS)
		return out, nil
	}
	return r.manual(ctx, ref14, srsName)
}

func (r *Resolver) auto(ctx context.Context, ref14, requested string) (Outcome, error) {
	baseline, err := r.fetch.GetParcel(ctx, ref14, srs.EPSG4326)
	if err != nil {
		return Outcome{}, err
	}
	if ogc.IsExceptionReport(baseline) {
		return fail(ref14, StateFetchBaseline, FailureUpstreamException, ogc.Head(string(baseline), ExceptionExcerpt)), nil
	}

	baselineSRS := srsNameOf(baseline)
	ring, ok := gml.FirstRing(baseline)
	if !ok {
		out := fail(ref14, StateExtractBaseline, FailureParse, "cannot parse baseline geometry")
		out.Diagnostic = &Diagnostic{ResponseSRSName4326: baselineSRS}
		return out, nil
	}

	// EPSG:4326 arrives as (lat, lon).
	zone := UTMZone(ring[0][1])
	epsg := CandidateEPSG(zone)
	label := srs.Label(epsg)
	diag := &Diagnostic{
		ResponseSRSName4326: baselineSRS,
		Zone:                zone,
		CandidateEPSG:       epsg,
		Baseline:            PreviewStats(ring),
	}

	candidate, err := r.fetch.GetParcel(ctx, ref14, label)
	if err != nil {
		return Outcome{}, err
	}
	if ogc.IsExceptionReport(candidate) {
		return Outcome{
			OK:              true,
			UsedRefcat:      ref14,
			RequestedSRS:    requested,
			ResolvedSRS:     srs.EPSG4326,
			ResponseSRSName: baselineSRS,
			GML:             string(baseline),
			Note:            fmt.Sprintf("AUTO: candidate %s rejected by the server, returning EPSG:4326", label),
			State:           StateSucceedDegraded,
			Stage:           StateFetchCandidate,
			Diagnostic:      diag,
		}, nil
	}

	candidateSRS := srsNameOf(candidate)
	if !strings.Contains(candidateSRS, strconv.Itoa(epsg)) {
		return Outcome{
			OK:              true,
			UsedRefcat:      ref14,
			RequestedSRS:    requested,
			ResolvedSRS:     label,
			ResponseSRSName: candidateSRS,
			GML:             string(candidate),
			Note:            fmt.Sprintf("AUTO: server ignored %s and answered in %s", label, candidateSRS),
			State:           StateSucceedDegraded,
			Stage:           StateVerify,
			CRSMismatch:     true,
			Diagnostic:      diag,
		}, nil
	}

	if utm, ok := gml.FirstRing(candidate); ok {
		diag.Candidate = PreviewStats(utm)
	}
	return Outcome{
		OK:              true,
		UsedRefcat:      ref14,
		RequestedSRS:    requested,
		ResolvedSRS:     label,
		ResponseSRSName: candidateSRS,
		GML:             string(candidate),
		Note:            fmt.Sprintf("AUTO OK: EPSG:4326 -> %s (zone %d)", label, zone),
		State:           StateSucceed,
		Diagnostic:      diag,
	}, nil
}

func (r *Resolver) manual(ctx context.Context, ref14, requested string) (Outcome, error) {
	body, err := r.fetch.GetParcel(ctx, ref14, requested)
	if err != nil {
		return Outcome{}, err
	}
	if ogc.IsExceptionReport(body) {
		return fail(ref14, StateManual, FailureUpstreamException, ogc.Head(string(body), ExceptionExcerpt)), nil
	}
	if !bytes.Contains(body, []byte(ref14)) {
		return fail(ref14, StateManual, FailureSanityCheck, "response does not contain the requested reference"), nil
	}

	diag := &Diagnostic{}
	if ring, ok := gml.FirstRing(body); ok {
		diag.Preview = PreviewStats(ring)
	}
	return Outcome{
		OK:              true,
		UsedRefcat:      ref14,
		RequestedSRS:    requested,
		ResolvedSRS:     requested,
		ResponseSRSName: srsNameOf(body),
		GML:             string(body),
		Note:            "OK (GetParcel stored query)",
		State:           StateSucceed,
		Diagnostic:      diag,
	}, nil
}

func srsNameOf(body []byte) string {
	if name, ok := gml.SRSName(body); ok {
		return name
	}
	return unknownSRS
}
