package executor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/carlosGalisteo/catastro-mcp-server/internal/core/httpclient"
	"github.com/carlosGalisteo/catastro-mcp-server/internal/core/ogc"
)

type upstreamRecorder struct {
	mu         sync.Mutex
	lastMethod string
	lastPath   string
	lastQuery  url.Values
	lastHeader http.Header
	lastBody   []byte
	status     int
	respBody   string
}

func (u *upstreamRecorder) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	_ = r.Body.Close()

	u.mu.Lock()
	u.lastMethod = r.Method
	u.lastPath = r.URL.Path
	u.lastQuery = r.URL.Query()
	u.lastHeader = r.Header.Clone()
	u.lastBody = body
	status, resp := u.status, u.respBody
	u.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	if resp == "" {
		resp = `<wfs:FeatureCollection/>`
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(resp))
}

func (u *upstreamRecorder) snapshot() (string, string, url.Values, http.Header, []byte) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lastMethod, u.lastPath, u.lastQuery, u.lastHeader, u.lastBody
}

func equalValues(a, b url.Values) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
	}
	return true
}

func newExec() *Executor {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(logger, httpclient.NewOutbound(5*time.Second), "mcp-catastro/0.1")
}

func TestExecutor_Get_GetParcel(t *testing.T) {
	up := &upstreamRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(up.handler))
	defer srv.Close()

	want := ogc.BuildGetParcelParams("9872023VH5797S", "urn:ogc:def:crs:EPSG::4326")
	body, err := newExec().Get(context.Background(), "wfs", srv.URL+"/INSPIRE/wfsCP.aspx", want, "application/xml")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(body) != `<wfs:FeatureCollection/>` {
		t.Fatalf("unexpected body: %q", body)
	}

	method, path, gotQuery, hdr, _ := up.snapshot()
	if method != http.MethodGet || path != "/INSPIRE/wfsCP.aspx" {
		t.Fatalf("upstream %s %s", method, path)
	}
	if !equalValues(gotQuery, want) {
		t.Fatalf("mismatched query.\n got: %v\nwant: %v", gotQuery.Encode(), want.Encode())
	}
	if got := hdr.Get("Accept"); got != "application/xml" {
		t.Fatalf("missing/invalid Accept header: %q", got)
	}
	if got := hdr.Get("User-Agent"); got != "mcp-catastro/0.1" {
		t.Fatalf("User-Agent=%q", got)
	}
}

func TestExecutor_Get_KeepsEndpointQuery(t *testing.T) {
	up := &upstreamRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(up.handler))
	defer srv.Close()

	_, err := newExec().Get(context.Background(), "callejero", srv.URL+"/json/ObtenerMunicipios?x=1",
		url.Values{"Provincia": {"MADRID"}}, "application/json")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	_, path, q, _, _ := up.snapshot()
	if path != "/json/ObtenerMunicipios" || q.Get("x") != "1" || q.Get("Provincia") != "MADRID" {
		t.Fatalf("path=%q query=%v", path, q)
	}
}

func TestExecutor_Post(t *testing.T) {
	up := &upstreamRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(up.handler))
	defer srv.Close()

	payload := ogc.GetFeatureByResourceIDBody(ogc.CadastralParcel, "", "ES.SDGC.CP.X")
	if _, err := newExec().Post(context.Background(), "wfs", srv.URL, payload, "application/xml", "application/xml"); err != nil {
		t.Fatalf("Post: %v", err)
	}
	method, _, _, hdr, body := up.snapshot()
	if method != http.MethodPost || hdr.Get("Content-Type") != "application/xml" {
		t.Fatalf("method=%s content-type=%q", method, hdr.Get("Content-Type"))
	}
	if string(body) != string(payload) {
		t.Fatalf("body not forwarded")
	}
}

func TestExecutor_NonSuccessStatus(t *testing.T) {
	up := &upstreamRecorder{status: http.StatusServiceUnavailable, respBody: "maintenance"}
	srv := httptest.NewServer(http.HandlerFunc(up.handler))
	defer srv.Close()

	_, err := newExec().Get(context.Background(), "wfs", srv.URL, nil, "")
	if !errors.Is(err, ErrUpstreamStatus) {
		t.Fatalf("want ErrUpstreamStatus, got %v", err)
	}
	if !strings.Contains(err.Error(), "503") || !strings.Contains(err.Error(), "maintenance") {
		t.Fatalf("error should carry status and body: %v", err)
	}
}

func TestExecutor_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := newExec().Get(ctx, "wfs", srv.URL, nil, "")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded, got %v", err)
	}
}
