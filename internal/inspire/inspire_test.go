package inspire

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/carlosGalisteo/catastro-mcp-server/internal/core/executor"
)

type fakeWFS struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   []string
	handle   func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeWFS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, r.Clone(context.Background()))
	f.bodies = append(f.bodies, string(b))
	f.mu.Unlock()
	f.handle(w, r)
}

func newClient(t *testing.T, handle func(w http.ResponseWriter, r *http.Request)) (*Client, *fakeWFS, string) {
	t.Helper()
	f := &fakeWFS{handle: handle}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	exec := executor.New(nil, srv.Client(), "mcp-catastro/0.1")
	return New(exec, srv.URL+"/INSPIRE/wfsCP.aspx"), f, srv.URL
}

func TestGetParcel_NormalizesSRS(t *testing.T) {
	c, f, _ := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "<gml/>")
	})
	if _, err := c.GetParcel(context.Background(), "9872023VH5797S", "EPSG:25830"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	q := f.requests[0].URL.Query()
	if q.Get("srsName") != "urn:ogc:def:crs:EPSG::25830" || q.Get("storedquery_id") != "GetParcel" {
		t.Fatalf("query=%v", q)
	}
}

func TestGetCapabilities_ExceptionIsNotAnError(t *testing.T) {
	c, _, _ := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `<ows:ExceptionReport><ows:Exception/></ows:ExceptionReport>`)
	})
	res, err := c.GetCapabilities(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.OK || res.ErrorXML == "" || res.Version != "2.0.0" {
		t.Fatalf("res=%+v", res)
	}
}

func TestListFeatureTypes(t *testing.T) {
	c, _, _ := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `<wfs:WFS_Capabilities xmlns:wfs="http://www.opengis.net/wfs/2.0">
<wfs:FeatureTypeList><wfs:FeatureType><wfs:Name>cp:CadastralParcel</wfs:Name></wfs:FeatureType></wfs:FeatureTypeList>
</wfs:WFS_Capabilities>`)
	})
	res, err := c.ListFeatureTypes(context.Background(), "2.0.0")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !res.OK || res.Count != 1 || res.FeatureTypes[0].Name != "cp:CadastralParcel" {
		t.Fatalf("res=%+v", res)
	}
}

func TestDescribeResolved_BreadthFirstWithFailures(t *testing.T) {
	var base string
	c, f, srvURL := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/INSPIRE/wfsCP.aspx":
			_, _ = io.WriteString(w, `<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
<xs:import schemaLocation="`+base+`/schemas/cp.xsd"/>
<xs:include schemaLocation="missing.xsd"/>
<xs:element name="CadastralParcel"/>
</xs:schema>`)
		case "/schemas/cp.xsd":
			_, _ = io.WriteString(w, `<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
<xs:include schemaLocation="base.xsd"/>
<xs:complexType name="CadastralParcelType"><xs:attribute name="nilReason"/></xs:complexType>
<xs:element name="areaValue"/>
</xs:schema>`)
		case "/schemas/base.xsd":
			_, _ = io.WriteString(w, `<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"><xs:element name="beginLifespanVersion"/></xs:schema>`)
		default:
			http.NotFound(w, r)
		}
	})
	base = srvURL

	res, err := c.DescribeResolved(context.Background(), "cp:CadastralParcel", "", 5)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !res.OK {
		t.Fatalf("res=%+v", res)
	}
	wantIncludes := []string{base + "/schemas/cp.xsd", base + "/INSPIRE/missing.xsd", base + "/schemas/base.xsd"}
	if strings.Join(res.IncludesFound, ",") != strings.Join(wantIncludes, ",") {
		t.Fatalf("IncludesFound=%v want %v", res.IncludesFound, wantIncludes)
	}
	if len(res.Sources) != 4 || res.Sources[0].URL != stubSource || res.Sources[2].Error != "download_failed" {
		t.Fatalf("Sources=%+v", res.Sources)
	}
	if strings.Join(res.Elements, ",") != "CadastralParcel,areaValue,beginLifespanVersion" {
		t.Fatalf("Elements=%v", res.Elements)
	}
	if len(res.ComplexTypes) != 1 || len(res.Attributes) != 1 {
		t.Fatalf("res=%+v", res)
	}
	if q := f.requests[0].URL.Query(); q.Get("request") != "DescribeFeatureType" || q.Get("typeName") != "cp:CadastralParcel" {
		t.Fatalf("stub query=%v", q)
	}
}

func TestDescribeResolved_RespectsMaxIncludes(t *testing.T) {
	c, f, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"><xs:include schemaLocation="a.xsd"/></xs:schema>`)
	})
	res, err := c.DescribeResolved(context.Background(), "cp:CadastralParcel", "", 0)
	if err != nil || !res.OK {
		t.Fatalf("res=%+v err=%v", res, err)
	}
	if len(res.IncludesFound) != 0 || len(f.requests) != 1 {
		t.Fatalf("no includes must be fetched: %v", res.IncludesFound)
	}
}

func TestSample_TruncatesHead(t *testing.T) {
	big := "<wfs:FeatureCollection>" + strings.Repeat("ñ", SampleLimit) + "</wfs:FeatureCollection>"
	c, f, _ := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, big)
	})
	res, err := c.Sample(context.Background(), "", "", 1)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !res.OK || !res.Truncated || len([]rune(res.XMLHead)) != SampleLimit {
		t.Fatalf("head runes=%d truncated=%v", len([]rune(res.XMLHead)), res.Truncated)
	}
	if res.TypeName != "cp:CadastralParcel" || res.SRS != "urn:ogc:def:crs:EPSG::4326" {
		t.Fatalf("res=%+v", res)
	}
	if f.requests[0].URL.Query().Get("count") != "1" {
		t.Fatalf("count not forwarded")
	}
}

func TestSampleByID_Posts(t *testing.T) {
	c, f, _ := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "<wfs:FeatureCollection/>")
	})
	if _, err := c.SampleByID(context.Background(), "", "ES.SDGC.CP.X", "CRS:84"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if f.requests[0].Method != http.MethodPost || !strings.Contains(f.bodies[0], `rid="ES.SDGC.CP.X"`) {
		t.Fatalf("method=%s body=%s", f.requests[0].Method, f.bodies[0])
	}
	if !strings.Contains(f.bodies[0], `srsName="urn:ogc:def:crs:CRS::84"`) {
		t.Fatalf("srsName not normalized: %s", f.bodies[0])
	}
}

func TestSampleFiltered_TransportErrorPropagates(t *testing.T) {
	c, _, _ := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	_, err := c.SampleFiltered(context.Background(), "", "cp:label", "1", "", 5)
	if !errors.Is(err, executor.ErrUpstreamStatus) {
		t.Fatalf("want ErrUpstreamStatus, got %v", err)
	}
}

