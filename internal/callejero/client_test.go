package callejero

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/carlosGalisteo/catastro-mcp-server/internal/core/executor"
)

type recorder struct {
	mu    sync.Mutex
	path  string
	query url.Values
	body  string
}

func (r *recorder) handler(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	r.path = req.URL.Path
	r.query = req.URL.Query()
	body := r.body
	r.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func newClient(t *testing.T, body string) (*Client, *recorder) {
	t.Helper()
	rec := &recorder{body: body}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	t.Cleanup(srv.Close)
	exec := executor.New(nil, srv.Client(), "mcp-catastro/0.1")
	return New(exec, srv.URL+"/callejero/", srv.URL+"/coord"), rec
}

func TestMunicipios_ForwardsParamsAndBody(t *testing.T) {
	const upstream = `{"consulta_municipieroResult":{"control":{"cumun":1}}}`
	c, rec := newClient(t, upstream)

	got, err := c.Municipios(context.Background(), "MADRID", "")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if string(got) != upstream {
		t.Fatalf("body=%s", got)
	}
	if rec.path != "/callejero/ObtenerMunicipios" {
		t.Fatalf("path=%q", rec.path)
	}
	if rec.query.Get("Provincia") != "MADRID" || !rec.query.Has("Municipio") {
		t.Fatalf("query=%v", rec.query)
	}
}

func TestDNPPorDireccion_AllFields(t *testing.T) {
	c, rec := newClient(t, `{}`)
	_, err := c.DNPPorDireccion(context.Background(), Address{
		Provincia: "MADRID", Municipio: "MADRID", Sigla: "CL", Calle: "MAYOR", Numero: "1", Planta: "02",
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if rec.path != "/callejero/Consulta_DNPLOC" || len(rec.query) != 9 || rec.query.Get("Planta") != "02" {
		t.Fatalf("path=%q query=%v", rec.path, rec.query)
	}
}

func TestCoordenadasARC_FormatsFloats(t *testing.T) {
	c, rec := newClient(t, `{"ok":1}`)
	if _, err := c.CoordenadasARC(context.Background(), -3.7038, 40.4168, "EPSG:4326"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if rec.path != "/coord/Consulta_RCCOOR" {
		t.Fatalf("path=%q", rec.path)
	}
	if rec.query.Get("CoorX") != "-3.7038" || rec.query.Get("CoorY") != "40.4168" || rec.query.Get("SRS") != "EPSG:4326" {
		t.Fatalf("query=%v", rec.query)
	}
}

func TestCall_RejectsNonJSON(t *testing.T) {
	c, _ := newClient(t, `<html>error</html>`)
	if _, err := c.Provincias(context.Background()); !errors.Is(err, ErrNotJSON) {
		t.Fatalf("want ErrNotJSON, got %v", err)
	}
}
