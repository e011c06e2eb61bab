// Package callejero forwards street-index and coordinate lookups to the
// Catastro JSON services and returns their bodies unchanged.
package callejero

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/carlosGalisteo/catastro-mcp-server/internal/core/executor"
)

const (
	upstreamCallejero   = "callejero"
	upstreamCoordenadas = "coordenadas"
)

// ErrNotJSON is returned when a service answers 2xx with a non-JSON body.
var ErrNotJSON = errors.New("callejero: response is not JSON")

type Client struct {
	exec           executor.Interface
	callejeroURL   string
	coordenadasURL string
}

func New(exec executor.Interface, callejeroURL, coordenadasURL string) *Client {
	return &Client{
		exec:           exec,
		callejeroURL:   strings.TrimRight(callejeroURL, "/"),
		coordenadasURL: strings.TrimRight(coordenadasURL, "/"),
	}
}

// Address identifies a property by its location. Only Provincia, Municipio,
// Sigla, Calle and Numero are required by the service.
type Address struct {
	Provincia string
	Municipio string
	Sigla     string
	Calle     string
	Numero    string
	Bloque    string
	Escalera  string
	Planta    string
	Puerta    string
}

func (c *Client) Provincias(ctx context.Context) (json.RawMessage, error) {
	return c.call(ctx, upstreamCallejero, c.callejeroURL, "ObtenerProvincias", url.Values{})
}

func (c *Client) Municipios(ctx context.Context, provincia, filtro string) (json.RawMessage, error) {
	return c.call(ctx, upstreamCallejero, c.callejeroURL, "ObtenerMunicipios", values(
		"Provincia", provincia,
		"Municipio", filtro,
	))
}

func (c *Client) Vias(ctx context.Context, provincia, municipio, tipoVia, filtro string) (json.RawMessage, error) {
	return c.call(ctx, upstreamCallejero, c.callejeroURL, "ObtenerCallejero", values(
		"Provincia", provincia,
		"Municipio", municipio,
		"TipoVia", tipoVia,
		"NomVia", filtro,
	))
}

func (c *Client) Numeros(ctx context.Context, provincia, municipio, tipoVia, via, numero string) (json.RawMessage, error) {
	return c.call(ctx, upstreamCallejero, c.callejeroURL, "ObtenerNumerero", values(
		"Provincia", provincia,
		"Municipio", municipio,
		"TipoVia", tipoVia,
		"NomVia", via,
		"Numero", numero,
	))
}

func (c *Client) DNPPorDireccion(ctx context.Context, a Address) (json.RawMessage, error) {
	return c.call(ctx, upstreamCallejero, c.callejeroURL, "Consulta_DNPLOC", values(
		"Provincia", a.Provincia,
		"Municipio", a.Municipio,
		"Sigla", a.Sigla,
		"Calle", a.Calle,
		"Numero", a.Numero,
		"Bloque", a.Bloque,
		"Escalera", a.Escalera,
		"Planta", a.Planta,
		"Puerta", a.Puerta,
	))
}

// DNPPorRC accepts 14, 18 or 20 character references. A 14 character one
// lists every property of the plot.
func (c *Client) DNPPorRC(ctx context.Context, refcat, provincia, municipio string) (json.RawMessage, error) {
	return c.call(ctx, upstreamCallejero, c.callejeroURL, "Consulta_DNPRC", values(
		"Provincia", provincia,
		"Municipio", municipio,
		"RefCat", refcat,
	))
}

func (c *Client) DNPPorPoligonoParcela(ctx context.Context, provincia, municipio, poligono, parcela string) (json.RawMessage, error) {
	return c.call(ctx, upstreamCallejero, c.callejeroURL, "Consulta_DNPPP", values(
		"Provincia", provincia,
		"Municipio", municipio,
		"Poligono", poligono,
		"Parcela", parcela,
	))
}

func (c *Client) RCACoordenadas(ctx context.Context, refcat, srs, provincia, municipio string) (json.RawMessage, error) {
	return c.call(ctx, upstreamCoordenadas, c.coordenadasURL, "Consulta_CPMRC", values(
		"Provincia", provincia,
		"Municipio", municipio,
		"SRS", srs,
		"RefCat", refcat,
	))
}

func (c *Client) CoordenadasARC(ctx context.Context, x, y float64, srs string) (json.RawMessage, error) {
	return c.call(ctx, upstreamCoordenadas, c.coordenadasURL, "Consulta_RCCOOR", coordValues(x, y, srs))
}

// DistanciaCoordenadasARC lists references near a point with their distance.
func (c *Client) DistanciaCoordenadasARC(ctx context.Context, x, y float64, srs string) (json.RawMessage, error) {
	return c.call(ctx, upstreamCoordenadas, c.coordenadasURL, "Consulta_RCCOOR_Distancia", coordValues(x, y, srs))
}

func (c *Client) call(ctx context.Context, upstream, base, method string, params url.Values) (json.RawMessage, error) {
	body, err := c.exec.Get(ctx, upstream, base+"/"+method, params, "application/json")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%s: %w", method, ErrNotJSON)
	}
	return json.RawMessage(body), nil
}

// empty values are still sent; the service treats them as "no filter"
func values(kv ...string) url.Values {
	v := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		v.Set(kv[i], kv[i+1])
	}
	return v
}

func coordValues(x, y float64, srs string) url.Values {
	return values(
		"CoorX", strconv.FormatFloat(x, 'f', -1, 64),
		"CoorY", strconv.FormatFloat(y, 'f', -1, 64),
		"SRS", srs,
	)
}
