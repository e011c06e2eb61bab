package tools

import (
	"context"
	"encoding/json"

	"github.com/carlosGalisteo/catastro-mcp-server/internal/callejero"
)

// Street-index and coordinate tools. Each forwards its arguments and returns
// the upstream JSON unchanged.
func callejeroTools(c *callejero.Client) []Tool {
	provincia := str("Province name as listed by obtener_provincias.")
	municipio := str("Municipality name as listed by obtener_municipios.")
	tipoVia := str("Street type code (CL, AV, PZ, ...).")
	refcat := str("Cadastral reference (14, 18 or 20 characters).")
	srsProp := strDefault("Spatial reference system of the coordinates.", "EPSG:4326")

	return []Tool{
		&definition{
			name:        "obtener_provincias",
			title:       "List provinces",
			description: "Lists the provinces available in the Catastro street index.",
			schema:      objectSchema(map[string]property{}),
			annotations: LookupAnnotations(),
			run: func(ctx context.Context, _ json.RawMessage) (any, error) {
				return c.Provincias(ctx)
			},
		},
		&definition{
			name:        "obtener_municipios",
			title:       "List municipalities",
			description: "Lists the municipalities of a province, optionally filtered by a partial name.",
			schema: objectSchema(map[string]property{
				"provincia":        provincia,
				"municipio_filtro": str("Optional partial municipality name."),
			}, "provincia"),
			annotations: LookupAnnotations(),
			run: func(ctx context.Context, in json.RawMessage) (any, error) {
				var a struct {
					Provincia string `json:"provincia"`
					Filtro    string `json:"municipio_filtro"`
				}
				if err := decode("obtener_municipios", in, &a); err != nil {
					return nil, err
				}
				return c.Municipios(ctx, a.Provincia, a.Filtro)
			},
		},
		&definition{
			name:        "obtener_vias",
			title:       "List streets",
			description: "Lists the streets of a municipality, optionally filtered by type and partial name.",
			schema: objectSchema(map[string]property{
				"provincia":  provincia,
				"municipio":  municipio,
				"via_filtro": str("Optional partial street name."),
				"tipo_via":   tipoVia,
			}, "provincia", "municipio"),
			annotations: LookupAnnotations(),
			run: func(ctx context.Context, in json.RawMessage) (any, error) {
				var a struct {
					Provincia string `json:"provincia"`
					Municipio string `json:"municipio"`
					Filtro    string `json:"via_filtro"`
					TipoVia   string `json:"tipo_via"`
				}
				if err := decode("obtener_vias", in, &a); err != nil {
					return nil, err
				}
				return c.Vias(ctx, a.Provincia, a.Municipio, a.TipoVia, a.Filtro)
			},
		},
		&definition{
			name:        "obtener_numeros",
			title:       "Look up a street number",
			description: "Checks a street number and returns its cadastral reference or the closest numbers.",
			schema: objectSchema(map[string]property{
				"provincia": provincia,
				"municipio": municipio,
				"tipo_via":  tipoVia,
				"via":       str("Street name as listed by obtener_vias."),
				"numero":    str("Street number."),
			}, "provincia", "municipio", "tipo_via", "via", "numero"),
			annotations: LookupAnnotations(),
			run: func(ctx context.Context, in json.RawMessage) (any, error) {
				var a struct {
					Provincia string `json:"provincia"`
					Municipio string `json:"municipio"`
					TipoVia   string `json:"tipo_via"`
					Via       string `json:"via"`
					Numero    string `json:"numero"`
				}
				if err := decode("obtener_numeros", in, &a); err != nil {
					return nil, err
				}
				return c.Numeros(ctx, a.Provincia, a.Municipio, a.TipoVia, a.Via, a.Numero)
			},
		},
		&definition{
			name:        "dcnp_por_direccion",
			title:       "Cadastral data by address",
			description: "Returns the non-protected cadastral data of the properties at an address.",
			schema: objectSchema(map[string]property{
				"provincia": provincia,
				"municipio": municipio,
				"sigla":     tipoVia,
				"calle":     str("Street name."),
				"numero":    str("Street number."),
				"bloque":    str("Optional block."),
				"escalera":  str("Optional staircase."),
				"planta":    str("Optional floor."),
				"puerta":    str("Optional door."),
			}, "provincia", "municipio", "sigla", "calle", "numero"),
			annotations: LookupAnnotations(),
			run: func(ctx context.Context, in json.RawMessage) (any, error) {
				var a struct {
					Provincia string `json:"provincia"`
					Municipio string `json:"municipio"`
					Sigla     string `json:"sigla"`
					Calle     string `json:"calle"`
					Numero    string `json:"numero"`
					Bloque    string `json:"bloque"`
					Escalera  string `json:"escalera"`
					Planta    string `json:"planta"`
					Puerta    string `json:"puerta"`
				}
				if err := decode("dcnp_por_direccion", in, &a); err != nil {
					return nil, err
				}
				return c.DNPPorDireccion(ctx, callejero.Address(a))
			},
		},
		&definition{
			name:  "dcnp_por_rc",
			title: "Cadastral data by reference",
			description: "Returns the non-protected cadastral data for a cadastral reference. " +
				"A 14 character reference lists every property of the parcel.",
			schema: objectSchema(map[string]property{
				"refcat":    refcat,
				"provincia": str("Optional province."),
				"municipio": str("Optional municipality."),
			}, "refcat"),
			annotations: LookupAnnotations(),
			run: func(ctx context.Context, in json.RawMessage) (any, error) {
				var a struct {
					Refcat    string `json:"refcat"`
					Provincia string `json:"provincia"`
					Municipio string `json:"municipio"`
				}
				if err := decode("dcnp_por_rc", in, &a); err != nil {
					return nil, err
				}
				if err := required("dcnp_por_rc", "refcat", a.Refcat); err != nil {
					return nil, err
				}
				return c.DNPPorRC(ctx, a.Refcat, a.Provincia, a.Municipio)
			},
		},
		&definition{
			name:        "dcnp_por_poligono_parcela",
			title:       "Cadastral data by rural polygon and parcel",
			description: "Returns the non-protected cadastral data of a rural parcel by polygon and parcel number.",
			schema: objectSchema(map[string]property{
				"provincia": provincia,
				"municipio": municipio,
				"poligono":  str("Cadastral polygon."),
				"parcela":   str("Cadastral parcel."),
			}, "provincia", "municipio", "poligono", "parcela"),
			annotations: LookupAnnotations(),
			run: func(ctx context.Context, in json.RawMessage) (any, error) {
				var a struct {
					Provincia string `json:"provincia"`
					Municipio string `json:"municipio"`
					Poligono  string `json:"poligono"`
					Parcela   string `json:"parcela"`
				}
				if err := decode("dcnp_por_poligono_parcela", in, &a); err != nil {
					return nil, err
				}
				return c.DNPPorPoligonoParcela(ctx, a.Provincia, a.Municipio, a.Poligono, a.Parcela)
			},
		},
		&definition{
			name:        "rc_a_coordenadas",
			title:       "Coordinates of a cadastral reference",
			description: "Returns the coordinates of a cadastral reference.",
			schema: objectSchema(map[string]property{
				"refcat":    refcat,
				"srs":       srsProp,
				"provincia": str("Optional province."),
				"municipio": str("Optional municipality."),
			}, "refcat"),
			annotations: LookupAnnotations(),
			run: func(ctx context.Context, in json.RawMessage) (any, error) {
				a := struct {
					Refcat    string `json:"refcat"`
					SRS       string `json:"srs"`
					Provincia string `json:"provincia"`
					Municipio string `json:"municipio"`
				}{SRS: "EPSG:4326"}
				if err := decode("rc_a_coordenadas", in, &a); err != nil {
					return nil, err
				}
				if err := required("rc_a_coordenadas", "refcat", a.Refcat); err != nil {
					return nil, err
				}
				return c.RCACoordenadas(ctx, a.Refcat, a.SRS, a.Provincia, a.Municipio)
			},
		},
		coordinateTool("coordenadas_a_rc", "Cadastral reference at coordinates",
			"Returns the cadastral reference at a point.", srsProp, c.CoordenadasARC),
		coordinateTool("distancia_coordenadas_a_rc", "Cadastral references near coordinates",
			"Returns the cadastral references closest to a point with their distance.", srsProp, c.DistanciaCoordenadasARC),
	}
}

func coordinateTool(name, title, description string, srsProp property,
	call func(ctx context.Context, x, y float64, srs string) (json.RawMessage, error),
) Tool {
	return &definition{
		name:        name,
		title:       title,
		description: description,
		schema: objectSchema(map[string]property{
			"x":   num("CoorX; longitude under EPSG:4326."),
			"y":   num("CoorY; latitude under EPSG:4326."),
			"srs": srsProp,
		}, "x", "y"),
		annotations: LookupAnnotations(),
		run: func(ctx context.Context, in json.RawMessage) (any, error) {
			a := struct {
				X   *float64 `json:"x"`
				Y   *float64 `json:"y"`
				SRS string   `json:"srs"`
			}{SRS: "EPSG:4326"}
			if err := decode(name, in, &a); err != nil {
				return nil, err
			}
			if a.X == nil || a.Y == nil {
				return nil, NewInvalidArgumentsError(name, errMissingXY)
			}
			return call(ctx, *a.X, *a.Y, a.SRS)
		},
	}
}
