package tools

import (
	"context"
	"encoding/json"

	"github.com/carlosGalisteo/catastro-mcp-server/internal/export"
	"github.com/carlosGalisteo/catastro-mcp-server/internal/parcel"
)

type refArgs struct {
	Refcat string `json:"refcat"`
	SRS    string `json:"srs"`
}

func decodeRef(name string, in json.RawMessage, defaultSRS string) (refArgs, error) {
	a := refArgs{SRS: defaultSRS}
	if err := decode(name, in, &a); err != nil {
		return refArgs{}, err
	}
	return a, nil
}

func parcelTools(r *parcel.Resolver) []Tool {
	refcat := str("Cadastral reference; only the first 14 characters (the parcel) are used.")

	return []Tool{
		&definition{
			name:  "parcela_gml_por_rc",
			title: "Parcel GML by cadastral reference",
			description: "Returns the GML of one parcel from the GetParcel stored query. " +
				"srs=AUTO requests EPSG:4326, derives the UTM zone and requests the UTM CRS the WFS serves " +
				"for it (32627/32628 in the Canary Islands, 25829-25831 elsewhere).",
			schema: objectSchema(map[string]property{
				"refcat": refcat,
				"srs":    strDefault("AUTO, or an explicit srsName (EPSG:25830, urn:ogc:def:crs:EPSG::4326, ...).", "AUTO"),
			}, "refcat"),
			annotations: LookupAnnotations(),
			run: func(ctx context.Context, in json.RawMessage) (any, error) {
				a, err := decodeRef("parcela_gml_por_rc", in, "AUTO")
				if err != nil {
					return nil, err
				}
				return r.Resolve(ctx, a.Refcat, a.SRS)
			},
		},
		&definition{
			name:  "parcela_vertices_por_rc",
			title: "Parcel vertices by cadastral reference",
			description: "Returns up to 50 vertices of the parcel in EPSG:4326 (lat, lon) with preview statistics " +
				"and the recommended UTM EPSG. For AUTO or UTM requests the vertices are also given in metres " +
				"when reprojection is enabled.",
			schema: objectSchema(map[string]property{
				"refcat": refcat,
				"srs":    strDefault("AUTO or an explicit EPSG code.", "AUTO"),
			}, "refcat"),
			annotations: LookupAnnotations(),
			run: func(ctx context.Context, in json.RawMessage) (any, error) {
				a, err := decodeRef("parcela_vertices_por_rc", in, "AUTO")
				if err != nil {
					return nil, err
				}
				return r.Vertices(ctx, a.Refcat, a.SRS)
			},
		},
		&definition{
			name:  "parcela_geojson_por_rc",
			title: "Parcel GeoJSON by cadastral reference",
			description: "Returns the parcel as an RFC 7946 FeatureCollection in lon/lat. Projected GML is " +
				"reprojected when possible; otherwise the parcel is requested again at EPSG:4326.",
			schema: objectSchema(map[string]property{
				"refcat": refcat,
				"srs":    strDefault("srsName the GML is requested in.", "EPSG:4326"),
			}, "refcat"),
			annotations: LookupAnnotations(),
			run: func(ctx context.Context, in json.RawMessage) (any, error) {
				a, err := decodeRef("parcela_geojson_por_rc", in, "EPSG:4326")
				if err != nil {
					return nil, err
				}
				return r.GeoJSON(ctx, a.Refcat, a.SRS)
			},
		},
	}
}

func exportTool(e *export.Exporter) Tool {
	return &definition{
		name:  "exportar_parcela_gml_y_geojson",
		title: "Export parcel GML and GeoJSON",
		description: "Writes <basename>.gml (requested CRS) and <basename>.geojson (lon/lat) for a parcel " +
			"to the configured export sink. out_dir must stay inside the export root.",
		schema: objectSchema(map[string]property{
			"refcat":    str("Cadastral reference; only the first 14 characters are used."),
			"srs":       strDefault("CRS of the GML: AUTO or an explicit srsName.", "AUTO"),
			"out_dir":   str("Directory (or key segment) below the export root."),
			"basename":  str("File name without extension; defaults to the 14 character reference."),
			"overwrite": {Type: "boolean", Description: "Replace existing artifacts.", Default: true},
		}, "refcat"),
		annotations: SafeWriteAnnotations(),
		run: func(ctx context.Context, in json.RawMessage) (any, error) {
			a := struct {
				Refcat    string `json:"refcat"`
				SRS       string `json:"srs"`
				OutDir    string `json:"out_dir"`
				Basename  string `json:"basename"`
				Overwrite bool   `json:"overwrite"`
			}{SRS: "AUTO", Overwrite: true}
			if err := decode("exportar_parcela_gml_y_geojson", in, &a); err != nil {
				return nil, err
			}
			return e.Export(ctx, export.Request{
				Refcat:    a.Refcat,
				SRS:       a.SRS,
				OutDir:    a.OutDir,
				Basename:  a.Basename,
				Overwrite: a.Overwrite,
			})
		},
	}
}
