package tools

import (
	"context"
	"encoding/json"

	"github.com/carlosGalisteo/catastro-mcp-server/internal/core/ogc"
	"github.com/carlosGalisteo/catastro-mcp-server/internal/inspire"
)

func wfsTools(c *inspire.Client) []Tool {
	version := strDefault("WFS version.", ogc.WFSVersion)
	typeName := strDefault("Feature type name.", ogc.CadastralParcel)
	srsProp := strDefault("srsName for the response (EPSG:<n>, URN, OGC URL or CRS84 alias).", "EPSG:4326")

	return []Tool{
		&definition{
			name:        "wfs_cp_get_capabilities",
			title:       "WFS capabilities",
			description: "Returns the raw GetCapabilities document of the cadastral parcel WFS.",
			schema:      objectSchema(map[string]property{"version": version}),
			annotations: LookupAnnotations(),
			run: func(ctx context.Context, in json.RawMessage) (any, error) {
				var a struct {
					Version string `json:"version"`
				}
				if err := decode("wfs_cp_get_capabilities", in, &a); err != nil {
					return nil, err
				}
				return c.GetCapabilities(ctx, a.Version)
			},
		},
		&definition{
			name:        "wfs_cp_list_feature_types",
			title:       "WFS feature types",
			description: "Lists the feature types of the cadastral parcel WFS with their default and other CRS.",
			schema:      objectSchema(map[string]property{"version": version}),
			annotations: LookupAnnotations(),
			run: func(ctx context.Context, in json.RawMessage) (any, error) {
				var a struct {
					Version string `json:"version"`
				}
				if err := decode("wfs_cp_list_feature_types", in, &a); err != nil {
					return nil, err
				}
				return c.ListFeatureTypes(ctx, a.Version)
			},
		},
		&definition{
			name:  "wfs_cp_describe_feature_type_resolved",
			title: "Resolved feature type schema",
			description: "Runs DescribeFeatureType and follows up to max_includes xs:include/xs:import schemas, " +
				"returning the merged element, complexType and attribute names.",
			schema: objectSchema(map[string]property{
				"type_name":    typeName,
				"version":      version,
				"max_includes": integer("Maximum number of referenced schemas to download.", 5),
			}),
			annotations: LookupAnnotations(),
			run: func(ctx context.Context, in json.RawMessage) (any, error) {
				a := struct {
					TypeName    string `json:"type_name"`
					Version     string `json:"version"`
					MaxIncludes int    `json:"max_includes"`
				}{TypeName: ogc.CadastralParcel, MaxIncludes: 5}
				if err := decode("wfs_cp_describe_feature_type_resolved", in, &a); err != nil {
					return nil, err
				}
				return c.DescribeResolved(ctx, a.TypeName, a.Version, a.MaxIncludes)
			},
		},
		&definition{
			name:        "wfs_cp_get_feature_sample",
			title:       "GetFeature sample",
			description: "Returns the first 8000 characters of an unfiltered GetFeature response.",
			schema: objectSchema(map[string]property{
				"type_name": typeName,
				"srs":       srsProp,
				"count":     integer("Maximum number of features.", 1),
			}),
			annotations: LookupAnnotations(),
			run: func(ctx context.Context, in json.RawMessage) (any, error) {
				a := struct {
					TypeName string `json:"type_name"`
					SRS      string `json:"srs"`
					Count    int    `json:"count"`
				}{Count: 1}
				if err := decode("wfs_cp_get_feature_sample", in, &a); err != nil {
					return nil, err
				}
				return c.Sample(ctx, a.TypeName, a.SRS, a.Count)
			},
		},
		&definition{
			name:        "wfs_cp_get_feature_filtered",
			title:       "Filtered GetFeature",
			description: "Runs GetFeature with an FES 2.0 PropertyIsEqualTo filter and returns the head of the response.",
			schema: objectSchema(map[string]property{
				"type_name": typeName,
				"property":  str("Qualified property name, e.g. cp:nationalCadastralReference."),
				"value":     str("Literal to compare with."),
				"srs":       srsProp,
				"count":     integer("Maximum number of features.", 5),
			}, "property", "value"),
			annotations: LookupAnnotations(),
			run: func(ctx context.Context, in json.RawMessage) (any, error) {
				a := struct {
					TypeName string `json:"type_name"`
					Property string `json:"property"`
					Value    string `json:"value"`
					SRS      string `json:"srs"`
					Count    int    `json:"count"`
				}{Count: 5}
				if err := decode("wfs_cp_get_feature_filtered", in, &a); err != nil {
					return nil, err
				}
				if err := required("wfs_cp_get_feature_filtered", "property", a.Property); err != nil {
					return nil, err
				}
				return c.SampleFiltered(ctx, a.TypeName, a.Property, a.Value, a.SRS, a.Count)
			},
		},
		&definition{
			name:        "wfs_cp_get_feature_by_id",
			title:       "GetFeature by resource id",
			description: "POSTs a GetFeature with an fes:ResourceId filter and returns the head of the response.",
			schema: objectSchema(map[string]property{
				"type_name":   typeName,
				"resource_id": str("gml:id of the feature, e.g. ES.SDGC.CP.9872023VH5797S."),
				"srs":         srsProp,
			}, "resource_id"),
			annotations: LookupAnnotations(),
			run: func(ctx context.Context, in json.RawMessage) (any, error) {
				var a struct {
					TypeName   string `json:"type_name"`
					ResourceID string `json:"resource_id"`
					SRS        string `json:"srs"`
				}
				if err := decode("wfs_cp_get_feature_by_id", in, &a); err != nil {
					return nil, err
				}
				if err := required("wfs_cp_get_feature_by_id", "resource_id", a.ResourceID); err != nil {
					return nil, err
				}
				return c.SampleByID(ctx, a.TypeName, a.ResourceID, a.SRS)
			},
		},
	}
}
