// Package inspire talks to the Catastro INSPIRE cadastral-parcel WFS.
package inspire

import (
	"context"
	"fmt"

	"github.com/carlosGalisteo/catastro-mcp-server/internal/core/executor"
	"github.com/carlosGalisteo/catastro-mcp-server/internal/core/ogc"
	"github.com/carlosGalisteo/catastro-mcp-server/internal/srs"
)

const (
	upstreamWFS    = "wfs"
	upstreamSchema = "xsd"
	acceptXML      = "application/xml"
)

type Client struct {
	exec   executor.Interface
	wfsURL string
}

func New(exec executor.Interface, wfsURL string) *Client {
	return &Client{exec: exec, wfsURL: wfsURL}
}

func (c *Client) Endpoint() string { return c.wfsURL }

// GetParcel runs the GetParcel stored query. srsName is normalized to its URN
// form before the request.
func (c *Client) GetParcel(ctx context.Context, ref14, srsName string) ([]byte, error) {
	params := ogc.BuildGetParcelParams(ref14, srs.Normalize(srsName))
	b, err := c.exec.Get(ctx, upstreamWFS, c.wfsURL, params, acceptXML)
	if err != nil {
		return nil, fmt.Errorf("GetParcel %s: %w", ref14, err)
	}
	return b, nil
}

func (c *Client) Capabilities(ctx context.Context, version string) ([]byte, error) {
	b, err := c.exec.Get(ctx, upstreamWFS, c.wfsURL, ogc.BuildCapabilitiesParams(version), acceptXML)
	if err != nil {
		return nil, fmt.Errorf("GetCapabilities: %w", err)
	}
	return b, nil
}

func (c *Client) DescribeFeatureType(ctx context.Context, typeName, version string) ([]byte, error) {
	b, err := c.exec.Get(ctx, upstreamWFS, c.wfsURL, ogc.BuildDescribeFeatureTypeParams(typeName, version), acceptXML)
	if err != nil {
		return nil, fmt.Errorf("DescribeFeatureType %s: %w", typeName, err)
	}
	return b, nil
}

// Schema downloads an XSD referenced from another schema.
func (c *Client) Schema(ctx context.Context, location string) ([]byte, error) {
	return c.exec.Get(ctx, upstreamSchema, location, nil, acceptXML)
}

func (c *Client) GetFeature(ctx context.Context, typeName, srsURN string, count int) ([]byte, error) {
	b, err := c.exec.Get(ctx, upstreamWFS, c.wfsURL, ogc.BuildGetFeatureParams(typeName, srsURN, count), acceptXML)
	if err != nil {
		return nil, fmt.Errorf("GetFeature %s: %w", typeName, err)
	}
	return b, nil
}

// GetFeatureFiltered selects features whose property equals value.
func (c *Client) GetFeatureFiltered(ctx context.Context, typeName, srsURN string, count int, property, value string) ([]byte, error) {
	params := ogc.BuildFilteredGetFeatureParams(typeName, srsURN, count, ogc.PropertyIsEqualTo(property, value))
	b, err := c.exec.Get(ctx, upstreamWFS, c.wfsURL, params, acceptXML)
	if err != nil {
		return nil, fmt.Errorf("GetFeature %s filtered: %w", typeName, err)
	}
	return b, nil
}

// GetFeatureByID posts a GetFeature with an fes:ResourceId filter.
func (c *Client) GetFeatureByID(ctx context.Context, typeName, srsURN, resourceID string) ([]byte, error) {
	body := ogc.GetFeatureByResourceIDBody(typeName, srsURN, resourceID)
	b, err := c.exec.Post(ctx, upstreamWFS, c.wfsURL, body, acceptXML, acceptXML)
	if err != nil {
		return nil, fmt.Errorf("GetFeature %s by id: %w", typeName, err)
	}
	return b, nil
}
