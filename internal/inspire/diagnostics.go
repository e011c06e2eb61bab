package inspire

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/carlosGalisteo/catastro-mcp-server/internal/core/ogc"
	"github.com/carlosGalisteo/catastro-mcp-server/internal/srs"
)

const (
	// SampleLimit bounds the XML returned by the GetFeature diagnostics.
	SampleLimit = 8000
	// complexTypeLimit bounds the merged complexType listing.
	complexTypeLimit   = 400
	defaultMaxIncludes = 5

	stubSource = "DescribeFeatureType(stub)"
)

type CapabilitiesResult struct {
	OK              bool   `json:"ok"`
	Endpoint        string `json:"endpoint"`
	Version         string `json:"version"`
	CapabilitiesXML string `json:"capabilities_xml,omitempty"`
	ErrorXML        string `json:"error_xml,omitempty"`
}

func (c *Client) GetCapabilities(ctx context.Context, version string) (CapabilitiesResult, error) {
	version = versionOrDefault(version)
	body, err := c.Capabilities(ctx, version)
	if err != nil {
		return CapabilitiesResult{}, err
	}
	res := CapabilitiesResult{Endpoint: c.wfsURL, Version: version}
	if ogc.IsExceptionReport(body) {
		res.ErrorXML = string(body)
		return res, nil
	}
	res.OK = true
	res.CapabilitiesXML = string(body)
	return res, nil
}

type FeatureTypesResult struct {
	OK           bool              `json:"ok"`
	Version      string            `json:"version"`
	Count        int               `json:"count"`
	FeatureTypes []ogc.FeatureType `json:"feature_types"`
	ErrorXML     string            `json:"error_xml,omitempty"`
}

func (c *Client) ListFeatureTypes(ctx context.Context, version string) (FeatureTypesResult, error) {
	version = versionOrDefault(version)
	body, err := c.Capabilities(ctx, version)
	if err != nil {
		return FeatureTypesResult{}, err
	}
	res := FeatureTypesResult{Version: version, FeatureTypes: []ogc.FeatureType{}}
	if ogc.IsExceptionReport(body) {
		res.ErrorXML = string(body)
		return res, nil
	}
	fts, err := ogc.ParseFeatureTypes(body)
	if err != nil {
		return FeatureTypesResult{}, err
	}
	res.OK = true
	res.FeatureTypes = fts
	res.Count = len(fts)
	return res, nil
}

type SchemaSource struct {
	URL   string `json:"url"`
	Len   int    `json:"len"`
	Error string `json:"error,omitempty"`
}

type DescribeResult struct {
	OK            bool           `json:"ok"`
	TypeName      string         `json:"type_name"`
	Version       string         `json:"version"`
	Sources       []SchemaSource `json:"sources,omitempty"`
	Elements      []string       `json:"elements,omitempty"`
	ComplexTypes  []string       `json:"complexTypes,omitempty"`
	Attributes    []string       `json:"attributes,omitempty"`
	IncludesFound []string       `json:"includes_found,omitempty"`
	Note          string         `json:"note,omitempty"`
	ErrorXML      string         `json:"error_xml,omitempty"`
}

type nameSet map[string]struct{}

func (s nameSet) add(names []string) {
	for _, n := range names {
		s[n] = struct{}{}
	}
}

func (s nameSet) sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// DescribeResolved downloads the DescribeFeatureType stub and then, breadth
// first, up to maxIncludes schemas it includes or imports. Download failures
// are recorded per source and do not fail the call.
func (c *Client) DescribeResolved(ctx context.Context, typeName, version string, maxIncludes int) (DescribeResult, error) {
	version = versionOrDefault(version)
	if maxIncludes < 0 {
		maxIncludes = defaultMaxIncludes
	}

	stub, err := c.DescribeFeatureType(ctx, typeName, version)
	if err != nil {
		return DescribeResult{}, err
	}
	res := DescribeResult{TypeName: typeName, Version: version}
	if ogc.IsExceptionReport(stub) {
		res.ErrorXML = string(stub)
		return res, nil
	}

	info, err := ogc.ParseSchema(stub)
	if err != nil {
		return DescribeResult{}, fmt.Errorf("parse %s schema: %w", typeName, err)
	}

	elements, complexTypes, attributes := nameSet{}, nameSet{}, nameSet{}
	elements.add(info.Elements)
	complexTypes.add(info.ComplexTypes)
	attributes.add(info.Attributes)
	res.Sources = []SchemaSource{{URL: stubSource, Len: len(stub)}}

	queued := map[string]bool{}
	var queue []string
	enqueue := func(base string, locs []string) {
		for _, loc := range locs {
			abs := resolveLocation(base, loc)
			if !queued[abs] {
				queued[abs] = true
				queue = append(queue, abs)
			}
		}
	}
	enqueue(c.wfsURL, info.Locations)

	res.IncludesFound = []string{}
	for len(queue) > 0 && len(res.IncludesFound) < maxIncludes {
		loc := queue[0]
		queue = queue[1:]
		res.IncludesFound = append(res.IncludesFound, loc)

		body, err := c.Schema(ctx, loc)
		if err != nil {
			if ctx.Err() != nil {
				return DescribeResult{}, ctx.Err()
			}
			res.Sources = append(res.Sources, SchemaSource{URL: loc, Error: "download_failed"})
			continue
		}
		sub, err := ogc.ParseSchema(body)
		if err != nil {
			res.Sources = append(res.Sources, SchemaSource{URL: loc, Len: len(body), Error: "parse_failed"})
			continue
		}
		res.Sources = append(res.Sources, SchemaSource{URL: loc, Len: len(body)})
		elements.add(sub.Elements)
		complexTypes.add(sub.ComplexTypes)
		attributes.add(sub.Attributes)
		enqueue(loc, sub.Locations)
	}

	res.OK = true
	res.Elements = elements.sorted()
	res.ComplexTypes = complexTypes.sorted()
	if len(res.ComplexTypes) > complexTypeLimit {
		res.ComplexTypes = res.ComplexTypes[:complexTypeLimit]
	}
	res.Attributes = attributes.sorted()
	res.Note = "To filter by cadastral reference, the GetParcel stored query is the most direct route."
	return res, nil
}

// relative schemaLocations resolve against the document that referenced them
func resolveLocation(base, loc string) string {
	ref, err := url.Parse(loc)
	if err != nil || ref.IsAbs() {
		return loc
	}
	b, err := url.Parse(base)
	if err != nil {
		return loc
	}
	return b.ResolveReference(ref).String()
}

type FeatureSample struct {
	OK        bool   `json:"ok"`
	TypeName  string `json:"type_name"`
	SRS       string `json:"srs"`
	Filter    string `json:"filter,omitempty"`
	XMLHead   string `json:"xml_head,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
	ErrorXML  string `json:"error_xml,omitempty"`
}

func sample(typeName, srsURN string, body []byte) FeatureSample {
	s := FeatureSample{TypeName: typeName, SRS: srsURN}
	text := string(body)
	if ogc.IsExceptionReport(body) {
		s.ErrorXML = ogc.Head(text, SampleLimit)
		return s
	}
	s.OK = true
	s.XMLHead = ogc.Head(text, SampleLimit)
	s.Truncated = len(s.XMLHead) < len(text)
	return s
}

// Sample returns the head of an unfiltered GetFeature so callers can inspect
// what the WFS actually emits.
func (c *Client) Sample(ctx context.Context, typeName, srsName string, count int) (FeatureSample, error) {
	typeName = typeNameOrDefault(typeName)
	urn := srs.Normalize(srsOrDefault(srsName))
	body, err := c.GetFeature(ctx, typeName, urn, count)
	if err != nil {
		return FeatureSample{}, err
	}
	return sample(typeName, urn, body), nil
}

func (c *Client) SampleFiltered(ctx context.Context, typeName, property, value, srsName string, count int) (FeatureSample, error) {
	typeName = typeNameOrDefault(typeName)
	urn := srs.Normalize(srsOrDefault(srsName))
	body, err := c.GetFeatureFiltered(ctx, typeName, urn, count, property, value)
	if err != nil {
		return FeatureSample{}, err
	}
	s := sample(typeName, urn, body)
	s.Filter = ogc.PropertyIsEqualTo(property, value)
	return s, nil
}

func (c *Client) SampleByID(ctx context.Context, typeName, resourceID, srsName string) (FeatureSample, error) {
	typeName = typeNameOrDefault(typeName)
	urn := srs.Normalize(srsOrDefault(srsName))
	body, err := c.GetFeatureByID(ctx, typeName, urn, resourceID)
	if err != nil {
		return FeatureSample{}, err
	}
	return sample(typeName, urn, body), nil
}

func versionOrDefault(v string) string {
	if strings.TrimSpace(v) == "" {
		return ogc.WFSVersion
	}
	return v
}

func typeNameOrDefault(t string) string {
	if strings.TrimSpace(t) == "" {
		return ogc.CadastralParcel
	}
	return t
}

func srsOrDefault(s string) string {
	if strings.TrimSpace(s) == "" {
		return srs.EPSG4326
	}
	return s
}
