package ogc

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	WFSVersion = "2.0.0"

	// CadastralParcel is the INSPIRE feature type served by the Catastro WFS.
	CadastralParcel = "cp:CadastralParcel"

	NamespaceWFS = "http://www.opengis.net/wfs/2.0"
	NamespaceOWS = "http://www.opengis.net/ows/1.1"
	NamespaceFES = "http://www.opengis.net/fes/2.0"
	NamespaceXS  = "http://www.w3.org/2001/XMLSchema"
	NamespaceCP  = "http://inspire.ec.europa.eu/schemas/cp/4.0"
)

func base(request, version string) url.Values {
	if strings.TrimSpace(version) == "" {
		version = WFSVersion
	}
	params := url.Values{}
	params.Set("service", "WFS")
	params.Set("version", version)
	params.Set("request", request)
	return params
}

func BuildCapabilitiesParams(version string) url.Values {
	return base("GetCapabilities", version)
}

func BuildDescribeFeatureTypeParams(typeName, version string) url.Values {
	params := base("DescribeFeatureType", version)
	params.Set("typeName", typeName)
	return params
}

// BuildGetParcelParams builds the GetParcel stored query. srsURN should
// already be normalized; the WFS is most tolerant of the URN form.
func BuildGetParcelParams(ref14, srsURN string) url.Values {
	params := base("GetFeature", WFSVersion)
	params.Set("storedquery_id", "GetParcel")
	params.Set("refcat", ref14)
	params.Set("srsName", srsURN)
	return params
}

// BuildGetFeatureParams builds an unfiltered GetFeature. count <= 0 leaves
// the server default.
func BuildGetFeatureParams(typeName, srsURN string, count int) url.Values {
	params := base("GetFeature", WFSVersion)
	params.Set("typeNames", typeName)
	if srsURN != "" {
		params.Set("SRSNAME", srsURN)
	}
	if count > 0 {
		params.Set("count", strconv.Itoa(count))
	}
	return params
}

// BuildFilteredGetFeatureParams adds an FES 2.0 filter to a GetFeature.
func BuildFilteredGetFeatureParams(typeName, srsURN string, count int, filter string) url.Values {
	params := BuildGetFeatureParams(typeName, srsURN, count)
	params.Set("FILTER", filter)
	return params
}

func escape(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// PropertyIsEqualTo renders an FES 2.0 equality filter with the INSPIRE CP
// namespace bound. Both property and literal are escaped.
func PropertyIsEqualTo(property, literal string) string {
	return fmt.Sprintf(`<fes:Filter xmlns:fes="%s" xmlns:cp="%s">`+
		`<fes:PropertyIsEqualTo>`+
		`<fes:ValueReference>%s</fes:ValueReference>`+
		`<fes:Literal>%s</fes:Literal>`+
		`</fes:PropertyIsEqualTo>`+
		`</fes:Filter>`,
		NamespaceFES, NamespaceCP, escape(property), escape(literal))
}

// GetFeatureByResourceIDBody is the POST body of a GetFeature selecting one
// feature by gml:id.
func GetFeatureByResourceIDBody(typeName, srsURN, resourceID string) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	fmt.Fprintf(&b, `<wfs:GetFeature service="WFS" version="%s" xmlns:wfs="%s" xmlns:fes="%s" xmlns:cp="%s" xmlns:gml="http://www.opengis.net/gml/3.2">`,
		WFSVersion, NamespaceWFS, NamespaceFES, NamespaceCP)
	fmt.Fprintf(&b, `<wfs:Query typeNames="%s"`, escape(typeName))
	if srsURN != "" {
		fmt.Fprintf(&b, ` srsName="%s"`, escape(srsURN))
	}
	b.WriteString(`>`)
	fmt.Fprintf(&b, `<fes:Filter><fes:ResourceId rid="%s"/></fes:Filter>`, escape(resourceID))
	b.WriteString(`</wfs:Query></wfs:GetFeature>`)
	return []byte(b.String())
}

// Head returns at most n runes of s. A negative n keeps all of s.
func Head(s string, n int) string {
	if n < 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// IsExceptionReport reports whether body looks like an OWS exception.
func IsExceptionReport(body []byte) bool {
	return bytes.Contains(body, []byte("ExceptionReport")) || bytes.Contains(body, []byte("ows:Exception"))
}
