package ogc

import (
	"encoding/xml"
	"strings"
	"testing"
)

func TestBuildGetParcelParams(t *testing.T) {
	v := BuildGetParcelParams("9872023VH5797S", "urn:ogc:def:crs:EPSG::4326")
	assertHas := func(k, want string) {
		if got := v.Get(k); got != want {
			t.Fatalf("param %q got %q want %q", k, got, want)
		}
	}
	assertHas("service", "WFS")
	assertHas("version", "2.0.0")
	assertHas("request", "GetFeature")
	assertHas("storedquery_id", "GetParcel")
	assertHas("refcat", "9872023VH5797S")
	assertHas("srsName", "urn:ogc:def:crs:EPSG::4326")
}

func TestBuildGetFeatureParams_CountOptional(t *testing.T) {
	v := BuildGetFeatureParams(CadastralParcel, "urn:ogc:def:crs:EPSG::25830", 3)
	if v.Get("typeNames") != CadastralParcel || v.Get("count") != "3" || v.Get("SRSNAME") == "" {
		t.Fatalf("params=%v", v)
	}
	v = BuildGetFeatureParams(CadastralParcel, "", 0)
	if v.Has("count") || v.Has("SRSNAME") {
		t.Fatalf("unexpected params=%v", v)
	}
}

func TestBuildDescribeAndCapabilitiesParams(t *testing.T) {
	if v := BuildCapabilitiesParams(""); v.Get("version") != WFSVersion || v.Get("request") != "GetCapabilities" {
		t.Fatalf("params=%v", v)
	}
	if v := BuildDescribeFeatureTypeParams(CadastralParcel, "1.1.0"); v.Get("typeName") != CadastralParcel || v.Get("version") != "1.1.0" {
		t.Fatalf("params=%v", v)
	}
}

func TestPropertyIsEqualTo_EscapesLiteral(t *testing.T) {
	f := PropertyIsEqualTo("cp:nationalCadastralReference", `A<B&"C"`)
	if strings.Contains(f, `A<B`) || !strings.Contains(f, "A&lt;B&amp;") {
		t.Fatalf("literal not escaped: %s", f)
	}
	var probe struct{}
	if err := xml.Unmarshal([]byte(f), &probe); err != nil {
		t.Fatalf("filter is not well-formed: %v\n%s", err, f)
	}
	v := BuildFilteredGetFeatureParams(CadastralParcel, "", 5, f)
	if v.Get("FILTER") != f {
		t.Fatalf("FILTER not set")
	}
}

func TestGetFeatureByResourceIDBody(t *testing.T) {
	body := GetFeatureByResourceIDBody(CadastralParcel, "urn:ogc:def:crs:EPSG::4326", "ES.SDGC.CP.9872023VH5797S")
	var req struct {
		XMLName xml.Name `xml:"GetFeature"`
		Query   struct {
			TypeNames string `xml:"typeNames,attr"`
			SRSName   string `xml:"srsName,attr"`
			RID       struct {
				Value string `xml:"rid,attr"`
			} `xml:"Filter>ResourceId"`
		} `xml:"Query"`
	}
	if err := xml.Unmarshal(body, &req); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, body)
	}
	if req.Query.TypeNames != CadastralParcel || req.Query.RID.Value != "ES.SDGC.CP.9872023VH5797S" {
		t.Fatalf("decoded=%+v", req)
	}
}

func TestHead(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"abcdef", 3, "abc"},
		{"ab", 3, "ab"},
		{"ñññ", 2, "ññ"},
		{"abc", 0, ""},
		{"abc", -1, "abc"},
	}
	for _, c := range cases {
		if got := Head(c.in, c.n); got != c.want {
			t.Fatalf("Head(%q, %d)=%q want %q", c.in, c.n, got, c.want)
		}
	}
}

func TestIsExceptionReport(t *testing.T) {
	cases := map[string]bool{
		`<ows:ExceptionReport><ows:Exception exceptionCode="x"/></ows:ExceptionReport>`: true,
		`<ExceptionReport/>`: true,
		`<wfs:FeatureCollection/>`: false,
	}
	for in, want := range cases {
		if got := IsExceptionReport([]byte(in)); got != want {
			t.Fatalf("IsExceptionReport(%q)=%v", in, got)
		}
	}
}

const capsDoc = `<?xml version="1.0" encoding="UTF-8"?>
<wfs:WFS_Capabilities version="2.0.0" xmlns:wfs="http://www.opengis.net/wfs/2.0" xmlns:ows="http://www.opengis.net/ows/1.1">
 <wfs:FeatureTypeList>
  <wfs:FeatureType>
   <wfs:Name>cp:CadastralParcel</wfs:Name>
   <ows:Title>Parcela Catastral</ows:Title>
   <wfs:DefaultCRS>urn:ogc:def:crs:EPSG::25830</wfs:DefaultCRS>
   <wfs:OtherCRS>urn:ogc:def:crs:EPSG::4326</wfs:OtherCRS>
   <wfs:OtherCRS> urn:ogc:def:crs:EPSG::32628 </wfs:OtherCRS>
  </wfs:FeatureType>
  <wfs:FeatureType>
   <wfs:Name> </wfs:Name>
  </wfs:FeatureType>
  <wfs:FeatureType>
   <wfs:Name>cp:CadastralZoning</wfs:Name>
  </wfs:FeatureType>
 </wfs:FeatureTypeList>
</wfs:WFS_Capabilities>`

func TestParseFeatureTypes(t *testing.T) {
	fts, err := ParseFeatureTypes([]byte(capsDoc))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(fts) != 2 {
		t.Fatalf("want 2 feature types, got %+v", fts)
	}
	cp := fts[0]
	if cp.Name != "cp:CadastralParcel" || cp.Title != "Parcela Catastral" || cp.DefaultCRS != "urn:ogc:def:crs:EPSG::25830" {
		t.Fatalf("first=%+v", cp)
	}
	if len(cp.OtherCRS) != 2 || cp.OtherCRS[1] != "urn:ogc:def:crs:EPSG::32628" {
		t.Fatalf("OtherCRS=%v", cp.OtherCRS)
	}
	if fts[1].OtherCRS == nil {
		t.Fatalf("OtherCRS must be non-nil for JSON")
	}

	if _, err := ParseFeatureTypes([]byte("<broken")); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestParseSchema(t *testing.T) {
	doc := `<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" targetNamespace="x">
 <xs:include schemaLocation="a.xsd"/>
 <xs:import namespace="y" schemaLocation="http://example.org/b.xsd"/>
 <xs:import namespace="z"/>
 <xs:element name="CadastralParcel" type="cp:CadastralParcelType"/>
 <xs:complexType name="CadastralParcelType">
  <xs:sequence><xs:element name="areaValue"/><xs:element ref="gml:x"/></xs:sequence>
  <xs:attribute name="nilReason"/>
 </xs:complexType>
</xs:schema>`
	s, err := ParseSchema([]byte(doc))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(s.Elements) != 2 || s.Elements[1] != "areaValue" {
		t.Fatalf("Elements=%v", s.Elements)
	}
	if len(s.ComplexTypes) != 1 || len(s.Attributes) != 1 {
		t.Fatalf("schema=%+v", s)
	}
	if len(s.Locations) != 2 || s.Locations[0] != "a.xsd" {
		t.Fatalf("Locations=%v", s.Locations)
	}
}
