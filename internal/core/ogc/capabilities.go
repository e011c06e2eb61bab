package ogc

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

type FeatureType struct {
	Name       string   `json:"name"`
	Title      string   `json:"title,omitempty"`
	DefaultCRS string   `json:"default_crs,omitempty"`
	OtherCRS   []string `json:"other_crs"`
}

type capabilities struct {
	XMLName      xml.Name `xml:"WFS_Capabilities"`
	Version      string   `xml:"version,attr"`
	FeatureTypes []struct {
		Name       string   `xml:"Name"`
		Title      string   `xml:"Title"`
		DefaultCRS string   `xml:"DefaultCRS"`
		DefaultSRS string   `xml:"DefaultSRS"`
		OtherCRS   []string `xml:"OtherCRS"`
		OtherSRS   []string `xml:"OtherSRS"`
	} `xml:"FeatureTypeList>FeatureType"`
}

func newDecoder(data []byte) *xml.Decoder {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = CharsetReader
	return dec
}

// ParseFeatureTypes lists the feature types advertised by a WFS
// GetCapabilities document. WFS 1.1 SRS fields are folded into the CRS ones.
func ParseFeatureTypes(data []byte) ([]FeatureType, error) {
	var caps capabilities
	if err := newDecoder(data).Decode(&caps); err != nil {
		return nil, fmt.Errorf("decode capabilities: %w", err)
	}

	out := make([]FeatureType, 0, len(caps.FeatureTypes))
	for _, ft := range caps.FeatureTypes {
		name := strings.TrimSpace(ft.Name)
		if name == "" {
			continue
		}
		t := FeatureType{
			Name:       name,
			Title:      strings.TrimSpace(ft.Title),
			DefaultCRS: strings.TrimSpace(ft.DefaultCRS),
			OtherCRS:   []string{},
		}
		if t.DefaultCRS == "" {
			t.DefaultCRS = strings.TrimSpace(ft.DefaultSRS)
		}
		for _, c := range append(ft.OtherCRS, ft.OtherSRS...) {
			if c = strings.TrimSpace(c); c != "" {
				t.OtherCRS = append(t.OtherCRS, c)
			}
		}
		out = append(out, t)
	}
	return out, nil
}

// Schema holds the named definitions of one XSD document.
type Schema struct {
	Elements     []string
	ComplexTypes []string
	Attributes   []string
	// Locations are the xs:include and xs:import schemaLocation values in
	// document order.
	Locations []string
}

// ParseSchema collects element, complexType and attribute names and the
// referenced schema locations of an XSD document.
func ParseSchema(data []byte) (Schema, error) {
	var s Schema
	dec := newDecoder(data)
	root := true
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Schema{}, fmt.Errorf("decode schema: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if root {
			root = false
			continue
		}
		if se.Name.Space != NamespaceXS {
			continue
		}
		switch se.Name.Local {
		case "element":
			s.Elements = appendAttr(s.Elements, se, "name")
		case "complexType":
			s.ComplexTypes = appendAttr(s.ComplexTypes, se, "name")
		case "attribute":
			s.Attributes = appendAttr(s.Attributes, se, "name")
		case "include", "import":
			s.Locations = appendAttr(s.Locations, se, "schemaLocation")
		}
	}
	return s, nil
}

func appendAttr(dst []string, se xml.StartElement, local string) []string {
	for _, a := range se.Attr {
		if a.Name.Local == local && a.Name.Space == "" {
			if v := strings.TrimSpace(a.Value); v != "" {
				return append(dst, v)
			}
		}
	}
	return dst
}
