// Package gml extracts polygon geometry and SRS declarations from GML 3.2
// documents returned by the INSPIRE cadastral-parcel WFS.
package gml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/carlosGalisteo/catastro-mcp-server/internal/core/ogc"
)

const (
	NamespaceGML32 = "http://www.opengis.net/gml/3.2"
	namespaceGML   = "http://www.opengis.net/gml"
)

// ErrMalformed is returned when the input is not well-formed XML.
var ErrMalformed = errors.New("gml: malformed document")

type element struct {
	name     xml.Name
	attrs    []xml.Attr
	text     strings.Builder
	children []*element
}

func (e *element) attr(local string) (string, bool) {
	for _, a := range e.attrs {
		if a.Name.Local == local && a.Name.Space == "" {
			return a.Value, true
		}
	}
	return "", false
}

func (e *element) isGML(local string) bool {
	if e.name.Local != local {
		return false
	}
	return e.name.Space == NamespaceGML32 || e.name.Space == namespaceGML
}

// walk visits e and its descendants depth-first in document order. It stops
// when fn returns false.
func (e *element) walk(fn func(*element) bool) bool {
	if !fn(e) {
		return false
	}
	for _, c := range e.children {
		if !c.walk(fn) {
			return false
		}
	}
	return true
}

// descendants of e (excluding e) with the given GML local name.
func (e *element) findAll(local string) []*element {
	var out []*element
	for _, c := range e.children {
		c.walk(func(n *element) bool {
			if n.isGML(local) {
				out = append(out, n)
			}
			return true
		})
	}
	return out
}

func (e *element) find(local string) *element {
	var hit *element
	for _, c := range e.children {
		c.walk(func(n *element) bool {
			if n.isGML(local) {
				hit = n
				return false
			}
			return true
		})
		if hit != nil {
			return hit
		}
	}
	return nil
}

func (e *element) child(local string) *element {
	for _, c := range e.children {
		if c.isGML(local) {
			return c
		}
	}
	return nil
}

func (e *element) childrenNamed(local string) []*element {
	var out []*element
	for _, c := range e.children {
		if c.isGML(local) {
			out = append(out, c)
		}
	}
	return out
}

// Document is a parsed GML response.
type Document struct {
	root *element
}

// Parse builds a Document from raw GML. Malformed input yields ErrMalformed.
func Parse(data []byte) (*Document, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = ogc.CharsetReader

	var (
		root  *element
		stack []*element
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			el := &element{name: t.Name, attrs: t.Copy().Attr}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, el)
			} else if root == nil {
				root = el
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("%w: no root element", ErrMalformed)
	}
	return &Document{root: root}, nil
}
