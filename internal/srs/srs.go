// Package srs canonicalizes the CRS spellings accepted by the Catastro tools.
package srs

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	CRS84URN      = "urn:ogc:def:crs:CRS::84"
	epsgURNPrefix = "urn:ogc:def:crs:EPSG::"

	// EPSG4326 is the baseline request CRS for the Catastro WFS.
	EPSG4326 = "EPSG:4326"
)

// upper-cased, whitespace-stripped spellings of OGC CRS84
var crs84Aliases = map[string]struct{}{
	"CRS:84":                                       {},
	"CRS::84":                                      {},
	"URN:OGC:DEF:CRS:CRS::84":                      {},
	"OGC:CRS84":                                    {},
	"URN:OGC:DEF:CRS:OGC:1.3:CRS84":                {},
	"URN:OGC:DEF:CRS:OGC::CRS84":                   {},
	"HTTP://WWW.OPENGIS.NET/DEF/CRS/OGC/1.3/CRS84": {},
}

var autoTokens = map[string]struct{}{
	"AUTO":     {},
	"AUTO_UTM": {},
	"UTM_AUTO": {},
}

var (
	ogcURLPattern  = regexp.MustCompile(`/EPSG/\d+/(\d+)$`)
	epsgURNPattern = regexp.MustCompile(`(?i)^urn:ogc:def:crs:epsg:[\d.]*:(\d+)$`)
	epsgCodeRegexp = regexp.MustCompile(`(?i)EPSG(?::[\d.]*:|:|/\d+/)(\d+)$`)
)

// Normalize maps any accepted spelling to a canonical URN. Strings it does not
// recognize are returned verbatim.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return s
	}

	compact := strings.ReplaceAll(strings.ToUpper(s), " ", "")
	if _, ok := crs84Aliases[compact]; ok {
		return CRS84URN
	}

	if m := epsgURNPattern.FindStringSubmatch(s); m != nil {
		return epsgURNPrefix + m[1]
	}
	if strings.HasPrefix(strings.ToLower(s), "urn:ogc:def:crs:crs::") {
		return s
	}

	if m := ogcURLPattern.FindStringSubmatch(s); m != nil {
		return epsgURNPrefix + m[1]
	}

	upper := strings.ToUpper(s)
	if rest, ok := strings.CutPrefix(upper, "EPSG:"); ok {
		code := strings.TrimSpace(strings.TrimPrefix(rest, ":"))
		if isDigits(code) {
			return epsgURNPrefix + code
		}
	}

	return s
}

// EPSGCode extracts the numeric EPSG code from EPSG:n, EPSG::n, EPSG URNs and
// OGC definition URLs.
func EPSGCode(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	m := epsgCodeRegexp.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// IsCRS84 reports whether a reported srsName denotes lon/lat CRS84.
func IsCRS84(srsName string) bool {
	if srsName == "" {
		return false
	}
	if strings.Contains(srsName, "CRS::84") {
		return true
	}
	return Normalize(srsName) == CRS84URN
}

// IsEPSG4326 reports whether a reported srsName denotes EPSG:4326 in any
// accepted spelling.
func IsEPSG4326(srsName string) bool {
	if code, ok := EPSGCode(srsName); ok {
		return code == 4326
	}
	return strings.HasSuffix(srsName, "/4326")
}

// IsAuto reports whether the caller asked for automatic CRS resolution.
func IsAuto(raw string) bool {
	_, ok := autoTokens[strings.ToUpper(strings.TrimSpace(raw))]
	return ok
}

func URN(code int) string {
	return epsgURNPrefix + strconv.Itoa(code)
}

// Label formats a code the way the WFS accepts it in requests.
func Label(code int) string {
	return fmt.Sprintf("EPSG:%d", code)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
