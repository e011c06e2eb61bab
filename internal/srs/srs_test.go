package srs

import "testing"

func TestNormalize_SpellingsOfSameCodeAgree(t *testing.T) {
	spellings := []string{
		"EPSG:25830",
		"epsg:25830",
		"EPSG::25830",
		" EPSG::25830 ",
		"urn:ogc:def:crs:EPSG::25830",
		"URN:OGC:DEF:CRS:EPSG::25830",
		"urn:ogc:def:crs:EPSG:6.9:25830",
		"http://www.opengis.net/def/crs/EPSG/0/25830",
	}
	want := "urn:ogc:def:crs:EPSG::25830"
	for _, s := range spellings {
		if got := Normalize(s); got != want {
			t.Fatalf("Normalize(%q)=%q want %q", s, got, want)
		}
		// idempotent
		if got := Normalize(Normalize(s)); got != want {
			t.Fatalf("Normalize twice (%q)=%q want %q", s, got, want)
		}
	}
}

func TestNormalize_CRS84Aliases(t *testing.T) {
	for _, s := range []string{
		"CRS:84", "crs:84", "CRS::84", "urn:ogc:def:crs:CRS::84",
		"urn:ogc:def:crs:OGC:1.3:CRS84", "OGC:CRS84",
		"http://www.opengis.net/def/crs/OGC/1.3/CRS84",
	} {
		if got := Normalize(s); got != CRS84URN {
			t.Fatalf("Normalize(%q)=%q want %q", s, got, CRS84URN)
		}
	}
}

func TestNormalize_UnrecognizedPassesThrough(t *testing.T) {
	for _, s := range []string{"ETRS89", "EPSG:abc", "foo:bar", ""} {
		if got := Normalize(s); got != s {
			t.Fatalf("Normalize(%q)=%q want verbatim", s, got)
		}
	}
}

func TestEPSGCode(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"EPSG:4326", 4326, true},
		{"epsg::32628", 32628, true},
		{"urn:ogc:def:crs:EPSG::25831", 25831, true},
		{"http://www.opengis.net/def/crs/EPSG/0/3035", 3035, true},
		{"CRS:84", 0, false},
		{"EPSG:", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		got, ok := EPSGCode(c.in)
		if got != c.want || ok != c.ok {
			t.Fatalf("EPSGCode(%q)=(%d,%v) want (%d,%v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestPredicates(t *testing.T) {
	if !IsCRS84("urn:ogc:def:crs:CRS::84") || IsCRS84("urn:ogc:def:crs:EPSG::4326") {
		t.Fatalf("IsCRS84 mismatch")
	}
	for _, s := range []string{"urn:ogc:def:crs:EPSG::4326", "http://www.opengis.net/def/crs/EPSG/0/4326", "EPSG:4326"} {
		if !IsEPSG4326(s) {
			t.Fatalf("IsEPSG4326(%q)=false", s)
		}
	}
	if IsEPSG4326("urn:ogc:def:crs:EPSG::43260") || IsEPSG4326("urn:ogc:def:crs:CRS::84") {
		t.Fatalf("IsEPSG4326 false positive")
	}
	for _, s := range []string{"AUTO", "auto", " Auto_UTM ", "UTM_AUTO"} {
		if !IsAuto(s) {
			t.Fatalf("IsAuto(%q)=false", s)
		}
	}
	if IsAuto("EPSG:4326") {
		t.Fatalf("IsAuto on explicit code")
	}
}

func TestURNAndLabel(t *testing.T) {
	if got := URN(32628); got != "urn:ogc:def:crs:EPSG::32628" {
		t.Fatalf("URN=%q", got)
	}
	if got := Label(25830); got != "EPSG:25830" {
		t.Fatalf("Label=%q", got)
	}
}
