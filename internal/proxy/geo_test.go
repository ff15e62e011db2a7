package proxy

import (
	"path/filepath"
	"testing"
)

func TestOpenGeoResolverMissingDatabase(t *testing.T) {
	if got := OpenGeoResolver(""); got != nil {
		t.Fatal("empty path should disable the resolver")
	}
	if got := OpenGeoResolver(filepath.Join(t.TempDir(), "absent.mmdb")); got != nil {
		t.Fatal("missing database should disable the resolver")
	}
}

func TestGeoResolverNilSafe(t *testing.T) {
	var geo *GeoResolver

	if country := geo.Country("10.0.0.1"); country != "" {
		t.Fatalf("nil resolver country = %q, want empty", country)
	}
	if err := geo.Close(); err != nil {
		t.Fatalf("nil resolver close: %v", err)
	}
}
