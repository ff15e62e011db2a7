package proxy

import (
	"net"
	"os"

	"github.com/charmbracelet/log"
	"github.com/oschwald/geoip2-golang"
)

// GeoResolver tags proxy entries with a country name from a local
// GeoLite2 database. Entirely optional; a missing database just leaves
// country tags empty.
type GeoResolver struct {
	reader *geoip2.Reader
}

// OpenGeoResolver loads the GeoLite2 country database at path. Returns
// nil when the file is absent so callers can wire it unconditionally.
func OpenGeoResolver(path string) *GeoResolver {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		log.Debug("geolite database not found, country tagging disabled", "path", path)
		return nil
	}

	reader, err := geoip2.Open(path)
	if err != nil {
		log.Warn("failed to open geolite database", "path", path, "error", err)
		return nil
	}
	return &GeoResolver{reader: reader}
}

// Country resolves host to a country name, or "" when the lookup cannot
// be answered.
func (g *GeoResolver) Country(host string) string {
	if g == nil || g.reader == nil {
		return ""
	}

	ip := net.ParseIP(host)
	if ip == nil {
		addrs, err := net.LookupIP(host)
		if err != nil || len(addrs) == 0 {
			return ""
		}
		ip = addrs[0]
	}

	record, err := g.reader.Country(ip)
	if err != nil {
		return ""
	}
	return record.Country.Names["en"]
}

func (g *GeoResolver) Close() error {
	if g == nil || g.reader == nil {
		return nil
	}
	return g.reader.Close()
}
