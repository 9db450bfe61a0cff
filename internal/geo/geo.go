// Package geo resolves a client country when the edge did not supply one.
package geo

import (
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// Resolver maps an IP to an ISO country code, "" when unknown.
type Resolver interface {
	Country(ip string) string
}

// cityReader is the part of *geoip2.Reader the lookup needs.
type cityReader interface {
	City(ip net.IP) (*geoip2.City, error)
}

// MaxMind resolves countries from a GeoIP2 or GeoLite2 City database.
type MaxMind struct {
	reader cityReader
	closer func() error
}

// Open loads the database at path.
func Open(path string) (*MaxMind, error) {
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database %s: %w", path, err)
	}
	return &MaxMind{reader: r, closer: r.Close}, nil
}

func (m *MaxMind) Country(ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ""
	}
	rec, err := m.reader.City(parsed)
	if err != nil || rec == nil {
		return ""
	}
	return rec.Country.IsoCode
}

func (m *MaxMind) Close() error {
	if m.closer == nil {
		return nil
	}
	return m.closer()
}

// None never resolves a country.
type None struct{}

func (None) Country(string) string { return "" }
