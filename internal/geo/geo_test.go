package geo

import (
	"errors"
	"net"
	"testing"

	"github.com/oschwald/geoip2-golang"
)

type stubReader map[string]string

func (s stubReader) City(ip net.IP) (*geoip2.City, error) {
	code, ok := s[ip.String()]
	if !ok {
		return nil, errors.New("not found")
	}
	rec := &geoip2.City{}
	rec.Country.IsoCode = code
	return rec, nil
}

func TestMaxMindCountry(t *testing.T) {
	m := &MaxMind{reader: stubReader{"203.0.113.5": "NL", "2001:db8::1": "DE"}}

	tests := map[string]string{
		"203.0.113.5":  "NL",
		"2001:db8::1":  "DE",
		"198.51.100.1": "",
		"not-an-ip":    "",
		"":             "",
	}
	for ip, want := range tests {
		if got := m.Country(ip); got != want {
			t.Errorf("Country(%q) = %q, want %q", ip, got, want)
		}
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOpenMissingDatabase(t *testing.T) {
	if _, err := Open(t.TempDir() + "/missing.mmdb"); err == nil {
		t.Fatal("expected error for missing database")
	}
}

func TestNone(t *testing.T) {
	var r Resolver = None{}
	if r.Country("203.0.113.5") != "" {
		t.Fatal("None resolved a country")
	}
}
