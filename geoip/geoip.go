package geoip

import (
	"net"

	"github.com/oschwald/maxminddb-golang"
	"github.com/rs/zerolog/log"
)

// Resolver answers country lookups against a local MaxMind snapshot. A nil
// Resolver (or one opened without a database) resolves everything to unknown,
// so visit recording never fails on geo data.
type Resolver struct {
	reader *maxminddb.Reader
}

// Open loads the country database at path. A missing or unreadable database
// is logged and downgraded to a no-op resolver.
func Open(path string) *Resolver {
	if path == "" {
		log.Warn().Msg("No GeoIP database configured, visit countries will be empty")
		return &Resolver{}
	}

	reader, err := maxminddb.Open(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to open GeoIP database, visit countries will be empty")
		return &Resolver{}
	}

	log.Info().Str("path", path).Msg("GeoIP database loaded")
	return &Resolver{reader: reader}
}

// Country returns the ISO country code for an IP, or nil when the address is
// unparseable, the database is unavailable, or the lookup misses.
func (r *Resolver) Country(ip string) *string {
	if r == nil || r.reader == nil {
		return nil
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil
	}

	var record struct {
		Country struct {
			ISOCode string `maxminddb:"iso_code"`
		} `maxminddb:"country"`
	}
	if err := r.reader.Lookup(parsed, &record); err != nil {
		log.Debug().Err(err).Str("ip", ip).Msg("GeoIP lookup failed")
		return nil
	}
	if record.Country.ISOCode == "" {
		return nil
	}

	code := record.Country.ISOCode
	return &code
}

// Close releases the underlying database.
func (r *Resolver) Close() {
	if r != nil && r.reader != nil {
		r.reader.Close()
	}
}
