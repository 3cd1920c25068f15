package model

import "time"

// Visit is an immutable record of one redirect event, enriched with
// best-effort browser/platform/country metadata. Visits are written only by
// the background recorder and are never updated.
type Visit struct {
	ID        int64     `json:"id"`
	LinkID    int64     `json:"linkId"`
	DomainID  int64     `json:"domainId"` // domain the visit came through
	IP        string    `json:"ip"`
	Browser   *string   `json:"browser,omitempty"`
	Platform  *string   `json:"platform,omitempty"`
	Country   *string   `json:"country,omitempty"` // nil when the geo lookup misses
	CreatedAt time.Time `json:"createdAt"`
}
