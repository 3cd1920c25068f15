package model

import (
	"strings"
	"time"
)

// Protocol is the scheme a domain is served over.
type Protocol string

const (
	ProtocolHTTP  Protocol = "http"
	ProtocolHTTPS Protocol = "https"
)

// Valid reports whether p is one of the supported protocols.
func (p Protocol) Valid() bool {
	return p == ProtocolHTTP || p == ProtocolHTTPS
}

// Domain is a registered (protocol, host) pair through which links are served
// and/or the admin surface is exposed. The (protocol, host) pair is unique.
type Domain struct {
	ID                    int64     `json:"id"`
	Host                  string    `json:"host"` // may include :port
	Protocol              Protocol  `json:"protocol"`
	IsActive              bool      `json:"isActive"`
	IsAdminPanelAvailable bool      `json:"isAdminPanelAvailable"`
	CreatedAt             time.Time `json:"createdAt"`
}

// HostWithoutPort returns the hostname with any :port suffix stripped.
func (d Domain) HostWithoutPort() string {
	host, _, found := strings.Cut(d.Host, ":")
	if !found {
		return d.Host
	}
	return host
}

// BaseURL returns the origin for this domain, e.g. "https://example.com".
func (d Domain) BaseURL() string {
	return string(d.Protocol) + "://" + d.Host
}

// SelectDisplayDomain picks the domain a link's short URL should be rendered
// with. Precedence: the preferred domain if it is one of the link's domains,
// then the current request's domain if associated, then the link's first
// domain (lowest ID). Returns nil when the link has no domains. The result is
// used only for display and link building, never for authorization.
func SelectDisplayDomain(domains []Domain, preferred, current *Domain) *Domain {
	if len(domains) == 0 {
		return nil
	}

	if preferred != nil {
		for i := range domains {
			if domains[i].ID == preferred.ID {
				return &domains[i]
			}
		}
	}

	if current != nil {
		for i := range domains {
			if domains[i].ID == current.ID {
				return &domains[i]
			}
		}
	}

	best := &domains[0]
	for i := range domains {
		if domains[i].ID < best.ID {
			best = &domains[i]
		}
	}
	return best
}
