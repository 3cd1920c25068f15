package model

import "time"

// Link is a shortened link. The short path is assigned exactly once at
// creation time and is immutable afterwards.
type Link struct {
	ID                    int64      `json:"id"`
	OriginalURL           string     `json:"originalURL"`
	ShortPath             string     `json:"shortPath"`
	Slug                  string     `json:"slug,omitempty"` // requested base for the short path
	Password              string     `json:"-"`              // plaintext access gate, not a security boundary
	IsActive              bool       `json:"isActive"`
	AvailableAt           *time.Time `json:"availableAt,omitempty"`
	UnavailableAt         *time.Time `json:"unavailableAt,omitempty"`
	ForwardQueryParams    bool       `json:"forwardQueryParameters"`
	SendRefQueryParameter bool       `json:"sendRefQueryParameter"`
	Description           string     `json:"description,omitempty"`
	VisitCount            int64      `json:"visitCount"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`

	// Domains associated with the link, loaded alongside it.
	Domains []Domain `json:"domains,omitempty"`
}

// HasPassword reports whether the link is password-protected.
func (l Link) HasPassword() bool {
	return l.Password != ""
}

// IsAvailable reports whether the link may be served at the given instant.
// A link is available when it is active, now is inside its
// [available_at, unavailable_at) window, and at least one of its domains is
// active. A link with no domains is never available.
func (l Link) IsAvailable(now time.Time) bool {
	if !l.IsActive {
		return false
	}
	if l.AvailableAt != nil && now.Before(*l.AvailableAt) {
		return false
	}
	if l.UnavailableAt != nil && !now.Before(*l.UnavailableAt) {
		return false
	}
	for _, d := range l.Domains {
		if d.IsActive {
			return true
		}
	}
	return false
}
