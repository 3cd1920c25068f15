package store

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when a domain or link does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDomainExists is returned when a (protocol, host) pair is already registered.
	ErrDomainExists = errors.New("domain already exists for this protocol and host")

	// ErrAdminAccessRequired rejects a domain write that would leave no
	// active domain with the admin panel available.
	ErrAdminAccessRequired = errors.New("at least one active domain must have admin panel available")

	// ErrDomainInUse blocks deletion of a domain still referenced by links.
	ErrDomainInUse = errors.New("domain is referenced by existing links")

	// ErrShortPathConflict is returned when link creation loses the
	// uniqueness race more times than the retry cap allows.
	ErrShortPathConflict = errors.New("could not allocate a unique short path")

	// ErrNoDomains is returned when a link would be created without any domain.
	ErrNoDomains = errors.New("link must be associated with at least one domain")
)

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint error.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isShortPathViolation reports whether err is specifically a collision on the
// links.short_path uniqueness constraint, the only violation worth a
// reallocation retry.
func isShortPathViolation(err error) bool {
	return isUniqueViolation(err) && strings.Contains(err.Error(), "links.short_path")
}
