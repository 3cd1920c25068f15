package utils

import "strings"

// ReservedPrefixes lists the first path segments claimed by other subsystems.
// Short paths must not begin with any of these: the redirect route is a
// catch-all registered last, and a token shadowed by a registered mount would
// never be reachable.
var ReservedPrefixes = []string{
	// System routes
	"health",
	"api",

	// Link features
	"qr",

	// Admin surface (external collaborator, mounted on the same host)
	"admin",

	// Static assets
	"static",
	"assets",
	"favicon.ico",
}

// IsReservedPath reports whether a candidate short path would collide with a
// reserved route. The comparison is against the first path segment,
// case-insensitive.
func IsReservedPath(shortPath string) bool {
	first, _, _ := strings.Cut(strings.TrimPrefix(shortPath, "/"), "/")
	first = strings.ToLower(first)
	for _, reserved := range ReservedPrefixes {
		if first == reserved {
			return true
		}
	}
	return false
}
