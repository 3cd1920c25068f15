package utils

import (
	"crypto/rand"
	"math/big"
)

const (
	// ShortPathLength is the length of randomly generated short paths and of
	// the suffix appended to a taken slug.
	ShortPathLength = 6

	shortPathCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// Defensive cap. The 62^6 token space makes repeated collisions
	// vanishingly unlikely, so hitting this indicates something is wrong.
	maxSlugAttempts = 100
)

// TakenFunc reports whether a candidate short path is already in use.
type TakenFunc func(candidate string) (bool, error)

// randomString generates a cryptographically secure random string of the
// given length from the short-path charset.
func randomString(length int) (string, error) {
	result := make([]byte, length)
	for i := range result {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(shortPathCharset))))
		if err != nil {
			return "", err
		}
		result[i] = shortPathCharset[num.Int64()]
	}
	return string(result), nil
}

// GenerateShortPath allocates a short path for a new link.
//
// Without a base it returns the first random 6-character token not reported
// as taken. With a base it tries the base unmodified first, then appends
// random 6-character suffixes until a free token is found.
//
// The check is advisory: the allocation and the eventual insert are not
// atomic, so the caller must rely on the store's uniqueness constraint and
// retry on conflict.
func GenerateShortPath(base string, taken TakenFunc) (string, error) {
	if base != "" {
		used, err := taken(base)
		if err != nil {
			return "", err
		}
		if !used {
			return base, nil
		}
	}

	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		suffix, err := randomString(ShortPathLength)
		if err != nil {
			return "", err
		}

		candidate := base + suffix
		used, err := taken(candidate)
		if err != nil {
			return "", err
		}
		if !used {
			return candidate, nil
		}
	}

	return "", ErrMaxSlugAttempts
}
