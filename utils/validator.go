package utils

import (
	"net/url"
	"regexp"
	"unicode"
)

// MaxOriginalURLLength matches the bounded column width of links.original_url.
const MaxOriginalURLLength = 2048

// ValidateURL checks that a destination URL is well formed.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return ErrEmptyURL
	}
	if len(rawURL) > MaxOriginalURLLength {
		return ErrURLTooLong
	}

	parsedURL, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return ErrInvalidURL
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return ErrInvalidScheme
	}

	if parsedURL.Host == "" {
		return ErrEmptyHost
	}

	return nil
}

var slugFormat = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)

// ValidateSlug validates a user-requested slug base.
// Rules:
// - Length within [minLength, maxLength]
// - Characters: a-z, A-Z, 0-9, -, _
// - Must start and end with alphanumeric
// - Cannot shadow a reserved route
func ValidateSlug(slug string, minLength, maxLength int) error {
	if len(slug) < minLength {
		return ErrSlugTooShort
	}
	if len(slug) > maxLength {
		return ErrSlugTooLong
	}

	firstChar := rune(slug[0])
	if !unicode.IsLetter(firstChar) && !unicode.IsDigit(firstChar) {
		return ErrSlugInvalidStart
	}

	lastChar := rune(slug[len(slug)-1])
	if !unicode.IsLetter(lastChar) && !unicode.IsDigit(lastChar) {
		return ErrSlugInvalidEnd
	}

	if !slugFormat.MatchString(slug) {
		return ErrSlugInvalidChars
	}

	if IsReservedPath(slug) {
		return ErrSlugReserved
	}

	return nil
}
