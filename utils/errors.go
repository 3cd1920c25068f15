package utils

import "errors"

var (
	ErrEmptyURL      = errors.New("URL cannot be empty")
	ErrInvalidURL    = errors.New("invalid URL format")
	ErrInvalidScheme = errors.New("URL scheme must be http or https")
	ErrEmptyHost     = errors.New("URL host cannot be empty")
	ErrURLTooLong    = errors.New("URL exceeds maximum length")

	ErrSlugTooShort     = errors.New("slug is too short")
	ErrSlugTooLong      = errors.New("slug is too long")
	ErrSlugInvalidStart = errors.New("slug must start with a letter or digit")
	ErrSlugInvalidEnd   = errors.New("slug must end with a letter or digit")
	ErrSlugInvalidChars = errors.New("slug may only contain letters, digits, hyphens, and underscores")
	ErrSlugReserved     = errors.New("slug collides with a reserved route")

	ErrMaxSlugAttempts = errors.New("failed to generate unique short path after maximum attempts")
)
