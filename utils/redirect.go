package utils

import (
	"net/url"

	"github.com/Linanok/Linanok/model"
)

// ComposeRedirectURL builds the final destination URL for a redirect.
//
// The link's original URL is the base. When the link sends a referrer
// parameter, `ref` is set to the serving request's host. When the link
// forwards query parameters, the inbound request's parameters are merged in
// afterwards and override on key collision. Parameters already present on the
// destination URL are never stripped. When nothing is added the original URL
// is returned untouched.
func ComposeRedirectURL(link model.Link, requestHost string, requestQuery url.Values) (string, error) {
	if !link.SendRefQueryParameter && (!link.ForwardQueryParams || len(requestQuery) == 0) {
		return link.OriginalURL, nil
	}

	u, err := url.Parse(link.OriginalURL)
	if err != nil {
		return "", err
	}

	query := u.Query()

	if link.SendRefQueryParameter {
		query.Set("ref", requestHost)
	}

	if link.ForwardQueryParams {
		// Last write wins on collision.
		for key, values := range requestQuery {
			query[key] = values
		}
	}

	// A bare origin like https://t.co renders as https://t.co/?... once
	// parameters are attached.
	if u.Path == "" {
		u.Path = "/"
	}
	u.RawQuery = query.Encode()

	return u.String(), nil
}
