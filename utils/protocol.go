package utils

import (
	"net/http"

	"github.com/Linanok/Linanok/model"
)

// RequestProtocol determines the scheme a request was served over. With
// trustProxyHeaders set, X-Forwarded-Proto from the fronting proxy wins;
// otherwise the TLS state of the connection decides.
func RequestProtocol(r *http.Request, trustProxyHeaders bool) model.Protocol {
	if trustProxyHeaders {
		switch r.Header.Get("X-Forwarded-Proto") {
		case "https":
			return model.ProtocolHTTPS
		case "http":
			return model.ProtocolHTTP
		}
	}

	if r.TLS != nil {
		return model.ProtocolHTTPS
	}
	return model.ProtocolHTTP
}
