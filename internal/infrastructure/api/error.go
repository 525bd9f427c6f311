package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/fixmasters/master-app/internal/core/domain"
)

// errorEnvelope matches the backend's error body: {"message": "..."} or
// {"error": "..."}.
type errorEnvelope struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// classify maps an HTTP status to the error kind consumed everywhere above
// the transport. This is the only place status codes are interpreted.
func classify(status int) domain.ErrorKind {
	switch status {
	case http.StatusUnauthorized:
		return domain.KindUnauthorized
	case http.StatusForbidden:
		return domain.KindForbidden
	case http.StatusNotFound:
		return domain.KindNotFound
	case http.StatusConflict:
		return domain.KindConflict
	default:
		return domain.KindUnknown
	}
}

// responseError builds the tagged error for a non-2xx response.
func responseError(status int, body []byte) *domain.APIError {
	msg := extractMessage(body)
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &domain.APIError{Kind: classify(status), Status: status, Message: msg}
}

// transportError wraps a network-level failure (DNS, refused, timeout).
func transportError(err error) *domain.APIError {
	return &domain.APIError{Kind: domain.KindTransport, Message: err.Error()}
}

func extractMessage(body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return ""
	}
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil {
		if env.Message != "" {
			return env.Message
		}
		if env.Error != "" {
			return env.Error
		}
	}
	if !strings.HasPrefix(text, "{") {
		return text
	}
	return ""
}
