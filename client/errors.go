package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrNotFound matches any APIError with status 404.
var ErrNotFound = errors.New("not found")

// ErrForbidden matches any APIError with status 403.
var ErrForbidden = errors.New("forbidden")

// APIError is a non-2xx response decoded from the server's error body.
type APIError struct {
	StatusCode int    `json:"code"`
	Status     string `json:"error"`
	Field      string `json:"field,omitempty"`
	Message    string `json:"message,omitempty"`
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%d %s: %s: %s", e.StatusCode, e.Status, e.Field, e.Message)
	}
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	}
	return false
}

// retryable reports whether the response may succeed when sent again.
func (e *APIError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsForbidden reports whether err is a 403 from the server.
func IsForbidden(err error) bool { return errors.Is(err, ErrForbidden) }

func decodeAPIError(resp *http.Response) *APIError {
	out := &APIError{StatusCode: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(body) == 0 {
		return out
	}
	if json.Unmarshal(body, out) != nil {
		out.Message = string(body)
	}
	out.StatusCode = resp.StatusCode
	return out
}
