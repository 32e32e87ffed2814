package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidJSON reports a response body that is empty or not valid JSON.
var ErrInvalidJSON = errors.New("httpx: response body is not valid JSON")

// maxErrorBody caps how much of an error body is echoed in messages.
const maxErrorBody = 256

// TransportError is the single failure kind surfaced by Client: network
// failures, non-2xx statuses (wrapping *HTTPError) and undecodable bodies.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// StatusCode returns the HTTP status carried by the error, or 0 when the
// request never produced a response.
func (e *TransportError) StatusCode() int {
	var httpErr *HTTPError
	if errors.As(e, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// HTTPError represents a non-2xx HTTP response returned by the remote service.
type HTTPError struct {
	StatusCode int
	Body       []byte
	Header     http.Header
	JSON       any
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "<nil>"
	}
	body := bytes.TrimSpace(e.Body)
	if len(body) > maxErrorBody {
		body = append(body[:maxErrorBody:maxErrorBody], "..."...)
	}
	if len(body) == 0 {
		return fmt.Sprintf("http error: status=%d", e.StatusCode)
	}
	return fmt.Sprintf("http error: status=%d body=%s", e.StatusCode, string(body))
}

// decodeJSONBody parses the body bytes into a generic JSON payload.
func decodeJSONBody(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}
	return payload
}
