package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/moogar0880/problems"
)

// ErrInvalidBaseURL is returned by New when the server address cannot be used.
var ErrInvalidBaseURL = errors.New("invalid backend base URL")

const (
	problemMediaType = "application/problem+json"
	maxMessageLength = 200
)

// RequestError is returned when the backend answers with a non-2xx status.
type RequestError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
	Message    string                   // Message extracted from the body, if any
	Problem    *problems.Problem // Set when the body is an RFC 7807 document
}

func (e *RequestError) Error() string {
	msg := fmt.Sprintf("%s %s: backend responded %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Message != "" {
		msg += ": " + e.Message
	}

	return msg
}

// DecodeError is returned when a 2xx response body does not match the expected shape.
type DecodeError struct {
	Method string
	URL    string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s %s: malformed response payload: %v", e.Method, e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// StatusCode returns the backend status carried by err, if any.
func StatusCode(err error) (int, bool) {
	var requestErr *RequestError
	if errors.As(err, &requestErr) {
		return requestErr.StatusCode, true
	}

	return 0, false
}

// IsNotFound checks if the backend reported the resource as missing.
func IsNotFound(err error) bool {
	code, ok := StatusCode(err)

	return ok && code == http.StatusNotFound
}

// IsUnauthorized checks if the backend rejected the credentials.
func IsUnauthorized(err error) bool {
	code, ok := StatusCode(err)

	return ok && (code == http.StatusUnauthorized || code == http.StatusForbidden)
}

// IsDecodeError checks if err is a malformed payload failure.
func IsDecodeError(err error) bool {
	var decodeErr *DecodeError

	return errors.As(err, &decodeErr)
}

func newRequestError(method, url string, resp *http.Response, body []byte) *RequestError {
	requestErr := &RequestError{
		Method:     method,
		URL:        url,
		StatusCode: resp.StatusCode,
		Body:       body,
	}

	if strings.Contains(resp.Header.Get("Content-Type"), problemMediaType) {
		var problem problems.Problem
		if err := json.Unmarshal(body, &problem); err == nil {
			requestErr.Problem = &problem
			requestErr.Message = problem.Detail

			if requestErr.Message == "" {
				requestErr.Message = problem.Title
			}

			return requestErr
		}
	}

	requestErr.Message = extractMessage(body)

	return requestErr
}

// extractMessage understands {"message": ...} objects and lists of them.
func extractMessage(body []byte) string {
	type entry struct {
		Message string `json:"message"`
	}

	var single entry
	if err := json.Unmarshal(body, &single); err == nil && single.Message != "" {
		return single.Message
	}

	var list []entry
	if err := json.Unmarshal(body, &list); err == nil {
		messages := make([]string, 0, len(list))

		for _, e := range list {
			if e.Message != "" {
				messages = append(messages, e.Message)
			}
		}

		return strings.Join(messages, "; ")
	}

	text := strings.TrimSpace(string(body))
	if len(text) > maxMessageLength {
		text = text[:maxMessageLength] + "..."
	}

	return text
}
