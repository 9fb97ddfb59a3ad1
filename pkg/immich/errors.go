package immich

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"strings"
)

// Error codes assigned to failures that never reached the Immich server.
const (
	ErrorCodeTimeout = "TIMEOUT"
	ErrorCodeNetwork = "NETWORK_ERROR"
)

// APIError is the normalized shape of every failed Immich call.
type APIError struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
	ErrorCode  string `json:"errorCode,omitempty"`
}

func (e *APIError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("immich API error (status=%d, code=%s): %s", e.StatusCode, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("immich API error (status=%d): %s", e.StatusCode, e.Message)
}

// FileNotFoundError reports a local upload path that does not exist.
type FileNotFoundError struct {
	Path string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("file not found: %s", e.Path)
}

// Is lets callers match with errors.Is(err, fs.ErrNotExist).
func (e *FileNotFoundError) Is(target error) bool {
	return target == fs.ErrNotExist
}

// remoteErrorBody mirrors the error payload Immich returns.
// message is a string for most errors and a list for validation failures.
type remoteErrorBody struct {
	Message    interface{} `json:"message"`
	Error      string      `json:"error"`
	Code       string      `json:"code"`
	StatusCode int         `json:"statusCode"`
}

// newResponseError converts a non-2xx response body into an APIError.
func newResponseError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var remote remoteErrorBody
	if len(body) > 0 && json.Unmarshal(body, &remote) == nil {
		apiErr.Message = remoteMessage(remote.Message)
		apiErr.ErrorCode = remote.Error
		if apiErr.ErrorCode == "" {
			apiErr.ErrorCode = remote.Code
		}
	}

	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}

	return apiErr
}

func remoteMessage(raw interface{}) string {
	switch msg := raw.(type) {
	case string:
		return msg
	case []interface{}:
		parts := make([]string, 0, len(msg))
		for _, part := range msg {
			parts = append(parts, fmt.Sprint(part))
		}
		return strings.Join(parts, "; ")
	default:
		return ""
	}
}

// newTransportError converts a failure to obtain any response into an APIError.
func newTransportError(err error) *APIError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &APIError{
			Message:    fmt.Sprintf("request timed out: %v", err),
			StatusCode: http.StatusGatewayTimeout,
			ErrorCode:  ErrorCodeTimeout,
		}
	}

	return &APIError{
		Message:    fmt.Sprintf("request failed: %v", err),
		StatusCode: http.StatusBadGateway,
		ErrorCode:  ErrorCodeNetwork,
	}
}
