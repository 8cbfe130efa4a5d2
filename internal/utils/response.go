package utils

import (
	"time"

	"github.com/labstack/echo/v4"
)

// RequestStartKey is the echo context key under which the request-start
// middleware stores a time.Time used for execution_time_ms.
const RequestStartKey = "request_start"

// ResponseMetadata is attached to every wire response, success or error.
type ResponseMetadata struct {
	Method          string `json:"method"`
	URL             string `json:"url"`
	ExecutionTimeMS int64  `json:"execution_time_ms"`
	IP              string `json:"ip"`
	Timestamp       string `json:"timestamp"`
}

// FieldError describes a single validation failure on a named input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type successEnvelope struct {
	StatusCode int              `json:"status_code"`
	Message    string           `json:"message"`
	Data       any              `json:"data"`
	Metadata   ResponseMetadata `json:"metadata"`
}

type errorEnvelope struct {
	StatusCode int              `json:"status_code"`
	Message    string           `json:"message"`
	Errors     []FieldError     `json:"errors,omitempty"`
	Metadata   ResponseMetadata `json:"metadata"`
}

// OK writes the uniform success envelope. Data may be nil, in which case
// the payload carries an explicit null.
func OK(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, successEnvelope{
		StatusCode: status,
		Message:    message,
		Data:       data,
		Metadata:   metadataFor(c),
	})
}

// Fail writes the uniform error envelope, optionally with per-field
// validation messages.
func Fail(c echo.Context, status int, message string, fields ...FieldError) error {
	return c.JSON(status, errorEnvelope{
		StatusCode: status,
		Message:    message,
		Errors:     fields,
		Metadata:   metadataFor(c),
	})
}

func metadataFor(c echo.Context) ResponseMetadata {
	now := time.Now().UTC()
	start := now
	if v, ok := c.Get(RequestStartKey).(time.Time); ok {
		start = v
	}
	return ResponseMetadata{
		Method:          c.Request().Method,
		URL:             c.Request().RequestURI,
		ExecutionTimeMS: now.Sub(start).Milliseconds(),
		IP:              c.RealIP(),
		Timestamp:       now.Format(time.RFC3339),
	}
}
