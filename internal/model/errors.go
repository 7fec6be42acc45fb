package model

import (
	"fmt"
	"strings"
)

// ConfigurationError reports missing or placeholder settings. Callers fail
// fast before any network call.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return "configuration: missing " + strings.Join(e.Missing, ", ")
}

// UpstreamHTTPError is a failed exchange with an external HTTP dependency:
// either a non-2xx response, or a transport failure (Status 0, Err set).
type UpstreamHTTPError struct {
	Service string
	Status  int
	Body    string
	Err     error
}

func (e *UpstreamHTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: request failed: %v", e.Service, e.Err)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Service, e.Status, truncate(e.Body, 256))
}

func (e *UpstreamHTTPError) Unwrap() error { return e.Err }

// UpstreamAPIError is a 2xx envelope carrying an application error code.
type UpstreamAPIError struct {
	Service string
	Code    string
	Message string
}

func (e *UpstreamAPIError) Error() string {
	return fmt.Sprintf("%s: api error %s: %s", e.Service, e.Code, e.Message)
}

// DataShapeError is an unexpected payload shape.
type DataShapeError struct {
	Service string
	Detail  string
}

func (e *DataShapeError) Error() string {
	return fmt.Sprintf("%s: unexpected payload: %s", e.Service, e.Detail)
}

// StoreUnavailableError means the persistence layer could not be reached.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable (%s): %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
