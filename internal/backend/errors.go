package backend

import "fmt"

// BackendError reports a non-success HTTP status from the analytics API.
type BackendError struct {
	StatusCode int
	StatusText string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend returned %d %s", e.StatusCode, e.StatusText)
}

// NetworkError reports a transport-level failure (DNS, timeout,
// connection refused) before any HTTP status was received.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("backend unreachable: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// MalformedResponseError reports a response body that decoded but did not
// carry the expected shape, e.g. a missing records array.
type MalformedResponseError struct {
	Endpoint string
	Reason   string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response from %s: %s", e.Endpoint, e.Reason)
}
