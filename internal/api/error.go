package api

import (
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// Error describes a failed call to the document service. A server that
// answered with a non-2xx status yields StatusCode and the raw Body; a
// request that never produced a response (connection refused, timeout)
// yields Transport=true and the underlying reason instead.
type Error struct {
	StatusCode int
	Body       string
	Transport  bool
	Reason     string
}

func (e *Error) Error() string {
	if e.Transport {
		return fmt.Sprintf("transport failure: %s", e.Reason)
	}
	if e.Reason != "" {
		return fmt.Sprintf("unexpected response (status %d): %s", e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// AsError unwraps err into *Error when possible.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func transportError(err error) *Error {
	return &Error{Transport: true, Reason: err.Error()}
}

func statusError(res *resty.Response) *Error {
	return &Error{StatusCode: res.StatusCode(), Body: string(res.Body())}
}
