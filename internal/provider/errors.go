package provider

import (
	"errors"
	"fmt"
	"time"

	"ibp/pkg/domain"
)

// FormatError reports an inmate number that cannot be normalized for a
// jurisdiction. It is raised synchronously, before any network activity,
// and is never retried.
type FormatError struct {
	Jurisdiction domain.Jurisdiction
	Input        string
	Reason       string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%q is not a valid %s inmate number: %s", e.Input, e.Jurisdiction, e.Reason)
}

// TimeoutError reports a provider request that exceeded its deadline.
type TimeoutError struct {
	Jurisdiction domain.Jurisdiction
	Timeout      time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s provider query timed out after %s", e.Jurisdiction, e.Timeout)
}

// TransportError reports a provider that was reachable in principle but
// failed at the transport level (connection refused, non-2xx status, ...).
type TransportError struct {
	Jurisdiction domain.Jurisdiction
	Err          error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s provider query failed: %v", e.Jurisdiction, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ShapeError reports a response that was readable as bytes but did not
// have the expected structure. Zero matches is not a ShapeError.
type ShapeError struct {
	Jurisdiction domain.Jurisdiction
	Reason       string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("unexpected %s provider response: %s", e.Jurisdiction, e.Reason)
}

// ErrUnknownJurisdiction rejects dispatch requests naming a jurisdiction
// with no configured adapter. It fails the whole call before any request.
var ErrUnknownJurisdiction = errors.New("unknown jurisdiction")
