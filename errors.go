package adns

import (
	"fmt"

	"github.com/pkg/errors"
)

// IdCollisionError is returned when the allocated transaction id is already
// occupied in the dispatcher's pending table for the target socket. Callers
// re-allocate and retry once; it is never silently ignored.
type IdCollisionError struct {
	ID uint16
}

func (e IdCollisionError) Error() string {
	return fmt.Sprintf("transaction id %d already in flight", e.ID)
}

// TimeoutError is returned when no answer arrived by the query's deadline.
// It triggers failover to the next server in the pool.
type TimeoutError struct {
	Name  string
	RType RecordType
}

func (e TimeoutError) Error() string {
	return fmt.Sprintf("query for %q type %s timed out", e.Name, e.RType)
}

// TransportError wraps a send/recv syscall failure. It triggers failover.
type TransportError struct {
	Cause error
}

func (e TransportError) Error() string {
	return errors.Wrap(e.Cause, "transport error").Error()
}

func (e TransportError) Unwrap() error { return e.Cause }

// ServerError is returned for a DNS rcode other than NoError or NameError
// (SERVFAIL, REFUSED, FORMERR, ...). It triggers failover.
type ServerError struct {
	Rcode int
}

func (e ServerError) Error() string {
	return fmt.Sprintf("server returned rcode %d", e.Rcode)
}

// NameErrorResult marks an authoritative NXDOMAIN. It is never retried; the
// caller completes with an empty record list and the result is cached
// negatively.
type NameErrorResult struct {
	Name string
}

func (e NameErrorResult) Error() string {
	return fmt.Sprintf("name %q does not exist", e.Name)
}

// EmptyResultError is returned by single-result variants when no records
// were found.
type EmptyResultError struct {
	Name  string
	RType RecordType
}

func (e EmptyResultError) Error() string {
	return fmt.Sprintf("no %s records for %q", e.RType, e.Name)
}

// ServerRetiredError is returned when a socket is closed mid-flight. It
// triggers failover if retries remain.
type ServerRetiredError struct {
	Server ServerAddress
}

func (e ServerRetiredError) Error() string {
	return fmt.Sprintf("server %s was retired", e.Server)
}

// MalformedResponseError marks a packet the codec failed to parse. It is
// dropped silently unless it is the only response received, in which case
// the caller treats it as a TimeoutError.
type MalformedResponseError struct {
	Cause error
}

func (e MalformedResponseError) Error() string {
	return errors.Wrap(e.Cause, "malformed dns response").Error()
}

func (e MalformedResponseError) Unwrap() error { return e.Cause }

// InvalidArgumentError is raised synchronously, before any async work
// starts, for a bad record family or malformed name.
type InvalidArgumentError struct {
	Reason string
}

func (e InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument: %s", e.Reason)
}
