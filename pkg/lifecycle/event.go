// Package lifecycle defines the event records emitted by an HTTP server
// for each request lifecycle occurrence. Records are the wire contract
// between the event producer (server/middleware) and the metrics
// collector: one record per occurrence, immutable once handed over.
package lifecycle

// Kind discriminates the two mutually exclusive event shapes.
type Kind int

const (
	// KindEarlyFailure marks a request that died before normal
	// processing began (accept error, header parse failure, ...).
	KindEarlyFailure Kind = iota + 1

	// KindCompletedRequest marks a request that ran to termination,
	// successfully or not.
	KindCompletedRequest
)

// Request exposes the parts of the underlying HTTP request the label
// resolver may ask for. Kept narrow so producers can wrap any request
// representation.
type Request interface {
	Method() string
}

// Event is one request-lifecycle record. ListenerRef is always set;
// the remaining fields belong to the completed-request shape and are
// meaningless for early failures.
//
// Timestamps are fractional seconds on a common clock. BodyEnd is nil
// when the request body was never fully received; Status is 0 when no
// response status was produced.
type Event struct {
	Kind        Kind
	ListenerRef string

	// Filled by the collector from the listener registry before label
	// resolution. Producers leave these empty.
	ListenerHost string
	ListenerPort int

	ReqStart  float64
	ReqEnd    float64
	BodyStart float64
	BodyEnd   *float64

	Status  int
	Reason  Reason
	Procs   []string
	Request Request
}

// EarlyFailure builds the minimal early-failure record.
func EarlyFailure(listenerRef string) *Event {
	return &Event{
		Kind:        KindEarlyFailure,
		ListenerRef: listenerRef,
	}
}
