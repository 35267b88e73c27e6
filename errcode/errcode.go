package errcode

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK Code = "ok"

	// Shared peripheral bus
	BusNack    Code = "bus_nack"
	BusTimeout Code = "bus_timeout"

	// Unrecoverable driver fault - escalated to the scheduler.
	DriverFatal Code = "driver_fatal"

	// Network / radio
	NetTimeout   Code = "net_timeout"
	NetTransport Code = "net_transport"
	NoConnection Code = "no_connection"

	// Control plane
	Busy           Code = "busy"
	Unsupported    Code = "unsupported"
	InvalidParams  Code = "invalid_params"
	InvalidPayload Code = "invalid_payload"
	InvalidTopic   Code = "invalid_topic"
	NotReady       Code = "not_ready"

	Error Code = "error" // generic fallback
)

// Optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return string(e.C) + ": " + e.Msg
	}
	return string(e.C)
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}

// Fatal reports whether err must be escalated rather than retried locally.
func Fatal(err error) bool { return Of(err) == DriverFatal }

// Recoverable reports whether the owning task may retry on its own schedule.
// Per the propagation policy, everything short of DriverFatal is recoverable.
func Recoverable(err error) bool {
	if err == nil {
		return false
	}
	return Of(err) != DriverFatal
}
