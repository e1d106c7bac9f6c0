package session

import "fmt"

// Kind categorizes an [Error] the way the IPC layer needs to decide how to
// respond to a client and whether the failure is fatal to the process.
type Kind int

const (
	// KindConfiguration marks settings missing or malformed. Fatal at
	// startup.
	KindConfiguration Kind = iota

	// KindAuthentication marks invalid credentials, a locked account, or a
	// misconfigured auth service. Surfaced verbatim to the client.
	KindAuthentication

	// KindEnvironment marks a failed host-level precondition: missing
	// service user, unwritable filesystem, exhausted display space.
	// Recoverable per-request.
	KindEnvironment

	// KindSession marks a failure provisioning a session after
	// authentication succeeded: spawn failure, token install failure, WM
	// failed to start.
	KindSession

	// KindTransport marks an IPC send/receive, encode/decode, or socket
	// bind/chown failure.
	KindTransport
)

// String names the error kind for logging.
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindAuthentication:
		return "authentication"
	case KindEnvironment:
		return "environment"
	case KindSession:
		return "session"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Error is the typed error carried by every operation in this package. It
// never embeds a password — callers constructing an [KindAuthentication]
// error must ensure the message they pass does not either.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// newError builds an [Error] of the given kind with a formatted message.
func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// wrapError builds an [Error] of the given kind wrapping an underlying
// cause. Error and ClientMessage both append the cause's message, for
// every kind, [KindAuthentication] included.
func wrapError(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// ConfigurationError constructs a [KindConfiguration] [Error].
func ConfigurationError(format string, args ...any) *Error {
	return newError(KindConfiguration, format, args...)
}

// AuthenticationError constructs a [KindAuthentication] [Error]. Callers
// must never pass a password in format/args.
func AuthenticationError(format string, args ...any) *Error {
	return newError(KindAuthentication, format, args...)
}

// EnvironmentError constructs a [KindEnvironment] [Error].
func EnvironmentError(format string, args ...any) *Error {
	return newError(KindEnvironment, format, args...)
}

// SessionError constructs a [KindSession] [Error].
func SessionError(format string, args ...any) *Error {
	return newError(KindSession, format, args...)
}

// TransportError constructs a [KindTransport] [Error].
func TransportError(format string, args ...any) *Error {
	return newError(KindTransport, format, args...)
}

// Error implements the error interface. The kind tag is included for
// logging; callers putting the error on the wire must use
// [Error.ClientMessage] instead, since spec.md §7 requires internal
// error kinds never be leaked to the client.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// ClientMessage renders the message a caller may safely put on the
// wire: the message and cause, without the internal kind tag.
func (e *Error) ClientMessage() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// ErrSessionNotFound is returned by Terminate when no session matches the
// given id. It carries [KindSession].
var ErrSessionNotFound = SessionError("no such session")
