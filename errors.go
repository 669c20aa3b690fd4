package coap

import "github.com/pkg/errors"

// Error taxonomy (spec.md section 7). Each sentinel is wrapped with
// github.com/pkg/errors at the call site so diagnostics keep details such
// as the option number or token length without losing errors.Is
// comparability against the sentinel.
var (
	// ErrMalformedHeader covers a short packet, a bad version, a bad TKL,
	// or a truncated token.
	ErrMalformedHeader = errors.New("malformed header")

	// ErrMalformedOption covers missing delta/length extension bytes, an
	// option value length outside the registry bounds, or a value whose
	// format is inconsistent with the registry.
	ErrMalformedOption = errors.New("malformed option")

	// ErrMalformedPayload covers a payload marker with nothing after it.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrBadOption covers an unrecognized critical (odd-numbered) option.
	ErrBadOption = errors.New("unrecognized critical option")

	// ErrUnsupportedContentFormat covers typedPayload() on a media type
	// outside the registry of section 3, or on a JSON payload that does
	// not parse.
	ErrUnsupportedContentFormat = errors.New("unsupported content format")

	// ErrTransport covers a socket bind/send/receive failure; LoadConfig
	// also returns it for a config file that cannot be read or parsed.
	ErrTransport = errors.New("transport error")

	// ErrApplicationFault covers a failure signaled by an application
	// handler; the server dispatcher turns this into a 5.00 reply.
	ErrApplicationFault = errors.New("application fault")
)

// errWrap attaches msg to sentinel while keeping errors.Is(result, sentinel)
// true, the way github.com/pkg/errors.WithMessage does.
func errWrap(sentinel error, msg string) error {
	return errors.WithMessage(sentinel, msg)
}

// errWrapf is errWrap with Printf-style formatting.
func errWrapf(sentinel error, format string, args ...interface{}) error {
	return errors.WithMessagef(sentinel, format, args...)
}
