package speech

import "errors"

// Kind classifies a speak-pipeline failure for user presentation. Every
// error leaving the pipeline carries exactly one kind.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConnectivity
	KindProvider
	KindArtifact
	KindPlayback
)

// String returns the kind name for logging.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConnectivity:
		return "connectivity"
	case KindProvider:
		return "provider"
	case KindArtifact:
		return "artifact"
	case KindPlayback:
		return "playback"
	default:
		return "unknown"
	}
}

// Error is a classified pipeline failure. Message is short and suitable
// for direct user display; Cause carries the underlying error for logs.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Validation failures are rejected before any queue work or persistence
// happens, each with a distinct user-facing reason.
var (
	ErrEmptyText = &Error{Kind: KindValidation, Message: "there is no text to speak"}
	ErrNoVoice   = &Error{Kind: KindValidation, Message: "no voice has been selected"}
	ErrOffline   = &Error{Kind: KindConnectivity, Message: "no network connection available"}
)

// KindOf extracts the classification from an error chain, or KindUnknown
// when the error did not come from this pipeline.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
