// Package apperr defines the error kinds shared by the classification and
// image tool services and how each kind is reported over HTTP.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind identifies a class of failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindConfig
	KindRateLimited
	KindCreditsExhausted
	KindUpstream
	KindUnknownTool
	KindNoImageGenerated
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindConfig:
		return "config_error"
	case KindRateLimited:
		return "rate_limited"
	case KindCreditsExhausted:
		return "credits_exhausted"
	case KindUpstream:
		return "upstream_error"
	case KindUnknownTool:
		return "unknown_tool"
	case KindNoImageGenerated:
		return "no_image_generated"
	default:
		return "unknown"
	}
}

// Error is an error tagged with a Kind.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf is New with formatting.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags err with kind.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the outermost *Error in err's chain, or
// KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps err to the status code returned to callers. Rate limiting
// and exhausted credits keep their upstream codes; everything else is 500.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindCreditsExhausted:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the text placed in the "error" field of a response.
func PublicMessage(err error) string {
	switch KindOf(err) {
	case KindRateLimited:
		return "Rate limit exceeded. Please try again later."
	case KindCreditsExhausted:
		return "Credits exhausted. Please add funds to your workspace."
	case KindConfig:
		return "AI gateway is not configured"
	case KindUnknown:
		return "Internal server error"
	}
	var e *Error
	errors.As(err, &e)
	return e.Message
}

// FromUpstreamStatus converts a non-2xx upstream status into an Error.
func FromUpstreamStatus(status int, body string) *Error {
	body = strings.TrimSpace(body)
	if len(body) > 500 {
		body = body[:500] + "..."
	}
	cause := fmt.Errorf("upstream returned status %d: %s", status, body)

	switch status {
	case http.StatusTooManyRequests:
		return Wrap(KindRateLimited, "rate limited by AI gateway", cause)
	case http.StatusPaymentRequired:
		return Wrap(KindCreditsExhausted, "AI gateway credits exhausted", cause)
	default:
		return Wrap(KindUpstream, "AI gateway error", cause)
	}
}
