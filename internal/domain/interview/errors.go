package interview

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound                     Kind = "not_found"
	KindAlreadyExists                Kind = "already_exists"
	KindAlreadyCompleted             Kind = "already_completed"
	KindMissingParameters            Kind = "missing_parameters"
	KindUpstreamTranscriptionFailure Kind = "upstream_transcription_failure"
	KindUpstreamGenerationFailure    Kind = "upstream_generation_failure"
	KindUpstreamSynthesisFailure     Kind = "upstream_synthesis_failure"
	KindUpstreamCompositingFailure   Kind = "upstream_compositing_failure"
	KindUpstreamTemplateFailure      Kind = "upstream_template_failure"
	KindMalformedUpstreamResponse    Kind = "malformed_upstream_response"
)

// Error is the single error type surfaced by the interview engine.
// errors.Is matches on Kind against the sentinels below.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

var (
	ErrNotFound                     = &Error{Kind: KindNotFound}
	ErrAlreadyExists                = &Error{Kind: KindAlreadyExists}
	ErrAlreadyCompleted             = &Error{Kind: KindAlreadyCompleted}
	ErrMissingParameters            = &Error{Kind: KindMissingParameters}
	ErrUpstreamTranscriptionFailure = &Error{Kind: KindUpstreamTranscriptionFailure}
	ErrUpstreamGenerationFailure    = &Error{Kind: KindUpstreamGenerationFailure}
	ErrUpstreamSynthesisFailure     = &Error{Kind: KindUpstreamSynthesisFailure}
	ErrUpstreamCompositingFailure   = &Error{Kind: KindUpstreamCompositingFailure}
	ErrUpstreamTemplateFailure      = &Error{Kind: KindUpstreamTemplateFailure}
	ErrMalformedUpstreamResponse    = &Error{Kind: KindMalformedUpstreamResponse}
)

func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Errorf(kind Kind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Kind
	}
	return ""
}

// IsUpstream reports whether err came from an external dependency.
func IsUpstream(err error) bool {
	switch KindOf(err) {
	case KindUpstreamTranscriptionFailure,
		KindUpstreamGenerationFailure,
		KindUpstreamSynthesisFailure,
		KindUpstreamCompositingFailure,
		KindUpstreamTemplateFailure,
		KindMalformedUpstreamResponse:
		return true
	default:
		return false
	}
}
