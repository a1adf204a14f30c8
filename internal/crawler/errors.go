package crawler

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures. None of them abort a pass.
type Kind int

// Error kinds raised by the pipeline stages.
const (
	KindUnknown Kind = iota
	KindInvalidSeed
	KindFetchRejected
	KindFetchTransient
	KindRenderUnavailable
	KindParseEmpty
	KindPersistenceFailure
	KindNotifyFailure
)

var kindNames = map[Kind]string{
	KindUnknown:            "unknown",
	KindInvalidSeed:        "invalid_seed",
	KindFetchRejected:      "fetch_rejected",
	KindFetchTransient:     "fetch_transient",
	KindRenderUnavailable:  "render_unavailable",
	KindParseEmpty:         "parse_empty",
	KindPersistenceFailure: "persistence_failure",
	KindNotifyFailure:      "notify_failure",
}

// String returns the snake_case label used in logs and metrics.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// Sentinels usable with errors.Is against any *Error of the same kind.
var (
	ErrInvalidSeed        = &Error{Kind: KindInvalidSeed}
	ErrFetchRejected      = &Error{Kind: KindFetchRejected}
	ErrFetchTransient     = &Error{Kind: KindFetchTransient}
	ErrRenderUnavailable  = &Error{Kind: KindRenderUnavailable}
	ErrParseEmpty         = &Error{Kind: KindParseEmpty}
	ErrPersistenceFailure = &Error{Kind: KindPersistenceFailure}
	ErrNotifyFailure      = &Error{Kind: KindNotifyFailure}
)

// Error is a classified pipeline failure.
type Error struct {
	Kind Kind
	Op   string
	URL  string
	Err  error
}

// NewError wraps cause with a kind, operation name, and subject URL.
func NewError(kind Kind, op, url string, cause error) *Error {
	return &Error{Kind: kind, Op: op, URL: url, Err: cause}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.URL != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.URL)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error carrying the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf extracts the kind from err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
