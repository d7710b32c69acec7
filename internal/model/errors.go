package model

import "errors"

var (
	ErrNotFound     = errors.New("record not found")
	ErrConflict     = errors.New("duplicate record")
	ErrInvalidID    = errors.New("invalid object id")
	ErrInvalidToken = errors.New("invalid or expired token")
)

type Kind uint

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindForbidden
	KindNotFound
	KindConflict
)

var kindList = []string{"internal", "validation", "authentication", "forbidden", "not_found", "conflict"}

func (k Kind) String() string {
	if int(k) >= len(kindList) {
		return ""
	}
	return kindList[k]
}

// Error is what handlers return to the boundary. Msg goes to the envelope
// "error" field, Detail to "message". Err is logged, never sent.
type Error struct {
	Kind   Kind
	Msg    string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	s := e.Kind.String() + ": " + e.Msg
	if e.Detail != "" {
		s += " (" + e.Detail + ")"
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(msg, detail string) *Error {
	return &Error{Kind: KindValidation, Msg: msg, Detail: detail}
}

func Unauthenticated(msg, detail string) *Error {
	return &Error{Kind: KindAuthentication, Msg: msg, Detail: detail}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Msg: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Msg: msg, Err: ErrNotFound}
}

func Conflict(msg, detail string) *Error {
	return &Error{Kind: KindConflict, Msg: msg, Detail: detail, Err: ErrConflict}
}

// Internal hides err behind a generic message; detail is the user facing
// "Failed to ..." text.
func Internal(detail string, err error) *Error {
	return &Error{Kind: KindInternal, Msg: "Internal server error", Detail: detail, Err: err}
}

