// Package errkind defines the error taxonomy shared by the scan, grouping,
// ordering, assembly and export stages.
package errkind

import (
	"errors"
	"fmt"
)

// Kind classifies a failure by the stage that raised it.
type Kind string

const (
	Scan     Kind = "ScanError"
	Pattern  Kind = "PatternError"
	Order    Kind = "OrderError"
	Decode   Kind = "DecodeError"
	Assemble Kind = "AssembleError"
	Delete   Kind = "DeleteWarning"
)

// Sentinels for errors.Is. Every *Error matches the sentinel of its Kind.
var (
	ErrScan     = errors.New("scan failed")
	ErrPattern  = errors.New("invalid pattern")
	ErrOrder    = errors.New("invalid order")
	ErrDecode   = errors.New("image decode failed")
	ErrAssemble = errors.New("pdf assembly failed")
	ErrDelete   = errors.New("source cleanup failed")
)

var sentinels = map[Kind]error{
	Scan:     ErrScan,
	Pattern:  ErrPattern,
	Order:    ErrOrder,
	Decode:   ErrDecode,
	Assemble: ErrAssemble,
	Delete:   ErrDelete,
}

// Error carries a Kind, the path it concerns (if any) and the cause.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

// New wraps err with kind and path.
func New(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

// Errorf builds an *Error from a format string.
func Errorf(kind Kind, path, format string, args ...any) *Error {
	return &Error{Kind: kind, Path: path, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's Kind.
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
