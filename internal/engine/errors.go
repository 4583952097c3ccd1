package engine

import (
	"errors"
	"fmt"
)

var (
	errNotFolder  = errors.New("exists and is not a folder")
	errIsFolder   = errors.New("a folder exists at the file path")
	errVerifyHash = errors.New("uploaded content does not match the local file")
)

// Kind classifies a deployment failure.
type Kind int

const (
	// KindProtocol is a non-success status on a remote file operation.
	KindProtocol Kind = iota + 1
	// KindLocalIO is an unreadable or locked local file. Never retried.
	KindLocalIO
	// KindRetryExhausted is a protocol failure that outlived every attempt.
	KindRetryExhausted
	// KindBuild is a failed or non-zero-exit build step.
	KindBuild
	// KindIndex is a failure to list a folder while indexing.
	KindIndex
)

var kindNames = [...]string{
	KindProtocol:       "protocol error",
	KindLocalIO:        "local I/O error",
	KindRetryExhausted: "retries exhausted",
	KindBuild:          "build failed",
	KindIndex:          "index failed",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown error"
}

// Error is a failure of one operation on one path.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Path == "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Err == nil:
		return fmt.Sprintf("%s `%s`: %s", e.Op, e.Path, e.Kind)
	default:
		return fmt.Sprintf("%s `%s`: %s: %v", e.Op, e.Path, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

func protocolError(op, path string, err error) error {
	return &Error{Kind: KindProtocol, Op: op, Path: path, Err: err}
}

// permanent marks an error that must not be retried.
type permanent struct{ err error }

func (p *permanent) Error() string { return p.err.Error() }
func (p *permanent) Unwrap() error { return p.err }

func localIOError(op, path string, err error) error {
	return &permanent{err: &Error{Kind: KindLocalIO, Op: op, Path: path, Err: err}}
}
