package transport

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"

	"github.com/hirochachacha/go-smb2"
)

// NTSTATUS codes meaning "absent" or "already present".
const (
	statusNoSuchFile         = 0xC000000F
	statusObjectNameNotFound = 0xC0000034
	statusObjectNameExists   = 0xC0000035
	statusObjectPathNotFound = 0xC000003A
	statusDirectoryNotEmpty  = 0xC0000101
)

// ErrNotEmpty is returned by LocalStore.Remove for a folder with children.
var ErrNotEmpty = errors.New("directory not empty")

// Connection failure reasons. Use errors.Is against a *ConnectionError.
var (
	ErrServerUnreachable = errors.New("server is not responding")
	ErrConnectFailed     = errors.New("could not establish a session")
	ErrAuthFailed        = errors.New("server authentication failed")
	ErrShareList         = errors.New("could not retrieve server shares list")
	ErrShareNotFound     = errors.New("network share not found on the server")
	ErrTreeConnect       = errors.New("could not connect to the file share")
)

// ConnectionError is a fatal failure while establishing a session.
type ConnectionError struct {
	Reason error
	Server string
	Share  string
	Err    error
}

func (e *ConnectionError) Error() string {
	target := e.Server
	if e.Share != "" {
		target = fmt.Sprintf(`\\%s\%s`, e.Server, e.Share)
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Reason, target)
	}
	return fmt.Sprintf("%s: %s: %v", e.Reason, target, e.Err)
}

// Unwrap exposes both the reason sentinel and the underlying cause.
func (e *ConnectionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Err}
}

// IsNotExist reports whether err means the target is absent, for both local
// errors and SMB status responses.
func IsNotExist(err error) bool {
	if err == nil {
		return false
	}
	if os.IsNotExist(err) || errors.Is(err, fs.ErrNotExist) {
		return true
	}
	var re *smb2.ResponseError
	if errors.As(err, &re) {
		switch re.Code {
		case statusNoSuchFile, statusObjectNameNotFound, statusObjectPathNotFound:
			return true
		}
	}
	return false
}

// IsExist reports whether err means the target is already present.
func IsExist(err error) bool {
	if err == nil {
		return false
	}
	if os.IsExist(err) || errors.Is(err, fs.ErrExist) {
		return true
	}
	var re *smb2.ResponseError
	return errors.As(err, &re) && re.Code == statusObjectNameExists
}

// IsNotEmpty reports whether err means a folder could not be removed because
// it still has children.
func IsNotEmpty(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotEmpty) || errors.Is(err, syscall.ENOTEMPTY) {
		return true
	}
	var re *smb2.ResponseError
	return errors.As(err, &re) && re.Code == statusDirectoryNotEmpty
}
