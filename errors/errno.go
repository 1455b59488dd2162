// This is a compatibility shim mapping the engine's named errors onto
// POSIX errno codes, the way FUSE callbacks are expected to report failure.
// Only the dispatch package ever needs the numeric code; everywhere else in
// this module these are used and compared as plain Go errors.

package errors

import (
	"fmt"
	"syscall"
)

type DiskoError string

// Catalog of sentinel errors used by this engine. Each corresponds to one
// entry in the error taxonomy: NOT_FOUND, EXISTS, IS_DIR, NOT_DIR,
// NAME_TOO_LONG, OUT_OF_SPACE, IO_ERROR, plus a couple of internal
// conditions (ErrAlreadyFree, ErrTableFull) that collapse onto OUT_OF_SPACE
// / are otherwise non-fatal at the callback boundary.
const ErrNotFound = DiskoError("No such file or directory")
const ErrExists = DiskoError("File exists")
const ErrIsADirectory = DiskoError("Is a directory")
const ErrNotADirectory = DiskoError("Not a directory")
const ErrNameTooLong = DiskoError("File name too long")
const ErrNoSpaceOnDevice = DiskoError("No space left on device")
const ErrTableFull = DiskoError("Inode table is full")
const ErrIOFailed = DiskoError("Input/output error")
const ErrAlreadyFree = DiskoError("Block is already free")
const ErrInvalidArgument = DiskoError("Invalid argument")
const ErrNotSupported = DiskoError("Operation not supported")

// errnoCodes maps each sentinel to the POSIX errno FUSE expects to see
// negated in a callback's return value.
var errnoCodes = map[DiskoError]syscall.Errno{
	ErrNotFound:        syscall.ENOENT,
	ErrExists:          syscall.EEXIST,
	ErrIsADirectory:    syscall.EISDIR,
	ErrNotADirectory:   syscall.ENOTDIR,
	ErrNameTooLong:     syscall.ENAMETOOLONG,
	ErrNoSpaceOnDevice: syscall.ENOSPC,
	ErrTableFull:       syscall.ENOSPC,
	ErrIOFailed:        syscall.EIO,
	ErrAlreadyFree:     syscall.EALREADY,
	ErrInvalidArgument: syscall.EINVAL,
	ErrNotSupported:    syscall.ENOTSUP,
}

func (e DiskoError) Error() string {
	return string(e)
}

// Errno returns the POSIX errno code this sentinel corresponds to, or
// syscall.EIO for a DiskoError value that is not one of the named sentinels
// above.
func (e DiskoError) Errno() syscall.Errno {
	if code, ok := errnoCodes[e]; ok {
		return code
	}
	return syscall.EIO
}

func (e DiskoError) WithMessage(message string) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", e.Error(), message),
		originalError: e,
	}
}

func (e DiskoError) WrapError(err error) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: err,
	}
}

func (e DiskoError) Unwrap() error {
	return nil
}

// Errno extracts the POSIX errno code from any error produced by this
// module, walking Unwrap() chains until it finds a DiskoError. If none is
// found (the error didn't originate here), it returns syscall.EIO.
func Errno(err error) syscall.Errno {
	for err != nil {
		if disko, ok := err.(DiskoError); ok {
			return disko.Errno()
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = unwrapper.Unwrap()
	}
	return syscall.EIO
}
