package rsock

import (
	"github.com/brickingsoft/errors"
)

var (
	ErrInvalidArgument = errors.Define("invalid argument")
	ErrClosed          = errors.Define("session closed")
	ErrCanceled        = errors.Define("session canceled")
	ErrTimeout         = errors.Define("timeout")
	ErrVetoed          = errors.Define("transition vetoed by callback")
	ErrFamilyMismatch  = errors.Define("no local address of the remote family")
	ErrNotConnected    = errors.Define("connect did not complete")
	ErrManagerClosed   = errors.Define("manager closed")
)

func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed) || errors.Is(err, ErrManagerClosed)
}

const (
	errMetaPkgKey = "pkg"
	errMetaPkgVal = "rsock"
)

const (
	errMetaOpKey      = "op"
	errMetaOpOpen     = "open"
	errMetaOpConnect  = "connect"
	errMetaOpListen   = "listen"
	errMetaOpAccept   = "accept"
	errMetaOpDial     = "dial"
	errMetaOpSnapshot = "snapshot"
)

const (
	errMetaStateKey   = "state"
	errMetaAddressKey = "address"
)

func newError(op string, msg string, cause error) error {
	return errors.New(
		msg,
		errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
		errors.WithMeta(errMetaOpKey, op),
		errors.WithWrap(cause),
	)
}

func newStateError(op string, state State, address string, cause error) error {
	return errors.New(
		op+" failed",
		errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
		errors.WithMeta(errMetaOpKey, op),
		errors.WithMeta(errMetaStateKey, state.String()),
		errors.WithMeta(errMetaAddressKey, address),
		errors.WithWrap(cause),
	)
}
