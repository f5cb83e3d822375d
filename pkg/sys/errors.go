package sys

import (
	"github.com/brickingsoft/errors"
)

var (
	ErrInvalidAddress   = errors.Define("address is invalid")
	ErrInvalidNetwork   = errors.Define("network is invalid")
	ErrNoCandidates     = errors.Define("no candidate address")
	ErrUnknownSockaddr  = errors.Define("type of sockaddr is invalid")
	ErrResolveCancelled = errors.Define("resolve cancelled")
)

const (
	errMetaPkgKey = "pkg"
	errMetaPkgVal = "sys"
)

const (
	errMetaOpKey     = "op"
	errMetaOpResolve = "resolve"
	errMetaOpSocket  = "socket"
	errMetaOpAccept  = "accept"
	errMetaOpAddr    = "addr"
)

const (
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

func newAddressError(op string, address string, cause error) error {
	return errors.New(
		op+" failed",
		errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
		errors.WithMeta(errMetaOpKey, op),
		errors.WithMeta(errMetaAddressKey, address),
		errors.WithWrap(cause),
	)
}
