package reactor

import (
	"github.com/brickingsoft/errors"
)

var (
	ErrInvalidArgument   = errors.Define("invalid argument")
	ErrAlreadyRegistered = errors.Define("fd is already registered")
	ErrNotRegistered     = errors.Define("fd is not registered")
	ErrFdOutOfRange      = errors.Define("fd is out of the poller range")
	ErrTimerNotQueued    = errors.Define("timer is not queued")
	ErrTaskNotFound      = errors.Define("task is not registered")
	ErrDestroyed         = errors.Define("reactor was destroyed")
)

func IsDestroyed(err error) bool {
	return errors.Is(err, ErrDestroyed)
}

func IsAlreadyRegistered(err error) bool {
	return errors.Is(err, ErrAlreadyRegistered)
}

func IsNotRegistered(err error) bool {
	return errors.Is(err, ErrNotRegistered)
}

const (
	errMetaPkgKey = "pkg"
	errMetaPkgVal = "reactor"
)

const (
	errMetaOpKey      = "op"
	errMetaOpNew      = "new"
	errMetaOpPoll     = "poll"
	errMetaOpRegister = "register"
	errMetaOpSignal   = "signal"
	errMetaOpDestroy  = "destroy"
)

func newError(op string, msg string, cause error) error {
	return errors.New(
		msg,
		errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
		errors.WithMeta(errMetaOpKey, op),
		errors.WithWrap(cause),
	)
}
