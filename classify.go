package rsock

import (
	"errors"
	"golang.org/x/sys/unix"
)

// Outcome is the reading of one connect(2) result.
type Outcome uint8

const (
	OutcomeConnected Outcome = iota
	OutcomePending
	OutcomeRemoteError
	OutcomeLocalError
	OutcomeSysError
	// OutcomeCheckSocketError means connect(2) no longer carries the reason,
	// it has to be read from SO_ERROR.
	OutcomeCheckSocketError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeConnected:
		return "connected"
	case OutcomePending:
		return "pending"
	case OutcomeRemoteError:
		return "remote_error"
	case OutcomeLocalError:
		return "local_error"
	case OutcomeCheckSocketError:
		return "check_socket_error"
	default:
		return "sys_error"
	}
}

// State maps a final outcome to the session state it produces.
func (o Outcome) State() State {
	switch o {
	case OutcomeConnected:
		return Connected
	case OutcomeRemoteError:
		return RemoteError
	case OutcomeLocalError:
		return LocalError
	default:
		return SysError
	}
}

// ClassifyConnectCompletion reads the errno of a connect(2) issued on a
// socket with a connect in flight. platform is a runtime.GOOS value.
//
// Linux reports the pending failure from the second connect itself. The BSD
// family answers EINVAL once the attempt failed and keeps the cause in
// SO_ERROR.
func ClassifyConnectCompletion(errno unix.Errno, platform string) Outcome {
	switch errno {
	case 0, unix.EISCONN:
		return OutcomeConnected
	case unix.EINPROGRESS, unix.EALREADY, unix.EINTR, unix.EAGAIN:
		return OutcomePending
	case unix.EINVAL:
		if isBSD(platform) {
			return OutcomeCheckSocketError
		}
		return OutcomeSysError
	case unix.ECONNABORTED:
		// linux: SO_ERROR was consumed before the probe
		if platform == "linux" {
			return OutcomeCheckSocketError
		}
		return OutcomeSysError
	default:
		return classifyFailure(errno)
	}
}

func isBSD(platform string) bool {
	switch platform {
	case "darwin", "ios", "dragonfly", "freebsd", "netbsd", "openbsd":
		return true
	default:
		return false
	}
}

// classifyFailure maps the errno of a failed socket, bind, connect, listen
// or accept call.
func classifyFailure(errno unix.Errno) Outcome {
	switch errno {
	case unix.ECONNREFUSED, unix.ENETUNREACH, unix.EHOSTUNREACH, unix.ECONNRESET, unix.ETIMEDOUT, unix.EHOSTDOWN, unix.ENETDOWN:
		return OutcomeRemoteError
	case unix.EADDRINUSE, unix.EADDRNOTAVAIL:
		return OutcomeLocalError
	default:
		return OutcomeSysError
	}
}

// classifyErr is classifyFailure for wrapped errors.
func classifyErr(err error) State {
	return classifyFailure(errnoOf(err)).State()
}

// errnoOf digs the raw errno out of a wrapped system call error, 0 when
// err is nil and EIO when err carries no errno at all.
func errnoOf(err error) unix.Errno {
	if err == nil {
		return 0
	}
	var errno unix.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return unix.EIO
}

// isTransientAccept reports accept errors that leave the listener usable.
func isTransientAccept(err error) bool {
	switch errnoOf(err) {
	case unix.EAGAIN, unix.EINTR, unix.ECONNABORTED, unix.EPROTO:
		return true
	default:
		return false
	}
}
