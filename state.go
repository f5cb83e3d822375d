package rsock

import (
	"strconv"
)

// State is the outcome delivered to a session Callback.
type State int

const (
	SysError State = iota
	RemoteError
	LocalError
	Timeout
	Socket
	Connected
	Ready
	Closing
)

func (s State) String() string {
	switch s {
	case SysError:
		return "sys_error"
	case RemoteError:
		return "remote_error"
	case LocalError:
		return "local_error"
	case Timeout:
		return "timeout"
	case Socket:
		return "socket"
	case Connected:
		return "connected"
	case Ready:
		return "ready"
	case Closing:
		return "closing"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// Terminal reports whether the session is released after delivering s.
func (s State) Terminal() bool {
	switch s {
	case SysError, RemoteError, LocalError, Timeout, Connected:
		return true
	default:
		return false
	}
}

// Failed reports whether s is one of the failure states.
func (s State) Failed() bool {
	return s >= SysError && s <= Timeout
}

type RoleKind uint8

const (
	RoleStandalone RoleKind = iota
	RoleChild
)

// Role tells whether a session was opened by the caller or accepted by a
// listening session, in which case Listener is the id of that session.
type Role struct {
	Kind     RoleKind
	Listener uint64
}

func Standalone() Role {
	return Role{Kind: RoleStandalone}
}

func ChildOf(listener uint64) Role {
	return Role{Kind: RoleChild, Listener: listener}
}

func (r Role) String() string {
	if r.Kind == RoleChild {
		return "child(" + strconv.FormatUint(r.Listener, 10) + ")"
	}
	return "standalone"
}
