//go:build linux

package sys

import (
	"errors"
	"golang.org/x/sys/unix"
	"os"
	"syscall"
)

// NewSocket creates a non-blocking close-on-exec socket.
func NewSocket(family int, sotype int, protocol int) (sock int, err error) {
	sock, err = unix.Socket(family, sotype|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, protocol)
	if err == nil {
		return
	}
	if !errors.Is(err, unix.EPROTONOSUPPORT) && !errors.Is(err, unix.EINVAL) {
		err = os.NewSyscallError("socket", err)
		return
	}
	// kernels without the type flags
	syscall.ForkLock.RLock()
	sock, err = unix.Socket(family, sotype, protocol)
	if err == nil {
		unix.CloseOnExec(sock)
	}
	syscall.ForkLock.RUnlock()
	if err != nil {
		err = os.NewSyscallError("socket", err)
		return
	}
	if err = unix.SetNonblock(sock, true); err != nil {
		_ = unix.Close(sock)
		err = os.NewSyscallError("setnonblock", err)
		return
	}
	return
}
