//go:build darwin || dragonfly || freebsd || netbsd || openbsd

package sys

import (
	"golang.org/x/sys/unix"
	"os"
	"syscall"
)

func NewSocket(family int, sotype int, protocol int) (sock int, err error) {
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
