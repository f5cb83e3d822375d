//go:build darwin || dragonfly || freebsd || netbsd || openbsd

package sys

import (
	"golang.org/x/sys/unix"
	"os"
	"syscall"
)

func Accept(fd int) (sock int, sa unix.Sockaddr, err error) {
	syscall.ForkLock.RLock()
	sock, sa, err = unix.Accept(fd)
	if err == nil {
		unix.CloseOnExec(sock)
	}
	syscall.ForkLock.RUnlock()
	if err != nil {
		sock = -1
		err = os.NewSyscallError("accept", err)
		return
	}
	if err = unix.SetNonblock(sock, true); err != nil {
		_ = unix.Close(sock)
		sock = -1
		err = os.NewSyscallError("setnonblock", err)
		return
	}
	return
}
