//go:build linux

package sys

import (
	"golang.org/x/sys/unix"
	"os"
)

// Accept takes one pending connection off the listener. The child is
// non-blocking and close-on-exec. The raw errno is kept in the returned
// os.SyscallError, callers classify it.
func Accept(fd int) (sock int, sa unix.Sockaddr, err error) {
	sock, sa, err = unix.Accept4(fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		sock = -1
		err = os.NewSyscallError("accept4", err)
		return
	}
	return
}
