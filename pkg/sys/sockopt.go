package sys

import (
	"golang.org/x/sys/unix"
	"os"
	"time"
)

func boolint(b bool) int {
	if b {
		return 1
	}
	return 0
}

func SetNonblock(fd int, nonblocking bool) error {
	return os.NewSyscallError("setnonblock", unix.SetNonblock(fd, nonblocking))
}

func SetReuseAddr(fd int, reuse bool) error {
	return os.NewSyscallError("setsockopt", unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, boolint(reuse)))
}

func SetNoDelay(fd int, noDelay bool) error {
	return os.NewSyscallError("setsockopt", unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, boolint(noDelay)))
}

// SetKeepAlive toggles SO_KEEPALIVE. A positive idle also sets the idle
// time before the first probe, rounded up to seconds.
func SetKeepAlive(fd int, keepalive bool, idle time.Duration) error {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, boolint(keepalive)); err != nil {
		return os.NewSyscallError("setsockopt", err)
	}
	if !keepalive || idle <= 0 {
		return nil
	}
	secs := int((idle + time.Second - 1) / time.Second)
	return os.NewSyscallError("setsockopt", setKeepAliveIdle(fd, secs))
}

func SetIPv6Only(fd int, only bool) error {
	return os.NewSyscallError("setsockopt", unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, boolint(only)))
}

func SetBroadcast(fd int, broadcast bool) error {
	return os.NewSyscallError("setsockopt", unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_BROADCAST, boolint(broadcast)))
}

// SocketError reads and clears SO_ERROR. A pending error is returned as a
// bare unix.Errno.
func SocketError(fd int) (errno unix.Errno, err error) {
	n, getErr := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if getErr != nil {
		err = os.NewSyscallError("getsockopt", getErr)
		return
	}
	errno = unix.Errno(n)
	return
}
