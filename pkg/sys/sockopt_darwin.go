//go:build darwin

package sys

import (
	"golang.org/x/sys/unix"
)

func setKeepAliveIdle(fd int, secs int) error {
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPALIVE, secs)
}
