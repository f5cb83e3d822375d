//go:build darwin || dragonfly || freebsd || netbsd || openbsd

package sys

import (
	"golang.org/x/sys/unix"
	"runtime"
	"sync"
)

var (
	somaxconn   = unix.SOMAXCONN
	backlogOnce = sync.Once{}
)

func MaxListenerBacklog() int {
	backlogOnce.Do(func() {
		var (
			n   uint32
			err error
		)
		switch runtime.GOOS {
		case "darwin", "freebsd":
			n, err = unix.SysctlUint32("kern.ipc.somaxconn")
			break
		case "netbsd":
			// NOTE: NetBSD has no somaxconn-like kernel state so far
			return
		case "openbsd":
			n, err = unix.SysctlUint32("kern.somaxconn")
			break
		default:
			return
		}
		if n == 0 || err != nil {
			return
		}
		if n > 1<<16-1 {
			n = 1<<16 - 1
		}
		somaxconn = int(n)
	})
	return somaxconn
}
