//go:build linux

package sys

import (
	"bufio"
	"github.com/brickingsoft/rsock/pkg/kernel"
	"golang.org/x/sys/unix"
	"os"
	"strconv"
	"strings"
	"sync"
)

var (
	somaxconn   = unix.SOMAXCONN
	backlogOnce = sync.Once{}
)

// MaxListenerBacklog reads net.core.somaxconn once. It falls back to
// SOMAXCONN when the file is unreadable.
func MaxListenerBacklog() int {
	backlogOnce.Do(func() {
		fd, err := os.Open("/proc/sys/net/core/somaxconn")
		if err != nil {
			return
		}
		defer func() {
			_ = fd.Close()
		}()
		rd := bufio.NewReader(fd)
		l, readLineErr := rd.ReadString('\n')
		if readLineErr != nil && l == "" {
			return
		}
		fields := strings.Fields(l)
		if len(fields) == 0 {
			return
		}
		n, parseErr := strconv.Atoi(fields[0])
		if parseErr != nil || n <= 0 {
			return
		}
		somaxconn = maxAckBacklog(n)
	})
	return somaxconn
}

// maxAckBacklog caps n to the width of sk_max_ack_backlog, 16 bits before 4.1.
func maxAckBacklog(n int) int {
	size := 16
	if kernel.Enable(4, 1, 0) {
		size = 32
	}
	var maxAck uint = 1<<size - 1
	if uint(n) > maxAck {
		n = int(maxAck)
	}
	return n
}
