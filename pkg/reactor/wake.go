package reactor

import (
	"errors"
	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
	"os"
	"sync"
)

// wakePipe makes a blocked multiplexer wait return. It is the only part of
// the reactor written from other goroutines.
type wakePipe struct {
	mu     sync.Mutex
	rfd    int
	wfd    int
	closed bool
}

func newWakePipe() (p *wakePipe, err error) {
	var fds [2]int
	if err = unix.Pipe(fds[:]); err != nil {
		err = os.NewSyscallError("pipe", err)
		return
	}
	for _, fd := range fds {
		unix.CloseOnExec(fd)
		if err = unix.SetNonblock(fd, true); err != nil {
			_ = unix.Close(fds[0])
			_ = unix.Close(fds[1])
			err = os.NewSyscallError("setnonblock", err)
			return
		}
	}
	p = &wakePipe{
		rfd: fds[0],
		wfd: fds[1],
	}
	return
}

func (p *wakePipe) wakeup() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	_, err := unix.Write(p.wfd, []byte{1})
	if err != nil && !errors.Is(err, unix.EAGAIN) {
		return os.NewSyscallError("write", err)
	}
	return nil
}

func (p *wakePipe) drain() {
	var buf [64]byte
	for {
		n, err := unix.Read(p.rfd, buf[:])
		if err != nil || n < len(buf) {
			return
		}
	}
}

func (p *wakePipe) close() (err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	err = multierr.Append(
		os.NewSyscallError("close", unix.Close(p.rfd)),
		os.NewSyscallError("close", unix.Close(p.wfd)),
	)
	return
}

// Wakeup makes a blocked Tick return early. It is safe from any goroutine.
func (r *Reactor) Wakeup() error {
	return r.wake.wakeup()
}
