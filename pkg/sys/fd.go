package sys

import (
	"golang.org/x/sys/unix"
	"net"
	"os"
)

// Fd is an owned socket descriptor with its resolved addressing.
type Fd struct {
	sock   int
	family int
	sotype int
	proto  int
	net    string
	laddr  net.Addr
	raddr  net.Addr
}

func NewFd(network string, sock int, family int, sotype int, proto int) (fd *Fd) {
	fd = &Fd{
		sock:   sock,
		family: family,
		sotype: sotype,
		proto:  proto,
		net:    network,
	}
	return
}

// OpenFd creates the socket matching the candidate.
func OpenFd(c Candidate) (fd *Fd, err error) {
	sock, sockErr := NewSocket(c.Family, c.SocketType, c.Protocol)
	if sockErr != nil {
		err = sockErr
		return
	}
	fd = NewFd(c.Network, sock, c.Family, c.SocketType, c.Protocol)
	return
}

func (fd *Fd) Name() string {
	var ls, rs string
	if fd.laddr != nil {
		ls = fd.laddr.String()
	}
	if fd.raddr != nil {
		rs = fd.raddr.String()
	}
	return fd.net + ":" + ls + "->" + rs
}

// Socket returns the descriptor, -1 once closed or detached.
func (fd *Fd) Socket() int {
	return fd.sock
}

func (fd *Fd) Family() int {
	return fd.family
}

func (fd *Fd) SocketType() int {
	return fd.sotype
}

func (fd *Fd) Protocol() int {
	return fd.proto
}

func (fd *Fd) Net() string {
	return fd.net
}

func (fd *Fd) LocalAddr() net.Addr {
	return fd.laddr
}

func (fd *Fd) SetLocalAddr(addr net.Addr) {
	fd.laddr = addr
}

func (fd *Fd) LoadLocalAddr() (err error) {
	sa, saErr := unix.Getsockname(fd.sock)
	if saErr != nil {
		err = os.NewSyscallError("getsockname", saErr)
		return
	}
	fd.laddr = SockaddrToAddr(fd.net, sa)
	return
}

func (fd *Fd) RemoteAddr() net.Addr {
	return fd.raddr
}

func (fd *Fd) SetRemoteAddr(addr net.Addr) {
	fd.raddr = addr
}

func (fd *Fd) LoadRemoteAddr() (err error) {
	sa, saErr := unix.Getpeername(fd.sock)
	if saErr != nil {
		err = os.NewSyscallError("getpeername", saErr)
		return
	}
	fd.raddr = SockaddrToAddr(fd.net, sa)
	return
}

func (fd *Fd) Bind(sa unix.Sockaddr) error {
	if err := unix.Bind(fd.sock, sa); err != nil {
		return os.NewSyscallError("bind", err)
	}
	return nil
}

// Connect issues connect(2) once. EINPROGRESS and friends come back as
// errors too, the caller decides what they mean.
func (fd *Fd) Connect(sa unix.Sockaddr) error {
	if err := unix.Connect(fd.sock, sa); err != nil {
		return os.NewSyscallError("connect", err)
	}
	return nil
}

func (fd *Fd) Listen(backlog int) error {
	if backlog <= 0 {
		backlog = MaxListenerBacklog()
	}
	if err := unix.Listen(fd.sock, backlog); err != nil {
		return os.NewSyscallError("listen", err)
	}
	return nil
}

// Detach gives up ownership. Close becomes a no-op afterward.
func (fd *Fd) Detach() int {
	sock := fd.sock
	fd.sock = -1
	return sock
}

func (fd *Fd) Close() error {
	if fd.sock < 0 {
		return nil
	}
	sock := fd.sock
	fd.sock = -1
	return os.NewSyscallError("close", unix.Close(sock))
}
