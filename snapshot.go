package rsock

import (
	"github.com/brickingsoft/rsock/pkg/sys"
	"net"
)

// Snapshot is the addressing of a live socket, taken when it connected or
// became ready. The receiving callback owns it.
type Snapshot struct {
	Network    string
	Family     int
	SocketType int
	Protocol   int
	Local      net.Addr
	Remote     net.Addr
}

func (snap *Snapshot) String() string {
	var ls, rs string
	if snap.Local != nil {
		ls = snap.Local.String()
	}
	if snap.Remote != nil {
		rs = snap.Remote.String()
	}
	return snap.Network + ":" + ls + "->" + rs
}

// takeSnapshot loads the local name and, when peer is set, the peer name
// of fd.
func takeSnapshot(fd *sys.Fd, peer bool) (snap *Snapshot, err error) {
	if err = fd.LoadLocalAddr(); err != nil {
		err = newError(errMetaOpSnapshot, "snapshot failed", err)
		return
	}
	if peer {
		if err = fd.LoadRemoteAddr(); err != nil {
			err = newError(errMetaOpSnapshot, "snapshot failed", err)
			return
		}
	}
	snap = &Snapshot{
		Network:    fd.Net(),
		Family:     fd.Family(),
		SocketType: fd.SocketType(),
		Protocol:   fd.Protocol(),
		Local:      fd.LocalAddr(),
		Remote:     fd.RemoteAddr(),
	}
	return
}
