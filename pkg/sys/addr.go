package sys

import (
	"golang.org/x/sys/unix"
	"net"
	"strings"
)

// NetworkProto strips the ":proto" suffix of ip networks.
func NetworkProto(network string) string {
	if colon := strings.IndexByte(network, ':'); colon > -1 {
		return network[:colon]
	}
	return network
}

// SocketType maps a network name to its socket type and protocol.
func SocketType(network string) (sotype int, proto int, err error) {
	switch NetworkProto(network) {
	case "tcp", "tcp4", "tcp6":
		sotype, proto = unix.SOCK_STREAM, unix.IPPROTO_TCP
		break
	case "udp", "udp4", "udp6":
		sotype, proto = unix.SOCK_DGRAM, unix.IPPROTO_UDP
		break
	case "unix":
		sotype = unix.SOCK_STREAM
		break
	case "unixgram":
		sotype = unix.SOCK_DGRAM
		break
	case "unixpacket":
		sotype = unix.SOCK_SEQPACKET
		break
	default:
		err = ErrInvalidNetwork
		break
	}
	return
}

// Family reports the address family of ip, AF_INET for v4 and v4-in-v6.
func Family(ip net.IP) int {
	if len(ip) == 0 || ip.To4() != nil {
		return unix.AF_INET
	}
	return unix.AF_INET6
}

func AddrToSockaddr(a net.Addr) (sa unix.Sockaddr, err error) {
	switch addr := a.(type) {
	case *net.TCPAddr:
		sa, err = ipToSockaddr(addr.IP, addr.Port, addr.Zone)
		return
	case *net.UDPAddr:
		sa, err = ipToSockaddr(addr.IP, addr.Port, addr.Zone)
		return
	case *net.IPAddr:
		sa, err = ipToSockaddr(addr.IP, 0, addr.Zone)
		return
	case *net.UnixAddr:
		sa = &unix.SockaddrUnix{
			Name: addr.Name,
		}
		return
	default:
		err = ErrInvalidAddress
		return
	}
}

func ipToSockaddr(ip net.IP, port int, zone string) (unix.Sockaddr, error) {
	if len(ip) == 0 {
		ip = net.IPv4zero
	}
	if ip4 := ip.To4(); ip4 != nil {
		sa4 := &unix.SockaddrInet4{
			Port: port,
		}
		copy(sa4.Addr[:], ip4)
		return sa4, nil
	}
	if len(ip) != net.IPv6len {
		return nil, ErrInvalidAddress
	}
	zoneId := uint32(0)
	if zone != "" {
		if ifi, ifiErr := net.InterfaceByName(zone); ifiErr == nil {
			zoneId = uint32(ifi.Index)
		}
	}
	sa6 := &unix.SockaddrInet6{
		Port:   port,
		ZoneId: zoneId,
	}
	copy(sa6.Addr[:], ip)
	return sa6, nil
}

// SockaddrToAddr converts sa into the net.Addr kind matching network.
// It returns nil for unknown sockaddr kinds.
func SockaddrToAddr(network string, sa unix.Sockaddr) (addr net.Addr) {
	proto := NetworkProto(network)
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		ip := append(net.IP{}, sa.Addr[:]...)
		switch proto {
		case "udp", "udp4", "udp6":
			addr = &net.UDPAddr{IP: ip, Port: sa.Port}
			break
		case "ip", "ip4", "ip6":
			addr = &net.IPAddr{IP: ip}
			break
		default:
			addr = &net.TCPAddr{IP: ip, Port: sa.Port}
			break
		}
	case *unix.SockaddrInet6:
		var zone string
		if sa.ZoneId != 0 {
			if ifi, err := net.InterfaceByIndex(int(sa.ZoneId)); err == nil {
				zone = ifi.Name
			}
		}
		ip := append(net.IP{}, sa.Addr[:]...)
		switch proto {
		case "udp", "udp4", "udp6":
			addr = &net.UDPAddr{IP: ip, Port: sa.Port, Zone: zone}
			break
		case "ip", "ip4", "ip6":
			addr = &net.IPAddr{IP: ip, Zone: zone}
			break
		default:
			addr = &net.TCPAddr{IP: ip, Port: sa.Port, Zone: zone}
			break
		}
	case *unix.SockaddrUnix:
		addr = &net.UnixAddr{Net: network, Name: sa.Name}
		break
	}
	return
}

func IsWildcard(addr net.Addr) bool {
	if addr == nil {
		return true
	}
	switch a := addr.(type) {
	case *net.TCPAddr:
		return a.IP == nil || a.IP.IsUnspecified()
	case *net.UDPAddr:
		return a.IP == nil || a.IP.IsUnspecified()
	case *net.IPAddr:
		return a.IP == nil || a.IP.IsUnspecified()
	case *net.UnixAddr:
		return a.Name == ""
	default:
		return false
	}
}
