package sys

import (
	"context"
	"golang.org/x/sys/unix"
	"net"
	"net/netip"
	"strconv"
	"strings"
)

// Candidate is one resolved address a session may bind or connect to.
type Candidate struct {
	Network    string
	Family     int
	SocketType int
	Protocol   int
	Addr       net.Addr
	Sockaddr   unix.Sockaddr
}

func (c Candidate) String() string {
	if c.Addr == nil {
		return c.Network + ":<nil>"
	}
	return c.Network + ":" + c.Addr.String()
}

// NewCandidate derives the socket triple and the sockaddr of addr.
func NewCandidate(network string, addr net.Addr) (c Candidate, err error) {
	sotype, proto, typeErr := SocketType(network)
	if typeErr != nil {
		err = typeErr
		return
	}
	family := unix.AF_UNSPEC
	switch a := addr.(type) {
	case *net.TCPAddr:
		family = Family(a.IP)
		break
	case *net.UDPAddr:
		family = Family(a.IP)
		break
	case *net.UnixAddr:
		family = unix.AF_UNIX
		break
	default:
		err = ErrInvalidAddress
		return
	}
	sa, saErr := AddrToSockaddr(addr)
	if saErr != nil {
		err = saErr
		return
	}
	c = Candidate{
		Network:    network,
		Family:     family,
		SocketType: sotype,
		Protocol:   proto,
		Addr:       addr,
		Sockaddr:   sa,
	}
	return
}

// Resolver turns an endpoint into an ordered list of candidates.
// passive is set for addresses that will be bound rather than connected to.
type Resolver interface {
	Resolve(ctx context.Context, network string, address string, passive bool) ([]Candidate, error)
}

// DefaultResolver resolves literal addresses directly and host names with
// net.Resolver. The address may list several host:port values separated by
// commas, their candidates are tried in that order.
type DefaultResolver struct {
	Resolver *net.Resolver
}

func (r *DefaultResolver) Resolve(ctx context.Context, network string, address string, passive bool) (candidates []Candidate, err error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = newAddressError(errMetaOpResolve, address, ErrResolveCancelled)
		return
	}
	if _, _, typeErr := SocketType(network); typeErr != nil {
		err = newAddressError(errMetaOpResolve, address, typeErr)
		return
	}
	switch NetworkProto(network) {
	case "unix", "unixgram", "unixpacket":
		addr, addrErr := net.ResolveUnixAddr(network, address)
		if addrErr != nil {
			err = newAddressError(errMetaOpResolve, address, addrErr)
			return
		}
		c, cErr := NewCandidate(network, addr)
		if cErr != nil {
			err = newAddressError(errMetaOpResolve, address, cErr)
			return
		}
		candidates = []Candidate{c}
		return
	default:
		break
	}
	for _, part := range strings.Split(address, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		resolved, resolveErr := r.resolveOne(ctx, network, part, passive)
		if resolveErr != nil {
			err = newAddressError(errMetaOpResolve, part, resolveErr)
			return
		}
		candidates = append(candidates, resolved...)
	}
	if len(candidates) == 0 {
		err = newAddressError(errMetaOpResolve, address, ErrNoCandidates)
		return
	}
	return
}

func (r *DefaultResolver) resolveOne(ctx context.Context, network string, address string, passive bool) (candidates []Candidate, err error) {
	host, service, splitErr := net.SplitHostPort(address)
	if splitErr != nil {
		err = splitErr
		return
	}
	resolver := r.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	port, portErr := strconv.Atoi(service)
	if portErr != nil {
		if port, err = resolver.LookupPort(ctx, NetworkProto(network), service); err != nil {
			return
		}
	}
	if port < 0 || port > 65535 {
		err = ErrInvalidAddress
		return
	}

	var ips []netip.Addr
	if host == "" {
		ips = []netip.Addr{defaultHost(network, passive)}
	} else if ip, parseErr := netip.ParseAddr(host); parseErr == nil {
		ips = []netip.Addr{ip}
	} else {
		looked, lookupErr := resolver.LookupNetIP(ctx, ipNetwork(network), host)
		if lookupErr != nil {
			err = lookupErr
			return
		}
		ips = looked
	}

	for _, ip := range ips {
		if !matchFamily(network, ip) {
			continue
		}
		ap := netip.AddrPortFrom(ip.Unmap(), uint16(port))
		var addr net.Addr
		switch NetworkProto(network) {
		case "udp", "udp4", "udp6":
			addr = net.UDPAddrFromAddrPort(ap)
			break
		default:
			addr = net.TCPAddrFromAddrPort(ap)
			break
		}
		c, cErr := NewCandidate(network, addr)
		if cErr != nil {
			err = cErr
			return
		}
		candidates = append(candidates, c)
	}
	if len(candidates) == 0 {
		err = ErrNoCandidates
	}
	return
}

func defaultHost(network string, passive bool) netip.Addr {
	v6 := strings.HasSuffix(NetworkProto(network), "6")
	switch {
	case passive && v6:
		return netip.IPv6Unspecified()
	case passive:
		return netip.IPv4Unspecified()
	case v6:
		return netip.IPv6Loopback()
	default:
		return netip.AddrFrom4([4]byte{127, 0, 0, 1})
	}
}

func ipNetwork(network string) string {
	proto := NetworkProto(network)
	switch proto[len(proto)-1] {
	case '4':
		return "ip4"
	case '6':
		return "ip6"
	default:
		return "ip"
	}
}

func matchFamily(network string, ip netip.Addr) bool {
	switch ipNetwork(network) {
	case "ip4":
		return ip.Unmap().Is4()
	case "ip6":
		return ip.Is6() && !ip.Is4In6()
	default:
		return ip.IsValid()
	}
}

// StaticResolver answers from a fixed table keyed by address.
type StaticResolver map[string][]Candidate

func (r StaticResolver) Resolve(ctx context.Context, _ string, address string, _ bool) ([]Candidate, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, newAddressError(errMetaOpResolve, address, ErrResolveCancelled)
	}
	candidates, exist := r[address]
	if !exist || len(candidates) == 0 {
		return nil, newAddressError(errMetaOpResolve, address, ErrNoCandidates)
	}
	return append([]Candidate(nil), candidates...), nil
}

// ParseCandidates parses a comma separated list of literal host:port
// values without any name lookup.
func ParseCandidates(network string, list string) (candidates []Candidate, err error) {
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		ap, parseErr := netip.ParseAddrPort(part)
		if parseErr != nil {
			err = newAddressError(errMetaOpResolve, part, parseErr)
			return
		}
		var addr net.Addr
		switch NetworkProto(network) {
		case "udp", "udp4", "udp6":
			addr = net.UDPAddrFromAddrPort(ap)
			break
		default:
			addr = net.TCPAddrFromAddrPort(ap)
			break
		}
		c, cErr := NewCandidate(network, addr)
		if cErr != nil {
			err = newAddressError(errMetaOpResolve, part, cErr)
			return
		}
		candidates = append(candidates, c)
	}
	if len(candidates) == 0 {
		err = newAddressError(errMetaOpResolve, list, ErrNoCandidates)
	}
	return
}
