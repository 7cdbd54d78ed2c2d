package types

import (
	"fmt"
	"net/netip"
	"strings"
)

// IPAddr is an extension value holding an IP address or CIDR range. A bare
// address parses as a single-address range.
type IPAddr struct {
	prefix netip.Prefix
}

// ParseIPAddr parses an IPv4/IPv6 address or CIDR network.
func ParseIPAddr(s string) (IPAddr, error) {
	if strings.Contains(s, "/") {
		prefix, err := netip.ParsePrefix(s)
		if err != nil {
			return IPAddr{}, fmt.Errorf("invalid ipaddr %q: %w", s, err)
		}
		return IPAddr{prefix: prefix}, nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return IPAddr{}, fmt.Errorf("invalid ipaddr %q: %w", s, err)
	}
	return IPAddr{prefix: netip.PrefixFrom(addr, addr.BitLen())}, nil
}

func (ip IPAddr) TypeName() string { return "ipaddr" }

// Equal reports whether both values cover the same address range.
func (ip IPAddr) Equal(other Value) bool {
	o, ok := other.(IPAddr)
	return ok && ip.prefix == o.prefix
}

// MarshalCedar renders the value as an ip(...) constructor call.
func (ip IPAddr) MarshalCedar() string {
	return `ip(` + QuoteString(ip.String()) + `)`
}

// String renders the address, with a prefix length only for true ranges.
func (ip IPAddr) String() string {
	if ip.prefix.Bits() == ip.prefix.Addr().BitLen() {
		return ip.prefix.Addr().String()
	}
	return ip.prefix.String()
}

// IsIPv4 reports whether the address is IPv4.
func (ip IPAddr) IsIPv4() bool { return ip.prefix.Addr().Is4() }

// IsIPv6 reports whether the address is IPv6.
func (ip IPAddr) IsIPv6() bool { return ip.prefix.Addr().Is6() }

// IsLoopback reports whether the address is a loopback address.
func (ip IPAddr) IsLoopback() bool { return ip.prefix.Addr().IsLoopback() }

// IsMulticast reports whether the address is a multicast address.
func (ip IPAddr) IsMulticast() bool { return ip.prefix.Addr().IsMulticast() }

// InRange reports whether every address covered by ip falls inside the
// range covered by other. Address families never mix.
func (ip IPAddr) InRange(other IPAddr) bool {
	if ip.prefix.Addr().Is4() != other.prefix.Addr().Is4() {
		return false
	}
	return other.prefix.Contains(ip.prefix.Addr()) && ip.prefix.Bits() >= other.prefix.Bits()
}

func (ip IPAddr) isValue() {}
