// Package netutil expands target specifications into base URLs.
package netutil

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// maxHosts caps CIDR expansion so a typo like /8 does not queue millions of
// targets.
const maxHosts = 1 << 16

// ExpandTargets turns a CIDR range (or single IP) and a comma-separated port
// list into base URLs. Network and broadcast addresses are skipped for IPv4
// ranges larger than /31.
func ExpandTargets(cidr, portsStr, scheme string) ([]string, error) {
	if scheme == "" {
		scheme = "http"
	}
	prefix, err := netip.ParsePrefix(strings.TrimSpace(cidr))
	if err != nil {
		addr, aerr := netip.ParseAddr(strings.TrimSpace(cidr))
		if aerr != nil {
			return nil, fmt.Errorf("invalid CIDR or IP: %q", cidr)
		}
		prefix = netip.PrefixFrom(addr, addr.BitLen())
	}
	prefix = prefix.Masked()

	ports, err := parsePorts(portsStr)
	if err != nil {
		return nil, err
	}
	if len(ports) == 0 {
		ports = []int{defaultPort(scheme)}
	}

	hostBits := prefix.Addr().BitLen() - prefix.Bits()
	if hostBits > 16 {
		return nil, fmt.Errorf("CIDR %s expands to more than %d hosts", prefix, maxHosts)
	}
	skipEdges := prefix.Addr().Is4() && hostBits > 1
	last := lastAddr(prefix)

	var urls []string
	for ip := prefix.Addr(); prefix.Contains(ip); ip = ip.Next() {
		if skipEdges && (ip == prefix.Addr() || ip == last) {
			if ip == last {
				break
			}
			continue
		}
		host := ip.String()
		for _, port := range ports {
			if port == defaultPort(scheme) {
				urls = append(urls, scheme+"://"+hostLiteral(ip, host))
			} else {
				urls = append(urls, scheme+"://"+netip.AddrPortFrom(ip, uint16(port)).String())
			}
		}
		if ip == last {
			break
		}
	}
	return urls, nil
}

func hostLiteral(ip netip.Addr, host string) string {
	if ip.Is6() {
		return "[" + host + "]"
	}
	return host
}

func defaultPort(scheme string) int {
	if scheme == "https" {
		return 443
	}
	return 80
}

func parsePorts(s string) ([]int, error) {
	var ports []int
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 65535 {
			return nil, fmt.Errorf("invalid port %q", p)
		}
		ports = append(ports, n)
	}
	return ports, nil
}

func lastAddr(p netip.Prefix) netip.Addr {
	b := p.Addr().AsSlice()
	bits := p.Bits()
	for i := range b {
		for j := 0; j < 8; j++ {
			if i*8+j >= bits {
				b[i] |= 1 << (7 - j)
			}
		}
	}
	addr, _ := netip.AddrFromSlice(b)
	return addr
}
