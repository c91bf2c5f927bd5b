package netacl

// Package netacl implements the IPv4 network ACL restricting which caller
// addresses may use the authorization endpoints.

import (
	"fmt"
	"net/netip"
	"strings"
)

// rule is one parsed allow entry.
type rule interface {
	allows(ip netip.Addr) bool
}

type hostRule struct {
	addr netip.Addr
}

func (r hostRule) allows(ip netip.Addr) bool { return ip == r.addr }

type cidrRule struct {
	prefix netip.Prefix
}

func (r cidrRule) allows(ip netip.Addr) bool { return r.prefix.Contains(ip) }

type rangeRule struct {
	start, end netip.Addr
}

func (r rangeRule) allows(ip netip.Addr) bool {
	return ip.Compare(r.start) >= 0 && ip.Compare(r.end) <= 0
}

// ACL is an ordered IPv4 allow-list supporting CIDR blocks, single hosts,
// and explicit ranges. It is immutable after Parse and safe for concurrent
// use without synchronization.
type ACL struct {
	allowAll bool
	rules    []rule
}

// Parse builds an ACL from a comma-separated configuration string. Tokens
// are classified independently:
//
//   - "*", "0.0.0.0" or "0.0.0.0/0" allow every address (an insecure default
//     intended for non-production use);
//   - a token containing "/" is a CIDR block;
//   - a token containing "|" is an inclusive "start|end" range;
//   - anything else is a single host.
//
// An empty or all-whitespace configuration is equivalent to allow-all, which
// operators must lock down for production. Unparseable tokens fail here, at
// configuration load, never per request.
func Parse(raw string) (*ACL, error) {
	acl := &ACL{}
	if strings.TrimSpace(raw) == "" {
		acl.allowAll = true
		return acl, nil
	}

	for _, token := range strings.Split(raw, ",") {
		entry := strings.TrimSpace(token)
		if entry == "" {
			continue
		}

		switch {
		case entry == "*" || entry == "0.0.0.0" || entry == "0.0.0.0/0":
			acl.allowAll = true
		case strings.Contains(entry, "|"):
			r, err := parseRange(entry)
			if err != nil {
				return nil, err
			}
			acl.rules = append(acl.rules, r)
		case strings.Contains(entry, "/"):
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid CIDR entry %q: %w", entry, err)
			}
			if !prefix.Addr().Is4() {
				return nil, fmt.Errorf("invalid CIDR entry %q: only IPv4 is supported", entry)
			}
			acl.rules = append(acl.rules, cidrRule{prefix: prefix.Masked()})
		default:
			addr, err := parseIPv4(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid host entry %q: %w", entry, err)
			}
			acl.rules = append(acl.rules, hostRule{addr: addr})
		}
	}

	if acl.allowAll {
		// Allow-all short-circuits matching; drop the remaining rules.
		acl.rules = nil
	}
	return acl, nil
}

func parseRange(entry string) (rule, error) {
	startRaw, endRaw, _ := strings.Cut(entry, "|")
	start, err := parseIPv4(strings.TrimSpace(startRaw))
	if err != nil {
		return nil, fmt.Errorf("invalid range entry %q: %w", entry, err)
	}
	end, err := parseIPv4(strings.TrimSpace(endRaw))
	if err != nil {
		return nil, fmt.Errorf("invalid range entry %q: %w", entry, err)
	}
	if end.Compare(start) < 0 {
		start, end = end, start
	}
	return rangeRule{start: start, end: end}, nil
}

func parseIPv4(raw string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return netip.Addr{}, err
	}
	addr = addr.Unmap()
	if !addr.Is4() {
		return netip.Addr{}, fmt.Errorf("%q is not an IPv4 address", raw)
	}
	return addr, nil
}

// AllowAll reports whether the ACL admits every address.
func (a *ACL) AllowAll() bool { return a.allowAll }

// Len returns the number of parsed rules (zero for allow-all).
func (a *ACL) Len() int { return len(a.rules) }

// Allows evaluates the rules in order and returns true on the first match.
func (a *ACL) Allows(ip netip.Addr) bool {
	if a.allowAll {
		return true
	}
	ip = ip.Unmap()
	if !ip.Is4() {
		return false
	}
	for _, r := range a.rules {
		if r.allows(ip) {
			return true
		}
	}
	return false
}

// AllowsHost parses the host string and evaluates it against the ACL.
// Non-IPv4 or unparseable hosts are rejected.
func (a *ACL) AllowsHost(host string) bool {
	if a.allowAll {
		return true
	}
	addr, err := parseIPv4(strings.TrimSpace(host))
	if err != nil {
		return false
	}
	return a.Allows(addr)
}
