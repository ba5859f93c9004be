package pki

import (
	"fmt"
	"net"
	"strings"

	"golang.org/x/net/idna"
)

// SANType is the kind of a subject alternative name entry.
type SANType string

const (
	SANTypeDNS SANType = "DNS"
	SANTypeIP  SANType = "IP"
)

// SANEntry is a single subject alternative name.
type SANEntry struct {
	Type  SANType
	Value string
}

// IP returns the entry's address in its shortest byte form, or nil if the
// entry is not a valid IP entry.
func (e SANEntry) IP() net.IP {
	if e.Type != SANTypeIP {
		return nil
	}
	ip := net.ParseIP(e.Value)
	if ip == nil {
		return nil
	}
	if v4 := ip.To4(); v4 != nil {
		return v4
	}
	return ip
}

func (e SANEntry) String() string {
	return string(e.Type) + ":" + e.Value
}

// SANList is an ordered list of subject alternative names without duplicates.
type SANList []SANEntry

// ParseSANList parses an extension value string such as
// "DNS:localhost, IP:127.0.0.1, IP:::1". Entry types are case insensitive.
// Repeated entries are dropped, keeping the first occurrence.
func ParseSANList(s string) (SANList, error) {
	var list SANList
	seen := make(map[SANEntry]struct{})

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		kind, value, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("%w: malformed SAN entry %q", ErrExtensionBuild, part)
		}
		value = strings.TrimSpace(value)
		if value == "" {
			return nil, fmt.Errorf("%w: empty SAN value in %q", ErrExtensionBuild, part)
		}

		var entry SANEntry
		switch SANType(strings.ToUpper(strings.TrimSpace(kind))) {
		case SANTypeDNS:
			name, err := toASCIIName(value)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid DNS name %q: %v", ErrExtensionBuild, value, err)
			}
			entry = SANEntry{Type: SANTypeDNS, Value: name}
		case SANTypeIP:
			ip := net.ParseIP(value)
			if ip == nil {
				return nil, fmt.Errorf("%w: invalid IP address %q", ErrExtensionBuild, value)
			}
			entry = SANEntry{Type: SANTypeIP, Value: ip.String()}
		default:
			return nil, fmt.Errorf("%w: unsupported SAN type %q", ErrExtensionBuild, kind)
		}

		if _, dup := seen[entry]; dup {
			continue
		}
		seen[entry] = struct{}{}
		list = append(list, entry)
	}

	return list, nil
}

// toASCIIName converts a possibly internationalised DNS name to its ASCII form.
// A leading wildcard label is kept as is.
func toASCIIName(name string) (string, error) {
	if rest, ok := strings.CutPrefix(name, "*."); ok {
		ascii, err := idna.Lookup.ToASCII(rest)
		if err != nil {
			return "", err
		}
		return "*." + ascii, nil
	}
	return idna.Lookup.ToASCII(name)
}

// String formats the list the same way ParseSANList reads it.
func (l SANList) String() string {
	parts := make([]string, len(l))
	for i, e := range l {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

// DNSNames returns the DNS entries in order.
func (l SANList) DNSNames() []string {
	var names []string
	for _, e := range l {
		if e.Type == SANTypeDNS {
			names = append(names, e.Value)
		}
	}
	return names
}

// IPAddresses returns the IP entries in order.
func (l SANList) IPAddresses() []net.IP {
	var ips []net.IP
	for _, e := range l {
		if ip := e.IP(); ip != nil {
			ips = append(ips, ip)
		}
	}
	return ips
}
