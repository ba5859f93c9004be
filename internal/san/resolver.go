// Package san derives the subject alternative names for the server certificate
// from fixed loopback defaults, the local host's name and addresses, and
// operator supplied entries.
package san

import (
	"context"
	"net"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/localtls/internal/pki"
)

// DefaultPrefix is always the start of the resolved list.
const DefaultPrefix = "DNS:localhost, IP:127.0.0.1, IP:::1"

// HostResolver looks up the local host's identity.
type HostResolver interface {
	Hostname() (string, error)
	LookupCNAME(ctx context.Context, host string) (string, error)
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// SystemResolver uses the operating system hostname and the Go resolver.
type SystemResolver struct {
	Resolver *net.Resolver
}

func (s SystemResolver) resolver() *net.Resolver {
	if s.Resolver == nil {
		return net.DefaultResolver
	}
	return s.Resolver
}

func (s SystemResolver) Hostname() (string, error) {
	return os.Hostname()
}

func (s SystemResolver) LookupCNAME(ctx context.Context, host string) (string, error) {
	return s.resolver().LookupCNAME(ctx, host)
}

func (s SystemResolver) LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error) {
	return s.resolver().LookupIPAddr(ctx, host)
}

// Resolver builds the subjectAltName value string for the server certificate.
type Resolver struct {
	host HostResolver
}

// NewResolver creates a Resolver. A nil host uses SystemResolver.
func NewResolver(host HostResolver) *Resolver {
	if host == nil {
		host = SystemResolver{}
	}
	return &Resolver{host: host}
}

// Resolve returns "DNS:localhost, IP:127.0.0.1, IP:::1" followed by the short
// hostname, its canonical name when different, each resolved address, and finally
// customSAN verbatim. Lookup failures are not fatal; whatever has been collected
// so far is returned.
func (r *Resolver) Resolve(ctx context.Context, customSAN string) string {
	b := newBuilder()
	b.add("DNS", "localhost")
	b.add("IP", "127.0.0.1")
	b.add("IP", "::1")

	r.resolveHost(ctx, b)

	if custom := strings.TrimSpace(customSAN); custom != "" {
		b.parts = append(b.parts, custom)
	}

	return strings.Join(b.parts, ", ")
}

func (r *Resolver) resolveHost(ctx context.Context, b *builder) {
	hostname, err := r.host.Hostname()
	if err != nil || hostname == "" {
		log.Debug().Err(err).Msg("hostname unavailable, using default SAN entries only")
		return
	}
	b.addName(hostname)

	canonical, err := r.host.LookupCNAME(ctx, hostname)
	if err != nil {
		log.Debug().Err(err).Str("hostname", hostname).Msg("failed to resolve canonical name")
	} else if canonical = strings.TrimSuffix(canonical, "."); canonical != "" && canonical != hostname {
		b.addName(canonical)
	}

	addrs, err := r.host.LookupIPAddr(ctx, hostname)
	if err != nil {
		log.Debug().Err(err).Str("hostname", hostname).Msg("failed to resolve host addresses")
		return
	}

	for _, addr := range addrs {
		if addr.IP == nil {
			continue
		}
		b.add("IP", addr.IP.String())
	}
}

// builder accumulates "TYPE:value" entries, skipping exact duplicates.
type builder struct {
	parts []string
	seen  map[string]struct{}
}

func newBuilder() *builder {
	return &builder{seen: make(map[string]struct{})}
}

func (b *builder) add(kind, value string) {
	entry := kind + ":" + value
	if _, ok := b.seen[entry]; ok {
		return
	}
	b.seen[entry] = struct{}{}
	b.parts = append(b.parts, entry)
}

// addName adds a DNS entry for a name taken from the host. Names that would not
// survive certificate encoding, such as ones containing underscores, are skipped.
func (b *builder) addName(name string) {
	if _, err := pki.ParseSANList("DNS:" + name); err != nil {
		log.Warn().Err(err).Str("name", name).Msg("skipping host name unusable as SAN")
		return
	}
	b.add("DNS", name)
}
