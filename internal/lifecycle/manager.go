// Package lifecycle decides, for the CA and the server identity, whether the
// existing pair on disk can be used or must be created or rotated.
package lifecycle

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/afero"
	"github.com/wolfeidau/localtls/internal/pki"
	"github.com/wolfeidau/localtls/internal/san"
	"github.com/wolfeidau/localtls/internal/store"
	"github.com/wolfeidau/localtls/internal/telemetry"
)

// Pair names within the certificate directory.
const (
	NameCA     = "ca"
	NameServer = "server"
)

// ErrUnknownIdentity is returned when cleanup is asked for a pair other than ca or server.
var ErrUnknownIdentity = errors.New("unknown certificate identity")

// State is how an identity ended up valid during a pass.
type State string

const (
	StateLoaded  State = "loaded"
	StateCreated State = "created"
	StateRotated State = "rotated"
)

// Config controls where pairs live and how they are issued.
type Config struct {
	Dir         string
	CustomSAN   string
	Product     string
	CAWindow    pki.Window
	LeafWindow  pki.Window
	CAKeyBits   int
	LeafKeyBits int
}

// DefaultConfig returns the standard windows and key sizes for dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:         dir,
		Product:     pki.DefaultProduct,
		CAWindow:    pki.CAWindow,
		LeafWindow:  pki.LeafWindow,
		CAKeyBits:   pki.CAKeyBits,
		LeafKeyBits: pki.LeafKeyBits,
	}
}

// Outcome describes the pair an identity ended with.
type Outcome struct {
	Name          string
	State         State
	Serial        string
	Subject       string
	NotAfter      time.Time
	DaysRemaining int
	Fingerprint   string
}

// Result is returned by Ensure when both identities are valid.
type Result struct {
	CA   Outcome
	Leaf Outcome
}

// Manager runs the load/create/rotate pass against one directory. It holds no
// state between passes beyond the files on disk.
type Manager struct {
	cfg     Config
	fs      afero.Fs
	store   *store.PairStore
	issuer  *pki.Issuer
	san     *san.Resolver
	random  io.Reader
	now     func() time.Time
	metrics *telemetry.Metrics
}

// Option customises a Manager.
type Option func(*Manager)

// WithFs sets the filesystem the store works on.
func WithFs(fs afero.Fs) Option {
	return func(m *Manager) {
		m.fs = fs
	}
}

// WithHostResolver replaces the operating system host lookups.
func WithHostResolver(host san.HostResolver) Option {
	return func(m *Manager) {
		m.san = san.NewResolver(host)
	}
}

// WithClock sets the time source used for issuance and expiration checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithMetrics sets the metric instruments.
func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// New validates cfg and creates a Manager for cfg.Dir.
func New(cfg Config, opts ...Option) (*Manager, error) {
	if cfg.Dir == "" {
		return nil, errors.New("certificate directory is required")
	}
	if err := cfg.CAWindow.Validate(); err != nil {
		return nil, fmt.Errorf("invalid CA window: %w", err)
	}
	if err := cfg.LeafWindow.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server window: %w", err)
	}
	if cfg.CAKeyBits == 0 {
		cfg.CAKeyBits = pki.CAKeyBits
	}
	if cfg.LeafKeyBits == 0 {
		cfg.LeafKeyBits = pki.LeafKeyBits
	}

	m := &Manager{
		cfg:    cfg,
		fs:     afero.NewOsFs(),
		san:    san.NewResolver(nil),
		random: rand.Reader,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.metrics == nil {
		m.metrics = telemetry.GetMetrics()
	}

	st, err := store.NewPairStore(m.fs, cfg.Dir)
	if err != nil {
		return nil, err
	}
	m.store = st

	m.issuer = pki.NewIssuer(cfg.Product)
	m.issuer.Rand = m.random
	m.issuer.Now = m.now

	return m, nil
}

// Store returns the pair store the manager persists to.
func (m *Manager) Store() *store.PairStore {
	return m.store
}

// CreateCertificates ensures a valid CA and server pair exist in cfg.Dir. A non-nil
// error means TLS must not be enabled.
func CreateCertificates(ctx context.Context, cfg Config, opts ...Option) (*Result, error) {
	m, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return m.Ensure(ctx)
}

// CleanupCertificates removes the named pair ("ca" or "server") from cfg.Dir.
func CleanupCertificates(ctx context.Context, cfg Config, name string, opts ...Option) error {
	m, err := New(cfg, opts...)
	if err != nil {
		return err
	}
	return m.Cleanup(ctx, name)
}
