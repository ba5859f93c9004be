package pki

import (
	"crypto/x509"
	"fmt"
	"time"
)

// Window is the acceptable range of remaining lifetime, in whole days.
type Window struct {
	MinDays int `yaml:"min_days"`
	MaxDays int `yaml:"max_days"`
}

var (
	// CAWindow is the default lifetime window for the root CA.
	CAWindow = Window{MinDays: 365, MaxDays: CALifetimeDays}
	// LeafWindow is the default lifetime window for the server certificate.
	LeafWindow = Window{MinDays: 30, MaxDays: LeafLifetimeDays}
)

// Validation holds the result of an expiration check.
type Validation struct {
	NotBefore     time.Time
	NotAfter      time.Time
	DaysRemaining int
	Expired       bool
	ShouldRotate  bool
}

// CheckExpiration computes whole days until notAfter and flags the certificate for
// rotation when that count falls outside w. A certificate without a usable
// notAfter yields ErrExpirationParse and is never flagged.
func CheckExpiration(cert *x509.Certificate, now time.Time, w Window) (*Validation, error) {
	if cert == nil || cert.NotAfter.IsZero() {
		return nil, ErrExpirationParse
	}

	remaining := cert.NotAfter.Sub(now)
	validation := &Validation{
		NotBefore:     cert.NotBefore,
		NotAfter:      cert.NotAfter,
		DaysRemaining: int(remaining.Hours() / 24),
		Expired:       now.After(cert.NotAfter),
	}

	if validation.DaysRemaining > w.MaxDays || validation.DaysRemaining < w.MinDays {
		validation.ShouldRotate = true
	}

	return validation, nil
}

// Validate checks that the window is usable.
func (w Window) Validate() error {
	if w.MinDays < 0 || w.MaxDays <= 0 {
		return fmt.Errorf("lifetime window must be positive, got [%d, %d]", w.MinDays, w.MaxDays)
	}
	if w.MinDays >= w.MaxDays {
		return fmt.Errorf("lifetime window minimum %d must be below maximum %d", w.MinDays, w.MaxDays)
	}
	return nil
}
