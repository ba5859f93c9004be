package pki

import (
	"crypto/rand"
	"crypto/x509"
	"io"
	"time"
)

const (
	// CALifetimeDays is the validity period of a newly issued CA certificate.
	CALifetimeDays = 3650
	// LeafLifetimeDays is the validity period of a newly issued server certificate.
	LeafLifetimeDays = 365

	// Country is the fixed C= attribute of every subject.
	Country = "DE"
	// DefaultProduct names the O= attribute and the CN prefix.
	DefaultProduct = "localtls"
)

// Pair is a keypair together with the certificate issued for it.
type Pair struct {
	Key  *Keypair
	Cert *x509.Certificate
}

// Issuer builds and signs the CA and server certificates.
type Issuer struct {
	// Product is used for the subject organisation and common name prefix.
	Product string

	// Rand is the entropy source for serial numbers and signatures.
	Rand io.Reader

	// Now returns the issuance time. Tests override it.
	Now func() time.Time
}

// NewIssuer creates an Issuer for the given product name.
func NewIssuer(product string) *Issuer {
	if product == "" {
		product = DefaultProduct
	}
	return &Issuer{
		Product: product,
		Rand:    rand.Reader,
		Now:     time.Now,
	}
}

func (i *Issuer) now() time.Time {
	if i.Now == nil {
		return time.Now()
	}
	return i.Now()
}

func (i *Issuer) random() io.Reader {
	if i.Rand == nil {
		return rand.Reader
	}
	return i.Rand
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}
