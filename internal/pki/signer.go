package pki

import (
	"crypto"
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"io"
)

// CASigner signs certificate templates with the CA key.
// PairSigner is the only implementation; the CA key lives in memory for the
// duration of a single lifecycle pass.
type CASigner interface {
	// SignCertificate signs a certificate template and returns the DER-encoded certificate bytes.
	// The template must be fully populated, including PublicKey.
	SignCertificate(template *x509.Certificate) ([]byte, error)

	// GetCACertificate returns the CA certificate (public key only).
	GetCACertificate() (*x509.Certificate, error)
}

// PairSigner implements CASigner using an in-memory CA keypair and certificate.
type PairSigner struct {
	random io.Reader
	caKey  *rsa.PrivateKey
	caCert *x509.Certificate
}

// NewPairSigner creates a signer from a loaded or freshly issued CA pair.
func NewPairSigner(random io.Reader, ca *Pair) (*PairSigner, error) {
	if ca == nil || ca.Key == nil || ca.Cert == nil {
		return nil, fmt.Errorf("CA pair is incomplete")
	}

	if !ca.Cert.IsCA {
		return nil, fmt.Errorf("certificate %q is not a CA", ca.Cert.Subject.CommonName)
	}

	// Verify key and cert match
	if err := VerifyKeyMatchesCert(ca.Cert, ca.Key.Private); err != nil {
		return nil, fmt.Errorf("CA key and certificate do not match: %w", err)
	}

	return &PairSigner{
		random: random,
		caKey:  ca.Key.Private,
		caCert: ca.Cert,
	}, nil
}

// SignCertificate signs a certificate template using the CA private key.
// Returns DER-encoded certificate bytes.
func (s *PairSigner) SignCertificate(template *x509.Certificate) ([]byte, error) {
	return x509.CreateCertificate(s.random, template, s.caCert, template.PublicKey, s.caKey)
}

// GetCACertificate returns the CA certificate.
func (s *PairSigner) GetCACertificate() (*x509.Certificate, error) {
	return s.caCert, nil
}

// VerifyKeyMatchesCert checks that a certificate's public key matches a private key.
func VerifyKeyMatchesCert(cert *x509.Certificate, key crypto.PrivateKey) error {
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return fmt.Errorf("private key is not RSA")
	}

	certPubKey, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return fmt.Errorf("certificate public key is not RSA")
	}

	if !rsaKey.PublicKey.Equal(certPubKey) {
		return fmt.Errorf("public keys do not match")
	}

	return nil
}
