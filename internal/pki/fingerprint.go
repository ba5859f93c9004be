package pki

import (
	"crypto/sha256"
	"crypto/x509"

	"github.com/mr-tron/base58"
)

// Fingerprint returns the Base58-encoded SHA-256 of the certificate DER.
func Fingerprint(cert *x509.Certificate) string {
	hash := sha256.Sum256(cert.Raw)
	return base58.Encode(hash[:])
}
