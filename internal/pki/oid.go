package pki

import (
	"crypto/x509"
	"encoding/asn1"
	"errors"
	"fmt"
)

// Standard X.509 v3 extension identifiers (RFC 5280, section 4.2.1).
var (
	// OIDExtensionKeyUsage identifies the keyUsage extension.
	OIDExtensionKeyUsage = asn1.ObjectIdentifier{2, 5, 29, 15}

	// OIDExtensionSubjectAltName identifies the subjectAltName extension.
	OIDExtensionSubjectAltName = asn1.ObjectIdentifier{2, 5, 29, 17}

	// OIDExtensionBasicConstraints identifies the basicConstraints extension.
	OIDExtensionBasicConstraints = asn1.ObjectIdentifier{2, 5, 29, 19}

	// OIDExtensionExtKeyUsage identifies the extKeyUsage extension.
	OIDExtensionExtKeyUsage = asn1.ObjectIdentifier{2, 5, 29, 37}

	// OIDExtKeyUsageServerAuth is the id-kp-serverAuth key purpose.
	OIDExtKeyUsageServerAuth = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 1}
)

// ErrExtensionNotFound is returned when a required extension is missing
var ErrExtensionNotFound = errors.New("extension not found")

// FindExtension returns the extension with the given identifier.
func FindExtension(cert *x509.Certificate, oid asn1.ObjectIdentifier) (critical bool, value []byte, err error) {
	for _, ext := range cert.Extensions {
		if ext.Id.Equal(oid) {
			return ext.Critical, ext.Value, nil
		}
	}
	return false, nil, fmt.Errorf("%w: %s", ErrExtensionNotFound, oid)
}
