package pki

import "errors"

// Sentinel errors
var (
	// ErrKeyGeneration is returned when an RSA keypair cannot be produced.
	ErrKeyGeneration = errors.New("key generation failed")

	// ErrRequestSign is returned when a certificate request cannot be self-signed.
	ErrRequestSign = errors.New("certificate request signing failed")

	// ErrExtensionBuild is returned when a certificate extension cannot be encoded.
	ErrExtensionBuild = errors.New("extension build failed")

	// ErrCASign is returned when the self-signed CA certificate cannot be created.
	ErrCASign = errors.New("CA certificate signing failed")

	// ErrLeafSign is returned when the CA fails to sign the server certificate.
	ErrLeafSign = errors.New("leaf certificate signing failed")

	// ErrExpirationParse is returned when a certificate's notAfter is unusable.
	ErrExpirationParse = errors.New("certificate expiration could not be parsed")
)
