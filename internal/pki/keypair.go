package pki

import (
	"crypto/rsa"
	"fmt"
	"io"
)

const (
	// CAKeyBits is the default RSA modulus size for the root CA.
	CAKeyBits = 4096
	// LeafKeyBits is the default RSA modulus size for the server certificate.
	LeafKeyBits = 2048
	// PublicExponent is the RSA public exponent used for every key.
	PublicExponent = 65537

	minKeyBits = 1024
)

// Keypair holds an RSA private key and, through it, the matching public key.
type Keypair struct {
	Private *rsa.PrivateKey
}

// Public returns the public half of the keypair.
func (k *Keypair) Public() *rsa.PublicKey {
	return &k.Private.PublicKey
}

// GenerateKeypair creates a new RSA keypair with the given modulus size.
// Generation blocks the caller; 4096-bit keys can take seconds.
func GenerateKeypair(random io.Reader, bits int) (*Keypair, error) {
	if bits < minKeyBits {
		return nil, fmt.Errorf("%w: unsupported key size %d", ErrKeyGeneration, bits)
	}

	key, err := rsa.GenerateKey(random, bits)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyGeneration, err)
	}

	if key.E != PublicExponent {
		return nil, fmt.Errorf("%w: unexpected public exponent %d", ErrKeyGeneration, key.E)
	}

	return &Keypair{Private: key}, nil
}
