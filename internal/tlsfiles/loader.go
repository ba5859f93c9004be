// Package tlsfiles loads the CA and server PEM files the way a TLS listener
// consumes them.
package tlsfiles

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Certificates holds certificate data in memory
type Certificates struct {
	CACert     []byte
	ServerCert []byte
	ServerKey  []byte
}

// Paths of the files read by Load.
type Paths struct {
	CACertPath     string
	ServerCertPath string
	ServerKeyPath  string
}

// DirPaths returns the standard file locations within dir.
func DirPaths(dir string) Paths {
	return Paths{
		CACertPath:     filepath.Join(dir, "ca.pem"),
		ServerCertPath: filepath.Join(dir, "server.pem"),
		ServerKeyPath:  filepath.Join(dir, "server.key"),
	}
}

// Load reads ca.pem, server.pem and server.key from dir.
func Load(dir string) (*Certificates, error) {
	return LoadPaths(DirPaths(dir))
}

// LoadPaths reads certificates from explicit file paths
func LoadPaths(paths Paths) (*Certificates, error) {
	certs := &Certificates{}

	caCert, err := os.ReadFile(paths.CACertPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA cert: %w", err)
	}
	certs.CACert = caCert

	serverCert, err := os.ReadFile(paths.ServerCertPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read server cert: %w", err)
	}
	certs.ServerCert = serverCert

	serverKey, err := os.ReadFile(paths.ServerKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read server key: %w", err)
	}
	certs.ServerKey = serverKey

	return certs, nil
}

// TLSConfig creates a server tls.Config presenting the server certificate.
func (c *Certificates) TLSConfig() (*tls.Config, error) {
	serverCert, err := tls.X509KeyPair(c.ServerCert, c.ServerKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse server certificate: %w", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{serverCert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// Validate validates that certificate data is valid PEM
func (c *Certificates) Validate() error {
	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(c.CACert) {
		return errors.New("invalid CA certificate PEM")
	}

	_, err := tls.X509KeyPair(c.ServerCert, c.ServerKey)
	if err != nil {
		return fmt.Errorf("invalid server certificate/key: %w", err)
	}

	return nil
}

// VerifyChain checks that the server certificate chains to the CA certificate for
// server authentication at time now, and returns the parsed server certificate.
func (c *Certificates) VerifyChain(now time.Time) (*x509.Certificate, error) {
	caCert, err := parseCertificate(c.CACert)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CA certificate: %w", err)
	}

	serverCert, err := parseCertificate(c.ServerCert)
	if err != nil {
		return nil, fmt.Errorf("failed to parse server certificate: %w", err)
	}

	roots := x509.NewCertPool()
	roots.AddCert(caCert)

	_, err = serverCert.Verify(x509.VerifyOptions{
		Roots:       roots,
		CurrentTime: now,
		KeyUsages:   []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	})
	if err != nil {
		return nil, fmt.Errorf("server certificate does not chain to CA: %w", err)
	}

	return serverCert, nil
}

func parseCertificate(data []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, errors.New("no CERTIFICATE block found")
	}
	return x509.ParseCertificate(block.Bytes)
}
