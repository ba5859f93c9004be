package store

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/wolfeidau/localtls/internal/pki"
)

// On-disk layout within the certificate directory:
//
//	<dir>/
//	  <name>.key   (0600, PKCS#8 PEM)
//	  <name>.pem   (0644, certificate PEM)
const (
	keySuffix  = ".key"
	certSuffix = ".pem"

	dirPerms  = 0700
	keyPerms  = 0600
	certPerms = 0644

	pemTypePrivateKey    = "PRIVATE KEY"
	pemTypeRSAPrivateKey = "RSA PRIVATE KEY"
	pemTypeCertificate   = "CERTIFICATE"
)

// Sentinel errors
var (
	// ErrPairNotFound is returned when a pair is missing, partial or unreadable.
	ErrPairNotFound = errors.New("key pair not found")

	// ErrWriteFailed is returned when a pair cannot be persisted.
	ErrWriteFailed = errors.New("failed to write key pair")
)

// PairStore persists named key/certificate pairs as PEM files in one directory.
type PairStore struct {
	fs  afero.Fs
	dir string
}

// NewPairStore creates a store rooted at dir. The directory is created by the
// first Write, reads and deletes never create it.
func NewPairStore(fsys afero.Fs, dir string) (*PairStore, error) {
	if dir == "" {
		return nil, errors.New("certificate directory is required")
	}

	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	return &PairStore{fs: fsys, dir: dir}, nil
}

// Dir returns the directory the store writes to.
func (s *PairStore) Dir() string {
	return s.dir
}

// KeyPath returns the private key file path for name.
func (s *PairStore) KeyPath(name string) string {
	return filepath.Join(s.dir, name+keySuffix)
}

// CertPath returns the certificate file path for name.
func (s *PairStore) CertPath(name string) string {
	return filepath.Join(s.dir, name+certSuffix)
}

// Exists reports whether either file of the pair is present.
func (s *PairStore) Exists(name string) bool {
	for _, path := range []string{s.KeyPath(name), s.CertPath(name)} {
		if ok, _ := afero.Exists(s.fs, path); ok {
			return true
		}
	}
	return false
}

// Load reads the private key and then the certificate for name. Both files must
// exist, parse and belong together; anything else is reported as ErrPairNotFound.
func (s *PairStore) Load(name string) (*pki.Pair, error) {
	key, err := s.readKey(s.KeyPath(name))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrPairNotFound, name, err)
	}

	cert, err := s.readCert(s.CertPath(name))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrPairNotFound, name, err)
	}

	if err := pki.VerifyKeyMatchesCert(cert, key); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrPairNotFound, name, err)
	}

	return &pki.Pair{Key: &pki.Keypair{Private: key}, Cert: cert}, nil
}

// Write persists the private key and then the certificate, each through a
// uniquely named temporary file that is renamed over the destination.
func (s *PairStore) Write(name string, pair *pki.Pair) error {
	if err := s.fs.MkdirAll(s.dir, dirPerms); err != nil {
		return fmt.Errorf("%w: failed to create certificate directory: %v", ErrWriteFailed, err)
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(pair.Key.Private)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal private key: %v", ErrWriteFailed, err)
	}

	keyPEM := pem.EncodeToMemory(&pem.Block{Type: pemTypePrivateKey, Bytes: keyDER})
	if err := s.writeAtomic(s.KeyPath(name), keyPEM, keyPerms); err != nil {
		return fmt.Errorf("%w: %s key: %v", ErrWriteFailed, name, err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: pemTypeCertificate, Bytes: pair.Cert.Raw})
	if err := s.writeAtomic(s.CertPath(name), certPEM, certPerms); err != nil {
		return fmt.Errorf("%w: %s certificate: %v", ErrWriteFailed, name, err)
	}

	log.Debug().
		Str("path_key", s.KeyPath(name)).
		Str("path_cert", s.CertPath(name)).
		Msg("key pair written")

	return nil
}

// Delete removes both files of the pair. Each removal is attempted regardless of
// the other; files that are already absent are not an error.
func (s *PairStore) Delete(name string) error {
	var errs []error

	for _, path := range []string{s.CertPath(name), s.KeyPath(name)} {
		if err := s.fs.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", path, err))
		}
	}

	return errors.Join(errs...)
}

// writeAtomic writes data to a temp file next to path, syncs and closes it, and
// renames it into place. On failure the temp file is removed and path is untouched.
func (s *PairStore) writeAtomic(path string, data []byte, perm os.FileMode) (err error) {
	tmpPath := fmt.Sprintf("%s.%s.tmp", path, uuid.NewString())

	f, err := s.fs.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	defer func() {
		if err != nil {
			if rmErr := s.fs.Remove(tmpPath); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
				log.Warn().Err(rmErr).Str("path", tmpPath).Msg("failed to remove temp file")
			}
		}
	}()

	if _, err = f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err = f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err = f.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// OpenFile permissions are subject to the umask
	if err = s.fs.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err = s.fs.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

func (s *PairStore) readKey(path string) (*rsa.PrivateKey, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("failed to decode key PEM")
	}

	switch block.Type {
	case pemTypePrivateKey:
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("private key is not RSA (got %T)", key)
		}
		return rsaKey, nil
	case pemTypeRSAPrivateKey:
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("unexpected PEM block %q", block.Type)
	}
}

func (s *PairStore) readCert(path string) (*x509.Certificate, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemTypeCertificate {
		return nil, errors.New("failed to decode certificate PEM")
	}

	return x509.ParseCertificate(block.Bytes)
}
