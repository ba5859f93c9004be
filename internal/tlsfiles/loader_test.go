package tlsfiles

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/localtls/internal/lifecycle"
)

type loopbackHost struct{}

func (loopbackHost) Hostname() (string, error) { return "", errors.New("no hostname") }

func (loopbackHost) LookupCNAME(context.Context, string) (string, error) { return "", nil }

func (loopbackHost) LookupIPAddr(context.Context, string) ([]net.IPAddr, error) { return nil, nil }

func createDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	cfg := lifecycle.DefaultConfig(dir)
	cfg.CAKeyBits = 1024
	cfg.LeafKeyBits = 1024

	_, err := lifecycle.CreateCertificates(context.Background(), cfg, lifecycle.WithHostResolver(loopbackHost{}))
	require.NoError(t, err)
	return dir
}

func TestLoad(t *testing.T) {
	t.Run("freshly created directory verifies", func(t *testing.T) {
		dir := createDir(t)

		certs, err := Load(dir)
		require.NoError(t, err)
		require.NoError(t, certs.Validate())

		leaf, err := certs.VerifyChain(time.Now())
		require.NoError(t, err)
		assert.Contains(t, leaf.DNSNames, "localhost")

		cfg, err := certs.TLSConfig()
		require.NoError(t, err)
		assert.Len(t, cfg.Certificates, 1)
		assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
		assert.Equal(t, tls.NoClientCert, cfg.ClientAuth)
	})

	t.Run("missing file", func(t *testing.T) {
		dir := createDir(t)
		require.NoError(t, os.Remove(filepath.Join(dir, "server.key")))

		_, err := Load(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "server key")
	})
}

func TestCertificates_Validate(t *testing.T) {
	certs, err := Load(createDir(t))
	require.NoError(t, err)

	t.Run("invalid CA PEM", func(t *testing.T) {
		broken := *certs
		broken.CACert = []byte("not a certificate")
		require.Error(t, broken.Validate())
	})

	t.Run("key from another pair", func(t *testing.T) {
		other, err := Load(createDir(t))
		require.NoError(t, err)

		broken := *certs
		broken.ServerKey = other.ServerKey
		require.Error(t, broken.Validate())
	})
}

func TestCertificates_VerifyChain(t *testing.T) {
	certs, err := Load(createDir(t))
	require.NoError(t, err)

	t.Run("foreign CA", func(t *testing.T) {
		other, err := Load(createDir(t))
		require.NoError(t, err)

		mixed := *certs
		mixed.CACert = other.CACert
		_, err = mixed.VerifyChain(time.Now())
		require.Error(t, err)
	})

	t.Run("after expiry", func(t *testing.T) {
		_, err := certs.VerifyChain(time.Now().Add(400 * 24 * time.Hour))
		require.Error(t, err)
	})
}
