package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/localtls/internal/store"
)

// fastConfig keeps RSA generation quick while passing config validation.
const fastConfig = `
ca:
  keyBits: 2048
server:
  keyBits: 2048
`

func writeFastConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "localtls.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fastConfig), 0o600))
	return path
}

func createCerts(t *testing.T, dir string) {
	t.Helper()
	cmd := &CreateCmd{
		Dir:       dir,
		CustomSAN: "DNS:nas.example.org",
		Config:    writeFastConfig(t),
	}
	require.NoError(t, cmd.Run(context.Background(), &Globals{}))
}

func TestCreateCmd_Run(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ssl")
	createCerts(t, dir)

	for _, name := range []string{"ca.key", "ca.pem", "server.key", "server.pem"} {
		_, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
	}

	st, err := store.NewPairStore(nil, dir)
	require.NoError(t, err)
	leaf, err := st.Load("server")
	require.NoError(t, err)
	assert.Contains(t, leaf.Cert.DNSNames, "nas.example.org")
	assert.Equal(t, 2048, leaf.Key.Private.N.BitLen())

	t.Run("second run keeps the existing pair", func(t *testing.T) {
		createCerts(t, dir)

		again, err := st.Load("server")
		require.NoError(t, err)
		assert.Zero(t, leaf.Cert.SerialNumber.Cmp(again.Cert.SerialNumber))
	})
}

func TestCreateCmd_resolveConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := (&CreateCmd{}).resolveConfig()
		require.NoError(t, err)
		assert.Equal(t, defaultDir, cfg.Dir)
		assert.Equal(t, 4096, cfg.CA.KeyBits)
	})

	t.Run("flags override the config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "localtls.yaml")
		require.NoError(t, os.WriteFile(path, []byte("dir: /from/file\nproduct: fromfile\ncustomSan: DNS:file.lan\n"), 0o600))

		cfg, err := (&CreateCmd{Config: path, Product: "fromflag"}).resolveConfig()
		require.NoError(t, err)
		assert.Equal(t, "/from/file", cfg.Dir)
		assert.Equal(t, "fromflag", cfg.Product)
		assert.Equal(t, "DNS:file.lan", cfg.CustomSAN)
	})

	t.Run("invalid config file", func(t *testing.T) {
		_, err := (&CreateCmd{Config: filepath.Join(t.TempDir(), "absent.yaml")}).resolveConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load config file")
	})
}

func TestCreateCmd_InvalidSAN(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ssl")
	cmd := &CreateCmd{
		Dir:       dir,
		CustomSAN: "EMAIL:root@example.org",
		Config:    writeFastConfig(t),
	}

	err := cmd.Run(context.Background(), &Globals{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TLS must stay disabled")

	_, err = os.Stat(filepath.Join(dir, "server.pem"))
	assert.True(t, os.IsNotExist(err))
}

func TestCleanupCmd_Run(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ssl")
	createCerts(t, dir)

	require.NoError(t, (&CleanupCmd{Name: "server", Dir: dir}).Run(context.Background(), &Globals{}))

	_, err := os.Stat(filepath.Join(dir, "server.pem"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "ca.pem"))
	require.NoError(t, err)

	// Absent files are not an error.
	require.NoError(t, (&CleanupCmd{Name: "server", Dir: dir}).Run(context.Background(), &Globals{}))
}

func TestInspectCmd_Run(t *testing.T) {
	t.Run("created directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "ssl")
		createCerts(t, dir)
		require.NoError(t, (&InspectCmd{Dir: dir}).Run(context.Background(), &Globals{}))
	})

	t.Run("missing directory", func(t *testing.T) {
		err := (&InspectCmd{Dir: filepath.Join(t.TempDir(), "absent")}).Run(context.Background(), &Globals{})
		require.Error(t, err)
	})
}

func TestVerifyCmd_Run(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ssl")
	createCerts(t, dir)

	require.NoError(t, (&VerifyCmd{Dir: dir}).Run(context.Background(), &Globals{}))

	t.Run("fails without the server pair", func(t *testing.T) {
		require.NoError(t, (&CleanupCmd{Name: "server", Dir: dir}).Run(context.Background(), &Globals{}))

		err := (&VerifyCmd{Dir: dir}).Run(context.Background(), &Globals{})
		require.Error(t, err)
	})
}
