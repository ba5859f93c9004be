package pki

import (
	"bytes"
	"crypto/rand"
	"crypto/x509"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testKeyBits keeps RSA generation fast in tests.
const testKeyBits = 1024

var issuedAt = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy source unavailable")
}

type constReader byte

func (c constReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(c)
	}
	return len(p), nil
}

var (
	keyOnce sync.Once
	keys    []*Keypair
)

// testKeys returns a small pool of pre-generated keypairs shared by the tests.
func testKeys(t *testing.T) []*Keypair {
	t.Helper()
	keyOnce.Do(func() {
		for i := 0; i < 3; i++ {
			kp, err := GenerateKeypair(rand.Reader, testKeyBits)
			if err != nil {
				panic(fmt.Sprintf("failed to generate test key: %v", err))
			}
			keys = append(keys, kp)
		}
	})
	return keys
}

func testIssuer() *Issuer {
	issuer := NewIssuer("TestProduct")
	issuer.Now = func() time.Time { return issuedAt }
	return issuer
}

func issueTestCA(t *testing.T) *Pair {
	t.Helper()
	ca, err := testIssuer().IssueCA(testKeys(t)[0])
	require.NoError(t, err)
	return ca
}

func TestGenerateKeypair(t *testing.T) {
	t.Run("uses the fixed public exponent", func(t *testing.T) {
		kp := testKeys(t)[0]
		assert.Equal(t, PublicExponent, kp.Public().E)
		assert.Equal(t, testKeyBits, kp.Private.N.BitLen())
	})

	t.Run("rejects undersized keys", func(t *testing.T) {
		_, err := GenerateKeypair(rand.Reader, 512)
		require.ErrorIs(t, err, ErrKeyGeneration)
	})

	t.Run("default leaf size", func(t *testing.T) {
		if testing.Short() {
			t.Skip("skipping 2048-bit key generation in short mode")
		}
		kp, err := GenerateKeypair(rand.Reader, LeafKeyBits)
		require.NoError(t, err)
		assert.Equal(t, LeafKeyBits, kp.Private.N.BitLen())
	})
}

func TestRandomSerial(t *testing.T) {
	t.Run("clears the sign bit", func(t *testing.T) {
		serial, err := randomSerial(constReader(0xff))
		require.NoError(t, err)

		b := serial.Bytes()
		require.Len(t, b, serialLength)
		assert.Equal(t, byte(0x7f), b[0])
		assert.Equal(t, 1, serial.Sign())
	})

	t.Run("never exceeds twenty bytes", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			serial, err := randomSerial(rand.Reader)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(serial.Bytes()), serialLength)
			assert.Equal(t, 1, serial.Sign())
		}
	})

	t.Run("propagates entropy failure", func(t *testing.T) {
		_, err := randomSerial(failingReader{})
		require.Error(t, err)
	})
}

func TestIssueCA(t *testing.T) {
	ca := issueTestCA(t)
	cert := ca.Cert

	t.Run("subject equals issuer", func(t *testing.T) {
		assert.True(t, bytes.Equal(cert.RawSubject, cert.RawIssuer))
		assert.Equal(t, []string{"DE"}, cert.Subject.Country)
		assert.Equal(t, []string{"TestProduct"}, cert.Subject.Organization)
		assert.Equal(t, fmt.Sprintf("TestProduct CA %d", issuedAt.Unix()), cert.Subject.CommonName)
	})

	t.Run("marks the certificate as a CA", func(t *testing.T) {
		assert.Equal(t, 3, cert.Version)
		assert.True(t, cert.BasicConstraintsValid)
		assert.True(t, cert.IsCA)
		assert.Equal(t, x509.KeyUsageCertSign|x509.KeyUsageCRLSign, cert.KeyUsage)

		critical, _, err := FindExtension(cert, OIDExtensionBasicConstraints)
		require.NoError(t, err)
		assert.True(t, critical)

		critical, _, err = FindExtension(cert, OIDExtensionKeyUsage)
		require.NoError(t, err)
		assert.True(t, critical)
	})

	t.Run("is valid for ten years", func(t *testing.T) {
		assert.True(t, cert.NotBefore.Equal(issuedAt))
		assert.True(t, cert.NotAfter.Equal(issuedAt.Add(CALifetimeDays*24*time.Hour)))
	})

	t.Run("is self signed with SHA-256", func(t *testing.T) {
		assert.Equal(t, x509.SHA256WithRSA, cert.SignatureAlgorithm)
		require.NoError(t, cert.CheckSignatureFrom(cert))
	})

	t.Run("serial is positive", func(t *testing.T) {
		assert.Equal(t, 1, cert.SerialNumber.Sign())
		assert.LessOrEqual(t, len(cert.SerialNumber.Bytes()), serialLength)
	})

	t.Run("entropy failure aborts signing", func(t *testing.T) {
		issuer := testIssuer()
		issuer.Rand = failingReader{}

		_, err := issuer.IssueCA(testKeys(t)[0])
		require.ErrorIs(t, err, ErrCASign)
	})
}

func TestNewRequest(t *testing.T) {
	kp := testKeys(t)[1]
	req, err := testIssuer().NewRequest(kp)
	require.NoError(t, err)

	require.NoError(t, req.CheckSignature())
	assert.Equal(t, fmt.Sprintf("TestProduct Server Certificate %d", issuedAt.Unix()), req.Subject.CommonName)
	assert.Equal(t, []string{"DE"}, req.Subject.Country)
	assert.True(t, kp.Public().Equal(req.PublicKey))
}

func TestIssueLeaf(t *testing.T) {
	ca := issueTestCA(t)
	issuer := testIssuer()

	signer, err := NewPairSigner(rand.Reader, ca)
	require.NoError(t, err)

	san := "DNS:localhost, IP:127.0.0.1, IP:::1, DNS:myhost, IP:192.168.1.10"
	leaf, err := issuer.IssueLeaf(signer, testKeys(t)[1], san)
	require.NoError(t, err)
	cert := leaf.Cert

	t.Run("is signed by the CA", func(t *testing.T) {
		require.NoError(t, cert.CheckSignatureFrom(ca.Cert))
		assert.True(t, bytes.Equal(ca.Cert.RawSubject, cert.RawIssuer))
	})

	t.Run("chains to the CA", func(t *testing.T) {
		roots := x509.NewCertPool()
		roots.AddCert(ca.Cert)

		_, err := cert.Verify(x509.VerifyOptions{
			Roots:       roots,
			DNSName:     "myhost",
			CurrentTime: issuedAt.Add(time.Hour),
			KeyUsages:   []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		})
		require.NoError(t, err)
	})

	t.Run("carries server extensions", func(t *testing.T) {
		assert.False(t, cert.IsCA)
		assert.Equal(t, leafKeyUsage, cert.KeyUsage)
		assert.Equal(t, []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth}, cert.ExtKeyUsage)

		critical, value, err := FindExtension(cert, OIDExtensionBasicConstraints)
		require.NoError(t, err)
		assert.False(t, critical)
		assert.Equal(t, []byte{0x30, 0x00}, value)

		critical, _, err = FindExtension(cert, OIDExtensionKeyUsage)
		require.NoError(t, err)
		assert.False(t, critical)
	})

	t.Run("subject alternative names", func(t *testing.T) {
		assert.Equal(t, []string{"localhost", "myhost"}, cert.DNSNames)

		ips := make([]string, len(cert.IPAddresses))
		for i, ip := range cert.IPAddresses {
			ips[i] = ip.String()
		}
		assert.Equal(t, []string{"127.0.0.1", "::1", "192.168.1.10"}, ips)
	})

	t.Run("is valid for one year", func(t *testing.T) {
		assert.True(t, cert.NotBefore.Equal(issuedAt))
		assert.True(t, cert.NotAfter.Equal(issuedAt.Add(LeafLifetimeDays*24*time.Hour)))
	})

	t.Run("subject copied from the request", func(t *testing.T) {
		assert.Equal(t, fmt.Sprintf("TestProduct Server Certificate %d", issuedAt.Unix()), cert.Subject.CommonName)
		assert.True(t, leaf.Key.Public().Equal(cert.PublicKey))
	})

	t.Run("invalid SAN fails extension build", func(t *testing.T) {
		_, err := issuer.IssueLeaf(signer, testKeys(t)[1], "DNS:localhost, URI:http://example.com")
		require.ErrorIs(t, err, ErrExtensionBuild)
	})

	t.Run("entropy failure aborts signing", func(t *testing.T) {
		req, err := issuer.NewRequest(testKeys(t)[1])
		require.NoError(t, err)

		broken := testIssuer()
		broken.Rand = failingReader{}
		_, err = broken.SignRequest(signer, req, san)
		require.ErrorIs(t, err, ErrLeafSign)
	})
}

func TestNewPairSigner(t *testing.T) {
	ca := issueTestCA(t)

	t.Run("rejects mismatched key", func(t *testing.T) {
		_, err := NewPairSigner(rand.Reader, &Pair{Key: testKeys(t)[2], Cert: ca.Cert})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "do not match")
	})

	t.Run("rejects incomplete pair", func(t *testing.T) {
		_, err := NewPairSigner(rand.Reader, &Pair{Cert: ca.Cert})
		require.Error(t, err)
	})

	t.Run("rejects non CA certificate", func(t *testing.T) {
		signer, err := NewPairSigner(rand.Reader, ca)
		require.NoError(t, err)

		leaf, err := testIssuer().IssueLeaf(signer, testKeys(t)[1], "DNS:localhost")
		require.NoError(t, err)

		_, err = NewPairSigner(rand.Reader, leaf)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a CA")
	})
}

func TestFingerprint(t *testing.T) {
	ca := issueTestCA(t)

	fp := Fingerprint(ca.Cert)
	assert.NotEmpty(t, fp)
	assert.Equal(t, fp, Fingerprint(ca.Cert))
}
