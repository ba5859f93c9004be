package pki

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSANList(t *testing.T) {
	t.Run("parses the default prefix", func(t *testing.T) {
		list, err := ParseSANList("DNS:localhost, IP:127.0.0.1, IP:::1")
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, SANEntry{Type: SANTypeDNS, Value: "localhost"}, list[0])
		assert.Equal(t, SANEntry{Type: SANTypeIP, Value: "127.0.0.1"}, list[1])
		assert.Equal(t, SANEntry{Type: SANTypeIP, Value: "::1"}, list[2])
		assert.Equal(t, "DNS:localhost, IP:127.0.0.1, IP:::1", list.String())
	})

	t.Run("drops duplicates keeping order", func(t *testing.T) {
		list, err := ParseSANList("DNS:localhost, IP:127.0.0.1, dns:localhost, IP:127.0.0.1, DNS:nas")
		require.NoError(t, err)
		assert.Equal(t, "DNS:localhost, IP:127.0.0.1, DNS:nas", list.String())
	})

	t.Run("normalises IPv6 formatting", func(t *testing.T) {
		list, err := ParseSANList("IP:0:0:0:0:0:0:0:1, IP:::1")
		require.NoError(t, err)
		assert.Equal(t, "IP:::1", list.String())
	})

	t.Run("converts internationalised names", func(t *testing.T) {
		list, err := ParseSANList("DNS:bücher.example, DNS:*.Home.Arpa")
		require.NoError(t, err)
		assert.Equal(t, []string{"xn--bcher-kva.example", "*.home.arpa"}, list.DNSNames())
	})

	t.Run("ignores empty segments", func(t *testing.T) {
		list, err := ParseSANList(" , DNS:localhost,, ")
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("splits DNS and IP entries", func(t *testing.T) {
		list, err := ParseSANList("DNS:a, IP:10.0.0.1, DNS:b, IP:fe80::1")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, list.DNSNames())

		ips := list.IPAddresses()
		require.Len(t, ips, 2)
		assert.Len(t, []byte(ips[0]), 4)
		assert.Len(t, []byte(ips[1]), 16)
	})

	t.Run("rejects malformed entries", func(t *testing.T) {
		for _, input := range []string{
			"localhost",
			"IP:not-an-ip",
			"URI:https://example.com",
			"email:root@example.com",
			"DNS:",
		} {
			_, err := ParseSANList(input)
			assert.ErrorIs(t, err, ErrExtensionBuild, input)
		}
	})
}

func TestExtensions(t *testing.T) {
	t.Run("CA basic constraints", func(t *testing.T) {
		ext, err := basicConstraintsExtension(true, true)
		require.NoError(t, err)
		assert.True(t, ext.Critical)
		assert.Equal(t, []byte{0x30, 0x03, 0x01, 0x01, 0xff}, ext.Value)
	})

	t.Run("key usage bit string", func(t *testing.T) {
		ext, err := keyUsageExtension(leafKeyUsage, false)
		require.NoError(t, err)
		// digitalSignature(0), keyEncipherment(2), dataEncipherment(3): 1011 + 4 unused bits
		assert.Equal(t, []byte{0x03, 0x02, 0x04, 0xb0}, ext.Value)
	})

	t.Run("empty key usage", func(t *testing.T) {
		_, err := keyUsageExtension(0, true)
		require.ErrorIs(t, err, ErrExtensionBuild)
	})

	t.Run("empty subject alternative names", func(t *testing.T) {
		_, err := subjectAltNameExtension(nil)
		require.ErrorIs(t, err, ErrExtensionBuild)
	})
}
