package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/wolfeidau/localtls/internal/lifecycle"
	"github.com/wolfeidau/localtls/internal/pki"
	"github.com/wolfeidau/localtls/internal/store"
)

// InspectCmd prints the certificates found in a directory.
type InspectCmd struct {
	Dir string `help:"certificate directory" default:"ssl" env:"LOCALTLS_DIR"`
}

func (c *InspectCmd) Run(ctx context.Context, globals *Globals) error {
	defer globals.setup(ctx)()

	if _, err := os.Stat(c.Dir); err != nil {
		return fmt.Errorf("failed to open certificate directory: %w", err)
	}

	st, err := store.NewPairStore(afero.NewOsFs(), c.Dir)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, name := range []string{lifecycle.NameCA, lifecycle.NameServer} {
		if !st.Exists(name) {
			fmt.Printf("%s: not present\n\n", name)
			continue
		}

		pair, err := st.Load(name)
		if err != nil {
			fmt.Printf("%s: unusable: %v\n\n", name, err)
			continue
		}

		printCertificate(name, pair, now)
	}

	return nil
}

func printCertificate(name string, pair *pki.Pair, now time.Time) {
	cert := pair.Cert

	fmt.Printf("%s\n", name)
	fmt.Printf("  Subject:        %s\n", cert.Subject)
	fmt.Printf("  Issuer:         %s\n", cert.Issuer)
	fmt.Printf("  Serial:         %s\n", cert.SerialNumber.Text(16))
	fmt.Printf("  Key Size:       %d\n", pair.Key.Private.N.BitLen())
	fmt.Printf("  Not Before:     %s\n", cert.NotBefore.Format(time.RFC3339))
	fmt.Printf("  Not After:      %s\n", cert.NotAfter.Format(time.RFC3339))
	if v, err := pki.CheckExpiration(cert, now, pki.Window{}); err == nil {
		fmt.Printf("  Days Remaining: %d\n", v.DaysRemaining)
	}

	var sans []string
	for _, dns := range cert.DNSNames {
		sans = append(sans, "DNS:"+dns)
	}
	for _, ip := range cert.IPAddresses {
		sans = append(sans, "IP:"+ip.String())
	}
	if len(sans) > 0 {
		fmt.Printf("  SAN:            %s\n", strings.Join(sans, ", "))
	}

	fmt.Printf("  Fingerprint:    %s\n\n", pki.Fingerprint(cert))
}
