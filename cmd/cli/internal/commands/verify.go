package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/localtls/internal/tlsfiles"
)

// VerifyCmd checks the files a TLS listener would load.
type VerifyCmd struct {
	Dir string `help:"certificate directory" default:"ssl" env:"LOCALTLS_DIR"`
}

func (c *VerifyCmd) Run(ctx context.Context, globals *Globals) error {
	defer globals.setup(ctx)()

	certs, err := tlsfiles.Load(c.Dir)
	if err != nil {
		return fmt.Errorf("failed to load certificates: %w", err)
	}

	if err := certs.Validate(); err != nil {
		return err
	}

	leaf, err := certs.VerifyChain(time.Now())
	if err != nil {
		return err
	}

	if _, err := certs.TLSConfig(); err != nil {
		return err
	}

	log.Debug().Strs("dns_names", leaf.DNSNames).Msg("Server certificate verified")

	fmt.Printf("OK: %s chains to %s, valid until %s\n",
		leaf.Subject.CommonName, leaf.Issuer.CommonName, leaf.NotAfter.Format(time.RFC3339))
	return nil
}
