package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/localtls/internal/config"
	"github.com/wolfeidau/localtls/internal/lifecycle"
)

// CreateCmd makes sure a valid CA and server certificate exist.
type CreateCmd struct {
	Dir       string `help:"certificate directory (default: ./ssl)" env:"LOCALTLS_DIR"`
	CustomSAN string `help:"additional SAN entries, e.g. \"DNS:nas.example.org, IP:192.168.1.20\"" env:"LOCALTLS_CUSTOM_SAN"`
	Product   string `help:"product name used for the subject organisation and common name" env:"LOCALTLS_PRODUCT"`
	Config    string `help:"YAML config file path" env:"LOCALTLS_CONFIG"`
}

func (c *CreateCmd) Run(ctx context.Context, globals *Globals) error {
	defer globals.setup(ctx)()

	cfg, err := c.resolveConfig()
	if err != nil {
		return err
	}

	log.Info().
		Str("dir", cfg.Dir).
		Str("product", cfg.Product).
		Msg("Starting certificate check")

	result, err := lifecycle.CreateCertificates(ctx, cfg.Lifecycle())
	if err != nil {
		return fmt.Errorf("failed to create certificates, TLS must stay disabled: %w", err)
	}

	printCreateSummary(cfg.Dir, result)

	return nil
}

// resolveConfig applies flags over the config file over the defaults.
func (c *CreateCmd) resolveConfig() (*config.Config, error) {
	cfg := config.Default()
	if c.Config != "" {
		loaded, err := config.Load(c.Config)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		cfg = loaded
	}

	if c.Dir != "" {
		cfg.Dir = c.Dir
	}
	if cfg.Dir == "" {
		cfg.Dir = defaultDir
	}
	if c.CustomSAN != "" {
		cfg.CustomSAN = c.CustomSAN
	}
	if c.Product != "" {
		cfg.Product = c.Product
	}

	return cfg, nil
}

func printCreateSummary(dir string, result *lifecycle.Result) {
	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("Certificates ready")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("\nDirectory: %s\n\n", dir)

	for _, out := range []lifecycle.Outcome{result.CA, result.Leaf} {
		fmt.Printf("%s (%s)\n", out.Name, out.State)
		fmt.Printf("  Subject:        %s\n", out.Subject)
		fmt.Printf("  Serial:         %s\n", out.Serial)
		fmt.Printf("  Not After:      %s\n", out.NotAfter.Format("2006-01-02 15:04:05 MST"))
		fmt.Printf("  Days Remaining: %d\n", out.DaysRemaining)
		fmt.Printf("  Fingerprint:    %s\n\n", out.Fingerprint)
	}
}
