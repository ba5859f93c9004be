package commands

import (
	"context"
	"fmt"

	"github.com/wolfeidau/localtls/internal/lifecycle"
)

// CleanupCmd removes a key pair so the next create issues a new one.
type CleanupCmd struct {
	Name string `arg:"" help:"key pair to remove" enum:"ca,server"`
	Dir  string `help:"certificate directory" default:"ssl" env:"LOCALTLS_DIR"`
}

func (c *CleanupCmd) Run(ctx context.Context, globals *Globals) error {
	defer globals.setup(ctx)()

	if err := lifecycle.CleanupCertificates(ctx, lifecycle.DefaultConfig(c.Dir), c.Name); err != nil {
		return fmt.Errorf("failed to clean up %s: %w", c.Name, err)
	}

	fmt.Printf("Removed %s key pair from %s\n", c.Name, c.Dir)
	return nil
}
