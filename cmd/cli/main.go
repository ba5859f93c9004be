package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/localtls/cmd/cli/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Create    commands.CreateCmd  `cmd:"" help:"Create or rotate the CA and server certificate"`
		Cleanup   commands.CleanupCmd `cmd:"" help:"Remove a key pair"`
		Inspect   commands.InspectCmd `cmd:"" help:"Show the certificates in a directory"`
		Verify    commands.VerifyCmd  `cmd:"" help:"Check the server certificate chains to the CA"`
		Debug     bool                `help:"Enable debug mode."`
		Telemetry bool                `help:"Export traces and metrics over OTLP." env:"LOCALTLS_TELEMETRY"`
		Version   kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("localtls"),
		kong.Description("Private CA and server certificate management"),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Telemetry: cli.Telemetry, Version: version})
	cmd.FatalIfErrorf(err)
}
