package cmd

import (
	"context"

	"go.followtheprocess.codes/cli"
	"go.followtheprocess.codes/cli/flag"
	"go.followtheprocess.codes/snip/internal/server"
	"go.followtheprocess.codes/snip/internal/snip"
)

const serveLong = `
The serve command runs a JSON API over snippet generation and HAR export.

  GET  /formats           The available snippet formats and the selected one
  POST /snippet           Generate a snippet for the HAR entry in the body,
                          '?format=' overrides the selected format
  POST /har               Export the HAR entry in the body as a HAR document
  GET  /settings/format   The selected snippet format
  PUT  /settings/format   Change the selected snippet format

The server stops on Ctrl+C.
`

// serve returns the snip serve subcommand.
func serve() (*cli.Command, error) {
	var options snip.ServeOptions

	return cli.New(
		"serve",
		cli.Short("Serve the HTTP API"),
		cli.Long(serveLong),
		cli.Flag(&options.Addr, "addr", flag.NoShortHand, "Address to listen on", cli.FlagDefault(server.DefaultAddr)),
		cli.Flag(&options.Config, "config", flag.NoShortHand, "Path to the config file"),
		cli.Flag(&options.Debug, "debug", 'd', "Enable debug logging"),
		cli.Run(func(ctx context.Context, cmd *cli.Command) error {
			app := snip.New(options.Debug, version, cmd.Stdin(), cmd.Stdout(), cmd.Stderr())
			return app.Serve(ctx, options)
		}),
	)
}
