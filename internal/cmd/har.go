package cmd

import (
	"context"

	"go.followtheprocess.codes/cli"
	"go.followtheprocess.codes/cli/flag"
	"go.followtheprocess.codes/snip/internal/snip"
)

const harLong = `
The har command exports a single exchange to a new HAR 1.2 file.

Only exchanges with a complete response can be exported, so file must be a HAR
file (use '--entry' to choose the entry). A persisted request has never been
sent, use 'snip send --har' to send it and export the result in one go.

Existing files are never overwritten, if <name>.har exists then <name>.har.1,
<name>.har.2 etc. are used instead.
`

// har returns the snip har subcommand.
func har() (*cli.Command, error) {
	var (
		options snip.HAROptions
		file    string
	)

	return cli.New(
		"har",
		cli.Short("Export an exchange as a HAR file"),
		cli.Long(harLong),
		cli.Arg(&file, "file", "HAR file to export from"),
		cli.Flag(&options.Entry, "entry", 'e', "Index of the HAR entry to export"),
		cli.Flag(&options.Dir, "dir", flag.NoShortHand, "Directory to save the HAR file in"),
		cli.Flag(&options.Name, "name", 'n', "Name of the HAR file, without extension"),
		cli.Flag(&options.Config, "config", flag.NoShortHand, "Path to the config file"),
		cli.Flag(&options.Debug, "debug", 'd', "Enable debug logging"),
		cli.Run(func(ctx context.Context, cmd *cli.Command) error {
			app := snip.New(options.Debug, version, cmd.Stdin(), cmd.Stdout(), cmd.Stderr())
			return app.HAR(ctx, file, options)
		}),
	)
}
