package cmd

import (
	"context"

	"go.followtheprocess.codes/cli"
	"go.followtheprocess.codes/cli/flag"
	"go.followtheprocess.codes/snip/internal/snip"
)

const snippetLong = `
The snippet command turns a request into source code for a client library
e.g. a curl command line, a fetch call or a python requests script.

File is either a persisted request (.json, .yaml or .toml) or a HAR file, in
the latter case '--entry' chooses which entry to use.

The format is a key of the form <target>~~<client>, see 'snip formats' for the
full list. Without '--format' the last remembered format is used, which is curl
until told otherwise by '--remember' or '--pick'.

If a snippet can't be generated for the request, a placeholder is shown and the
reason is logged.
`

// formats returns the snip formats subcommand.
func formats() (*cli.Command, error) {
	var options snip.FormatsOptions

	return cli.New(
		"formats",
		cli.Short("List the available snippet formats"),
		cli.Flag(&options.Config, "config", flag.NoShortHand, "Path to the config file"),
		cli.Flag(&options.Debug, "debug", 'd', "Enable debug logging"),
		cli.Run(func(ctx context.Context, cmd *cli.Command) error {
			app := snip.New(options.Debug, version, cmd.Stdin(), cmd.Stdout(), cmd.Stderr())
			return app.Formats(ctx, options)
		}),
	)
}

// snippet returns the snip snippet subcommand.
func snippet() (*cli.Command, error) {
	var (
		options snip.SnippetOptions
		file    string
	)

	return cli.New(
		"snippet",
		cli.Short("Generate a code snippet for a request"),
		cli.Long(snippetLong),
		cli.Arg(&file, "file", "Persisted request or HAR file"),
		cli.Flag(&options.Format, "format", 'f', "Snippet format e.g. shell~~curl"),
		cli.Flag(&options.Entry, "entry", 'e', "Index of the HAR entry to use"),
		cli.Flag(&options.All, "all", 'a', "Generate a snippet in every format"),
		cli.Flag(&options.Pick, "pick", 'p', "Choose the format interactively"),
		cli.Flag(&options.Remember, "remember", 'r', "Remember the format for next time"),
		cli.Flag(&options.Config, "config", flag.NoShortHand, "Path to the config file"),
		cli.Flag(&options.Debug, "debug", 'd', "Enable debug logging"),
		cli.Run(func(ctx context.Context, cmd *cli.Command) error {
			app := snip.New(options.Debug, version, cmd.Stdin(), cmd.Stdout(), cmd.Stderr())
			return app.Snippet(ctx, file, options)
		}),
	)
}
