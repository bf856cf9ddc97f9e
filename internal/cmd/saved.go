package cmd

import (
	"context"

	"go.followtheprocess.codes/cli"
	"go.followtheprocess.codes/cli/flag"
	"go.followtheprocess.codes/snip/internal/snip"
)

// save returns the snip save subcommand.
func save() (*cli.Command, error) {
	var (
		options snip.SaveOptions
		file    string
	)

	return cli.New(
		"save",
		cli.Short("Store a persisted request in the database"),
		cli.Arg(&file, "file", "Persisted request file"),
		cli.Flag(&options.Name, "name", 'n', "Name to save the request under"),
		cli.Flag(&options.Config, "config", flag.NoShortHand, "Path to the config file"),
		cli.Flag(&options.Debug, "debug", 'd', "Enable debug logging"),
		cli.Run(func(ctx context.Context, cmd *cli.Command) error {
			app := snip.New(options.Debug, version, cmd.Stdin(), cmd.Stdout(), cmd.Stderr())
			return app.Save(ctx, file, options)
		}),
	)
}

// saved returns the snip saved subcommand.
func saved() (*cli.Command, error) {
	var options snip.SavedOptions

	return cli.New(
		"saved",
		cli.Short("List, export or delete saved requests"),
		cli.Flag(&options.Export, "export", flag.NoShortHand, "ID of a saved request to print"),
		cli.Flag(&options.Format, "format", 'f', "Format to export in (json, yaml, toml)", cli.FlagDefault("json")),
		cli.Flag(&options.Delete, "delete", flag.NoShortHand, "ID of a saved request to delete"),
		cli.Flag(&options.Config, "config", flag.NoShortHand, "Path to the config file"),
		cli.Flag(&options.Debug, "debug", 'd', "Enable debug logging"),
		cli.Run(func(ctx context.Context, cmd *cli.Command) error {
			app := snip.New(options.Debug, version, cmd.Stdin(), cmd.Stdout(), cmd.Stderr())
			return app.Saved(ctx, options)
		}),
	)
}
