// Package cmd implements snip's CLI.
package cmd

import (
	"go.followtheprocess.codes/cli"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

// Build builds and returns the snip CLI.
func Build() (*cli.Command, error) {
	return cli.New(
		"snip",
		cli.Short("Turn HTTP requests into code snippets and HAR files"),
		cli.Version(version),
		cli.Commit(commit),
		cli.BuildDate(date),
		cli.Example("Show a curl command for a saved request file", "snip snippet ./request.json"),
		cli.Example("Use python requests from now on", "snip snippet ./request.json --format python~~requests --remember"),
		cli.Example("Render the second entry of a browser capture in every format", "snip snippet ./capture.har --entry 1 --all"),
		cli.Example("Send a request and keep the exchange as HAR", "snip send ./request.yaml --har --dir ./exports"),
		cli.Example("Serve the JSON API", "snip serve --addr localhost:7878"),
		cli.SubCommands(formats, snippet, har, send, save, saved, serve),
	)
}
