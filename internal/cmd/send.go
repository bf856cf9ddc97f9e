package cmd

import (
	"context"

	"go.followtheprocess.codes/cli"
	"go.followtheprocess.codes/cli/flag"
	"go.followtheprocess.codes/snip/internal/snip"
)

const sendLong = `
The send command sends a persisted request and shows the response.

Request is the path to a persisted request file, or with '--saved', the ID of a
request stored with 'snip save'.

Timeouts, proxy, DNS and TLS settings come from the config file but may be
overridden with flags. Redirects are never followed.

With '--har' the exchange is also exported as a HAR file, unless the response
was cut off.
`

// send returns the snip send subcommand.
func send() (*cli.Command, error) {
	var (
		options snip.SendOptions
		request string
	)

	return cli.New(
		"send",
		cli.Short("Send a request and show the response"),
		cli.Long(sendLong),
		cli.Arg(&request, "request", "Persisted request file, or saved request ID with --saved"),
		cli.Flag(&options.Saved, "saved", 's', "Request is the ID of a saved request"),
		cli.Flag(&options.HAR, "har", flag.NoShortHand, "Save the exchange as a HAR file"),
		cli.Flag(&options.Dir, "dir", flag.NoShortHand, "Directory to save the HAR file in"),
		cli.Flag(&options.Insecure, "insecure", 'k', "Ignore TLS certificate errors"),
		cli.Flag(&options.Proxy, "proxy", flag.NoShortHand, "URL of a proxy to send the request through"),
		cli.Flag(&options.DNS, "dns", flag.NoShortHand, "DNS server(s) to resolve the host with"),
		cli.Flag(&options.Timeout, "timeout", flag.NoShortHand, "Timeout for the request"),
		cli.Flag(
			&options.ConnectionTimeout,
			"connection-timeout",
			flag.NoShortHand,
			"Connection timeout for the request",
		),
		cli.Flag(&options.Config, "config", flag.NoShortHand, "Path to the config file"),
		cli.Flag(&options.Debug, "debug", 'd', "Enable debug logging"),
		cli.Run(func(ctx context.Context, cmd *cli.Command) error {
			app := snip.New(options.Debug, version, cmd.Stdin(), cmd.Stdout(), cmd.Stderr())
			return app.Send(ctx, request, options)
		}),
	)
}
