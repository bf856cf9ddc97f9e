package snip

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"go.followtheprocess.codes/hue"
	"go.followtheprocess.codes/msg"
	"go.followtheprocess.codes/snip/internal/config"
	"go.followtheprocess.codes/snip/internal/model"
	"go.followtheprocess.codes/snip/internal/send"
)

// SendOptions are the options passed to the send subcommand.
type SendOptions struct {
	// Config is the path to the config file, empty means the default location.
	Config string

	// Proxy is the URL of a proxy to send the request through, overriding the config.
	Proxy string

	// Dir is the directory to save the HAR file in when HAR is set, empty means
	// the configured one.
	Dir string

	// DNS lists DNS servers to resolve hosts with, overriding the config.
	DNS []string

	// Timeout is the overall per-request timeout, zero means use the config.
	Timeout time.Duration

	// ConnectionTimeout is the per-request connection timeout, zero means use the config.
	ConnectionTimeout time.Duration

	// Saved means the argument is the ID of a saved request rather than a file.
	Saved bool

	// HAR saves the exchange as a HAR file once the response arrives.
	HAR bool

	// Insecure ignores TLS certificate errors for every host.
	Insecure bool

	// Debug enables debug logging.
	Debug bool
}

// Validate reports whether the SendOptions is valid, returning a non-nil
// error if it's not.
func (o SendOptions) Validate() error {
	switch {
	case o.Timeout < 0:
		return fmt.Errorf("--timeout must not be negative, got %s", o.Timeout)
	case o.ConnectionTimeout < 0:
		return fmt.Errorf("--connection-timeout must not be negative, got %s", o.ConnectionTimeout)
	case o.Timeout != 0 && o.ConnectionTimeout > o.Timeout:
		return fmt.Errorf("--connection-timeout (%s) cannot be larger than --timeout (%s)", o.ConnectionTimeout, o.Timeout)
	}

	if o.Proxy != "" {
		u, err := url.Parse(o.Proxy)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("--proxy %q must be an absolute URL e.g. http://localhost:8080", o.Proxy)
		}
	}

	return nil
}

// Send implements the send subcommand, sending a persisted or saved request and
// showing the response.
func (s Snip) Send(ctx context.Context, request string, options SendOptions) error {
	logger := s.logger.Prefixed("send").With(slog.String("request", request))

	logger.Debug("Send configuration", slog.String("options", fmt.Sprintf("%+v", options)))

	if err := options.Validate(); err != nil {
		return err
	}

	cfg, err := s.loadConfig(logger, options.Config)
	if err != nil {
		return err
	}

	name, def, err := s.resolveRequest(ctx, cfg, request, options.Saved)
	if err != nil {
		return err
	}

	client := send.New(s.logger, s.sendConfig(cfg, options))

	exchange, err := client.Send(ctx, def, requestOptions(cfg, options))
	if err != nil {
		return err
	}

	s.showExchange(name, exchange)

	if !options.HAR {
		return nil
	}

	if exchange.Aborted {
		msg.Fwarn(s.stderr, "Response was cut off, not saving %s as HAR", name)
		return nil
	}

	dir := options.Dir
	if dir == "" {
		dir = cfg.HARDir
	}

	path, err := s.saveHAR(s.creator(cfg), dir, name, exchange)
	if err != nil {
		return err
	}

	msg.Fsuccess(s.stdout, "Saved %s", path)

	return nil
}

// resolveRequest loads the request to send, returning a display name for it along
// with its definition.
func (s Snip) resolveRequest(ctx context.Context, cfg config.Config, request string, saved bool) (string, model.RequestDefinition, error) {
	if !saved {
		def, err := s.loadDefinition(s.logger, request)
		if err != nil {
			return "", model.RequestDefinition{}, err
		}

		return strings.TrimSuffix(filepath.Base(request), filepath.Ext(request)), def, nil
	}

	db, err := s.openStore(ctx, cfg)
	if err != nil {
		return "", model.RequestDefinition{}, err
	}
	defer db.Close()

	found, err := db.GetRequest(ctx, request)
	if err != nil {
		return "", model.RequestDefinition{}, err
	}

	def, err := found.Request.Definition()
	if err != nil {
		return "", model.RequestDefinition{}, fmt.Errorf("saved request %s is invalid: %w", found.Name, err)
	}

	return found.Name, def, nil
}

// sendConfig merges the command line options over the config file.
func (s Snip) sendConfig(cfg config.Config, options SendOptions) send.Config {
	conf := send.Config{
		UserAgent:         "go.followtheprocess.codes/snip " + s.version,
		Timeout:           cfg.Timeout,
		ConnectionTimeout: cfg.ConnectionTimeout,
	}

	if options.Timeout != 0 {
		conf.Timeout = options.Timeout
	}

	if options.ConnectionTimeout != 0 {
		conf.ConnectionTimeout = options.ConnectionTimeout
	}

	// A shorter --timeout drags the connection timeout down with it
	if conf.ConnectionTimeout > conf.Timeout {
		conf.ConnectionTimeout = conf.Timeout
	}

	return conf
}

// requestOptions merges the command line options over the config file.
func requestOptions(cfg config.Config, options SendOptions) model.RequestOptions {
	requestOptions := cfg.RequestOptions()

	if options.Insecure {
		requestOptions.IgnoreHostHTTPSErrors = model.HTTPSErrorPolicy{All: true}
	}

	if options.Proxy != "" {
		requestOptions.ProxyConfig = model.ProxySetting{ProxyURL: options.Proxy}
	}

	if len(options.DNS) != 0 {
		requestOptions.LookupOptions = model.LookupOptions{Servers: options.DNS}
	}

	return requestOptions
}

// showExchange prints the response in a user friendly way to s.stdout.
func (s Snip) showExchange(name string, exchange model.Exchange) {
	fmt.Fprintln(s.stdout)

	fmt.Fprintf(s.stdout, "%s: %s\n", hue.Bold.Text(name), dimmed.Text(exchange.Request.Method+" "+exchange.Request.URL))

	fmt.Fprintln(s.stdout, strings.Repeat("─", sepWidth)+"\n")

	res := exchange.Response
	if res == nil {
		fmt.Fprintln(s.stdout, failure.Text("No response"))
		return
	}

	status := fmt.Sprintf("%d %s", res.StatusCode, res.StatusMessage)
	info := dimmed.Text(fmt.Sprintf("%s in %s", bytefmt.ByteSize(uint64(len(res.Body))), exchange.Timing.Total().Round(time.Millisecond)))

	style := success
	if res.StatusCode >= http.StatusBadRequest {
		style = failure
	}

	fmt.Fprintf(s.stdout, "%s %s (%s)\n", hue.Bold.Text(res.HTTPVersion), style.Text(status), info)

	if exchange.Aborted {
		fmt.Fprintln(s.stdout, failure.Text("Response was cut off before the body was fully received"))
	}

	fmt.Fprintln(s.stdout) // Line space

	for _, header := range res.Headers {
		fmt.Fprintf(s.stdout, "%s: %s\n", headerKeyStyle.Text(header.Name), header.Value)
	}

	fmt.Fprintln(s.stdout) // Line space

	fmt.Fprintln(s.stdout, string(res.Body))
}
