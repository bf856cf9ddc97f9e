// Package send dispatches request definitions over HTTP and captures the result
// as a [model.Exchange], complete with timings.
package send

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.followtheprocess.codes/log"
	"go.followtheprocess.codes/snip/internal/model"
)

// HTTP config.
const (
	// DefaultTimeout is the default amount of time allowed for the entire request/response
	// cycle for a single request.
	DefaultTimeout = 30 * time.Second

	// DefaultConnectionTimeout is the default amount of time allowed for the HTTP connection/TLS handshake
	// for a single request.
	DefaultConnectionTimeout = 10 * time.Second

	maxIdleConns          = 100
	idleConnTimeout       = 90 * time.Second
	expectContinueTimeout = 1 * time.Second
)

// Config configures a [Client].
type Config struct {
	// UserAgent is sent when the request doesn't set its own
	UserAgent string

	// Timeout is the overall per-request timeout
	Timeout time.Duration

	// ConnectionTimeout bounds dialing and the TLS handshake
	ConnectionTimeout time.Duration
}

// Client sends requests and captures exchanges.
type Client struct {
	logger *log.Logger
	config Config
}

// New returns a new [Client], zero timeouts in config take the defaults.
func New(logger *log.Logger, config Config) *Client {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	if config.ConnectionTimeout <= 0 {
		config.ConnectionTimeout = DefaultConnectionTimeout
	}

	return &Client{
		logger: logger.Prefixed("send"),
		config: config,
	}
}

// Send sends the request described by def using options and returns the captured exchange.
//
// Redirects are not followed, an exchange is always a single hop. If the context is
// cancelled (or times out) after the response headers arrived, the exchange is
// returned marked as aborted along with whatever of the body was read.
func (c *Client) Send(ctx context.Context, def model.RequestDefinition, options model.RequestOptions) (model.Exchange, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	target, err := url.Parse(def.URL)
	if err != nil {
		return model.Exchange{}, fmt.Errorf("HTTP request %s %s is invalid: %w", def.Method, def.URL, err)
	}

	client, err := c.httpClient(options, target.Hostname())
	if err != nil {
		return model.Exchange{}, err
	}
	defer client.CloseIdleConnections()

	headers := def.Headers.Clone()
	if !headers.Has("User-Agent") && c.config.UserAgent != "" {
		headers.Add("User-Agent", c.config.UserAgent)
	}

	tracer := newTracer()
	ctx = httptrace.WithClientTrace(ctx, tracer.trace())

	req, err := http.NewRequestWithContext(ctx, def.Method, def.URL, bytes.NewReader(def.RawBody))
	if err != nil {
		return model.Exchange{}, fmt.Errorf("HTTP request %s %s is invalid: %w", def.Method, def.URL, err)
	}

	for _, header := range headers {
		req.Header.Add(header.Name, header.Value)
	}

	// net/http only honours Host through the request itself
	if host := headers.Get("Host"); host != "" {
		req.Host = host
	}

	c.logger.Debug(
		"Sending request",
		slog.String("method", def.Method),
		slog.String("url", def.URL),
		slog.Int("headers", len(headers)),
		slog.Int("body", len(def.RawBody)),
	)

	res, err := client.Do(req)
	if err != nil {
		return model.Exchange{}, fmt.Errorf("HTTP response error: %w", err)
	}
	defer res.Body.Close()

	raw, readErr := io.ReadAll(res.Body)
	tracer.done()

	aborted := false

	if readErr != nil {
		if ctx.Err() == nil {
			return model.Exchange{}, fmt.Errorf("could not read HTTP response body: %w", readErr)
		}

		c.logger.Warn("Response aborted", slog.String("url", def.URL), slog.String("cause", ctx.Err().Error()))

		aborted = true
	}

	exchange := model.Exchange{
		ID: uuid.NewString(),
		Request: model.Request{
			Method:      def.Method,
			URL:         def.URL,
			HTTPVersion: res.Proto,
			Headers:     headers,
			Body:        c.decode(def.RawBody, headers.Get("Content-Encoding")),
		},
		Response: &model.Response{
			StatusCode:    res.StatusCode,
			StatusMessage: statusMessage(res),
			HTTPVersion:   res.Proto,
			Headers:       model.FromHTTP(res.Header),
			Body:          c.decode(raw, res.Header.Get("Content-Encoding")),
			EncodedLength: len(raw),
		},
		Timing:  tracer.timing(),
		Aborted: aborted,
	}

	c.logger.Debug(
		"Received HTTP response",
		slog.String("url", def.URL),
		slog.Int("status", res.StatusCode),
		slog.String("content-type", res.Header.Get("Content-Type")),
		slog.Duration("duration", exchange.Timing.Total()),
	)

	return exchange, nil
}

// decode undoes the content encoding of a body, falling back to the body as is
// if it can't be decoded.
func (c *Client) decode(body []byte, contentEncoding string) []byte {
	decoded, err := model.DecodeBody(body, contentEncoding)
	if err != nil {
		c.logger.Warn("Could not decode body", slog.String("encoding", contentEncoding), slog.String("error", err.Error()))
		return body
	}

	return decoded
}

// httpClient builds a fresh [http.Client] for sending options to host.
func (c *Client) httpClient(options model.RequestOptions, host string) (*http.Client, error) {
	proxy, err := resolveProxy(options.ProxyConfig)
	if err != nil {
		return nil, err
	}

	proxyFunc, err := proxy.transportFunc()
	if err != nil {
		return nil, err
	}

	tlsConfig, err := c.tlsConfig(options, proxy, host)
	if err != nil {
		return nil, err
	}

	dialer := &net.Dialer{
		Timeout:   c.config.ConnectionTimeout,
		KeepAlive: c.config.Timeout,
		Resolver:  c.resolver(options.LookupOptions),
	}

	transport := &http.Transport{
		Proxy:                 proxyFunc,
		DialContext:           dialer.DialContext,
		TLSClientConfig:       tlsConfig,
		MaxIdleConns:          maxIdleConns,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   c.config.ConnectionTimeout,
		ExpectContinueTimeout: expectContinueTimeout,
		ForceAttemptHTTP2:     true,
		MaxIdleConnsPerHost:   http.DefaultMaxIdleConnsPerHost,
		// Bodies are captured exactly as sent, then decoded ourselves
		DisableCompression: true,
	}

	return &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}, nil
}

// resolver returns a DNS resolver using the configured servers, or nil for
// the system resolver.
func (c *Client) resolver(options model.LookupOptions) *net.Resolver {
	if len(options.Servers) == 0 {
		return nil
	}

	servers := make([]string, 0, len(options.Servers))
	for _, server := range options.Servers {
		if _, _, err := net.SplitHostPort(server); err != nil {
			server = net.JoinHostPort(server, "53")
		}

		servers = append(servers, server)
	}

	c.logger.Debug("Using custom DNS servers", slog.Any("servers", servers))

	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			dialer := net.Dialer{Timeout: c.config.ConnectionTimeout}

			var errs []error

			for _, server := range servers {
				conn, err := dialer.DialContext(ctx, network, server)
				if err == nil {
					return conn, nil
				}

				errs = append(errs, err)
			}

			return nil, fmt.Errorf("no DNS server reachable: %w", errors.Join(errs...))
		},
	}
}

// statusMessage returns the reason phrase of the response, res.Status
// includes the code.
func statusMessage(res *http.Response) string {
	prefix := fmt.Sprintf("%d ", res.StatusCode)
	if len(res.Status) > len(prefix) && res.Status[:len(prefix)] == prefix {
		return res.Status[len(prefix):]
	}

	return http.StatusText(res.StatusCode)
}
