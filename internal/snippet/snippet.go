// Package snippet turns captured HTTP exchanges into source code that reproduces the
// request using a particular client library e.g. a curl command line, a fetch call
// or a python requests script.
//
// Every supported (target, client) pair is an [Option] held in a [Registry] under a
// stable key. Generation is deterministic: the same exchange and option always
// produce byte identical output.
package snippet

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.followtheprocess.codes/snip/internal/model"
)

// Placeholder is the text shown in place of a snippet that could not be generated.
const Placeholder = `Could not generate a snippet for this request

Is this unexpected? Please file a bug, including the request if you can.
`

// Generator failures.
var (
	// ErrInvalidRequest means the request has no method or a URL that
	// can't be parsed into an absolute URL.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUnsupportedMethod means the client library cannot send requests
	// with the request's method.
	ErrUnsupportedMethod = errors.New("method not supported by this client")

	// ErrBinaryBody means the request body is not text and the client
	// idiom can only express text bodies.
	ErrBinaryBody = errors.New("binary request bodies are not supported by this client")

	// ErrBodyNotAllowed means the client library refuses to send a body
	// with the request's method.
	ErrBodyNotAllowed = errors.New("request body not allowed for this method by this client")
)

// Generator turns a request into source code.
type Generator func(req Request) (string, error)

// Request is the request a [Generator] works from, validated and normalised
// from an [model.Exchange].
type Request struct {
	// URL is the parsed, absolute request URL
	URL *url.URL

	// Method is the HTTP method, case is preserved
	Method string

	// RawURL is the URL exactly as captured
	RawURL string

	// Headers are the headers to send, in order
	Headers model.Headers

	// Body is the decoded request body, nil if there isn't one
	Body []byte
}

// newRequest validates and normalises the request in an exchange.
//
// Headers that the client libraries compute themselves are dropped: HTTP/2
// pseudo headers and Content-Length always, Content-Encoding whenever there's
// a body because the body here is always decoded.
func newRequest(exchange model.Exchange) (Request, error) {
	method := strings.TrimSpace(exchange.Request.Method)
	if method == "" {
		return Request{}, fmt.Errorf("%w: no method", ErrInvalidRequest)
	}

	if !isToken(method) {
		return Request{}, fmt.Errorf("%w: method %q is not a valid token", ErrInvalidRequest, method)
	}

	u, err := url.Parse(exchange.Request.URL)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	if u.Scheme == "" || u.Host == "" {
		return Request{}, fmt.Errorf("%w: URL %q is not absolute", ErrInvalidRequest, exchange.Request.URL)
	}

	body := exchange.Request.Body
	if len(body) == 0 {
		body = nil
	}

	headers := make(model.Headers, 0, len(exchange.Request.Headers))

	for _, header := range exchange.Request.Headers {
		switch {
		case strings.HasPrefix(header.Name, ":"):
			continue
		case strings.EqualFold(header.Name, "Content-Length"):
			continue
		case body != nil && strings.EqualFold(header.Name, "Content-Encoding"):
			continue
		}

		if strings.ContainsAny(header.Name, "\r\n\x00") || strings.ContainsAny(header.Value, "\r\n\x00") {
			return Request{}, fmt.Errorf("%w: header %q contains a line break or NUL", ErrInvalidRequest, header.Name)
		}

		headers = append(headers, header)
	}

	return Request{
		URL:     u,
		Method:  method,
		RawURL:  exchange.Request.URL,
		Headers: headers,
		Body:    body,
	}, nil
}

// GenerationError is returned when an [Option] fails to generate a snippet.
type GenerationError struct {
	Err    error  // The underlying failure
	Target string // Target of the option that failed
	Client string // Client of the option that failed
}

// Error implements the error interface for [GenerationError].
func (e *GenerationError) Error() string {
	return fmt.Sprintf("could not generate %s snippet for %s: %v", e.Client, e.Target, e.Err)
}

// Unwrap returns the underlying error.
func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Generate produces the snippet text for exchange using option.
//
// Any failure is returned as a [*GenerationError].
func Generate(exchange model.Exchange, option Option) (string, error) {
	fail := func(err error) error {
		return &GenerationError{Target: option.Target, Client: option.Client, Err: err}
	}

	if option.Generate == nil {
		return "", fail(errors.New("option has no generator"))
	}

	req, err := newRequest(exchange)
	if err != nil {
		return "", fail(err)
	}

	text, err := option.Generate(req)
	if err != nil {
		return "", fail(err)
	}

	return text, nil
}

// Reporter receives snippet generation failures, it must not block.
type Reporter interface {
	Report(err error)
}

// ReporterFunc adapts a plain function to a [Reporter].
type ReporterFunc func(err error)

// Report implements [Reporter] for [ReporterFunc].
func (f ReporterFunc) Report(err error) {
	f(err)
}

// Snippet is a generated snippet ready for display.
type Snippet struct {
	Key      string `json:"key"`      // Key of the option that produced it
	Text     string `json:"text"`     // The snippet itself, or Placeholder
	Language string `json:"language"` // Syntax highlighting language
}

// Render produces the snippet for exchange using option and never fails.
//
// If generation fails (or the generator panics) the snippet text is [Placeholder] and
// the [*GenerationError] is passed to reporter, which may be nil.
func Render(exchange model.Exchange, option Option, reporter Reporter) Snippet {
	text, err := generateRecovered(exchange, option)
	if err != nil {
		if reporter != nil {
			reporter.Report(err)
		}

		text = Placeholder
	}

	return Snippet{
		Key:      option.Key(),
		Text:     text,
		Language: option.Language(),
	}
}

// generateRecovered calls [Generate], turning a panic in the generator into an error.
func generateRecovered(exchange model.Exchange, option Option) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &GenerationError{
				Target: option.Target,
				Client: option.Client,
				Err:    fmt.Errorf("generator panicked: %v", r),
			}
		}
	}()

	return Generate(exchange, option)
}
