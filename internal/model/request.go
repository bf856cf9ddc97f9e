// Package model provides the data structures describing HTTP requests being composed by
// a user, the immutable definitions sent over the wire, and captured exchanges.
//
// Headers are always an ordered list of raw name/value pairs so that a request can
// be reproduced exactly as it was written or captured.
package model

import (
	"fmt"
	"net/http"
)

// DefaultMethod is the method of a newly created [RequestInput].
const DefaultMethod = http.MethodGet

// ContentType is an editor hint describing how a request body should be displayed
// and edited. It is never sent anywhere.
type ContentType string

// Editor content types.
const (
	ContentTypeText       ContentType = "text"
	ContentTypeJSON       ContentType = "json"
	ContentTypeXML        ContentType = "xml"
	ContentTypeHTML       ContentType = "html"
	ContentTypeCSS        ContentType = "css"
	ContentTypeJavaScript ContentType = "javascript"
	ContentTypeMarkdown   ContentType = "markdown"
	ContentTypeYAML       ContentType = "yaml"
	ContentTypeBase64     ContentType = "base64"
)

// Valid reports whether c is one of the known editor content types.
func (c ContentType) Valid() bool {
	switch c {
	case ContentTypeText,
		ContentTypeJSON,
		ContentTypeXML,
		ContentTypeHTML,
		ContentTypeCSS,
		ContentTypeJavaScript,
		ContentTypeMarkdown,
		ContentTypeYAML,
		ContentTypeBase64:
		return true
	default:
		return false
	}
}

// RequestInput is a HTTP request being composed or edited by a user.
//
// Every field may be changed freely, there's no validation until the request is
// turned into a [RequestDefinition].
type RequestInput struct {
	// RawBody is the request body, bound to this request's headers
	RawBody *EditableBody

	// Method is the HTTP method e.g. "GET"
	Method string

	// URL is the target URL, not validated
	URL string

	// RequestContentType is the editor hint for the body
	RequestContentType ContentType

	// Headers are the request headers, in order
	Headers Headers
}

// NewRequestInput returns a new empty [RequestInput] with its body bound to the
// returned request's headers.
func NewRequestInput() *RequestInput {
	req := &RequestInput{
		Method:             DefaultMethod,
		Headers:            Headers{},
		RequestContentType: ContentTypeText,
	}

	req.RawBody = NewEditableBody(nil, req.headerLookup)

	return req
}

// SetBody replaces the request body with a new one holding decoded and
// bound to r's headers.
func (r *RequestInput) SetBody(decoded []byte) {
	r.RawBody = NewEditableBody(decoded, r.headerLookup)
}

// headerLookup is the [HeaderLookup] given to r's body.
func (r *RequestInput) headerLookup() Headers {
	return r.Headers
}

// RequestDefinition is the immutable, wire facing description of a request.
//
// It only contains what's needed to actually send the request, the body is the
// encoded form ready to be written to the connection.
type RequestDefinition struct {
	Method  string  `json:"method"`
	URL     string  `json:"url"`
	Headers Headers `json:"headers"`
	RawBody []byte  `json:"rawBody,omitempty"`
}

// Definition returns the [RequestDefinition] for r, encoding the body with
// the codings in r's current Content-Encoding header.
func (r *RequestInput) Definition() (RequestDefinition, error) {
	def := RequestDefinition{
		Method:  r.Method,
		URL:     r.URL,
		Headers: r.Headers.Clone(),
	}

	if r.RawBody == nil || len(r.RawBody.Decoded()) == 0 {
		return def, nil
	}

	encoded, err := r.RawBody.Encoded()
	if err != nil {
		return RequestDefinition{}, fmt.Errorf("could not encode request body: %w", err)
	}

	def.RawBody = encoded

	return def, nil
}
