// Package codec converts a [model.RequestInput] to and from its persisted form so that
// requests a user is composing can be saved and loaded later.
//
// The persisted form stores the headers as raw [name, value] pairs and the
// decoded body as base64 text. It can be written as JSON, YAML or TOML.
package codec

import (
	"encoding/base64"
	"fmt"

	"go.followtheprocess.codes/snip/internal/model"
)

// Persisted is the persisted form of a [model.RequestInput].
//
// Fields are pointers so that a field missing from a document can be told
// apart from one that is present but empty.
type Persisted struct {
	Method             *string     `json:"method"             toml:"method"             yaml:"method"`
	URL                *string     `json:"url"                toml:"url"                yaml:"url"`
	Headers            *[][]string `json:"headers"            toml:"headers"            yaml:"headers"`
	RawBody            *string     `json:"rawBody"            toml:"rawBody"            yaml:"rawBody"`
	RequestContentType string      `json:"requestContentType" toml:"requestContentType" yaml:"requestContentType"`
}

// DecodingError is returned when a persisted field holds data that cannot be decoded,
// most notably a body that isn't valid base64.
type DecodingError struct {
	Err   error  // The underlying error
	Field string // The persisted field that failed to decode
}

// Error implements the error interface for [DecodingError].
func (e *DecodingError) Error() string {
	return fmt.Sprintf("could not decode %s: %v", e.Field, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodingError) Unwrap() error {
	return e.Err
}

// MissingFieldError is returned when a required persisted field is absent.
type MissingFieldError struct {
	Field string // Name of the missing field
}

// Error implements the error interface for [MissingFieldError].
func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("persisted request is missing required field %q", e.Field)
}

// Serialize returns the persisted form of req, it cannot fail.
func Serialize(req *model.RequestInput) Persisted {
	method := req.Method
	url := req.URL
	headers := req.Headers.Raw()

	var decoded []byte
	if req.RawBody != nil {
		decoded = req.RawBody.Decoded()
	}

	body := base64.StdEncoding.EncodeToString(decoded)

	return Persisted{
		Method:             &method,
		URL:                &url,
		Headers:            &headers,
		RequestContentType: string(req.RequestContentType),
		RawBody:            &body,
	}
}

// Deserialize builds a brand new [model.RequestInput] from its persisted form.
//
// The body of the returned request is bound to the returned request's headers,
// never to those of whatever request was originally serialized.
func Deserialize(p Persisted) (*model.RequestInput, error) {
	switch {
	case p.Method == nil:
		return nil, &MissingFieldError{Field: "method"}
	case p.URL == nil:
		return nil, &MissingFieldError{Field: "url"}
	case p.Headers == nil:
		return nil, &MissingFieldError{Field: "headers"}
	case p.RawBody == nil:
		return nil, &MissingFieldError{Field: "rawBody"}
	}

	headers, err := model.FromRaw(*p.Headers)
	if err != nil {
		return nil, &DecodingError{Field: "headers", Err: err}
	}

	body, err := base64.StdEncoding.DecodeString(*p.RawBody)
	if err != nil {
		return nil, &DecodingError{Field: "rawBody", Err: err}
	}

	contentType := model.ContentType(p.RequestContentType)
	if contentType == "" {
		contentType = model.ContentTypeText
	}

	req := model.NewRequestInput()
	req.Method = *p.Method
	req.URL = *p.URL
	req.Headers = headers
	req.RequestContentType = contentType
	req.SetBody(body)

	return req, nil
}
