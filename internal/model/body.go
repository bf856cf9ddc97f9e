package model

import (
	"fmt"
	"mime"
	"slices"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// HeaderLookup returns the current headers of whatever owns a body.
type HeaderLookup func() Headers

// EditableBody is a request body being composed or edited by a user.
//
// It holds the decoded bytes (what the user sees and edits) and a lookup function
// returning the owner's headers at the moment they are needed. Anything that depends
// on the headers, like applying the Content-Encoding or decoding the charset, always
// sees the owner's current headers rather than a copy taken when the body was built.
type EditableBody struct {
	headers HeaderLookup
	decoded []byte
}

// NewEditableBody returns an [EditableBody] holding decoded, whose headers
// are fetched with lookup whenever they're needed.
//
// A nil lookup behaves as if the owner has no headers.
func NewEditableBody(decoded []byte, lookup HeaderLookup) *EditableBody {
	return &EditableBody{
		decoded: slices.Clone(decoded),
		headers: lookup,
	}
}

// Decoded returns the decoded body bytes.
func (b *EditableBody) Decoded() []byte {
	return b.decoded
}

// SetDecoded replaces the decoded body.
func (b *EditableBody) SetDecoded(decoded []byte) {
	b.decoded = slices.Clone(decoded)
}

// Headers returns the owner's current headers.
func (b *EditableBody) Headers() Headers {
	if b.headers == nil {
		return nil
	}

	return b.headers()
}

// Encoded returns the body as it should be sent on the wire, i.e. with the
// codings from the owner's current Content-Encoding header applied.
func (b *EditableBody) Encoded() ([]byte, error) {
	return EncodeBody(b.decoded, b.Headers().Get("Content-Encoding"))
}

// Text returns the decoded body as a string, interpreting the bytes using the charset
// declared in the owner's current Content-Type header. UTF-8 is assumed when there
// is no declared charset.
func (b *EditableBody) Text() (string, error) {
	charset := Charset(b.Headers().Get("Content-Type"))
	if charset == "" || charset == "utf-8" || charset == "utf8" || charset == "us-ascii" {
		return string(b.decoded), nil
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return "", fmt.Errorf("unknown charset %q: %w", charset, err)
	}

	text, err := enc.NewDecoder().Bytes(b.decoded)
	if err != nil {
		return "", fmt.Errorf("could not decode body as %s: %w", charset, err)
	}

	return string(text), nil
}

// Charset returns the lower cased charset parameter of a Content-Type header value,
// or "" if there isn't one or the header doesn't parse.
func Charset(contentType string) string {
	if contentType == "" {
		return ""
	}

	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}

	return strings.ToLower(params["charset"])
}

// MediaType returns the media type of a Content-Type header value without any
// parameters, or "" if it doesn't parse.
func MediaType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}

	return mediaType
}
