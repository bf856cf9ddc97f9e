// Package har converts captured exchanges to and from HAR 1.2 (HTTP Archive) documents.
//
// See http://www.softwareishard.com/blog/har-12-spec/ for the format.
package har

import (
	"encoding/base64"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"time"
	"unicode/utf8"

	"go.followtheprocess.codes/snip/internal/model"
)

// Version is the HAR version written to every document.
const Version = "1.2"

// TimeFormat is the layout of an entry's startedDateTime.
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

// EncodingBase64 marks a body that isn't text and so is base64 encoded.
const EncodingBase64 = "base64"

// unknown is the HAR value for a size or timing that is not known.
const unknown = -1

// Document is a complete HAR file.
type Document struct {
	Log Log `json:"log"`
}

// Log is the root of a HAR document.
type Log struct {
	Version string  `json:"version"`
	Creator Creator `json:"creator"`
	Comment string  `json:"comment,omitempty"`
	Entries []Entry `json:"entries"`
}

// Creator names the application that wrote the document.
type Creator struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Entry is a single exchange.
type Entry struct {
	StartedDateTime string   `json:"startedDateTime"`
	Connection      string   `json:"connection,omitempty"`
	Comment         string   `json:"comment,omitempty"`
	Cache           Cache    `json:"cache"`
	Request         Request  `json:"request"`
	Response        Response `json:"response"`
	Timings         Timings  `json:"timings"`
	Time            float64  `json:"time"`
}

// Cache is always empty, nothing is cached.
type Cache struct{}

// Request is the request half of an entry.
type Request struct {
	PostData    *PostData   `json:"postData,omitempty"`
	Method      string      `json:"method"`
	URL         string      `json:"url"`
	HTTPVersion string      `json:"httpVersion"`
	Cookies     []Cookie    `json:"cookies"`
	Headers     []NameValue `json:"headers"`
	QueryString []NameValue `json:"queryString"`
	HeadersSize int         `json:"headersSize"`
	BodySize    int         `json:"bodySize"`
}

// PostData is the body of a request.
//
// HAR has no way to say a request body is binary, so binary bodies are base64
// encoded and marked with the custom _encoding field.
type PostData struct {
	MimeType string      `json:"mimeType"`
	Text     string      `json:"text"`
	Encoding string      `json:"_encoding,omitempty"`
	Params   []NameValue `json:"params,omitempty"`
}

// Response is the response half of an entry.
type Response struct {
	StatusText  string      `json:"statusText"`
	HTTPVersion string      `json:"httpVersion"`
	RedirectURL string      `json:"redirectURL"`
	Cookies     []Cookie    `json:"cookies"`
	Headers     []NameValue `json:"headers"`
	Content     Content     `json:"content"`
	Status      int         `json:"status"`
	HeadersSize int         `json:"headersSize"`
	BodySize    int         `json:"bodySize"`
}

// Content is the decoded body of a response.
type Content struct {
	MimeType    string `json:"mimeType"`
	Text        string `json:"text,omitempty"`
	Encoding    string `json:"encoding,omitempty"`
	Size        int    `json:"size"`
	Compression int    `json:"compression,omitempty"`
}

// NameValue is a header, query parameter or form parameter.
type NameValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Cookie is a request or response cookie.
type Cookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Path     string `json:"path,omitempty"`
	Domain   string `json:"domain,omitempty"`
	Expires  string `json:"expires,omitempty"`
	HTTPOnly bool   `json:"httpOnly,omitempty"`
	Secure   bool   `json:"secure,omitempty"`
}

// Timings are the durations, in milliseconds, of each phase of the exchange.
// Optional phases that weren't measured are -1.
type Timings struct {
	Blocked float64 `json:"blocked"`
	DNS     float64 `json:"dns"`
	Connect float64 `json:"connect"`
	SSL     float64 `json:"ssl"`
	Send    float64 `json:"send"`
	Wait    float64 `json:"wait"`
	Receive float64 `json:"receive"`
}

// PreconditionError is returned when building a document from an exchange that
// cannot be exported, see [Exportable].
type PreconditionError struct {
	ID     string // ID of the offending exchange, may be empty
	Reason string // Why it can't be exported
}

// Error implements the error interface for [PreconditionError].
func (e *PreconditionError) Error() string {
	if e.ID == "" {
		return "exchange cannot be exported as HAR: " + e.Reason
	}

	return fmt.Sprintf("exchange %s cannot be exported as HAR: %s", e.ID, e.Reason)
}

// Exportable reports whether exchange can be exported as HAR, it needs a
// response and must not have been aborted.
func Exportable(exchange model.Exchange) bool {
	return exchange.Completed()
}

// Build returns a HAR document containing an entry for each exchange.
//
// Every exchange must be [Exportable], otherwise a [*PreconditionError] is returned
// and no document is built.
func Build(creator Creator, exchanges ...model.Exchange) (Document, error) {
	entries := make([]Entry, 0, len(exchanges))

	for _, exchange := range exchanges {
		switch {
		case exchange.Response == nil:
			return Document{}, &PreconditionError{ID: exchange.ID, Reason: "it has no response"}
		case exchange.Aborted:
			return Document{}, &PreconditionError{ID: exchange.ID, Reason: "it was aborted"}
		}

		entries = append(entries, newEntry(exchange))
	}

	return Document{
		Log: Log{
			Version: Version,
			Creator: creator,
			Entries: entries,
		},
	}, nil
}

// newEntry converts a completed exchange to an Entry.
func newEntry(exchange model.Exchange) Entry {
	timing := exchange.Timing

	return Entry{
		StartedDateTime: timing.StartedAt.Format(TimeFormat),
		Time:            millis(timing.Total()),
		Request:         newRequest(exchange.Request),
		Response:        newResponse(*exchange.Response),
		Timings: Timings{
			Blocked: optional(timing.Blocked),
			DNS:     optional(timing.DNS),
			Connect: optional(timing.Connect),
			SSL:     optional(timing.TLS),
			Send:    required(timing.Send),
			Wait:    required(timing.Wait),
			Receive: required(timing.Receive),
		},
		Comment: exchange.ID,
	}
}

func newRequest(req model.Request) Request {
	out := Request{
		Method:      req.Method,
		URL:         req.URL,
		HTTPVersion: req.HTTPVersion,
		Cookies:     requestCookies(req.Headers),
		Headers:     nameValues(req.Headers),
		QueryString: queryString(req.URL),
		HeadersSize: unknown,
		BodySize:    0,
	}

	if len(req.Body) == 0 {
		return out
	}

	contentType := req.Headers.Get("Content-Type")

	out.PostData = &PostData{MimeType: contentType}
	out.BodySize = unknown

	if encoded, err := model.EncodeBody(req.Body, req.Headers.Get("Content-Encoding")); err == nil {
		out.BodySize = len(encoded)
	}

	if !utf8.Valid(req.Body) {
		out.PostData.Text = base64.StdEncoding.EncodeToString(req.Body)
		out.PostData.Encoding = EncodingBase64

		return out
	}

	out.PostData.Text = string(req.Body)

	if model.MediaType(contentType) == "application/x-www-form-urlencoded" {
		if form, err := url.ParseQuery(out.PostData.Text); err == nil {
			out.PostData.Params = sortedValues(form)
		}
	}

	return out
}

func newResponse(res model.Response) Response {
	out := Response{
		Status:      res.StatusCode,
		StatusText:  res.StatusMessage,
		HTTPVersion: res.HTTPVersion,
		Cookies:     responseCookies(res.Headers),
		Headers:     nameValues(res.Headers),
		RedirectURL: res.Headers.Get("Location"),
		HeadersSize: unknown,
		BodySize:    res.EncodedLength,
		Content: Content{
			Size:     len(res.Body),
			MimeType: res.Headers.Get("Content-Type"),
		},
	}

	if out.StatusText == "" {
		out.StatusText = http.StatusText(res.StatusCode)
	}

	if out.Content.MimeType == "" {
		out.Content.MimeType = "x-unknown"
	}

	if res.EncodedLength >= 0 && res.EncodedLength < len(res.Body) {
		out.Content.Compression = len(res.Body) - res.EncodedLength
	}

	if utf8.Valid(res.Body) {
		out.Content.Text = string(res.Body)
	} else {
		out.Content.Text = base64.StdEncoding.EncodeToString(res.Body)
		out.Content.Encoding = EncodingBase64
	}

	return out
}

// millis converts d to fractional milliseconds.
func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// optional converts a phase HAR allows to be unknown.
func optional(d time.Duration) float64 {
	if d < 0 {
		return unknown
	}

	return millis(d)
}

// required converts a phase HAR requires to be non negative.
func required(d time.Duration) float64 {
	if d < 0 {
		return 0
	}

	return millis(d)
}

func nameValues(headers model.Headers) []NameValue {
	out := make([]NameValue, 0, len(headers))
	for _, header := range headers {
		out = append(out, NameValue{Name: header.Name, Value: header.Value})
	}

	return out
}

func queryString(rawURL string) []NameValue {
	u, err := url.Parse(rawURL)
	if err != nil || u.RawQuery == "" {
		return []NameValue{}
	}

	values, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return []NameValue{}
	}

	return sortedValues(values)
}

// sortedValues flattens values ordered by key, url.Values is a map so this is
// what keeps the output stable.
func sortedValues(values url.Values) []NameValue {
	out := make([]NameValue, 0, len(values))

	for _, key := range slices.Sorted(maps.Keys(values)) {
		for _, value := range values[key] {
			out = append(out, NameValue{Name: key, Value: value})
		}
	}

	return out
}

func requestCookies(headers model.Headers) []Cookie {
	cookies := []Cookie{}

	for _, line := range headers.Values("Cookie") {
		parsed, err := http.ParseCookie(line)
		if err != nil {
			continue
		}

		for _, cookie := range parsed {
			cookies = append(cookies, Cookie{Name: cookie.Name, Value: cookie.Value})
		}
	}

	return cookies
}

func responseCookies(headers model.Headers) []Cookie {
	cookies := []Cookie{}

	for _, line := range headers.Values("Set-Cookie") {
		cookie, err := http.ParseSetCookie(line)
		if err != nil {
			continue
		}

		out := Cookie{
			Name:     cookie.Name,
			Value:    cookie.Value,
			Path:     cookie.Path,
			Domain:   cookie.Domain,
			HTTPOnly: cookie.HttpOnly,
			Secure:   cookie.Secure,
		}

		if !cookie.Expires.IsZero() {
			out.Expires = cookie.Expires.UTC().Format(TimeFormat)
		}

		cookies = append(cookies, out)
	}

	return cookies
}
