package model

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"
)

// Header is a single raw HTTP header exactly as written on the wire.
type Header struct {
	Name  string // Header name, case is preserved
	Value string // Header value
}

// Headers is an ordered list of raw HTTP headers.
//
// Unlike [http.Header], the order of headers is significant and preserved and
// repeated names are kept as separate entries, which is what a captured or
// user edited request actually looks like.
type Headers []Header

// Get returns the value of the first header matching name (case insensitively),
// or "" if there is no such header.
func (h Headers) Get(name string) string {
	for _, header := range h {
		if strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}

	return ""
}

// Values returns the values of every header matching name, in order.
func (h Headers) Values(name string) []string {
	var values []string

	for _, header := range h {
		if strings.EqualFold(header.Name, name) {
			values = append(values, header.Value)
		}
	}

	return values
}

// Has reports whether a header with the given name is present.
func (h Headers) Has(name string) bool {
	return slices.ContainsFunc(h, func(header Header) bool {
		return strings.EqualFold(header.Name, name)
	})
}

// Add appends a header, keeping any existing headers of the same name.
func (h *Headers) Add(name, value string) {
	*h = append(*h, Header{Name: name, Value: value})
}

// Set replaces the first header matching name with value and removes any
// other headers of that name. If there is no matching header, one is appended.
func (h *Headers) Set(name, value string) {
	set := false
	out := (*h)[:0]

	for _, header := range *h {
		if strings.EqualFold(header.Name, name) {
			if set {
				continue
			}

			header.Value = value
			set = true
		}

		out = append(out, header)
	}

	if !set {
		out = append(out, Header{Name: name, Value: value})
	}

	*h = out
}

// Del removes every header matching name.
func (h *Headers) Del(name string) {
	*h = slices.DeleteFunc(*h, func(header Header) bool {
		return strings.EqualFold(header.Name, name)
	})
}

// Clone returns a copy of h that shares no memory with it.
func (h Headers) Clone() Headers {
	if h == nil {
		return nil
	}

	return slices.Clone(h)
}

// HTTP converts h into an [http.Header], the order of distinct names is lost
// but the order of values for a single name is kept.
func (h Headers) HTTP() http.Header {
	out := make(http.Header, len(h))
	for _, header := range h {
		out.Add(header.Name, header.Value)
	}

	return out
}

// Raw returns the headers as a list of [name, value] pairs.
func (h Headers) Raw() [][]string {
	raw := make([][]string, 0, len(h))
	for _, header := range h {
		raw = append(raw, []string{header.Name, header.Value})
	}

	return raw
}

// FromRaw builds [Headers] from a list of [name, value] pairs, every pair must
// have exactly two elements.
func FromRaw(raw [][]string) (Headers, error) {
	headers := make(Headers, 0, len(raw))

	for i, pair := range raw {
		if len(pair) != 2 { //nolint:mnd // A pair is a pair
			return nil, fmt.Errorf("header %d: expected a [name, value] pair, got %d element(s)", i, len(pair))
		}

		headers = append(headers, Header{Name: pair[0], Value: pair[1]})
	}

	return headers, nil
}

// FromHTTP converts an [http.Header] into [Headers].
//
// An [http.Header] has no ordering between names so the names are sorted to
// keep the result deterministic.
func FromHTTP(header http.Header) Headers {
	headers := make(Headers, 0, len(header))

	for _, name := range slices.Sorted(maps.Keys(header)) {
		for _, value := range header[name] {
			headers = append(headers, Header{Name: name, Value: value})
		}
	}

	return headers
}

// MarshalJSON implements [json.Marshaler] for [Headers], encoding them as
// a list of [name, value] pairs.
func (h Headers) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Raw())
}

// UnmarshalJSON implements [json.Unmarshaler] for [Headers].
func (h *Headers) UnmarshalJSON(data []byte) error {
	var raw [][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	headers, err := FromRaw(raw)
	if err != nil {
		return err
	}

	*h = headers

	return nil
}
