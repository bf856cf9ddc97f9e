package codec_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"go.followtheprocess.codes/snip/internal/codec"
	"go.followtheprocess.codes/snip/internal/model"
	"go.followtheprocess.codes/test"
)

// newRequest builds a request for tests.
func newRequest(method, url string, headers model.Headers, body []byte) *model.RequestInput {
	req := model.NewRequestInput()
	req.Method = method
	req.URL = url
	req.Headers = headers
	req.RawBody.SetDecoded(body)

	return req
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		req  *model.RequestInput // The request to round trip
		name string              // Name of the test case
	}{
		{
			name: "empty",
			req:  model.NewRequestInput(),
		},
		{
			name: "simple get",
			req: newRequest(
				http.MethodGet,
				"http://example.com",
				model.Headers{{Name: "Host", Value: "example.com"}},
				nil,
			),
		},
		{
			name: "duplicate headers",
			req: newRequest(
				http.MethodPost,
				"https://api.nowhere.com/v1/items",
				model.Headers{
					{Name: "Accept", Value: "application/json"},
					{Name: "X-Trace", Value: "1"},
					{Name: "X-Trace", Value: "2"},
				},
				[]byte(`{"stuff":"here"}`),
			),
		},
		{
			name: "binary body",
			req: newRequest(
				http.MethodPut,
				"not even a url",
				model.Headers{},
				[]byte{0x00, 0xff, 0xfe, 0x10, '\n'},
			),
		},
		{
			name: "weird method",
			req: newRequest(
				"PURGE",
				"http://cache.local/thing?x=1&y=2",
				model.Headers{{Name: "content-type", Value: "text/plain; charset=utf-8"}},
				[]byte("multi\nline\nbody"),
			),
		},
	}

	for _, tt := range tests {
		for _, format := range []codec.Format{codec.JSON, codec.YAML, codec.TOML} {
			t.Run(tt.name+"/"+format.String(), func(t *testing.T) {
				buf := &bytes.Buffer{}
				test.Ok(t, codec.Encode(buf, tt.req, format))

				got, err := codec.Decode(buf, format)
				test.Ok(t, err)

				test.Equal(t, got.Method, tt.req.Method)
				test.Equal(t, got.URL, tt.req.URL)
				test.Equal(t, got.RequestContentType, tt.req.RequestContentType)
				test.True(t, slices.Equal(got.Headers, tt.req.Headers))
				test.True(t, bytes.Equal(got.RawBody.Decoded(), tt.req.RawBody.Decoded()))
			})
		}
	}
}

func TestSerializeBase64(t *testing.T) {
	req := newRequest(http.MethodPost, "http://example.com", model.Headers{}, []byte("hello"))

	persisted := codec.Serialize(req)
	test.Equal(t, *persisted.RawBody, "aGVsbG8=")
	test.Equal(t, persisted.RequestContentType, "text")
}

func TestDeserializeRebindsHeaders(t *testing.T) {
	original := newRequest(
		http.MethodPost,
		"http://example.com",
		model.Headers{{Name: "Content-Type", Value: "text/plain"}},
		[]byte("body"),
	)

	loaded, err := codec.Deserialize(codec.Serialize(original))
	test.Ok(t, err)

	// Changing the original must not be visible through the loaded body
	original.Headers.Set("Content-Type", "application/json")
	test.Equal(t, loaded.RawBody.Headers().Get("Content-Type"), "text/plain")

	// Changing the loaded request's headers must be
	loaded.Headers.Set("Content-Encoding", "gzip")
	test.Equal(t, loaded.RawBody.Headers().Get("Content-Encoding"), "gzip")
}

func TestMalformedBase64(t *testing.T) {
	for _, bad := range []string{"!!!not base64!!!", "aGVsbG8", "a===", "ä"} {
		t.Run(bad, func(t *testing.T) {
			persisted := codec.Serialize(newRequest(http.MethodGet, "http://example.com", model.Headers{}, []byte("x")))
			persisted.RawBody = &bad

			got, err := codec.Deserialize(persisted)
			test.Err(t, err)
			test.True(t, got == nil)

			var decodingErr *codec.DecodingError
			test.True(t, errors.As(err, &decodingErr))
			test.Equal(t, decodingErr.Field, "rawBody")
		})
	}
}

func TestMissingFields(t *testing.T) {
	tests := []struct {
		name  string // Name of the test case
		json  string // Persisted JSON document
		field string // The field we expect to be reported missing
	}{
		{
			name:  "no method",
			json:  `{"url": "http://x", "headers": [], "rawBody": ""}`,
			field: "method",
		},
		{
			name:  "no url",
			json:  `{"method": "GET", "headers": [], "rawBody": ""}`,
			field: "url",
		},
		{
			name:  "no headers",
			json:  `{"method": "GET", "url": "http://x", "rawBody": ""}`,
			field: "headers",
		},
		{
			name:  "no body",
			json:  `{"method": "GET", "url": "http://x", "headers": []}`,
			field: "rawBody",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decode(strings.NewReader(tt.json), codec.JSON)
			test.Err(t, err)

			var missing *codec.MissingFieldError
			test.True(t, errors.As(err, &missing))
			test.Equal(t, missing.Field, tt.field)
		})
	}
}

func TestDecodeDefaults(t *testing.T) {
	doc := `{"method": "GET", "url": "http://x", "headers": [["Host", "x"]], "rawBody": ""}`

	req, err := codec.Decode(strings.NewReader(doc), codec.JSON)
	test.Ok(t, err)
	test.Equal(t, req.RequestContentType, model.ContentTypeText)
	test.Equal(t, req.Headers.Get("host"), "x")
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name   string       // Name of the test case
		doc    string       // The document
		format codec.Format // Its format
	}{
		{
			name:   "unknown json field",
			doc:    `{"method": "GET", "url": "x", "headers": [], "rawBody": "", "extra": 1}`,
			format: codec.JSON,
		},
		{
			name:   "bad header pair",
			doc:    `{"method": "GET", "url": "x", "headers": [["Host"]], "rawBody": ""}`,
			format: codec.JSON,
		},
		{
			name:   "unknown toml key",
			doc:    "method = \"GET\"\nurl = \"x\"\nheaders = []\nrawBody = \"\"\nnope = true\n",
			format: codec.TOML,
		},
		{
			name:   "unknown yaml key",
			doc:    "method: GET\nurl: x\nheaders: []\nrawBody: \"\"\nnope: true\n",
			format: codec.YAML,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decode(strings.NewReader(tt.doc), tt.format)
			test.Err(t, err)
		})
	}
}

func TestPersistedJSONShape(t *testing.T) {
	req := newRequest(http.MethodGet, "http://example.com", model.Headers{{Name: "Host", Value: "example.com"}}, nil)

	data, err := json.Marshal(codec.Serialize(req))
	test.Ok(t, err)

	want := `{"method":"GET","url":"http://example.com","headers":[["Host","example.com"]],"rawBody":"","requestContentType":"text"}`
	test.Equal(t, string(data), want)
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	req := newRequest(http.MethodDelete, "https://somewhere.org/api", model.Headers{{Name: "X", Value: "1"}}, []byte("bye"))

	for _, name := range []string{"req.json", "req.yaml", "req.yml", "req.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			test.Ok(t, codec.WriteFile(path, req))

			got, err := codec.ReadFile(path)
			test.Ok(t, err)
			test.Equal(t, got.Method, http.MethodDelete)
			test.Equal(t, string(got.RawBody.Decoded()), "bye")
		})
	}

	_, err := codec.ReadFile(filepath.Join(dir, "req.txt"))
	test.Err(t, err)
}
