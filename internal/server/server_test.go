package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.followtheprocess.codes/log"
	"go.followtheprocess.codes/snip/internal/har"
	"go.followtheprocess.codes/snip/internal/model"
	"go.followtheprocess.codes/snip/internal/server"
	"go.followtheprocess.codes/snip/internal/snippet"
	"go.followtheprocess.codes/test"
)

// memory is an in memory server.Settings.
type memory struct {
	err    error
	format string
	mu     sync.Mutex
}

func (m *memory) SnippetFormat(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return "", m.err
	}

	if m.format == "" {
		return snippet.DefaultKey, nil
	}

	return m.format, nil
}

func (m *memory) SetSnippetFormat(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.format = key

	return m.err
}

func newServer(t *testing.T, settings server.Settings) *server.Server {
	t.Helper()

	s, err := server.New(log.New(io.Discard), server.Config{
		Registry: snippet.Builtin(),
		Settings: settings,
		Creator:  har.Creator{Name: "snip", Version: "test"},
	})
	test.Ok(t, err)

	return s
}

func do(t *testing.T, s http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	return rec
}

// entry returns the JSON of a HAR entry for a simple exchange.
func entry(t *testing.T, withResponse bool) string {
	t.Helper()

	exchange := model.Exchange{
		ID: "xyz",
		Request: model.Request{
			Method:      "GET",
			URL:         "https://example.com/items",
			HTTPVersion: "HTTP/1.1",
			Headers:     model.Headers{{Name: "Accept", Value: "application/json"}},
		},
		Response: &model.Response{
			StatusCode:    200,
			StatusMessage: "OK",
			HTTPVersion:   "HTTP/1.1",
			Headers:       model.Headers{{Name: "Content-Type", Value: "application/json"}},
			Body:          []byte(`[]`),
			EncodedLength: 2,
		},
		Timing: model.UnknownTiming(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
	}

	doc, err := har.Build(har.Creator{Name: "snip"}, exchange)
	test.Ok(t, err)

	e := doc.Log.Entries[0]
	if !withResponse {
		e.Response = har.Response{}
	}

	out, err := json.Marshal(e)
	test.Ok(t, err)

	return string(out)
}

func TestNewErrors(t *testing.T) {
	_, err := server.New(log.New(io.Discard), server.Config{Settings: &memory{}})
	test.Err(t, err)

	_, err = server.New(log.New(io.Discard), server.Config{Registry: snippet.Builtin()})
	test.Err(t, err)
}

func TestFormats(t *testing.T) {
	s := newServer(t, &memory{format: "python~~requests"})

	rec := do(t, s, http.MethodGet, "/formats", "")
	test.Equal(t, rec.Code, http.StatusOK)
	test.Equal(t, rec.Header().Get("Content-Type"), "application/json")

	var body struct {
		Selected string `json:"selected"`
		Groups   []struct {
			Target  string `json:"target"`
			Options []struct {
				Key string `json:"key"`
			} `json:"options"`
		} `json:"groups"`
	}

	test.Ok(t, json.NewDecoder(rec.Body).Decode(&body))
	test.Equal(t, body.Selected, "python~~requests")
	test.Equal(t, len(body.Groups), len(snippet.Builtin().Groups()))
	test.Equal(t, body.Groups[0].Target, "shell")
	test.Equal(t, body.Groups[0].Options[0].Key, "shell~~curl")
}

func TestFormatsUnknownStoredKey(t *testing.T) {
	s := newServer(t, &memory{format: "cobol~~punchcard"})

	rec := do(t, s, http.MethodGet, "/settings/format", "")
	test.Equal(t, rec.Code, http.StatusOK)
	test.Equal(t, strings.TrimSpace(rec.Body.String()), `{"format":"shell~~curl"}`)
}

func TestSettingsError(t *testing.T) {
	s := newServer(t, &memory{err: errors.New("disk on fire")})

	rec := do(t, s, http.MethodGet, "/formats", "")
	test.Equal(t, rec.Code, http.StatusInternalServerError)

	rec = do(t, s, http.MethodPut, "/settings/format", `{"format":"go~~native"}`)
	test.Equal(t, rec.Code, http.StatusInternalServerError)
}

func TestPutFormat(t *testing.T) {
	settings := &memory{}
	s := newServer(t, settings)

	tests := []struct {
		name string // Name of the test case
		body string // Request body
		want int    // Expected status code
	}{
		{
			name: "valid",
			body: `{"format":"node~~axios"}`,
			want: http.StatusOK,
		},
		{
			name: "unknown",
			body: `{"format":"node~~superagent"}`,
			want: http.StatusBadRequest,
		},
		{
			name: "bad json",
			body: `{"format":`,
			want: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPut, "/settings/format", tt.body)
			test.Equal(t, rec.Code, tt.want)
		})
	}

	got, err := settings.SnippetFormat(t.Context())
	test.Ok(t, err)
	test.Equal(t, got, "node~~axios")

	rec := do(t, s, http.MethodGet, "/settings/format", "")
	test.Equal(t, strings.TrimSpace(rec.Body.String()), `{"format":"node~~axios"}`)
}

func TestSnippet(t *testing.T) {
	s := newServer(t, &memory{format: "http~~http1.1"})

	tests := []struct {
		name     string // Name of the test case
		path     string // Request path including query
		body     string // Request body
		wantKey  string // Expected snippet key
		wantText string // Substring expected in the snippet text
		want     int    // Expected status code
	}{
		{
			name:     "stored format",
			path:     "/snippet",
			body:     entry(t, true),
			want:     http.StatusOK,
			wantKey:  "http~~http1.1",
			wantText: "GET /items HTTP/1.1\r\n",
		},
		{
			name:     "explicit format",
			path:     "/snippet?format=shell~~curl",
			body:     entry(t, false),
			want:     http.StatusOK,
			wantKey:  "shell~~curl",
			wantText: "curl --request GET",
		},
		{
			name:     "unknown format falls back",
			path:     "/snippet?format=shell~~nope",
			body:     entry(t, true),
			want:     http.StatusOK,
			wantKey:  snippet.DefaultKey,
			wantText: "--url 'https://example.com/items'",
		},
		{
			name: "bad body",
			path: "/snippet",
			body: `not json`,
			want: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, tt.path, tt.body)
			test.Equal(t, rec.Code, tt.want)

			if tt.want != http.StatusOK {
				return
			}

			var got snippet.Snippet
			test.Ok(t, json.NewDecoder(rec.Body).Decode(&got))
			test.Equal(t, got.Key, tt.wantKey)
			test.True(t, strings.Contains(got.Text, tt.wantText))
		})
	}
}

func TestSnippetFailureIsPlaceholder(t *testing.T) {
	s := newServer(t, &memory{})

	// A relative URL can't be turned into a snippet
	body := strings.Replace(entry(t, true), "https://example.com/items", "/items", 1)

	rec := do(t, s, http.MethodPost, "/snippet", body)
	test.Equal(t, rec.Code, http.StatusOK)

	var got snippet.Snippet
	test.Ok(t, json.NewDecoder(rec.Body).Decode(&got))
	test.Equal(t, got.Text, snippet.Placeholder)
}

func TestHAR(t *testing.T) {
	s := newServer(t, &memory{})

	rec := do(t, s, http.MethodPost, "/har", entry(t, true))
	test.Equal(t, rec.Code, http.StatusOK)
	test.Equal(t, rec.Header().Get("Content-Disposition"), `attachment; filename=xyz.har`)

	doc, err := har.Import(bytes.NewReader(rec.Body.Bytes()))
	test.Ok(t, err)
	test.Equal(t, doc.Log.Creator.Version, "test")
	test.Equal(t, len(doc.Log.Entries), 1)
	test.Equal(t, doc.Log.Entries[0].Response.Status, 200)

	// No response means nothing to export
	rec = do(t, s, http.MethodPost, "/har", entry(t, false))
	test.Equal(t, rec.Code, http.StatusConflict)
}
