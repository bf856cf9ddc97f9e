package har_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.followtheprocess.codes/snip/internal/har"
	"go.followtheprocess.codes/snip/internal/model"
	"go.followtheprocess.codes/test"
)

var creator = har.Creator{Name: "snip", Version: "test"}

func completed() model.Exchange {
	return model.Exchange{
		ID: "abc",
		Request: model.Request{
			Method:      "POST",
			URL:         "https://example.com/search?b=2&a=1&a=0",
			HTTPVersion: "HTTP/1.1",
			Headers: model.Headers{
				{Name: "Content-Type", Value: "application/x-www-form-urlencoded"},
				{Name: "Cookie", Value: "session=xyz; theme=dark"},
			},
			Body: []byte("q=go&page=2"),
		},
		Response: &model.Response{
			StatusCode:  200,
			HTTPVersion: "HTTP/1.1",
			Headers: model.Headers{
				{Name: "Content-Type", Value: "text/plain"},
				{Name: "Set-Cookie", Value: "id=1; Path=/; HttpOnly; Secure"},
			},
			Body:          []byte("hello"),
			EncodedLength: 5,
		},
		Timing: model.Timing{
			StartedAt: time.Date(2024, 3, 1, 12, 30, 0, 500*int(time.Millisecond), time.UTC),
			Blocked:   model.PhaseUnknown,
			DNS:       2 * time.Millisecond,
			Connect:   10 * time.Millisecond,
			TLS:       6 * time.Millisecond,
			Send:      model.PhaseUnknown,
			Wait:      20 * time.Millisecond,
			Receive:   3 * time.Millisecond,
		},
	}
}

func TestExportable(t *testing.T) {
	tests := []struct {
		name     string         // Name of the test case
		exchange model.Exchange // The exchange under test
		want     bool           // Whether it should be exportable
	}{
		{
			name:     "completed",
			exchange: completed(),
			want:     true,
		},
		{
			name:     "no response",
			exchange: model.Exchange{Request: model.Request{Method: "GET", URL: "http://example.com"}},
			want:     false,
		},
		{
			name: "aborted",
			exchange: func() model.Exchange {
				exchange := completed()
				exchange.Aborted = true
				return exchange
			}(),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			test.Equal(t, har.Exportable(tt.exchange), tt.want)

			_, err := har.Build(creator, tt.exchange)
			test.WantErr(t, err, !tt.want)

			if err != nil {
				var precondition *har.PreconditionError
				test.True(t, errors.As(err, &precondition))
			}
		})
	}
}

func TestBuild(t *testing.T) {
	doc, err := har.Build(creator, completed())
	test.Ok(t, err)

	test.Equal(t, doc.Log.Version, "1.2")
	test.Equal(t, doc.Log.Creator, creator)
	test.Equal(t, len(doc.Log.Entries), 1)

	entry := doc.Log.Entries[0]
	test.Equal(t, entry.StartedDateTime, "2024-03-01T12:30:00.500Z")
	test.Equal(t, entry.Time, 35.0)
	test.Equal(t, entry.Comment, "abc")

	test.Equal(t, entry.Timings.Blocked, -1.0)
	test.Equal(t, entry.Timings.DNS, 2.0)
	test.Equal(t, entry.Timings.SSL, 6.0)
	test.Equal(t, entry.Timings.Send, 0.0)
	test.Equal(t, entry.Timings.Wait, 20.0)

	req := entry.Request
	test.Equal(t, req.Method, "POST")
	test.Equal(t, len(req.QueryString), 3)
	test.Equal(t, req.QueryString[0], har.NameValue{Name: "a", Value: "1"})
	test.Equal(t, req.QueryString[2], har.NameValue{Name: "b", Value: "2"})
	test.Equal(t, len(req.Cookies), 2)
	test.Equal(t, req.Cookies[1].Name, "theme")
	test.Equal(t, req.BodySize, 11)
	test.Equal(t, req.PostData.Text, "q=go&page=2")
	test.Equal(t, req.PostData.Encoding, "")
	test.Equal(t, len(req.PostData.Params), 2)
	test.Equal(t, req.HeadersSize, -1)

	res := entry.Response
	test.Equal(t, res.Status, 200)
	test.Equal(t, res.StatusText, "OK")
	test.Equal(t, res.Content.Text, "hello")
	test.Equal(t, res.Content.Size, 5)
	test.Equal(t, res.Content.MimeType, "text/plain")
	test.Equal(t, len(res.Cookies), 1)
	test.True(t, res.Cookies[0].HTTPOnly)
	test.True(t, res.Cookies[0].Secure)
	test.Equal(t, res.Cookies[0].Path, "/")
}

func TestBuildBinaryBodies(t *testing.T) {
	exchange := completed()
	exchange.Request.Headers = model.Headers{{Name: "Content-Type", Value: "application/octet-stream"}}
	exchange.Request.Body = []byte{0xff, 0x00, 0xfe}
	exchange.Response.Body = []byte{0xde, 0xad, 0xbe, 0xef}

	doc, err := har.Build(creator, exchange)
	test.Ok(t, err)

	entry := doc.Log.Entries[0]
	test.Equal(t, entry.Request.PostData.Encoding, "base64")
	test.Equal(t, entry.Request.PostData.Text, "/wD+")
	test.Equal(t, entry.Response.Content.Encoding, "base64")
	test.Equal(t, entry.Response.Content.Text, "3q2+7w==")

	got, err := entry.Exchange()
	test.Ok(t, err)
	test.True(t, bytes.Equal(got.Request.Body, exchange.Request.Body))
	test.True(t, bytes.Equal(got.Response.Body, exchange.Response.Body))
}

func TestExportImport(t *testing.T) {
	doc, err := har.Build(creator, completed())
	test.Ok(t, err)

	buf := &bytes.Buffer{}
	test.Ok(t, har.Export(buf, doc))

	// Field names matter to other HAR readers
	var raw map[string]any
	test.Ok(t, json.Unmarshal(buf.Bytes(), &raw))

	log, ok := raw["log"].(map[string]any)
	test.True(t, ok)
	test.Equal(t, log["version"], any("1.2"))
	test.True(t, strings.Contains(buf.String(), `"startedDateTime"`))
	test.True(t, strings.Contains(buf.String(), `"redirectURL"`))

	imported, err := har.Import(buf)
	test.Ok(t, err)

	exchanges, err := imported.Exchanges()
	test.Ok(t, err)
	test.Equal(t, len(exchanges), 1)

	got := exchanges[0]
	want := completed()

	test.Equal(t, got.ID, want.ID)
	test.Equal(t, got.Request.URL, want.Request.URL)
	test.Equal(t, string(got.Request.Body), string(want.Request.Body))
	test.Equal(t, got.Response.StatusCode, 200)
	test.Equal(t, string(got.Response.Body), "hello")
	test.True(t, got.Timing.StartedAt.Equal(want.Timing.StartedAt))
	test.Equal(t, got.Timing.DNS, want.Timing.DNS)
	test.Equal(t, got.Timing.Blocked, model.PhaseUnknown)
	test.True(t, got.Completed())
}

func TestImportErrors(t *testing.T) {
	_, err := har.Import(strings.NewReader("not json"))
	test.Err(t, err)

	_, err = har.Import(strings.NewReader(`{"log": {}}`))
	test.Err(t, err)
}

func TestIncompleteEntry(t *testing.T) {
	entry, err := har.DecodeEntry(strings.NewReader(`{
		"startedDateTime": "2024-03-01T12:30:00.000Z",
		"request": {"method": "GET", "url": "http://example.com", "headers": []},
		"response": {"status": 0},
		"timings": {"send": 0, "wait": 0, "receive": 0}
	}`))
	test.Ok(t, err)

	exchange, err := entry.Exchange()
	test.Ok(t, err)
	test.True(t, exchange.Response == nil)
	test.True(t, !har.Exportable(exchange))
}

func TestSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")

	doc, err := har.Build(creator, completed())
	test.Ok(t, err)

	first, err := har.Save(dir, "example", doc)
	test.Ok(t, err)
	test.Equal(t, first, filepath.Join(dir, "example.har"))

	second, err := har.Save(dir, "example", doc)
	test.Ok(t, err)
	test.Equal(t, second, filepath.Join(dir, "example.har.1"))

	third, err := har.Save(dir, "example", doc)
	test.Ok(t, err)
	test.Equal(t, third, filepath.Join(dir, "example.har.2"))

	contents, err := os.ReadFile(first)
	test.Ok(t, err)

	saved, err := har.Import(bytes.NewReader(contents))
	test.Ok(t, err)
	test.Equal(t, len(saved.Log.Entries), 1)

	_, err = har.Save(dir, "", doc)
	test.Err(t, err)
}
