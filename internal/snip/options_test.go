package snip_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.followtheprocess.codes/snip/internal/config"
	"go.followtheprocess.codes/snip/internal/snip"
	"go.followtheprocess.codes/test"
	"go.uber.org/goleak"
)

func TestSnippetOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string              // Name of the test case
		options snip.SnippetOptions // Options under test
		wantErr bool                // Whether we want an error
	}{
		{
			name:    "empty",
			options: snip.SnippetOptions{},
			wantErr: false,
		},
		{
			name:    "format",
			options: snip.SnippetOptions{Format: "node~~axios", Remember: true},
			wantErr: false,
		},
		{
			name:    "malformed format",
			options: snip.SnippetOptions{Format: "axios"},
			wantErr: true,
		},
		{
			name:    "negative entry",
			options: snip.SnippetOptions{Entry: -1},
			wantErr: true,
		},
		{
			name:    "all and format",
			options: snip.SnippetOptions{All: true, Format: "shell~~curl"},
			wantErr: true,
		},
		{
			name:    "all and remember",
			options: snip.SnippetOptions{All: true, Remember: true},
			wantErr: true,
		},
		{
			name:    "pick and format",
			options: snip.SnippetOptions{Pick: true, Format: "shell~~curl"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			test.WantErr(t, tt.options.Validate(), tt.wantErr)
		})
	}
}

func TestSendOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string           // Name of the test case
		options snip.SendOptions // Options under test
		wantErr bool             // Whether we want an error
	}{
		{
			name:    "empty",
			options: snip.SendOptions{},
			wantErr: false,
		},
		{
			name:    "timeouts",
			options: snip.SendOptions{Timeout: 5 * time.Second, ConnectionTimeout: time.Second},
			wantErr: false,
		},
		{
			name:    "connection timeout only",
			options: snip.SendOptions{ConnectionTimeout: time.Minute},
			wantErr: false,
		},
		{
			name:    "connection timeout too large",
			options: snip.SendOptions{Timeout: time.Second, ConnectionTimeout: 5 * time.Second},
			wantErr: true,
		},
		{
			name:    "negative timeout",
			options: snip.SendOptions{Timeout: -time.Second},
			wantErr: true,
		},
		{
			name:    "proxy",
			options: snip.SendOptions{Proxy: "http://localhost:3128"},
			wantErr: false,
		},
		{
			name:    "relative proxy",
			options: snip.SendOptions{Proxy: "localhost:3128"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			test.WantErr(t, tt.options.Validate(), tt.wantErr)
		})
	}
}

func TestHAROptionsValidate(t *testing.T) {
	test.Ok(t, snip.HAROptions{Name: "export"}.Validate())
	test.Err(t, snip.HAROptions{Entry: -2}.Validate())
	test.Err(t, snip.HAROptions{Name: filepath.Join("a", "b")}.Validate())
}

func TestSaveOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string           // Name of the test case
		options snip.SaveOptions // Options under test
		wantErr bool             // Whether we want an error
	}{
		{
			name:    "empty",
			options: snip.SaveOptions{},
			wantErr: false,
		},
		{
			name:    "name",
			options: snip.SaveOptions{Name: "list items"},
			wantErr: false,
		},
		{
			name:    "blank name",
			options: snip.SaveOptions{Name: "   "},
			wantErr: true,
		},
		{
			name:    "line break",
			options: snip.SaveOptions{Name: "one\ntwo"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			test.WantErr(t, tt.options.Validate(), tt.wantErr)
		})
	}
}

func TestSaveBlankNameNeverOpensStore(t *testing.T) {
	dir := t.TempDir()
	database := filepath.Join(dir, "snip.db")
	t.Setenv(config.EnvConfig, filepath.Join(dir, "config.toml"))
	t.Setenv(config.EnvDatabase, database)

	app := snip.New(false, "test", strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})
	test.Err(t, app.Save(t.Context(), filepath.Join(dir, "missing.json"), snip.SaveOptions{Name: " "}))

	_, err := os.Stat(database)
	test.True(t, errors.Is(err, os.ErrNotExist))
}

func TestSavedOptionsValidate(t *testing.T) {
	test.Ok(t, snip.SavedOptions{Export: "id", Format: "yaml"}.Validate())
	test.Err(t, snip.SavedOptions{Export: "id", Format: "xml"}.Validate())
	test.Err(t, snip.SavedOptions{Export: "id", Delete: "id"}.Validate())
}

func TestSnippetAll(t *testing.T) {
	defer goleak.VerifyNone(t)

	file := filepath.Join(t.TempDir(), "request.json")
	request := `{"method": "PUT", "url": "https://example.com/things/1", "headers": [], "rawBody": "", "requestContentType": "text"}`
	test.Ok(t, os.WriteFile(file, []byte(request), 0o644))

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	app := snip.New(false, "test", strings.NewReader(""), stdout, stderr)
	test.Ok(t, app.Snippet(t.Context(), file, snip.SnippetOptions{All: true}))

	out := stdout.String()

	keys := []string{
		"shell~~curl",
		"shell~~httpie",
		"shell~~wget",
		"javascript~~fetch",
		"javascript~~xhr",
		"node~~fetch",
		"node~~axios",
		"python~~requests",
		"go~~native",
		"powershell~~restmethod",
		"http~~http1.1",
	}

	last := -1

	for _, key := range keys {
		index := strings.Index(out, "("+key+")")
		test.True(t, index > last)

		last = index
	}

	test.True(t, strings.Contains(out, "PUT /things/1 HTTP/1.1"))
	test.Equal(t, stderr.String(), "")
}
