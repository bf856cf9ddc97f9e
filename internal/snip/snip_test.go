package snip_test

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
	"go.followtheprocess.codes/snip/internal/config"
	"go.followtheprocess.codes/snip/internal/snip"
)

var update = flag.Bool("update", false, "Update testscript snapshots")

// list is a flag.Value collecting repeated string flags.
type list []string

func (l *list) String() string { return strings.Join(*l, ",") }

func (l *list) Set(value string) error {
	*l = append(*l, value)
	return nil
}

func TestMain(m *testing.M) {
	testscript.Main(m, map[string]func(){
		"formats": func() {
			app := snip.New(false, "test", os.Stdin, os.Stdout, os.Stderr)
			check(app.Formats(context.Background(), snip.FormatsOptions{}))
		},
		"snippet": func() {
			var options snip.SnippetOptions

			flags := flag.NewFlagSet("snippet", flag.ExitOnError)
			flags.StringVar(&options.Format, "format", "", "Snippet format")
			flags.IntVar(&options.Entry, "entry", 0, "HAR entry")
			flags.BoolVar(&options.All, "all", false, "All formats")
			flags.BoolVar(&options.Pick, "pick", false, "Pick interactively")
			flags.BoolVar(&options.Remember, "remember", false, "Remember the format")
			flags.BoolVar(&options.Debug, "debug", false, "Debug logs")
			check(flags.Parse(os.Args[1:]))

			app := snip.New(options.Debug, "test", os.Stdin, os.Stdout, os.Stderr)
			check(app.Snippet(context.Background(), flags.Arg(0), options))
		},
		"har": func() {
			var options snip.HAROptions

			flags := flag.NewFlagSet("har", flag.ExitOnError)
			flags.StringVar(&options.Dir, "dir", "", "Directory")
			flags.StringVar(&options.Name, "name", "", "File name")
			flags.IntVar(&options.Entry, "entry", 0, "HAR entry")
			check(flags.Parse(os.Args[1:]))

			app := snip.New(false, "test", os.Stdin, os.Stdout, os.Stderr)
			check(app.HAR(context.Background(), flags.Arg(0), options))
		},
		"send": func() {
			var (
				options snip.SendOptions
				dns     list
			)

			flags := flag.NewFlagSet("send", flag.ExitOnError)
			flags.StringVar(&options.Dir, "dir", "", "Directory")
			flags.StringVar(&options.Proxy, "proxy", "", "Proxy URL")
			flags.Var(&dns, "dns", "DNS server")
			flags.DurationVar(&options.Timeout, "timeout", 0, "Timeout")
			flags.BoolVar(&options.HAR, "har", false, "Save HAR")
			flags.BoolVar(&options.Saved, "saved", false, "Saved request")
			flags.BoolVar(&options.Insecure, "insecure", false, "Ignore TLS errors")
			check(flags.Parse(os.Args[1:]))

			options.DNS = dns

			app := snip.New(false, "test", os.Stdin, os.Stdout, os.Stderr)
			check(app.Send(context.Background(), flags.Arg(0), options))
		},
		"save": func() {
			var options snip.SaveOptions

			flags := flag.NewFlagSet("save", flag.ExitOnError)
			flags.StringVar(&options.Name, "name", "", "Name")
			check(flags.Parse(os.Args[1:]))

			app := snip.New(false, "test", os.Stdin, os.Stdout, os.Stderr)
			check(app.Save(context.Background(), flags.Arg(0), options))
		},
		"saved": func() {
			var options snip.SavedOptions

			flags := flag.NewFlagSet("saved", flag.ExitOnError)
			flags.StringVar(&options.Delete, "delete", "", "Delete")
			flags.StringVar(&options.Export, "export", "", "Export")
			flags.StringVar(&options.Format, "format", "", "Export format")
			check(flags.Parse(os.Args[1:]))

			app := snip.New(false, "test", os.Stdin, os.Stdout, os.Stderr)
			check(app.Saved(context.Background(), options))
		},
	})
}

// check exits the testscript command with status 1 if err is non-nil.
func check(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1) //nolint:revive // redundant-test-main-exit, this is testscript main
	}
}

func TestScripts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /items", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header()["Date"] = nil
		fmt.Fprint(w, `[{"name": "thing"}]`)
	})
	mux.HandleFunc("POST /items", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Header()["Date"] = nil
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, "created by %s", r.Header.Get("User-Agent"))
	})
	mux.HandleFunc("GET /missing", func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Date"] = nil
		http.Error(w, "nope", http.StatusNotFound)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	testscript.Run(t, testscript.Params{
		Dir:                 filepath.Join("testdata", "script"),
		UpdateScripts:       *update,
		RequireExplicitExec: true,
		RequireUniqueNames:  true,
		Setup: func(e *testscript.Env) error {
			e.Setenv("SNIP_TEST_URL", server.URL)
			e.Setenv("NO_COLOR", "1")
			e.Setenv(config.EnvConfig, filepath.Join(e.WorkDir, "config.toml"))
			e.Setenv(config.EnvDatabase, filepath.Join(e.WorkDir, "snip.db"))

			return nil
		},
		Cmds: map[string]func(ts *testscript.TestScript, neg bool, args []string){
			"replace": Replace,
			"expand":  Expand,
		},
	})
}

// Replace is a testscript command that replaces text in a file by way of a regex
// pattern match, useful for replacing non-deterministic output like UUIDs and durations
// with placeholders to facilitate deterministic comparison in tests.
//
// Usage:
//
//	replace <file> <regex> <replacement>
//
// It cannot be negated, regex must be valid, and the file must be present in the
// txtar archive, including "stdout" and "stderr".
func Replace(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("unsupported: ! replace")
	}

	if len(args) != 3 {
		ts.Fatalf("Usage: replace <file> <regex> <replacement>")
	}

	file := ts.MkAbs(args[0])
	ts.Logf("replace file: %s", file)

	contents := ts.ReadFile(args[0])

	re, err := regexp.Compile(args[1])
	ts.Check(err)

	replaced := re.ReplaceAllString(contents, args[2])

	_, err = ts.Stdout().Write([]byte(replaced))
	ts.Check(err)
}

// Expand rewrites each named file with $VAR references replaced from the
// script environment, fixtures use it to point at $SNIP_TEST_URL.
//
//	expand <file>...
func Expand(ts *testscript.TestScript, neg bool, args []string) {
	if neg || len(args) == 0 {
		ts.Fatalf("usage: expand <file>...")
	}

	for _, name := range args {
		contents := os.Expand(ts.ReadFile(name), ts.Getenv)
		ts.Check(os.WriteFile(ts.MkAbs(name), []byte(contents), 0o644))
	}
}
