// Package snip implements the functionality of the program, the CLI in package cmd is simply the
// entrypoint to exported functions and methods in this package.
package snip

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"go.followtheprocess.codes/hue"
	"go.followtheprocess.codes/log"
	"go.followtheprocess.codes/snip/internal/codec"
	"go.followtheprocess.codes/snip/internal/config"
	"go.followtheprocess.codes/snip/internal/har"
	"go.followtheprocess.codes/snip/internal/model"
	"go.followtheprocess.codes/snip/internal/snippet"
	"go.followtheprocess.codes/snip/internal/store"
)

// Styles.
const (
	// headerKeyStyle is the style used for printing header keys
	// like Content-Type when we show the response on the command line.
	headerKeyStyle = hue.Cyan

	// dimmed is the style used for printing informational content like
	// response duration or option descriptions.
	dimmed = hue.BrightBlack | hue.Italic

	// success is the style used to render successful HTTP response status lines.
	success = hue.Green | hue.Bold

	// failure is the style used to render failed HTTP response status lines.
	failure = hue.Red | hue.Bold

	// sepWidth is the width in characters of the horizontal line separator
	// between snippets and responses.
	sepWidth = 80
)

// Snip represents the snip program.
type Snip struct {
	stdin    io.Reader         // Interactive input is read from here
	stdout   io.Writer         // Normal program output is written here
	stderr   io.Writer         // Logs and errors are written here
	logger   *log.Logger       // The logger for the application
	registry *snippet.Registry // Every available snippet option
	version  string            // The program version
}

// New returns a new [Snip].
func New(debug bool, version string, stdin io.Reader, stdout, stderr io.Writer) Snip {
	level := log.LevelInfo
	if debug {
		level = log.LevelDebug
	}

	logger := log.New(stderr, log.Prefix("snip"), log.WithLevel(level))

	return Snip{
		stdin:    stdin,
		stdout:   stdout,
		stderr:   stderr,
		logger:   logger,
		registry: snippet.Builtin(),
		version:  version,
	}
}

// loadConfig loads the config file at path, or the default one if path is empty.
func (s Snip) loadConfig(logger *log.Logger, path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	logger.Debug(
		"Loaded config",
		slog.String("database", cfg.Database),
		slog.String("har_dir", cfg.HARDir),
		slog.Duration("timeout", cfg.Timeout),
	)

	return cfg, nil
}

// openStore opens the database named in cfg, the caller must close it.
func (s Snip) openStore(ctx context.Context, cfg config.Config) (*store.Store, error) {
	db, err := store.Open(ctx, cfg.Database, s.logger)
	if err != nil {
		return nil, fmt.Errorf("could not open database %s: %w", cfg.Database, err)
	}

	return db, nil
}

// creator returns the HAR creator for documents written by this program.
func (s Snip) creator(cfg config.Config) har.Creator {
	return har.Creator{Name: cfg.Creator, Version: s.version}
}

// interactive reports whether stdin is a terminal a user can answer prompts on.
func (s Snip) interactive() bool {
	f, ok := s.stdin.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// isHAR reports whether file looks like a HAR file.
func isHAR(file string) bool {
	return strings.EqualFold(filepath.Ext(file), har.Extension)
}

// loadExchange loads the exchange to work with from file.
//
// A HAR file yields its entry'th entry, any other file is a persisted request that
// has not been sent and so has no response.
func (s Snip) loadExchange(logger *log.Logger, file string, entry int) (model.Exchange, error) {
	if isHAR(file) {
		f, err := os.Open(file)
		if err != nil {
			return model.Exchange{}, fmt.Errorf("could not open file: %w", err)
		}
		defer f.Close()

		doc, err := har.Import(f)
		if err != nil {
			return model.Exchange{}, err
		}

		entries := doc.Log.Entries
		if entry < 0 || entry >= len(entries) {
			return model.Exchange{}, fmt.Errorf("%s has %d entries, entry %d does not exist", file, len(entries), entry)
		}

		logger.Debug("Loaded HAR file", slog.String("file", file), slog.Int("entries", len(entries)), slog.Int("entry", entry))

		exchange, err := entries[entry].Exchange()
		if err != nil {
			return model.Exchange{}, fmt.Errorf("%s entry %d: %w", file, entry, err)
		}

		return exchange, nil
	}

	def, err := s.loadDefinition(logger, file)
	if err != nil {
		return model.Exchange{}, err
	}

	return model.NewExchange(def)
}

// loadDefinition loads a persisted request from file and returns its wire definition.
func (s Snip) loadDefinition(logger *log.Logger, file string) (model.RequestDefinition, error) {
	req, err := codec.ReadFile(file)
	if err != nil {
		return model.RequestDefinition{}, err
	}

	logger.Debug(
		"Loaded persisted request",
		slog.String("file", file),
		slog.String("method", req.Method),
		slog.String("url", req.URL),
	)

	return req.Definition()
}
