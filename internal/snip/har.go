package snip

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"go.followtheprocess.codes/msg"
	"go.followtheprocess.codes/snip/internal/har"
	"go.followtheprocess.codes/snip/internal/model"
)

// HAROptions are the options passed to the har subcommand.
type HAROptions struct {
	// Config is the path to the config file, empty means the default location.
	Config string

	// Dir is the directory to save the HAR file in, empty means the configured one.
	Dir string

	// Name is the file name to save under (without extension), empty means
	// derive it from the input file.
	Name string

	// Entry is the index of the entry to export when the input is a HAR file.
	Entry int

	// Debug enables debug logging.
	Debug bool
}

// Validate reports whether the HAROptions is valid, returning a non-nil
// error if it's not.
func (o HAROptions) Validate() error {
	if o.Entry < 0 {
		return fmt.Errorf("--entry must not be negative, got %d", o.Entry)
	}

	if strings.ContainsRune(o.Name, filepath.Separator) {
		return fmt.Errorf("--name %q must be a file name, not a path", o.Name)
	}

	return nil
}

// HAR implements the har subcommand, exporting a single exchange as a HAR file.
//
// Only exchanges that completed with a response can be exported.
func (s Snip) HAR(ctx context.Context, file string, options HAROptions) error {
	logger := s.logger.Prefixed("har").With(slog.String("file", file))

	logger.Debug("HAR configuration", slog.String("options", fmt.Sprintf("%+v", options)))

	if err := options.Validate(); err != nil {
		return err
	}

	cfg, err := s.loadConfig(logger, options.Config)
	if err != nil {
		return err
	}

	exchange, err := s.loadExchange(logger, file, options.Entry)
	if err != nil {
		return err
	}

	dir := options.Dir
	if dir == "" {
		dir = cfg.HARDir
	}

	name := options.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	}

	path, err := s.saveHAR(s.creator(cfg), dir, name, exchange)
	if err != nil {
		return err
	}

	msg.Fsuccess(s.stdout, "Saved %s", path)

	return nil
}

// saveHAR writes exchange to a new HAR file in dir, returning its path.
func (s Snip) saveHAR(creator har.Creator, dir, name string, exchange model.Exchange) (string, error) {
	if !har.Exportable(exchange) {
		return "", fmt.Errorf("cannot export %s as HAR: it has no complete response, send the request first", name)
	}

	doc, err := har.Build(creator, exchange)
	if err != nil {
		return "", err
	}

	path, err := har.Save(dir, name, doc)
	if err != nil {
		return "", fmt.Errorf("could not save HAR file: %w", err)
	}

	s.logger.Debug("Saved HAR file", slog.String("path", path), slog.String("exchange", exchange.ID))

	return path, nil
}
