package snip

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"go.followtheprocess.codes/msg"
	"go.followtheprocess.codes/snip/internal/codec"
)

// SaveOptions are the options passed to the save subcommand.
type SaveOptions struct {
	// Config is the path to the config file, empty means the default location.
	Config string

	// Name is the name to save the request under, empty means derive it from the file.
	Name string

	// Debug enables debug logging.
	Debug bool
}

// Validate reports whether the options are valid.
func (o SaveOptions) Validate() error {
	if o.Name != "" && strings.TrimSpace(o.Name) == "" {
		return errors.New("--name cannot be blank")
	}

	if strings.ContainsAny(o.Name, "\t\r\n") {
		return fmt.Errorf("--name %q cannot contain tabs or line breaks", o.Name)
	}

	return nil
}

// Save implements the save subcommand, storing a persisted request in the database.
func (s Snip) Save(ctx context.Context, file string, options SaveOptions) error {
	if err := options.Validate(); err != nil {
		return err
	}

	logger := s.logger.Prefixed("save").With(slog.String("file", file))

	cfg, err := s.loadConfig(logger, options.Config)
	if err != nil {
		return err
	}

	req, err := codec.ReadFile(file)
	if err != nil {
		return err
	}

	// Catch requests that could never be sent now rather than when they're used
	if _, err := req.Definition(); err != nil {
		return err
	}

	name := options.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	}

	db, err := s.openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	saved, err := db.SaveRequest(ctx, name, req)
	if err != nil {
		return err
	}

	msg.Fsuccess(s.stdout, "Saved %s as %s", saved.Name, saved.ID)

	return nil
}

// SavedOptions are the options passed to the saved subcommand.
type SavedOptions struct {
	// Config is the path to the config file, empty means the default location.
	Config string

	// Delete is the ID of a saved request to delete instead of listing.
	Delete string

	// Export is the ID of a saved request to write out instead of listing.
	Export string

	// Format is the format to export in: json, yaml or toml.
	Format string

	// Debug enables debug logging.
	Debug bool
}

// Validate reports whether the SavedOptions is valid, returning a non-nil
// error if it's not.
func (o SavedOptions) Validate() error {
	if o.Delete != "" && o.Export != "" {
		return errors.New("--delete and --export are mutually exclusive")
	}

	switch o.Format {
	case "", "json", "yaml", "toml":
		return nil
	default:
		return fmt.Errorf("invalid option for --format %q, allowed values are 'json', 'yaml', 'toml'", o.Format)
	}
}

// Saved implements the saved subcommand, listing, exporting or deleting saved requests.
func (s Snip) Saved(ctx context.Context, options SavedOptions) error {
	logger := s.logger.Prefixed("saved")

	if err := options.Validate(); err != nil {
		return err
	}

	cfg, err := s.loadConfig(logger, options.Config)
	if err != nil {
		return err
	}

	db, err := s.openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	switch {
	case options.Delete != "":
		if err := db.DeleteRequest(ctx, options.Delete); err != nil {
			return err
		}

		msg.Fsuccess(s.stdout, "Deleted %s", options.Delete)

		return nil
	case options.Export != "":
		saved, err := db.GetRequest(ctx, options.Export)
		if err != nil {
			return err
		}

		format, err := codec.FormatFromPath("request." + cmp.Or(options.Format, "json"))
		if err != nil {
			return err
		}

		return codec.Encode(s.stdout, saved.Request, format)
	}

	requests, err := db.ListRequests(ctx)
	if err != nil {
		return err
	}

	logger.Debug("Listing saved requests", slog.Int("count", len(requests)))

	if len(requests) == 0 {
		fmt.Fprintln(s.stdout, dimmed.Text("No saved requests"))
		return nil
	}

	tw := tabwriter.NewWriter(s.stdout, 0, 0, 2, ' ', 0)

	for _, saved := range requests {
		fmt.Fprintf(
			tw,
			"%s\t%s\t%s %s\t%s\n",
			saved.ID,
			saved.Name,
			saved.Request.Method,
			saved.Request.URL,
			dimmed.Text(saved.CreatedAt.Local().Format(time.DateTime)),
		)
	}

	return tw.Flush()
}
