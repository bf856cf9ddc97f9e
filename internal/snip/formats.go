package snip

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"

	"go.followtheprocess.codes/hue"
)

// FormatsOptions are the options passed to the formats subcommand.
type FormatsOptions struct {
	// Config is the path to the config file, empty means the default location.
	Config string

	// Debug enables debug logging.
	Debug bool
}

// Formats implements the formats subcommand, listing every snippet option grouped
// by target with the currently selected one marked.
func (s Snip) Formats(ctx context.Context, options FormatsOptions) error {
	logger := s.logger.Prefixed("formats")

	cfg, err := s.loadConfig(logger, options.Config)
	if err != nil {
		return err
	}

	db, err := s.openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	stored, err := db.SnippetFormat(ctx)
	if err != nil {
		return err
	}

	selected := s.registry.Lookup(stored).Key()
	if selected != stored {
		logger.Debug("Stored snippet format not recognised", slog.String("stored", stored), slog.String("using", selected))
	}

	tw := tabwriter.NewWriter(s.stdout, 0, 0, 2, ' ', 0)

	for i, group := range s.registry.Groups() {
		if i > 0 {
			fmt.Fprintln(tw)
		}

		fmt.Fprintln(tw, hue.Bold.Text(group.Title))

		for _, option := range group.Options {
			marker := " "
			if option.Key() == selected {
				marker = success.Text("*")
			}

			fmt.Fprintf(tw, "%s %s\t%s\t%s\n", marker, option.Key(), option.Title, dimmed.Text(option.Description))
		}
	}

	return tw.Flush()
}

// selectedTitle returns the name of the option under key with its description.
func (s Snip) selectedTitle(key string) string {
	option := s.registry.Lookup(key)
	return strings.TrimSpace(option.Name() + " " + dimmed.Text("("+option.Key()+")"))
}
