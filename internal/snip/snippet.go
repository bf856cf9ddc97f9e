package snip

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/huh"
	"go.followtheprocess.codes/hue"
	"go.followtheprocess.codes/log"
	"go.followtheprocess.codes/msg"
	"go.followtheprocess.codes/snip/internal/model"
	"go.followtheprocess.codes/snip/internal/snippet"
	"go.followtheprocess.codes/snip/internal/store"
	"golang.org/x/sync/errgroup"
)

// SnippetOptions are the options passed to the snippet subcommand.
type SnippetOptions struct {
	// Config is the path to the config file, empty means the default location.
	Config string

	// Format is the key of the snippet option to use e.g. "shell~~curl", empty
	// means use the remembered one.
	Format string

	// Entry is the index of the entry to use when the input is a HAR file.
	Entry int

	// All generates a snippet for every option instead of just one.
	All bool

	// Pick prompts the user to choose the option interactively.
	Pick bool

	// Remember saves the option used as the default for next time.
	Remember bool

	// Debug enables debug logging.
	Debug bool
}

// Validate reports whether the SnippetOptions is valid, returning a non-nil
// error if it's not.
func (o SnippetOptions) Validate() error {
	switch {
	case o.Entry < 0:
		return fmt.Errorf("--entry must not be negative, got %d", o.Entry)
	case o.All && (o.Format != "" || o.Pick || o.Remember):
		return errors.New("--all cannot be combined with --format, --pick or --remember")
	case o.Pick && o.Format != "":
		return errors.New("--pick and --format are mutually exclusive")
	}

	if o.Format != "" {
		if _, _, ok := snippet.ParseKey(o.Format); !ok {
			return fmt.Errorf("invalid option for --format %q, expected <target>~~<client> e.g. %s", o.Format, snippet.DefaultKey)
		}
	}

	return nil
}

// Snippet implements the snippet subcommand.
//
// The request comes from file, which is either a HAR file or a persisted request.
func (s Snip) Snippet(ctx context.Context, file string, options SnippetOptions) error {
	logger := s.logger.Prefixed("snippet").With(slog.String("file", file))

	logger.Debug("Snippet configuration", slog.String("options", fmt.Sprintf("%+v", options)))

	if err := options.Validate(); err != nil {
		return err
	}

	exchange, err := s.loadExchange(logger, file, options.Entry)
	if err != nil {
		return err
	}

	if options.All {
		return s.snippetAll(logger, exchange)
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

	option, err := s.resolveOption(ctx, logger, db, options)
	if err != nil {
		return err
	}

	if options.Remember || options.Pick {
		if err := db.SetSnippetFormat(ctx, option.Key()); err != nil {
			return err
		}

		msg.Fsuccess(s.stderr, "Snippet format set to %s", s.selectedTitle(option.Key()))
	}

	logger.Debug("Generating snippet", slog.String("format", option.Key()))

	writeSnippet(s.stdout, snippet.Render(exchange, option, reporter(logger)))

	return nil
}

// resolveOption works out which snippet option to use: an explicit --format, the
// user's interactive choice, or the remembered one, in that order.
//
// Keys that don't name a registered option fall back to the default option.
func (s Snip) resolveOption(ctx context.Context, logger *log.Logger, db *store.Store, options SnippetOptions) (snippet.Option, error) {
	if options.Format != "" {
		option, ok := s.registry.Get(options.Format)
		if !ok {
			option = s.registry.Lookup(options.Format)
			logger.Warn("Unknown snippet format", slog.String("format", options.Format), slog.String("using", option.Key()))
		}

		return option, nil
	}

	stored, err := db.SnippetFormat(ctx)
	if err != nil {
		return snippet.Option{}, err
	}

	if !s.registry.Has(stored) {
		logger.Debug("Stored snippet format not recognised", slog.String("stored", stored))
	}

	if options.Pick {
		return s.pick(ctx, s.registry.Lookup(stored).Key())
	}

	return s.registry.Lookup(stored), nil
}

// pick asks the user to choose a snippet option, current is selected to begin with.
func (s Snip) pick(ctx context.Context, current string) (snippet.Option, error) {
	if !s.interactive() {
		return snippet.Option{}, errors.New("--pick needs an interactive terminal, use --format instead")
	}

	choice := current

	var choices []huh.Option[string]

	for _, group := range s.registry.Groups() {
		for _, option := range group.Options {
			choices = append(choices, huh.NewOption(option.Name(), option.Key()))
		}
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Snippet format").
				Options(choices...).
				Value(&choice),
		),
	).WithInput(s.stdin).WithOutput(s.stderr)

	if err := form.RunWithContext(ctx); err != nil {
		return snippet.Option{}, fmt.Errorf("could not pick a snippet format: %w", err)
	}

	return s.registry.Lookup(choice), nil
}

// snippetAll renders a snippet for every option concurrently and prints them in
// registration order.
func (s Snip) snippetAll(logger *log.Logger, exchange model.Exchange) error {
	options := s.registry.Options()
	snippets := make([]snippet.Snippet, len(options))
	report := reporter(logger)

	group := errgroup.Group{}

	for i, option := range options {
		group.Go(func() error {
			snippets[i] = snippet.Render(exchange, option, report)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}

	logger.Debug("Generated all snippets", slog.Int("count", len(snippets)))

	for i, generated := range snippets {
		if i > 0 {
			fmt.Fprintln(s.stdout)
		}

		fmt.Fprintf(s.stdout, "%s %s\n", hue.Bold.Text(options[i].Name()), dimmed.Text("("+generated.Key+")"))
		fmt.Fprintln(s.stdout, strings.Repeat("─", sepWidth))
		writeSnippet(s.stdout, generated)
	}

	return nil
}

// writeSnippet writes the snippet text to w, ending it with a newline.
func writeSnippet(w io.Writer, generated snippet.Snippet) {
	fmt.Fprint(w, generated.Text)

	if !strings.HasSuffix(generated.Text, "\n") {
		fmt.Fprintln(w)
	}
}
