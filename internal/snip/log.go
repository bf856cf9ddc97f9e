package snip

import (
	"errors"
	"log/slog"

	"go.followtheprocess.codes/log"
	"go.followtheprocess.codes/snip/internal/snippet"
)

// reporter returns a [snippet.Reporter] that logs generation failures to logger.
func reporter(logger *log.Logger) snippet.Reporter {
	return snippet.ReporterFunc(func(err error) {
		attrs := []slog.Attr{slog.String("error", err.Error())}

		var genErr *snippet.GenerationError
		if errors.As(err, &genErr) {
			attrs = append(attrs, slog.String("target", genErr.Target), slog.String("client", genErr.Client))
		}

		logger.Error("Snippet generation failed", attrs...)
	})
}
