// Package server implements snip's HTTP API, a JSON surface over snippet generation,
// HAR export and the persisted snippet format setting.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.followtheprocess.codes/log"
	"go.followtheprocess.codes/snip/internal/har"
	"go.followtheprocess.codes/snip/internal/model"
	"go.followtheprocess.codes/snip/internal/snippet"
)

const (
	// DefaultAddr is the address the server listens on by default.
	DefaultAddr = "localhost:7878"

	readTimeout  = 15 * time.Second
	writeTimeout = 30 * time.Second

	// maxBodySize bounds request bodies, HAR entries can carry large responses.
	maxBodySize = 32 << 20
)

// Settings reads and writes the persisted snippet format.
type Settings interface {
	SnippetFormat(ctx context.Context) (string, error)
	SetSnippetFormat(ctx context.Context, key string) error
}

// Config configures a [Server].
type Config struct {
	// Registry holds the available snippet options
	Registry *snippet.Registry

	// Settings persists the selected snippet format
	Settings Settings

	// Creator is written to exported HAR documents
	Creator har.Creator

	// Addr is the address to listen on, defaults to [DefaultAddr]
	Addr string
}

// Server is the HTTP API.
type Server struct {
	router chi.Router
	logger *log.Logger
	config Config
}

// New returns a new [Server].
func New(logger *log.Logger, config Config) (*Server, error) {
	if config.Registry == nil {
		return nil, errors.New("server needs a snippet registry")
	}

	if config.Settings == nil {
		return nil, errors.New("server needs a settings store")
	}

	if config.Addr == "" {
		config.Addr = DefaultAddr
	}

	s := &Server{
		router: chi.NewRouter(),
		logger: logger.Prefixed("server"),
		config: config,
	}

	s.routes()

	return s, nil
}

func (s *Server) routes() {
	r := s.router

	r.Get("/formats", s.handleFormats)
	r.Post("/snippet", s.handleSnippet)
	r.Post("/har", s.handleHAR)
	r.Get("/settings/format", s.handleGetFormat)
	r.Put("/settings/format", s.handlePutFormat)
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("HTTP request", slog.String("method", r.Method), slog.String("path", r.URL.Path))

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	s.router.ServeHTTP(w, r)
}

// HTTPServer returns a [http.Server] ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.config.Addr,
		Handler:      s,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
}

// optionJSON is the JSON form of a [snippet.Option].
type optionJSON struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
	Language    string `json:"language"`
}

// groupJSON is the JSON form of a [snippet.Group].
type groupJSON struct {
	Target  string       `json:"target"`
	Title   string       `json:"title"`
	Options []optionJSON `json:"options"`
}

// formatsJSON is the response to GET /formats.
type formatsJSON struct {
	Selected string      `json:"selected"`
	Groups   []groupJSON `json:"groups"`
}

// formatJSON is the body of GET and PUT /settings/format.
type formatJSON struct {
	Format string `json:"format"`
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	selected, err := s.selected(r.Context())
	if err != nil {
		s.logger.Error("Could not read snippet format", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err.Error())

		return
	}

	response := formatsJSON{Selected: selected.Key()}

	for _, group := range s.config.Registry.Groups() {
		g := groupJSON{Target: group.Target, Title: group.Title}
		for _, option := range group.Options {
			g.Options = append(g.Options, optionJSON{
				Key:         option.Key(),
				Title:       option.Title,
				Description: option.Description,
				Link:        option.Link,
				Language:    option.Language(),
			})
		}

		response.Groups = append(response.Groups, g)
	}

	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleSnippet(w http.ResponseWriter, r *http.Request) {
	exchange, ok := s.decodeExchange(w, r)
	if !ok {
		return
	}

	var option snippet.Option

	if key := r.URL.Query().Get("format"); key != "" {
		option = s.config.Registry.Lookup(key)
	} else {
		var err error

		option, err = s.selected(r.Context())
		if err != nil {
			s.logger.Error("Could not read snippet format", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, err.Error())

			return
		}
	}

	generated := snippet.Render(exchange, option, snippet.ReporterFunc(func(err error) {
		s.logger.Error("Snippet generation failed", slog.String("format", option.Key()), slog.String("error", err.Error()))
	}))

	writeJSON(w, http.StatusOK, generated)
}

func (s *Server) handleHAR(w http.ResponseWriter, r *http.Request) {
	exchange, ok := s.decodeExchange(w, r)
	if !ok {
		return
	}

	if !har.Exportable(exchange) {
		writeError(w, http.StatusConflict, "exchange has no complete response and cannot be exported")
		return
	}

	doc, err := har.Build(s.config.Creator, exchange)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	name := exchange.ID
	if name == "" {
		name = "exchange"
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name + har.Extension}))

	if err := har.Export(w, doc); err != nil {
		s.logger.Error("Could not write HAR document", slog.String("error", err.Error()))
	}
}

func (s *Server) handleGetFormat(w http.ResponseWriter, r *http.Request) {
	selected, err := s.selected(r.Context())
	if err != nil {
		s.logger.Error("Could not read snippet format", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err.Error())

		return
	}

	writeJSON(w, http.StatusOK, formatJSON{Format: selected.Key()})
}

func (s *Server) handlePutFormat(w http.ResponseWriter, r *http.Request) {
	var body formatJSON
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if !s.config.Registry.Has(body.Format) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown snippet format %q", body.Format))
		return
	}

	if err := s.config.Settings.SetSnippetFormat(r.Context(), body.Format); err != nil {
		s.logger.Error("Could not save snippet format", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err.Error())

		return
	}

	s.logger.Info("Snippet format changed", slog.String("format", body.Format))

	writeJSON(w, http.StatusOK, body)
}

// selected returns the option for the persisted snippet format.
func (s *Server) selected(ctx context.Context) (snippet.Option, error) {
	key, err := s.config.Settings.SnippetFormat(ctx)
	if err != nil {
		return snippet.Option{}, err
	}

	return s.config.Registry.Lookup(key), nil
}

// decodeExchange decodes a HAR entry from the request body, writing a 400 and
// returning false if it can't.
func (s *Server) decodeExchange(w http.ResponseWriter, r *http.Request) (model.Exchange, bool) {
	entry, err := har.DecodeEntry(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return model.Exchange{}, false
	}

	exchange, err := entry.Exchange()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return model.Exchange{}, false
	}

	return exchange, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
