// Package store persists settings and saved requests in a SQLite database.
package store

import (
	"bytes"
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.followtheprocess.codes/log"
	"go.followtheprocess.codes/snip/internal/codec"
	"go.followtheprocess.codes/snip/internal/model"
	"go.followtheprocess.codes/snip/internal/snippet"
	_ "modernc.org/sqlite" // SQLite driver
)

// Setting keys.
const (
	// SnippetFormatKey holds the key of the last selected snippet option.
	SnippetFormatKey = "export_snippet_format"
)

// ErrNotFound is returned when a saved request doesn't exist.
var ErrNotFound = errors.New("not found")

//go:embed schema.sql
var schema string

// Store is a handle to the database, it is safe for concurrent use.
type Store struct {
	db     *sql.DB
	logger *log.Logger
}

// Open opens (creating if necessary) the database at path and applies the schema.
func Open(ctx context.Context, path string, logger *log.Logger) (*Store, error) {
	logger = logger.Prefixed("store")

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("could not create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	if err := applySchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not apply schema: %w", err)
	}

	logger.Debug("Opened database", slog.String("path", path))

	return &Store{db: db, logger: logger}, nil
}

// applySchema sets connection pragmas and creates any missing tables.
func applySchema(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("could not set pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("could not execute schema: %w", err)
	}

	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Setting returns the value stored under key, ok is false if there isn't one.
func (s *Store) Setting(ctx context.Context, key string) (value string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("could not read setting %s: %w", key, err)
	}

	return value, true, nil
}

// SetSetting stores value under key, replacing any previous value.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key,
		value,
	)
	if err != nil {
		return fmt.Errorf("could not write setting %s: %w", key, err)
	}

	return nil
}

// SnippetFormat returns the key of the last selected snippet option, or
// [snippet.DefaultKey] if there isn't one.
//
// The stored key is returned as is even if no option has it, resolving it is
// up to the registry.
func (s *Store) SnippetFormat(ctx context.Context) (string, error) {
	key, ok, err := s.Setting(ctx, SnippetFormatKey)
	if err != nil {
		return "", err
	}

	if !ok || key == "" {
		return snippet.DefaultKey, nil
	}

	return key, nil
}

// SetSnippetFormat remembers key as the selected snippet option.
func (s *Store) SetSnippetFormat(ctx context.Context, key string) error {
	if _, _, ok := snippet.ParseKey(key); !ok {
		return fmt.Errorf("invalid snippet format %q, expected <target>~~<client>", key)
	}

	s.logger.Debug("Saving snippet format", slog.String("key", key))

	return s.SetSetting(ctx, SnippetFormatKey, key)
}

// SavedRequest is a request saved in the database.
type SavedRequest struct {
	CreatedAt time.Time           // When it was saved
	Request   *model.RequestInput // The request itself
	ID        string              // Unique ID
	Name      string              // Name given by the user
}

// SaveRequest saves req under name, returning the saved request.
func (s *Store) SaveRequest(ctx context.Context, name string, req *model.RequestInput) (SavedRequest, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return SavedRequest{}, errors.New("saved requests need a name")
	}

	buf := &bytes.Buffer{}
	if err := codec.Encode(buf, req, codec.JSON); err != nil {
		return SavedRequest{}, err
	}

	saved := SavedRequest{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		Request:   req,
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO requests (id, name, data, created_at) VALUES (?, ?, ?, ?)`,
		saved.ID,
		saved.Name,
		buf.String(),
		saved.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return SavedRequest{}, fmt.Errorf("could not save request %s: %w", name, err)
	}

	s.logger.Debug("Saved request", slog.String("id", saved.ID), slog.String("name", name))

	return saved, nil
}

// GetRequest returns the saved request with the given id, or [ErrNotFound].
func (s *Store) GetRequest(ctx context.Context, id string) (SavedRequest, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, data, created_at FROM requests WHERE id = ?`, id)

	saved, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SavedRequest{}, fmt.Errorf("request %s: %w", id, ErrNotFound)
	}

	return saved, err
}

// ListRequests returns every saved request, oldest first.
func (s *Store) ListRequests(ctx context.Context) ([]SavedRequest, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, data, created_at FROM requests ORDER BY created_at, name, id`)
	if err != nil {
		return nil, fmt.Errorf("could not list requests: %w", err)
	}
	defer rows.Close()

	var requests []SavedRequest

	for rows.Next() {
		saved, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}

		requests = append(requests, saved)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not list requests: %w", err)
	}

	return requests, nil
}

// DeleteRequest deletes the saved request with the given id, or returns [ErrNotFound].
func (s *Store) DeleteRequest(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM requests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("could not delete request %s: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not delete request %s: %w", id, err)
	}

	if n == 0 {
		return fmt.Errorf("request %s: %w", id, ErrNotFound)
	}

	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(row scanner) (SavedRequest, error) {
	var (
		saved   SavedRequest
		data    string
		created int64
	)

	if err := row.Scan(&saved.ID, &saved.Name, &data, &created); err != nil {
		return SavedRequest{}, err
	}

	req, err := codec.Decode(strings.NewReader(data), codec.JSON)
	if err != nil {
		return SavedRequest{}, fmt.Errorf("saved request %s is corrupt: %w", saved.ID, err)
	}

	saved.Request = req
	saved.CreatedAt = time.UnixMilli(created).UTC()

	return saved, nil
}
