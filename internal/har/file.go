package har

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.followtheprocess.codes/snip/internal/model"
)

// Extension is the file extension of a HAR file.
const Extension = ".har"

// maxSaveAttempts bounds the search for a free file name in [Save].
const maxSaveAttempts = 1000

// Export writes doc to w as indented JSON.
func Export(w io.Writer, doc Document) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("could not encode HAR: %w", err)
	}

	return nil
}

// Save writes doc to <dir>/<name>.har and returns the path it was written to.
//
// An existing file is never overwritten, if the name is taken then name.har.1,
// name.har.2 and so on are tried instead.
func Save(dir, name string, doc Document) (string, error) {
	if name == "" {
		return "", errors.New("cannot save a HAR file with no name")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("could not create %s: %w", dir, err)
	}

	base := filepath.Join(dir, name+Extension)

	for attempt := range maxSaveAttempts {
		path := base
		if attempt > 0 {
			path = base + "." + strconv.Itoa(attempt)
		}

		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}

		if err != nil {
			return "", fmt.Errorf("could not create %s: %w", path, err)
		}

		if err := Export(file, doc); err != nil {
			file.Close()
			return "", err
		}

		if err := file.Close(); err != nil {
			return "", fmt.Errorf("could not write %s: %w", path, err)
		}

		return path, nil
	}

	return "", fmt.Errorf("could not find a free file name for %s after %d attempts", base, maxSaveAttempts)
}

// Import reads a HAR document from r.
func Import(r io.Reader) (Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("could not parse HAR: %w", err)
	}

	if doc.Log.Version == "" {
		return Document{}, errors.New("could not parse HAR: missing log.version")
	}

	return doc, nil
}

// DecodeEntry reads a single HAR entry from r.
func DecodeEntry(r io.Reader) (Entry, error) {
	var entry Entry
	if err := json.NewDecoder(r).Decode(&entry); err != nil {
		return Entry{}, fmt.Errorf("could not parse HAR entry: %w", err)
	}

	return entry, nil
}

// Exchanges converts every entry in the document back to an exchange.
func (d Document) Exchanges() ([]model.Exchange, error) {
	exchanges := make([]model.Exchange, 0, len(d.Log.Entries))

	for i, entry := range d.Log.Entries {
		exchange, err := entry.Exchange()
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}

		exchanges = append(exchanges, exchange)
	}

	return exchanges, nil
}

// Exchange converts the entry back to an exchange.
//
// An entry with a zero status is taken to have no response, as happens when a
// browser exports a request that never completed.
func (e Entry) Exchange() (model.Exchange, error) {
	started := time.Time{}

	if e.StartedDateTime != "" {
		var err error

		started, err = time.Parse(time.RFC3339Nano, e.StartedDateTime)
		if err != nil {
			return model.Exchange{}, fmt.Errorf("bad startedDateTime %q: %w", e.StartedDateTime, err)
		}
	}

	exchange := model.Exchange{
		ID: e.Comment,
		Request: model.Request{
			Method:      e.Request.Method,
			URL:         e.Request.URL,
			HTTPVersion: e.Request.HTTPVersion,
			Headers:     headers(e.Request.Headers),
		},
		Timing: model.Timing{
			StartedAt: started,
			Blocked:   duration(e.Timings.Blocked),
			DNS:       duration(e.Timings.DNS),
			Connect:   duration(e.Timings.Connect),
			TLS:       duration(e.Timings.SSL),
			Send:      duration(e.Timings.Send),
			Wait:      duration(e.Timings.Wait),
			Receive:   duration(e.Timings.Receive),
		},
	}

	if e.Request.PostData != nil {
		body, err := decodeText(e.Request.PostData.Text, e.Request.PostData.Encoding)
		if err != nil {
			return model.Exchange{}, fmt.Errorf("bad request postData: %w", err)
		}

		exchange.Request.Body = body
	}

	if e.Response.Status == 0 {
		return exchange, nil
	}

	body, err := decodeText(e.Response.Content.Text, e.Response.Content.Encoding)
	if err != nil {
		return model.Exchange{}, fmt.Errorf("bad response content: %w", err)
	}

	exchange.Response = &model.Response{
		StatusCode:    e.Response.Status,
		StatusMessage: e.Response.StatusText,
		HTTPVersion:   e.Response.HTTPVersion,
		Headers:       headers(e.Response.Headers),
		Body:          body,
		EncodedLength: e.Response.BodySize,
	}

	return exchange, nil
}

func headers(pairs []NameValue) model.Headers {
	out := make(model.Headers, 0, len(pairs))
	for _, pair := range pairs {
		out = append(out, model.Header{Name: pair.Name, Value: pair.Value})
	}

	return out
}

// duration converts HAR milliseconds to a duration, negative means unknown.
func duration(ms float64) time.Duration {
	if ms < 0 {
		return model.PhaseUnknown
	}

	return time.Duration(ms * float64(time.Millisecond))
}

func decodeText(text, encoding string) ([]byte, error) {
	switch encoding {
	case "":
		if text == "" {
			return nil, nil
		}

		return []byte(text), nil
	case EncodingBase64:
		return base64.StdEncoding.DecodeString(text)
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
}
