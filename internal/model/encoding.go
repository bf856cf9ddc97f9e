package model

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// ErrUnsupportedEncoding is returned when a body uses a Content-Encoding we
// cannot encode or decode.
var ErrUnsupportedEncoding = errors.New("unsupported content encoding")

// parseEncodings splits a Content-Encoding header into its codings, in the
// order they were applied.
func parseEncodings(header string) []string {
	var codings []string

	for coding := range strings.SplitSeq(header, ",") {
		coding = strings.ToLower(strings.TrimSpace(coding))
		if coding == "" || coding == "identity" {
			continue
		}

		codings = append(codings, coding)
	}

	return codings
}

// EncodeBody applies the codings in the Content-Encoding header value to
// decoded, in the order they are listed.
func EncodeBody(decoded []byte, contentEncoding string) ([]byte, error) {
	body := decoded

	for _, coding := range parseEncodings(contentEncoding) {
		buf := &bytes.Buffer{}

		var (
			w   io.WriteCloser
			err error
		)

		switch coding {
		case "gzip", "x-gzip":
			w = gzip.NewWriter(buf)
		case "deflate":
			w = zlib.NewWriter(buf)
		case "zstd":
			w, err = zstd.NewWriter(buf)
			if err != nil {
				return nil, fmt.Errorf("could not create zstd encoder: %w", err)
			}
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, coding)
		}

		if _, err := w.Write(body); err != nil {
			return nil, fmt.Errorf("could not %s encode body: %w", coding, err)
		}

		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("could not %s encode body: %w", coding, err)
		}

		body = buf.Bytes()
	}

	return body, nil
}

// DecodeBody reverses the codings in the Content-Encoding header value,
// returning the decoded body.
func DecodeBody(encoded []byte, contentEncoding string) ([]byte, error) {
	if len(encoded) == 0 {
		return encoded, nil
	}

	codings := parseEncodings(contentEncoding)
	body := encoded

	// Codings are listed in the order they were applied so undo them backwards
	for i := len(codings) - 1; i >= 0; i-- {
		coding := codings[i]

		var (
			r   io.ReadCloser
			err error
		)

		switch coding {
		case "gzip", "x-gzip":
			r, err = gzip.NewReader(bytes.NewReader(body))
		case "deflate":
			r, err = zlib.NewReader(bytes.NewReader(body))
		case "zstd":
			var decoder *zstd.Decoder

			decoder, err = zstd.NewReader(bytes.NewReader(body))
			if err == nil {
				r = decoder.IOReadCloser()
			}
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, coding)
		}

		if err != nil {
			return nil, fmt.Errorf("could not %s decode body: %w", coding, err)
		}

		decoded, err := io.ReadAll(r)
		r.Close()

		if err != nil {
			return nil, fmt.Errorf("could not %s decode body: %w", coding, err)
		}

		body = decoded
	}

	return body, nil
}
