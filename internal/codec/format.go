package codec

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"go.followtheprocess.codes/snip/internal/model"
	"go.yaml.in/yaml/v4"
)

const yamlIndent = 2

// Format is a document format for a persisted request.
type Format int

// Supported formats.
const (
	JSON Format = iota // JSON, the canonical format
	YAML               // YAML
	TOML               // TOML
)

// String implements [fmt.Stringer] for [Format].
func (f Format) String() string {
	switch f {
	case JSON:
		return "json"
	case YAML:
		return "yaml"
	case TOML:
		return "toml"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// FormatFromPath picks the [Format] for a file based on its extension.
func FormatFromPath(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return JSON, nil
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	default:
		return 0, fmt.Errorf("unsupported request file extension %q, expected .json, .yaml, .yml or .toml", ext)
	}
}

// Encode writes the persisted form of req to w in the given format.
func Encode(w io.Writer, req *model.RequestInput, format Format) error {
	persisted := Serialize(req)

	switch format {
	case JSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")

		return encoder.Encode(persisted)
	case YAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(yamlIndent)

		if err := encoder.Encode(persisted); err != nil {
			return err
		}

		return encoder.Close()
	case TOML:
		encoder := toml.NewEncoder(w)
		encoder.Indent = ""

		return encoder.Encode(persisted)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// Decode reads a persisted request from r in the given format and rebuilds it.
//
// Unknown fields are rejected.
func Decode(r io.Reader, format Format) (*model.RequestInput, error) {
	var persisted Persisted

	switch format {
	case JSON:
		decoder := json.NewDecoder(r)
		decoder.DisallowUnknownFields()

		if err := decoder.Decode(&persisted); err != nil {
			return nil, fmt.Errorf("could not decode JSON: %w", err)
		}
	case YAML:
		decoder := yaml.NewDecoder(r)
		decoder.KnownFields(true)

		if err := decoder.Decode(&persisted); err != nil {
			return nil, fmt.Errorf("could not decode YAML: %w", err)
		}
	case TOML:
		meta, err := toml.NewDecoder(r).Decode(&persisted)
		if err != nil {
			return nil, fmt.Errorf("could not decode TOML: %w", err)
		}

		if undecoded := meta.Undecoded(); len(undecoded) != 0 {
			return nil, fmt.Errorf("could not decode TOML: unknown keys %v", undecoded)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}

	return Deserialize(persisted)
}

// ReadFile loads a persisted request from a file, the format is chosen from
// the file extension.
func ReadFile(path string) (*model.RequestInput, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open request file: %w", err)
	}
	defer f.Close()

	return Decode(f, format)
}

// WriteFile saves req to a file, the format is chosen from the file extension.
func WriteFile(path string, req *model.RequestInput) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create request file: %w", err)
	}

	if err := Encode(f, req, format); err != nil {
		f.Close()
		return fmt.Errorf("could not write %s request: %w", format, err)
	}

	return f.Close()
}
