package knowledge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/medguard-inference-server/internal/domain"
)

// Format is a catalog file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the encoding from a file extension. Anything that is
// not .json is read as YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// ParseFormat converts a user supplied format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported catalog format %q", s)
	}
}

// Decode reads a catalog without validating it.
func Decode(r io.Reader, format Format) (*domain.Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var catalog domain.Catalog
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&catalog); err != nil {
			return nil, fmt.Errorf("failed to parse JSON catalog: %w", err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&catalog); err != nil {
			return nil, fmt.Errorf("failed to parse YAML catalog: %w", err)
		}
	}
	return &catalog, nil
}

// Encode writes catalog in the given format.
func Encode(w io.Writer, catalog *domain.Catalog, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(catalog)
	default:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(catalog); err != nil {
			return err
		}
		return enc.Close()
	}
}

// ReadFile decodes the catalog file at path.
func ReadFile(path string) (*domain.Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()

	return Decode(f, FormatFromPath(path))
}

// LoadFile decodes and validates the catalog file at path.
func LoadFile(path string) (*Base, error) {
	catalog, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return New(catalog)
}

// WriteFile encodes catalog to path, choosing the format from the extension.
func WriteFile(path string, catalog *domain.Catalog) error {
	return WriteFileAs(path, catalog, FormatFromPath(path))
}

// WriteFileAs encodes catalog to path in format. The catalog is written to a
// temporary file that replaces path only once it is complete, so a failed
// write never leaves a partial catalog behind.
func WriteFileAs(path string, catalog *domain.Catalog, format Format) error {
	var buf bytes.Buffer
	if err := Encode(&buf, catalog, format); err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".catalog-*")
	if err != nil {
		return fmt.Errorf("failed to write catalog file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write catalog file: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write catalog file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write catalog file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write catalog file: %w", err)
	}
	return nil
}
