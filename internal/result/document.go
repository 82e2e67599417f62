package result

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.yaml.in/yaml/v3"

	"github.com/koustreak/blindsight/internal/errs"
)

// Document is the persisted, read-only form of a ScanResult. The first four
// keys keep the layout of the original results file.
type Document struct {
	DatabaseType      string              `json:"database_type" yaml:"database_type" toml:"database_type"`
	Tables            []string            `json:"tables" yaml:"tables" toml:"tables"`
	Columns           map[string][]string `json:"columns" yaml:"columns" toml:"columns"`
	Data              map[string][]Row    `json:"data" yaml:"data" toml:"data"`
	ID                string              `json:"id" yaml:"id" toml:"id"`
	Target            string              `json:"target" yaml:"target" toml:"target"`
	State             State               `json:"state" yaml:"state" toml:"state"`
	RowCounts         map[string]int      `json:"row_counts" yaml:"row_counts" toml:"row_counts"`
	Warnings          []Warning           `json:"warnings,omitempty" yaml:"warnings,omitempty" toml:"warnings,omitempty"`
	Probes            int64               `json:"probes" yaml:"probes" toml:"probes"`
	TransportFailures int64               `json:"transport_failures" yaml:"transport_failures" toml:"transport_failures"`
	Error             string              `json:"error,omitempty" yaml:"error,omitempty" toml:"error,omitempty"`
	StartedAt         time.Time           `json:"started_at" yaml:"started_at" toml:"started_at"`
	FinishedAt        time.Time           `json:"finished_at" yaml:"finished_at" toml:"finished_at"`
}

// Format is an encoding for Documents.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ParseFormat validates a configured format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatYAML, FormatTOML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", errs.Newf(errs.ErrKindInvalidInput, "unsupported output format %q", s)
	}
}

// FormatFromPath guesses the format from a file or object key extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Extension is the file extension, without the dot.
func (f Format) Extension() string {
	return string(f)
}

// ContentType is the MIME type used for object uploads and HTTP responses.
func (f Format) ContentType() string {
	switch f {
	case FormatYAML:
		return "application/yaml"
	case FormatTOML:
		return "application/toml"
	default:
		return "application/json"
	}
}

// Encode writes doc in format f.
func Encode(w io.Writer, f Format, doc *Document) error {
	var err error
	switch f {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err = enc.Encode(doc); err == nil {
			err = enc.Close()
		}
	case FormatTOML:
		err = toml.NewEncoder(w).Encode(doc)
	default:
		return errs.Newf(errs.ErrKindInvalidInput, "unsupported output format %q", f)
	}
	if err != nil {
		return errs.Wrap(errs.ErrKindQueryFailed, "failed to encode scan result", err)
	}
	return nil
}

// Marshal is Encode into a byte slice.
func Marshal(f Format, doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, f, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads a Document written by Encode.
func Decode(r io.Reader, f Format) (*Document, error) {
	var doc Document
	var err error
	switch f {
	case FormatJSON, "":
		err = json.NewDecoder(r).Decode(&doc)
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&doc)
	case FormatTOML:
		_, err = toml.NewDecoder(r).Decode(&doc)
	default:
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unsupported output format %q", f)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to decode scan result", err)
	}
	return &doc, nil
}
