package factors

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/hplcgreen/internal/model"
)

// Document is the YAML exchange format of a factor table.
type Document struct {
	Version  int                   `yaml:"version"`
	Reagents []model.ReagentFactor `yaml:"reagents"`
}

// Encode writes the table as YAML.
func Encode(w io.Writer, items []model.ReagentFactor) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Document{Version: DataVersion, Reagents: items}); err != nil {
		return err
	}
	return enc.Close()
}

// Decode reads a YAML factor table. Unknown keys are rejected.
func Decode(r io.Reader) (Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return Document{}, fmt.Errorf("factor file is empty")
		}
		return Document{}, fmt.Errorf("parse factor file: %w", err)
	}
	if len(doc.Reagents) == 0 {
		return Document{}, fmt.Errorf("factor file has no reagents")
	}
	if _, err := NewTable(doc.Reagents); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// LoadFile reads a YAML factor table from path.
func LoadFile(path string) (Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return Document{}, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only factor file.
			_ = cerr
		}
	}()
	return Decode(file)
}

// WriteFile writes the table to path via a temp file and rename.
func WriteFile(path string, items []model.ReagentFactor) error {
	var buf bytes.Buffer
	if err := Encode(&buf, items); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
