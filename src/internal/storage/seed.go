package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"memory-gateway/src/internal/memory"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

var ErrUnsupportedFormat = errors.New("unsupported seed format")

// Dataset is an ordered record collection read from a seed source. Taxonomy is
// empty when the source does not declare one.
type Dataset struct {
	Taxonomy string
	Records  []memory.Record
}

type seedRecord struct {
	MemoryID   string   `json:"memory_id" yaml:"memory_id" msgpack:"memory_id"`
	Title      string   `json:"title" yaml:"title" msgpack:"title"`
	Branch     string   `json:"branch" yaml:"branch" msgpack:"branch"`
	Content    string   `json:"content" yaml:"content" msgpack:"content"`
	Salience   float64  `json:"salience" yaml:"salience" msgpack:"salience"`
	MemoryType string   `json:"memory_type" yaml:"memory_type" msgpack:"memory_type"`
	Keywords   []string `json:"keywords" yaml:"keywords" msgpack:"keywords"`
	Provenance string   `json:"provenance,omitempty" yaml:"provenance,omitempty" msgpack:"provenance,omitempty"`
}

type seedDocument struct {
	Taxonomy  string       `json:"taxonomy,omitempty" yaml:"taxonomy,omitempty" msgpack:"taxonomy,omitempty"`
	CreatedAt *time.Time   `json:"created_at,omitempty" yaml:"created_at,omitempty" msgpack:"created_at,omitempty"`
	Memories  []seedRecord `json:"memories" yaml:"memories" msgpack:"memories"`
}

func (r seedRecord) toRecord() memory.Record {
	return memory.Record{
		MemoryID:   r.MemoryID,
		Title:      r.Title,
		Branch:     r.Branch,
		Content:    r.Content,
		Salience:   r.Salience,
		MemoryType: memory.MemoryType(strings.ToLower(strings.TrimSpace(r.MemoryType))),
		Keywords:   r.Keywords,
		Provenance: r.Provenance,
	}
}

func fromRecord(r memory.Record) seedRecord {
	return seedRecord{
		MemoryID:   r.MemoryID,
		Title:      r.Title,
		Branch:     r.Branch,
		Content:    r.Content,
		Salience:   r.Salience,
		MemoryType: string(r.MemoryType),
		Keywords:   r.Keywords,
		Provenance: r.Provenance,
	}
}

func toDocument(ds Dataset) seedDocument {
	doc := seedDocument{Taxonomy: ds.Taxonomy, Memories: make([]seedRecord, len(ds.Records))}
	for i, r := range ds.Records {
		doc.Memories[i] = fromRecord(r)
	}
	return doc
}

func (doc seedDocument) dataset() Dataset {
	ds := Dataset{Taxonomy: doc.Taxonomy, Records: make([]memory.Record, len(doc.Memories))}
	for i, r := range doc.Memories {
		ds.Records[i] = r.toRecord()
	}
	return ds
}

// LoadDataset reads a seed source, picking the decoder from the file
// extension: .json, .yaml/.yml, .msgpack, or .db/.sqlite/.sqlite3. JSON and
// YAML accept either a document with a "memories" list or a bare list.
func LoadDataset(path string) (Dataset, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".db" || ext == ".sqlite" || ext == ".sqlite3" {
		return LoadSQLite(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("read seed %s: %w", path, err)
	}

	var doc seedDocument
	switch ext {
	case ".json":
		doc, err = decodeJSON(data)
	case ".yaml", ".yml":
		doc, err = decodeYAML(data)
	case ".msgpack", ".mpk":
		err = msgpack.Unmarshal(data, &doc)
	default:
		return Dataset{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return Dataset{}, fmt.Errorf("decode seed %s: %w", path, err)
	}
	return doc.dataset(), nil
}

func decodeJSON(data []byte) (seedDocument, error) {
	var doc seedDocument
	trimmed := bytes.TrimSpace(data)
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return doc, dec.Decode(&doc.Memories)
	}
	return doc, dec.Decode(&doc)
}

func decodeYAML(data []byte) (seedDocument, error) {
	var doc seedDocument
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return doc, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if len(root.Content) > 0 && root.Content[0].Kind == yaml.SequenceNode {
		return doc, dec.Decode(&doc.Memories)
	}
	return doc, dec.Decode(&doc)
}

// WriteDataset writes ds to path in the format implied by its extension.
// Every format it writes is readable by LoadDataset.
func WriteDataset(path string, ds Dataset) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".db" || ext == ".sqlite" || ext == ".sqlite3" {
		return WriteSQLite(path, ds)
	}

	doc := toDocument(ds)
	var (
		data []byte
		err  error
	)
	switch ext {
	case ".json":
		data, err = json.MarshalIndent(&doc, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(&doc)
	case ".msgpack", ".mpk":
		data, err = msgpack.Marshal(&doc)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return fmt.Errorf("encode seed %s: %w", path, err)
	}
	return os.WriteFile(path, data, 0644)
}
