// Package memory holds the record store, the ranking engine and the retrieval
// modes built on it.
package memory

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// MemoryType classifies a record. The accepted values are fixed by the store's Taxonomy.
type MemoryType string

const (
	Semantic   MemoryType = "semantic"
	Episodic   MemoryType = "episodic"
	Procedural MemoryType = "procedural"
	Identity   MemoryType = "identity"
)

var (
	ErrEmptyID           = errors.New("memory id is empty")
	ErrDuplicateID       = errors.New("duplicate memory id")
	ErrInvalidSalience   = errors.New("salience outside [0,1]")
	ErrUnknownMemoryType = errors.New("memory type not in taxonomy")
	ErrUnknownTaxonomy   = errors.New("unknown taxonomy")
)

// Taxonomy is a named closed set of memory types.
type Taxonomy struct {
	Name  string
	Types []MemoryType
}

var (
	StandardTaxonomy = Taxonomy{Name: "standard", Types: []MemoryType{Semantic, Episodic, Procedural}}
	IdentityTaxonomy = Taxonomy{Name: "identity", Types: []MemoryType{Identity, Episodic, Procedural}}
)

// TaxonomyByName resolves one of the built-in taxonomies.
func TaxonomyByName(name string) (Taxonomy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StandardTaxonomy.Name:
		return StandardTaxonomy, nil
	case IdentityTaxonomy.Name:
		return IdentityTaxonomy, nil
	}
	return Taxonomy{}, fmt.Errorf("%w: %q", ErrUnknownTaxonomy, name)
}

func (t Taxonomy) Contains(mt MemoryType) bool {
	return slices.Contains(t.Types, mt)
}

// Record is a single stored memory. Records are treated as values and never
// modified once a Store owns them.
type Record struct {
	MemoryID   string     `json:"memory_id"`
	Title      string     `json:"title"`
	Branch     string     `json:"branch"`
	Content    string     `json:"content"`
	Salience   float64    `json:"salience"`
	MemoryType MemoryType `json:"memory_type"`
	Keywords   []string   `json:"keywords"`
	Provenance string     `json:"provenance"`
}

func (r Record) clone() Record {
	r.Keywords = slices.Clone(r.Keywords)
	return r
}

func (r Record) validate(t Taxonomy) error {
	if strings.TrimSpace(r.MemoryID) == "" {
		return ErrEmptyID
	}
	// NaN fails both comparisons, so test for the valid range instead.
	if !(r.Salience >= 0 && r.Salience <= 1) {
		return fmt.Errorf("record %s: %w (got %v)", r.MemoryID, ErrInvalidSalience, r.Salience)
	}
	if !t.Contains(r.MemoryType) {
		return fmt.Errorf("record %s: %w %s (got %q)", r.MemoryID, ErrUnknownMemoryType, t.Name, r.MemoryType)
	}
	return nil
}

// ScoredRecord pairs a record with its composite relevance score.
type ScoredRecord struct {
	Record Record
	Score  float64
}

// ProvenanceEntry is the lineage projection of a record returned by task retrieval.
type ProvenanceEntry struct {
	MemoryID   string     `json:"memory_id"`
	MemoryType MemoryType `json:"memory_type"`
	Detail     string     `json:"detail"`
}

func provenanceOf(r Record) ProvenanceEntry {
	return ProvenanceEntry{MemoryID: r.MemoryID, MemoryType: r.MemoryType, Detail: r.Provenance}
}
