package memory

import (
	"fmt"
	"strings"
)

// Store is an immutable, ordered collection of records. It is safe for
// concurrent use without locking; replacing the collection means building a
// new Store.
type Store struct {
	records  []Record
	taxonomy Taxonomy
}

// NewStore validates and copies records in the given order. Keywords are
// lowercased so exact-token matching stays case-insensitive.
func NewStore(records []Record, taxonomy Taxonomy) (*Store, error) {
	seen := make(map[string]struct{}, len(records))
	owned := make([]Record, 0, len(records))
	for _, r := range records {
		if err := r.validate(taxonomy); err != nil {
			return nil, err
		}
		if _, dup := seen[r.MemoryID]; dup {
			return nil, fmt.Errorf("record %s: %w", r.MemoryID, ErrDuplicateID)
		}
		seen[r.MemoryID] = struct{}{}

		r = r.clone()
		for i, kw := range r.Keywords {
			r.Keywords[i] = strings.ToLower(strings.TrimSpace(kw))
		}
		owned = append(owned, r)
	}
	return &Store{records: owned, taxonomy: taxonomy}, nil
}

// AllRecords returns every record in insertion order.
func (s *Store) AllRecords() []Record {
	out := make([]Record, len(s.records))
	for i, r := range s.records {
		out[i] = r.clone()
	}
	return out
}

// FilterByBranch returns the records whose branch contains branch as a
// case-insensitive substring, preserving order. An empty branch selects all
// records.
func (s *Store) FilterByBranch(branch string) []Record {
	matched := s.filterByBranch(branch)
	out := make([]Record, len(matched))
	for i, r := range matched {
		out[i] = r.clone()
	}
	return out
}

// filterByBranch shares the store's backing records; callers must not modify them.
func (s *Store) filterByBranch(branch string) []Record {
	if branch == "" {
		return s.records
	}
	needle := strings.ToLower(branch)
	out := make([]Record, 0)
	for _, r := range s.records {
		if strings.Contains(strings.ToLower(r.Branch), needle) {
			out = append(out, r)
		}
	}
	return out
}

func (s *Store) Len() int {
	return len(s.records)
}

func (s *Store) Taxonomy() Taxonomy {
	return s.taxonomy
}
