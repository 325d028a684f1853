package memory

// TypeGroup holds the ranked hits of one memory type together with their provenance.
type TypeGroup struct {
	Hits       []ScoredRecord
	Provenance []ProvenanceEntry
}

// TaskResult is the grouped output of task retrieval. Provenance spans all
// groups in rank order.
type TaskResult struct {
	Groups     map[MemoryType]*TypeGroup
	Provenance []ProvenanceEntry
}

// Search ranks the whole store against query.
func (s *Store) Search(query string, limit int) []ScoredRecord {
	return Rank(s.records, query, "", limit)
}

// RetrieveContext narrows the store to branch and ranks the survivors against
// task, reusing branch as a scoring signal. It is the ungrouped form of
// RetrieveForTask.
func (s *Store) RetrieveContext(task, branch string, limit int) []ScoredRecord {
	return Rank(s.filterByBranch(branch), task, branch, limit)
}

// RetrieveForTask runs RetrieveContext and groups the ranked records by memory
// type, attaching provenance per group and overall.
func (s *Store) RetrieveForTask(task, branch string, limit int) TaskResult {
	return GroupByType(s.RetrieveContext(task, branch, limit))
}

// GroupByType splits an already ranked sequence by memory type. Each group
// keeps the relative order of the input.
func GroupByType(ranked []ScoredRecord) TaskResult {
	res := TaskResult{
		Groups:     make(map[MemoryType]*TypeGroup),
		Provenance: make([]ProvenanceEntry, 0, len(ranked)),
	}
	for _, hit := range ranked {
		g, ok := res.Groups[hit.Record.MemoryType]
		if !ok {
			g = &TypeGroup{}
			res.Groups[hit.Record.MemoryType] = g
		}
		p := provenanceOf(hit.Record)
		g.Hits = append(g.Hits, hit)
		g.Provenance = append(g.Provenance, p)
		res.Provenance = append(res.Provenance, p)
	}
	return res
}
