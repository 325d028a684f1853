package memory

// StandardSeed is the demo dataset for the standard taxonomy.
func StandardSeed() []Record {
	return []Record{
		{
			MemoryID:   "mem_001",
			Title:      "Vector schema sketch",
			Branch:     "project/architecture",
			Content:    "Outlined pgvector table shapes and indexing plan for memory retrieval.",
			Salience:   0.9,
			MemoryType: Semantic,
			Keywords:   []string{"pgvector", "schema", "index"},
			Provenance: "Architecture deep-dive notes captured during design session.",
		},
		{
			MemoryID:   "mem_002",
			Title:      "Agent briefing baseline",
			Branch:     "docs/briefs",
			Content:    "Captured requirements for Memory Gateway v1, including search and retrieve endpoints.",
			Salience:   0.8,
			MemoryType: Episodic,
			Keywords:   []string{"brief", "requirements", "gateway"},
			Provenance: "Project kickoff brief curated from stakeholder interviews.",
		},
		{
			MemoryID:   "mem_003",
			Title:      "Keyword scoring prototype",
			Branch:     "experiments/ranking",
			Content:    "Prototyped hybrid keyword and salience ranking with weight tuning placeholders.",
			Salience:   0.75,
			MemoryType: Semantic,
			Keywords:   []string{"ranking", "keyword", "salience"},
			Provenance: "Lab experiment summary on scoring heuristics.",
		},
		{
			MemoryID:   "mem_004",
			Title:      "RAG evaluation checklist",
			Branch:     "quality/checklists",
			Content:    "Defined evaluation rubric for assessing retrieval relevance and coverage.",
			Salience:   0.6,
			MemoryType: Procedural,
			Keywords:   []string{"rag", "evaluation", "quality"},
			Provenance: "Quality review checklist maintained by evaluation guild.",
		},
	}
}

// IdentitySeed is the demo dataset for the identity taxonomy.
func IdentitySeed() []Record {
	return []Record{
		{
			MemoryID: "mem_001",
			Title:    "Vehicle registration profile",
			Branch:   "identity/vehicle",
			Content: "Catalogued the 2022 Tesla Model 3 assigned to the agent, including VIN, " +
				"registration renewal dates, and charging access credentials.",
			Salience:   0.85,
			MemoryType: Identity,
			Keywords:   []string{"vehicle", "tesla", "vin"},
			Provenance: "Fleet registry export reconciled with the agent profile.",
		},
		{
			MemoryID: "mem_002",
			Title:    "Normandy travel log",
			Branch:   "travel/normandy",
			Content: "Recorded the reconnaissance trip through Normandy, noting Omaha Beach terrain, " +
				"local contacts, and evening shelter arrangements after the coastal survey.",
			Salience:   0.95,
			MemoryType: Episodic,
			Keywords:   []string{"normandy", "travel", "recon"},
			Provenance: "Field journal transcribed after the coastal survey.",
		},
		{
			MemoryID: "mem_003",
			Title:    "AHS intake workflow",
			Branch:   "work/ahs",
			Content: "Documented the Ariadne Health Services patient intake procedure: verify ID, " +
				"collect triage vitals, prioritise emergencies, and brief the on-call physician.",
			Salience:   0.8,
			MemoryType: Procedural,
			Keywords:   []string{"ahs", "workflow", "triage"},
			Provenance: "Intake runbook maintained by the AHS operations desk.",
		},
	}
}

// DefaultSeed returns the built-in dataset matching a taxonomy.
func DefaultSeed(t Taxonomy) []Record {
	if t.Name == IdentityTaxonomy.Name {
		return IdentitySeed()
	}
	return StandardSeed()
}

// DefaultStore builds a store from the built-in dataset of a taxonomy.
func DefaultStore(t Taxonomy) (*Store, error) {
	return NewStore(DefaultSeed(t), t)
}
