package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(id string, salience float64, keywords ...string) Record {
	return Record{
		MemoryID:   id,
		Title:      "title " + id,
		Branch:     "branch/" + id,
		Salience:   salience,
		MemoryType: Semantic,
		Keywords:   keywords,
	}
}

func TestKeywordScore(t *testing.T) {
	vehicle := IdentitySeed()[0]
	normandy := IdentitySeed()[1]

	tests := []struct {
		name   string
		query  string
		branch string
		rec    Record
		want   float64
	}{
		{"blank query and branch never match", "   ", "", vehicle, 0},
		{"title substring counts once", "registration", "", vehicle, 0.5},
		{"query is trimmed and lowercased", "  REGISTRATION ", "", vehicle, 0.5},
		{"each keyword counts independently", "tesla vin", "", vehicle, 1},
		{"duplicate tokens collapse", "tesla tesla", "", vehicle, 0.5},
		{"keywords need exact tokens", "teslas", "", vehicle, 0},
		{"branch hint alone", "", "TRAVEL", normandy, 0.5},
		{"branch hint mismatch", "", "work", normandy, 0},
		{"hits saturate at one", "normandy recon", "travel", normandy, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, KeywordScore(tc.query, tc.branch, tc.rec))
		})
	}
}

func TestScore(t *testing.T) {
	vehicle := IdentitySeed()[0]

	score, ok := Score("registration", "", vehicle)
	require.True(t, ok)
	assert.Equal(t, 0.7275, score)

	score, ok = Score("tesla vin", "", vehicle)
	require.True(t, ok)
	assert.Equal(t, 0.9025, score)

	score, ok = Score("submarine", "", Record{MemoryID: "x", Salience: 1})
	assert.False(t, ok)
	assert.Zero(t, score)
}

func TestRank_ExcludesUnmatchedRegardlessOfSalience(t *testing.T) {
	candidates := []Record{
		record("loud", 1.0),
		record("quiet", 0.1, "needle"),
	}
	got := Rank(candidates, "needle", "", 10)
	require.Len(t, got, 1)
	assert.Equal(t, "quiet", got[0].Record.MemoryID)
	assert.Equal(t, 0.24, got[0].Score)
}

func TestRank_OrdersByScoreDescending(t *testing.T) {
	candidates := []Record{
		record("low", 0.2, "x"),
		record("high", 0.9, "x"),
		record("mid", 0.5, "x"),
	}
	got := Rank(candidates, "x", "", 10)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"high", "mid", "low"}, []string{got[0].Record.MemoryID, got[1].Record.MemoryID, got[2].Record.MemoryID})
}

func TestRank_TiesKeepCandidateOrder(t *testing.T) {
	forward := []Record{record("a", 0.5, "x"), record("b", 0.5, "x"), record("c", 0.5, "x")}
	backward := []Record{forward[2], forward[1], forward[0]}

	got := Rank(forward, "x", "", 10)
	assert.Equal(t, []string{"a", "b", "c"}, []string{got[0].Record.MemoryID, got[1].Record.MemoryID, got[2].Record.MemoryID})

	got = Rank(backward, "x", "", 10)
	assert.Equal(t, []string{"c", "b", "a"}, []string{got[0].Record.MemoryID, got[1].Record.MemoryID, got[2].Record.MemoryID})
}

func TestRank_Limits(t *testing.T) {
	candidates := []Record{record("a", 0.5, "x"), record("b", 0.6, "x"), record("c", 0.7, "x")}

	assert.Empty(t, Rank(candidates, "x", "", 0))
	assert.Empty(t, Rank(candidates, "x", "", -3))
	assert.Len(t, Rank(candidates, "x", "", 2), 2)
	assert.Len(t, Rank(candidates, "x", "", 100), 3)
}

func TestRank_EmptyCandidates(t *testing.T) {
	got := Rank(nil, "anything", "branch", 5)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRank_ScoresStayInUnitRange(t *testing.T) {
	candidates := append(StandardSeed(), IdentitySeed()...)
	for i := range candidates {
		candidates[i].MemoryID = candidates[i].MemoryID + "-" + string(rune('a'+i))
	}
	candidates = append(candidates, record("zero", 0, "x"), record("one", 1, "x", "y", "z"))

	queries := []string{"x", "x y z", "registration", "ranking keyword salience", "normandy travel recon", "memory retrieval"}
	for _, q := range queries {
		for _, branch := range []string{"", "a", "travel"} {
			got := Rank(candidates, q, branch, len(candidates))
			for i, hit := range got {
				kw := KeywordScore(q, branch, hit.Record)
				assert.Greater(t, kw, 0.0)
				assert.LessOrEqual(t, kw, 1.0)
				assert.GreaterOrEqual(t, hit.Score, 0.0)
				assert.LessOrEqual(t, hit.Score, 1.0)
				if i > 0 {
					assert.LessOrEqual(t, hit.Score, got[i-1].Score, "query %q branch %q", q, branch)
				}
			}
		}
	}
}

func TestRank_DoesNotAliasCandidates(t *testing.T) {
	candidates := []Record{record("a", 0.5, "x")}
	got := Rank(candidates, "x", "", 1)
	got[0].Record.Keywords[0] = "changed"
	assert.Equal(t, "x", candidates[0].Keywords[0])
}
