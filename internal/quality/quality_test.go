package quality

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelForCP(t *testing.T) {
	tests := []struct {
		cp, level int
	}{
		{0, 0}, {1, 1}, {2, 1}, {3, 2}, {5, 2}, {6, 3},
		{10, 4}, {14, 4}, {15, 5}, {20, 5}, {21, 6},
		{5050, 100}, {5049, 99},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.level, LevelForCP(tt.cp), "cp=%d", tt.cp)
	}
}

func TestLevelForCPMatchesTriangularThresholds(t *testing.T) {
	for level := 0; level < 500; level++ {
		cp := CPForLevel(level)
		require.Equal(t, level, LevelForCP(cp), "exact threshold for level %d", level)
		if cp > 0 {
			require.Equal(t, level-1, LevelForCP(cp-1), "just below level %d", level)
		}
	}
}

func TestAddCP(t *testing.T) {
	q := New("skill", Pyramidal)
	q.AddCP(14)
	assert.Equal(t, 4, q.Level)
	assert.Equal(t, 1, q.CPToNext())
	q.AddCP(1)
	assert.Equal(t, 5, q.Level)
	q.AddCP(-100)
	assert.Equal(t, 0, q.ChangePoints)
	assert.Equal(t, 0, q.Level)
}

func TestLevelForCPSaturatesAtIntRange(t *testing.T) {
	assert.Equal(t, MaxLevel, LevelForCP(math.MaxInt))
	assert.Equal(t, MaxLevel, LevelForCP(MaxCP))
	assert.Equal(t, MaxLevel-1, LevelForCP(MaxCP-1))
	assert.Equal(t, MaxCP, CPForLevel(MaxLevel))
	assert.Equal(t, MaxCP, CPForLevel(math.MaxInt))
	assert.Greater(t, CPForLevel(MaxLevel-1), 0)
}

func TestAddCPSaturates(t *testing.T) {
	q := New("skill", Pyramidal)
	q.AddCP(9000000000000000000)
	assert.Equal(t, MaxCP, q.ChangePoints)
	assert.Equal(t, MaxLevel, q.Level)
	q.AddCP(math.MaxInt)
	assert.Equal(t, MaxCP, q.ChangePoints)

	q.SetLevel(math.MaxInt)
	assert.Equal(t, MaxLevel, q.Level)
	assert.Equal(t, MaxCP, q.ChangePoints)
}

func TestAddSourcedSaturates(t *testing.T) {
	q := New("gold", Counter)
	q.AddSourced("", math.MaxInt-1)
	q.AddSourced("loot", 10)
	assert.Equal(t, math.MaxInt, q.Level)
	assert.Equal(t, 1, q.SourcedTotal())
}

func TestSetLevelRebaselinesPyramidal(t *testing.T) {
	q := New("skill", Pyramidal)
	q.AddCP(20)
	q.SetLevel(3)
	assert.Equal(t, 3, q.Level)
	assert.Equal(t, 6, q.ChangePoints)
	assert.Equal(t, 3, LevelForCP(q.ChangePoints))
}

func TestPruneDrainsLargestDuplicateFirst(t *testing.T) {
	q := &Quality{ID: "gems", Type: Item, Level: 8, Sources: []Source{{"cave", 5}, {"market", 3}}}
	spent := q.Spend(4, "")
	require.Equal(t, 4, spent)
	want := []Source{{"cave", 1}, {"market", 3}}
	if diff := cmp.Diff(want, q.Sources); diff != "" {
		t.Errorf("sources mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, q.Level, q.SourcedTotal())
}

func TestPruneRemovesSingularsOldestFirst(t *testing.T) {
	got := Prune([]Source{{"a", 1}, {"b", 3}, {"c", 1}}, 4)
	want := []Source{{"c", 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sources mismatch (-want +got):\n%s", diff)
	}
}

func TestPruneTieBreakOldestFirst(t *testing.T) {
	got := Prune([]Source{{"a", 3}, {"b", 3}}, 2)
	want := []Source{{"a", 1}, {"b", 3}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sources mismatch (-want +got):\n%s", diff)
	}
}

func TestPruneDoesNotModifyInput(t *testing.T) {
	in := []Source{{"a", 4}}
	_ = Prune(in, 2)
	assert.Equal(t, 4, in[0].Count)
}

func TestSpendUsesUnsourcedBucketFirst(t *testing.T) {
	q := &Quality{ID: "gems", Type: Item, Level: 10, Sources: []Source{{"cave", 5}, {"market", 3}}}
	require.Equal(t, 2, q.Unsourced())
	q.Spend(3, "")
	assert.Equal(t, 7, q.Level)
	assert.Equal(t, []Source{{"cave", 4}, {"market", 3}}, q.Sources)
	assert.Equal(t, 0, q.Unsourced())
}

func TestSpendTaggedTakesFromTagFirst(t *testing.T) {
	q := &Quality{ID: "gems", Type: Item, Level: 8, Sources: []Source{{"cave", 5}, {"market", 3}}}
	q.Spend(4, "market")
	assert.Equal(t, 4, q.Level)
	assert.Equal(t, []Source{{"cave", 4}}, q.Sources)
	assert.Equal(t, q.Level, q.SourcedTotal())
}

func TestSpendClampsUnsignedAtZero(t *testing.T) {
	q := &Quality{ID: "gems", Type: Item, Level: 2, Sources: []Source{{"cave", 2}}}
	assert.Equal(t, 2, q.Spend(10, ""))
	assert.Equal(t, 0, q.Level)
	assert.Empty(t, q.Sources)
}

func TestSpendCounterMayGoNegative(t *testing.T) {
	q := &Quality{ID: "debt", Type: Counter, Level: 1}
	q.Spend(3, "")
	assert.Equal(t, -2, q.Level)
}

func TestAddSourcedMergesAndMovesToNewest(t *testing.T) {
	q := New("gems", Item)
	q.AddSourced("cave", 2)
	q.AddSourced("market", 1)
	q.AddSourced("cave", 3)
	assert.Equal(t, 6, q.Level)
	assert.Equal(t, []Source{{"market", 1}, {"cave", 5}}, q.Sources)
	tag, ok := q.LatestSource()
	require.True(t, ok)
	assert.Equal(t, "cave", tag)
}

func TestConsumeLatestSourceKeepsLevel(t *testing.T) {
	q := New("gems", Item)
	q.AddSourced("cave", 2)
	q.AddSourced("market", 1)
	tag, ok := q.ConsumeLatestSource()
	require.True(t, ok)
	assert.Equal(t, "market", tag)
	assert.Equal(t, 3, q.Level)
	assert.Equal(t, 1, q.Unsourced())
	assert.Equal(t, q.Level, q.SourcedTotal()+q.Unsourced())
}

func TestParseType(t *testing.T) {
	for _, name := range []string{"pyramidal", "Counter", "ITEM", "equipable", "string"} {
		typ, ok := ParseType(name)
		require.True(t, ok, name)
		var back Type
		require.NoError(t, back.UnmarshalText([]byte(typ.String())))
		assert.Equal(t, typ, back)
	}
	_, ok := ParseType("bogus")
	assert.False(t, ok)
}

func TestDefinitionCategories(t *testing.T) {
	d := Definition{ID: "opium", Category: "contraband, Goods ,"}
	assert.Equal(t, []string{"contraband", "Goods"}, d.Categories())
	assert.True(t, d.InCategory("goods"))
	assert.False(t, d.InCategory("weapons"))
}

func TestStateCloneIsDeep(t *testing.T) {
	s := State{"gems": {ID: "gems", Type: Item, Level: 1, Sources: []Source{{"cave", 1}}}}
	c := s.Clone()
	c["gems"].Sources[0].Count = 9
	c["gems"].Level = 9
	assert.Equal(t, 1, s["gems"].Level)
	assert.Equal(t, 1, s["gems"].Sources[0].Count)
	assert.Equal(t, []string{"gems"}, s.IDs())
}
