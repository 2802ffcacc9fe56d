package tagset

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func score(n int) *RiskScore {
	r := RiskScore(n)
	return &r
}

func TestAddTag(t *testing.T) {
	p := Partitions{}

	p = p.AddTag("  sunset ", TargetActive, score(2))
	p = p.AddTag("brand", TargetPreserved, nil)
	p = p.AddTag("retro", TargetActive, nil)

	assert.Equal(t, []Tag{{Text: "sunset", RiskScore: 2}, {Text: "retro", RiskScore: 1}}, p.Active)
	assert.Equal(t, []string{"brand"}, p.Preserved)
}

func TestAddTagBlankIsNoop(t *testing.T) {
	p := Partitions{Active: []Tag{{Text: "a", RiskScore: 1}}}

	assert.Equal(t, p, p.AddTag("   ", TargetActive, nil))
	assert.Equal(t, p, p.AddTag("", TargetPreserved, nil))
}

func TestAddTagUnknownTargetIsNoop(t *testing.T) {
	p := Partitions{Active: []Tag{{Text: "a", RiskScore: 1}}}
	assert.Equal(t, p, p.AddTag("b", Target("trash"), nil))
}

func TestAddTagMovesBetweenPartitions(t *testing.T) {
	p := Partitions{
		Active:    []Tag{{Text: "cat", RiskScore: 3}, {Text: "dog", RiskScore: 1}},
		Preserved: []string{"brand"},
	}

	p = p.AddTag("brand", TargetActive, nil)
	assert.Equal(t, []string{}, p.Preserved)
	assert.Equal(t, []Tag{{Text: "cat", RiskScore: 3}, {Text: "dog", RiskScore: 1}, {Text: "brand", RiskScore: 1}}, p.Active)

	p = p.AddTag("cat", TargetPreserved, nil)
	assert.Equal(t, []string{"cat"}, p.Preserved)
	assert.Equal(t, []string{"dog", "brand"}, Texts(p.Active))
}

func TestAddTagKeepsPreviousScore(t *testing.T) {
	p := Partitions{Active: []Tag{{Text: "cat", RiskScore: 4}, {Text: "dog", RiskScore: 1}}}

	p = p.AddTag("cat", TargetActive, nil)
	assert.Equal(t, []Tag{{Text: "dog", RiskScore: 1}, {Text: "cat", RiskScore: 4}}, p.Active)

	p = p.AddTag("cat", TargetActive, score(2))
	assert.Equal(t, RiskScore(2), p.Active[1].RiskScore)
}

func TestDropOntoPreservesRisk(t *testing.T) {
	p := Partitions{Active: []Tag{{Text: "cat", RiskScore: 4}}}

	p = p.DropOnto("cat", TargetPreserved)
	assert.Equal(t, []string{"cat"}, p.Preserved)
	assert.Empty(t, p.Active)

	p = p.DropOnto("cat", TargetActive)
	assert.Equal(t, []Tag{{Text: "cat", RiskScore: 4}}, p.Active)
	assert.Empty(t, p.Preserved)
	assert.Empty(t, p.Remembered)
}

func TestDropOntoUnknownTagDefaultsSafe(t *testing.T) {
	p := Partitions{}.DropOnto("new", TargetActive)
	assert.Equal(t, []Tag{{Text: "new", RiskScore: RiskSafe}}, p.Active)
}

func TestRemoveTag(t *testing.T) {
	p := Partitions{
		Active:     []Tag{{Text: "a", RiskScore: 1}, {Text: "b", RiskScore: 5}},
		Preserved:  []string{"c"},
		Remembered: map[string]RiskScore{"c": 3},
	}

	p = p.RemoveTag("c")
	assert.Equal(t, []string{}, p.Preserved)
	assert.Nil(t, p.Remembered)

	p = p.RemoveTag("missing")
	assert.Equal(t, []string{"a", "b"}, Texts(p.Active))

	p = p.RemoveTag("a")
	assert.Equal(t, []Tag{{Text: "b", RiskScore: 5}}, p.Active)
}

func TestRemoveThenAddAppendsAtEnd(t *testing.T) {
	p := Partitions{Active: FromStrings([]string{"a", "b", "c"}, RiskSafe)}

	p = p.RemoveTag("a").AddTag("a", TargetActive, nil)
	assert.Equal(t, []string{"b", "c", "a"}, Texts(p.Active))
}

func TestFlatten(t *testing.T) {
	p := Partitions{
		Preserved: []string{"brand"},
		Active:    []Tag{{Text: "sunset", RiskScore: 1}},
	}
	assert.Equal(t, "brand, sunset", p.FlattenString())

	p = p.AddTag("series", TargetPreserved, nil)
	p = p.AddTag("beach", TargetActive, nil)
	assert.Equal(t, []string{"brand", "series", "sunset", "beach"}, p.Flatten())
}

func TestOperationsDoNotMutateInput(t *testing.T) {
	orig := Partitions{Active: []Tag{{Text: "a", RiskScore: 2}, {Text: "b", RiskScore: 1}}, Preserved: []string{"c"}}
	snapshot := orig.Clone()

	_ = orig.AddTag("a", TargetPreserved, nil)
	_ = orig.RemoveTag("b")
	_ = orig.DropOnto("c", TargetActive)

	assert.Equal(t, snapshot, orig)
}

func TestDisjointUnderRandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	words := []string{"cat", "dog", "sun", "moon", "brand", " cat ", "Cat", "brand, cat", " dog ,sun ", ",", "moon,,", "  "}
	targets := []Target{TargetActive, TargetPreserved}

	p := Partitions{}
	for i := 0; i < 2000; i++ {
		w := words[rng.Intn(len(words))]
		switch rng.Intn(3) {
		case 0:
			p = p.AddTag(w, targets[rng.Intn(2)], score(rng.Intn(7)))
		case 1:
			p = p.DropOnto(w, targets[rng.Intn(2)])
		case 2:
			p = p.RemoveTag(w)
		}
		require.True(t, p.Disjoint(), "step %d: %+v", i, p)

		seen := map[string]bool{}
		for _, text := range p.Flatten() {
			require.False(t, seen[text], fmt.Sprintf("duplicate %q at step %d", text, i))
			seen[text] = true
		}
		for _, tag := range p.Active {
			require.True(t, tag.RiskScore.Valid())
		}
		for k := range p.Remembered {
			require.Contains(t, p.Preserved, k)
		}

		// the persisted form must read back as the same partitions
		reread := Normalize(p.Active, Parse(Serialize(p.Preserved)), p.Remembered)
		require.Equal(t, append([]string{}, p.Preserved...), reread.Preserved, "step %d", i)
		require.Equal(t, Texts(p.Active), Texts(reread.Active), "step %d", i)
	}
}

func TestAddTagSplitsCommaJoinedText(t *testing.T) {
	p := Partitions{Active: []Tag{{Text: "cat", RiskScore: 4}}}

	p = p.AddTag("brand, cat", TargetPreserved, nil)
	assert.Equal(t, []string{"brand", "cat"}, p.Preserved)
	assert.Empty(t, p.Active)
	assert.Equal(t, map[string]RiskScore{"cat": 4}, p.Remembered)
	assert.True(t, p.Disjoint())
	assert.Equal(t, "brand, cat", p.FlattenString())

	p = p.DropOnto(" cat ,brand", TargetActive)
	assert.Equal(t, []Tag{{Text: "cat", RiskScore: 4}, {Text: "brand", RiskScore: 1}}, p.Active)
	assert.Empty(t, p.Preserved)

	p = p.RemoveTag("brand, cat")
	assert.Empty(t, p.Active)
}

func TestNormalizeSplitsCommaJoinedText(t *testing.T) {
	p := Normalize(
		[]Tag{{Text: "a, b", RiskScore: 3}, {Text: "cat", RiskScore: 2}},
		[]string{"brand, cat", "a"},
		nil,
	)

	assert.Equal(t, []string{"brand", "cat", "a"}, p.Preserved)
	assert.Equal(t, []Tag{{Text: "b", RiskScore: 3}}, p.Active)
	assert.Equal(t, "brand, cat, a, b", p.FlattenString())
	assert.Equal(t, p, Normalize(p.Active, Parse(Serialize(p.Preserved)), p.Remembered))
}

func TestNormalize(t *testing.T) {
	p := Normalize(
		[]Tag{{Text: " a ", RiskScore: 0}, {Text: "b", RiskScore: 9}, {Text: "a", RiskScore: 3}, {Text: "brand", RiskScore: 2}, {Text: ""}},
		[]string{"brand", " brand", "", "series"},
		map[string]RiskScore{"brand": 4, "gone": 5, "series": 1},
	)

	assert.Equal(t, []Tag{{Text: "a", RiskScore: 1}, {Text: "b", RiskScore: 5}}, p.Active)
	assert.Equal(t, []string{"brand", "series"}, p.Preserved)
	assert.Equal(t, map[string]RiskScore{"brand": 4}, p.Remembered)
	assert.True(t, p.Disjoint())

	again := Normalize(p.Active, p.Preserved, p.Remembered)
	assert.Equal(t, p, again)
}

func TestParseTarget(t *testing.T) {
	got, err := ParseTarget("main")
	require.NoError(t, err)
	assert.Equal(t, TargetActive, got)

	got, err = ParseTarget(" Preserved ")
	require.NoError(t, err)
	assert.Equal(t, TargetPreserved, got)

	_, err = ParseTarget("bin")
	assert.ErrorIs(t, err, ErrInvalidTarget)
}
