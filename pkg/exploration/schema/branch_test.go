package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func branch(id string, picks map[string]string) Branch {
	return Branch{BranchID: id, Name: id, Picked: picks}
}

func TestCheckBranches(t *testing.T) {
	dims := []string{"controls", "tone", "goals"}

	t.Run("valid set", func(t *testing.T) {
		set := &BranchSet{Branches: []Branch{
			branch("B1", map[string]string{"controls": "tap", "tone": "cute", "goals": "score"}),
			branch("B2", map[string]string{"controls": "swipe", "tone": "retro", "goals": "score"}),
			branch("B3", map[string]string{"controls": "hold", "tone": "tense", "goals": "levels"}),
		}}
		assert.Empty(t, CheckBranches(set, dims, nil))
	})

	t.Run("too similar", func(t *testing.T) {
		set := &BranchSet{Branches: []Branch{
			branch("B1", map[string]string{"controls": "tap", "tone": "cute", "goals": "score"}),
			branch("B2", map[string]string{"controls": "tap", "tone": "retro", "goals": "score"}),
			branch("B3", map[string]string{"controls": "hold", "tone": "tense", "goals": "levels"}),
		}}
		v := CheckBranches(set, dims, nil)
		assert.Len(t, v, 1)
		assert.Contains(t, v[0], "B1 and B2")
	})

	t.Run("count out of range", func(t *testing.T) {
		set := &BranchSet{Branches: []Branch{
			branch("B1", map[string]string{"controls": "tap", "tone": "cute", "goals": "score"}),
			branch("B2", map[string]string{"controls": "hold", "tone": "retro", "goals": "levels"}),
		}}
		assert.NotEmpty(t, CheckBranches(set, dims, nil))
	})

	t.Run("missing pick", func(t *testing.T) {
		set := &BranchSet{Branches: []Branch{
			branch("B1", map[string]string{"controls": "tap", "tone": "cute"}),
			branch("B2", map[string]string{"controls": "swipe", "tone": "retro", "goals": "score"}),
			branch("B3", map[string]string{"controls": "hold", "tone": "tense", "goals": "levels"}),
		}}
		v := CheckBranches(set, dims, nil)
		assert.Contains(t, v[0], `no pick for dimension "goals"`)
	})

	t.Run("locked values filled and enforced", func(t *testing.T) {
		locked := map[string]string{"presentation": "side_scroller"}
		set := &BranchSet{Branches: []Branch{
			branch("B1", map[string]string{"controls": "tap", "tone": "cute", "goals": "score"}),
			branch("B2", map[string]string{"controls": "swipe", "tone": "retro", "goals": "score", "presentation": "side_scroller"}),
			branch("B3", map[string]string{"controls": "hold", "tone": "tense", "goals": "levels"}),
		}}
		assert.Empty(t, CheckBranches(set, dims, locked))
		for _, b := range set.Branches {
			assert.Equal(t, "side_scroller", b.Picked["presentation"])
		}

		set.Branches[2].Picked["presentation"] = "isometric"
		v := CheckBranches(set, dims, locked)
		assert.Len(t, v, 1)
		assert.Contains(t, v[0], "changes locked")
	})

	t.Run("single dimension requires one difference", func(t *testing.T) {
		set := &BranchSet{Branches: []Branch{
			branch("B1", map[string]string{"boss": "charge"}),
			branch("B2", map[string]string{"boss": "bullets"}),
			branch("B3", map[string]string{"boss": "summon"}),
		}}
		assert.Empty(t, CheckBranches(set, []string{"boss"}, nil))
	})
}

func TestDistance(t *testing.T) {
	a := branch("a", map[string]string{"x": "1", "y": "Tap"})
	b := branch("b", map[string]string{"x": "2", "y": "tap"})
	assert.Equal(t, 1, Distance(a, b, []string{"x", "y"}))
}
