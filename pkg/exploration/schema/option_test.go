package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalog(id string) bool {
	return id == "platformer_basic" || id == "runner_endless"
}

func threeBranches() []Branch {
	return []Branch{
		branch("B1", map[string]string{"tone": "cute"}),
		branch("B2", map[string]string{"tone": "retro"}),
		branch("B3", map[string]string{"tone": "tense"}),
	}
}

func TestCheckOptions(t *testing.T) {
	t.Run("recommended id resolves flags", func(t *testing.T) {
		set := &OptionSet{
			Options: []Option{
				{OptionID: "opt_1", BranchID: "B1", Title: "a", TemplateID: "runner_endless", IsRecommended: true},
				{OptionID: "opt_2", BranchID: "B2", Title: "b", TemplateID: "platformer_basic", Complexity: "LOW"},
				{OptionID: "opt_3", BranchID: "B3", Title: "c", TemplateID: "runner_endless", MobileFit: "fair"},
			},
			RecommendedOptionID: "opt_2",
		}
		require.Empty(t, CheckOptions(set, threeBranches(), catalog))
		assert.False(t, set.Options[0].IsRecommended)
		assert.True(t, set.Options[1].IsRecommended)
		assert.Equal(t, "low", set.Options[1].Complexity)
		assert.Equal(t, "medium", set.Options[0].Complexity)
		assert.Equal(t, "good", set.Options[0].MobileFit)
		assert.Equal(t, "retro", set.Options[1].Picked["tone"])
	})

	t.Run("violations", func(t *testing.T) {
		set := &OptionSet{Options: []Option{
			{OptionID: "opt_1", BranchID: "B1", Title: "a", TemplateID: "unknown"},
			{OptionID: "opt_1", BranchID: "B2", Title: "b", TemplateID: "runner_endless", Complexity: "huge"},
		}}
		v := CheckOptions(set, threeBranches(), catalog)
		joined := ""
		for _, s := range v {
			joined += s + "\n"
		}
		assert.Contains(t, joined, "expected 3 options")
		assert.Contains(t, joined, "duplicate option_id")
		assert.Contains(t, joined, "unknown template")
		assert.Contains(t, joined, "invalid complexity")
		assert.Contains(t, joined, "exactly one recommended")
	})

	t.Run("recommendation from flag only", func(t *testing.T) {
		set := &OptionSet{Options: []Option{
			{OptionID: "o1", Title: "a", TemplateID: "runner_endless"},
			{OptionID: "o2", Title: "b", TemplateID: "runner_endless", IsRecommended: true},
			{OptionID: "o3", Title: "c", TemplateID: "runner_endless"},
		}}
		require.Empty(t, CheckOptions(set, threeBranches(), catalog))
		assert.Equal(t, "o2", set.RecommendedOptionID)
		assert.Equal(t, "B2", set.Options[1].BranchID)
	})
}
