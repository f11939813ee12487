package schema

import (
	"testing"

	"game-exploration-be/pkg/exploration"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecomposition_NormalizeFresh(t *testing.T) {
	d := Decomposition{
		Summary: "tap to jump runner",
		Locked:  &Locked{Items: []string{"controls: touch_tap"}},
		Dimensions: map[string]Dimension{
			"platform": {Candidates: []string{"mobile", "both"}, Confidence: "high"},
			"controls": {Candidates: []string{"touch_tap"}, Confidence: "high"},
			"Tone":     {Candidates: []string{"cute", "retro", "Cute"}, Confidence: "medium"},
			"goals":    {Candidates: nil},
		},
	}
	require.NoError(t, d.Normalize(ModeFresh, nil))

	assert.Nil(t, d.Locked)
	assert.ElementsMatch(t, []string{"platform", "tone"}, d.DimensionNames())
	assert.Equal(t, []string{"cute", "retro"}, d.Dimensions["tone"].Candidates)
	assert.Equal(t, "med", d.Dimensions["tone"].Confidence)
	assert.Contains(t, d.HardConstraints, "controls: touch_tap")
	assert.NotNil(t, d.OpenQuestions)
}

func TestDecomposition_NormalizeContextual(t *testing.T) {
	d := Decomposition{
		Summary: "add power-ups and a boss",
		Locked:  &Locked{Items: []string{"controls: keyboard", "tone: retro"}},
		Dimensions: map[string]Dimension{
			"controls":      {Candidates: []string{"touch_tap", "keyboard"}},
			"power_up_type": {Candidates: []string{"shield", "magnet", "double_jump"}},
			"boss_pattern":  {Candidates: []string{"charge", "bullet_hell"}},
		},
	}
	carried := map[string]string{"controls": "touch_tap", "presentation": "side_scroller", "core_loop": "jump_collect"}
	require.NoError(t, d.Normalize(ModeContextual, carried))

	require.NotNil(t, d.Locked)
	locked := d.LockedValues()
	assert.Equal(t, "touch_tap", locked["controls"], "carried value wins over the model")
	assert.Equal(t, "side_scroller", locked["presentation"])
	assert.Equal(t, "jump_collect", locked["core_loop"])
	assert.Equal(t, "retro", locked["tone"])
	for _, name := range d.DimensionNames() {
		_, isLocked := locked[name]
		assert.False(t, isLocked, "dimension %s duplicates a locked key", name)
	}
	assert.ElementsMatch(t, []string{"power_up_type", "boss_pattern"}, d.DimensionNames())
}

func TestDecomposition_NormalizeRejectsTooManyCandidates(t *testing.T) {
	d := Decomposition{
		Summary: "x",
		Dimensions: map[string]Dimension{
			"tone": {Candidates: []string{"a", "b", "c", "d", "e"}},
		},
	}
	assert.ErrorIs(t, d.Normalize(ModeFresh, nil), exploration.ErrMalformedOutput)
}

func TestDecomposition_NormalizeRejectsUnknownConfidence(t *testing.T) {
	d := Decomposition{
		Summary: "x",
		Dimensions: map[string]Dimension{
			"tone": {Candidates: []string{"a", "b"}, Confidence: "certain"},
		},
	}
	assert.ErrorIs(t, d.Normalize(ModeFresh, nil), exploration.ErrMalformedOutput)
}
