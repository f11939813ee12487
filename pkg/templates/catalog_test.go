package templates

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	list := c.List()
	require.Len(t, list, 6)
	assert.Equal(t, "platformer_basic", list[0].TemplateID)

	for _, m := range list {
		tpl, ok := c.Get(m.TemplateID)
		require.True(t, ok, m.TemplateID)
		files := tpl.FileMap()
		require.Contains(t, files, "index.html")
		assert.True(t, strings.Contains(files["index.html"], "<head>"), m.TemplateID)
		assert.NotEmpty(t, m.GameType)
	}

	assert.True(t, c.Exists("runner_endless"))
	assert.False(t, c.Exists("kart_racer"))
}

func TestGameTypeAndFeelDefaults(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "tower_defense", GameType("defense_tower"))
	assert.Equal(t, DefaultGameType, GameType("unknown"))
	assert.Equal(t, []string{"clicker", "platformer", "puzzle", "runner", "topdown_shooter", "tower_defense"}, c.GameTypes())

	runner := c.FeelDefaults("runner_endless")
	for _, section := range []string{"movement_model", "jump_model", "input", "camera", "bounds", "visual_feedback", "tuning"} {
		assert.Contains(t, runner, section)
	}
	assert.Equal(t, c.FeelDefaults("platformer_basic"), c.FeelDefaults("nope"))
}
