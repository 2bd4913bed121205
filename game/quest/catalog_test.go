package quest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTemplates() []*Template {
	return []*Template{
		{
			TemplateID: "daily-login", QuestType: "login", Title: "Log in",
			RewardType: "coins", RewardSpec: "100", ProgressTarget: 1,
			Category: "daily", RarityWeight: 10,
		},
		{
			TemplateID: "coin-bonus", QuestType: "coin-bonus", Title: "Coin Bonus",
			RewardType: "coins", RewardSpec: "500", ProgressTarget: 1,
			ExpiresInHours: 24, CooldownMin: 60, Category: "daily", RarityWeight: 5,
		},
		{
			TemplateID: "big-spender", QuestType: "spend", Title: "Big Spender",
			RewardType: "mixed", RewardSpec: "15_energy_1K_coins", ProgressTarget: 5,
			ExpiresInHours: 48, CooldownMin: 120, MaxPerDay: 2,
			Category: "weekly", RarityWeight: 1,
		},
	}
}

func TestNewCatalog_Validation(t *testing.T) {
	_, err := NewCatalog([]*Template{{TemplateID: "x", QuestType: "y", ProgressTarget: 0, RarityWeight: 1}})
	assert.Error(t, err)

	_, err = NewCatalog([]*Template{{TemplateID: "x", QuestType: "y", ProgressTarget: 1, RarityWeight: 0}})
	assert.Error(t, err)

	_, err = NewCatalog([]*Template{{TemplateID: "", QuestType: "y", ProgressTarget: 1, RarityWeight: 1}})
	assert.Error(t, err)

	dup := testTemplates()
	dup = append(dup, dup[0])
	_, err = NewCatalog(dup)
	assert.Error(t, err)
}

func TestCatalog_LookupByID(t *testing.T) {
	c, err := NewCatalog(testTemplates())
	require.NoError(t, err)

	tpl := c.LookupByID("coin-bonus")
	require.NotNil(t, tpl)
	assert.Equal(t, "coin-bonus", tpl.QuestType)

	assert.Nil(t, c.LookupByID("missing"))
}

func TestCatalog_ByCategory(t *testing.T) {
	c, err := NewCatalog(testTemplates())
	require.NoError(t, err)

	assert.Len(t, c.ByCategory("daily"), 2)
	assert.Len(t, c.ByCategory("weekly"), 1)
	assert.Empty(t, c.ByCategory("monthly"))
}

func TestCatalog_RandomByRarity_Empty(t *testing.T) {
	c, err := NewCatalog(nil)
	require.NoError(t, err)

	_, err = c.RandomByRarity()
	assert.ErrorIs(t, err, ErrEmptyCatalog)
}

func TestCatalog_RandomByRarity_RespectsWeights(t *testing.T) {
	c, err := NewCatalog(testTemplates())
	require.NoError(t, err)

	// With weights 10/5/1 over 16 total, 2000 draws land on the heavy
	// template far more often than on the light one.
	counts := make(map[string]int)
	for i := 0; i < 2000; i++ {
		tpl, err := c.RandomByRarity()
		require.NoError(t, err)
		counts[tpl.TemplateID]++
	}
	assert.Greater(t, counts["daily-login"], counts["big-spender"])
	// Every template should be reachable.
	assert.Positive(t, counts["big-spender"])
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	data := `[
		{"template_id": "t1", "quest_type": "login", "title": "Log in",
		 "reward_type": "coins", "reward_spec": "100",
		 "progress_target": 1, "rarity_weight": 2.5}
	]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())
	assert.Equal(t, 2.5, c.LookupByID("t1").RarityWeight)
}

func TestLoadCatalog_MissingFile(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
