package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/andresuchdata/autopo-replenish/internal/replenishment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exampleRules = "../../configs/rules.example.yaml"

func writeRules(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadWithoutFileUsesDefault(t *testing.T) {
	rs, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, replenishment.DefaultRuleSet(), rs)

	_, err = Load("", "weekly")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestLoadDefaultProfileFromFile(t *testing.T) {
	rs, err := Load(exampleRules, "")
	require.NoError(t, err)

	assert.Equal(t, "coverage", rs.Name)
	assert.Equal(t, replenishment.ProfileMonthsOfCoverage, rs.Profile)
	assert.Equal(t, 1.5, rs.CoverageFor(replenishment.BucketAccessories))
	assert.Equal(t, 10, rs.CategoryMinimums["large"]["higiene/pampers"])
	assert.Equal(t, 24, rs.MaxOrderCap["small"])
	require.Len(t, rs.SubcategoryRules, 2)
	assert.Equal(t, 6, rs.SubcategoryRules[0].ReorderUnit)
	require.Len(t, rs.Seasonal.Seasons, 2)
	assert.Equal(t, []int{11}, rs.Seasonal.Seasons[0].ActiveMonths)
	assert.Equal(t, []replenishment.Bucket{replenishment.BucketFood, replenishment.BucketAccessories}, rs.Partition.MasterBuckets)

	c := replenishment.NewClassifier(rs)
	assert.Equal(t, "R2", c.Route("Ocean Mall"))
}

func TestLoadNamedProfile(t *testing.T) {
	rs, err := Load(exampleRules, "Multiplier")
	require.NoError(t, err)

	assert.Equal(t, "multiplier", rs.Name)
	assert.Equal(t, replenishment.ProfileForecastMultiplier, rs.Profile)
	assert.Equal(t, replenishment.SchemeTwoTier, rs.Tiers.Scheme)
	assert.Equal(t, 1.5, rs.ForecastMultipliers["regular"])
	assert.True(t, rs.SkipUnsuggestedLines)
}

func TestLoadUnknownProfile(t *testing.T) {
	_, err := Load(exampleRules, "weekly")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestLoadMalformedProfileIsFatal(t *testing.T) {
	path := writeRules(t, "rules.yaml", `
profile: months_of_coverage
signal:
  top_k: 3
  blend: max
months_of_coverage:
  default: 1
tiers:
  scheme: three_tier
  default: medium
category_minimums:
  large:
    juguetes: 6
category_rules:
  - bucket: alimentos
    keywords: [alimento]
seasonal:
  policy: normal
`)

	_, err := Load(path, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, replenishment.ErrInvalidRules)
	assert.Contains(t, err.Error(), "category_minimums.large.default is missing")
	assert.Contains(t, err.Error(), "category_minimums.small is missing")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), "")
	assert.ErrorIs(t, err, replenishment.ErrInvalidRules)
}

func TestLoadSingleProfileJSON(t *testing.T) {
	path := writeRules(t, "rules.json", `{
  "name": "compact",
  "profile": "forecast_multiplier",
  "signal": {"top_k": 2, "blend": "max"},
  "forecast_multipliers": {"regular": 1, "small": 1},
  "tiers": {"scheme": "two_tier", "default": "regular"},
  "category_minimums": {"regular": {"default": 1}, "small": {"default": 1}},
  "food_minimums": {"regular": 0, "small": 0},
  "category_rules": [{"bucket": "alimentos", "keywords": ["alimento"]}],
  "seasonal": {"policy": "normal"}
}`)

	rs, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "compact", rs.Name)
	assert.Equal(t, 2, rs.Signal.TopK)
}

func TestProfiles(t *testing.T) {
	names, err := Profiles(exampleRules)
	require.NoError(t, err)
	assert.Equal(t, []string{"coverage", "multiplier"}, names)
}
