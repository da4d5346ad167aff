package replenishment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewProductPolicy(t *testing.T) {
	policy := NewProductPolicyFrom(DefaultRuleSet())
	ref := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	recent := ref.AddDate(0, 0, -5)
	old := ref.AddDate(0, 0, -20)

	tests := []struct {
		name    string
		product Product
		onHand  int
		want    bool
	}{
		{"recent and empty store", Product{CreatedAt: &recent, CategoryPath: "All / Accesorios / Juguetes"}, 0, true},
		{"store already holds units", Product{CreatedAt: &recent, CategoryPath: "All / Accesorios / Juguetes"}, 2, false},
		{"outside the window", Product{CreatedAt: &old, CategoryPath: "All / Accesorios / Juguetes"}, 0, false},
		{"exempt category", Product{CreatedAt: &recent, CategoryPath: "All / Accesorios / Camas"}, 0, false},
		{"no creation date", Product{CategoryPath: "All / Accesorios / Juguetes"}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.IsNew(tt.product, tt.onHand, ref))
		})
	}
}

func TestSeasonalPolicy(t *testing.T) {
	policy := SeasonalPolicyFrom(DefaultRuleSet())

	assert.Equal(t, "navidad", policy.Season(Product{Name: "Gorro Navidad Rojo"}))
	assert.Equal(t, "halloween", policy.Season(Product{Name: "Disfraz", CategoryPath: "All / Accesorios / Halloween"}))
	assert.Equal(t, "halloween", policy.Season(Product{Name: "Collar", Season: "Halloween"}))
	assert.Equal(t, "", policy.Season(Product{Name: "Collar", CategoryPath: "All / Accesorios"}))

	nov := time.Date(2026, 11, 3, 0, 0, 0, 0, time.UTC)
	oct := time.Date(2026, 10, 3, 0, 0, 0, 0, time.UTC)
	assert.True(t, policy.Active("navidad", nov))
	assert.False(t, policy.Active("navidad", oct))
	assert.False(t, policy.Active("pascua", nov))
}
