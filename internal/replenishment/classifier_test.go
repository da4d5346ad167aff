package replenishment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifierBucket(t *testing.T) {
	c := NewClassifier(DefaultRuleSet())

	tests := []struct {
		category string
		name     string
		want     Bucket
	}{
		{"All / Insumos / Gasto", "Guantes", BucketSupplies},
		{"All / Alimentos / Perro / Lata", "Pate", BucketFood},
		{"All / Alimentos Medicados", "Renal", BucketFood},
		{"All / Accesorios / Higiene / Pampers", "Pañal M", BucketAccessories},
		{"All / Medicamentos / Antiparasitario", "Pipeta", BucketMedication},
		{"All / Vacunas", "Rabia", BucketMedication},
		{"All / Servicios", "Baño", BucketOther},
		{"All / Accesorios / Varios", "Urna ceramica", BucketOther},
		{"All / Accesorios / Ropa Mascota", "Sueter", BucketOther},
		{"All / Accesorios / Gasto", "Bolsas", BucketSupplies},
	}

	for _, tt := range tests {
		t.Run(tt.category+"|"+tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Bucket(tt.category, tt.name))
		})
	}
}

func TestClassifierTierAndRoute(t *testing.T) {
	c := NewClassifier(DefaultRuleSet())

	assert.Equal(t, TierLarge, c.Tier("  Ocean Mall "))
	assert.Equal(t, TierSmall, c.Tier("plaza emporio"))
	assert.Equal(t, TierMedium, c.Tier("Tienda Nueva"))

	assert.Equal(t, "R3", c.Route("Calle 50"))
	assert.Equal(t, "R1", c.Route("BRISAS DEL GOLF"))
	assert.Equal(t, UnroutedRoute, c.Route("Tienda Nueva"))
}

func TestClassifierRouteNamesAreUppercased(t *testing.T) {
	rules := DefaultRuleSet()
	rules.Routes = map[string][]string{"r9": {"calle 50"}}

	assert.Equal(t, "R9", NewClassifier(rules).Route("calle 50"))
}

func TestClassifierSubcategory(t *testing.T) {
	c := NewClassifier(DefaultRuleSet())

	assert.Equal(t, "higiene/pampers", c.Subcategory("All / Accesorios / Higiene / Pampers", BucketAccessories))
	assert.Equal(t, "juguetes", c.Subcategory("All / Accesorios / Juguetes", BucketAccessories))
	assert.Equal(t, "", c.Subcategory("All / Accesorios", BucketAccessories))
	assert.Equal(t, "", c.Subcategory("", BucketAccessories))
}

func TestClassifierMinimumKey(t *testing.T) {
	rules := DefaultRuleSet()
	c := NewClassifier(rules)
	table := rules.CategoryMinimums[string(TierLarge)]

	assert.Equal(t, "higiene/pampers", c.MinimumKey("higiene/pampers", table))
	assert.Equal(t, "pecheras/correas/leashes", c.MinimumKey("pecheras y correas", table))
	assert.Equal(t, "juguetes", c.MinimumKey("juguetes/peluche", table))
	assert.Equal(t, "default", c.MinimumKey("decoracion", table))
	assert.Equal(t, "default", c.MinimumKey("", table))
}

func TestClassifierSubcategoryRule(t *testing.T) {
	c := NewClassifier(DefaultRuleSet())

	rule, ok := c.SubcategoryRule(BucketFood, "All / Alimentos / Gato / Lata")
	assert.True(t, ok)
	assert.Equal(t, 6, rule.Floor)
	assert.Equal(t, 6, rule.ReorderUnit)

	rule, ok = c.SubcategoryRule(BucketAccessories, "All / Accesorios / Juguetes / Interactivo")
	assert.True(t, ok)
	assert.Equal(t, 2, rule.Floor)

	_, ok = c.SubcategoryRule(BucketAccessories, "All / Accesorios / Juguetes / Peluche")
	assert.False(t, ok)
}

func TestCleanProductName(t *testing.T) {
	assert.Equal(t, "Collar Rojo", CleanProductName("Collar   Rojo (copia) "))
	assert.Equal(t, "Collar", CleanProductName("Collar"))
}
