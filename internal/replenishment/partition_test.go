package replenishment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionLines(t *testing.T) {
	food := OrderLine{ProductID: 1, Barcode: "111", Reference: "A-1", Description: "Croqueta", Category: "All / Alimentos / Perro", Bucket: BucketFood}
	toy := OrderLine{ProductID: 2, Barcode: "222", Reference: "B-1", Description: "Pelota", Category: "All / Accesorios / Juguetes", Bucket: BucketAccessories}
	pill := OrderLine{ProductID: 3, Barcode: "333", Reference: "C-1", Description: "Pipeta", Category: "All / Medicamentos", Bucket: BucketMedication}
	urn := OrderLine{ProductID: 4, Barcode: "444", Reference: "D-1", Description: "Urna", Category: "All / Varios", Bucket: BucketOther}

	at := func(l OrderLine, route, store string, qty int) OrderLine {
		l.Route, l.Store, l.Quantity = route, store, qty
		return l
	}

	lines := []OrderLine{
		at(food, "R1", "villa zaita", 2),
		at(food, "R1", "brisas norte", 3),
		at(toy, "R1", "brisas norte", 1),
		at(pill, "R2", "ocean mall", 1),
		at(urn, UnroutedRoute, "tienda nueva", 4),
		at(toy, "R2", "ocean mall", 0),
	}

	p := PartitionLines(lines, DefaultRuleSet())

	require.Len(t, p.Routes, 2)
	r1 := p.Routes[0]
	assert.Equal(t, "R1", r1.Route)
	require.Len(t, r1.Stores, 2)
	assert.Equal(t, "brisas norte", r1.Stores[0].Store)
	assert.Equal(t, "villa zaita", r1.Stores[1].Store)

	brisas := r1.Stores[0].Buckets
	require.Len(t, brisas, 2)
	assert.Equal(t, BucketFood, brisas[0].Bucket)
	assert.Equal(t, BucketAccessories, brisas[1].Bucket)

	require.Len(t, r1.Masters, 2)
	assert.Equal(t, BucketFood, r1.Masters[0].Bucket)
	require.Len(t, r1.Masters[0].Lines, 1)
	assert.Equal(t, 5, r1.Masters[0].Lines[0].Quantity)
	assert.Equal(t, "", r1.Masters[0].Lines[0].Store)

	r2 := p.Routes[1]
	assert.Equal(t, "R2", r2.Route)
	assert.Empty(t, r2.Masters)
	require.Len(t, r2.Stores[0].Buckets, 1)
	assert.Equal(t, BucketMedication, r2.Stores[0].Buckets[0].Bucket)

	require.Len(t, p.Consolidated, 1)
	assert.Equal(t, BucketMedication, p.Consolidated[0].Bucket)
	assert.Equal(t, 1, p.Consolidated[0].Lines[0].Quantity)

	require.Len(t, p.Global, 3)
	assert.Equal(t, []string{"Pelota", "Croqueta", "Pipeta"}, []string{p.Global[0].Description, p.Global[1].Description, p.Global[2].Description})
	assert.Equal(t, 5, p.Global[1].Quantity)
}

func TestPartitionKeepsQuantities(t *testing.T) {
	lines := []OrderLine{
		{ProductID: 1, Description: "b", Category: "All / Alimentos", Bucket: BucketFood, Route: "R1", Store: "s1", Quantity: 6},
		{ProductID: 2, Description: "a", Category: "All / Alimentos", Bucket: BucketFood, Route: "R1", Store: "s1", Quantity: 12},
		{ProductID: 1, Description: "b", Category: "All / Alimentos", Bucket: BucketFood, Route: "R2", Store: "s2", Quantity: 6},
	}

	p := PartitionLines(lines, DefaultRuleSet())

	stored := 0
	for _, r := range p.Routes {
		for _, s := range r.Stores {
			for _, b := range s.Buckets {
				for _, l := range b.Lines {
					stored += l.Quantity
				}
			}
		}
	}
	global := 0
	for _, l := range p.Global {
		global += l.Quantity
	}
	assert.Equal(t, 24, stored)
	assert.Equal(t, 24, global)

	s1 := p.Routes[0].Stores[0].Buckets[0].Lines
	assert.Equal(t, "a", s1[0].Description)
	assert.Equal(t, "b", s1[1].Description)
}
