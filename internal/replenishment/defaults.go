package replenishment

// accessoryMinimums are the per-subcategory accessory floors for large and medium stores.
func accessoryMinimums(pampers, pads, toys, beds, kennel, bags, gyms, def int) map[string]int {
	return map[string]int{
		"higiene/pampers":                   pampers,
		"higiene/bolsas de pupu":            pampers,
		"higiene/shampoo":                   6,
		"higiene/topicos - cremas, perfume": 6,
		"higiene/pads":                      pads,
		"higiene/dental":                    6,
		"higiene/wipes":                     6,
		"higiene/cepillos":                  6,
		"higiene/otros":                     6,
		"higiene/hogar":                     4,
		"higiene/gatos - arenero":           2,
		"bowls y feeders":                   4,
		"juguetes":                          toys,
		"medias":                            6,
		"pecheras/correas/leashes":          4,
		"camas":                             beds,
		"kennel":                            kennel,
		"bolsos":                            bags,
		"arena":                             6,
		"gimnasios y rascadores":            gyms,
		"carritos":                          1,
		"default":                           def,
	}
}

// DefaultRuleSet returns the production rule profile used when no rules file is configured.
func DefaultRuleSet() *RuleSet {
	return &RuleSet{
		Name:    "default",
		Profile: ProfileMonthsOfCoverage,
		Signal: SignalRules{
			TopK:  3,
			Blend: BlendMax,
		},
		MonthsOfCoverage: CoverageRules{
			Default: 1,
		},
		ForecastMultipliers: map[string]float64{
			string(TierLarge):  1,
			string(TierMedium): 1,
			string(TierSmall):  1,
		},
		Tiers: TierRules{
			Scheme:  SchemeThreeTier,
			Default: TierMedium,
			Stores: map[string][]string{
				string(TierLarge):  {"ocean mall", "calle 50", "albrook fields", "brisas del golf", "santa maria", "bella vista"},
				string(TierMedium): {"costa verde", "villa zaita", "condado del rey", "brisas norte", "versalles", "coco del mar"},
				string(TierSmall):  {"plaza emporio"},
			},
		},
		CategoryMinimums: map[string]map[string]int{
			string(TierLarge):  accessoryMinimums(10, 10, 6, 2, 2, 2, 2, 3),
			string(TierMedium): accessoryMinimums(8, 8, 6, 2, 2, 2, 2, 3),
			string(TierSmall):  accessoryMinimums(8, 8, 4, 1, 1, 1, 1, 2),
		},
		// A floor of 1 rounds up to one ordering unit for an empty store.
		FoodMinimums: map[string]int{
			string(TierLarge):  1,
			string(TierMedium): 1,
			string(TierSmall):  1,
		},
		BucketMinimums: map[string]int{
			string(BucketMedication): 1,
			string(BucketSupplies):   1,
		},
		SubcategoryAliases: map[string][]string{
			"pecheras/correas/leashes": {"pechera", "correa", "leash"},
		},
		SubcategoryRules: []SubcategoryRule{
			{Bucket: BucketFood, Keywords: []string{"lata"}, Floor: 6, ReorderUnit: 6},
			{Bucket: BucketAccessories, Keywords: []string{"juguete", "interactivo"}, Floor: 2},
		},
		CategoryRules: []CategoryRule{
			{Bucket: BucketSupplies, Keywords: []string{"insumo", "gasto"}},
			{Bucket: BucketFood, Keywords: []string{"alimento", "medicado", "treat"}},
			{Bucket: BucketAccessories, Keywords: []string{"accesorio"}},
			{Bucket: BucketMedication, Keywords: []string{"medicamento", "vacuna"}},
		},
		Exclusions: []string{"urna", "ropa mascota", "(copia)"},
		Routes: map[string][]string{
			"R1": {"brisas del golf", "brisas norte", "villa zaita", "condado del rey"},
			"R2": {"albrook fields", "bella vista", "plaza emporio", "ocean mall", "santa maria"},
			"R3": {"calle 50", "coco del mar", "versalles", "costa verde"},
		},
		Partition: PartitionRules{
			MasterBuckets:       []Bucket{BucketFood, BucketAccessories},
			ConsolidatedBuckets: []Bucket{BucketMedication},
			SuppressedBuckets:   []Bucket{BucketOther},
		},
		NewProduct: NewProductRules{
			WindowDays:     15,
			IntroQuantity:  5,
			ExemptKeywords: []string{"kennel", "cama", "bolso", "gimnasio", "rascador", "carrito"},
		},
		Seasonal: SeasonalRules{
			Policy: SeasonalEvenSplit,
			Seasons: []Season{
				{
					Name:             "navidad",
					NameKeywords:     []string{"navidad", "xmas", "santa", "noel"},
					CategoryKeywords: []string{"navidad"},
					ActiveMonths:     []int{11},
				},
				{
					Name:             "halloween",
					NameKeywords:     []string{"halloween", "bruja", "spooky", "terror"},
					CategoryKeywords: []string{"halloween"},
					ActiveMonths:     []int{9},
				},
			},
		},
	}
}
