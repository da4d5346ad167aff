package replenishment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func qty(v float64) *float64 { return &v }

func TestTopKMean(t *testing.T) {
	tests := []struct {
		name    string
		samples MonthlySamples
		k       int
		want    int
	}{
		{name: "no samples", samples: MonthlySamples{}, k: 3, want: 0},
		{name: "top three of six", samples: MonthlySamples{qty(10), qty(20), qty(30), qty(40), qty(50), qty(60)}, k: 3, want: 50},
		{name: "missing months still divide by k", samples: MonthlySamples{qty(5), nil, nil, nil, nil, nil}, k: 3, want: 2},
		{name: "half rounds to even upwards", samples: MonthlySamples{qty(1), qty(2)}, k: 2, want: 2},
		{name: "half rounds to even downwards", samples: MonthlySamples{qty(3), qty(2)}, k: 2, want: 2},
		{name: "ties keep month order", samples: MonthlySamples{qty(4), qty(4), qty(4), qty(1)}, k: 2, want: 4},
		{name: "non positive k", samples: MonthlySamples{qty(9)}, k: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TopKMean(tt.samples, tt.k))
		})
	}
}

func TestForecastBlend(t *testing.T) {
	line := DemandLine{
		Months:       MonthlySamples{qty(10), qty(10), qty(10)},
		SuggestedQty: 15,
	}

	rules := DefaultRuleSet()
	assert.Equal(t, 15, Forecast(line, rules))

	rules.Signal.Blend = BlendSignal
	assert.Equal(t, 10, Forecast(line, rules))

	rules.Signal.Blend = BlendSuggested
	assert.Equal(t, 15, Forecast(line, rules))
}

func TestEffectiveSuggestionFallsBackToRecommendation(t *testing.T) {
	assert.Equal(t, 7, DemandLine{SuggestedQty: 7, RecommendedQty: 3}.EffectiveSuggestion())
	assert.Equal(t, 3, DemandLine{RecommendedQty: 3}.EffectiveSuggestion())
	assert.Equal(t, 0, DemandLine{}.EffectiveSuggestion())
}
