package replenishment

import (
	"sort"

	"github.com/shopspring/decimal"
)

// TopKMean reduces the monthly samples to the rounded mean of the k highest
// present values. Nil samples are discarded; with no samples left it returns 0.
// The divisor is always k, so a line with fewer than k months of history is
// averaged as if the missing months sold nothing. Halves round to even.
func TopKMean(samples MonthlySamples, k int) int {
	if k <= 0 {
		return 0
	}

	type sample struct {
		month int
		value float64
	}
	present := make([]sample, 0, len(samples))
	for i, v := range samples {
		if v != nil {
			present = append(present, sample{month: i, value: *v})
		}
	}
	if len(present) == 0 {
		return 0
	}

	sort.SliceStable(present, func(i, j int) bool {
		if present[i].value != present[j].value {
			return present[i].value > present[j].value
		}
		return present[i].month < present[j].month
	})
	if len(present) > k {
		present = present[:k]
	}

	sum := decimal.Zero
	for _, s := range present {
		sum = sum.Add(decimal.NewFromFloat(s.value))
	}
	mean := sum.Div(decimal.NewFromInt(int64(k))).RoundBank(0)
	if mean.IsNegative() {
		return 0
	}
	return int(mean.IntPart())
}

// Forecast combines the smoothed sales signal with the ERP suggestion
// according to the blend configured in rules.
func Forecast(line DemandLine, rules *RuleSet) int {
	signal := TopKMean(line.Months, rules.Signal.TopK)
	suggested := line.EffectiveSuggestion()

	switch rules.Signal.Blend {
	case BlendSignal:
		return signal
	case BlendSuggested:
		return suggested
	default:
		return max(signal, suggested)
	}
}
