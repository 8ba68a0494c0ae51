package grading

import (
	"github.com/shopspring/decimal"
)

// Aggregate sums answer points. The result is nil as soon as one answer is
// ungraded; an attempt without answers totals zero.
func Aggregate(points []*float64) *float64 {
	total := decimal.Zero
	for _, p := range points {
		if p == nil {
			return nil
		}
		total = total.Add(decimal.NewFromFloat(*p))
	}
	sum, _ := total.Float64()
	return &sum
}
