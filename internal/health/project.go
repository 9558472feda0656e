package health

import (
	"fmt"

	"github.com/theirongolddev/cashpulse/internal/model"
)

// ProjectionMonths is the length of the forward projection.
const ProjectionMonths = 3

// Project extrapolates the balance forward from the average monthly income
// and expenses. Months are labelled after the anchor month, or "M+1".."M+3"
// when there is no anchor.
func Project(agg model.Aggregates) model.FutureProjection {
	p := model.FutureProjection{Months: make([]model.FutureProjectionMonth, ProjectionMonths)}

	balance := agg.TotalBalance
	for i := range p.Months {
		balance += agg.AvgMonthlyIncome - agg.AvgMonthlyExpenses

		label := fmt.Sprintf("M+%d", i+1)
		if !agg.AsOf.IsZero() {
			label = agg.AsOf.AddDate(0, i+1, 0).Format(monthLayout)
		}
		p.Months[i] = model.FutureProjectionMonth{
			Month:             label,
			ProjectedIncome:   agg.AvgMonthlyIncome,
			ProjectedExpenses: agg.AvgMonthlyExpenses,
			ProjectedBalance:  balance,
		}

		if balance < 0 && !p.WillGoNegative {
			p.WillGoNegative = true
			n := i + 1
			p.MonthsUntilNegative = &n
		}
	}
	return p
}
