package health

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/cashpulse/internal/model"
)

const monthLayout = "2006-01"

type monthBucket struct {
	income   decimal.Decimal
	expenses decimal.Decimal
}

// Aggregate normalizes a validated snapshot into balances and a monthly
// income/expense series over the lookback window ending at the anchor month.
// Transfers never count as income or expense. Months without income or
// expense activity are left out rather than filled with zeros.
func Aggregate(s model.Snapshot, opts Options) model.Aggregates {
	opts = opts.withDefaults()

	var balance, assets, liabilities decimal.Decimal
	for _, a := range s.Accounts {
		b := decimal.NewFromFloat(a.Balance)
		if a.Type == model.AccountCredit {
			balance = balance.Sub(b)
			if b.IsPositive() {
				liabilities = liabilities.Add(b)
			}
			continue
		}
		balance = balance.Add(b)
		if b.IsPositive() {
			assets = assets.Add(b)
		}
	}
	for _, d := range s.Debts {
		if !d.IsPaidOff {
			liabilities = liabilities.Add(decimal.NewFromFloat(d.CurrentBalance))
		}
	}

	agg := model.Aggregates{
		TotalBalance:     balance.InexactFloat64(),
		TotalAssets:      assets.InexactFloat64(),
		TotalLiabilities: liabilities.InexactFloat64(),
		MonthlySeries:    []model.MonthlyAggregate{},
		AsOf:             anchorMonth(s.Transactions, opts.AsOf),
	}
	if agg.AsOf.IsZero() {
		return agg
	}

	windowStart := agg.AsOf.AddDate(0, -(opts.LookbackMonths - 1), 0)
	buckets := make(map[string]*monthBucket)
	for _, tx := range s.Transactions {
		if tx.Type == model.TxTransfer {
			continue
		}
		m := monthStart(tx.Date)
		if m.Before(windowStart) || m.After(agg.AsOf) {
			continue
		}
		key := m.Format(monthLayout)
		b, ok := buckets[key]
		if !ok {
			b = &monthBucket{}
			buckets[key] = b
		}
		amt := decimal.NewFromFloat(tx.Amount)
		if tx.Type == model.TxIncome {
			b.income = b.income.Add(amt)
		} else {
			b.expenses = b.expenses.Add(amt)
		}
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sumIncome, sumExpenses decimal.Decimal
	agg.MonthlySeries = make([]model.MonthlyAggregate, 0, len(keys))
	for _, k := range keys {
		b := buckets[k]
		sumIncome = sumIncome.Add(b.income)
		sumExpenses = sumExpenses.Add(b.expenses)
		agg.MonthlySeries = append(agg.MonthlySeries, model.MonthlyAggregate{
			Month:    k,
			Income:   b.income.InexactFloat64(),
			Expenses: b.expenses.InexactFloat64(),
			NetFlow:  b.income.Sub(b.expenses).InexactFloat64(),
		})
	}

	if n := len(keys); n > 0 {
		count := decimal.NewFromInt(int64(n))
		agg.AvgMonthlyIncome = sumIncome.Div(count).InexactFloat64()
		agg.AvgMonthlyExpenses = sumExpenses.Div(count).InexactFloat64()
	}
	if cur, ok := buckets[agg.AsOf.Format(monthLayout)]; ok {
		agg.CurrentMonthIncome = cur.income.InexactFloat64()
		agg.CurrentMonthExpenses = cur.expenses.InexactFloat64()
	}
	return agg
}

// anchorMonth picks the month the lookback window ends in: the requested
// one when set, else the month of the latest transaction.
func anchorMonth(txs []model.TransactionRecord, asOf time.Time) time.Time {
	if !asOf.IsZero() {
		return monthStart(asOf)
	}
	var latest time.Time
	for _, tx := range txs {
		if tx.Date.After(latest) {
			latest = tx.Date
		}
	}
	if latest.IsZero() {
		return time.Time{}
	}
	return monthStart(latest)
}
