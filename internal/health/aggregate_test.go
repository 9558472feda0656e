package health

import (
	"testing"
	"time"

	"github.com/theirongolddev/cashpulse/internal/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestAggregate_Balances(t *testing.T) {
	s := model.Snapshot{
		Accounts: []model.AccountSnapshot{
			{ID: "chk", Type: model.AccountChecking, Balance: 1000},
			{ID: "visa", Type: model.AccountCredit, Balance: 300},
			{ID: "sav", Type: model.AccountSavings, Balance: 500},
		},
		Debts: []model.DebtRecord{
			{CurrentBalance: 200},
			{CurrentBalance: 999, IsPaidOff: true},
		},
	}

	agg := Aggregate(s, Options{})
	if agg.TotalBalance != 1200 {
		t.Fatalf("TotalBalance = %.2f, want 1200", agg.TotalBalance)
	}
	if agg.TotalAssets != 1500 {
		t.Fatalf("TotalAssets = %.2f, want 1500", agg.TotalAssets)
	}
	if agg.TotalLiabilities != 500 {
		t.Fatalf("TotalLiabilities = %.2f, want 500", agg.TotalLiabilities)
	}
	if len(agg.MonthlySeries) != 0 || !agg.AsOf.IsZero() {
		t.Fatalf("empty history produced series %+v anchored at %v", agg.MonthlySeries, agg.AsOf)
	}
}

func TestAggregate_NoAccounts(t *testing.T) {
	agg := Aggregate(model.Snapshot{}, Options{})
	if agg.TotalBalance != 0 {
		t.Fatalf("TotalBalance = %.2f, want 0", agg.TotalBalance)
	}
}

func TestAggregate_MonthlySeries(t *testing.T) {
	s := model.Snapshot{
		Transactions: []model.TransactionRecord{
			{Date: day(2025, 12, 20), Type: model.TxIncome, Amount: 9999}, // before window
			{Date: day(2026, 1, 3), Type: model.TxIncome, Amount: 3000},
			{Date: day(2026, 1, 9), Type: model.TxExpense, Amount: 1200.25},
			{Date: day(2026, 1, 21), Type: model.TxExpense, Amount: 300.50},
			{Date: day(2026, 3, 2), Type: model.TxTransfer, Amount: 5000}, // transfer-only month
			{Date: day(2026, 4, 30), Type: model.TxExpense, Amount: 800},
			{Date: day(2026, 6, 1), Type: model.TxIncome, Amount: 3100},
			{Date: day(2026, 6, 7), Type: model.TxTransfer, Amount: 400},
			{Date: day(2026, 6, 8), Type: model.TxExpense, Amount: 1000},
			{Date: day(2026, 7, 1), Type: model.TxExpense, Amount: 7777}, // after anchor
		},
	}

	agg := Aggregate(s, Options{AsOf: day(2026, 6, 15)})

	wantMonths := []string{"2026-01", "2026-04", "2026-06"}
	if len(agg.MonthlySeries) != len(wantMonths) {
		t.Fatalf("series = %+v, want months %v", agg.MonthlySeries, wantMonths)
	}
	for i, m := range agg.MonthlySeries {
		if m.Month != wantMonths[i] {
			t.Fatalf("series[%d].Month = %s, want %s", i, m.Month, wantMonths[i])
		}
	}

	jan := agg.MonthlySeries[0]
	if !almostEqual(jan.Income, 3000) || !almostEqual(jan.Expenses, 1500.75) || !almostEqual(jan.NetFlow, 1499.25) {
		t.Fatalf("January = %+v, want income 3000, expenses 1500.75", jan)
	}
	if !almostEqual(agg.CurrentMonthIncome, 3100) || !almostEqual(agg.CurrentMonthExpenses, 1000) {
		t.Fatalf("current month = %.2f/%.2f, want 3100/1000", agg.CurrentMonthIncome, agg.CurrentMonthExpenses)
	}
	if !almostEqual(agg.AvgMonthlyIncome, 6100.0/3) {
		t.Fatalf("AvgMonthlyIncome = %.4f, want %.4f", agg.AvgMonthlyIncome, 6100.0/3)
	}
	if !almostEqual(agg.AvgMonthlyExpenses, 3300.75/3) {
		t.Fatalf("AvgMonthlyExpenses = %.4f, want %.4f", agg.AvgMonthlyExpenses, 3300.75/3)
	}
}

func TestAggregate_AnchorsOnLatestTransaction(t *testing.T) {
	s := model.Snapshot{
		Transactions: []model.TransactionRecord{
			{Date: day(2026, 2, 10), Type: model.TxExpense, Amount: 50},
			{Date: day(2026, 5, 10), Type: model.TxExpense, Amount: 70},
		},
	}
	agg := Aggregate(s, Options{LookbackMonths: 3})
	if got := agg.AsOf.Format("2006-01"); got != "2026-05" {
		t.Fatalf("AsOf = %s, want 2026-05", got)
	}
	if len(agg.MonthlySeries) != 1 || agg.MonthlySeries[0].Month != "2026-05" {
		t.Fatalf("series = %+v, want only 2026-05 inside a 3 month window", agg.MonthlySeries)
	}
}
