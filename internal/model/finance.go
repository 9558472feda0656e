// Package model defines domain types for household finances and health scores.
package model

import "time"

// AccountType classifies an account. Credit accounts hold an amount owed.
type AccountType string

// Account types.
const (
	AccountCash       AccountType = "cash"
	AccountChecking   AccountType = "checking"
	AccountSavings    AccountType = "savings"
	AccountCredit     AccountType = "credit"
	AccountInvestment AccountType = "investment"
	AccountOther      AccountType = "other"
)

// AccountTypes lists every known account type in display order.
var AccountTypes = []AccountType{
	AccountCash, AccountChecking, AccountSavings, AccountCredit, AccountInvestment, AccountOther,
}

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	for _, k := range AccountTypes {
		if t == k {
			return true
		}
	}
	return false
}

// TransactionType is the direction of a transaction.
type TransactionType string

// Transaction types.
const (
	TxIncome   TransactionType = "income"
	TxExpense  TransactionType = "expense"
	TxTransfer TransactionType = "transfer"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TxIncome, TxExpense, TxTransfer:
		return true
	}
	return false
}

// AccountSnapshot is the point-in-time state of one account.
type AccountSnapshot struct {
	ID          string      `json:"id" validate:"required"`
	Name        string      `json:"name,omitempty"`
	Type        AccountType `json:"type" validate:"oneof=cash checking savings credit investment other"`
	Balance     float64     `json:"balance" validate:"finite"`
	CreditLimit *float64    `json:"creditLimit,omitempty" validate:"omitempty,finite,gte=0"`
}

// TransactionRecord is one historical money movement. Amount is a magnitude;
// the type carries the direction.
type TransactionRecord struct {
	Date      time.Time       `json:"date" validate:"required"`
	Type      TransactionType `json:"type" validate:"oneof=income expense transfer"`
	Amount    float64         `json:"amount" validate:"finite,gte=0"`
	AccountID string          `json:"accountId,omitempty"`
}

// DebtRecord is an outstanding or settled debt.
type DebtRecord struct {
	Name           string  `json:"name,omitempty"`
	CurrentBalance float64 `json:"currentBalance" validate:"finite,gte=0"`
	IsPaidOff      bool    `json:"isPaidOff"`
}

// Snapshot bundles everything known about one household at scoring time.
type Snapshot struct {
	HouseholdID  string              `json:"householdId"`
	Accounts     []AccountSnapshot   `json:"accounts" validate:"dive"`
	Transactions []TransactionRecord `json:"transactions" validate:"dive"`
	Debts        []DebtRecord        `json:"debts" validate:"dive"`
}

// MonthlyAggregate holds the income and expense totals for one calendar month.
type MonthlyAggregate struct {
	Month    string  `json:"month"` // "2006-01"
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
	NetFlow  float64 `json:"netFlow"`
}

// Aggregates is the normalized view of a snapshot that all scoring reads.
type Aggregates struct {
	TotalBalance         float64
	TotalAssets          float64
	TotalLiabilities     float64
	MonthlySeries        []MonthlyAggregate
	CurrentMonthIncome   float64
	CurrentMonthExpenses float64
	AvgMonthlyIncome     float64
	AvgMonthlyExpenses   float64
	AsOf                 time.Time // first day of the anchor month; zero if unknown
}
