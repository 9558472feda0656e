package source

import "github.com/shopspring/decimal"

// envelope is decoded first to route a line by its "kind" field.
type envelope struct {
	Kind string `json:"kind" validate:"required,oneof=account transaction debt"`
}

// RawAccount is an account line as written in a snapshot file.
type RawAccount struct {
	ID          string           `json:"id" validate:"required"`
	Name        string           `json:"name"`
	Type        string           `json:"type" validate:"required,oneof=cash checking savings credit investment other"`
	Balance     decimal.Decimal  `json:"balance"`
	CreditLimit *decimal.Decimal `json:"creditLimit,omitempty" validate:"omitempty,gte=0"`
}

// RawTransaction is a transaction line. Amount is a magnitude; Type gives
// the direction.
type RawTransaction struct {
	Date      string          `json:"date" validate:"required"`
	Type      string          `json:"type" validate:"required,oneof=income expense transfer"`
	Amount    decimal.Decimal `json:"amount" validate:"gte=0"`
	AccountID string          `json:"accountId"`
}

// RawDebt is a debt line.
type RawDebt struct {
	Name           string          `json:"name"`
	CurrentBalance decimal.Decimal `json:"currentBalance" validate:"gte=0"`
	IsPaidOff      bool            `json:"isPaidOff"`
}

// RawSnapshot is the single-document form of a household snapshot.
type RawSnapshot struct {
	HouseholdID  string           `json:"householdId"`
	Accounts     []RawAccount     `json:"accounts" validate:"dive"`
	Transactions []RawTransaction `json:"transactions" validate:"dive"`
	Debts        []RawDebt        `json:"debts" validate:"dive"`
}

// DiscoveredFile is a snapshot file found during directory scanning.
type DiscoveredFile struct {
	Path        string
	HouseholdID string // file stem, or the parent directory for nested parts
}
