// Package source discovers and parses household snapshot files.
package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/cashpulse/internal/health"
	"github.com/theirongolddev/cashpulse/internal/model"
)

// Accepted transaction date layouts, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := health.NewValidator()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// ParseResult holds the output of parsing a single snapshot file.
type ParseResult struct {
	File  DiscoveredFile
	Part  model.Snapshot
	Lines int
	Err   error
}

// ParseFile reads a JSONL snapshot file. Every non-blank line is one record
// routed by its "kind" field: "account", "transaction" or "debt". The first
// bad line fails the whole file; a partial household is never returned.
func ParseFile(df DiscoveredFile) ParseResult {
	f, err := os.Open(df.Path)
	if err != nil {
		return ParseResult{File: df, Err: err}
	}
	defer func() { _ = f.Close() }()

	part, lines, err := parseLines(f, df.HouseholdID)
	if err != nil {
		return ParseResult{File: df, Lines: lines, Err: fmt.Errorf("%s: %w", df.Path, err)}
	}
	return ParseResult{File: df, Part: part, Lines: lines}
}

// ParseJSONL reads JSONL snapshot records from r.
func ParseJSONL(r io.Reader, householdID string) (model.Snapshot, error) {
	snap, _, err := parseLines(r, householdID)
	return snap, err
}

func parseLines(r io.Reader, householdID string) (model.Snapshot, int, error) {
	snap := model.Snapshot{HouseholdID: householdID}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := appendLine(&snap, line); err != nil {
			return model.Snapshot{}, lineNo, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return model.Snapshot{}, lineNo, err
	}
	return snap, lineNo, nil
}

func appendLine(snap *model.Snapshot, line []byte) error {
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return &health.ValidationError{Kind: "record", Index: -1, Reason: "malformed JSON: " + err.Error(), Err: err}
	}
	if err := checkStruct(env, "record", -1); err != nil {
		return err
	}

	switch env.Kind {
	case "account":
		idx := len(snap.Accounts)
		var ra RawAccount
		if err := decodeRecord(line, &ra, "account", idx); err != nil {
			return err
		}
		snap.Accounts = append(snap.Accounts, ra.toModel())

	case "transaction":
		idx := len(snap.Transactions)
		var rt RawTransaction
		if err := decodeRecord(line, &rt, "transaction", idx); err != nil {
			return err
		}
		tx, err := rt.toModel(idx)
		if err != nil {
			return err
		}
		snap.Transactions = append(snap.Transactions, tx)

	case "debt":
		idx := len(snap.Debts)
		var rd RawDebt
		if err := decodeRecord(line, &rd, "debt", idx); err != nil {
			return err
		}
		snap.Debts = append(snap.Debts, rd.toModel())
	}
	return nil
}

func decodeRecord(line []byte, dst any, kind string, idx int) error {
	if err := json.Unmarshal(line, dst); err != nil {
		ve := &health.ValidationError{Kind: kind, Index: idx, Reason: err.Error()}
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) {
			ve.Field = te.Field
		}
		return ve
	}
	return checkStruct(dst, kind, idx)
}

// checkStruct validates v and reports the first failure against the given
// record kind and index.
func checkStruct(v any, kind string, idx int) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &health.ValidationError{Kind: kind, Index: idx, Reason: err.Error()}
	}
	ve := health.FromFieldError(verrs[0])
	ve.Kind, ve.Index = kind, idx
	return ve
}

// ParseSnapshotJSON decodes a single JSON snapshot document.
func ParseSnapshotJSON(r io.Reader) (model.Snapshot, error) {
	var raw RawSnapshot
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return model.Snapshot{}, &health.ValidationError{Kind: "snapshot", Index: -1, Reason: "malformed JSON: " + err.Error(), Err: err}
	}
	if err := validate.Struct(raw); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return model.Snapshot{}, health.FromFieldError(verrs[0])
		}
		return model.Snapshot{}, &health.ValidationError{Kind: "snapshot", Index: -1, Reason: err.Error()}
	}

	snap := model.Snapshot{
		HouseholdID:  raw.HouseholdID,
		Accounts:     make([]model.AccountSnapshot, 0, len(raw.Accounts)),
		Transactions: make([]model.TransactionRecord, 0, len(raw.Transactions)),
		Debts:        make([]model.DebtRecord, 0, len(raw.Debts)),
	}
	for _, ra := range raw.Accounts {
		snap.Accounts = append(snap.Accounts, ra.toModel())
	}
	for i, rt := range raw.Transactions {
		tx, err := rt.toModel(i)
		if err != nil {
			return model.Snapshot{}, err
		}
		snap.Transactions = append(snap.Transactions, tx)
	}
	for _, rd := range raw.Debts {
		snap.Debts = append(snap.Debts, rd.toModel())
	}
	return snap, nil
}

func (ra RawAccount) toModel() model.AccountSnapshot {
	a := model.AccountSnapshot{
		ID:      ra.ID,
		Name:    ra.Name,
		Type:    model.AccountType(ra.Type),
		Balance: ra.Balance.InexactFloat64(),
	}
	if ra.CreditLimit != nil {
		limit := ra.CreditLimit.InexactFloat64()
		a.CreditLimit = &limit
	}
	return a
}

func (rt RawTransaction) toModel(idx int) (model.TransactionRecord, error) {
	date, err := parseDate(rt.Date)
	if err != nil {
		return model.TransactionRecord{}, &health.ValidationError{Kind: "transaction", Index: idx, Field: "date", Reason: err.Error()}
	}
	return model.TransactionRecord{
		Date:      date,
		Type:      model.TransactionType(rt.Type),
		Amount:    rt.Amount.InexactFloat64(),
		AccountID: rt.AccountID,
	}, nil
}

func (rd RawDebt) toModel() model.DebtRecord {
	return model.DebtRecord{
		Name:           rd.Name,
		CurrentBalance: rd.CurrentBalance.InexactFloat64(),
		IsPaidOff:      rd.IsPaidOff,
	}
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// Merge concatenates the records of several parts of one household in the
// order given.
func Merge(householdID string, parts ...model.Snapshot) model.Snapshot {
	out := model.Snapshot{HouseholdID: householdID}
	for _, p := range parts {
		out.Accounts = append(out.Accounts, p.Accounts...)
		out.Transactions = append(out.Transactions, p.Transactions...)
		out.Debts = append(out.Debts, p.Debts...)
	}
	return out
}
