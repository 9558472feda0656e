// Package store provides a SQLite-backed cache for parsed snapshots and
// computed scores.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/theirongolddev/cashpulse/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// ErrNotFound is returned when a cached score does not exist.
var ErrNotFound = errors.New("store: not found")

// Cache provides SQLite-backed snapshot and score caching.
type Cache struct {
	db *sql.DB
}

// Open opens or creates the cache database at the given path and applies
// pending migrations.
func Open(dbPath string) (*Cache, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}

	if err := migrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Cache{db: db}, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// FileInfo holds the tracked mtime and size for a file.
type FileInfo struct {
	HouseholdID string
	MtimeNs     int64
	SizeBytes   int64
}

// GetTrackedFiles returns a map of file_path -> FileInfo for all tracked files.
func (c *Cache) GetTrackedFiles() (map[string]FileInfo, error) {
	rows, err := c.db.Query("SELECT file_path, household_id, mtime_ns, size_bytes FROM file_tracker")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]FileInfo)
	for rows.Next() {
		var path string
		var fi FileInfo
		if err := rows.Scan(&path, &fi.HouseholdID, &fi.MtimeNs, &fi.SizeBytes); err != nil {
			return nil, err
		}
		result[path] = fi
	}
	return result, rows.Err()
}

// SaveFile replaces the records parsed from one snapshot file and its
// tracking info.
func (c *Cache) SaveFile(path string, part model.Snapshot, mtimeNs, sizeBytes int64) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Cascades to the record tables.
	if _, err := tx.Exec("DELETE FROM file_tracker WHERE file_path = ?", path); err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = tx.Exec(`INSERT INTO file_tracker (file_path, household_id, mtime_ns, size_bytes, parsed_at)
		VALUES (?, ?, ?, ?, ?)`, path, part.HouseholdID, mtimeNs, sizeBytes, now)
	if err != nil {
		return err
	}

	for i, a := range part.Accounts {
		var limit sql.NullFloat64
		if a.CreditLimit != nil {
			limit = sql.NullFloat64{Float64: *a.CreditLimit, Valid: true}
		}
		_, err = tx.Exec(`INSERT INTO accounts
			(file_path, seq, account_id, name, type, balance, credit_limit)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			path, i, a.ID, a.Name, string(a.Type), a.Balance, limit,
		)
		if err != nil {
			return err
		}
	}

	for i, t := range part.Transactions {
		_, err = tx.Exec(`INSERT INTO transactions
			(file_path, seq, date, type, amount, account_id)
			VALUES (?, ?, ?, ?, ?, ?)`,
			path, i, t.Date.UTC().Format(time.RFC3339Nano), string(t.Type), t.Amount, t.AccountID,
		)
		if err != nil {
			return err
		}
	}

	for i, d := range part.Debts {
		paid := 0
		if d.IsPaidOff {
			paid = 1
		}
		_, err = tx.Exec(`INSERT INTO debts
			(file_path, seq, name, current_balance, is_paid_off)
			VALUES (?, ?, ?, ?, ?)`,
			path, i, d.Name, d.CurrentBalance, paid,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadFiles reads the cached records of every tracked file, keyed by file
// path. Records keep their original order within each file.
func (c *Cache) LoadFiles() (map[string]model.Snapshot, error) {
	parts := make(map[string]model.Snapshot)

	rows, err := c.db.Query("SELECT file_path, household_id FROM file_tracker")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var path, id string
		if err := rows.Scan(&path, &id); err != nil {
			_ = rows.Close()
			return nil, err
		}
		parts[path] = model.Snapshot{HouseholdID: id}
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := c.loadAccounts(parts); err != nil {
		return nil, fmt.Errorf("loading accounts: %w", err)
	}
	if err := c.loadTransactions(parts); err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}
	if err := c.loadDebts(parts); err != nil {
		return nil, fmt.Errorf("loading debts: %w", err)
	}
	return parts, nil
}

func (c *Cache) loadAccounts(parts map[string]model.Snapshot) error {
	rows, err := c.db.Query(`SELECT file_path, account_id, name, type, balance, credit_limit
		FROM accounts ORDER BY file_path, seq`)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var path string
		var name sql.NullString
		var limit sql.NullFloat64
		var typ string
		var a model.AccountSnapshot
		if err := rows.Scan(&path, &a.ID, &name, &typ, &a.Balance, &limit); err != nil {
			return err
		}
		a.Name = name.String
		a.Type = model.AccountType(typ)
		if limit.Valid {
			v := limit.Float64
			a.CreditLimit = &v
		}
		if p, ok := parts[path]; ok {
			p.Accounts = append(p.Accounts, a)
			parts[path] = p
		}
	}
	return rows.Err()
}

func (c *Cache) loadTransactions(parts map[string]model.Snapshot) error {
	rows, err := c.db.Query(`SELECT file_path, date, type, amount, account_id
		FROM transactions ORDER BY file_path, seq`)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var path, date, typ string
		var accountID sql.NullString
		var t model.TransactionRecord
		if err := rows.Scan(&path, &date, &typ, &t.Amount, &accountID); err != nil {
			return err
		}
		t.Date, err = time.Parse(time.RFC3339Nano, date)
		if err != nil {
			return fmt.Errorf("bad cached date %q: %w", date, err)
		}
		t.Type = model.TransactionType(typ)
		t.AccountID = accountID.String
		if p, ok := parts[path]; ok {
			p.Transactions = append(p.Transactions, t)
			parts[path] = p
		}
	}
	return rows.Err()
}

func (c *Cache) loadDebts(parts map[string]model.Snapshot) error {
	rows, err := c.db.Query(`SELECT file_path, name, current_balance, is_paid_off
		FROM debts ORDER BY file_path, seq`)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var path string
		var name sql.NullString
		var paid int
		var d model.DebtRecord
		if err := rows.Scan(&path, &name, &d.CurrentBalance, &paid); err != nil {
			return err
		}
		d.Name = name.String
		d.IsPaidOff = paid != 0
		if p, ok := parts[path]; ok {
			p.Debts = append(p.Debts, d)
			parts[path] = p
		}
	}
	return rows.Err()
}

// DeleteFile removes a tracked file and every record parsed from it.
func (c *Cache) DeleteFile(path string) error {
	_, err := c.db.Exec("DELETE FROM file_tracker WHERE file_path = ?", path)
	return err
}

// HouseholdCount returns the number of households with cached files.
func (c *Cache) HouseholdCount() (int, error) {
	var count int
	err := c.db.QueryRow("SELECT COUNT(DISTINCT household_id) FROM file_tracker").Scan(&count)
	return count, err
}

// GetResult returns the cached score for a snapshot fingerprint, or
// ErrNotFound.
func (c *Cache) GetResult(fingerprint string) (model.FinancialHealthResult, error) {
	var raw string
	err := c.db.QueryRow("SELECT result_json FROM score_cache WHERE fingerprint = ?", fingerprint).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return model.FinancialHealthResult{}, ErrNotFound
	}
	if err != nil {
		return model.FinancialHealthResult{}, err
	}

	var r model.FinancialHealthResult
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return model.FinancialHealthResult{}, fmt.Errorf("decoding cached result: %w", err)
	}
	return r, nil
}

// PutResult stores a computed score under its fingerprint.
func (c *Cache) PutResult(r model.FinancialHealthResult) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = c.db.Exec(`INSERT OR REPLACE INTO score_cache
		(fingerprint, household_id, score, classification, result_json, computed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.Fingerprint, r.HouseholdID, r.Score, string(r.Classification), string(data),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

// PruneResults keeps only the most recently computed keep entries.
func (c *Cache) PruneResults(keep int) (int64, error) {
	res, err := c.db.Exec(`DELETE FROM score_cache WHERE fingerprint NOT IN (
		SELECT fingerprint FROM score_cache ORDER BY computed_at DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
