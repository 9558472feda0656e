package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/theirongolddev/cashpulse/internal/health"
	"github.com/theirongolddev/cashpulse/internal/model"
	"github.com/theirongolddev/cashpulse/internal/store"
)

// writeHousehold writes lines to <dir>/households/<rel>.
func writeHousehold(t *testing.T, dir, rel string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, "households", rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

var steadyLines = []string{
	`{"kind":"account","id":"chk","type":"checking","balance":12000}`,
	`{"kind":"transaction","date":"2026-01-05","type":"income","amount":3000}`,
	`{"kind":"transaction","date":"2026-01-09","type":"expense","amount":2000}`,
	`{"kind":"transaction","date":"2026-02-05","type":"income","amount":3000}`,
	`{"kind":"transaction","date":"2026-02-09","type":"expense","amount":2000}`,
}

func TestLoad_MergesPartsAndSkipsBrokenHouseholds(t *testing.T) {
	dir := t.TempDir()
	writeHousehold(t, dir, "smith.jsonl", steadyLines...)
	writeHousehold(t, dir, "jones/accounts.jsonl", `{"kind":"account","id":"sav","type":"savings","balance":500}`)
	writeHousehold(t, dir, "jones/2026.jsonl", `{"kind":"transaction","date":"2026-02-01","type":"expense","amount":80}`)
	writeHousehold(t, dir, "broken/a.jsonl", `{"kind":"account","id":"x","type":"cash","balance":1}`)
	writeHousehold(t, dir, "broken/b.jsonl", `{"kind":"transaction","date":"nope","type":"expense","amount":1}`)

	var calls int
	result, err := Load(dir, func(_, _ int) { calls++ })
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if result.TotalFiles != 5 {
		t.Errorf("TotalFiles = %d, want 5", result.TotalFiles)
	}
	if result.HouseholdCount != 3 {
		t.Errorf("HouseholdCount = %d, want 3", result.HouseholdCount)
	}
	if result.FileErrors != 1 || len(result.Errors) != 1 || result.Errors[0].HouseholdID != "broken" {
		t.Fatalf("Errors = %+v, want one for broken", result.Errors)
	}
	if calls != 5 {
		t.Errorf("progress calls = %d, want 5", calls)
	}

	var ids []string
	for _, h := range result.Households {
		ids = append(ids, h.HouseholdID)
	}
	if !reflect.DeepEqual(ids, []string{"jones", "smith"}) {
		t.Fatalf("households = %v, want [jones smith]", ids)
	}
	jones := result.Households[0]
	if len(jones.Accounts) != 1 || len(jones.Transactions) != 1 {
		t.Fatalf("jones merged = %d accounts, %d transactions; want 1, 1", len(jones.Accounts), len(jones.Transactions))
	}
}

func TestLoad_MissingDir(t *testing.T) {
	result, err := Load(filepath.Join(t.TempDir(), "nope"), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(result.Households) != 0 || result.TotalFiles != 0 {
		t.Fatalf("result = %+v, want empty", result)
	}
}

func TestLoadWithCache_Incremental(t *testing.T) {
	dir := t.TempDir()
	smith := writeHousehold(t, dir, "smith.jsonl", steadyLines...)
	jones := writeHousehold(t, dir, "jones.jsonl", `{"kind":"account","id":"sav","type":"savings","balance":500}`)

	cache, err := store.Open(filepath.Join(t.TempDir(), "health.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer func() { _ = cache.Close() }()

	first, err := LoadWithCache(dir, cache, nil)
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	if first.Reparsed != 2 || first.CacheHits != 0 {
		t.Fatalf("first load reparsed/hits = %d/%d, want 2/0", first.Reparsed, first.CacheHits)
	}

	second, err := LoadWithCache(dir, cache, nil)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if second.Reparsed != 0 || second.CacheHits != 2 {
		t.Fatalf("second load reparsed/hits = %d/%d, want 0/2", second.Reparsed, second.CacheHits)
	}
	if len(second.Households) != 2 {
		t.Fatalf("households from cache = %d, want 2", len(second.Households))
	}
	if got := second.Households[1]; got.HouseholdID != "smith" || len(got.Transactions) != 4 {
		t.Fatalf("cached smith = %s with %d transactions", got.HouseholdID, len(got.Transactions))
	}

	// Touch smith with new content and remove jones.
	writeHousehold(t, dir, "smith.jsonl", append(steadyLines, `{"kind":"debt","name":"car","currentBalance":100}`)...)
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(smith, future, future); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(jones); err != nil {
		t.Fatal(err)
	}

	third, err := LoadWithCache(dir, cache, nil)
	if err != nil {
		t.Fatalf("third load: %v", err)
	}
	if third.Reparsed != 1 || third.Removed != 1 {
		t.Fatalf("third load reparsed/removed = %d/%d, want 1/1", third.Reparsed, third.Removed)
	}
	if len(third.Households) != 1 || len(third.Households[0].Debts) != 1 {
		t.Fatalf("third load households = %+v", third.Households)
	}
}

type memCache struct {
	mu      sync.Mutex
	m       map[string]model.FinancialHealthResult
	puts    int
	failPut error
}

func (c *memCache) GetResult(fp string) (model.FinancialHealthResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.m[fp]
	if !ok {
		return r, store.ErrNotFound
	}
	return r, nil
}

func (c *memCache) PutResult(r model.FinancialHealthResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failPut != nil {
		return c.failPut
	}
	c.m[r.Fingerprint] = r
	c.puts++
	return nil
}

func testSnapshots() []model.Snapshot {
	month := func(m int, d int) time.Time { return time.Date(2026, time.Month(m), d, 0, 0, 0, 0, time.UTC) }
	return []model.Snapshot{
		{
			HouseholdID: "smith",
			Accounts:    []model.AccountSnapshot{{ID: "chk", Type: model.AccountChecking, Balance: 12000}},
			Transactions: []model.TransactionRecord{
				{Date: month(1, 5), Type: model.TxIncome, Amount: 3000},
				{Date: month(1, 9), Type: model.TxExpense, Amount: 2000},
			},
		},
		{
			HouseholdID: "bad",
			Accounts:    []model.AccountSnapshot{{ID: "", Type: model.AccountChecking}},
		},
		{
			HouseholdID: "lee",
			Accounts:    []model.AccountSnapshot{{ID: "chk", Type: model.AccountChecking, Balance: 400}},
			Transactions: []model.TransactionRecord{
				{Date: month(1, 5), Type: model.TxIncome, Amount: 2000},
				{Date: month(1, 9), Type: model.TxExpense, Amount: 2500},
			},
		},
	}
}

func TestScoreAll_IsolatesFailures(t *testing.T) {
	out := ScoreAll(testSnapshots(), health.Options{}, nil, nil)

	if len(out.Results) != 2 {
		t.Fatalf("Results = %d, want 2", len(out.Results))
	}
	if out.Results[0].HouseholdID != "smith" || out.Results[1].HouseholdID != "lee" {
		t.Fatalf("order = %s, %s; want smith, lee", out.Results[0].HouseholdID, out.Results[1].HouseholdID)
	}
	if len(out.Failures) != 1 || out.Failures[0].HouseholdID != "bad" {
		t.Fatalf("Failures = %+v, want one for bad", out.Failures)
	}
	var ve *health.ValidationError
	if !errors.As(out.Failures[0].Err, &ve) {
		t.Fatalf("failure error = %T, want *health.ValidationError", out.Failures[0].Err)
	}
}

func TestScoreAll_UsesCache(t *testing.T) {
	cache := &memCache{m: map[string]model.FinancialHealthResult{}}
	snaps := testSnapshots()

	first := ScoreAll(snaps, health.Options{}, cache, nil)
	if first.CacheHits != 0 || cache.puts != 2 {
		t.Fatalf("first pass hits/puts = %d/%d, want 0/2", first.CacheHits, cache.puts)
	}
	second := ScoreAll(snaps, health.Options{}, cache, nil)
	if first.CacheWriteErrors != 0 {
		t.Fatalf("first pass write errors = %d, want 0", first.CacheWriteErrors)
	}
	if second.CacheHits != 2 {
		t.Fatalf("second pass hits = %d, want 2", second.CacheHits)
	}
	if !reflect.DeepEqual(first.Results, second.Results) {
		t.Fatal("cached results differ from computed ones")
	}
}

func TestScoreAll_CountsCacheWriteErrors(t *testing.T) {
	cache := &memCache{m: map[string]model.FinancialHealthResult{}, failPut: errors.New("disk full")}

	out := ScoreAll(testSnapshots(), health.Options{}, cache, nil)
	if len(out.Results) != 2 {
		t.Fatalf("Results = %d, want 2 despite cache failures", len(out.Results))
	}
	if out.CacheWriteErrors != 2 {
		t.Fatalf("CacheWriteErrors = %d, want 2", out.CacheWriteErrors)
	}
	if len(out.Failures) != 1 {
		t.Fatalf("Failures = %d, want only the invalid household", len(out.Failures))
	}
}

func TestSummarizeAndRank(t *testing.T) {
	out := ScoreAll(testSnapshots(), health.Options{}, nil, nil)
	stats := Summarize(out.Results, len(out.Failures))

	if stats.Households != 3 || stats.Scored != 2 || stats.Failed != 1 {
		t.Fatalf("counts = %d/%d/%d, want 3/2/1", stats.Households, stats.Scored, stats.Failed)
	}
	if stats.AtRisk != 1 {
		t.Errorf("AtRisk = %d, want 1", stats.AtRisk)
	}
	if stats.MinScore > stats.MaxScore {
		t.Errorf("MinScore %d > MaxScore %d", stats.MinScore, stats.MaxScore)
	}

	rows := Rank(out.Results)
	if len(rows) != 2 || rows[0].HouseholdID != "lee" {
		t.Fatalf("Rank = %+v, want lee first", rows)
	}
	if !rows[0].WillGoNegative {
		t.Error("lee WillGoNegative = false, want true")
	}
}

func TestSummarize_Empty(t *testing.T) {
	stats := Summarize(nil, 0)
	if stats.Scored != 0 || stats.MeanScore != 0 || stats.MinScore != 0 {
		t.Fatalf("stats = %+v, want zero", stats)
	}
}

func TestFilterByHousehold(t *testing.T) {
	snaps := testSnapshots()
	got := FilterByHousehold(snaps, "SMI")
	if len(got) != 1 || got[0].HouseholdID != "smith" {
		t.Fatalf("FilterByHousehold = %+v", got)
	}
	if n := len(FilterByHousehold(snaps, "")); n != 3 {
		t.Fatalf("empty filter = %d, want 3", n)
	}
}

func TestSuggestHousehold(t *testing.T) {
	ids := []string{"smith", "smythe", "jones", "lee"}
	got := SuggestHousehold(ids, "smtih", 2)
	if len(got) == 0 || got[0] != "smith" {
		t.Fatalf("SuggestHousehold = %v, want smith first", got)
	}
	if got := SuggestHousehold(ids, "zzzzzzzz", 3); len(got) != 0 {
		t.Fatalf("SuggestHousehold(far) = %v, want none", got)
	}
}

func TestFactorBreakdown(t *testing.T) {
	f := model.ScoreFactors{Liquidity: 100, SavingsRate: 50, Trend: 70, FutureRisk: 100}
	rows := FactorBreakdown(f, health.DefaultWeights)

	if len(rows) != 4 {
		t.Fatalf("rows = %d, want 4", len(rows))
	}
	if rows[0].Factor != model.FactorSavings {
		t.Fatalf("largest drag = %s, want savingsRate", rows[0].Factor)
	}
	var points float64
	for _, r := range rows {
		points += r.Points
	}
	if want := float64(health.OverallScore(f, health.DefaultWeights)); points < want-0.5 || points > want+0.5 {
		t.Fatalf("sum of points = %.2f, want ~%.0f", points, want)
	}
}
