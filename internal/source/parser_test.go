package source

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/theirongolddev/cashpulse/internal/health"
	"github.com/theirongolddev/cashpulse/internal/model"
)

// writeSnapshot creates a temp JSONL file and returns a DiscoveredFile for it.
func writeSnapshot(t *testing.T, lines ...string) DiscoveredFile {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "household.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return DiscoveredFile{Path: path, HouseholdID: "test-household"}
}

func TestParseFile_AllKinds(t *testing.T) {
	df := writeSnapshot(t,
		`{"kind":"account","id":"chk","type":"checking","balance":1200.50}`,
		`{"kind":"account","id":"visa","type":"credit","balance":"310.25","creditLimit":5000}`,
		``,
		`{"kind":"transaction","date":"2026-05-01","type":"income","amount":3200,"accountId":"chk"}`,
		`{"kind":"transaction","date":"2026-05-03T09:30:00Z","type":"expense","amount":"84.10"}`,
		`{"kind":"debt","name":"car","currentBalance":7400,"isPaidOff":false}`,
	)

	result := ParseFile(df)
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}

	part := result.Part
	if part.HouseholdID != "test-household" {
		t.Errorf("HouseholdID = %q, want test-household", part.HouseholdID)
	}
	if len(part.Accounts) != 2 || len(part.Transactions) != 2 || len(part.Debts) != 1 {
		t.Fatalf("records = %d/%d/%d, want 2/2/1", len(part.Accounts), len(part.Transactions), len(part.Debts))
	}
	if part.Accounts[1].Type != model.AccountCredit || part.Accounts[1].Balance != 310.25 {
		t.Errorf("credit account = %+v", part.Accounts[1])
	}
	if part.Accounts[1].CreditLimit == nil || *part.Accounts[1].CreditLimit != 5000 {
		t.Errorf("CreditLimit = %v, want 5000", part.Accounts[1].CreditLimit)
	}
	if part.Transactions[1].Amount != 84.10 {
		t.Errorf("Amount = %v, want 84.10", part.Transactions[1].Amount)
	}
	if got := part.Transactions[0].Date.Format("2006-01-02"); got != "2026-05-01" {
		t.Errorf("Date = %s, want 2026-05-01", got)
	}
	if result.Lines != 6 {
		t.Errorf("Lines = %d, want 6", result.Lines)
	}
}

func TestParseFile_RejectsBadLines(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		wantKind  string
		wantField string
	}{
		{"malformed json", `{"kind":"account",`, "record", ""},
		{"unknown kind", `{"kind":"budget"}`, "record", "kind"},
		{"non-numeric amount", `{"kind":"transaction","date":"2026-01-01","type":"expense","amount":"twelve"}`, "transaction", ""},
		{"negative amount", `{"kind":"transaction","date":"2026-01-01","type":"expense","amount":-5}`, "transaction", "amount"},
		{"bad date", `{"kind":"transaction","date":"01/02/2026","type":"expense","amount":5}`, "transaction", "date"},
		{"missing date", `{"kind":"transaction","type":"expense","amount":5}`, "transaction", "date"},
		{"bad account type", `{"kind":"account","id":"x","type":"crypto","balance":1}`, "account", "type"},
		{"missing account id", `{"kind":"account","type":"cash","balance":1}`, "account", "id"},
		{"negative debt", `{"kind":"debt","currentBalance":-1}`, "debt", "currentBalance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			df := writeSnapshot(t,
				`{"kind":"account","id":"chk","type":"checking","balance":100}`,
				tt.line,
			)
			result := ParseFile(df)
			var ve *health.ValidationError
			if !errors.As(result.Err, &ve) {
				t.Fatalf("error = %v, want *health.ValidationError", result.Err)
			}
			if ve.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", ve.Kind, tt.wantKind)
			}
			if tt.wantField != "" && ve.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", ve.Field, tt.wantField)
			}
			if !strings.Contains(result.Err.Error(), "line 2") {
				t.Errorf("error %q does not name line 2", result.Err)
			}
			if len(result.Part.Accounts) != 0 {
				t.Error("partial household returned alongside an error")
			}
		})
	}
}

func TestParseSnapshotJSON(t *testing.T) {
	doc := `{
		"householdId": "smith",
		"accounts": [{"id": "chk", "type": "checking", "balance": 4200}],
		"transactions": [
			{"date": "2026-04-02", "type": "income", "amount": 3000},
			{"date": "2026-04-05", "type": "transfer", "amount": 500}
		],
		"debts": []
	}`
	snap, err := ParseSnapshotJSON(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ParseSnapshotJSON: %v", err)
	}
	if snap.HouseholdID != "smith" || len(snap.Accounts) != 1 || len(snap.Transactions) != 2 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.Transactions[1].Type != model.TxTransfer {
		t.Errorf("Type = %s, want transfer", snap.Transactions[1].Type)
	}
}

func TestParseSnapshotJSON_ReportsIndex(t *testing.T) {
	doc := `{"transactions": [
		{"date": "2026-04-02", "type": "income", "amount": 3000},
		{"date": "2026-04-05", "type": "gift", "amount": 5}
	]}`
	_, err := ParseSnapshotJSON(strings.NewReader(doc))
	var ve *health.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want *health.ValidationError", err)
	}
	if ve.Kind != "transaction" || ve.Index != 1 || ve.Field != "type" {
		t.Fatalf("ValidationError = %+v, want transaction[1].type", ve)
	}
}

func TestScanDir(t *testing.T) {
	dataDir := t.TempDir()
	root := HouseholdsDir(dataDir)
	for _, p := range []string{
		"smith.jsonl",
		"jones/2026-q1.jsonl",
		"jones/accounts.jsonl",
		"jones/notes.txt",
		".hidden/x.jsonl",
		"a/b/too-deep.jsonl",
	} {
		full := filepath.Join(root, p)
		if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, nil, 0o600); err != nil {
			t.Fatal(err)
		}
	}

	files, err := ScanDir(dataDir)
	if err != nil {
		t.Fatalf("ScanDir: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("found %d files, want 3: %+v", len(files), files)
	}
	if files[0].HouseholdID != "jones" || files[2].HouseholdID != "smith" {
		t.Errorf("households = %s, %s, %s", files[0].HouseholdID, files[1].HouseholdID, files[2].HouseholdID)
	}
	if n := CountHouseholds(files); n != 2 {
		t.Errorf("CountHouseholds = %d, want 2", n)
	}
}

func TestScanDir_Missing(t *testing.T) {
	files, err := ScanDir(filepath.Join(t.TempDir(), "nope"))
	if err != nil || files != nil {
		t.Fatalf("ScanDir on missing dir = %v, %v; want nil, nil", files, err)
	}
}
