package daemon

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/jordan-wright/email"

	"github.com/theirongolddev/cashpulse/internal/model"
)

func quietService(cfg Config) *Service {
	logger := NewLogger("panic")
	logger.SetOutput(io.Discard)
	cfg.Logger = logger
	return New(cfg)
}

func result(id string, score int, class model.Classification, rules ...string) model.FinancialHealthResult {
	r := model.FinancialHealthResult{HouseholdID: id, Score: score, Classification: class}
	for _, rule := range rules {
		sev := model.SeverityWarning
		if rule == "projected-shortfall" {
			sev = model.SeverityCritical
		}
		r.Alerts = append(r.Alerts, model.HealthAlert{ID: id + "/" + rule, Rule: rule, Severity: sev, Title: rule})
	}
	return r
}

func TestDiffResults(t *testing.T) {
	now := time.Now()
	prev := map[string]model.FinancialHealthResult{
		"smith": result("smith", 72, model.ClassGood),
		"jones": result("jones", 45, model.ClassFair, "low-reserve"),
	}
	curr := map[string]model.FinancialHealthResult{
		"smith": result("smith", 72, model.ClassGood),
		"jones": result("jones", 38, model.ClassPoor, "low-reserve", "projected-shortfall"),
		"lee":   result("lee", 90, model.ClassExcellent),
	}

	events := diffResults(prev, curr, now)
	var types []string
	for _, ev := range events {
		types = append(types, ev.HouseholdID+":"+ev.Type)
	}
	want := []string{
		"jones:" + EventScoreChanged,
		"jones:" + EventClassificationChanged,
		"jones:" + EventAlertRaised,
	}
	if strings.Join(types, ",") != strings.Join(want, ",") {
		t.Fatalf("events = %v, want %v", types, want)
	}
	if events[0].PrevScore != 45 || events[0].Score != 38 {
		t.Fatalf("score event = %+v, want 45 -> 38", events[0])
	}
	if events[1].PrevClassification != model.ClassFair || events[1].Classification != model.ClassPoor {
		t.Fatalf("class event = %+v, want Fair -> Poor", events[1])
	}
	if events[2].Alert == nil || events[2].Alert.Rule != "projected-shortfall" {
		t.Fatalf("alert event = %+v, want projected-shortfall", events[2])
	}
}

func TestDiffResults_NoChange(t *testing.T) {
	m := map[string]model.FinancialHealthResult{"smith": result("smith", 72, model.ClassGood, "low-reserve")}
	if events := diffResults(m, m, time.Now()); len(events) != 0 {
		t.Fatalf("events = %+v, want none", events)
	}
}

func TestPublishEventRingBuffer(t *testing.T) {
	s := quietService(Config{
		DataDir:      ".",
		Interval:     10 * time.Second,
		EventsBuffer: 2,
	})

	s.publishEvent(Event{ID: 1})
	s.publishEvent(Event{ID: 2})
	s.publishEvent(Event{ID: 3})

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].ID != 2 || s.events[1].ID != 3 {
		t.Fatalf("events ring contains IDs [%d, %d], want [2, 3]", s.events[0].ID, s.events[1].ID)
	}
}

type recordingNotifier struct {
	calls map[string][]model.HealthAlert
	err   error
}

func (n *recordingNotifier) Notify(r model.FinancialHealthResult, alerts []model.HealthAlert) error {
	if n.calls == nil {
		n.calls = make(map[string][]model.HealthAlert)
	}
	n.calls[r.HouseholdID] = append(n.calls[r.HouseholdID], alerts...)
	return n.err
}

func TestNotifyCritical_OnlyNewCritical(t *testing.T) {
	n := &recordingNotifier{}
	s := quietService(Config{Notifier: n})

	prev := map[string]model.FinancialHealthResult{"jones": result("jones", 45, model.ClassFair)}
	curr := map[string]model.FinancialHealthResult{"jones": result("jones", 30, model.ClassPoor, "low-reserve", "projected-shortfall")}
	s.notifyCritical(diffResults(prev, curr, time.Now()), curr)

	got := n.calls["jones"]
	if len(got) != 1 || got[0].Rule != "projected-shortfall" {
		t.Fatalf("notified = %+v, want only projected-shortfall", got)
	}
}

func TestEmailNotifier(t *testing.T) {
	if _, err := NewEmailNotifier(SMTPConfig{From: "a@b"}); err == nil {
		t.Fatal("NewEmailNotifier accepted missing host")
	}

	n, err := NewEmailNotifier(SMTPConfig{Host: "smtp.example.com", From: "cashpulse@example.com", To: []string{"me@example.com"}, Username: "u", Password: "p"})
	if err != nil {
		t.Fatalf("NewEmailNotifier: %v", err)
	}
	var sentAddr, body string
	n.send = func(e *email.Email, addr string, auth smtp.Auth) error {
		sentAddr = addr
		body = e.Subject + "\n" + string(e.Text)
		if auth == nil {
			t.Error("auth = nil, want PlainAuth")
		}
		return nil
	}

	month := 2
	r := result("jones", 30, model.ClassPoor, "projected-shortfall")
	r.FutureProjection = model.FutureProjection{WillGoNegative: true, MonthsUntilNegative: &month}
	if err := n.Notify(r, r.Alerts); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if sentAddr != "smtp.example.com:587" {
		t.Fatalf("addr = %q, want smtp.example.com:587", sentAddr)
	}
	for _, want := range []string{"jones", "score 30", "projected-shortfall", "month 2"} {
		if !strings.Contains(body, want) {
			t.Errorf("email missing %q:\n%s", want, body)
		}
	}

	n.send = func(*email.Email, string, smtp.Auth) error { return errors.New("refused") }
	if err := n.Notify(r, r.Alerts); err == nil {
		t.Fatal("Notify swallowed send error")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("s3cret")
	tok, err := IssueToken(secret, "ops", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	sub, err := ParseToken(secret, tok)
	if err != nil || sub != "ops" {
		t.Fatalf("ParseToken = %q, %v; want ops", sub, err)
	}
	if _, err := ParseToken([]byte("other"), tok); err == nil {
		t.Fatal("ParseToken accepted wrong secret")
	}

	expired, err := IssueToken(secret, "ops", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseToken(secret, expired); err == nil {
		t.Fatal("ParseToken accepted expired token")
	}
	if _, err := IssueToken(nil, "ops", time.Hour); err == nil {
		t.Fatal("IssueToken accepted empty secret")
	}
}

func seededService(t *testing.T, cfg Config) *Service {
	t.Helper()
	s := quietService(cfg)
	s.results = map[string]model.FinancialHealthResult{
		"smith": result("smith", 72, model.ClassGood),
		"jones": result("jones", 38, model.ClassPoor, "projected-shortfall"),
	}
	s.hasSnapshot = true
	s.events = []Event{{ID: 1, Type: EventSnapshot}, {ID: 2, Type: EventScoreChanged, HouseholdID: "jones"}}
	return s
}

func TestRouter_Households(t *testing.T) {
	srv := httptest.NewServer(seededService(t, Config{}).Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/households")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var rows []model.HouseholdScore
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0].HouseholdID != "jones" || rows[0].Critical != 1 {
		t.Fatalf("households = %+v, want jones first with 1 critical", rows)
	}

	resp, err = http.Get(srv.URL + "/v1/households/smith")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET smith status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/v1/households/smtih")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var er ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusNotFound || len(er.Suggestions) == 0 || er.Suggestions[0] != "smith" {
		t.Fatalf("GET smtih = %d %+v, want 404 suggesting smith", resp.StatusCode, er)
	}
}

func TestRouter_EventsSince(t *testing.T) {
	srv := httptest.NewServer(seededService(t, Config{}).Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/events?since=1")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var events []Event
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].ID != 2 {
		t.Fatalf("events since 1 = %+v, want [2]", events)
	}
}

func TestRouter_Score(t *testing.T) {
	srv := httptest.NewServer(quietService(Config{}).Router())
	defer srv.Close()

	body := `{"householdId":"adhoc","accounts":[{"id":"chk","type":"checking","balance":400}],
	"transactions":[{"date":"2026-01-03","type":"income","amount":2000},{"date":"2026-01-20","type":"expense","amount":2500}]}`
	resp, err := http.Post(srv.URL+"/v1/score?as_of=2026-01", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var r model.FinancialHealthResult
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		t.Fatal(err)
	}
	if r.HouseholdID != "adhoc" || !r.FutureProjection.WillGoNegative {
		t.Fatalf("result = %s willGoNegative=%v, want adhoc true", r.HouseholdID, r.FutureProjection.WillGoNegative)
	}
	if got := r.FutureProjection.Months[0].Month; got != "2026-02" {
		t.Fatalf("first projected month = %s, want 2026-02", got)
	}

	bad := `{"accounts":[{"id":"chk","type":"checking","balance":1}],"transactions":[{"date":"2026-01-03","type":"expense","amount":-4}]}`
	resp, err = http.Post(srv.URL+"/v1/score", "application/json", strings.NewReader(bad))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var er ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusUnprocessableEntity || er.Validation == nil || er.Validation.Field != "amount" {
		t.Fatalf("bad score = %d %+v, want 422 on amount", resp.StatusCode, er)
	}

	resp, err = http.Post(srv.URL+"/v1/score?as_of=June", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad as_of status = %d, want 400", resp.StatusCode)
	}
}

func TestRouter_ScoreBodyTooLarge(t *testing.T) {
	router := quietService(Config{}).Router()

	body := `{"householdId":"` + strings.Repeat("x", maxScoreBody) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/score", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413; body %s", rec.Code, rec.Body.String())
	}
	var er ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil {
		t.Fatal(err)
	}
	if er.Validation != nil || !strings.Contains(er.Error, "exceeds") {
		t.Fatalf("error response = %+v", er)
	}
}

func TestRouter_Auth(t *testing.T) {
	secret := "topsecret"
	srv := httptest.NewServer(seededService(t, Config{JWTSecret: secret}).Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d, want 200 without auth", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/v1/status")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", resp.StatusCode)
	}

	tok, err := IssueToken([]byte(secret), "test", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/status", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var st Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || !st.AuthRequired {
		t.Fatalf("status with token = %d %+v", resp.StatusCode, st)
	}
}
