package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/cashpulse/internal/daemon"
	"github.com/theirongolddev/cashpulse/internal/model"
)

func testServer(t *testing.T, secret string) *httptest.Server {
	t.Helper()
	logger := daemon.NewLogger("panic")
	logger.SetOutput(io.Discard)
	svc := daemon.New(daemon.Config{DataDir: t.TempDir(), JWTSecret: secret, Logger: logger})
	srv := httptest.NewServer(svc.Router())
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_NormalizesAddr(t *testing.T) {
	if c := New("127.0.0.1:8787/", ""); c.baseURL != "http://127.0.0.1:8787" {
		t.Fatalf("baseURL = %q", c.baseURL)
	}
	if c := New("https://fin.example.com", ""); c.baseURL != "https://fin.example.com" {
		t.Fatalf("baseURL = %q", c.baseURL)
	}
}

func TestClient_StatusAndAuth(t *testing.T) {
	srv := testServer(t, "k3y")
	ctx := context.Background()

	if err := New(srv.URL, "").Healthy(ctx); err != nil {
		t.Fatalf("Healthy: %v", err)
	}
	if _, err := New(srv.URL, "").Status(ctx); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Status without token error = %v, want ErrUnauthorized", err)
	}

	tok, err := daemon.IssueToken([]byte("k3y"), "test", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	st, err := New(srv.URL, tok).Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.AuthRequired {
		t.Fatal("AuthRequired = false, want true")
	}
}

func TestClient_HouseholdNotFound(t *testing.T) {
	srv := testServer(t, "")
	_, err := New(srv.URL, "").Household(context.Background(), "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Household error = %v, want ErrNotFound", err)
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.HouseholdID != "ghost" {
		t.Fatalf("NotFoundError = %+v", nf)
	}
}

func TestClient_Score(t *testing.T) {
	srv := testServer(t, "")
	c := New(srv.URL, "")

	doc := `{"householdId":"x","accounts":[{"id":"chk","type":"savings","balance":12000}],
	"transactions":[{"date":"2026-03-01","type":"income","amount":3000},{"date":"2026-03-02","type":"expense","amount":2000}]}`
	r, err := c.Score(context.Background(), strings.NewReader(doc), time.Time{})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if r.MonthsOfReserve != 6 || r.Classification == "" {
		t.Fatalf("result = reserve %.2f class %q", r.MonthsOfReserve, r.Classification)
	}

	_, err = c.Score(context.Background(), strings.NewReader(`{"accounts":[{"type":"savings"}]}`), time.Time{})
	if !IsValidation(err) {
		t.Fatalf("Score(bad) error = %v, want validation error", err)
	}
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	if _, err := New(addr, "").Households(context.Background(), model.ClassPoor); !errors.Is(err, ErrUnreachable) {
		t.Fatalf("error = %v, want ErrUnreachable", err)
	}
}
