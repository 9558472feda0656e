package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/theirongolddev/cashpulse/internal/health"
	"github.com/theirongolddev/cashpulse/internal/model"
	"github.com/theirongolddev/cashpulse/internal/pipeline"
	"github.com/theirongolddev/cashpulse/internal/source"
)

// maxScoreBody caps POST /v1/score request bodies.
const maxScoreBody = 8 << 20

// ErrorResponse is the JSON body of every non-2xx API reply.
type ErrorResponse struct {
	Error       string                  `json:"error"`
	Validation  *health.ValidationError `json:"validation,omitempty"`
	Suggestions []string                `json:"suggestions,omitempty"`
}

// Router returns the HTTP handler for the daemon API. /healthz is always
// public; the /v1 routes require a bearer token when a JWT secret is set.
func (s *Service) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/v1").Subrouter()
	if s.cfg.JWTSecret != "" {
		api.Use(AuthMiddleware([]byte(s.cfg.JWTSecret)))
	}
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/households", s.handleHouseholds).Methods(http.MethodGet)
	api.HandleFunc("/households/{id}", s.handleHousehold).Methods(http.MethodGet)
	api.HandleFunc("/score", s.handleScore).Methods(http.MethodPost)
	api.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
	api.HandleFunc("/stream", s.handleStream).Methods(http.MethodGet)
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

func (s *Service) currentResults() []model.FinancialHealthResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.FinancialHealthResult, 0, len(s.results))
	for _, r := range s.results {
		out = append(out, r)
	}
	return out
}

func (s *Service) handleHouseholds(w http.ResponseWriter, r *http.Request) {
	results := s.currentResults()
	if class := r.URL.Query().Get("class"); class != "" {
		results = pipeline.FilterByClass(results, model.Classification(class))
	}
	writeJSON(w, http.StatusOK, pipeline.Rank(results))
}

func (s *Service) handleHousehold(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.RLock()
	result, ok := s.results[id]
	ids := make([]string, 0, len(s.results))
	for k := range s.results {
		ids = append(ids, k)
	}
	s.mu.RUnlock()

	if !ok {
		sort.Strings(ids)
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error:       fmt.Sprintf("household %q not found", id),
			Suggestions: pipeline.SuggestHousehold(ids, id, 3),
		})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleScore scores a snapshot posted as JSON without touching daemon
// state. Query parameters as_of (YYYY-MM) and lookback override defaults.
func (s *Service) handleScore(w http.ResponseWriter, r *http.Request) {
	opts, err := s.requestOptions(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	snap, err := source.ParseSnapshotJSON(http.MaxBytesReader(w, r.Body, maxScoreBody))
	if err == nil {
		var result model.FinancialHealthResult
		result, err = health.Compute(snap, opts)
		if err == nil {
			s.log.WithField("household", result.HouseholdID).
				WithField("score", result.Score).
				WithField("classification", result.Classification).
				Debug("ad-hoc score")
			writeJSON(w, http.StatusOK, result)
			return
		}
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{
			Error: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
		})
		return
	}
	var ve *health.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: ve.Error(), Validation: ve})
		return
	}
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
}

func (s *Service) requestOptions(r *http.Request) (health.Options, error) {
	opts := s.cfg.Options
	q := r.URL.Query()
	if v := q.Get("as_of"); v != "" {
		t, err := time.Parse("2006-01", v)
		if err != nil {
			return opts, fmt.Errorf("as_of must be YYYY-MM: %w", err)
		}
		opts.AsOf = t
	}
	if v := q.Get("lookback"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return opts, fmt.Errorf("lookback must be a positive integer")
		}
		opts.LookbackMonths = n
	}
	return opts, nil
}

// handleEvents lists buffered events, optionally only those after ?since=ID.
func (s *Service) handleEvents(w http.ResponseWriter, r *http.Request) {
	var since int64
	if v := r.URL.Query().Get("since"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "since must be an event ID"})
			return
		}
		since = n
	}

	s.mu.RLock()
	events := make([]Event, 0, len(s.events))
	for _, ev := range s.events {
		if ev.ID > since {
			events = append(events, ev)
		}
	}
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current snapshot immediately.
	summary := s.snapshotStatus().Summary
	writeSSE(w, Event{
		Type:      EventSnapshot,
		Timestamp: time.Now(),
		Snapshot:  &summary,
	})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if ev.ID > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", ev.ID)
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}
