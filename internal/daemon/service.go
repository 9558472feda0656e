// Package daemon provides the long-running household health monitor service.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/cashpulse/internal/health"
	"github.com/theirongolddev/cashpulse/internal/model"
	"github.com/theirongolddev/cashpulse/internal/pipeline"
	"github.com/theirongolddev/cashpulse/internal/store"
)

// Config controls the daemon runtime behavior.
type Config struct {
	DataDir      string
	Household    string // substring filter, empty for all
	Options      health.Options
	UseCache     bool
	Interval     time.Duration
	Addr         string
	EventsBuffer int
	JWTSecret    string   // empty disables auth
	Notifier     Notifier // nil disables notifications
	Logger       *logrus.Logger
}

// Snapshot is a compact portfolio state for status and event payloads.
type Snapshot struct {
	At           time.Time `json:"at"`
	Households   int       `json:"households"`
	Scored       int       `json:"scored"`
	Failed       int       `json:"failed"`
	MeanScore    float64   `json:"mean_score"`
	MinScore     int       `json:"min_score"`
	MaxScore     int       `json:"max_score"`
	AtRisk       int       `json:"at_risk"`
	WithCritical int       `json:"with_critical"`
	TotalBalance float64   `json:"total_balance"`
}

// Event types.
const (
	EventSnapshot              = "snapshot"
	EventScoreChanged          = "score_changed"
	EventClassificationChanged = "classification_changed"
	EventAlertRaised           = "alert_raised"
)

// Event is emitted when the portfolio or a household changes between polls.
type Event struct {
	ID                 int64                `json:"id"`
	Type               string               `json:"type"`
	Timestamp          time.Time            `json:"timestamp"`
	HouseholdID        string               `json:"household_id,omitempty"`
	Score              int                  `json:"score,omitempty"`
	PrevScore          int                  `json:"prev_score,omitempty"`
	Classification     model.Classification `json:"classification,omitempty"`
	PrevClassification model.Classification `json:"prev_classification,omitempty"`
	Alert              *model.HealthAlert   `json:"alert,omitempty"`
	Snapshot           *Snapshot            `json:"snapshot,omitempty"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastPollAt      time.Time `json:"last_poll_at"`
	PollIntervalSec int       `json:"poll_interval_sec"`
	PollCount       int64     `json:"poll_count"`
	DataDir         string    `json:"data_dir"`
	Household       string    `json:"household,omitempty"`
	Summary         Snapshot  `json:"summary"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
	AuthRequired    bool      `json:"auth_required"`
}

const (
	scoreCacheFactor  = 4
	minScoreCacheRows = 500
)

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg Config
	log *logrus.Logger

	mu          sync.RWMutex
	startedAt   time.Time
	lastPollAt  time.Time
	pollCount   int64
	lastError   string
	hasSnapshot bool
	snapshot    Snapshot
	results     map[string]model.FinancialHealthResult
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event

	pollMu sync.Mutex
}

// New returns a new daemon service with the provided config.
func New(cfg Config) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	if cfg.Logger == nil {
		cfg.Logger = NewLogger("")
	}

	return &Service{
		cfg:       cfg,
		log:       cfg.Logger,
		startedAt: time.Now(),
		results:   make(map[string]model.FinancialHealthResult),
		subs:      make(map[int]chan Event),
	}
}

// Run starts HTTP endpoints and the poll schedule until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Seed initial snapshot so status is useful immediately.
	s.pollOnce()

	sched := cron.New()
	if _, err := sched.AddFunc("@every "+s.cfg.Interval.String(), s.pollOnce); err != nil {
		_ = server.Close()
		return fmt.Errorf("scheduling poll: %w", err)
	}
	sched.Start()
	defer func() { <-sched.Stop().Done() }()

	s.log.WithFields(logrus.Fields{
		"addr":     s.cfg.Addr,
		"interval": s.cfg.Interval.String(),
		"data_dir": s.cfg.DataDir,
	}).Info("daemon started")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("daemon shutting down")
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("daemon http server: %w", err)
	}
}

// pollOnce reloads every household, rescores, and publishes what changed.
// Overlapping cron ticks are serialized.
func (s *Service) pollOnce() {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()

	start := time.Now()

	var cache *store.Cache
	if s.cfg.UseCache {
		c, err := store.Open(pipeline.CachePath())
		if err != nil {
			s.log.WithError(err).Warn("cache unavailable, doing full parse")
		} else {
			defer func() { _ = c.Close() }()
			cache = c
		}
	}

	snaps, loadFailed, err := s.loadSnapshots(cache)
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.lastPollAt = time.Now()
		s.pollCount++
		s.mu.Unlock()
		s.log.WithError(err).Error("poll failed")
		return
	}

	snaps = pipeline.FilterByHousehold(snaps, s.cfg.Household)

	var rc pipeline.ResultCache
	if cache != nil {
		rc = cache
	}
	scored := pipeline.ScoreAll(snaps, s.cfg.Options, rc, nil)
	for _, f := range scored.Failures {
		s.log.WithField("household", f.HouseholdID).WithError(f.Err).Warn("household rejected")
	}
	if scored.CacheWriteErrors > 0 {
		s.log.WithField("failed", scored.CacheWriteErrors).Warn("score cache writes failed")
	}
	if cache != nil {
		s.pruneScores(cache, len(scored.Results))
	}

	now := time.Now()
	stats := pipeline.Summarize(scored.Results, len(scored.Failures)+loadFailed)
	snap := snapshotFromStats(stats, now)

	curr := make(map[string]model.FinancialHealthResult, len(scored.Results))
	for _, r := range scored.Results {
		curr[r.HouseholdID] = r
	}

	s.mu.Lock()
	prev := s.results
	prevExists := s.hasSnapshot

	s.hasSnapshot = true
	s.snapshot = snap
	s.results = curr
	s.lastPollAt = now
	s.pollCount++
	s.lastError = ""

	var pending []Event
	if !prevExists {
		pending = []Event{{Type: EventSnapshot, Timestamp: now, Snapshot: &snap}}
	} else {
		pending = diffResults(prev, curr, now)
	}
	for i := range pending {
		s.nextEventID++
		pending[i].ID = s.nextEventID
	}
	s.mu.Unlock()

	for _, ev := range pending {
		s.publishEvent(ev)
	}

	s.log.WithFields(logrus.Fields{
		"households": stats.Households,
		"scored":     stats.Scored,
		"cache_hits": scored.CacheHits,
		"cache_errs": scored.CacheWriteErrors,
		"events":     len(pending),
		"elapsed_ms": time.Since(start).Milliseconds(),
	}).Info("poll complete")

	if prevExists {
		s.notifyCritical(pending, curr)
	}
}

func (s *Service) loadSnapshots(cache *store.Cache) ([]model.Snapshot, int, error) {
	if cache != nil {
		cr, err := pipeline.LoadWithCache(s.cfg.DataDir, cache, nil)
		if err == nil {
			s.logFileErrors(cr.Errors)
			return cr.Households, failedHouseholds(cr.Errors), nil
		}
		s.log.WithError(err).Warn("cached load failed, doing full parse")
	}

	result, err := pipeline.Load(s.cfg.DataDir, nil)
	if err != nil {
		return nil, 0, err
	}
	s.logFileErrors(result.Errors)
	return result.Households, failedHouseholds(result.Errors), nil
}

// pruneScores bounds score_cache to a few polls' worth of fingerprints so
// a long-running daemon does not grow it without limit.
func (s *Service) pruneScores(cache *store.Cache, households int) {
	keep := max(households*scoreCacheFactor, minScoreCacheRows)
	n, err := cache.PruneResults(keep)
	if err != nil {
		s.log.WithError(err).Warn("pruning score cache")
		return
	}
	if n > 0 {
		s.log.WithFields(logrus.Fields{"removed": n, "kept": keep}).Debug("score cache pruned")
	}
}

func (s *Service) logFileErrors(errs []pipeline.FileError) {
	for _, fe := range errs {
		s.log.WithFields(logrus.Fields{"household": fe.HouseholdID, "path": fe.Path}).WithError(fe.Err).Warn("snapshot file rejected")
	}
}

func failedHouseholds(errs []pipeline.FileError) int {
	seen := make(map[string]struct{}, len(errs))
	for _, fe := range errs {
		seen[fe.HouseholdID] = struct{}{}
	}
	return len(seen)
}

// notifyCritical hands newly raised critical alerts to the notifier, one
// call per household.
func (s *Service) notifyCritical(events []Event, results map[string]model.FinancialHealthResult) {
	if s.cfg.Notifier == nil {
		return
	}
	byHousehold := make(map[string][]model.HealthAlert)
	var order []string
	for _, ev := range events {
		if ev.Type != EventAlertRaised || ev.Alert == nil || ev.Alert.Severity != model.SeverityCritical {
			continue
		}
		if _, ok := byHousehold[ev.HouseholdID]; !ok {
			order = append(order, ev.HouseholdID)
		}
		byHousehold[ev.HouseholdID] = append(byHousehold[ev.HouseholdID], *ev.Alert)
	}
	for _, id := range order {
		entry := s.log.WithFields(logrus.Fields{"household": id, "alerts": len(byHousehold[id])})
		if err := s.cfg.Notifier.Notify(results[id], byHousehold[id]); err != nil {
			entry.WithError(err).Error("notification failed")
			continue
		}
		entry.Info("critical alerts notified")
	}
}

func snapshotFromStats(stats model.PortfolioStats, at time.Time) Snapshot {
	return Snapshot{
		At:           at,
		Households:   stats.Households,
		Scored:       stats.Scored,
		Failed:       stats.Failed,
		MeanScore:    stats.MeanScore,
		MinScore:     stats.MinScore,
		MaxScore:     stats.MaxScore,
		AtRisk:       stats.AtRisk,
		WithCritical: stats.WithCritical,
		TotalBalance: stats.TotalBalance,
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       s.pollCount,
		DataDir:         s.cfg.DataDir,
		Household:       s.cfg.Household,
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
		AuthRequired:    s.cfg.JWTSecret != "",
	}
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
