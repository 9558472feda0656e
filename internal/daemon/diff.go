package daemon

import (
	"sort"
	"time"

	"github.com/theirongolddev/cashpulse/internal/model"
)

// diffResults compares two polls and returns the per-household events
// between them, ordered by household ID. Alerts are matched by rule so a
// new fingerprint does not re-raise an alert that was already active.
func diffResults(prev, curr map[string]model.FinancialHealthResult, at time.Time) []Event {
	ids := make([]string, 0, len(curr))
	for id := range curr {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var events []Event
	for _, id := range ids {
		c := curr[id]
		p, existed := prev[id]

		if existed && c.Score != p.Score {
			events = append(events, Event{
				Type:        EventScoreChanged,
				Timestamp:   at,
				HouseholdID: id,
				Score:       c.Score,
				PrevScore:   p.Score,
			})
		}
		if existed && c.Classification != p.Classification {
			events = append(events, Event{
				Type:               EventClassificationChanged,
				Timestamp:          at,
				HouseholdID:        id,
				Classification:     c.Classification,
				PrevClassification: p.Classification,
			})
		}

		active := make(map[string]bool, len(p.Alerts))
		for _, a := range p.Alerts {
			active[a.Rule] = true
		}
		for i := range c.Alerts {
			if active[c.Alerts[i].Rule] {
				continue
			}
			alert := c.Alerts[i]
			events = append(events, Event{
				Type:        EventAlertRaised,
				Timestamp:   at,
				HouseholdID: id,
				Score:       c.Score,
				Alert:       &alert,
			})
		}
	}
	return events
}
