// Package conflict holds the interval-overlap predicates shared by the
// booking and event stores. The two rules are intentionally different:
// bookings treat a shared boundary as a conflict via inclusive comparisons,
// while events use strict interior overlap plus an identical-start or
// identical-end clause. Keep them separate.
package conflict

import "time"

type Interval struct {
	ID    string
	Start time.Time
	End   time.Time
}

// BookingConflicts reports whether [start, end] collides with any existing
// interval under the booking rule: any touch or containment counts.
func BookingConflicts(existing []Interval, start, end time.Time, excludeID string) bool {
	for _, iv := range existing {
		if iv.ID == excludeID {
			continue
		}
		startCovered := !iv.Start.After(start) && !iv.End.Before(start)
		endCovered := !iv.Start.After(end) && !iv.End.Before(end)
		contained := !iv.Start.Before(start) && !iv.End.After(end)
		if startCovered || endCovered || contained {
			return true
		}
	}
	return false
}

// EventConflicts reports whether [start, end] collides with any existing
// interval under the event rule: strict interior overlap, or an identical
// start or identical end even when the intervals are otherwise disjoint.
func EventConflicts(existing []Interval, start, end time.Time, excludeID string) bool {
	for _, iv := range existing {
		if iv.ID == excludeID {
			continue
		}
		startInside := start.After(iv.Start) && start.Before(iv.End)
		endInside := end.After(iv.Start) && end.Before(iv.End)
		covers := start.Before(iv.Start) && end.After(iv.End)
		sameBoundary := start.Equal(iv.Start) || end.Equal(iv.End)
		if startInside || endInside || covers || sameBoundary {
			return true
		}
	}
	return false
}
