package conflict

import (
	"testing"
	"time"
)

func ts(hour, min int) time.Time {
	return time.Date(2025, 3, 10, hour, min, 0, 0, time.UTC)
}

func TestBookingConflicts(t *testing.T) {
	existing := []Interval{
		{ID: "b1", Start: ts(9, 0), End: ts(10, 0)},
		{ID: "b2", Start: ts(14, 0), End: ts(15, 0)},
	}

	tests := []struct {
		name    string
		start   time.Time
		end     time.Time
		exclude string
		want    bool
	}{
		{name: "disjoint before", start: ts(7, 0), end: ts(8, 0), want: false},
		{name: "disjoint between", start: ts(11, 0), end: ts(12, 0), want: false},
		{name: "start inside existing", start: ts(9, 30), end: ts(11, 0), want: true},
		{name: "end inside existing", start: ts(8, 0), end: ts(9, 30), want: true},
		{name: "existing contained in candidate", start: ts(8, 0), end: ts(11, 0), want: true},
		{name: "candidate contained in existing", start: ts(9, 15), end: ts(9, 45), want: true},
		{name: "touching end counts", start: ts(10, 0), end: ts(11, 0), want: true},
		{name: "touching start counts", start: ts(8, 0), end: ts(9, 0), want: true},
		{name: "exclude skips the match", start: ts(9, 0), end: ts(10, 0), exclude: "b1", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BookingConflicts(existing, tt.start, tt.end, tt.exclude)
			if got != tt.want {
				t.Errorf("BookingConflicts(%v, %v) = %v, want %v", tt.start, tt.end, got, tt.want)
			}
		})
	}
}

func TestEventConflicts(t *testing.T) {
	existing := []Interval{
		{ID: "e1", Start: ts(9, 0), End: ts(10, 0)},
	}

	tests := []struct {
		name    string
		start   time.Time
		end     time.Time
		exclude string
		want    bool
	}{
		{name: "disjoint", start: ts(11, 0), end: ts(12, 0), want: false},
		{name: "start strictly inside", start: ts(9, 30), end: ts(10, 30), want: true},
		{name: "end strictly inside", start: ts(8, 0), end: ts(9, 30), want: true},
		{name: "covers existing", start: ts(8, 0), end: ts(11, 0), want: true},
		// touching is allowed for events, unlike bookings
		{name: "back to back is fine", start: ts(10, 0), end: ts(11, 0), want: false},
		// but an identical boundary conflicts even when otherwise disjoint
		{name: "identical start different end", start: ts(9, 0), end: ts(9, 30), want: true},
		{name: "identical end different start", start: ts(9, 45), end: ts(10, 0), want: true},
		{name: "identical start disjoint end", start: ts(9, 0), end: ts(12, 0), want: true},
		{name: "exclude skips itself", start: ts(9, 0), end: ts(10, 0), exclude: "e1", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EventConflicts(existing, tt.start, tt.end, tt.exclude)
			if got != tt.want {
				t.Errorf("EventConflicts(%v, %v) = %v, want %v", tt.start, tt.end, got, tt.want)
			}
		})
	}
}
