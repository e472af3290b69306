package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"campusbooker/internal/apperr"
	"campusbooker/internal/dto"
	"campusbooker/internal/model"
)

func newTestEventService(er *memEventRepo, bp *stubBookingsPort, ap *stubApprovalsPort, now time.Time) *eventService {
	log := zerolog.Nop()
	return &eventService{
		repo:      er,
		bookings:  bp,
		approvals: ap,
		log:       &log,
		now:       func() time.Time { return now },
	}
}

func eventCreateReq(start, end time.Time) dto.EventCreateRequest {
	return dto.EventCreateRequest{
		EventName:         "Team demo",
		OrganizerID:       1,
		RoomID:            5,
		EventType:         "meeting",
		EventStart:        start,
		EventEnd:          end,
		ExpectedAttendees: 12,
	}
}

func TestEventCreateStartsPending(t *testing.T) {
	base := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)
	er := newMemEventRepo()
	ap := &stubApprovalsPort{}
	svc := newTestEventService(er, &stubBookingsPort{has: true}, ap, base)

	resp, err := svc.Create(context.Background(), eventCreateReq(base, base.Add(time.Hour)))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if resp.State != model.StatePending {
		t.Errorf("state = %q, want %q", resp.State, model.StatePending)
	}

	if len(ap.created) != 1 {
		t.Fatalf("approvals created = %d, want 1", len(ap.created))
	}
	a := ap.created[0]
	if a.Type != model.ApprovalTypeCreate || a.Action != model.ActionPending {
		t.Errorf("approval type/action = %q/%q", a.Type, a.Action)
	}
	if a.EventID != resp.EventID || a.PendingObj.EventID != resp.EventID {
		t.Errorf("approval not linked to event %s", resp.EventID)
	}
	if a.PendingObj.EventName == nil || *a.PendingObj.EventName != "Team demo" {
		t.Errorf("snapshot does not carry the full event")
	}
}

func TestEventCreateRequiresBooking(t *testing.T) {
	base := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)
	svc := newTestEventService(newMemEventRepo(), &stubBookingsPort{has: false}, &stubApprovalsPort{}, base)

	_, err := svc.Create(context.Background(), eventCreateReq(base, base.Add(time.Hour)))
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestEventCreateBookingStoreDown(t *testing.T) {
	base := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)
	down := apperr.Unavailable(errors.New("connection refused"), "booking userHasRoomBooked failed")
	svc := newTestEventService(newMemEventRepo(), &stubBookingsPort{has: false, err: down}, &stubApprovalsPort{}, base)

	_, err := svc.Create(context.Background(), eventCreateReq(base, base.Add(time.Hour)))
	if !errors.Is(err, apperr.ErrUnavailable) {
		t.Fatalf("err = %v, want unavailable (fallback false must not mean 'no booking')", err)
	}
}

func TestEventCreateConflict(t *testing.T) {
	base := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)
	er := newMemEventRepo()
	er.events["existing"] = model.Event{
		EventID:    "existing",
		State:      model.StatePlanned,
		RoomID:     5,
		EventStart: base,
		EventEnd:   base.Add(time.Hour),
	}
	svc := newTestEventService(er, &stubBookingsPort{has: true}, &stubApprovalsPort{}, base)

	_, err := svc.Create(context.Background(), eventCreateReq(base.Add(30*time.Minute), base.Add(90*time.Minute)))
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestEventUpdateWhileAwaitingApproval(t *testing.T) {
	base := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)
	er := newMemEventRepo()
	er.events["ev1"] = model.Event{
		EventID: "ev1", State: model.StatePending, OrganizerID: 1,
		RoomID: 5, EventName: "Demo", EventType: "meeting",
		EventStart: base, EventEnd: base.Add(time.Hour), ExpectedAttendees: 10,
	}
	svc := newTestEventService(er, &stubBookingsPort{has: true}, &stubApprovalsPort{}, base)

	name := "Renamed"
	_, err := svc.Update(context.Background(), "ev1", dto.EventUpdateRequest{UserID: 1, EventName: &name})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err = %v, want validation (event already awaiting approval)", err)
	}
}

func TestEventUpdateOrganizerOnly(t *testing.T) {
	base := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)
	er := newMemEventRepo()
	er.events["ev1"] = model.Event{
		EventID: "ev1", State: model.StatePlanned, OrganizerID: 1,
		RoomID: 5, EventName: "Demo", EventType: "meeting",
		EventStart: base, EventEnd: base.Add(time.Hour), ExpectedAttendees: 10,
	}
	svc := newTestEventService(er, &stubBookingsPort{has: true}, &stubApprovalsPort{}, base)

	name := "Renamed"
	_, err := svc.Update(context.Background(), "ev1", dto.EventUpdateRequest{UserID: 2, EventName: &name})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err = %v, want validation (not the organizer)", err)
	}
}

func TestEventUpdateCreatesPendingApproval(t *testing.T) {
	base := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)
	er := newMemEventRepo()
	er.events["ev1"] = model.Event{
		EventID: "ev1", State: model.StatePlanned, OrganizerID: 1,
		RoomID: 5, EventName: "Demo", EventType: "meeting",
		EventStart: base, EventEnd: base.Add(time.Hour), ExpectedAttendees: 10,
	}
	ap := &stubApprovalsPort{}
	svc := newTestEventService(er, &stubBookingsPort{has: true}, ap, base)

	name := "Renamed"
	resp, err := svc.Update(context.Background(), "ev1", dto.EventUpdateRequest{UserID: 1, EventName: &name})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if resp.State != model.StatePlanned {
		t.Errorf("state = %q, update must not change it before the decision", resp.State)
	}
	if len(ap.created) != 1 || ap.created[0].Type != model.ApprovalTypeUpdate {
		t.Fatalf("expected one update approval, got %+v", ap.created)
	}
	if got := er.events["ev1"]; !got.HasPendingEdit {
		t.Errorf("pending-edit flag not persisted")
	}
	if stored := er.events["ev1"]; stored.EventName != "Demo" {
		t.Errorf("stored name changed to %q before approval", stored.EventName)
	}
}

func TestApplyDecisionApprove(t *testing.T) {
	base := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)
	er := newMemEventRepo()
	er.events["ev1"] = model.Event{
		EventID: "ev1", State: model.StatePending, OrganizerID: 1,
		RoomID: 5, EventName: "Demo", EventType: "meeting",
		EventStart: base.Add(time.Hour), EventEnd: base.Add(2 * time.Hour), ExpectedAttendees: 10,
	}
	svc := newTestEventService(er, &stubBookingsPort{has: true}, &stubApprovalsPort{}, base)

	name := "Approved demo"
	snap := model.EventSnapshot{EventID: "ev1", OrganizerID: 1, EventName: &name}
	resp, err := svc.ApplyDecision(context.Background(), "ev1", snap, true)
	if err != nil {
		t.Fatalf("ApplyDecision: %v", err)
	}
	if resp == nil || resp.State != model.StatePlanned {
		t.Fatalf("resp = %+v, want planned event", resp)
	}
	if resp.EventName != "Approved demo" {
		t.Errorf("snapshot fields not merged, name = %q", resp.EventName)
	}
}

func TestApplyDecisionDenyPendingDeletes(t *testing.T) {
	base := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)
	er := newMemEventRepo()
	er.events["ev1"] = model.Event{
		EventID: "ev1", State: model.StatePending, OrganizerID: 1,
		RoomID: 5, EventStart: base, EventEnd: base.Add(time.Hour),
	}
	svc := newTestEventService(er, &stubBookingsPort{has: true}, &stubApprovalsPort{}, base)

	resp, err := svc.ApplyDecision(context.Background(), "ev1", model.EventSnapshot{EventID: "ev1"}, false)
	if err != nil {
		t.Fatalf("ApplyDecision: %v", err)
	}
	if resp != nil {
		t.Fatalf("resp = %+v, want nil for a deleted event", resp)
	}
	if _, ok := er.events["ev1"]; ok {
		t.Errorf("denied pending event still stored")
	}
	if _, err := svc.GetByID(context.Background(), "ev1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetByID after denial = %v, want not found", err)
	}
}

func TestApplyDecisionDenyPlannedKeepsEvent(t *testing.T) {
	base := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)
	er := newMemEventRepo()
	er.events["ev1"] = model.Event{
		EventID: "ev1", State: model.StatePlanned, HasPendingEdit: true, OrganizerID: 1,
		RoomID: 5, EventName: "Demo", EventStart: base.Add(time.Hour), EventEnd: base.Add(2 * time.Hour),
	}
	svc := newTestEventService(er, &stubBookingsPort{has: true}, &stubApprovalsPort{}, base)

	resp, err := svc.ApplyDecision(context.Background(), "ev1", model.EventSnapshot{EventID: "ev1"}, false)
	if err != nil {
		t.Fatalf("ApplyDecision: %v", err)
	}
	if resp == nil || resp.State != model.StatePlanned {
		t.Fatalf("resp = %+v, want the planned event kept", resp)
	}
	if resp.HasPendingEdit {
		t.Errorf("pending edit flag still set after denial")
	}
	if got := er.events["ev1"]; got.EventName != "Demo" {
		t.Errorf("denied edit leaked into stored event: %q", got.EventName)
	}
}

func TestEventReadDerivedStates(t *testing.T) {
	start := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	cases := []struct {
		name string
		now  time.Time
		want string
	}{
		{"before start", start.Add(-time.Hour), model.StatePlanned},
		{"in progress", start.Add(30 * time.Minute), model.StateOngoing},
		{"after end", end.Add(time.Minute), model.StateCompleted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			er := newMemEventRepo()
			er.events["ev1"] = model.Event{
				EventID: "ev1", State: model.StatePlanned, OrganizerID: 1,
				RoomID: 5, EventStart: start, EventEnd: end,
			}
			svc := newTestEventService(er, &stubBookingsPort{has: true}, &stubApprovalsPort{}, tc.now)

			resp, err := svc.GetByID(context.Background(), "ev1")
			if err != nil {
				t.Fatalf("GetByID: %v", err)
			}
			if resp.State != tc.want {
				t.Errorf("state = %q, want %q", resp.State, tc.want)
			}
			if got := er.events["ev1"]; got.State != model.StatePlanned {
				t.Errorf("stored state mutated to %q", got.State)
			}
		})
	}
}

func TestEventReadPendingEditFallback(t *testing.T) {
	base := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)
	er := newMemEventRepo()
	er.events["ev1"] = model.Event{
		EventID: "ev1", State: model.StatePlanned, HasPendingEdit: true, OrganizerID: 1,
		RoomID: 5, EventStart: base.Add(time.Hour), EventEnd: base.Add(2 * time.Hour),
	}
	down := apperr.Unavailable(errors.New("connection refused"), "approval pendingByEvent failed")
	svc := newTestEventService(er, &stubBookingsPort{has: true}, &stubApprovalsPort{pendingErr: down}, base)

	resp, err := svc.GetByID(context.Background(), "ev1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !resp.HasPendingEdit {
		t.Errorf("persisted flag not used while approval store is down")
	}

	// A reachable approval store is authoritative over the stale flag.
	svc = newTestEventService(er, &stubBookingsPort{has: true}, &stubApprovalsPort{}, base)
	resp, err = svc.GetByID(context.Background(), "ev1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if resp.HasPendingEdit {
		t.Errorf("live empty pending list should win over the stale persisted flag")
	}
}
