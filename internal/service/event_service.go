package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"campusbooker/internal/apperr"
	"campusbooker/internal/client"
	"campusbooker/internal/conflict"
	"campusbooker/internal/dto"
	"campusbooker/internal/model"
	"campusbooker/internal/repo"
	"campusbooker/pkg/validator"
)

// EventService coordinates the approval workflow: every create and edit is
// gated behind a staff decision delivered through ApplyDecision.
type EventService interface {
	Create(ctx context.Context, req dto.EventCreateRequest) (*dto.EventResponse, error)
	Update(ctx context.Context, eventID string, req dto.EventUpdateRequest) (*dto.EventResponse, error)
	// ApplyDecision is the internal approval-callback path. A nil response
	// with a nil error means the event was deleted by the decision.
	ApplyDecision(ctx context.Context, eventID string, snap model.EventSnapshot, approved bool) (*dto.EventResponse, error)
	GetByID(ctx context.Context, eventID string) (*dto.EventResponse, error)
	GetAll(ctx context.Context) ([]dto.EventResponse, error)
	Delete(ctx context.Context, eventID string) error
}

type eventService struct {
	repo      repo.EventRepository
	bookings  client.Bookings
	approvals client.Approvals
	log       *zerolog.Logger
	now       func() time.Time
}

func NewEventService(r repo.EventRepository, bookings client.Bookings, approvals client.Approvals, log *zerolog.Logger) EventService {
	return &eventService{
		repo:      r,
		bookings:  bookings,
		approvals: approvals,
		log:       log,
		now:       time.Now,
	}
}

func (s *eventService) Create(ctx context.Context, req dto.EventCreateRequest) (*dto.EventResponse, error) {
	if verr := validator.Validate(ctx, req); verr != nil {
		return nil, apperr.Validation("%v", verr)
	}
	if !req.EventStart.Before(req.EventEnd) {
		return nil, apperr.Validation("event start must be before end")
	}

	if err := s.ensureHasBooking(ctx, req.OrganizerID, req.RoomID, req.EventStart, req.EventEnd); err != nil {
		return nil, err
	}
	if err := s.ensureNoConflicts(ctx, req.EventStart, req.EventEnd, req.RoomID, ""); err != nil {
		return nil, err
	}

	event := &model.Event{
		EventID:           uuid.NewString(),
		State:             model.StatePending,
		HasPendingEdit:    false,
		EventName:         req.EventName,
		OrganizerID:       req.OrganizerID,
		RoomID:            req.RoomID,
		EventType:         req.EventType,
		EventStart:        req.EventStart,
		EventEnd:          req.EventEnd,
		ExpectedAttendees: req.ExpectedAttendees,
	}

	if err := s.repo.Create(ctx, event); err != nil {
		if errors.Is(err, repo.ErrEventConflict) {
			return nil, apperr.Conflict("this event conflicts with another event in room %d", req.RoomID)
		}
		s.log.Error().Err(err).Msg("failed to create event in DB")
		return nil, err
	}
	s.log.Info().Str("event_id", event.EventID).Msg("event created, awaiting approval")

	approval := model.Approval{
		EventID:    event.EventID,
		Type:       model.ApprovalTypeCreate,
		PendingObj: fullSnapshot(event),
		Action:     model.ActionPending,
	}
	if err := s.approvals.Create(ctx, approval); err != nil {
		// The event stays orphaned in pending; there is no cross-store
		// transaction to roll it back.
		s.log.Error().Err(err).Str("event_id", event.EventID).Msg("failed to create approval for new event")
		return nil, err
	}

	resp := s.toResponse(ctx, event)
	return &resp, nil
}

func (s *eventService) Update(ctx context.Context, eventID string, req dto.EventUpdateRequest) (*dto.EventResponse, error) {
	if verr := validator.Validate(ctx, req); verr != nil {
		return nil, apperr.Validation("%v", verr)
	}

	event, err := s.getStored(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.HasPendingEdit || event.State == model.StatePending {
		return nil, apperr.Validation("event is already waiting for an approval")
	}
	if req.UserID != event.OrganizerID {
		return nil, apperr.Validation("only organizer can update the event")
	}

	snap, err := s.buildCandidate(ctx, event, req)
	if err != nil {
		return nil, err
	}

	approval := model.Approval{
		EventID:    eventID,
		Type:       model.ApprovalTypeUpdate,
		PendingObj: snap,
		Action:     model.ActionPending,
	}
	if err := s.approvals.Create(ctx, approval); err != nil {
		s.log.Error().Err(err).Str("event_id", eventID).Msg("failed to create update approval")
		return nil, err
	}

	if err := s.repo.SetPendingEdit(ctx, eventID, true); err != nil {
		return nil, err
	}

	event.HasPendingEdit = true
	resp := s.toResponse(ctx, event)
	return &resp, nil
}

func (s *eventService) ApplyDecision(ctx context.Context, eventID string, snap model.EventSnapshot, approved bool) (*dto.EventResponse, error) {
	event, err := s.getStored(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if !approved {
		if event.State == model.StatePending {
			// The underlying event is a yet-unapproved creation: a denial
			// removes it outright.
			if err := s.repo.Delete(ctx, eventID); err != nil {
				return nil, err
			}
			s.log.Info().Str("event_id", eventID).Msg("event deleted after denial")
			return nil, nil
		}
		if err := s.repo.SetPendingEdit(ctx, eventID, false); err != nil {
			return nil, err
		}
		event.HasPendingEdit = false
		resp := s.toResponse(ctx, event)
		return &resp, nil
	}

	// The callback path bypasses the already-pending guard but still
	// re-validates the candidate, including a room change.
	if err := s.validateCandidate(ctx, event, snap); err != nil {
		return nil, err
	}
	if err := s.repo.ApplyApproved(ctx, eventID, snap); err != nil {
		if errors.Is(err, repo.ErrEventNotFound) {
			return nil, apperr.NotFound("event with id %s does not exist", eventID)
		}
		return nil, err
	}

	updated, err := s.getStored(ctx, eventID)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("event_id", eventID).Msg("event approved and planned")
	resp := s.toResponse(ctx, updated)
	return &resp, nil
}

func (s *eventService) GetByID(ctx context.Context, eventID string) (*dto.EventResponse, error) {
	event, err := s.getStored(ctx, eventID)
	if err != nil {
		return nil, err
	}
	resp := s.toResponse(ctx, event)
	return &resp, nil
}

func (s *eventService) GetAll(ctx context.Context) ([]dto.EventResponse, error) {
	events, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.EventResponse, 0, len(events))
	for i := range events {
		resp = append(resp, s.toResponse(ctx, &events[i]))
	}
	return resp, nil
}

func (s *eventService) Delete(ctx context.Context, eventID string) error {
	if err := s.repo.Delete(ctx, eventID); err != nil {
		if errors.Is(err, repo.ErrEventNotFound) {
			return apperr.NotFound("event with id %s does not exist", eventID)
		}
		return err
	}
	return nil
}

func (s *eventService) getStored(ctx context.Context, eventID string) (*model.Event, error) {
	event, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repo.ErrEventNotFound) {
			return nil, apperr.NotFound("event with id %s does not exist", eventID)
		}
		return nil, err
	}
	return event, nil
}

// buildCandidate validates an update request against the stored event and
// assembles the snapshot an update approval will carry. Missing start/end
// default to the stored values before validation.
func (s *eventService) buildCandidate(ctx context.Context, event *model.Event, req dto.EventUpdateRequest) (model.EventSnapshot, error) {
	var zero model.EventSnapshot

	if req.EventName != nil && *req.EventName == "" {
		return zero, apperr.Validation("event name cannot be empty")
	}
	if req.ExpectedAttendees != nil && *req.ExpectedAttendees <= 0 {
		return zero, apperr.Validation("expected attendees cannot be 0 or negative")
	}

	start := event.EventStart
	if req.EventStart != nil {
		start = *req.EventStart
	}
	end := event.EventEnd
	if req.EventEnd != nil {
		end = *req.EventEnd
	}
	if !start.Before(end) {
		return zero, apperr.Validation("event start must be before end")
	}

	if req.RoomID != nil {
		if *req.RoomID <= 0 {
			return zero, apperr.Validation("room id cannot be 0 or negative")
		}
		if err := s.ensureHasBooking(ctx, event.OrganizerID, *req.RoomID, start, end); err != nil {
			return zero, err
		}
		if err := s.ensureNoConflicts(ctx, start, end, *req.RoomID, event.EventID); err != nil {
			return zero, err
		}
	}

	return model.EventSnapshot{
		EventID:           event.EventID,
		OrganizerID:       event.OrganizerID,
		EventName:         req.EventName,
		RoomID:            req.RoomID,
		EventType:         req.EventType,
		EventStart:        &start,
		EventEnd:          &end,
		ExpectedAttendees: req.ExpectedAttendees,
	}, nil
}

func (s *eventService) validateCandidate(ctx context.Context, event *model.Event, snap model.EventSnapshot) error {
	start := event.EventStart
	if snap.EventStart != nil {
		start = *snap.EventStart
	}
	end := event.EventEnd
	if snap.EventEnd != nil {
		end = *snap.EventEnd
	}
	if !start.Before(end) {
		return apperr.Validation("event start must be before end")
	}
	if snap.RoomID != nil {
		if err := s.ensureHasBooking(ctx, event.OrganizerID, *snap.RoomID, start, end); err != nil {
			return err
		}
		if err := s.ensureNoConflicts(ctx, start, end, *snap.RoomID, event.EventID); err != nil {
			return err
		}
	}
	return nil
}

func (s *eventService) ensureHasBooking(ctx context.Context, organizerID, roomID int64, start, end time.Time) error {
	has, err := s.bookings.UserHasRoomBooked(ctx, organizerID, roomID, start, end)
	if err != nil {
		// An unavailable booking store must not masquerade as "no booking".
		return err
	}
	if !has {
		return apperr.Validation("user %d does not have a booking for this room at this time", organizerID)
	}
	return nil
}

func (s *eventService) ensureNoConflicts(ctx context.Context, start, end time.Time, roomID int64, excludeEventID string) error {
	events, err := s.repo.GetAllByRoom(ctx, roomID)
	if err != nil {
		return err
	}
	intervals := make([]conflict.Interval, 0, len(events))
	for _, e := range events {
		intervals = append(intervals, conflict.Interval{ID: e.EventID, Start: e.EventStart, End: e.EventEnd})
	}
	if conflict.EventConflicts(intervals, start, end, excludeEventID) {
		return apperr.Conflict("this event conflicts with another event in room %d", roomID)
	}
	return nil
}

// toResponse derives the externally visible state from the stored one and
// recomputes the pending-edit flag from a live approval query. When the
// approval store is unavailable the persisted flag is used instead.
func (s *eventService) toResponse(ctx context.Context, event *model.Event) dto.EventResponse {
	state := event.State
	if state == model.StatePlanned {
		now := s.now()
		if now.After(event.EventEnd) {
			state = model.StateCompleted
		} else if now.After(event.EventStart) {
			state = model.StateOngoing
		}
	}

	hasPendingEdit := event.HasPendingEdit
	pending, err := s.approvals.PendingByEvent(ctx, event.EventID)
	if err == nil {
		hasPendingEdit = len(pending) > 0
	} else {
		s.log.Warn().Err(err).Str("event_id", event.EventID).
			Msg("approval store unreachable, using persisted pending-edit flag")
	}

	return dto.EventResponse{
		EventID:           event.EventID,
		State:             state,
		HasPendingEdit:    hasPendingEdit,
		EventName:         event.EventName,
		OrganizerID:       event.OrganizerID,
		RoomID:            event.RoomID,
		EventType:         event.EventType,
		EventStart:        event.EventStart,
		EventEnd:          event.EventEnd,
		ExpectedAttendees: event.ExpectedAttendees,
	}
}

func fullSnapshot(e *model.Event) model.EventSnapshot {
	name := e.EventName
	roomID := e.RoomID
	eventType := e.EventType
	start := e.EventStart
	end := e.EventEnd
	attendees := e.ExpectedAttendees
	return model.EventSnapshot{
		EventID:           e.EventID,
		OrganizerID:       e.OrganizerID,
		EventName:         &name,
		RoomID:            &roomID,
		EventType:         &eventType,
		EventStart:        &start,
		EventEnd:          &end,
		ExpectedAttendees: &attendees,
	}
}
