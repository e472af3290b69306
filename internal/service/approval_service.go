package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"campusbooker/internal/apperr"
	"campusbooker/internal/client"
	"campusbooker/internal/dto"
	"campusbooker/internal/model"
	"campusbooker/internal/repo"
	"campusbooker/pkg/validator"
)

type ApprovalService interface {
	Create(ctx context.Context, req dto.ApprovalCreateRequest) (*dto.ApprovalResponse, error)
	GetByID(ctx context.Context, approvalID string) (*dto.ApprovalResponse, error)
	GetAll(ctx context.Context) ([]dto.ApprovalResponse, error)
	GetAllByAction(ctx context.Context, action string) ([]dto.ApprovalResponse, error)
	GetAllByActionAndEvent(ctx context.Context, action, eventID string) ([]dto.ApprovalResponse, error)
	// Decide records a staff decision and pushes it into the event
	// service's approval-callback path.
	Decide(ctx context.Context, userID int64, approvalID string, req dto.ApprovalDecisionRequest) (*dto.ApprovalResponse, error)
	// Withdraw removes every pending approval for the approval's event.
	// Only the event's organizer may withdraw; the event itself is left
	// untouched.
	Withdraw(ctx context.Context, userID int64, approvalID string) error
}

type approvalService struct {
	repo   repo.ApprovalRepository
	users  client.Users
	events client.Events
	log    *zerolog.Logger
}

func NewApprovalService(r repo.ApprovalRepository, users client.Users, events client.Events, log *zerolog.Logger) ApprovalService {
	return &approvalService{
		repo:   r,
		users:  users,
		events: events,
		log:    log,
	}
}

func (s *approvalService) Create(ctx context.Context, req dto.ApprovalCreateRequest) (*dto.ApprovalResponse, error) {
	if verr := validator.Validate(ctx, req); verr != nil {
		return nil, apperr.Validation("%v", verr)
	}
	if req.EventID != req.PendingObj.EventID {
		return nil, apperr.Validation("event ids don't match")
	}

	approval := &model.Approval{
		ApprovalID: uuid.NewString(),
		EventID:    req.EventID,
		Type:       req.Type,
		PendingObj: req.PendingObj,
		Action:     req.Action,
	}
	if err := s.repo.Create(ctx, approval); err != nil {
		s.log.Error().Err(err).Msg("failed to create approval in DB")
		return nil, err
	}

	s.log.Info().
		Str("approval_id", approval.ApprovalID).
		Str("event_id", approval.EventID).
		Str("type", approval.Type).
		Msg("approval created")

	resp := toApprovalResponse(approval)
	return &resp, nil
}

func (s *approvalService) GetByID(ctx context.Context, approvalID string) (*dto.ApprovalResponse, error) {
	approval, err := s.getStored(ctx, approvalID)
	if err != nil {
		return nil, err
	}
	resp := toApprovalResponse(approval)
	return &resp, nil
}

func (s *approvalService) GetAll(ctx context.Context) ([]dto.ApprovalResponse, error) {
	approvals, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return toApprovalResponses(approvals), nil
}

func (s *approvalService) GetAllByAction(ctx context.Context, action string) ([]dto.ApprovalResponse, error) {
	approvals, err := s.repo.GetAllByAction(ctx, action)
	if err != nil {
		return nil, err
	}
	return toApprovalResponses(approvals), nil
}

func (s *approvalService) GetAllByActionAndEvent(ctx context.Context, action, eventID string) ([]dto.ApprovalResponse, error) {
	approvals, err := s.repo.GetAllByActionAndEvent(ctx, action, eventID)
	if err != nil {
		return nil, err
	}
	return toApprovalResponses(approvals), nil
}

func (s *approvalService) Decide(ctx context.Context, userID int64, approvalID string, req dto.ApprovalDecisionRequest) (*dto.ApprovalResponse, error) {
	if verr := validator.Validate(ctx, req); verr != nil {
		return nil, apperr.Validation("%v", verr)
	}
	if req.Action != model.ActionApprove && req.Action != model.ActionDeny {
		return nil, apperr.Validation("invalid action request")
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Role != client.RoleStaff {
		return nil, apperr.Unauthorized("only staff can decide an approval")
	}

	approval, err := s.getStored(ctx, approvalID)
	if err != nil {
		return nil, err
	}
	if approval.Action != model.ActionPending {
		return nil, apperr.Validation("approval has already been decided")
	}

	if req.Action == model.ActionApprove {
		err = s.events.Approve(ctx, approval.EventID, approval.PendingObj)
	} else {
		err = s.events.Reject(ctx, approval.EventID, approval.PendingObj)
	}
	if err != nil {
		if !errors.Is(err, apperr.ErrUnavailable) {
			return nil, err
		}
		// The decision is still recorded; the event service will be out of
		// step until someone re-drives it. There is no cross-store rollback.
		s.log.Warn().Err(err).
			Str("approval_id", approvalID).
			Str("event_id", approval.EventID).
			Msg("event service unreachable while applying decision")
	}

	if err := s.repo.SetAction(ctx, approvalID, req.Action); err != nil {
		return nil, err
	}
	approval.Action = req.Action

	s.log.Info().
		Str("approval_id", approvalID).
		Str("event_id", approval.EventID).
		Str("action", req.Action).
		Int64("staff_id", userID).
		Msg("approval decided")

	resp := toApprovalResponse(approval)
	return &resp, nil
}

func (s *approvalService) Withdraw(ctx context.Context, userID int64, approvalID string) error {
	approval, err := s.getStored(ctx, approvalID)
	if err != nil {
		return err
	}
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return err
	}

	pending, err := s.repo.GetAllByActionAndEvent(ctx, model.ActionPending, approval.EventID)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return apperr.NotFound("no pending approvals found for event %s", approval.EventID)
	}

	event, err := s.events.Get(ctx, approval.EventID)
	if err != nil || event == nil {
		s.log.Warn().Err(err).Str("event_id", approval.EventID).Msg("failed to fetch event for withdrawal")
		return apperr.NotFound("event with id %s does not exist", approval.EventID)
	}
	if event.OrganizerID != userID {
		return apperr.Validation("only organizer can withdraw an approval")
	}

	n, err := s.repo.DeletePendingByEvent(ctx, approval.EventID)
	if err != nil {
		return err
	}
	s.log.Info().
		Str("event_id", approval.EventID).
		Int64("removed", n).
		Msg("pending approvals withdrawn")
	return nil
}

func (s *approvalService) getStored(ctx context.Context, approvalID string) (*model.Approval, error) {
	approval, err := s.repo.GetByID(ctx, approvalID)
	if err != nil {
		if errors.Is(err, repo.ErrApprovalNotFound) {
			return nil, apperr.NotFound("approval with id %s does not exist", approvalID)
		}
		return nil, err
	}
	return approval, nil
}

func toApprovalResponse(a *model.Approval) dto.ApprovalResponse {
	return dto.ApprovalResponse{
		ApprovalID: a.ApprovalID,
		EventID:    a.EventID,
		Type:       a.Type,
		PendingObj: a.PendingObj,
		Action:     a.Action,
	}
}

func toApprovalResponses(approvals []model.Approval) []dto.ApprovalResponse {
	resp := make([]dto.ApprovalResponse, 0, len(approvals))
	for i := range approvals {
		resp = append(resp, toApprovalResponse(&approvals[i]))
	}
	return resp
}
