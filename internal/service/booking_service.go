package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"campusbooker/internal/apperr"
	"campusbooker/internal/client"
	"campusbooker/internal/dto"
	"campusbooker/internal/model"
	"campusbooker/internal/repo"
	"campusbooker/pkg/validator"
)

// Publisher is satisfied by rabbit.Client.
type Publisher interface {
	Publish(message []byte, delaySeconds int) error
}

type BookingService interface {
	Create(ctx context.Context, req dto.BookingCreateRequest) (*dto.BookingResponse, error)
	Update(ctx context.Context, bookingID string, req dto.BookingUpdateRequest) (*dto.BookingResponse, error)
	Delete(ctx context.Context, bookingID string) error
	GetByID(ctx context.Context, bookingID string) (*dto.BookingResponse, error)
	GetAll(ctx context.Context, ownerID *int64) ([]dto.BookingResponse, error)
	// UserHasRoomBooked answers whether userID owns a booking covering
	// [start, end] on roomID.
	UserHasRoomBooked(ctx context.Context, userID, roomID int64, start, end time.Time) (bool, error)
}

type bookingService struct {
	repo      repo.BookingRepository
	users     client.Users
	rooms     client.Rooms
	publisher Publisher
	log       *zerolog.Logger
	now       func() time.Time
}

func NewBookingService(r repo.BookingRepository, users client.Users, rooms client.Rooms, publisher Publisher, log *zerolog.Logger) BookingService {
	return &bookingService{
		repo:      r,
		users:     users,
		rooms:     rooms,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

func (s *bookingService) Create(ctx context.Context, req dto.BookingCreateRequest) (*dto.BookingResponse, error) {
	if verr := validator.Validate(ctx, req); verr != nil {
		return nil, apperr.Validation("%v", verr)
	}

	if _, err := s.users.GetUser(ctx, req.OwnerID); err != nil {
		return nil, err
	}
	if _, err := s.rooms.GetRoom(ctx, req.RoomID); err != nil {
		return nil, err
	}
	if err := s.validateTimes(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	booking := &model.Booking{
		ID:        uuid.NewString(),
		OwnerID:   req.OwnerID,
		RoomID:    req.RoomID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		CreatedAt: s.now(),
		Purpose:   req.Purpose,
	}

	if err := s.repo.Create(ctx, booking); err != nil {
		if errors.Is(err, repo.ErrBookingConflict) {
			return nil, apperr.Conflict("room %d is not available for the requested time slot", req.RoomID)
		}
		s.log.Error().Err(err).Msg("failed to create booking in DB")
		return nil, err
	}
	s.log.Info().Str("booking_id", booking.ID).Int64("room_id", booking.RoomID).Msg("booking created")

	// Fire-and-forget: a publish failure never rolls the booking back.
	msg := dto.BookingConfirmedMessage{
		RoomID:    booking.RoomID,
		RoomName:  req.RoomName,
		UserName:  req.UserName,
		Email:     req.Email,
		StartTime: booking.StartTime,
	}
	if payload, err := json.Marshal(msg); err != nil {
		s.log.Error().Err(err).Msg("failed to marshal booking-confirmed message")
	} else if err := s.publisher.Publish(payload, 0); err != nil {
		s.log.Error().Err(err).Msg("failed to publish booking-confirmed message")
	}

	resp := toBookingResponse(booking)
	return &resp, nil
}

func (s *bookingService) Update(ctx context.Context, bookingID string, req dto.BookingUpdateRequest) (*dto.BookingResponse, error) {
	if verr := validator.Validate(ctx, req); verr != nil {
		return nil, apperr.Validation("%v", verr)
	}

	booking, err := s.getStored(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureOwnerOrStaff(ctx, booking, req.UserID); err != nil {
		return nil, err
	}

	start := booking.StartTime
	if req.StartTime != nil {
		start = *req.StartTime
	}
	end := booking.EndTime
	if req.EndTime != nil {
		end = *req.EndTime
	}
	if req.StartTime != nil || req.EndTime != nil {
		if err := s.validateTimes(start, end); err != nil {
			return nil, err
		}
	}
	if req.RoomID != nil {
		if _, err := s.rooms.GetRoom(ctx, *req.RoomID); err != nil {
			return nil, err
		}
		booking.RoomID = *req.RoomID
	}

	booking.StartTime = start
	booking.EndTime = end
	if req.Purpose != nil {
		booking.Purpose = *req.Purpose
	}

	if err := s.repo.Update(ctx, booking); err != nil {
		switch {
		case errors.Is(err, repo.ErrBookingConflict):
			return nil, apperr.Conflict("room %d is not available for the requested time slot", booking.RoomID)
		case errors.Is(err, repo.ErrBookingNotFound):
			return nil, apperr.NotFound("booking with id %s does not exist", bookingID)
		default:
			return nil, err
		}
	}

	resp := toBookingResponse(booking)
	return &resp, nil
}

func (s *bookingService) Delete(ctx context.Context, bookingID string) error {
	if err := s.repo.Delete(ctx, bookingID); err != nil {
		if errors.Is(err, repo.ErrBookingNotFound) {
			return apperr.NotFound("booking with id %s does not exist", bookingID)
		}
		return err
	}
	return nil
}

func (s *bookingService) GetByID(ctx context.Context, bookingID string) (*dto.BookingResponse, error) {
	booking, err := s.getStored(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	resp := toBookingResponse(booking)
	return &resp, nil
}

func (s *bookingService) GetAll(ctx context.Context, ownerID *int64) ([]dto.BookingResponse, error) {
	var bookings []model.Booking
	var err error
	if ownerID != nil {
		bookings, err = s.repo.GetAllByOwner(ctx, *ownerID)
	} else {
		bookings, err = s.repo.GetAll(ctx)
	}
	if err != nil {
		return nil, err
	}

	resp := make([]dto.BookingResponse, 0, len(bookings))
	for i := range bookings {
		resp = append(resp, toBookingResponse(&bookings[i]))
	}
	return resp, nil
}

func (s *bookingService) UserHasRoomBooked(ctx context.Context, userID, roomID int64, start, end time.Time) (bool, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		if errors.Is(err, apperr.ErrUnavailable) {
			return false, err
		}
		return false, nil
	}
	if _, err := s.rooms.GetRoom(ctx, roomID); err != nil {
		if errors.Is(err, apperr.ErrUnavailable) {
			return false, err
		}
		return false, nil
	}

	bookings, err := s.repo.GetAllByOwner(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, b := range bookings {
		if b.RoomID == roomID && !b.StartTime.After(start) && !b.EndTime.Before(end) {
			return true, nil
		}
	}
	return false, nil
}

func (s *bookingService) getStored(ctx context.Context, bookingID string) (*model.Booking, error) {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repo.ErrBookingNotFound) {
			return nil, apperr.NotFound("booking with id %s does not exist", bookingID)
		}
		return nil, err
	}
	return booking, nil
}

func (s *bookingService) ensureOwnerOrStaff(ctx context.Context, booking *model.Booking, userID int64) error {
	if booking.OwnerID == userID {
		return nil
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil || user.Role != client.RoleStaff {
		return apperr.Unauthorized("user %d is not authorized to update booking %s", userID, booking.ID)
	}
	return nil
}

func (s *bookingService) validateTimes(start, end time.Time) error {
	if !start.Before(end) {
		return apperr.Validation("start time must be before end time")
	}
	if start.Before(s.now()) {
		return apperr.Validation("start time cannot be in the past")
	}
	return nil
}

func toBookingResponse(b *model.Booking) dto.BookingResponse {
	return dto.BookingResponse{
		ID:        b.ID,
		OwnerID:   b.OwnerID,
		RoomID:    b.RoomID,
		StartTime: b.StartTime,
		EndTime:   b.EndTime,
		CreatedAt: b.CreatedAt,
		Purpose:   b.Purpose,
	}
}
