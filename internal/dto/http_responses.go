package dto

import (
	"errors"
	"time"

	"github.com/wb-go/wbf/ginext"

	"campusbooker/internal/apperr"
	"campusbooker/internal/model"
)

const (
	FieldIncorrect     = "FIELD_INCORRECT"
	ValidationFailed   = "VALIDATION_FAILED"
	Unauthorized       = "UNAUTHORIZED"
	RoomTimeConflict   = "ROOM_TIME_CONFLICT"
	NotFound           = "NOT_FOUND"
	ServiceUnavailable = "SERVICE_UNAVAILABLE"
	InternalError      = "Service is currently unavailable. Please try again later."
)

type Response struct {
	Status string `json:"status"`
	Error  *Error `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

type Error struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
}

type BookingCreateRequest struct {
	OwnerID   int64     `json:"owner_id" validate:"required,gt=0"`
	RoomID    int64     `json:"room_id" validate:"required,gt=0"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
	Purpose   string    `json:"purpose"`

	// Carried into the booking-confirmed notification.
	RoomName string `json:"room_name" validate:"required"`
	UserName string `json:"user_name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
}

type BookingUpdateRequest struct {
	UserID    int64      `json:"user_id" validate:"required,gt=0"`
	RoomID    *int64     `json:"room_id,omitempty"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Purpose   *string    `json:"purpose,omitempty"`
}

type BookingResponse struct {
	ID        string    `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	RoomID    int64     `json:"room_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	CreatedAt time.Time `json:"created_at"`
	Purpose   string    `json:"purpose,omitempty"`
}

// BookingConfirmedMessage is the fire-and-forget notification emitted after
// a booking commit, consumed by the mailer worker.
type BookingConfirmedMessage struct {
	RoomID    int64     `json:"room_id"`
	RoomName  string    `json:"room_name"`
	UserName  string    `json:"user_name"`
	Email     string    `json:"email"`
	StartTime time.Time `json:"start_time"`
}

type EventCreateRequest struct {
	EventName         string    `json:"event_name" validate:"required"`
	OrganizerID       int64     `json:"organizer_id" validate:"required,gt=0"`
	RoomID            int64     `json:"room_id" validate:"required,gt=0"`
	EventType         string    `json:"event_type" validate:"required"`
	EventStart        time.Time `json:"event_start" validate:"required"`
	EventEnd          time.Time `json:"event_end" validate:"required"`
	ExpectedAttendees int       `json:"expected_attendees" validate:"required,gt=0"`
}

type EventUpdateRequest struct {
	UserID            int64      `json:"user_id" validate:"required,gt=0"`
	EventName         *string    `json:"event_name,omitempty"`
	RoomID            *int64     `json:"room_id,omitempty"`
	EventType         *string    `json:"event_type,omitempty"`
	EventStart        *time.Time `json:"event_start,omitempty"`
	EventEnd          *time.Time `json:"event_end,omitempty"`
	ExpectedAttendees *int       `json:"expected_attendees,omitempty"`
}

type EventResponse struct {
	EventID           string    `json:"event_id"`
	State             string    `json:"state"`
	HasPendingEdit    bool      `json:"has_pending_edit"`
	EventName         string    `json:"event_name"`
	OrganizerID       int64     `json:"organizer_id"`
	RoomID            int64     `json:"room_id"`
	EventType         string    `json:"event_type"`
	EventStart        time.Time `json:"event_start"`
	EventEnd          time.Time `json:"event_end"`
	ExpectedAttendees int       `json:"expected_attendees"`
}

type ApprovalCreateRequest struct {
	EventID    string              `json:"event_id" validate:"required"`
	Type       string              `json:"type" validate:"required,oneof=create update"`
	PendingObj model.EventSnapshot `json:"pending_obj"`
	Action     string              `json:"action" validate:"required,oneof=pending approve deny"`
}

type ApprovalDecisionRequest struct {
	Action string `json:"action" validate:"required,oneof=approve deny"`
}

type ApprovalResponse struct {
	ApprovalID string              `json:"approval_id"`
	EventID    string              `json:"event_id"`
	Type       string              `json:"type"`
	PendingObj model.EventSnapshot `json:"pending_obj"`
	Action     string              `json:"action"`
}

func BadResponseError(c *ginext.Context, code, desc string) {
	c.JSON(400, Response{
		Status: "error",
		Error:  &Error{Code: code, Desc: desc},
	})
}

func InternalServerError(c *ginext.Context) {
	c.JSON(500, Response{
		Status: "error",
		Error:  &Error{Code: ServiceUnavailable, Desc: InternalError},
	})
}

func SuccessResponse(c *ginext.Context, data any) {
	c.JSON(200, Response{Status: "ok", Data: data})
}

func SuccessCreatedResponse(c *ginext.Context, data any) {
	c.JSON(201, Response{Status: "ok", Data: data})
}

func NoContentResponse(c *ginext.Context) {
	c.Status(204)
}

// RespondError maps the domain error taxonomy to the HTTP boundary.
func RespondError(c *ginext.Context, err error) {
	var status int
	var code string
	switch {
	case errors.Is(err, apperr.ErrValidation):
		status, code = 400, ValidationFailed
	case errors.Is(err, apperr.ErrUnauthorized):
		status, code = 401, Unauthorized
	case errors.Is(err, apperr.ErrNotFound):
		status, code = 404, NotFound
	case errors.Is(err, apperr.ErrConflict):
		status, code = 409, RoomTimeConflict
	case errors.Is(err, apperr.ErrUnavailable):
		status, code = 503, ServiceUnavailable
	default:
		InternalServerError(c)
		return
	}
	c.JSON(status, Response{
		Status: "error",
		Error:  &Error{Code: code, Desc: err.Error()},
	})
}
