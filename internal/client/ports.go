// Package client defines the ports to sibling services and their HTTP
// adapters. Services depend on the interfaces; tests inject doubles.
package client

import (
	"context"
	"time"

	"campusbooker/internal/model"
)

type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type Room struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

const RoleStaff = "staff"

type Users interface {
	GetUser(ctx context.Context, id int64) (*User, error)
}

type Rooms interface {
	GetRoom(ctx context.Context, id int64) (*Room, error)
}

type Bookings interface {
	// UserHasRoomBooked answers whether userID holds a booking covering
	// [start, end] on roomID.
	UserHasRoomBooked(ctx context.Context, userID, roomID int64, start, end time.Time) (bool, error)
}

type Approvals interface {
	Create(ctx context.Context, approval model.Approval) error
	PendingByEvent(ctx context.Context, eventID string) ([]model.Approval, error)
}

type Events interface {
	Get(ctx context.Context, eventID string) (*model.Event, error)
	// Approve and Reject push a staff decision back into the event
	// service's approval-callback path.
	Approve(ctx context.Context, eventID string, snap model.EventSnapshot) error
	Reject(ctx context.Context, eventID string, snap model.EventSnapshot) error
}
