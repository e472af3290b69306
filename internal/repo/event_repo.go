package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"

	"campusbooker/internal/conflict"
	"campusbooker/internal/model"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrEventConflict = errors.New("event conflicts with another event in this room")
)

type EventRepository interface {
	Create(ctx context.Context, e *model.Event) error
	GetByID(ctx context.Context, id string) (*model.Event, error)
	GetAll(ctx context.Context) ([]model.Event, error)
	GetAllByRoom(ctx context.Context, roomID int64) ([]model.Event, error)
	SetPendingEdit(ctx context.Context, id string, pending bool) error
	// ApplyApproved merges the non-nil snapshot fields onto the stored event,
	// promotes it to planned and clears the pending-edit flag.
	ApplyApproved(ctx context.Context, id string, snap model.EventSnapshot) error
	Delete(ctx context.Context, id string) error
}

type eventRepository struct {
	db  *dbpg.DB
	log *zerolog.Logger
}

func NewEventRepository(db *dbpg.DB, log *zerolog.Logger) (EventRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.Master.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	return &eventRepository{db: db, log: log}, nil
}

// Create inserts the event inside the same per-room critical section the
// booking store uses, re-running the event overlap check under the lock.
func (r *eventRepository) Create(ctx context.Context, e *model.Event) error {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := lockRoom(ctx, tx, e.RoomID); err != nil {
		_ = tx.Rollback()
		return err
	}

	intervals, err := roomEventIntervals(ctx, tx, e.RoomID)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if conflict.EventConflicts(intervals, e.EventStart, e.EventEnd, "") {
		_ = tx.Rollback()
		return ErrEventConflict
	}

	query := `
		INSERT INTO events (event_id, state, has_pending_edit, event_name, organizer_id,
		                    room_id, event_type, event_start, event_end, expected_attendees)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if _, err := tx.ExecContext(ctx, query,
		e.EventID, e.State, e.HasPendingEdit, e.EventName, e.OrganizerID,
		e.RoomID, e.EventType, e.EventStart, e.EventEnd, e.ExpectedAttendees,
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to insert event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	query := `
		SELECT event_id, state, has_pending_edit, event_name, organizer_id,
		       room_id, event_type, event_start, event_end, expected_attendees
		FROM events WHERE event_id = $1
	`
	row := r.db.QueryRowContext(ctx, query, id)

	var e model.Event
	if err := row.Scan(
		&e.EventID, &e.State, &e.HasPendingEdit, &e.EventName, &e.OrganizerID,
		&e.RoomID, &e.EventType, &e.EventStart, &e.EventEnd, &e.ExpectedAttendees,
	); err != nil {
		return nil, ErrEventNotFound
	}
	return &e, nil
}

func (r *eventRepository) GetAll(ctx context.Context) ([]model.Event, error) {
	query := `
		SELECT event_id, state, has_pending_edit, event_name, organizer_id,
		       room_id, event_type, event_start, event_end, expected_attendees
		FROM events
		ORDER BY event_start ASC
	`
	return r.queryEvents(ctx, query)
}

func (r *eventRepository) GetAllByRoom(ctx context.Context, roomID int64) ([]model.Event, error) {
	query := `
		SELECT event_id, state, has_pending_edit, event_name, organizer_id,
		       room_id, event_type, event_start, event_end, expected_attendees
		FROM events
		WHERE room_id = $1
		ORDER BY event_start ASC
	`
	return r.queryEvents(ctx, query, roomID)
}

func (r *eventRepository) queryEvents(ctx context.Context, query string, args ...any) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(
			&e.EventID, &e.State, &e.HasPendingEdit, &e.EventName, &e.OrganizerID,
			&e.RoomID, &e.EventType, &e.EventStart, &e.EventEnd, &e.ExpectedAttendees,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *eventRepository) SetPendingEdit(ctx context.Context, id string, pending bool) error {
	query := `UPDATE events SET has_pending_edit = $2 WHERE event_id = $1 RETURNING event_id`
	var got string
	if err := r.db.QueryRowContext(ctx, query, id, pending).Scan(&got); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEventNotFound
		}
		return fmt.Errorf("failed to set pending edit flag: %w", err)
	}
	return nil
}

func (r *eventRepository) ApplyApproved(ctx context.Context, id string, snap model.EventSnapshot) error {
	query := `
		UPDATE events
		SET state = 'planned',
		    has_pending_edit = FALSE,
		    event_name = COALESCE($2, event_name),
		    room_id = COALESCE($3, room_id),
		    event_type = COALESCE($4, event_type),
		    event_start = COALESCE($5, event_start),
		    event_end = COALESCE($6, event_end),
		    expected_attendees = COALESCE($7, expected_attendees)
		WHERE event_id = $1
		RETURNING event_id
	`
	var got string
	if err := r.db.QueryRowContext(ctx, query,
		id, snap.EventName, snap.RoomID, snap.EventType, snap.EventStart, snap.EventEnd, snap.ExpectedAttendees,
	).Scan(&got); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEventNotFound
		}
		return fmt.Errorf("failed to apply approved event: %w", err)
	}
	return nil
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE event_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrEventNotFound
	}
	return nil
}

func roomEventIntervals(ctx context.Context, tx *sql.Tx, roomID int64) ([]conflict.Interval, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT event_id, event_start, event_end FROM events WHERE room_id = $1`, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to load room events: %w", err)
	}
	defer rows.Close()

	var intervals []conflict.Interval
	for rows.Next() {
		var id string
		var start, end time.Time
		if err := rows.Scan(&id, &start, &end); err != nil {
			return nil, fmt.Errorf("failed to scan event interval: %w", err)
		}
		intervals = append(intervals, conflict.Interval{ID: id, Start: start, End: end})
	}
	return intervals, rows.Err()
}
