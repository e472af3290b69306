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
	ErrBookingNotFound = errors.New("booking not found")
	ErrBookingConflict = errors.New("room is not available for the requested time slot")
)

type BookingRepository interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	GetAll(ctx context.Context) ([]model.Booking, error)
	GetAllByOwner(ctx context.Context, ownerID int64) ([]model.Booking, error)
	Update(ctx context.Context, b *model.Booking) error
	Delete(ctx context.Context, id string) error
}

type bookingRepository struct {
	db  *dbpg.DB
	log *zerolog.Logger
}

func NewBookingRepository(db *dbpg.DB, log *zerolog.Logger) (BookingRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.Master.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	return &bookingRepository{db: db, log: log}, nil
}

// Create inserts the booking inside a per-room critical section. The
// advisory lock serializes concurrent creations on the same room so two
// overlapping requests cannot both pass the conflict check.
func (r *bookingRepository) Create(ctx context.Context, b *model.Booking) error {
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

	if err := lockRoom(ctx, tx, b.RoomID); err != nil {
		_ = tx.Rollback()
		return err
	}

	intervals, err := roomBookingIntervals(ctx, tx, b.RoomID)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if conflict.BookingConflicts(intervals, b.StartTime, b.EndTime, "") {
		_ = tx.Rollback()
		return ErrBookingConflict
	}

	query := `
		INSERT INTO bookings (id, owner_id, room_id, start_time, end_time, created_at, purpose)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := tx.ExecContext(ctx, query,
		b.ID, b.OwnerID, b.RoomID, b.StartTime, b.EndTime, b.CreatedAt, b.Purpose,
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *bookingRepository) Update(ctx context.Context, b *model.Booking) error {
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

	if err := lockRoom(ctx, tx, b.RoomID); err != nil {
		_ = tx.Rollback()
		return err
	}

	intervals, err := roomBookingIntervals(ctx, tx, b.RoomID)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if conflict.BookingConflicts(intervals, b.StartTime, b.EndTime, b.ID) {
		_ = tx.Rollback()
		return ErrBookingConflict
	}

	query := `
		UPDATE bookings
		SET owner_id = $2, room_id = $3, start_time = $4, end_time = $5, purpose = $6
		WHERE id = $1
		RETURNING id
	`
	var id string
	if err := tx.QueryRowContext(ctx, query,
		b.ID, b.OwnerID, b.RoomID, b.StartTime, b.EndTime, b.Purpose,
	).Scan(&id); err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBookingNotFound
		}
		return fmt.Errorf("failed to update booking: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	query := `
		SELECT id, owner_id, room_id, start_time, end_time, created_at, purpose
		FROM bookings WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, query, id)

	var b model.Booking
	if err := row.Scan(
		&b.ID, &b.OwnerID, &b.RoomID, &b.StartTime, &b.EndTime, &b.CreatedAt, &b.Purpose,
	); err != nil {
		return nil, ErrBookingNotFound
	}
	return &b, nil
}

func (r *bookingRepository) GetAll(ctx context.Context) ([]model.Booking, error) {
	query := `
		SELECT id, owner_id, room_id, start_time, end_time, created_at, purpose
		FROM bookings
		ORDER BY created_at DESC
	`
	return r.queryBookings(ctx, query)
}

func (r *bookingRepository) GetAllByOwner(ctx context.Context, ownerID int64) ([]model.Booking, error) {
	query := `
		SELECT id, owner_id, room_id, start_time, end_time, created_at, purpose
		FROM bookings
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`
	return r.queryBookings(ctx, query, ownerID)
}

func (r *bookingRepository) queryBookings(ctx context.Context, query string, args ...any) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings: %w", err)
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(
			&b.ID, &b.OwnerID, &b.RoomID, &b.StartTime, &b.EndTime, &b.CreatedAt, &b.Purpose,
		); err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (r *bookingRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

func lockRoom(ctx context.Context, tx *sql.Tx, roomID int64) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, roomID); err != nil {
		return fmt.Errorf("failed to lock room %d: %w", roomID, err)
	}
	return nil
}

func roomBookingIntervals(ctx context.Context, tx *sql.Tx, roomID int64) ([]conflict.Interval, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, start_time, end_time FROM bookings WHERE room_id = $1`, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to load room bookings: %w", err)
	}
	defer rows.Close()

	var intervals []conflict.Interval
	for rows.Next() {
		var id string
		var start, end time.Time
		if err := rows.Scan(&id, &start, &end); err != nil {
			return nil, fmt.Errorf("failed to scan booking interval: %w", err)
		}
		intervals = append(intervals, conflict.Interval{ID: id, Start: start, End: end})
	}
	return intervals, rows.Err()
}
