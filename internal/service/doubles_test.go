package service

import (
	"context"
	"sort"
	"time"

	"campusbooker/internal/apperr"
	"campusbooker/internal/client"
	"campusbooker/internal/conflict"
	"campusbooker/internal/model"
	"campusbooker/internal/repo"
)

// In-memory stores mirroring the SQL repositories, including the per-room
// conflict check the real Create/Update transactions perform.

type memBookingRepo struct {
	bookings map[string]model.Booking
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{bookings: make(map[string]model.Booking)}
}

func (m *memBookingRepo) roomIntervals(roomID int64) []conflict.Interval {
	var out []conflict.Interval
	for _, b := range m.bookings {
		if b.RoomID == roomID {
			out = append(out, conflict.Interval{ID: b.ID, Start: b.StartTime, End: b.EndTime})
		}
	}
	return out
}

func (m *memBookingRepo) Create(_ context.Context, b *model.Booking) error {
	if conflict.BookingConflicts(m.roomIntervals(b.RoomID), b.StartTime, b.EndTime, "") {
		return repo.ErrBookingConflict
	}
	m.bookings[b.ID] = *b
	return nil
}

func (m *memBookingRepo) GetByID(_ context.Context, id string) (*model.Booking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return nil, repo.ErrBookingNotFound
	}
	return &b, nil
}

func (m *memBookingRepo) GetAll(_ context.Context) ([]model.Booking, error) {
	out := make([]model.Booking, 0, len(m.bookings))
	for _, b := range m.bookings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memBookingRepo) GetAllByOwner(_ context.Context, ownerID int64) ([]model.Booking, error) {
	var out []model.Booking
	for _, b := range m.bookings {
		if b.OwnerID == ownerID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memBookingRepo) Update(_ context.Context, b *model.Booking) error {
	if _, ok := m.bookings[b.ID]; !ok {
		return repo.ErrBookingNotFound
	}
	if conflict.BookingConflicts(m.roomIntervals(b.RoomID), b.StartTime, b.EndTime, b.ID) {
		return repo.ErrBookingConflict
	}
	m.bookings[b.ID] = *b
	return nil
}

func (m *memBookingRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.bookings[id]; !ok {
		return repo.ErrBookingNotFound
	}
	delete(m.bookings, id)
	return nil
}

type memEventRepo struct {
	events map[string]model.Event
}

func newMemEventRepo() *memEventRepo {
	return &memEventRepo{events: make(map[string]model.Event)}
}

func (m *memEventRepo) roomIntervals(roomID int64) []conflict.Interval {
	var out []conflict.Interval
	for _, e := range m.events {
		if e.RoomID == roomID {
			out = append(out, conflict.Interval{ID: e.EventID, Start: e.EventStart, End: e.EventEnd})
		}
	}
	return out
}

func (m *memEventRepo) Create(_ context.Context, e *model.Event) error {
	if conflict.EventConflicts(m.roomIntervals(e.RoomID), e.EventStart, e.EventEnd, "") {
		return repo.ErrEventConflict
	}
	m.events[e.EventID] = *e
	return nil
}

func (m *memEventRepo) GetByID(_ context.Context, id string) (*model.Event, error) {
	e, ok := m.events[id]
	if !ok {
		return nil, repo.ErrEventNotFound
	}
	return &e, nil
}

func (m *memEventRepo) GetAll(_ context.Context) ([]model.Event, error) {
	out := make([]model.Event, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventID < out[j].EventID })
	return out, nil
}

func (m *memEventRepo) GetAllByRoom(_ context.Context, roomID int64) ([]model.Event, error) {
	var out []model.Event
	for _, e := range m.events {
		if e.RoomID == roomID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memEventRepo) SetPendingEdit(_ context.Context, id string, pending bool) error {
	e, ok := m.events[id]
	if !ok {
		return repo.ErrEventNotFound
	}
	e.HasPendingEdit = pending
	m.events[id] = e
	return nil
}

func (m *memEventRepo) ApplyApproved(_ context.Context, id string, snap model.EventSnapshot) error {
	e, ok := m.events[id]
	if !ok {
		return repo.ErrEventNotFound
	}
	e.State = model.StatePlanned
	e.HasPendingEdit = false
	if snap.EventName != nil {
		e.EventName = *snap.EventName
	}
	if snap.RoomID != nil {
		e.RoomID = *snap.RoomID
	}
	if snap.EventType != nil {
		e.EventType = *snap.EventType
	}
	if snap.EventStart != nil {
		e.EventStart = *snap.EventStart
	}
	if snap.EventEnd != nil {
		e.EventEnd = *snap.EventEnd
	}
	if snap.ExpectedAttendees != nil {
		e.ExpectedAttendees = *snap.ExpectedAttendees
	}
	m.events[id] = e
	return nil
}

func (m *memEventRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.events[id]; !ok {
		return repo.ErrEventNotFound
	}
	delete(m.events, id)
	return nil
}

type memApprovalRepo struct {
	approvals map[string]model.Approval
}

func newMemApprovalRepo() *memApprovalRepo {
	return &memApprovalRepo{approvals: make(map[string]model.Approval)}
}

func (m *memApprovalRepo) Create(_ context.Context, a *model.Approval) error {
	m.approvals[a.ApprovalID] = *a
	return nil
}

func (m *memApprovalRepo) GetByID(_ context.Context, id string) (*model.Approval, error) {
	a, ok := m.approvals[id]
	if !ok {
		return nil, repo.ErrApprovalNotFound
	}
	return &a, nil
}

func (m *memApprovalRepo) GetAll(_ context.Context) ([]model.Approval, error) {
	out := make([]model.Approval, 0, len(m.approvals))
	for _, a := range m.approvals {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ApprovalID < out[j].ApprovalID })
	return out, nil
}

func (m *memApprovalRepo) GetAllByAction(_ context.Context, action string) ([]model.Approval, error) {
	var out []model.Approval
	for _, a := range m.approvals {
		if a.Action == action {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memApprovalRepo) GetAllByActionAndEvent(_ context.Context, action, eventID string) ([]model.Approval, error) {
	var out []model.Approval
	for _, a := range m.approvals {
		if a.Action == action && a.EventID == eventID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memApprovalRepo) SetAction(_ context.Context, id, action string) error {
	a, ok := m.approvals[id]
	if !ok {
		return repo.ErrApprovalNotFound
	}
	a.Action = action
	m.approvals[id] = a
	return nil
}

func (m *memApprovalRepo) DeletePendingByEvent(_ context.Context, eventID string) (int64, error) {
	var n int64
	for id, a := range m.approvals {
		if a.EventID == eventID && a.Action == model.ActionPending {
			delete(m.approvals, id)
			n++
		}
	}
	return n, nil
}

// Collaborator port doubles.

func errNotFoundUser(id int64) error {
	return apperr.NotFound("user with id %d does not exist", id)
}

func errNotFoundRoom(id int64) error {
	return apperr.NotFound("room with id %d does not exist", id)
}

type stubUsers struct {
	users map[int64]*client.User
	err   error
}

func (s *stubUsers) GetUser(_ context.Context, id int64) (*client.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, errNotFoundUser(id)
	}
	return u, nil
}

type stubRooms struct {
	rooms map[int64]*client.Room
	err   error
}

func (s *stubRooms) GetRoom(_ context.Context, id int64) (*client.Room, error) {
	if s.err != nil {
		return nil, s.err
	}
	r, ok := s.rooms[id]
	if !ok {
		return nil, errNotFoundRoom(id)
	}
	return r, nil
}

type stubBookingsPort struct {
	has bool
	err error
}

func (s *stubBookingsPort) UserHasRoomBooked(context.Context, int64, int64, time.Time, time.Time) (bool, error) {
	return s.has, s.err
}

type stubApprovalsPort struct {
	created    []model.Approval
	createErr  error
	pending    map[string][]model.Approval
	pendingErr error
}

func (s *stubApprovalsPort) Create(_ context.Context, a model.Approval) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, a)
	return nil
}

func (s *stubApprovalsPort) PendingByEvent(_ context.Context, eventID string) ([]model.Approval, error) {
	if s.pendingErr != nil {
		return nil, s.pendingErr
	}
	return s.pending[eventID], nil
}

type stubEventsPort struct {
	event     *model.Event
	getErr    error
	decideErr error

	approved []string
	rejected []string
}

func (s *stubEventsPort) Get(context.Context, string) (*model.Event, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.event, nil
}

func (s *stubEventsPort) Approve(_ context.Context, eventID string, _ model.EventSnapshot) error {
	if s.decideErr != nil {
		return s.decideErr
	}
	s.approved = append(s.approved, eventID)
	return nil
}

func (s *stubEventsPort) Reject(_ context.Context, eventID string, _ model.EventSnapshot) error {
	if s.decideErr != nil {
		return s.decideErr
	}
	s.rejected = append(s.rejected, eventID)
	return nil
}

type capturePublisher struct {
	messages [][]byte
	err      error
}

func (p *capturePublisher) Publish(message []byte, _ int) error {
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, message)
	return nil
}
