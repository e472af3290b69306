package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"campusbooker/internal/apperr"
	"campusbooker/internal/dto"
	"campusbooker/internal/model"
	"campusbooker/pkg/resilience"
)

const requestTimeout = 5 * time.Second

// doJSON performs one HTTP round trip against a sibling service and unwraps
// its {status, error, data} envelope. Definitive business rejections come
// back as resilience.Permanent so the wrapper neither retries them nor
// counts them against the breaker.
func doJSON[T any](ctx context.Context, hc *http.Client, method, rawURL string, body any) (T, error) {
	var zero T

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return zero, resilience.Permanent(fmt.Errorf("marshal request body: %w", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return zero, resilience.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return zero, fmt.Errorf("%s %s: %w", method, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return zero, nil
	}

	var envelope struct {
		Status string          `json:"status"`
		Error  *dto.Error      `json:"error,omitempty"`
		Data   json.RawMessage `json:"data,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		if resp.StatusCode >= 500 {
			return zero, fmt.Errorf("%s %s: status %d", method, rawURL, resp.StatusCode)
		}
		return zero, resilience.Permanent(fmt.Errorf("decode response: %w", err))
	}

	if resp.StatusCode >= 400 {
		desc := http.StatusText(resp.StatusCode)
		if envelope.Error != nil {
			desc = envelope.Error.Desc
		}
		switch resp.StatusCode {
		case http.StatusBadRequest:
			return zero, resilience.Permanent(apperr.Validation("%s", desc))
		case http.StatusUnauthorized:
			return zero, resilience.Permanent(apperr.Unauthorized("%s", desc))
		case http.StatusNotFound:
			return zero, resilience.Permanent(apperr.NotFound("%s", desc))
		case http.StatusConflict:
			return zero, resilience.Permanent(apperr.Conflict("%s", desc))
		default:
			return zero, fmt.Errorf("%s %s: status %d: %s", method, rawURL, resp.StatusCode, desc)
		}
	}

	var out T
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, &out); err != nil {
			return zero, resilience.Permanent(fmt.Errorf("decode response data: %w", err))
		}
	}
	return out, nil
}

type UsersHTTP struct {
	base string
	hc   *http.Client
	call *resilience.Caller[*User]
}

func NewUsersHTTP(base string, cfg resilience.Config, log *zerolog.Logger) *UsersHTTP {
	return &UsersHTTP{
		base: base,
		hc:   &http.Client{Timeout: requestTimeout},
		call: resilience.New(cfg, func() *User { return nil }, log),
	}
}

func (u *UsersHTTP) GetUser(ctx context.Context, id int64) (*User, error) {
	return u.call.Call(ctx, "get user", func(ctx context.Context) (*User, error) {
		return doJSON[*User](ctx, u.hc, http.MethodGet, fmt.Sprintf("%s/users/%d", u.base, id), nil)
	})
}

type RoomsHTTP struct {
	base string
	hc   *http.Client
	call *resilience.Caller[*Room]
}

func NewRoomsHTTP(base string, cfg resilience.Config, log *zerolog.Logger) *RoomsHTTP {
	return &RoomsHTTP{
		base: base,
		hc:   &http.Client{Timeout: requestTimeout},
		call: resilience.New(cfg, func() *Room { return nil }, log),
	}
}

func (r *RoomsHTTP) GetRoom(ctx context.Context, id int64) (*Room, error) {
	return r.call.Call(ctx, "get room", func(ctx context.Context) (*Room, error) {
		return doJSON[*Room](ctx, r.hc, http.MethodGet, fmt.Sprintf("%s/room/%d", r.base, id), nil)
	})
}

type BookingsHTTP struct {
	base string
	hc   *http.Client
	call *resilience.Caller[bool]
}

func NewBookingsHTTP(base string, cfg resilience.Config, log *zerolog.Logger) *BookingsHTTP {
	return &BookingsHTTP{
		base: base,
		hc:   &http.Client{Timeout: requestTimeout},
		call: resilience.New(cfg, func() bool { return false }, log),
	}
}

func (b *BookingsHTTP) UserHasRoomBooked(ctx context.Context, userID, roomID int64, start, end time.Time) (bool, error) {
	return b.call.Call(ctx, "user has room booked", func(ctx context.Context) (bool, error) {
		q := url.Values{}
		q.Set("userId", fmt.Sprintf("%d", userID))
		q.Set("roomId", fmt.Sprintf("%d", roomID))
		q.Set("startTime", start.Format(time.RFC3339))
		q.Set("endTime", end.Format(time.RFC3339))
		target := fmt.Sprintf("%s/booking/userHasRoomBooked?%s", b.base, q.Encode())
		return doJSON[bool](ctx, b.hc, http.MethodGet, target, nil)
	})
}

type ApprovalsHTTP struct {
	base        string
	hc          *http.Client
	createCall  *resilience.Caller[*model.Approval]
	pendingCall *resilience.Caller[[]model.Approval]
}

func NewApprovalsHTTP(base string, cfg resilience.Config, log *zerolog.Logger) *ApprovalsHTTP {
	return &ApprovalsHTTP{
		base:        base,
		hc:          &http.Client{Timeout: requestTimeout},
		createCall:  resilience.New(cfg, func() *model.Approval { return nil }, log),
		pendingCall: resilience.New(cfg, func() []model.Approval { return []model.Approval{} }, log),
	}
}

func (a *ApprovalsHTTP) Create(ctx context.Context, approval model.Approval) error {
	req := dto.ApprovalCreateRequest{
		EventID:    approval.EventID,
		Type:       approval.Type,
		PendingObj: approval.PendingObj,
		Action:     approval.Action,
	}
	_, err := a.createCall.Call(ctx, "create approval", func(ctx context.Context) (*model.Approval, error) {
		return doJSON[*model.Approval](ctx, a.hc, http.MethodPost, a.base+"/approval", req)
	})
	return err
}

func (a *ApprovalsHTTP) PendingByEvent(ctx context.Context, eventID string) ([]model.Approval, error) {
	return a.pendingCall.Call(ctx, "pending approvals by event", func(ctx context.Context) ([]model.Approval, error) {
		return doJSON[[]model.Approval](ctx, a.hc, http.MethodGet, a.base+"/approval/pending/"+eventID, nil)
	})
}

type EventsHTTP struct {
	base string
	hc   *http.Client
	call *resilience.Caller[*model.Event]
}

func NewEventsHTTP(base string, cfg resilience.Config, log *zerolog.Logger) *EventsHTTP {
	return &EventsHTTP{
		base: base,
		hc:   &http.Client{Timeout: requestTimeout},
		call: resilience.New(cfg, func() *model.Event { return nil }, log),
	}
}

func (e *EventsHTTP) Get(ctx context.Context, eventID string) (*model.Event, error) {
	return e.call.Call(ctx, "get event", func(ctx context.Context) (*model.Event, error) {
		return doJSON[*model.Event](ctx, e.hc, http.MethodGet, e.base+"/event/"+eventID, nil)
	})
}

func (e *EventsHTTP) Approve(ctx context.Context, eventID string, snap model.EventSnapshot) error {
	_, err := e.call.Call(ctx, "approve event", func(ctx context.Context) (*model.Event, error) {
		return doJSON[*model.Event](ctx, e.hc, http.MethodPut, e.base+"/event/approve/"+eventID, snap)
	})
	return err
}

func (e *EventsHTTP) Reject(ctx context.Context, eventID string, snap model.EventSnapshot) error {
	_, err := e.call.Call(ctx, "reject event", func(ctx context.Context) (*model.Event, error) {
		return doJSON[*model.Event](ctx, e.hc, http.MethodPut, e.base+"/event/reject/"+eventID, snap)
	})
	return err
}
