package api

import (
	"fmt"

	"github.com/gin-contrib/cors"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"campusbooker/cmd/middleware"
	"campusbooker/internal/dto"
	"campusbooker/internal/model"
	"campusbooker/internal/service"
)

type EventRouters struct {
	Events service.EventService
}

func NewEventRouters(r *EventRouters) *ginext.Engine {
	app := ginext.New("release")

	app.Use(middleware.LoggingMiddleware())
	app.Use(cors.Default())

	app.POST("/event", r.createEvent)
	app.GET("/event", r.getAllEvents)
	app.GET("/event/:id", r.getEvent)
	app.PUT("/event/:id", r.updateEvent)
	app.DELETE("/event/:id", r.deleteEvent)
	app.PUT("/event/approve/:id", r.approveEvent)
	app.PUT("/event/reject/:id", r.rejectEvent)

	return app
}

func (r *EventRouters) createEvent(ctx *ginext.Context) {
	var req dto.EventCreateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to parse create event request")
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	resp, err := r.Events.Create(ctx.Request.Context(), req)
	if err != nil {
		dto.RespondError(ctx, err)
		return
	}
	dto.SuccessCreatedResponse(ctx, resp)
}

func (r *EventRouters) getAllEvents(ctx *ginext.Context) {
	resp, err := r.Events.GetAll(ctx.Request.Context())
	if err != nil {
		dto.RespondError(ctx, err)
		return
	}
	dto.SuccessResponse(ctx, resp)
}

func (r *EventRouters) getEvent(ctx *ginext.Context) {
	resp, err := r.Events.GetByID(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		dto.RespondError(ctx, err)
		return
	}
	dto.SuccessResponse(ctx, resp)
}

func (r *EventRouters) updateEvent(ctx *ginext.Context) {
	var req dto.EventUpdateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to parse update event request")
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	resp, err := r.Events.Update(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		dto.RespondError(ctx, err)
		return
	}
	dto.SuccessResponse(ctx, resp)
}

func (r *EventRouters) deleteEvent(ctx *ginext.Context) {
	if err := r.Events.Delete(ctx.Request.Context(), ctx.Param("id")); err != nil {
		dto.RespondError(ctx, err)
		return
	}
	dto.NoContentResponse(ctx)
}

// approveEvent and rejectEvent are the approval-callback endpoints: the
// approval store calls them with the decided snapshot once staff rule on
// a pending approval.
func (r *EventRouters) approveEvent(ctx *ginext.Context) {
	r.applyDecision(ctx, true)
}

func (r *EventRouters) rejectEvent(ctx *ginext.Context) {
	r.applyDecision(ctx, false)
}

func (r *EventRouters) applyDecision(ctx *ginext.Context, approved bool) {
	var snap model.EventSnapshot
	if err := ctx.ShouldBindJSON(&snap); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to parse decision snapshot")
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	eventID := ctx.Param("id")
	if snap.EventID != "" && snap.EventID != eventID {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("snapshot event id %s does not match path id %s", snap.EventID, eventID))
		return
	}

	resp, err := r.Events.ApplyDecision(ctx.Request.Context(), eventID, snap, approved)
	if err != nil {
		dto.RespondError(ctx, err)
		return
	}
	if resp == nil {
		// Denied creation: the event no longer exists.
		dto.NoContentResponse(ctx)
		return
	}
	dto.SuccessResponse(ctx, resp)
}
