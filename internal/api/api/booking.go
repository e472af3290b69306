package api

import (
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"campusbooker/cmd/middleware"
	"campusbooker/internal/dto"
	"campusbooker/internal/service"
)

type BookingRouters struct {
	Bookings service.BookingService
}

func NewBookingRouters(r *BookingRouters) *ginext.Engine {
	app := ginext.New("release")

	app.Use(middleware.LoggingMiddleware())
	app.Use(cors.Default())

	app.POST("/booking", r.createBooking)
	app.GET("/booking", r.getAllBookings)
	app.GET("/booking/userHasRoomBooked", r.userHasRoomBooked)
	app.GET("/booking/:id", r.getBooking)
	app.PUT("/booking/:id", r.updateBooking)
	app.DELETE("/booking/:id", r.deleteBooking)

	return app
}

func (r *BookingRouters) createBooking(ctx *ginext.Context) {
	var req dto.BookingCreateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to parse create booking request")
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	resp, err := r.Bookings.Create(ctx.Request.Context(), req)
	if err != nil {
		dto.RespondError(ctx, err)
		return
	}
	dto.SuccessCreatedResponse(ctx, resp)
}

func (r *BookingRouters) getAllBookings(ctx *ginext.Context) {
	var ownerID *int64
	if raw := ctx.Query("userId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid userId")
			return
		}
		ownerID = &id
	}

	resp, err := r.Bookings.GetAll(ctx.Request.Context(), ownerID)
	if err != nil {
		dto.RespondError(ctx, err)
		return
	}
	dto.SuccessResponse(ctx, resp)
}

func (r *BookingRouters) userHasRoomBooked(ctx *ginext.Context) {
	userID, err := strconv.ParseInt(ctx.Query("userId"), 10, 64)
	if err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid userId")
		return
	}
	roomID, err := strconv.ParseInt(ctx.Query("roomId"), 10, 64)
	if err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid roomId")
		return
	}
	start, err := time.Parse(time.RFC3339, ctx.Query("startTime"))
	if err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid startTime")
		return
	}
	end, err := time.Parse(time.RFC3339, ctx.Query("endTime"))
	if err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid endTime")
		return
	}

	has, err := r.Bookings.UserHasRoomBooked(ctx.Request.Context(), userID, roomID, start, end)
	if err != nil {
		dto.RespondError(ctx, err)
		return
	}
	dto.SuccessResponse(ctx, has)
}

func (r *BookingRouters) getBooking(ctx *ginext.Context) {
	resp, err := r.Bookings.GetByID(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		dto.RespondError(ctx, err)
		return
	}
	dto.SuccessResponse(ctx, resp)
}

func (r *BookingRouters) updateBooking(ctx *ginext.Context) {
	var req dto.BookingUpdateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to parse update booking request")
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	resp, err := r.Bookings.Update(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		dto.RespondError(ctx, err)
		return
	}
	dto.SuccessResponse(ctx, resp)
}

func (r *BookingRouters) deleteBooking(ctx *ginext.Context) {
	if err := r.Bookings.Delete(ctx.Request.Context(), ctx.Param("id")); err != nil {
		dto.RespondError(ctx, err)
		return
	}
	dto.NoContentResponse(ctx)
}
