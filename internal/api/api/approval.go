package api

import (
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"campusbooker/cmd/middleware"
	"campusbooker/internal/dto"
	"campusbooker/internal/model"
	"campusbooker/internal/service"
)

type ApprovalRouters struct {
	Approvals service.ApprovalService
}

func NewApprovalRouters(r *ApprovalRouters) *ginext.Engine {
	app := ginext.New("release")

	app.Use(middleware.LoggingMiddleware())
	app.Use(cors.Default())

	app.POST("/approval", r.createApproval)
	app.GET("/approval", r.getAllApprovals)
	app.GET("/approval/pending", r.byAction(model.ActionPending))
	app.GET("/approval/approved", r.byAction(model.ActionApprove))
	app.GET("/approval/denied", r.byAction(model.ActionDeny))
	app.GET("/approval/pending/:eventId", r.byActionAndEvent(model.ActionPending))
	app.GET("/approval/approved/:eventId", r.byActionAndEvent(model.ActionApprove))
	app.GET("/approval/denied/:eventId", r.byActionAndEvent(model.ActionDeny))
	app.GET("/approval/:id", r.getApproval)
	app.PUT("/approval/:userId/:approvalId", r.decideApproval)
	app.DELETE("/approval/:userId/:approvalId", r.withdrawApproval)

	return app
}

func (r *ApprovalRouters) createApproval(ctx *ginext.Context) {
	var req dto.ApprovalCreateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to parse create approval request")
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	resp, err := r.Approvals.Create(ctx.Request.Context(), req)
	if err != nil {
		dto.RespondError(ctx, err)
		return
	}
	dto.SuccessCreatedResponse(ctx, resp)
}

func (r *ApprovalRouters) getAllApprovals(ctx *ginext.Context) {
	resp, err := r.Approvals.GetAll(ctx.Request.Context())
	if err != nil {
		dto.RespondError(ctx, err)
		return
	}
	dto.SuccessResponse(ctx, resp)
}

func (r *ApprovalRouters) byAction(action string) func(*ginext.Context) {
	return func(ctx *ginext.Context) {
		resp, err := r.Approvals.GetAllByAction(ctx.Request.Context(), action)
		if err != nil {
			dto.RespondError(ctx, err)
			return
		}
		dto.SuccessResponse(ctx, resp)
	}
}

func (r *ApprovalRouters) byActionAndEvent(action string) func(*ginext.Context) {
	return func(ctx *ginext.Context) {
		resp, err := r.Approvals.GetAllByActionAndEvent(ctx.Request.Context(), action, ctx.Param("eventId"))
		if err != nil {
			dto.RespondError(ctx, err)
			return
		}
		dto.SuccessResponse(ctx, resp)
	}
}

func (r *ApprovalRouters) getApproval(ctx *ginext.Context) {
	resp, err := r.Approvals.GetByID(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		dto.RespondError(ctx, err)
		return
	}
	dto.SuccessResponse(ctx, resp)
}

func (r *ApprovalRouters) decideApproval(ctx *ginext.Context) {
	userID, err := strconv.ParseInt(ctx.Param("userId"), 10, 64)
	if err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid user ID")
		return
	}

	var req dto.ApprovalDecisionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to parse approval decision request")
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	resp, err := r.Approvals.Decide(ctx.Request.Context(), userID, ctx.Param("approvalId"), req)
	if err != nil {
		dto.RespondError(ctx, err)
		return
	}
	dto.SuccessResponse(ctx, resp)
}

func (r *ApprovalRouters) withdrawApproval(ctx *ginext.Context) {
	userID, err := strconv.ParseInt(ctx.Param("userId"), 10, 64)
	if err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid user ID")
		return
	}

	if err := r.Approvals.Withdraw(ctx.Request.Context(), userID, ctx.Param("approvalId")); err != nil {
		dto.RespondError(ctx, err)
		return
	}
	dto.NoContentResponse(ctx)
}
