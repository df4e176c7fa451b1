package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/invitebatch/internal/service"
	"github.com/d60-Lab/invitebatch/pkg/logger"
	"github.com/d60-Lab/invitebatch/pkg/response"
)

type inviteItemRequest struct {
	Email  string          `json:"email" binding:"required,max=320,invite_email"`
	Role   string          `json:"role" binding:"required_without=RoleID,omitempty,invite_role"`
	RoleID string          `json:"roleId" binding:"omitempty,max=36"`
	UnitID string          `json:"unitId" binding:"omitempty,max=36"`
	Meta   json.RawMessage `json:"meta" swaggertype:"object"`
}

type batchOptionsRequest struct {
	ExpiresInDays *int  `json:"expiresInDays" binding:"omitempty,min=1,max=30" example:"7"`
	SendEmail     *bool `json:"sendEmail" example:"true"`
	DryRun        bool  `json:"dryRun" example:"false"`
}

type submitBatchRequest struct {
	Invites []inviteItemRequest  `json:"invites" binding:"required,min=1,max=200,dive"`
	Options *batchOptionsRequest `json:"options"`
}

func (r *submitBatchRequest) toService() ([]service.InviteRequest, service.SubmitOptions) {
	items := make([]service.InviteRequest, len(r.Invites))
	for i, it := range r.Invites {
		items[i] = service.InviteRequest{Email: it.Email, Role: it.Role, RoleID: it.RoleID, UnitID: it.UnitID, Meta: it.Meta}
	}
	opts := service.SubmitOptions{SendEmail: true}
	if o := r.Options; o != nil {
		if o.ExpiresInDays != nil {
			opts.ExpiresInDays = *o.ExpiresInDays
		}
		if o.SendEmail != nil {
			opts.SendEmail = *o.SendEmail
		}
		opts.DryRun = o.DryRun
	}
	return items, opts
}

// SubmitInviteBatch 提交批量邀请，立即返回，邮件在后台发送
// @Summary 批量邀请
// @Tags 邀请
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param org_id path string true "组织ID"
// @Param request body submitBatchRequest true "邀请列表"
// @Success 202 {object} response.Response{data=service.SubmitResult}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 429 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/orgs/{org_id}/invites/batch [post]
func (h *Handler) SubmitInviteBatch(c *gin.Context) {
	var req submitBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	items, opts := req.toService()
	res, err := h.batchService.Submit(c.Request.Context(), c.Param("org_id"), items, opts)
	switch {
	case err == nil:
		response.Accepted(c, res)
	case errors.Is(err, service.ErrEmptyBatch), errors.Is(err, service.ErrBatchTooLarge), errors.Is(err, service.ErrInvalidExpiry):
		response.BadRequest(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}

// GetInviteBatch 轮询批次状态；sent/failed 只在 done/error 时返回
// @Summary 查询批次状态
// @Tags 邀请
// @Produce json
// @Security BearerAuth
// @Param org_id path string true "组织ID"
// @Param batch_id path string true "批次ID"
// @Success 200 {object} response.Response{data=service.BatchStatusView}
// @Failure 404 {object} response.Response
// @Router /api/v1/orgs/{org_id}/invites/batch/{batch_id} [get]
func (h *Handler) GetInviteBatch(c *gin.Context) {
	view, err := h.batchService.Status(c.Request.Context(), c.Param("org_id"), c.Param("batch_id"))
	if errors.Is(err, service.ErrBatchNotFound) {
		response.NotFound(c, "batch not found")
		return
	}
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, view)
}

// StreamInviteBatch 以 SSE 推送批次进度，收到 done/error 后关闭
// @Summary 订阅批次进度
// @Tags 邀请
// @Produce text/event-stream
// @Security BearerAuth
// @Param org_id path string true "组织ID"
// @Param batch_id path string true "批次ID"
// @Success 200 {string} string "progress / done / error events"
// @Failure 404 {object} response.Response
// @Router /api/v1/orgs/{org_id}/invites/batch/{batch_id}/stream [get]
func (h *Handler) StreamInviteBatch(c *gin.Context) {
	sub, snap, err := h.batchService.Subscribe(c.Request.Context(), c.Param("org_id"), c.Param("batch_id"))
	if errors.Is(err, service.ErrBatchNotFound) {
		response.NotFound(c, "batch not found")
		return
	}
	if err != nil {
		response.InternalError(c, err)
		return
	}
	defer h.batchService.Unsubscribe(sub)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	// 已结束的批次不会再有事件，直接回放最终快照
	if snap.Status.IsTerminal() {
		writeFrame(c, service.EncodeFrame(service.TerminalEvent(snap)))
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case f, ok := <-sub.Frames():
			if !ok {
				logger.Debug("progress subscriber evicted", zap.String("batch_id", sub.BatchID()), zap.String("subscriber_id", sub.ID()))
				return false
			}
			writeFrame(c, f)
			return f.Event == service.EventProgress
		case <-ticker.C:
			_, _ = io.WriteString(w, ": keepalive\n\n")
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func writeFrame(c *gin.Context, f service.Frame) {
	c.SSEvent(string(f.Event), string(f.Data))
	c.Writer.Flush()
}
