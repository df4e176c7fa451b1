package handler

import (
    "errors"
    "strconv"

    "github.com/gin-gonic/gin"

    "github.com/d60-Lab/invitebatch/internal/api/middleware"
    "github.com/d60-Lab/invitebatch/internal/service"
    "github.com/d60-Lab/invitebatch/pkg/response"
)

type acceptRequest struct {
    Token    string `json:"token" binding:"required_without=JoinCode"`
    JoinCode string `json:"joinCode" binding:"required_without=Token,omitempty,max=16"`
}

// ListInvites 查询组织内未接受、未过期的邀请
// @Summary 查询有效邀请
// @Tags 邀请
// @Security BearerAuth
// @Param org_id path string true "组织ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/orgs/{org_id}/invites [get]
func (h *Handler) ListInvites(c *gin.Context) {
    page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
    pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
    list, err := h.inviteService.ListActive(c.Request.Context(), c.Param("org_id"), page, pageSize)
    if err != nil {
        response.InternalError(c, err)
        return
    }
    response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

// RevokeInvite 撤销未接受的邀请
// @Summary 撤销邀请
// @Tags 邀请
// @Security BearerAuth
// @Param org_id path string true "组织ID"
// @Param invite_id path string true "邀请ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/orgs/{org_id}/invites/{invite_id} [delete]
func (h *Handler) RevokeInvite(c *gin.Context) {
    err := h.inviteService.Revoke(c.Request.Context(), c.Param("org_id"), c.Param("invite_id"))
    if errors.Is(err, service.ErrInviteNotFound) {
        response.NotFound(c, "invite not found")
        return
    }
    if err != nil {
        response.InternalError(c, err)
        return
    }
    response.Success(c, nil)
}

// AcceptInvite 当前用户凭 token 或加入码接受邀请
// @Summary 接受邀请
// @Tags 邀请
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body acceptRequest true "token 或 joinCode"
// @Success 200 {object} response.Response{data=model.Invite}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 410 {object} response.Response
// @Router /api/v1/invites/accept [post]
func (h *Handler) AcceptInvite(c *gin.Context) {
    var req acceptRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        response.BadRequest(c, err.Error())
        return
    }
    inv, err := h.inviteService.Accept(c.Request.Context(), middleware.UserID(c), req.Token, req.JoinCode)
    switch {
    case err == nil:
        response.Success(c, inv)
    case errors.Is(err, service.ErrInviteNotFound):
        response.NotFound(c, "invite not found")
    case errors.Is(err, service.ErrInviteAlreadyAccepted):
        response.Conflict(c, err.Error())
    case errors.Is(err, service.ErrInviteExpired):
        response.Gone(c, err.Error())
    case errors.Is(err, service.ErrInviteCodeRequired):
        response.BadRequest(c, err.Error())
    default:
        response.InternalError(c, err)
    }
}
