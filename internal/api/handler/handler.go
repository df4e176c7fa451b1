package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/invitebatch/internal/service"
)

// HealthCheck 依赖探活
type HealthCheck func(ctx context.Context) error

// Handler HTTP 处理器集合
type Handler struct {
	batchService  service.InviteBatchService
	inviteService service.InviteService
	heartbeat     time.Duration
	checks        map[string]HealthCheck
}

func NewHandler(batchService service.InviteBatchService, inviteService service.InviteService, heartbeat time.Duration) *Handler {
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	return &Handler{
		batchService:  batchService,
		inviteService: inviteService,
		heartbeat:     heartbeat,
		checks:        make(map[string]HealthCheck),
	}
}

// AddHealthCheck 注册 /health 上报的依赖
func (h *Handler) AddHealthCheck(name string, check HealthCheck) {
	h.checks[name] = check
}

// Health 健康检查
// @Summary 健康检查
// @Tags 系统
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}
	c.JSON(status, gin.H{"status": http.StatusText(status), "deps": deps})
}
