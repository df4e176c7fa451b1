package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/invitebatch/internal/model"
	"github.com/d60-Lab/invitebatch/pkg/logger"
)

// ErrNotifierUnavailable 发送方整体不可用（不可达、凭证错误），派发会立即终止
var ErrNotifierUnavailable = errors.New("notifier unavailable")

// Message 邀请通知内容
type Message struct {
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	OrgID     string    `json:"org_id"`
	InviteID  string    `json:"invite_id"`
	Role      string    `json:"role"`
	JoinCode  string    `json:"join_code"`
	AcceptURL string    `json:"accept_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Notifier 外部邮件/通知服务
type Notifier interface {
	Notify(ctx context.Context, recipient string, msg Message) error
}

// NotifierFunc 函数适配器
type NotifierFunc func(ctx context.Context, recipient string, msg Message) error

func (f NotifierFunc) Notify(ctx context.Context, recipient string, msg Message) error {
	return f(ctx, recipient, msg)
}

// BuildInviteMessage 组装邀请邮件
func BuildInviteMessage(inv *model.Invite, rawToken, acceptBaseURL string) Message {
	acceptURL := acceptBaseURL
	if acceptBaseURL != "" {
		acceptURL = acceptBaseURL + "?token=" + url.QueryEscape(rawToken)
	}
	return Message{
		Subject: "You have been invited to join an organisation",
		Body: fmt.Sprintf("You have been invited as %s.\n\nAccept: %s\nOr enter join code %s in the app.\n\nThis invite expires on %s.",
			inv.Role, acceptURL, inv.JoinCode, inv.ExpiresAt.Format(time.RFC1123)),
		OrgID:     inv.OrgID,
		InviteID:  inv.ID,
		Role:      string(inv.Role),
		JoinCode:  inv.JoinCode,
		AcceptURL: acceptURL,
		ExpiresAt: inv.ExpiresAt,
	}
}

// LogNotifier 只打印日志，用于开发环境（未配置邮件中继时）
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, recipient string, msg Message) error {
	logger.Info("invite email (log only; configure notifier.webhook_url for real delivery)",
		zap.String("to", recipient),
		zap.String("org_id", msg.OrgID),
		zap.String("invite_id", msg.InviteID),
	)
	// 加入码可直接用来接受邀请，只在 debug 级别输出
	logger.Debug("invite email join code", zap.String("invite_id", msg.InviteID), zap.String("join_code", msg.JoinCode))
	return nil
}

// WebhookNotifier 把通知 POST 给邮件中继服务
type WebhookNotifier struct {
	url    string
	client *http.Client
}

func NewWebhookNotifier(endpoint string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{url: endpoint, client: &http.Client{Timeout: timeout}}
}

type webhookPayload struct {
	To string `json:"to"`
	Message
}

func (n *WebhookNotifier) Notify(ctx context.Context, recipient string, msg Message) error {
	body, err := json.Marshal(webhookPayload{To: recipient, Message: msg})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotifierUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		if ctx.Err() == nil && relayUnreachable(err) {
			return fmt.Errorf("%w: %v", ErrNotifierUnavailable, err)
		}
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: relay responded %d", ErrNotifierUnavailable, resp.StatusCode)
	default:
		return fmt.Errorf("relay responded %d", resp.StatusCode)
	}
}

// relayUnreachable 只有拨号失败才算整体不可用；EOF、连接重置、超时都按单条重试
func relayUnreachable(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return !dnsErr.IsTemporary && !dnsErr.IsTimeout
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial" && !opErr.Timeout() && !errors.Is(err, syscall.ECONNRESET)
}
