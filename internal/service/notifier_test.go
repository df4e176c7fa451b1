package service

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/d60-Lab/invitebatch/internal/model"
	"github.com/d60-Lab/invitebatch/pkg/logger"
)

func testMessage() Message {
	inv := &model.Invite{ID: "inv-1", OrgID: "org1", Role: model.RoleTeacher, JoinCode: "ABCD2345", ExpiresAt: time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)}
	return BuildInviteMessage(inv, "raw token", "https://app.example.com/accept")
}

func TestBuildInviteMessage(t *testing.T) {
	msg := testMessage()
	assert.Equal(t, "https://app.example.com/accept?token=raw+token", msg.AcceptURL)
	assert.Equal(t, "teacher", msg.Role)
	assert.Equal(t, "ABCD2345", msg.JoinCode)
	assert.Contains(t, msg.Body, "ABCD2345")
	assert.Contains(t, msg.Body, msg.AcceptURL)
}

func TestWebhookNotifier_Delivers(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, time.Second)
	require.NoError(t, n.Notify(context.Background(), "a@x.com", testMessage()))
	assert.Equal(t, "a@x.com", got.To)
	assert.Equal(t, "inv-1", got.InviteID)
}

func TestWebhookNotifier_ErrorClassification(t *testing.T) {
	cases := []struct {
		name        string
		status      int
		unavailable bool
	}{
		{"server error is retryable", http.StatusInternalServerError, false},
		{"throttled is retryable", http.StatusTooManyRequests, false},
		{"bad credentials", http.StatusUnauthorized, true},
		{"forbidden", http.StatusForbidden, true},
		{"wrong endpoint", http.StatusNotFound, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			err := NewWebhookNotifier(srv.URL, time.Second).Notify(context.Background(), "a@x.com", testMessage())
			require.Error(t, err)
			assert.Equal(t, tc.unavailable, strings.Contains(err.Error(), ErrNotifierUnavailable.Error()))
			if tc.unavailable {
				assert.ErrorIs(t, err, ErrNotifierUnavailable)
			} else {
				assert.NotErrorIs(t, err, ErrNotifierUnavailable)
			}
		})
	}
}

func TestWebhookNotifier_UnreachableIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	err := NewWebhookNotifier(addr, time.Second).Notify(context.Background(), "a@x.com", testMessage())
	assert.ErrorIs(t, err, ErrNotifierUnavailable)
}

func TestWebhookNotifier_TimeoutIsRetryable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	err := NewWebhookNotifier(srv.URL, 50*time.Millisecond).Notify(context.Background(), "a@x.com", testMessage())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotifierUnavailable)
}

// dropFirstConn 第一个连接读完请求后直接断开，之后正常返回 200
func dropFirstConn(t *testing.T) (*httptest.Server, *atomic.Int32) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			conn, _, err := w.(http.Hijacker).Hijack()
			require.NoError(t, err)
			_ = conn.Close()
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestWebhookNotifier_DroppedConnectionIsRetryable(t *testing.T) {
	srv, _ := dropFirstConn(t)
	n := NewWebhookNotifier(srv.URL, time.Second)

	err := n.Notify(context.Background(), "a@x.com", testMessage())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotifierUnavailable)
	assert.NoError(t, n.Notify(context.Background(), "a@x.com", testMessage()))
}

func TestWebhookNotifier_DroppedConnectionDoesNotAbortBatch(t *testing.T) {
	srv, hits := dropFirstConn(t)
	f := newDispatcherFixture(t)
	d := NewBoundedDispatcher(NewWebhookNotifier(srv.URL, time.Second), f.batches, f.hub,
		DispatchOptions{Concurrency: 1, Retries: 2, Backoff: time.Millisecond})

	b := f.batch(t, 3, 0)
	res := d.Dispatch(context.Background(), b, makeCreated("org1", 3))

	require.NoError(t, res.Err)
	assert.Equal(t, model.BatchDone, res.Status)
	assert.Equal(t, 3, res.Sent)
	assert.Equal(t, 0, res.Failed)
	assert.GreaterOrEqual(t, hits.Load(), int32(4), "the dropped attempt was retried")
}

func TestRelayUnreachable(t *testing.T) {
	assert.True(t, relayUnreachable(&net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}))
	assert.True(t, relayUnreachable(&net.DNSError{Err: "no such host", Name: "relay.invalid", IsNotFound: true}))
	assert.False(t, relayUnreachable(io.EOF))
	assert.False(t, relayUnreachable(io.ErrUnexpectedEOF))
	assert.False(t, relayUnreachable(&net.OpError{Op: "read", Net: "tcp", Err: syscall.ECONNRESET}))
	assert.False(t, relayUnreachable(&net.DNSError{Err: "timeout", Name: "relay", IsTimeout: true}))
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	prev := logger.L()
	logger.Set(zap.New(core))
	t.Cleanup(func() { logger.Set(prev) })

	assert.NoError(t, LogNotifier{}.Notify(context.Background(), "a@x.com", testMessage()))
	require.NotEmpty(t, logs.All())
	for _, e := range logs.All() {
		assert.NotContains(t, e.ContextMap(), "join_code")
	}
}
