package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d60-Lab/invitebatch/internal/model"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&model.OrgRole{}, &model.InviteBatch{}, &model.Invite{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// fakeNotifier 记录调用并统计最大并发
type fakeNotifier struct {
	delay time.Duration
	// fail 返回第 n 次（从 1 开始）针对 recipient 的尝试结果
	fail func(recipient string, n int) error

	mu       sync.Mutex
	attempts map[string]int

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	calls       atomic.Int32
}

func (f *fakeNotifier) Notify(ctx context.Context, recipient string, msg Message) error {
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		prev := f.maxInFlight.Load()
		if cur <= prev || f.maxInFlight.CompareAndSwap(prev, cur) {
			break
		}
	}
	f.calls.Add(1)

	f.mu.Lock()
	if f.attempts == nil {
		f.attempts = make(map[string]int)
	}
	f.attempts[recipient]++
	n := f.attempts[recipient]
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.fail != nil {
		return f.fail(recipient, n)
	}
	return nil
}

func (f *fakeNotifier) attemptsFor(recipient string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[recipient]
}

func makeCreated(orgID string, n int) []CreatedInvite {
	out := make([]CreatedInvite, n)
	for i := range out {
		id := uuid.New().String()
		out[i] = CreatedInvite{
			Invite: &model.Invite{
				ID:        id,
				OrgID:     orgID,
				Email:     "user" + id[:6] + "@example.com",
				Role:      model.RoleStudent,
				JoinCode:  id[:8],
				ExpiresAt: time.Now().Add(time.Hour),
			},
			Token: "tok-" + id,
		}
	}
	return out
}

func drain(sub *Subscriber) []ProgressEvent {
	var out []ProgressEvent
	for {
		select {
		case f, ok := <-sub.Frames():
			if !ok {
				return out
			}
			out = append(out, decodeFrame(f))
		default:
			return out
		}
	}
}
