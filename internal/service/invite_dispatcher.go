package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/d60-Lab/invitebatch/internal/metrics"
	"github.com/d60-Lab/invitebatch/internal/model"
	"github.com/d60-Lab/invitebatch/internal/repository"
	"github.com/d60-Lab/invitebatch/pkg/logger"
)

const tracerName = "github.com/d60-Lab/invitebatch/internal/service"

type DispatchOptions struct {
	Concurrency   int
	Retries       int
	Backoff       time.Duration
	AcceptBaseURL string
}

// DispatchResult 派发结束时的汇总
type DispatchResult struct {
	Status model.BatchStatus
	Sent   int
	Failed int
	Err    error
}

// tally 运行中的计数，发布事件也在同一把锁内完成，保证事件顺序与结果顺序一致
type tally struct {
	mu      sync.Mutex
	total   int
	sent    int
	failed  int
	skipped int
}

func newTally(b *model.InviteBatch) *tally { return &tally{total: b.Total, skipped: b.Skipped} }

func (t *tally) event(typ EventType, msg string) ProgressEvent {
	return ProgressEvent{Type: typ, Total: t.total, Sent: t.sent, Failed: t.failed, Skipped: t.skipped, Message: msg}
}

// BoundedDispatcher 固定并发的发送池，失败按固定间隔重试
type BoundedDispatcher struct {
	notifier Notifier
	batches  repository.BatchRepository
	hub      *ProgressHub
	opts     DispatchOptions
}

func NewBoundedDispatcher(notifier Notifier, batches repository.BatchRepository, hub *ProgressHub, opts DispatchOptions) *BoundedDispatcher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 5
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	return &BoundedDispatcher{notifier: notifier, batches: batches, hub: hub, opts: opts}
}

// Start 后台派发，调用方不等待也无法取消；保留 ctx 中的 trace 信息
func (d *BoundedDispatcher) Start(ctx context.Context, batch *model.InviteBatch, created []CreatedInvite) {
	ctx = context.WithoutCancel(ctx)
	t := newTally(batch)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("invite dispatcher crashed", zap.String("batch_id", batch.ID), zap.Any("panic", r))
				sentry.CurrentHub().Recover(r)
				d.abort(ctx, batch, t, r)
			}
		}()
		_ = d.run(ctx, batch, created, t)
	}()
}

// Dispatch 阻塞直到所有邀请处理完毕或遇到不可恢复的错误
func (d *BoundedDispatcher) Dispatch(ctx context.Context, batch *model.InviteBatch, created []CreatedInvite) DispatchResult {
	return d.run(ctx, batch, created, newTally(batch))
}

// abort worker 之外的崩溃也要落 error 终态，否则批次一直停在 running
func (d *BoundedDispatcher) abort(ctx context.Context, batch *model.InviteBatch, t *tally, r any) {
	defer func() {
		if again := recover(); again != nil {
			logger.Error("invite dispatcher abort failed", zap.String("batch_id", batch.ID), zap.Any("panic", again))
		}
	}()
	d.finish(ctx, batch, t, fmt.Errorf("invite dispatcher panic: %v", r))
}

func (d *BoundedDispatcher) run(ctx context.Context, batch *model.InviteBatch, created []CreatedInvite, t *tally) DispatchResult {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "invite.dispatch")
	span.SetAttributes(
		attribute.String("batch.id", batch.ID),
		attribute.String("org.id", batch.OrgID),
		attribute.Int("batch.created", len(created)),
	)
	defer span.End()

	if len(created) == 0 {
		return d.finish(ctx, batch, t, nil)
	}

	running := model.BatchRunning
	if err := d.batches.Update(ctx, batch.ID, repository.BatchUpdate{Status: &running}); err != nil {
		logger.Warn("mark batch running failed", zap.String("batch_id", batch.ID), zap.Error(err))
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		fatalOnce sync.Once
		fatal     error
	)
	setFatal := func(err error) {
		fatalOnce.Do(func() {
			fatal = err
			cancel()
		})
	}

	queue := make(chan CreatedInvite, len(created))
	for _, c := range created {
		queue <- c
	}
	close(queue)

	workers := d.opts.Concurrency
	if workers > len(created) {
		workers = len(created)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					setFatal(fmt.Errorf("dispatch worker panic: %v", r))
				}
			}()
			for item := range queue {
				if runCtx.Err() != nil {
					return
				}
				err := d.deliver(runCtx, item)
				switch {
				case err == nil:
					d.record(batch.ID, t, true)
				case errors.Is(err, ErrNotifierUnavailable):
					setFatal(err)
					return
				case runCtx.Err() != nil:
					// 被其他 worker 的致命错误打断，不计数
					return
				default:
					logger.Warn("invite email failed after retries",
						zap.String("batch_id", batch.ID), zap.String("invite_id", item.Invite.ID), zap.Error(err))
					d.record(batch.ID, t, false)
				}
			}
		}()
	}
	wg.Wait()

	if fatal == nil && ctx.Err() != nil {
		fatal = ctx.Err()
	}
	return d.finish(ctx, batch, t, fatal)
}

// deliver 最多 Retries+1 次尝试，两次之间固定等待 Backoff
func (d *BoundedDispatcher) deliver(ctx context.Context, item CreatedInvite) error {
	msg := BuildInviteMessage(item.Invite, item.Token, d.opts.AcceptBaseURL)
	var err error
	for attempt := 0; attempt <= d.opts.Retries; attempt++ {
		if attempt > 0 && d.opts.Backoff > 0 {
			timer := time.NewTimer(d.opts.Backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		err = d.attempt(ctx, item.Invite.Email, msg, attempt)
		if err == nil || errors.Is(err, ErrNotifierUnavailable) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}

func (d *BoundedDispatcher) attempt(ctx context.Context, to string, msg Message, n int) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "invite.notify")
	span.SetAttributes(attribute.String("invite.id", msg.InviteID), attribute.Int("attempt", n+1))
	defer span.End()

	metrics.InFlightSends.Inc()
	err := d.notifier.Notify(ctx, to, msg)
	metrics.InFlightSends.Dec()

	metrics.RecordAttempt(err == nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (d *BoundedDispatcher) record(batchID string, t *tally, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ok {
		t.sent++
	} else {
		t.failed++
	}
	d.hub.Publish(batchID, t.event(EventProgress, ""))
}

// finish 写入终态并广播 done/error；已累计的 sent/failed 保留
func (d *BoundedDispatcher) finish(ctx context.Context, batch *model.InviteBatch, t *tally, fatal error) DispatchResult {
	t.mu.Lock()
	defer t.mu.Unlock()

	status := model.BatchDone
	evType := EventDone
	msg := ""
	if fatal != nil {
		status = model.BatchError
		evType = EventError
		msg = fatal.Error()
		logger.Error("invite batch aborted", zap.String("batch_id", batch.ID), zap.Error(fatal))
		sentry.CaptureException(fatal)
	}

	upCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	sent, failed := t.sent, t.failed
	upd := repository.BatchUpdate{Status: &status, Sent: &sent, Failed: &failed}
	if msg != "" {
		upd.Message = &msg
	}
	if err := d.batches.Update(upCtx, batch.ID, upd); err != nil {
		logger.Error("store final batch status failed", zap.String("batch_id", batch.ID), zap.Error(err))
		sentry.CaptureException(err)
	}

	metrics.RecordBatch(string(status))
	metrics.RecordInvites("sent", sent)
	metrics.RecordInvites("failed", failed)
	logger.Info("invite batch finished",
		zap.String("batch_id", batch.ID),
		zap.String("status", string(status)),
		zap.Int("total", t.total), zap.Int("sent", sent), zap.Int("failed", failed), zap.Int("skipped", t.skipped))

	d.hub.Publish(batch.ID, t.event(evType, msg))
	return DispatchResult{Status: status, Sent: sent, Failed: failed, Err: fatal}
}
