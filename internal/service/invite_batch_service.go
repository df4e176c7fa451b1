package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/d60-Lab/invitebatch/internal/cache"
	"github.com/d60-Lab/invitebatch/internal/metrics"
	"github.com/d60-Lab/invitebatch/internal/model"
	"github.com/d60-Lab/invitebatch/internal/repository"
	"github.com/d60-Lab/invitebatch/pkg/logger"
)

var (
	ErrEmptyBatch    = errors.New("batch must contain at least one invite")
	ErrBatchTooLarge = errors.New("batch exceeds maximum size")
	ErrInvalidExpiry = errors.New("expiresInDays must be between 1 and 30")
	ErrBatchNotFound = repository.ErrBatchNotFound
)

const maxExpiresInDays = 30

var defaultBatchLimits = BatchLimits{MaxBatchSize: 200, DefaultExpiresInDays: 7}

type BatchLimits struct {
	MaxBatchSize         int
	DefaultExpiresInDays int
}

// SubmitOptions ExpiresInDays 为 0 时取默认值
type SubmitOptions struct {
	ExpiresInDays int
	SendEmail     bool
	DryRun        bool
}

type SubmitResult struct {
	BatchID string            `json:"batchId"`
	Total   int               `json:"total"`
	Status  model.BatchStatus `json:"status"`
	Skipped []SkipReason      `json:"skipped,omitempty"`
}

// BatchStatusView 轮询结果；sent/failed 只在终态时给出
type BatchStatusView struct {
	BatchID string            `json:"batchId"`
	Status  model.BatchStatus `json:"status"`
	Total   int               `json:"total"`
	Sent    *int              `json:"sent,omitempty"`
	Failed  *int              `json:"failed,omitempty"`
	Skipped *int              `json:"skipped,omitempty"`
	Message string            `json:"message,omitempty"`
}

func newStatusView(b *model.InviteBatch) *BatchStatusView {
	v := &BatchStatusView{BatchID: b.ID, Status: b.Status, Total: b.Total, Message: b.Message}
	skipped := b.Skipped
	v.Skipped = &skipped
	if b.Status.IsTerminal() {
		sent, failed := b.Sent, b.Failed
		v.Sent, v.Failed = &sent, &failed
	}
	return v
}

// TerminalEvent 由已落库的终态批次构造终止事件
func TerminalEvent(b *model.InviteBatch) ProgressEvent {
	typ := EventDone
	if b.Status == model.BatchError {
		typ = EventError
	}
	return ProgressEvent{Type: typ, Total: b.Total, Sent: b.Sent, Failed: b.Failed, Skipped: b.Skipped, Message: b.Message}
}

// InviteBatchService 批量邀请
type InviteBatchService interface {
	Submit(ctx context.Context, orgID string, items []InviteRequest, opts SubmitOptions) (*SubmitResult, error)
	Status(ctx context.Context, orgID, batchID string) (*BatchStatusView, error)
	// Subscribe 返回订阅句柄与订阅之后读到的批次快照
	Subscribe(ctx context.Context, orgID, batchID string) (*Subscriber, *model.InviteBatch, error)
	Unsubscribe(sub *Subscriber)
}

type inviteBatchService struct {
	persister  *BatchPersister
	dispatcher *BoundedDispatcher
	batches    repository.BatchRepository
	hub        *ProgressHub
	cache      *cache.BatchStatusCache
	limits     BatchLimits
}

func NewInviteBatchService(persister *BatchPersister, dispatcher *BoundedDispatcher, batches repository.BatchRepository,
	hub *ProgressHub, statusCache *cache.BatchStatusCache, limits BatchLimits) InviteBatchService {
	if limits.MaxBatchSize <= 0 {
		limits.MaxBatchSize = defaultBatchLimits.MaxBatchSize
	}
	if limits.DefaultExpiresInDays <= 0 {
		limits.DefaultExpiresInDays = defaultBatchLimits.DefaultExpiresInDays
	}
	return &inviteBatchService{
		persister:  persister,
		dispatcher: dispatcher,
		batches:    batches,
		hub:        hub,
		cache:      statusCache,
		limits:     limits,
	}
}

func (s *inviteBatchService) Submit(ctx context.Context, orgID string, items []InviteRequest, opts SubmitOptions) (*SubmitResult, error) {
	if len(items) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(items) > s.limits.MaxBatchSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(items), s.limits.MaxBatchSize)
	}
	if opts.ExpiresInDays == 0 {
		opts.ExpiresInDays = s.limits.DefaultExpiresInDays
	}
	if opts.ExpiresInDays < 1 || opts.ExpiresInDays > maxExpiresInDays {
		return nil, ErrInvalidExpiry
	}

	unique := DedupeInvites(items)
	res, err := s.persister.Persist(ctx, orgID, unique, PersistOptions{
		ExpiresInDays: opts.ExpiresInDays,
		SendEmail:     opts.SendEmail,
		DryRun:        opts.DryRun,
	})
	if err != nil {
		return nil, fmt.Errorf("persist invite batch: %w", err)
	}

	batch := res.Batch
	metrics.RecordInvites("created", len(res.Created))
	metrics.RecordInvites("skipped", len(res.Skipped))
	logger.Info("invite batch accepted",
		zap.String("batch_id", batch.ID), zap.String("org_id", orgID),
		zap.Int("submitted", len(items)), zap.Int("total", batch.Total),
		zap.Int("created", len(res.Created)), zap.Int("skipped", len(res.Skipped)),
		zap.Bool("dry_run", opts.DryRun), zap.Bool("send_email", opts.SendEmail))

	out := &SubmitResult{BatchID: batch.ID, Total: batch.Total, Status: batch.Status, Skipped: res.Skipped}
	if batch.Status.IsTerminal() {
		metrics.RecordBatch(string(batch.Status))
		return out, nil
	}

	s.dispatcher.Start(ctx, batch, res.Created)
	out.Status = model.BatchRunning
	return out, nil
}

func (s *inviteBatchService) load(ctx context.Context, orgID, batchID string) (*model.InviteBatch, error) {
	if b, ok := s.cache.Get(ctx, batchID); ok {
		if b.OrgID != orgID {
			return nil, ErrBatchNotFound
		}
		return b, nil
	}
	b, err := s.batches.Get(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if b.OrgID != orgID {
		return nil, ErrBatchNotFound
	}
	if err := s.cache.Set(ctx, b); err != nil {
		logger.Debug("cache batch status failed", zap.String("batch_id", batchID), zap.Error(err))
	}
	return b, nil
}

func (s *inviteBatchService) Status(ctx context.Context, orgID, batchID string) (*BatchStatusView, error) {
	b, err := s.load(ctx, orgID, batchID)
	if err != nil {
		return nil, err
	}
	return newStatusView(b), nil
}

func (s *inviteBatchService) Subscribe(ctx context.Context, orgID, batchID string) (*Subscriber, *model.InviteBatch, error) {
	if _, err := s.load(ctx, orgID, batchID); err != nil {
		return nil, nil, err
	}
	sub := s.hub.Subscribe(batchID)
	// 订阅后再读一次，避免在两次操作之间完成的批次让连接永远等不到终止事件
	b, err := s.batches.Get(ctx, batchID)
	if err != nil {
		s.hub.Unsubscribe(sub)
		return nil, nil, err
	}
	return sub, b, nil
}

func (s *inviteBatchService) Unsubscribe(sub *Subscriber) { s.hub.Unsubscribe(sub) }
