package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/d60-Lab/invitebatch/internal/model"
)

var (
	ErrBatchNotFound     = errors.New("batch not found")
	ErrInvalidTransition = errors.New("invalid batch status transition")
)

// BatchUpdate 局部更新，nil 字段不写
type BatchUpdate struct {
	Status  *model.BatchStatus
	Sent    *int
	Failed  *int
	Skipped *int
	Message *string
}

func (u BatchUpdate) columns() map[string]any {
	m := make(map[string]any, 5)
	if u.Status != nil {
		m["status"] = *u.Status
	}
	if u.Sent != nil {
		m["sent"] = *u.Sent
	}
	if u.Failed != nil {
		m["failed"] = *u.Failed
	}
	if u.Skipped != nil {
		m["skipped"] = *u.Skipped
	}
	if u.Message != nil {
		m["message"] = *u.Message
	}
	return m
}

// BatchRepository 批次状态的持久化记录，用于轮询
type BatchRepository interface {
	// Create 写入新批次
	Create(ctx context.Context, batch *model.InviteBatch) error

	// Update 局部更新；带状态时只允许前进，否则返回 ErrInvalidTransition
	Update(ctx context.Context, id string, upd BatchUpdate) error

	// Get 根据ID查询，不存在返回 ErrBatchNotFound
	Get(ctx context.Context, id string) (*model.InviteBatch, error)

	// WithTx 绑定到事务
	WithTx(tx *gorm.DB) BatchRepository
}

type batchRepository struct{ db *gorm.DB }

func NewBatchRepository(db *gorm.DB) BatchRepository { return &batchRepository{db: db} }

func (r *batchRepository) WithTx(tx *gorm.DB) BatchRepository { return &batchRepository{db: tx} }

func (r *batchRepository) Create(ctx context.Context, batch *model.InviteBatch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

func (r *batchRepository) Update(ctx context.Context, id string, upd BatchUpdate) error {
	cols := upd.columns()
	if len(cols) == 0 {
		return nil
	}
	q := r.db.WithContext(ctx).Model(&model.InviteBatch{}).Where("id = ?", id)
	if upd.Status != nil {
		q = q.Where("status IN ?", upd.Status.Predecessors())
	}
	res := q.Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	// 区分不存在与非法迁移
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return ErrInvalidTransition
}

func (r *batchRepository) Get(ctx context.Context, id string) (*model.InviteBatch, error) {
	var b model.InviteBatch
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}
