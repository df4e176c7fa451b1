package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/d60-Lab/invitebatch/internal/model"
)

var ErrInviteNotFound = errors.New("invite not found")

// ActiveInviteKey 活跃邀请的身份元组 (org, email, unit, role/role_id)
type ActiveInviteKey struct {
	OrgID  string
	Email  string
	Role   model.InviteRole
	RoleID *string
	UnitID *string
}

type InviteRepository interface {
	Create(ctx context.Context, inv *model.Invite) error
	ExistsActive(ctx context.Context, key ActiveInviteKey, now time.Time) (bool, error)
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.Invite, error)
	FindByJoinCode(ctx context.Context, joinCode string) (*model.Invite, error)
	ListActive(ctx context.Context, orgID string, now time.Time, offset, limit int) ([]*model.Invite, error)
	CountByBatch(ctx context.Context, batchID string) (int64, error)
	// MarkAccepted 仅当邀请尚未被接受时生效，返回是否生效
	MarkAccepted(ctx context.Context, id, userID string, at time.Time) (bool, error)
	// DeletePending 删除未接受的邀请，返回是否删除
	DeletePending(ctx context.Context, orgID, id string) (bool, error)
	WithTx(tx *gorm.DB) InviteRepository
}

type inviteRepository struct {
	db *gorm.DB
}

func NewInviteRepository(db *gorm.DB) InviteRepository { return &inviteRepository{db: db} }

func (r *inviteRepository) WithTx(tx *gorm.DB) InviteRepository { return &inviteRepository{db: tx} }

func (r *inviteRepository) Create(ctx context.Context, inv *model.Invite) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *inviteRepository) ExistsActive(ctx context.Context, key ActiveInviteKey, now time.Time) (bool, error) {
	q := r.db.WithContext(ctx).
		Model(&model.Invite{}).
		Where("org_id = ? AND email = ? AND accepted_by IS NULL AND expires_at > ?", key.OrgID, key.Email, now)
	if key.UnitID != nil {
		q = q.Where("unit_id = ?", *key.UnitID)
	} else {
		q = q.Where("unit_id IS NULL")
	}
	if key.RoleID != nil {
		q = q.Where("role_id = ?", *key.RoleID)
	} else {
		q = q.Where("role = ? AND role_id IS NULL", key.Role)
	}
	var cnt int64
	if err := q.Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *inviteRepository) findOne(ctx context.Context, query string, arg any) (*model.Invite, error) {
	var inv model.Invite
	err := r.db.WithContext(ctx).Where(query, arg).First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInviteNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *inviteRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*model.Invite, error) {
	return r.findOne(ctx, "token_hash = ?", tokenHash)
}

func (r *inviteRepository) FindByJoinCode(ctx context.Context, joinCode string) (*model.Invite, error) {
	return r.findOne(ctx, "join_code = ?", joinCode)
}

func (r *inviteRepository) ListActive(ctx context.Context, orgID string, now time.Time, offset, limit int) ([]*model.Invite, error) {
	var res []*model.Invite
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND accepted_by IS NULL AND expires_at > ?", orgID, now).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *inviteRepository) CountByBatch(ctx context.Context, batchID string) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Invite{}).Where("batch_id = ?", batchID).Count(&cnt).Error
	return cnt, err
}

func (r *inviteRepository) MarkAccepted(ctx context.Context, id, userID string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Invite{}).
		Where("id = ? AND accepted_by IS NULL", id).
		Updates(map[string]any{"accepted_by": userID, "accepted_at": at})
	return res.RowsAffected > 0, res.Error
}

func (r *inviteRepository) DeletePending(ctx context.Context, orgID, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("org_id = ? AND id = ? AND accepted_by IS NULL", orgID, id).
		Delete(&model.Invite{})
	return res.RowsAffected > 0, res.Error
}
