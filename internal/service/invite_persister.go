package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/invitebatch/internal/model"
	"github.com/d60-Lab/invitebatch/internal/repository"
)

// 加入码冲突时的最大重试次数
const joinCodeAttempts = 5

var errJoinCodeExhausted = errors.New("no free join code")

// 跳过原因
const (
	SkipInvalidRole    = "invalid_role"
	SkipRoleNotFound   = "role_not_found"
	SkipRoleMismatch   = "role_mismatch"
	SkipAlreadyInvited = "already_invited"
)

type PersistOptions struct {
	ExpiresInDays int
	SendEmail     bool
	DryRun        bool
}

// SkipReason 某条去重后的邀请为何没有创建
type SkipReason struct {
	Index  int    `json:"index"`
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// CreatedInvite 新建的邀请与其 token 原文（只在内存里传给派发器）
type CreatedInvite struct {
	Invite *model.Invite
	Token  string
}

type PersistResult struct {
	Batch   *model.InviteBatch
	Created []CreatedInvite
	Skipped []SkipReason
}

// BatchPersister 在一个事务内写入批次与邀请
type BatchPersister struct {
	db       *gorm.DB
	batches  repository.BatchRepository
	invites  repository.InviteRepository
	roles    repository.RoleRepository
	now      func() time.Time
	joinCode func() (string, error)
}

func NewBatchPersister(db *gorm.DB, batches repository.BatchRepository, invites repository.InviteRepository, roles repository.RoleRepository) *BatchPersister {
	return &BatchPersister{
		db:       db,
		batches:  batches,
		invites:  invites,
		roles:    roles,
		now:      func() time.Time { return time.Now().UTC() },
		joinCode: newJoinCode,
	}
}

// Persist 要么全部落库，要么什么都不留下。dryRun 只记录 total，不创建邀请
func (p *BatchPersister) Persist(ctx context.Context, orgID string, items []InviteRequest, opts PersistOptions) (*PersistResult, error) {
	now := p.now()
	batch := &model.InviteBatch{
		ID:        uuid.New().String(),
		OrgID:     orgID,
		Total:     len(items),
		Status:    model.BatchQueued,
		DryRun:    opts.DryRun,
		SendEmail: opts.SendEmail && !opts.DryRun,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if opts.DryRun {
		batch.Status = model.BatchDone
		if err := p.batches.Create(ctx, batch); err != nil {
			return nil, fmt.Errorf("create dry-run batch: %w", err)
		}
		return &PersistResult{Batch: batch}, nil
	}

	res := &PersistResult{Batch: batch}
	expiresAt := now.Add(time.Duration(opts.ExpiresInDays) * 24 * time.Hour)

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invites := p.invites.WithTx(tx)
		roles := p.roles.WithTx(tx)

		for i, it := range items {
			email := normalizeEmail(it.Email)
			skip := func(reason string) {
				res.Skipped = append(res.Skipped, SkipReason{Index: i, Email: email, Reason: reason})
			}

			var role model.InviteRole
			if it.Role != "" {
				r, ok := model.ParseInviteRole(it.Role)
				if !ok {
					skip(SkipInvalidRole)
					continue
				}
				role = r
			}

			var roleID *string
			if it.RoleID != "" {
				orgRole, err := roles.FindInOrg(ctx, orgID, it.RoleID)
				if err != nil {
					return fmt.Errorf("resolve role %s: %w", it.RoleID, err)
				}
				if orgRole == nil {
					skip(SkipRoleNotFound)
					continue
				}
				if role != "" && role != orgRole.BaseRole {
					skip(SkipRoleMismatch)
					continue
				}
				role = orgRole.BaseRole
				id := orgRole.ID
				roleID = &id
			}
			if role == "" {
				skip(SkipInvalidRole)
				continue
			}

			var unitID *string
			if it.UnitID != "" {
				u := it.UnitID
				unitID = &u
			}

			// 写前检查没有唯一约束兜底：并发提交同一 (org, email, unit, role) 时两边都可能建出邀请
			exists, err := invites.ExistsActive(ctx, repository.ActiveInviteKey{
				OrgID: orgID, Email: email, Role: role, RoleID: roleID, UnitID: unitID,
			}, now)
			if err != nil {
				return fmt.Errorf("check active invite for %s: %w", email, err)
			}
			if exists {
				skip(SkipAlreadyInvited)
				continue
			}

			raw, hash, err := newInviteToken()
			if err != nil {
				return fmt.Errorf("generate token: %w", err)
			}
			code, err := p.uniqueJoinCode(ctx, invites)
			if err != nil {
				return fmt.Errorf("generate join code: %w", err)
			}
			inv := &model.Invite{
				ID:        uuid.New().String(),
				OrgID:     orgID,
				BatchID:   &batch.ID,
				Email:     email,
				Role:      role,
				RoleID:    roleID,
				UnitID:    unitID,
				TokenHash: hash,
				JoinCode:  code,
				ExpiresAt: expiresAt,
				Meta:      string(it.Meta),
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := invites.Create(ctx, inv); err != nil {
				return fmt.Errorf("create invite for %s: %w", email, err)
			}
			res.Created = append(res.Created, CreatedInvite{Invite: inv, Token: raw})
		}

		batch.Skipped = len(res.Skipped)
		if !batch.SendEmail {
			batch.Status = model.BatchDone
		}
		return p.batches.WithTx(tx).Create(ctx, batch)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// uniqueJoinCode 在事务内查重；postgres 中插入冲突会让整个事务失效，所以先查后写
func (p *BatchPersister) uniqueJoinCode(ctx context.Context, invites repository.InviteRepository) (string, error) {
	for i := 0; i < joinCodeAttempts; i++ {
		code, err := p.joinCode()
		if err != nil {
			return "", err
		}
		_, err = invites.FindByJoinCode(ctx, code)
		if errors.Is(err, repository.ErrInviteNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", errJoinCodeExhausted
}
