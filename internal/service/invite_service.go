package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/invitebatch/internal/model"
	"github.com/d60-Lab/invitebatch/internal/repository"
	"github.com/d60-Lab/invitebatch/pkg/logger"
)

var (
	ErrInviteNotFound        = repository.ErrInviteNotFound
	ErrInviteExpired         = errors.New("invite expired")
	ErrInviteAlreadyAccepted = errors.New("invite already accepted")
	ErrInviteCodeRequired    = errors.New("token or join code is required")
)

// InviteService 单条邀请的查询、撤销与接受
type InviteService interface {
	ListActive(ctx context.Context, orgID string, page, pageSize int) ([]*model.Invite, error)
	Revoke(ctx context.Context, orgID, inviteID string) error
	Accept(ctx context.Context, userID, token, joinCode string) (*model.Invite, error)
}

type inviteService struct {
	invites repository.InviteRepository
	now     func() time.Time
}

func NewInviteService(invites repository.InviteRepository) InviteService {
	return &inviteService{invites: invites, now: func() time.Time { return time.Now().UTC() }}
}

func (s *inviteService) ListActive(ctx context.Context, orgID string, page, pageSize int) ([]*model.Invite, error) {
	if page < 1 { page = 1 }
	if pageSize < 1 { pageSize = 10 }
	if pageSize > 100 { pageSize = 100 }
	offset := (page - 1) * pageSize
	return s.invites.ListActive(ctx, orgID, s.now(), offset, pageSize)
}

func (s *inviteService) Revoke(ctx context.Context, orgID, inviteID string) error {
	ok, err := s.invites.DeletePending(ctx, orgID, inviteID)
	if err != nil { return err }
	if !ok { return ErrInviteNotFound }
	logger.Info("invite revoked", zap.String("org_id", orgID), zap.String("invite_id", inviteID))
	return nil
}

// Accept token 与加入码二选一，同一邀请只能被接受一次
func (s *inviteService) Accept(ctx context.Context, userID, token, joinCode string) (*model.Invite, error) {
	var (
		inv *model.Invite
		err error
	)
	switch {
	case token != "":
		inv, err = s.invites.FindByTokenHash(ctx, HashToken(token))
	case joinCode != "":
		inv, err = s.invites.FindByJoinCode(ctx, NormalizeJoinCode(joinCode))
	default:
		return nil, ErrInviteCodeRequired
	}
	if err != nil { return nil, err }

	now := s.now()
	if inv.AcceptedBy != nil { return nil, ErrInviteAlreadyAccepted }
	if !now.Before(inv.ExpiresAt) { return nil, ErrInviteExpired }

	ok, err := s.invites.MarkAccepted(ctx, inv.ID, userID, now)
	if err != nil { return nil, err }
	if !ok { return nil, ErrInviteAlreadyAccepted }

	inv.AcceptedBy = &userID
	inv.AcceptedAt = &now
	logger.Info("invite accepted", zap.String("org_id", inv.OrgID), zap.String("invite_id", inv.ID), zap.String("user_id", userID))
	return inv, nil
}
