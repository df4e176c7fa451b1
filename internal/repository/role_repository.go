package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/invitebatch/internal/model"
)

// RoleRepository 组织角色只读查询（写入仅供初始化与测试）
type RoleRepository interface {
	Create(ctx context.Context, role *model.OrgRole) error
	// FindInOrg 角色不存在或不属于该组织时返回 nil, nil
	FindInOrg(ctx context.Context, orgID, roleID string) (*model.OrgRole, error)
	WithTx(tx *gorm.DB) RoleRepository
}

type roleRepository struct{ db *gorm.DB }

func NewRoleRepository(db *gorm.DB) RoleRepository { return &roleRepository{db: db} }

func (r *roleRepository) WithTx(tx *gorm.DB) RoleRepository { return &roleRepository{db: tx} }

func (r *roleRepository) Create(ctx context.Context, role *model.OrgRole) error {
	if role.ID == "" {
		role.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Create(role).Error
}

func (r *roleRepository) FindInOrg(ctx context.Context, orgID, roleID string) (*model.OrgRole, error) {
	var role model.OrgRole
	err := r.db.WithContext(ctx).Where("id = ? AND org_id = ?", roleID, orgID).First(&role).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}
