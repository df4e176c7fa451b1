package model

import (
	"strings"
	"time"
)

// InviteRole 组织内的基础角色
type InviteRole string

const (
	RoleAdmin   InviteRole = "admin"
	RoleManager InviteRole = "manager"
	RoleStaff   InviteRole = "staff"
	RoleTeacher InviteRole = "teacher"
	RoleStudent InviteRole = "student"
	RoleParent  InviteRole = "parent"
)

var validRoles = map[InviteRole]struct{}{
	RoleAdmin: {}, RoleManager: {}, RoleStaff: {}, RoleTeacher: {}, RoleStudent: {}, RoleParent: {},
}

// ParseInviteRole 大小写不敏感
func ParseInviteRole(s string) (InviteRole, bool) {
	r := InviteRole(strings.ToLower(strings.TrimSpace(s)))
	_, ok := validRoles[r]
	return r, ok
}

// Invite 组织邀请记录；token 只保存哈希，原文仅出现在邮件里
type Invite struct {
	ID         string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrgID      string     `json:"org_id" gorm:"type:varchar(36);not null;index:idx_invite_lookup"`
	BatchID    *string    `json:"batch_id,omitempty" gorm:"type:varchar(36);index"`
	Email      string     `json:"email" gorm:"type:varchar(320);not null;index:idx_invite_lookup"`
	Role       InviteRole `json:"role" gorm:"type:varchar(32);not null"`
	RoleID     *string    `json:"role_id,omitempty" gorm:"type:varchar(36)"`
	UnitID     *string    `json:"unit_id,omitempty" gorm:"type:varchar(36);index:idx_invite_lookup"`
	TokenHash  string     `json:"-" gorm:"type:varchar(64);not null;uniqueIndex"`
	JoinCode   string     `json:"join_code" gorm:"type:varchar(16);not null;uniqueIndex"`
	ExpiresAt  time.Time  `json:"expires_at" gorm:"not null;index"`
	AcceptedBy *string    `json:"accepted_by,omitempty" gorm:"type:varchar(36)"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	Meta       string     `json:"meta,omitempty" gorm:"type:text"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	// 活跃邀请 (org_id, email, unit_id, role/role_id) 只做写前检查，没有唯一约束
}

func (Invite) TableName() string { return "invites" }

// IsActive 未接受且未过期
func (i *Invite) IsActive(now time.Time) bool {
	return i.AcceptedBy == nil && now.Before(i.ExpiresAt)
}
