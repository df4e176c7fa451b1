package model

import "time"

// OrgRole 组织自定义角色（由组织管理模块维护，这里只读）
type OrgRole struct {
	ID        string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrgID     string     `json:"org_id" gorm:"type:varchar(36);not null;index"`
	Name      string     `json:"name" gorm:"type:varchar(64);not null"`
	BaseRole  InviteRole `json:"base_role" gorm:"type:varchar(32);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (OrgRole) TableName() string { return "org_roles" }
