package model

import "time"

// BatchStatus 批次状态，只能前进：queued -> running -> done|error
type BatchStatus string

const (
	BatchQueued  BatchStatus = "queued"
	BatchRunning BatchStatus = "running"
	BatchDone    BatchStatus = "done"
	BatchError   BatchStatus = "error"
)

// IsTerminal done 与 error 为终态
func (s BatchStatus) IsTerminal() bool { return s == BatchDone || s == BatchError }

// Predecessors 返回允许迁移到 s 的前置状态
func (s BatchStatus) Predecessors() []BatchStatus {
	switch s {
	case BatchRunning:
		return []BatchStatus{BatchQueued}
	case BatchDone, BatchError:
		return []BatchStatus{BatchQueued, BatchRunning}
	default:
		return nil
	}
}

// InviteBatch 一次批量邀请的汇总；sent/failed 仅在派发结束后才是准确值
type InviteBatch struct {
	ID        string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrgID     string      `json:"org_id" gorm:"type:varchar(36);not null;index"`
	Total     int         `json:"total" gorm:"not null"`
	Status    BatchStatus `json:"status" gorm:"type:varchar(16);not null;index"`
	Sent      int         `json:"sent" gorm:"not null;default:0"`
	Failed    int         `json:"failed" gorm:"not null;default:0"`
	Skipped   int         `json:"skipped" gorm:"not null;default:0"`
	Message   string      `json:"message,omitempty" gorm:"type:text"`
	DryRun    bool        `json:"dry_run" gorm:"not null;default:false"`
	SendEmail bool        `json:"send_email" gorm:"not null"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func (InviteBatch) TableName() string { return "invite_batches" }
