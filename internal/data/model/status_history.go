package model

import "time"

// StatusHistory 租户状态历史模型（仅追加）
type StatusHistory struct {
	StatusHistoryID uint64    `gorm:"primaryKey;column:status_history_id;autoIncrement"`
	TenantID        string    `gorm:"column:tenant_id;type:varchar(36);index"`
	FromStatus      string    `gorm:"column:from_status"`
	ToStatus        string    `gorm:"column:to_status"`
	ChangedBy       string    `gorm:"column:changed_by"` // 操作者ID 或 SYSTEM
	Reason          string    `gorm:"column:reason"`
	CreatedAt       time.Time `gorm:"column:created_at"`
}

func (StatusHistory) TableName() string { return "status_history" }
