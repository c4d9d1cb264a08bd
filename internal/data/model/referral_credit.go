package model

import "time"

// ReferralCredit 推荐积分模型
type ReferralCredit struct {
	CreditID      string    `gorm:"primaryKey;column:credit_id;type:varchar(36)"`
	OwnerTenantID string    `gorm:"column:owner_tenant_id;type:varchar(36);not null;index:idx_owner_status"`
	Status        string    `gorm:"column:status;index:idx_owner_status"` // available, used, expired
	ExpiresAt     time.Time `gorm:"column:expires_at;index"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (ReferralCredit) TableName() string { return "referral_credit" }
