package model

import "time"

// Tenant 租户计费模型
type Tenant struct {
	TenantID              string     `gorm:"primaryKey;column:tenant_id;type:varchar(36)"`
	Name                  string     `gorm:"column:name"`
	Status                string     `gorm:"column:status;index"` // pending_approval, trial, active, payment_warning, suspended, canceled
	PlanTier              string     `gorm:"column:plan_tier"`
	MemberLimit           int        `gorm:"column:member_limit"`
	SubscriptionPlan      string     `gorm:"column:subscription_plan"` // monthly, quarterly, annual
	NextBillingDate       *time.Time `gorm:"column:next_billing_date;index"`
	GracePeriodDays       int        `gorm:"column:grace_period_days"`
	LastPaymentDate       *time.Time `gorm:"column:last_payment_date"`
	TrialEndsAt           *time.Time `gorm:"column:trial_ends_at;index"`
	Warning72hSent        bool       `gorm:"column:warning_72h_sent;default:false"`
	Warning72hSentAt      *time.Time `gorm:"column:warning_72h_sent_at"`
	Warning48hSent        bool       `gorm:"column:warning_48h_sent;default:false"`
	Warning48hSentAt      *time.Time `gorm:"column:warning_48h_sent_at"`
	Warning24hSent        bool       `gorm:"column:warning_24h_sent;default:false"`
	Warning24hSentAt      *time.Time `gorm:"column:warning_24h_sent_at"`
	ReferrerTenantID      string     `gorm:"column:referrer_tenant_id;type:varchar(36);index"`
	ReferralRewardClaimed bool       `gorm:"column:referral_reward_claimed;default:false"`
	OwnerMemberID         string     `gorm:"column:owner_member_id;type:varchar(36)"`
	CreatedAt             time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Tenant) TableName() string { return "tenant" }
