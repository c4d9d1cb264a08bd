package biz

import (
	"context"
	"time"
)

// TenantStatus 租户状态（封闭枚举，避免无效状态字符串）
type TenantStatus string

const (
	StatusPendingApproval TenantStatus = "pending_approval"
	StatusTrial           TenantStatus = "trial"
	StatusActive          TenantStatus = "active"
	StatusPaymentWarning  TenantStatus = "payment_warning"
	StatusSuspended       TenantStatus = "suspended"
	StatusCanceled        TenantStatus = "canceled"
)

// SubscriptionPlan 订阅周期
type SubscriptionPlan string

const (
	PlanMonthly   SubscriptionPlan = "monthly"
	PlanQuarterly SubscriptionPlan = "quarterly"
	PlanAnnual    SubscriptionPlan = "annual"
)

// Valid 判断是否为已知订阅周期
func (p SubscriptionPlan) Valid() bool {
	switch p {
	case PlanMonthly, PlanQuarterly, PlanAnnual:
		return true
	}
	return false
}

// NextDueDate 按订阅周期推进下一个到期日
// 使用日历月运算，月末日期按标准日历规则归一化
func (p SubscriptionPlan) NextDueDate(from time.Time) time.Time {
	switch p {
	case PlanQuarterly:
		return from.AddDate(0, 3, 0)
	case PlanAnnual:
		return from.AddDate(1, 0, 0)
	default:
		return from.AddDate(0, 1, 0)
	}
}

// WarningStage 阶梯式预警档位（到期前的小时数）
type WarningStage int

const (
	Warning72h WarningStage = 72
	Warning48h WarningStage = 48
	Warning24h WarningStage = 24
)

// Offset 预警档位对应的到期前提前量
func (s WarningStage) Offset() time.Duration {
	return time.Duration(s) * time.Hour
}

// Tenant 租户计费记录
// Status 是冗余展示字段，权威的欠费判定由 AccessGate 动态重算
type Tenant struct {
	ID                    string
	Name                  string
	Status                TenantStatus
	PlanTier              string
	MemberLimit           int
	SubscriptionPlan      SubscriptionPlan
	NextBillingDate       *time.Time
	GracePeriodDays       int
	LastPaymentDate       *time.Time
	TrialEndsAt           *time.Time
	Warning72hSent        bool
	Warning72hSentAt      *time.Time
	Warning48hSent        bool
	Warning48hSentAt      *time.Time
	Warning24hSent        bool
	Warning24hSentAt      *time.Time
	ReferrerTenantID      string
	ReferralRewardClaimed bool
	OwnerMemberID         string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// CutoffDate 宽限截止日: nextBillingDate + gracePeriodDays
// 没有到期日时返回 nil
func (t *Tenant) CutoffDate() *time.Time {
	if t.NextBillingDate == nil {
		return nil
	}
	cutoff := t.NextBillingDate.AddDate(0, 0, t.GracePeriodDays)
	return &cutoff
}

// StatusHistoryEntry 状态变更历史（仅追加，不可变更）
type StatusHistoryEntry struct {
	ID         uint64
	TenantID   string
	FromStatus TenantStatus
	ToStatus   TenantStatus
	ChangedBy  string
	Reason     string
	CreatedAt  time.Time
}

// TenantBillingRepo 租户计费记录仓库接口
// 所有 Mark*/Claim* 方法都是存储层的原子条件更新（CAS），
// 返回 false 表示守卫条件已不成立（已被其他写入者处理）
type TenantBillingRepo interface {
	GetTenant(ctx context.Context, tenantID string) (*Tenant, error)
	SaveTenant(ctx context.Context, t *Tenant) error
	// 批量操作（用于定时任务）
	ListWarningCandidates(ctx context.Context, stage WarningStage, from, to time.Time) ([]*Tenant, error)
	// MarkWarningSent 的守卫重查完整的候选条件(标志、状态、窗口)，
	// 在查询和置位之间被重新激活的租户返回 false
	MarkWarningSent(ctx context.Context, tenantID string, stage WarningStage, at time.Time) (bool, error)
	ListSuspensionCandidates(ctx context.Context, now time.Time) ([]*Tenant, error)
	MarkSuspended(ctx context.Context, tenantID string, at time.Time) (bool, error)
	ListEndedTrials(ctx context.Context, now time.Time) ([]*Tenant, error)
	EndTrial(ctx context.Context, tenantID string, dueAt time.Time) (bool, error)
	ClaimReferralReward(ctx context.Context, tenantID string) (bool, error)
}

// StatusHistoryRepo 状态历史仓库接口
type StatusHistoryRepo interface {
	AppendStatusHistory(ctx context.Context, entry *StatusHistoryEntry) error
	ListStatusHistory(ctx context.Context, tenantID string, page, pageSize int) ([]*StatusHistoryEntry, int, error)
}

// Transaction 事务执行接口
type Transaction interface {
	Exec(ctx context.Context, fn func(ctx context.Context) error) error
}
