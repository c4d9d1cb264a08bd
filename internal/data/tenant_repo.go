package data

import (
	"context"
	"errors"
	"time"

	"github.com/SunshineAppV2/cantinhomda-sub002/internal/biz"
	"github.com/SunshineAppV2/cantinhomda-sub002/internal/constants"
	"github.com/SunshineAppV2/cantinhomda-sub002/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// tenantBillingRepo 租户计费仓库实现
type tenantBillingRepo struct {
	data *Data
	log  *log.Helper
}

// NewTenantBillingRepo 创建租户计费仓库
func NewTenantBillingRepo(data *Data, logger log.Logger) biz.TenantBillingRepo {
	return &tenantBillingRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// warningColumns 预警档位对应的标志/时间戳列
func warningColumns(stage biz.WarningStage) (flagCol, atCol string) {
	switch stage {
	case biz.Warning48h:
		return "warning_48h_sent", "warning_48h_sent_at"
	case biz.Warning24h:
		return "warning_24h_sent", "warning_24h_sent_at"
	default:
		return "warning_72h_sent", "warning_72h_sent_at"
	}
}

// warningStatuses 各档位的候选状态集合
// 72h 预警把 active 租户带入 payment_warning，后续两档要求已在 payment_warning
func warningStatuses(stage biz.WarningStage) []string {
	if stage == biz.Warning72h {
		return []string{string(biz.StatusActive), string(biz.StatusPaymentWarning)}
	}
	return []string{string(biz.StatusPaymentWarning)}
}

// GetTenant 获取租户计费记录，不存在时返回 nil
func (r *tenantBillingRepo) GetTenant(ctx context.Context, tenantID string) (*biz.Tenant, error) {
	var m model.Tenant
	err := r.data.DB(ctx).Where("tenant_id = ?", tenantID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.log.Errorf("Failed to get tenant %s: %v", tenantID, err)
		return nil, err
	}
	return toBizTenant(&m), nil
}

// SaveTenant 保存租户计费记录
// referral_reward_claimed 只经由 ClaimReferralReward 的条件更新置位，
// 整行写回不携带该列，避免并发激活用旧快照把已认领的标志复位
func (r *tenantBillingRepo) SaveTenant(ctx context.Context, t *biz.Tenant) error {
	m := toModelTenant(t)
	if err := r.data.DB(ctx).Omit("referral_reward_claimed").Save(m).Error; err != nil {
		r.log.Errorf("Failed to save tenant %s: %v", t.ID, err)
		return err
	}
	return nil
}

// ListWarningCandidates 查询进入预警窗口且未发送过该档预警的租户
func (r *tenantBillingRepo) ListWarningCandidates(ctx context.Context, stage biz.WarningStage, from, to time.Time) ([]*biz.Tenant, error) {
	flagCol, _ := warningColumns(stage)

	var models []model.Tenant
	if err := r.data.DB(ctx).
		Where("next_billing_date BETWEEN ? AND ?", from, to).
		Where("status IN ?", warningStatuses(stage)).
		Where(flagCol+" = ?", false).
		Order("next_billing_date ASC").
		Find(&models).Error; err != nil {
		r.log.Errorf("Failed to list %dh warning candidates: %v", stage, err)
		return nil, err
	}
	return toBizTenants(models), nil
}

// MarkWarningSent 置位预警标志
// 原子条件更新: 守卫重查完整的候选条件(标志未置位、状态、到期日仍在窗口内)，
// 在查询和置位之间被重新激活的租户不再匹配，RowsAffected = 0 表示守卫已不成立
func (r *tenantBillingRepo) MarkWarningSent(ctx context.Context, tenantID string, stage biz.WarningStage, at time.Time) (bool, error) {
	flagCol, atCol := warningColumns(stage)
	from := at.Add(stage.Offset() - constants.WarningWindow)
	to := at.Add(stage.Offset() + constants.WarningWindow)

	result := r.data.DB(ctx).Model(&model.Tenant{}).
		Where("tenant_id = ? AND "+flagCol+" = ?", tenantID, false).
		Where("status IN ?", warningStatuses(stage)).
		Where("next_billing_date BETWEEN ? AND ?", from, to).
		Updates(map[string]interface{}{
			flagCol:      true,
			atCol:        at,
			"status":     string(biz.StatusPaymentWarning),
			"updated_at": at,
		})
	if result.Error != nil {
		r.log.Errorf("Failed to mark %dh warning for tenant %s: %v", stage, tenantID, result.Error)
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListSuspensionCandidates 查询已过原始到期日的租户
// 停用以 next_billing_date 为准，不叠加宽限期
func (r *tenantBillingRepo) ListSuspensionCandidates(ctx context.Context, now time.Time) ([]*biz.Tenant, error) {
	var models []model.Tenant
	if err := r.data.DB(ctx).
		Where("next_billing_date <= ?", now).
		Where("status IN ?", []string{string(biz.StatusActive), string(biz.StatusPaymentWarning)}).
		Order("next_billing_date ASC").
		Find(&models).Error; err != nil {
		r.log.Errorf("Failed to list suspension candidates: %v", err)
		return nil, err
	}
	return toBizTenants(models), nil
}

// MarkSuspended 停用租户
// 原子条件更新: 仅从 active/payment_warning 状态转入 suspended,
// 对已停用的租户天然幂等
func (r *tenantBillingRepo) MarkSuspended(ctx context.Context, tenantID string, at time.Time) (bool, error) {
	result := r.data.DB(ctx).Model(&model.Tenant{}).
		Where("tenant_id = ? AND status IN ?", tenantID,
			[]string{string(biz.StatusActive), string(biz.StatusPaymentWarning)}).
		Updates(map[string]interface{}{
			"status":     string(biz.StatusSuspended),
			"updated_at": at,
		})
	if result.Error != nil {
		r.log.Errorf("Failed to suspend tenant %s: %v", tenantID, result.Error)
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListEndedTrials 查询试用期已结束的租户
func (r *tenantBillingRepo) ListEndedTrials(ctx context.Context, now time.Time) ([]*biz.Tenant, error) {
	var models []model.Tenant
	if err := r.data.DB(ctx).
		Where("status = ? AND trial_ends_at <= ?", string(biz.StatusTrial), now).
		Order("trial_ends_at ASC").
		Find(&models).Error; err != nil {
		r.log.Errorf("Failed to list ended trials: %v", err)
		return nil, err
	}
	return toBizTenants(models), nil
}

// EndTrial 结束试用期: trial → payment_warning，到期日立即生效
func (r *tenantBillingRepo) EndTrial(ctx context.Context, tenantID string, dueAt time.Time) (bool, error) {
	result := r.data.DB(ctx).Model(&model.Tenant{}).
		Where("tenant_id = ? AND status = ?", tenantID, string(biz.StatusTrial)).
		Updates(map[string]interface{}{
			"status":            string(biz.StatusPaymentWarning),
			"next_billing_date": dueAt,
			"updated_at":        dueAt,
		})
	if result.Error != nil {
		r.log.Errorf("Failed to end trial for tenant %s: %v", tenantID, result.Error)
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ClaimReferralReward 认领推荐奖励
// 原子条件更新: referral_reward_claimed 仅 false→true 一次，
// 并发的两次重新激活只有一个写入者能赢
func (r *tenantBillingRepo) ClaimReferralReward(ctx context.Context, tenantID string) (bool, error) {
	result := r.data.DB(ctx).Model(&model.Tenant{}).
		Where("tenant_id = ? AND referral_reward_claimed = ?", tenantID, false).
		Update("referral_reward_claimed", true)
	if result.Error != nil {
		r.log.Errorf("Failed to claim referral reward for tenant %s: %v", tenantID, result.Error)
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func toBizTenant(m *model.Tenant) *biz.Tenant {
	return &biz.Tenant{
		ID:                    m.TenantID,
		Name:                  m.Name,
		Status:                biz.TenantStatus(m.Status),
		PlanTier:              m.PlanTier,
		MemberLimit:           m.MemberLimit,
		SubscriptionPlan:      biz.SubscriptionPlan(m.SubscriptionPlan),
		NextBillingDate:       m.NextBillingDate,
		GracePeriodDays:       m.GracePeriodDays,
		LastPaymentDate:       m.LastPaymentDate,
		TrialEndsAt:           m.TrialEndsAt,
		Warning72hSent:        m.Warning72hSent,
		Warning72hSentAt:      m.Warning72hSentAt,
		Warning48hSent:        m.Warning48hSent,
		Warning48hSentAt:      m.Warning48hSentAt,
		Warning24hSent:        m.Warning24hSent,
		Warning24hSentAt:      m.Warning24hSentAt,
		ReferrerTenantID:      m.ReferrerTenantID,
		ReferralRewardClaimed: m.ReferralRewardClaimed,
		OwnerMemberID:         m.OwnerMemberID,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
}

func toBizTenants(models []model.Tenant) []*biz.Tenant {
	tenants := make([]*biz.Tenant, len(models))
	for i := range models {
		tenants[i] = toBizTenant(&models[i])
	}
	return tenants
}

func toModelTenant(t *biz.Tenant) *model.Tenant {
	return &model.Tenant{
		TenantID:              t.ID,
		Name:                  t.Name,
		Status:                string(t.Status),
		PlanTier:              t.PlanTier,
		MemberLimit:           t.MemberLimit,
		SubscriptionPlan:      string(t.SubscriptionPlan),
		NextBillingDate:       t.NextBillingDate,
		GracePeriodDays:       t.GracePeriodDays,
		LastPaymentDate:       t.LastPaymentDate,
		TrialEndsAt:           t.TrialEndsAt,
		Warning72hSent:        t.Warning72hSent,
		Warning72hSentAt:      t.Warning72hSentAt,
		Warning48hSent:        t.Warning48hSent,
		Warning48hSentAt:      t.Warning48hSentAt,
		Warning24hSent:        t.Warning24hSent,
		Warning24hSentAt:      t.Warning24hSentAt,
		ReferrerTenantID:      t.ReferrerTenantID,
		ReferralRewardClaimed: t.ReferralRewardClaimed,
		OwnerMemberID:         t.OwnerMemberID,
		CreatedAt:             t.CreatedAt,
		UpdatedAt:             t.UpdatedAt,
	}
}
