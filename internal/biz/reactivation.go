package biz

import (
	"context"
	"time"

	"github.com/SunshineAppV2/cantinhomda-sub002/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
)

// ReactivationService 重新激活服务
// 由支付确认回调(外部)触发：套用已确认的付款，重算下一个到期日，
// 重置预警状态，并在首次激活时触发推荐积分授予
type ReactivationService struct {
	repo        TenantBillingRepo
	historyRepo StatusHistoryRepo
	credits     *ReferralCreditEngine
	tm          Transaction
	clock       Clock
	log         *log.Helper
}

// NewReactivationService 创建重新激活服务
func NewReactivationService(
	repo TenantBillingRepo,
	historyRepo StatusHistoryRepo,
	credits *ReferralCreditEngine,
	tm Transaction,
	clock Clock,
	logger log.Logger,
) *ReactivationService {
	return &ReactivationService{
		repo:        repo,
		historyRepo: historyRepo,
		credits:     credits,
		tm:          tm,
		clock:       clock,
		log:         log.NewHelper(logger),
	}
}

// Reactivate 套用一次已确认的付款
// nextBillingDate = now + 订阅周期(日历月运算)，状态转为 active，
// 三个预警标志和时间戳全部重置，并追加状态历史
func (s *ReactivationService) Reactivate(ctx context.Context, tenantID string, plan SubscriptionPlan, actorID string) (*Tenant, error) {
	s.log.Infof("Reactivate: tenantID=%s, plan=%s, actorID=%s", tenantID, plan, actorID)

	if !plan.Valid() {
		return nil, errors.InvalidPlan(string(plan))
	}

	var tenant *Tenant
	err := s.tm.Exec(ctx, func(ctx context.Context) error {
		t, err := s.repo.GetTenant(ctx, tenantID)
		if err != nil {
			s.log.Errorf("Failed to get tenant %s: %v", tenantID, err)
			return err
		}
		if t == nil {
			return errors.TenantNotFound(tenantID)
		}
		if t.Status == StatusCanceled {
			return errors.InvalidStatusTransition("canceled tenants cannot be reactivated")
		}

		now := s.clock.Now()
		fromStatus := t.Status
		nextDue := plan.NextDueDate(now)

		t.Status = StatusActive
		t.SubscriptionPlan = plan
		t.NextBillingDate = &nextDue
		t.LastPaymentDate = &now
		t.Warning72hSent = false
		t.Warning72hSentAt = nil
		t.Warning48hSent = false
		t.Warning48hSentAt = nil
		t.Warning24hSent = false
		t.Warning24hSentAt = nil
		t.UpdatedAt = now

		if err := s.repo.SaveTenant(ctx, t); err != nil {
			s.log.Errorf("Failed to save tenant %s: %v", tenantID, err)
			return err
		}

		entry := &StatusHistoryEntry{
			TenantID:   t.ID,
			FromStatus: fromStatus,
			ToStatus:   StatusActive,
			ChangedBy:  actorID,
			Reason:     "payment confirmed",
			CreatedAt:  now,
		}
		if err := s.historyRepo.AppendStatusHistory(ctx, entry); err != nil {
			s.log.Errorf("Failed to append status history for tenant %s: %v", tenantID, err)
			return err
		}

		tenant = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.awardReferral(ctx, tenant)

	s.log.Infof("Tenant %s reactivated: nextBillingDate=%s", tenantID, tenant.NextBillingDate.Format(time.RFC3339))
	return tenant, nil
}

// awardReferral 首次激活时为推荐人授予积分
// referralRewardClaimed 的置位是存储层的原子条件更新(仅 false→true 一次)，
// 两次并发的重新激活只有一个能赢得该更新，不会重复授奖
func (s *ReactivationService) awardReferral(ctx context.Context, t *Tenant) {
	if t.ReferrerTenantID == "" || t.ReferralRewardClaimed {
		return
	}

	claimed, err := s.repo.ClaimReferralReward(ctx, t.ID)
	if err != nil {
		s.log.Errorf("Failed to claim referral reward for tenant %s: %v", t.ID, err)
		return
	}
	if !claimed {
		// 输掉 CAS 竞争：已被并发的激活处理，跳过即可
		s.log.Infof("Referral reward for tenant %s already claimed, skipping", t.ID)
		return
	}
	t.ReferralRewardClaimed = true

	if _, err := s.credits.Award(ctx, t.ReferrerTenantID); err != nil {
		s.log.Errorf("Failed to award referral credit to tenant %s: %v", t.ReferrerTenantID, err)
	}
}
