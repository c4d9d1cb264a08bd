package biz

import (
	"context"
	"fmt"
	"time"

	"github.com/SunshineAppV2/cantinhomda-sub002/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// CreditStatus 推荐积分状态
type CreditStatus string

const (
	CreditAvailable CreditStatus = "available"
	CreditUsed      CreditStatus = "used"
	CreditExpired   CreditStatus = "expired"
)

// ReferralCredit 推荐积分：授予推荐人的限时折扣凭证
type ReferralCredit struct {
	ID            string
	OwnerTenantID string
	Status        CreditStatus
	ExpiresAt     time.Time
	CreatedAt     time.Time
}

// ReferralCreditRepo 推荐积分仓库接口
type ReferralCreditRepo interface {
	CountAvailableCredits(ctx context.Context, ownerTenantID string) (int, error)
	CreateCredit(ctx context.Context, credit *ReferralCredit) error
	// 批量操作（用于定时任务）
	ExpireDueCredits(ctx context.Context, now time.Time) (int64, error)
}

// ReferralCreditEngine 推荐积分引擎
// 积分时长按持有数递增(第1个30天、第2个60天、第3个90天)，
// 同时持有的 AVAILABLE 积分上限为 3，超出时静默跳过。
// 积分的消费(AVAILABLE→USED)由商店模块负责，不在本引擎内。
type ReferralCreditEngine struct {
	creditRepo ReferralCreditRepo
	tenantRepo TenantBillingRepo
	notifier   NotificationDispatcher
	tm         Transaction
	clock      Clock
	log        *log.Helper
}

// NewReferralCreditEngine 创建推荐积分引擎
func NewReferralCreditEngine(
	creditRepo ReferralCreditRepo,
	tenantRepo TenantBillingRepo,
	notifier NotificationDispatcher,
	tm Transaction,
	clock Clock,
	logger log.Logger,
) *ReferralCreditEngine {
	return &ReferralCreditEngine{
		creditRepo: creditRepo,
		tenantRepo: tenantRepo,
		notifier:   notifier,
		tm:         tm,
		clock:      clock,
		log:        log.NewHelper(logger),
	}
}

// Award 为推荐人授予一个积分
// 已持有 3 个 AVAILABLE 积分时为 no-op（静默封顶，不是错误），返回 nil。
// 计数和创建在同一个事务内，计数是锁定读，
// 两个被推荐租户同时激活时上限不会被突破
func (e *ReferralCreditEngine) Award(ctx context.Context, tenantID string) (*ReferralCredit, error) {
	var credit *ReferralCredit
	var duration time.Duration

	err := e.tm.Exec(ctx, func(ctx context.Context) error {
		count, err := e.creditRepo.CountAvailableCredits(ctx, tenantID)
		if err != nil {
			e.log.Errorf("Failed to count available credits for tenant %s: %v", tenantID, err)
			return err
		}
		if count >= constants.MaxAvailableCredits {
			e.log.Infof("Tenant %s already holds %d available credits, skipping award", tenantID, count)
			return nil
		}

		now := e.clock.Now()
		duration = time.Duration(count+1) * constants.ReferralCreditStep
		credit = &ReferralCredit{
			ID:            uuid.NewString(),
			OwnerTenantID: tenantID,
			Status:        CreditAvailable,
			ExpiresAt:     now.Add(duration),
			CreatedAt:     now,
		}
		if err := e.creditRepo.CreateCredit(ctx, credit); err != nil {
			e.log.Errorf("Failed to create referral credit for tenant %s: %v", tenantID, err)
			credit = nil
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if credit == nil {
		return nil, nil
	}
	e.log.Infof("Awarded referral credit to tenant %s: duration=%d days, expires=%s",
		tenantID, int(duration.Hours()/24), credit.ExpiresAt.Format(time.RFC3339))

	e.notifyOwner(ctx, tenantID, credit, duration)
	return credit, nil
}

// ExpireDueCredits 批量过期已到期的 AVAILABLE 积分
func (e *ReferralCreditEngine) ExpireDueCredits(ctx context.Context) (int64, error) {
	now := e.clock.Now()
	count, err := e.creditRepo.ExpireDueCredits(ctx, now)
	if err != nil {
		e.log.Errorf("Failed to expire referral credits: %v", err)
		return 0, err
	}
	if count > 0 {
		e.log.Infof("Expired %d referral credits", count)
	}
	return count, nil
}

// notifyOwner 通知推荐人的 owner，尽力投递
func (e *ReferralCreditEngine) notifyOwner(ctx context.Context, tenantID string, credit *ReferralCredit, duration time.Duration) {
	t, err := e.tenantRepo.GetTenant(ctx, tenantID)
	if err != nil || t == nil {
		e.log.Warnf("Cannot resolve owner of tenant %s for credit notification: %v", tenantID, err)
		return
	}
	body := fmt.Sprintf("A club you referred has activated its subscription. You earned a %d-day credit, valid until %s.",
		int(duration.Hours()/24), credit.ExpiresAt.Format("2006-01-02"))
	if err := e.notifier.Send(ctx, t.OwnerMemberID, "Referral credit earned", body, SeverityInfo); err != nil {
		e.log.Warnf("Failed to send referral credit notification to tenant %s: %v", tenantID, err)
	}
}
