package data

import (
	"context"
	"time"

	"github.com/SunshineAppV2/cantinhomda-sub002/internal/biz"
	"github.com/SunshineAppV2/cantinhomda-sub002/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm/clause"
)

// referralCreditRepo 推荐积分仓库实现
type referralCreditRepo struct {
	data *Data
	log  *log.Helper
}

// NewReferralCreditRepo 创建推荐积分仓库
func NewReferralCreditRepo(data *Data, logger log.Logger) biz.ReferralCreditRepo {
	return &referralCreditRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// CountAvailableCredits 统计租户当前持有的 AVAILABLE 积分数
// 锁定读: 在授予事务内持有该租户积分的索引区间锁，
// 并发的计数+插入被串行化，AVAILABLE 上限不会被突破
func (r *referralCreditRepo) CountAvailableCredits(ctx context.Context, ownerTenantID string) (int, error) {
	var total int64
	if err := r.data.DB(ctx).Model(&model.ReferralCredit{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("owner_tenant_id = ? AND status = ?", ownerTenantID, string(biz.CreditAvailable)).
		Count(&total).Error; err != nil {
		r.log.Errorf("Failed to count available credits for tenant %s: %v", ownerTenantID, err)
		return 0, err
	}
	return int(total), nil
}

// CreateCredit 创建积分记录
func (r *referralCreditRepo) CreateCredit(ctx context.Context, credit *biz.ReferralCredit) error {
	m := &model.ReferralCredit{
		CreditID:      credit.ID,
		OwnerTenantID: credit.OwnerTenantID,
		Status:        string(credit.Status),
		ExpiresAt:     credit.ExpiresAt,
		CreatedAt:     credit.CreatedAt,
	}
	if err := r.data.DB(ctx).Create(m).Error; err != nil {
		r.log.Errorf("Failed to create referral credit for tenant %s: %v", credit.OwnerTenantID, err)
		return err
	}
	return nil
}

// ExpireDueCredits 批量过期已到期的 AVAILABLE 积分
func (r *referralCreditRepo) ExpireDueCredits(ctx context.Context, now time.Time) (int64, error) {
	result := r.data.DB(ctx).Model(&model.ReferralCredit{}).
		Where("status = ? AND expires_at <= ?", string(biz.CreditAvailable), now).
		Update("status", string(biz.CreditExpired))
	if result.Error != nil {
		r.log.Errorf("Failed to expire referral credits: %v", result.Error)
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
