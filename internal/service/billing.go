package service

import (
	"time"

	"github.com/SunshineAppV2/cantinhomda-sub002/internal/auth"
	"github.com/SunshineAppV2/cantinhomda-sub002/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/google/wire"
)

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(NewBillingService)

// BillingService 计费核心 HTTP 服务
type BillingService struct {
	uc           *biz.BillingUsecase
	reactivation *biz.ReactivationService
	sweeper      *biz.LifecycleSweeper
	clock        biz.Clock
	log          *log.Helper
}

// NewBillingService 创建计费服务
func NewBillingService(
	uc *biz.BillingUsecase,
	reactivation *biz.ReactivationService,
	sweeper *biz.LifecycleSweeper,
	clock biz.Clock,
	logger log.Logger,
) *BillingService {
	return &BillingService{
		uc:           uc,
		reactivation: reactivation,
		sweeper:      sweeper,
		clock:        clock,
		log:          log.NewHelper(logger),
	}
}

type billingStatusReply struct {
	TenantID         string     `json:"tenant_id"`
	Status           string     `json:"status"`
	SubscriptionPlan string     `json:"subscription_plan"`
	NextBillingDate  *time.Time `json:"next_billing_date,omitempty"`
	CutoffDate       *time.Time `json:"cutoff_date,omitempty"`
	GracePeriodDays  int        `json:"grace_period_days"`
	LastPaymentDate  *time.Time `json:"last_payment_date,omitempty"`
	TrialEndsAt      *time.Time `json:"trial_ends_at,omitempty"`
	Warning72hSent   bool       `json:"warning_72h_sent"`
	Warning48hSent   bool       `json:"warning_48h_sent"`
	Warning24hSent   bool       `json:"warning_24h_sent"`
	Overdue          bool       `json:"overdue"`
}

// GetBillingStatus 只读状态投影（仪表盘用，非闸门权威来源）
func (s *BillingService) GetBillingStatus(ctx http.Context) error {
	tenantID := ctx.Vars().Get("id")

	status, err := s.uc.GetBillingStatus(ctx, tenantID)
	if err != nil {
		return err
	}
	return ctx.Result(200, &billingStatusReply{
		TenantID:         status.TenantID,
		Status:           string(status.Status),
		SubscriptionPlan: string(status.SubscriptionPlan),
		NextBillingDate:  status.NextBillingDate,
		CutoffDate:       status.CutoffDate,
		GracePeriodDays:  status.GracePeriodDays,
		LastPaymentDate:  status.LastPaymentDate,
		TrialEndsAt:      status.TrialEndsAt,
		Warning72hSent:   status.Warning72hSent,
		Warning48hSent:   status.Warning48hSent,
		Warning24hSent:   status.Warning24hSent,
		Overdue:          status.Overdue,
	})
}

type statusHistoryItem struct {
	ID         uint64    `json:"id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ChangedBy  string    `json:"changed_by"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}

type statusHistoryReply struct {
	Items    []*statusHistoryItem `json:"items"`
	Total    int                  `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
}

// GetStatusHistory 状态历史（分页）
func (s *BillingService) GetStatusHistory(ctx http.Context) error {
	tenantID := ctx.Vars().Get("id")

	var q struct {
		Page     int `json:"page" form:"page"`
		PageSize int `json:"page_size" form:"page_size"`
	}
	if err := ctx.BindQuery(&q); err != nil {
		return err
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 10
	}

	items, total, err := s.uc.GetStatusHistory(ctx, tenantID, q.Page, q.PageSize)
	if err != nil {
		return err
	}

	replyItems := make([]*statusHistoryItem, len(items))
	for i, item := range items {
		replyItems[i] = &statusHistoryItem{
			ID:         item.ID,
			FromStatus: string(item.FromStatus),
			ToStatus:   string(item.ToStatus),
			ChangedBy:  item.ChangedBy,
			Reason:     item.Reason,
			CreatedAt:  item.CreatedAt,
		}
	}
	return ctx.Result(200, &statusHistoryReply{
		Items:    replyItems,
		Total:    total,
		Page:     q.Page,
		PageSize: q.PageSize,
	})
}

type checkLoginRequest struct {
	Role string `json:"role"`
}

type accessReply struct {
	Allowed bool `json:"allowed"`
}

// CheckLoginAccess 登录路径闸门：会话服务在签发会话前调用
func (s *BillingService) CheckLoginAccess(ctx http.Context) error {
	tenantID := ctx.Vars().Get("id")

	var req checkLoginRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}

	if err := s.uc.CheckLoginAccess(ctx, tenantID, auth.Role(req.Role)); err != nil {
		return err
	}
	return ctx.Result(200, &accessReply{Allowed: true})
}

// CheckWriteAccess 写路径闸门：其余功能模块在每次租户范围写操作前调用
func (s *BillingService) CheckWriteAccess(ctx http.Context) error {
	tenantID := ctx.Vars().Get("id")

	if err := s.uc.CheckWriteAccess(ctx, tenantID); err != nil {
		return err
	}
	return ctx.Result(200, &accessReply{Allowed: true})
}

type reactivateRequest struct {
	Plan    string `json:"plan"`
	ActorID string `json:"actor_id"`
}

type tenantReply struct {
	TenantID        string     `json:"tenant_id"`
	Status          string     `json:"status"`
	Plan            string     `json:"plan"`
	NextBillingDate *time.Time `json:"next_billing_date,omitempty"`
	LastPaymentDate *time.Time `json:"last_payment_date,omitempty"`
}

// Reactivate 支付确认回调触发的重新激活
func (s *BillingService) Reactivate(ctx http.Context) error {
	tenantID := ctx.Vars().Get("id")

	var req reactivateRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}

	t, err := s.reactivation.Reactivate(ctx, tenantID, biz.SubscriptionPlan(req.Plan), req.ActorID)
	if err != nil {
		return err
	}
	return ctx.Result(200, &tenantReply{
		TenantID:        t.ID,
		Status:          string(t.Status),
		Plan:            string(t.SubscriptionPlan),
		NextBillingDate: t.NextBillingDate,
		LastPaymentDate: t.LastPaymentDate,
	})
}

type approveRequest struct {
	ActorID string `json:"actor_id"`
}

// Approve 审批通过待审租户
func (s *BillingService) Approve(ctx http.Context) error {
	tenantID := ctx.Vars().Get("id")

	var req approveRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}

	t, err := s.uc.ApproveTenant(ctx, tenantID, req.ActorID)
	if err != nil {
		return err
	}
	return ctx.Result(200, &tenantReply{
		TenantID:        t.ID,
		Status:          string(t.Status),
		Plan:            string(t.SubscriptionPlan),
		NextBillingDate: t.NextBillingDate,
	})
}

type cancelRequest struct {
	ActorID string `json:"actor_id"`
	Reason  string `json:"reason"`
}

type cancelReply struct {
	Success bool `json:"success"`
}

// Cancel 显式取消租户订阅
func (s *BillingService) Cancel(ctx http.Context) error {
	tenantID := ctx.Vars().Get("id")

	var req cancelRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}

	if err := s.uc.CancelTenant(ctx, tenantID, req.ActorID, req.Reason); err != nil {
		return err
	}
	return ctx.Result(200, &cancelReply{Success: true})
}

type sweepReply struct {
	Warned72    int `json:"warned_72"`
	Warned48    int `json:"warned_48"`
	Warned24    int `json:"warned_24"`
	Suspended   int `json:"suspended"`
	TrialsEnded int `json:"trials_ended"`
}

// RunSweep 按需触发一次生命周期扫描（调度器之外的手动入口）
func (s *BillingService) RunSweep(ctx http.Context) error {
	report, err := s.sweeper.RunSweep(ctx, s.clock.Now())
	if err != nil {
		return err
	}
	return ctx.Result(200, &sweepReply{
		Warned72:    report.Warned72,
		Warned48:    report.Warned48,
		Warned24:    report.Warned24,
		Suspended:   report.Suspended,
		TrialsEnded: report.TrialsEnded,
	})
}
