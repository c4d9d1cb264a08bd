package biz

import (
	"context"
	"fmt"
	"time"

	"github.com/SunshineAppV2/cantinhomda-sub002/internal/constants"
	"github.com/SunshineAppV2/cantinhomda-sub002/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redsync/redsync/v4"
)

// SweepReport 单次生命周期扫描的结果统计
type SweepReport struct {
	Warned72    int
	Warned48    int
	Warned24    int
	Suspended   int
	TrialsEnded int
}

// LifecycleSweeper 生命周期扫描任务
// 由外部调度器周期性触发(例如每6小时)，也可按需手动触发。
// 扫描崩溃后可安全重跑：每个子扫描都基于当前状态重新计算候选集，
// 只在守卫标志仍为 false 时动作。
type LifecycleSweeper struct {
	repo        TenantBillingRepo
	historyRepo StatusHistoryRepo
	notifier    NotificationDispatcher
	rs          *redsync.Redsync
	log         *log.Helper
}

// NewLifecycleSweeper 创建生命周期扫描任务
func NewLifecycleSweeper(
	repo TenantBillingRepo,
	historyRepo StatusHistoryRepo,
	notifier NotificationDispatcher,
	rs *redsync.Redsync,
	logger log.Logger,
) *LifecycleSweeper {
	return &LifecycleSweeper{
		repo:        repo,
		historyRepo: historyRepo,
		notifier:    notifier,
		rs:          rs,
		log:         log.NewHelper(logger),
	}
}

// RunSweep 执行一次完整扫描
// 五个独立有序的子扫描: 72h/48h/24h 预警、停用、试用期结束。
// 集群内单飞：守卫检查是先读后写，两次并发扫描会重复发送预警，
// 因此整个扫描持有一把分布式锁。
// 单个租户的失败(如通知发送失败)只记录日志，不中断扫描；
// 只有存储不可达这类失败才中止整次运行。
func (s *LifecycleSweeper) RunSweep(ctx context.Context, now time.Time) (*SweepReport, error) {
	mutex := s.rs.NewMutex(
		constants.SweepLockKey,
		redsync.WithExpiry(constants.SweepLockExpiration),
		redsync.WithTries(constants.SweepLockRetries),
	)
	if err := mutex.LockContext(ctx); err != nil {
		s.log.Infof("Skipping sweep: lock busy, another sweep is running")
		return nil, errors.SweepInProgress()
	}
	defer func() {
		if _, err := mutex.UnlockContext(ctx); err != nil {
			s.log.Warnf("Failed to release sweep lock: %v", err)
		}
	}()

	s.log.Infof("Starting lifecycle sweep at %s", now.Format(time.RFC3339))
	report := &SweepReport{}

	for _, stage := range []WarningStage{Warning72h, Warning48h, Warning24h} {
		count, err := s.sweepWarnings(ctx, now, stage)
		if err != nil {
			return report, err
		}
		switch stage {
		case Warning72h:
			report.Warned72 = count
		case Warning48h:
			report.Warned48 = count
		case Warning24h:
			report.Warned24 = count
		}
	}

	suspended, err := s.sweepSuspensions(ctx, now)
	if err != nil {
		return report, err
	}
	report.Suspended = suspended

	// 试用期扫描排在停用之后：试用结束的租户本次只标记为立即到期，
	// 在后续扫描中走正常的预警/停用管道，而不是当场停用
	trialsEnded, err := s.sweepEndedTrials(ctx, now)
	if err != nil {
		return report, err
	}
	report.TrialsEnded = trialsEnded

	s.log.Infof("Lifecycle sweep completed: warned72=%d, warned48=%d, warned24=%d, suspended=%d, trialsEnded=%d",
		report.Warned72, report.Warned48, report.Warned24, report.Suspended, report.TrialsEnded)
	return report, nil
}

// sweepWarnings 单个预警档位的子扫描
// 候选窗口为 [now+offset-30m, now+offset+30m]，窗口补偿离散的扫描间隔
func (s *LifecycleSweeper) sweepWarnings(ctx context.Context, now time.Time, stage WarningStage) (int, error) {
	from := now.Add(stage.Offset() - constants.WarningWindow)
	to := now.Add(stage.Offset() + constants.WarningWindow)

	candidates, err := s.repo.ListWarningCandidates(ctx, stage, from, to)
	if err != nil {
		s.log.Errorf("Failed to list %dh warning candidates: %v", stage, err)
		return 0, err
	}

	count := 0
	for _, t := range candidates {
		// 原子条件更新：标志已被置位说明其他写入者已处理，直接跳过
		ok, err := s.repo.MarkWarningSent(ctx, t.ID, stage, now)
		if err != nil {
			s.log.Errorf("Failed to mark %dh warning for tenant %s: %v", stage, t.ID, err)
			continue
		}
		if !ok {
			continue
		}

		// 72h 预警首次把 active 租户转入 payment_warning，记录状态变更
		if t.Status != StatusPaymentWarning {
			s.appendHistory(ctx, t.ID, t.Status, StatusPaymentWarning,
				constants.SystemActor, "approaching due date — payment warning")
		}

		title, body, severity := warningMessage(stage)
		if err := s.notifier.Send(ctx, t.OwnerMemberID, title, body, severity); err != nil {
			s.log.Warnf("Failed to send %dh warning notification to tenant %s: %v", stage, t.ID, err)
		}
		count++
	}
	return count, nil
}

// sweepSuspensions 停用子扫描
// 停用以原始到期日为准(nextBillingDate <= now)，不含宽限期：
// 宽限期只软化 AccessGate 的登录/写判定，不推迟停用的记账时间点
func (s *LifecycleSweeper) sweepSuspensions(ctx context.Context, now time.Time) (int, error) {
	candidates, err := s.repo.ListSuspensionCandidates(ctx, now)
	if err != nil {
		s.log.Errorf("Failed to list suspension candidates: %v", err)
		return 0, err
	}

	count := 0
	for _, t := range candidates {
		ok, err := s.repo.MarkSuspended(ctx, t.ID, now)
		if err != nil {
			s.log.Errorf("Failed to suspend tenant %s: %v", t.ID, err)
			continue
		}
		if !ok {
			continue
		}

		s.appendHistory(ctx, t.ID, t.Status, StatusSuspended,
			constants.SystemActor, "payment overdue — automatic suspension")

		if err := s.notifier.Send(ctx, t.OwnerMemberID,
			"Account suspended",
			"Your club's subscription payment is overdue and the account has been suspended. Reactivate to restore access.",
			SeverityCritical); err != nil {
			s.log.Warnf("Failed to send suspension notification to tenant %s: %v", t.ID, err)
		}
		count++
	}
	return count, nil
}

// sweepEndedTrials 试用期结束子扫描
// 到期的试用租户转入 payment_warning 并立即到期(nextBillingDate=now)
func (s *LifecycleSweeper) sweepEndedTrials(ctx context.Context, now time.Time) (int, error) {
	candidates, err := s.repo.ListEndedTrials(ctx, now)
	if err != nil {
		s.log.Errorf("Failed to list ended trials: %v", err)
		return 0, err
	}

	count := 0
	for _, t := range candidates {
		ok, err := s.repo.EndTrial(ctx, t.ID, now)
		if err != nil {
			s.log.Errorf("Failed to end trial for tenant %s: %v", t.ID, err)
			continue
		}
		if !ok {
			continue
		}

		s.appendHistory(ctx, t.ID, StatusTrial, StatusPaymentWarning,
			constants.SystemActor, "trial ended — payment now due")

		if err := s.notifier.Send(ctx, t.OwnerMemberID,
			"Trial ended",
			"Your club's trial period has ended. Choose a plan and confirm payment to keep full access.",
			SeverityWarning); err != nil {
			s.log.Warnf("Failed to send trial-end notification to tenant %s: %v", t.ID, err)
		}
		count++
	}
	return count, nil
}

// appendHistory 追加状态历史，失败不影响主流程，只记录日志
func (s *LifecycleSweeper) appendHistory(ctx context.Context, tenantID string, from, to TenantStatus, actor, reason string) {
	entry := &StatusHistoryEntry{
		TenantID:   tenantID,
		FromStatus: from,
		ToStatus:   to,
		ChangedBy:  actor,
		Reason:     reason,
	}
	if err := s.historyRepo.AppendStatusHistory(ctx, entry); err != nil {
		s.log.Errorf("Failed to append status history for tenant %s: %v", tenantID, err)
	}
}

// warningMessage 各预警档位的通知内容
// 24h 是停用前最后一次预警，只在内容和级别上区别于前两档
func warningMessage(stage WarningStage) (title, body string, severity Severity) {
	days := int(stage / 24)
	switch stage {
	case Warning24h:
		return "Final notice: payment due tomorrow",
			"Your club's subscription payment is due in 1 day. The account will be suspended if payment is not confirmed.",
			SeverityCritical
	default:
		return "Payment due soon",
			fmt.Sprintf("Your club's subscription payment is due in %d days.", days),
			SeverityWarning
	}
}
