package data

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/SunshineAppV2/cantinhomda-sub002/internal/biz"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupMockRepo(t *testing.T) (sqlmock.Sqlmock, biz.TenantBillingRepo) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gdb, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)

	repo := NewTenantBillingRepo(&Data{db: gdb}, log.NewStdLogger(io.Discard))
	return mock, repo
}

func TestGetTenant_Found(t *testing.T) {
	mock, repo := setupMockRepo(t)

	due := time.Date(2026, 3, 13, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"tenant_id", "name", "status", "subscription_plan",
		"next_billing_date", "grace_period_days", "warning_72h_sent", "owner_member_id",
	}).AddRow("t-1", "Clube Azul", "payment_warning", "monthly", due, 5, true, "m-1")

	mock.ExpectQuery("SELECT \\* FROM `tenant` WHERE tenant_id = \\?").
		WillReturnRows(rows)

	tenant, err := repo.GetTenant(context.Background(), "t-1")
	require.NoError(t, err)
	require.NotNil(t, tenant)
	assert.Equal(t, "t-1", tenant.ID)
	assert.Equal(t, biz.StatusPaymentWarning, tenant.Status)
	assert.Equal(t, biz.PlanMonthly, tenant.SubscriptionPlan)
	require.NotNil(t, tenant.NextBillingDate)
	assert.Equal(t, due, *tenant.NextBillingDate)
	assert.Equal(t, 5, tenant.GracePeriodDays)
	assert.True(t, tenant.Warning72hSent)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTenant_NotFound(t *testing.T) {
	mock, repo := setupMockRepo(t)

	mock.ExpectQuery("SELECT \\* FROM `tenant` WHERE tenant_id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"tenant_id"}))

	// 不存在的租户返回 nil 而不是错误，由调用方决定 fail closed
	tenant, err := repo.GetTenant(context.Background(), "t-missing")
	require.NoError(t, err)
	assert.Nil(t, tenant)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListWarningCandidates(t *testing.T) {
	mock, repo := setupMockRepo(t)

	now := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"tenant_id", "status", "next_billing_date"}).
		AddRow("t-1", "active", now.Add(72*time.Hour)).
		AddRow("t-2", "payment_warning", now.Add(72*time.Hour+10*time.Minute))

	mock.ExpectQuery("SELECT \\* FROM `tenant` WHERE \\(next_billing_date BETWEEN \\? AND \\?\\) AND status IN \\(\\?,\\?\\) AND warning_72h_sent = \\?").
		WillReturnRows(rows)

	tenants, err := repo.ListWarningCandidates(context.Background(), biz.Warning72h,
		now.Add(72*time.Hour-30*time.Minute), now.Add(72*time.Hour+30*time.Minute))
	require.NoError(t, err)
	require.Len(t, tenants, 2)
	assert.Equal(t, "t-1", tenants[0].ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveTenant_NeverWritesReferralClaim(t *testing.T) {
	// 认领标志只经由 ClaimReferralReward 的条件更新置位，
	// 整行写回不得携带该列，否则旧快照会复位已认领的标志
	matcher := sqlmock.QueryMatcherFunc(func(expectedSQL, actualSQL string) error {
		if !strings.Contains(actualSQL, expectedSQL) {
			return fmt.Errorf("expected SQL containing %q, got %q", expectedSQL, actualSQL)
		}
		if strings.Contains(actualSQL, "referral_reward_claimed") {
			return fmt.Errorf("row save must not write referral_reward_claimed: %q", actualSQL)
		}
		return nil
	})
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(matcher))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gdb, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	repo := NewTenantBillingRepo(&Data{db: gdb}, log.NewStdLogger(io.Discard))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `tenant` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	due := time.Date(2026, 4, 10, 6, 0, 0, 0, time.UTC)
	err = repo.SaveTenant(context.Background(), &biz.Tenant{
		ID:               "t-1",
		Status:           biz.StatusActive,
		SubscriptionPlan: biz.PlanMonthly,
		NextBillingDate:  &due,
	})
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkWarningSent_Wins(t *testing.T) {
	mock, repo := setupMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `tenant` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, err := repo.MarkWarningSent(context.Background(), "t-1", biz.Warning72h, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkWarningSent_AlreadySent(t *testing.T) {
	mock, repo := setupMockRepo(t)

	// 守卫条件 flag = false 不再成立时更新不到行，调用方据此跳过
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `tenant` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	ok, err := repo.MarkWarningSent(context.Background(), "t-1", biz.Warning72h, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkWarningSent_GuardRechecksCandidatePredicate(t *testing.T) {
	mock, repo := setupMockRepo(t)

	// 守卫重查状态集合和到期窗口：在查询和置位之间重新激活的租户
	// (标志已重置、到期日推到一个月后)不再匹配条件更新
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `tenant` SET .+ WHERE \\(tenant_id = \\? AND warning_72h_sent = \\?\\) AND status IN \\(\\?,\\?\\) AND \\(next_billing_date BETWEEN \\? AND \\?\\)").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	ok, err := repo.MarkWarningSent(context.Background(), "t-1", biz.Warning72h, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkSuspended_AlreadySuspended(t *testing.T) {
	mock, repo := setupMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `tenant` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	ok, err := repo.MarkSuspended(context.Background(), "t-1", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimReferralReward_OnceEver(t *testing.T) {
	mock, repo := setupMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `tenant` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, err := repo.ClaimReferralReward(context.Background(), "t-1")
	require.NoError(t, err)
	assert.True(t, ok)

	// 第二个写入者输掉条件更新
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `tenant` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	ok, err = repo.ClaimReferralReward(context.Background(), "t-1")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}
