package biz

import (
	"time"

	"github.com/SunshineAppV2/cantinhomda-sub002/internal/auth"
	"github.com/SunshineAppV2/cantinhomda-sub002/internal/conf"
	"github.com/SunshineAppV2/cantinhomda-sub002/internal/errors"
)

// Decision 访问闸门决策结果
type Decision struct {
	Allowed bool
	Overdue bool
}

// AccessGate 访问闸门
// 登录和租户范围内的写操作共用同一个欠费判定，两个调用点只在
// 角色豁免策略上不同：登录放行配置的豁免角色以便其处理账单，
// 写路径没有任何豁免，欠费租户只能通过重新激活流程恢复写能力。
type AccessGate struct {
	privileged auth.PrivilegedSet
}

// NewAccessGate 创建访问闸门
func NewAccessGate(c *conf.Bootstrap) *AccessGate {
	var roles []string
	if c != nil && c.Billing != nil {
		roles = c.Billing.PrivilegedRoles
	}
	return &AccessGate{privileged: auth.NewPrivilegedSet(roles)}
}

// Evaluate 判定租户在 now 时刻是否欠费
// 纯函数，无副作用，可在任意并发下调用
// 持久化的 Status 只是展示字段，欠费判定始终动态重算；
// 唯一例外是 canceled 这类显式终态，直接视为欠费，不再计算
func (g *AccessGate) Evaluate(t *Tenant, now time.Time) Decision {
	if t.Status == StatusCanceled {
		return Decision{Allowed: false, Overdue: true}
	}
	if t.NextBillingDate == nil {
		return Decision{Allowed: true, Overdue: false}
	}
	// 宽限期只软化访问判定，不影响扫描记录停用的时间点
	cutoff := t.NextBillingDate.AddDate(0, 0, t.GracePeriodDays)
	overdue := now.After(cutoff)
	return Decision{Allowed: !overdue, Overdue: overdue}
}

// CheckLogin 登录路径闸门
// 欠费时拒绝登录，除非调用者角色在豁免集合内（owner/admin/director），
// 豁免的目的是让责任人能进系统解决账单问题
func (g *AccessGate) CheckLogin(t *Tenant, role auth.Role, now time.Time) error {
	d := g.Evaluate(t, now)
	if !d.Overdue {
		return nil
	}
	if g.privileged.Contains(role) {
		return nil
	}
	return errors.AuthenticationBlocked(t.ID)
}

// CheckWrite 写路径闸门
// 欠费时一律拒绝，没有角色豁免
func (g *AccessGate) CheckWrite(t *Tenant, now time.Time) error {
	if d := g.Evaluate(t, now); d.Overdue {
		return errors.AccessDenied(t.ID)
	}
	return nil
}
