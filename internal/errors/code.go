package errors

import (
	kerrors "github.com/go-kratos/kratos/v2/errors"
)

// 计费核心错误码定义
// 错误码格式：SSMMEE (6位数字)，其中 SS=21 表示 club-platform 计费核心
// 模块划分：
//   01: 访问闸门
//   02: 生命周期扫描
//   03: 复活(重新激活)
//   04: 推荐积分

// 访问闸门模块 (210100-210199)
const (
	// ErrCodeTenantNotFound 租户计费记录不存在错误
	ErrCodeTenantNotFound = 210101
	// ErrCodeAccessDenied 租户欠费，写操作被拒绝错误
	ErrCodeAccessDenied = 210102
	// ErrCodeAuthenticationBlocked 租户欠费，非豁免角色登录被拒绝错误
	ErrCodeAuthenticationBlocked = 210103
)

// 生命周期扫描模块 (210200-210299)
const (
	// ErrCodeSweepInProgress 已有扫描正在运行错误
	ErrCodeSweepInProgress = 210201
)

// 复活模块 (210300-210399)
const (
	// ErrCodeInvalidPlan 未知的订阅周期错误
	ErrCodeInvalidPlan = 210301
	// ErrCodeInvalidStatusTransition 当前状态不允许该操作错误
	ErrCodeInvalidStatusTransition = 210302
)

// 错误 reason 常量，用于 kratos 错误的机器可读标识
const (
	ReasonTenantNotFound          = "TENANT_NOT_FOUND"
	ReasonAccessDenied            = "TENANT_OVERDUE_WRITE_BLOCKED"
	ReasonAuthenticationBlocked   = "TENANT_OVERDUE_LOGIN_BLOCKED"
	ReasonSweepInProgress         = "SWEEP_IN_PROGRESS"
	ReasonInvalidPlan             = "INVALID_SUBSCRIPTION_PLAN"
	ReasonInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
)

// TenantNotFound 租户计费记录不存在
// 写入路径的闸门决策对该错误采取 fail closed（拒绝）
func TenantNotFound(tenantID string) *kerrors.Error {
	return kerrors.NotFound(ReasonTenantNotFound, "no billing record for tenant "+tenantID).
		WithMetadata(map[string]string{"biz_code": "210101"})
}

// AccessDenied 写路径拒绝：租户欠费，没有任何角色豁免
func AccessDenied(tenantID string) *kerrors.Error {
	return kerrors.Forbidden(ReasonAccessDenied,
		"account is overdue: writes are blocked until the subscription is reactivated").
		WithMetadata(map[string]string{"biz_code": "210102", "tenant_id": tenantID})
}

// AuthenticationBlocked 登录路径拒绝：租户欠费且调用者不在豁免角色集合内
func AuthenticationBlocked(tenantID string) *kerrors.Error {
	return kerrors.Unauthorized(ReasonAuthenticationBlocked,
		"account is overdue: please ask an owner or administrator to resolve billing").
		WithMetadata(map[string]string{"biz_code": "210103", "tenant_id": tenantID})
}

// SweepInProgress 单飞保护：集群内已有一次扫描在运行
func SweepInProgress() *kerrors.Error {
	return kerrors.Conflict(ReasonSweepInProgress, "a lifecycle sweep is already running").
		WithMetadata(map[string]string{"biz_code": "210201"})
}

// InvalidPlan 未知的订阅周期
func InvalidPlan(plan string) *kerrors.Error {
	return kerrors.BadRequest(ReasonInvalidPlan, "unknown subscription plan: "+plan).
		WithMetadata(map[string]string{"biz_code": "210301"})
}

// InvalidStatusTransition 当前状态不允许该操作
func InvalidStatusTransition(msg string) *kerrors.Error {
	return kerrors.BadRequest(ReasonInvalidStatusTransition, msg).
		WithMetadata(map[string]string{"biz_code": "210302"})
}
