package auth

import (
	"context"

	"github.com/go-kratos/kratos/v2/errors"
)

// 定义 context key
type contextKey string

const (
	// TenantIDKey 租户ID的context key（字符串 UUID）
	TenantIDKey contextKey = "tenant_id"
	// MemberIDKey 成员ID的context key
	MemberIDKey contextKey = "member_id"
	// MemberRoleKey 成员角色的context key
	MemberRoleKey contextKey = "member_role"
)

// Role 成员角色
type Role string

const (
	RoleOwner    Role = "owner"
	RoleAdmin    Role = "admin"
	RoleDirector Role = "director"
	RoleStaff    Role = "staff"
	RoleMember   Role = "member"
)

// GetTenantIDFromContext 从context中获取租户ID（字符串 UUID）
func GetTenantIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(TenantIDKey).(string)
	return id, ok
}

// GetMemberIDFromContext 从context中获取成员ID
func GetMemberIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(MemberIDKey).(string)
	return id, ok
}

// GetRoleFromContext 从context中获取成员角色
func GetRoleFromContext(ctx context.Context) (Role, bool) {
	role, ok := ctx.Value(MemberRoleKey).(Role)
	return role, ok
}

// PrivilegedSet 登录豁免角色集合
// 只在登录路径使用：欠费时放行这些角色，以便其处理账单问题
type PrivilegedSet map[Role]bool

// NewPrivilegedSet 从配置的角色名列表构建豁免集合
func NewPrivilegedSet(roles []string) PrivilegedSet {
	set := make(PrivilegedSet, len(roles))
	for _, r := range roles {
		set[Role(r)] = true
	}
	return set
}

// Contains 判断角色是否在豁免集合中
func (s PrivilegedSet) Contains(role Role) bool {
	return s[role]
}

// CheckTenantScope 检查当前请求是否有权限访问指定租户的资源
func CheckTenantScope(ctx context.Context, tenantID string) error {
	currentID, ok := GetTenantIDFromContext(ctx)
	if !ok {
		return errors.Unauthorized("UNAUTHORIZED", "authentication required")
	}

	// 租户只能访问自己的资源
	if currentID != tenantID {
		return errors.Forbidden("FORBIDDEN", "permission denied: you can only access your own tenant")
	}

	return nil
}
