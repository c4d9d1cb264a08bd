package constants

import "time"

// 阶梯式账单预警相关常量
const (
	// WarningWindow 预警候选窗口半宽
	// 窗口必须大于扫描周期的一半，否则到期时间可能落在两次扫描之间被漏掉
	WarningWindow = 30 * time.Minute
)

// 分页相关常量
const (
	// DefaultPageSize 默认分页大小
	DefaultPageSize = 10
	// MaxPageSize 最大分页大小
	MaxPageSize = 100
)

// 推荐积分相关常量
const (
	// ReferralCreditStep 积分时长步长: 第N个积分有效期为 N*30 天
	ReferralCreditStep = 30 * 24 * time.Hour
	// MaxAvailableCredits 单个租户同时持有的 AVAILABLE 积分上限
	MaxAvailableCredits = 3
)

// 分布式锁相关常量
const (
	// SweepLockKey 生命周期扫描的分布式锁 key
	SweepLockKey = "billing:lifecycle_sweep:lock"
	// SweepLockExpiration 扫描锁过期时间
	SweepLockExpiration = 10 * time.Minute
	// SweepLockRetries 扫描锁重试次数(只尝试一次，失败说明有扫描正在运行)
	SweepLockRetries = 1
)

// SystemActor 自动任务写入状态历史时使用的操作者标识
const SystemActor = "SYSTEM"
