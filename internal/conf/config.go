package conf

import (
	"fmt"
	"time"
)

type Bootstrap struct {
	Server  *Server  `yaml:"server" json:"server"`
	Data    *Data    `yaml:"data" json:"data"`
	Client  *Client  `yaml:"client" json:"client"`
	Billing *Billing `yaml:"billing" json:"billing"`
	Log     *Log     `yaml:"log" json:"log"`
}

type Server struct {
	Http struct {
		Addr    string `yaml:"addr" json:"addr"`
		Timeout string `yaml:"timeout" json:"timeout"`
	} `yaml:"http" json:"http"`
}

type Data struct {
	Database struct {
		Driver string `yaml:"driver" json:"driver"`
		Source string `yaml:"source" json:"source"`
	} `yaml:"database" json:"database"`
	Redis struct {
		Addr         string `yaml:"addr" json:"addr"`
		Password     string `yaml:"password" json:"password"`
		Db           int32  `yaml:"db" json:"db"`
		ReadTimeout  string `yaml:"read_timeout" json:"read_timeout"`
		WriteTimeout string `yaml:"write_timeout" json:"write_timeout"`
	} `yaml:"redis" json:"redis"`
}

type Client struct {
	NotificationService *NotificationService `yaml:"notification_service" json:"notification_service"`
}

type NotificationService struct {
	Addr    string `yaml:"addr" json:"addr"`
	Timeout string `yaml:"timeout" json:"timeout"`
}

// Billing 计费核心配置
type Billing struct {
	// PrivilegedRoles 登录豁免角色（欠费时仍可登录处理账单）
	PrivilegedRoles []string `yaml:"privileged_roles" json:"privileged_roles"`
	// DefaultGracePeriodDays 新租户默认宽限天数
	DefaultGracePeriodDays int `yaml:"default_grace_period_days" json:"default_grace_period_days"`
	// SweepSchedule 生命周期扫描 cron 表达式（6字段，支持秒）
	SweepSchedule string `yaml:"sweep_schedule" json:"sweep_schedule"`
	// CreditExpirySchedule 推荐积分过期任务 cron 表达式
	CreditExpirySchedule string `yaml:"credit_expiry_schedule" json:"credit_expiry_schedule"`
}

type Log struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

// NotificationTimeout 通知服务客户端超时时间，未配置时返回默认值
func (c *Client) NotificationTimeout() time.Duration {
	if c == nil || c.NotificationService == nil || c.NotificationService.Timeout == "" {
		return 5 * time.Second
	}
	d, err := time.ParseDuration(c.NotificationService.Timeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// Validate validates the configuration
func (b *Bootstrap) Validate() error {
	if b.Server == nil {
		return fmt.Errorf("server configuration is required")
	}
	if b.Server.Http.Addr == "" {
		return fmt.Errorf("server.http.addr is required")
	}
	if b.Data == nil {
		return fmt.Errorf("data configuration is required")
	}
	if b.Data.Database.Source == "" {
		return fmt.Errorf("data.database.source is required")
	}
	if b.Client == nil || b.Client.NotificationService == nil || b.Client.NotificationService.Addr == "" {
		return fmt.Errorf("client.notification_service.addr is required")
	}
	if b.Billing == nil {
		return fmt.Errorf("billing configuration is required")
	}
	if len(b.Billing.PrivilegedRoles) == 0 {
		return fmt.Errorf("billing.privileged_roles is required")
	}
	if b.Log == nil {
		return fmt.Errorf("log configuration is required")
	}
	return nil
}
