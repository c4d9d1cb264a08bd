package biz

import "context"

// Severity 通知级别
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// NotificationDispatcher 通知服务客户端接口 (防腐层)
// 尽力投递：单次发送可独立失败，调用方只记录日志，不同步重试
type NotificationDispatcher interface {
	Send(ctx context.Context, recipientID, title, body string, severity Severity) error
}
