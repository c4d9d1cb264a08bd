package data

import (
	"context"
	"fmt"

	"github.com/SunshineAppV2/cantinhomda-sub002/internal/biz"
	"github.com/SunshineAppV2/cantinhomda-sub002/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-resty/resty/v2"
)

// notificationClient 通知服务客户端实现 (防腐层)
// 尽力投递：失败由调用方记录日志，不在此处重试
type notificationClient struct {
	http *resty.Client
	log  *log.Helper
}

// sendNotificationRequest 通知服务 API 请求体
type sendNotificationRequest struct {
	RecipientID string `json:"recipient_id"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	Severity    string `json:"severity"`
}

// NewNotificationDispatcher 创建通知服务客户端
// 配置缺失时不在构造期 panic，由 Validate 在启动时报告
func NewNotificationDispatcher(c *conf.Bootstrap, logger log.Logger) biz.NotificationDispatcher {
	var cc *conf.Client
	if c != nil {
		cc = c.Client
	}
	var addr string
	if cc != nil && cc.NotificationService != nil {
		addr = cc.NotificationService.Addr
	}

	client := resty.New().
		SetBaseURL(addr).
		SetTimeout(cc.NotificationTimeout())
	return &notificationClient{
		http: client,
		log:  log.NewHelper(logger),
	}
}

// Send 发送一条通知
func (c *notificationClient) Send(ctx context.Context, recipientID, title, body string, severity biz.Severity) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(&sendNotificationRequest{
			RecipientID: recipientID,
			Title:       title,
			Body:        body,
			Severity:    string(severity),
		}).
		Post("/v1/notifications")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("notification service returned status %d", resp.StatusCode())
	}
	return nil
}
