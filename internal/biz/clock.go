package biz

import "time"

// Clock 时间源接口
// 注入式时钟，替代环境时钟，保证测试可确定性回放
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystemClock 创建系统时钟（UTC）
func NewSystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}
