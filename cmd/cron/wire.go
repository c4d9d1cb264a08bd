//go:build wireinject
// +build wireinject

package main

import (
	"os"

	"github.com/SunshineAppV2/cantinhomda-sub002/internal/biz"
	"github.com/SunshineAppV2/cantinhomda-sub002/internal/conf"
	"github.com/SunshineAppV2/cantinhomda-sub002/internal/data"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// wireApp 初始化应用
func wireApp(*conf.Bootstrap) (*CronApp, func(), error) {
	panic(wire.Build(
		// Logger
		newLogger,

		// Data 层
		data.ProviderSet,

		// Biz 层
		biz.ProviderSet,

		// App 结构
		wire.Struct(new(CronApp), "*"),
	))
}

// newLogger 创建 logger
func newLogger() log.Logger {
	return log.With(log.NewStdLogger(os.Stdout),
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.name", "club-billing-cron",
	)
}
