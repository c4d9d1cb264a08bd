package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SunshineAppV2/cantinhomda-sub002/internal/biz"
	"github.com/SunshineAppV2/cantinhomda-sub002/internal/conf"

	"github.com/robfig/cron/v3"
	_ "go.uber.org/automaxprocs"
)

var (
	flagconf string
)

// CronApp Cron 应用结构
type CronApp struct {
	sweeper *biz.LifecycleSweeper
	credits *biz.ReferralCreditEngine
}

// 默认调度: 生命周期扫描每6小时，积分过期每天凌晨4点
const (
	defaultSweepSchedule        = "0 0 */6 * * *"
	defaultCreditExpirySchedule = "0 0 4 * * *"
)

func init() {
	flag.StringVar(&flagconf, "conf", "configs/config.yaml", "config path, eg: -conf config.yaml")
}

func main() {
	flag.Parse()

	// 初始化配置
	// 批处理进程不需要可监听的配置源，直接读文件
	bc, err := conf.Load(flagconf)
	if err != nil {
		panic(err)
	}

	// 验证配置
	if err := bc.Validate(); err != nil {
		panic(fmt.Sprintf("config validation failed: %v", err))
	}

	// 初始化应用
	app, cleanup, err := wireApp(bc)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	sweepSchedule := defaultSweepSchedule
	creditExpirySchedule := defaultCreditExpirySchedule
	if bc.Billing != nil {
		if bc.Billing.SweepSchedule != "" {
			sweepSchedule = bc.Billing.SweepSchedule
		}
		if bc.Billing.CreditExpirySchedule != "" {
			creditExpirySchedule = bc.Billing.CreditExpirySchedule
		}
	}

	// 创建定时任务调度器（支持秒级调度）
	cronScheduler := cron.New(cron.WithSeconds())

	// 1. 生命周期扫描 - 每6小时执行
	// 分布式锁保证集群内单飞，和某个实例正在跑的扫描撞上时本次直接跳过
	_, err = cronScheduler.AddFunc(sweepSchedule, func() {
		log.Println("[CRON] Starting lifecycle sweep...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		report, err := app.sweeper.RunSweep(ctx, time.Now().UTC())
		if err != nil {
			log.Printf("[CRON] Lifecycle sweep not completed: %v", err)
			return
		}
		log.Printf("[CRON] Lifecycle sweep completed: warned72=%d, warned48=%d, warned24=%d, suspended=%d, trialsEnded=%d",
			report.Warned72, report.Warned48, report.Warned24, report.Suspended, report.TrialsEnded)
	})
	if err != nil {
		log.Printf("Failed to add lifecycle sweep job: %v", err)
	}

	// 2. 推荐积分过期 - 每天凌晨 4 点执行
	_, err = cronScheduler.AddFunc(creditExpirySchedule, func() {
		log.Println("[CRON] Starting referral credit expiry...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		count, err := app.credits.ExpireDueCredits(ctx)
		if err != nil {
			log.Printf("[CRON] Error expiring referral credits: %v", err)
			return
		}
		log.Printf("[CRON] Expired %d referral credits", count)
	})
	if err != nil {
		log.Printf("Failed to add credit expiry job: %v", err)
	}

	// 启动定时任务
	cronScheduler.Start()
	log.Println("========================================")
	log.Println("Cron jobs started successfully")
	log.Println("Scheduled jobs:")
	log.Printf("  - Lifecycle sweep:        %s", sweepSchedule)
	log.Printf("  - Referral credit expiry: %s", creditExpirySchedule)
	log.Println("========================================")

	// 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down gracefully...")

	// 停止定时任务
	ctx := cronScheduler.Stop()
	select {
	case <-ctx.Done():
		log.Println("Cron jobs stopped gracefully")
	case <-time.After(5 * time.Second):
		log.Println("Cron jobs forced to stop after timeout")
	}
}
