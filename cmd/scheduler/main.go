// The scheduler binary drives recurring campaign ticks. With --once it runs
// a single tick and exits (for an external cron trigger); otherwise it loops
// on the configured interval until signalled.
package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/getlisted/claim-engine/internal/analytics"
	"github.com/getlisted/claim-engine/internal/config"
	"github.com/getlisted/claim-engine/internal/dispatch"
	"github.com/getlisted/claim-engine/internal/pkg/logger"
	"github.com/getlisted/claim-engine/internal/repository/postgres"
	"github.com/getlisted/claim-engine/internal/service/nurture"
	"github.com/getlisted/claim-engine/internal/token"
)

func main() {
	cfgPath := "config.yaml"
	once := false
	for _, a := range os.Args[1:] {
		if a == "--once" {
			once = true
		} else {
			cfgPath = a
		}
	}

	cfg, err := config.LoadFromEnv(cfgPath)
	if err != nil {
		logger.Error("load config", "path", cfgPath, "error", err)
		os.Exit(1)
	}
	if cfg.Claims.SigningKey == "" {
		logger.Error("SIGNING_KEY is required")
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.Error("connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = db.PingContext(pingCtx)
	cancel()
	if err != nil {
		logger.Error("ping database", "error", err)
		os.Exit(1)
	}

	var vc nurture.ViewCounter
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		vc = analytics.NewViewCounter(rdb, nil)
	}

	templates := dispatch.NewRegistry()
	var mail nurture.Dispatcher
	if cfg.SES.Enabled {
		sender, err := dispatch.NewSESSender(
			cfg.SES.AccessKey, cfg.SES.SecretKey, cfg.SES.Region,
			cfg.SES.FromName, cfg.SES.FromEmail, templates)
		if err != nil {
			logger.Error("init ses", "error", err)
			os.Exit(1)
		}
		mail = sender
	} else {
		mail = dispatch.NewLogSender(templates)
		logger.Warn("SES disabled, emails will be logged only")
	}

	codec := token.NewCodec(cfg.Claims.SigningKey, nil)
	scheduler := nurture.NewScheduler(
		postgres.NewCampaignRepo(db), postgres.NewListingRepo(db),
		mail, vc, codec, cfg.Claims.PublicBaseURL)
	scheduler.SetBatchLimit(cfg.Nurture.BatchLimit)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if once {
		runTick(ctx, scheduler)
		return
	}

	interval := cfg.Nurture.TickInterval()
	logger.Info("scheduler started", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runTick(ctx, scheduler)
	for {
		select {
		case <-ctx.Done():
			logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			runTick(ctx, scheduler)
		}
	}
}

// runTick bounds one tick so a hung store can't stall the loop forever.
func runTick(ctx context.Context, s *nurture.Scheduler) {
	tickCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	sum := s.RunTick(tickCtx)
	for _, e := range sum.Errors {
		logger.Warn("tick error", "detail", e)
	}
}
