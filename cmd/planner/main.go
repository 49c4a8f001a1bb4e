package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"timeblock-planner/internal/bot"
	"timeblock-planner/internal/config"
	"timeblock-planner/internal/repository"
	"timeblock-planner/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	blockRepo := repository.NewTimeBlockRepository(db)
	ruleRepo := repository.NewScheduleRuleRepository(db)

	resolver := service.NewScheduleResolver(ruleRepo)
	planner := service.NewPlanner(taskRepo, blockRepo, resolver)
	digest := service.NewDigestService(planner, categoryRepo)

	plannerBot, err := bot.New(cfg.TelegramToken, userRepo, ruleRepo, categoryRepo, planner, digest)
	if err != nil {
		log.Fatalf("bot: %v", err)
	}

	scheduler := service.NewSchedulerService(time.Local)
	if _, err := scheduler.ScheduleDaily(cfg.DigestTime, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := plannerBot.SendDailyDigests(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("digest: %v", err)
		}
	}); err != nil {
		log.Fatalf("schedule digest: %v", err)
	}
	if cfg.ReportIntervalHours > 0 {
		if _, err := scheduler.ScheduleInterval(cfg.ReportIntervalHours, func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := plannerBot.SendUnscheduledReports(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("unscheduled report: %v", err)
			}
		}); err != nil {
			log.Fatalf("schedule unscheduled report: %v", err)
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	log.Println("Time-block planner bot started.")
	if err := plannerBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("bot stopped with error: %v", err)
	}
	log.Println("Shutdown complete.")
}
