package app

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/lendhub/lending-service/config"
	"github.com/lendhub/lending-service/internal/clock"
	"github.com/lendhub/lending-service/internal/handler"
	"github.com/lendhub/lending-service/internal/repository"
	"github.com/lendhub/lending-service/internal/scheduler"
	"github.com/lendhub/lending-service/internal/server"
	"github.com/lendhub/lending-service/internal/service"
	"github.com/lendhub/lending-service/migrations"
	"github.com/lendhub/lending-service/pkg/kafka"
	"github.com/lendhub/lending-service/pkg/logger"
	"github.com/lendhub/lending-service/pkg/postgres"
)

func Run(cfg *config.Config) {
	log := logger.NewLogger(cfg.Log, "lending")
	db, err := postgres.NewPostgresDB(context.Background(), &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		log.Fatal("db init", zap.Error(err))
	}
	repo, err := repository.NewRepository(db, log)
	if err != nil {
		log.Fatal("repo", zap.Error(err))
	}

	var producer sarama.SyncProducer
	if cfg.Kafka.Enable {
		if producer, err = kafka.NewProducer(cfg.Kafka); err != nil {
			log.Fatal("kafka.NewProducer", zap.Error(err))
		}
	}
	events := service.NewEvents(producer, log)

	clk := clock.NewSystem()
	inventory := service.NewInventory(repo, log)
	fines := service.NewFines(repo, clk, events, log)
	suspension := service.NewSuspension(repo, clk, events, cfg.Policy.SuspendThreshold, log)
	lending := service.NewLending(repo, inventory, fines, suspension, clk, events, cfg.Policy, log)
	sweeper := service.NewSweeper(repo, fines, suspension, clk, cfg.Policy, log)
	catalog := service.NewCatalog(repo, inventory, log)
	members := service.NewMembers(repo, log)

	var sched *scheduler.Scheduler
	if cfg.Sweep.Enable {
		if sched, err = scheduler.NewScheduler(cfg.Sweep.Cron, cfg.Sweep.Timeout, sweeper.Sweep, log); err != nil {
			log.Fatal("scheduler", zap.Error(err))
		}
		sched.Start()
	}

	h := handler.New(lending, sweeper, fines, catalog, members, log)
	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("server run", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))

	closeCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err = srv.Stop(closeCtx); err != nil {
		log.DPanic("srv.Stop", zap.Error(err))
	}
	if sched != nil {
		sched.Stop()
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Error("producer.Close", zap.Error(err))
		}
	}
	db.Close()
	log.Info("Graceful shutdown finished")
}
