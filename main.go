package main

import (
	"context"
	"flag"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hako/durafmt"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to TOML config file")
	flag.Parse()

	startTime := time.Now()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal("load config", err, "path", *configPath)
	}
	if cfg.Debug {
		debugLogging = true
		logger.setLevel(logLevelDebug)
	}
	configureFileLogging(
		filepath.Join(cfg.DataDir, "server.log"),
		filepath.Join(cfg.DataDir, "error.log"),
		cfg.LogStdout,
	)
	setSha256Implementation(cfg.UseSimdSha256)

	var store *submissionStore
	if cfg.SubmissionLog {
		store, err = newSubmissionStore(filepath.Join(cfg.DataDir, "submissions.db"))
		if err != nil {
			fatal("open submission store", err, "data_dir", cfg.DataDir)
		}
	}

	dispatcher := newFeedDispatcher(store)

	srv, err := StartStratum(cfg, dispatcher)
	if err != nil {
		fatal("start stratum", err, "addr", cfg.ListenAddr)
	}
	if cfg.SharedSecret != "" {
		logger.Info("authorization secret configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.ZMQJobAddr != "" {
		go newJobFeed(cfg, dispatcher, srv).run(ctx)
	} else {
		logger.Warn("no job feed configured; broadcasts only follow accepted submissions")
	}

	if cfg.StatusLogIntervalSec > 0 {
		go statusLoop(ctx, srv, startTime, time.Duration(cfg.StatusLogIntervalSec)*time.Second)
	}

	<-ctx.Done()
	logger.Info("shutdown requested")
	srv.Close()
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Error("close submission store", "error", err)
		}
	}
	logger.Info("shutdown complete", "uptime", humanUptime(startTime))
	logger.Stop()
}

func statusLoop(ctx context.Context, srv *Stratum, startTime time.Time, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			srv.logStatus(humanUptime(startTime))
		}
	}
}

func humanUptime(startTime time.Time) string {
	return durafmt.Parse(time.Since(startTime).Truncate(time.Second)).LimitFirstN(2).String()
}
