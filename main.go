package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"pairarena/config"
	"pairarena/server"
	"pairarena/store"
)

const shutdownTimeout = 5 * time.Second

// PairArena 入口：启动 HTTP + WebSocket 服务，初始化存储与会话注册表
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "server listen address, e.g. :8000")
	flag.Parse()

	// 使用第三方 zap 日志库写入日志文件（带滚动）
	if err := server.InitLogger(server.LogOptions{File: cfg.LogFile, Level: cfg.LogLevel, Stderr: cfg.LogToStderr}); err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		server.Log.Errorf("server stopped: %v", err)
		server.SyncLogger()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	var (
		db    *store.SQLite
		sinks store.MultiSink
	)
	if cfg.DBPath != "" {
		var err error
		if db, err = store.OpenSQLite(cfg.DBPath); err != nil {
			return err
		}
		if err = db.Migrate(); err != nil {
			return multierr.Append(err, db.Close())
		}
		sinks = append(sinks, db)
	}
	if cfg.DataDir != "" {
		sinks = append(sinks, store.NewCSVSink(cfg.DataDir))
	}

	var (
		earnings     store.Earnings
		ids          store.Participants
		participants server.ParticipantAdmin
		telemetry    store.TelemetrySink
	)
	if db != nil {
		earnings, ids, participants = db, db, db
	}
	if len(sinks) > 0 {
		telemetry = sinks
	}
	if cfg.RequireRegistered && db == nil {
		server.Log.Warn("identity check disabled: no participant store configured")
	}

	rec := server.NewRecorder(earnings, telemetry, cfg.PersistQueue)
	reg := server.NewRegistry(server.Options{
		Settings: server.Settings{Game: cfg.Game(), TickPeriod: cfg.TickPeriod},
		Seed:     cfg.Seed,
		Recorder: rec,
	})
	gw := server.NewGateway(reg, ids, cfg.RequireRegistered)
	admin := server.NewAdmin(reg, participants, rec)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Routes(gw, admin, cfg.StaticDir),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		server.Log.Infof("PairArena listening on %s (condition=%s, tick=%s)", cfg.Addr, cfg.Condition, cfg.TickPeriod)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		// 优雅退出（Ctrl+C）
		server.Log.Info("Shutting down...")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		serr := srv.Shutdown(sctx)
		reg.Shutdown()
		rec.Close()
		return serr
	})
	// 写协程退出后再关闭存储
	return multierr.Append(g.Wait(), sinks.Close())
}
