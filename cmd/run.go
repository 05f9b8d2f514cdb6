package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kgpp34/Redis-Source-Learning/internal/config"
	"github.com/kgpp34/Redis-Source-Learning/internal/database"
	"github.com/kgpp34/Redis-Source-Learning/internal/logger"
	"github.com/kgpp34/Redis-Source-Learning/internal/metrics"
	"github.com/kgpp34/Redis-Source-Learning/internal/persistant"
	"github.com/kgpp34/Redis-Source-Learning/internal/server"
	"github.com/kgpp34/Redis-Source-Learning/pkg/connection"
)

var envFiles []string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the Redis server",
	RunE: func(cmd *cobra.Command, args []string) error {
		v := config.NewViper(envFiles...)
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return err
		}
		cfg, err := config.Load(v)
		if err != nil {
			return err
		}
		return runServer(cmd.Context(), cfg)
	},
}

func init() {
	d := config.Default()
	f := runCmd.Flags()
	f.String("addr", d.Addr, "server listen address")
	f.Int("backlog", d.Backlog, "listen backlog")
	f.Duration("tcp-keepalive", d.TCPKeepAlive, "TCP keepalive period, 0 to disable")
	f.Duration("timeout", d.Timeout, "close clients idle for this long, 0 to disable")
	f.Int("maxclients", d.MaxClients, "max number of connected clients")
	f.Int("read-chunk-size", d.ReadChunkSize, "bytes requested per socket read")
	f.Int("max-write-per-event", d.MaxWritePerEvent, "bytes written per writable event before yielding")
	f.Int("big-arg-threshold", d.BigArgThreshold, "bulk arguments at least this big are read without copying")
	f.Int("max-accepts-per-call", d.MaxAcceptsPerCall, "connections accepted per readable listener event")
	f.Int("max-query-buf-len", d.MaxQueryBufLen, "close clients whose query buffer grows past this")
	f.Uint64("maxmemory", d.MaxMemory, "memory budget in bytes, 0 for unbounded")
	f.Int("hz", d.Hz, "cron frequency")
	f.Int("databases", d.DBNum, "number of databases")
	f.String("preload", d.Preload, "file of commands replayed before accepting clients")
	f.String("metrics-addr", d.MetricsAddr, "serve prometheus metrics on this address")
	f.String("log-level", d.LogLevel, "trace|debug|info|warn|error")
	f.Bool("log-json", d.LogJSON, "log in JSON")
	f.StringSliceVar(&envFiles, "env-file", nil, "load environment from these files")

	rootCmd.AddCommand(runCmd)
}

func runServer(parent context.Context, cfg config.Config) error {
	log, err := logger.New(logger.Options{Level: cfg.LogLevel, JSON: cfg.LogJSON})
	if err != nil {
		return err
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	mdb := database.NewStandaloneDatabase(cfg.DBNum, log.Named("database"))
	srv, err := server.New(cfg, mdb, server.WithLogger(log), server.WithMetrics(m))
	if err != nil {
		return err
	}

	// 指标在 HTTP goroutine 里读取，只暴露 cron 里采样的值
	var keys atomic.Int64
	srv.AddCronHook(func(now time.Time) {
		mdb.Cron(now)
		keys.Store(int64(mdb.Keys()))
	})
	m.RegisterGauge("db", "keys", "Keys in all databases",
		func() float64 { return float64(keys.Load()) })

	if cfg.Preload != "" {
		c := srv.NewPseudoClient(connection.RoleScript)
		start := time.Now()
		stats, err := persistant.PreloadFile(cfg.Preload, c, mdb, log.Named("preload"))
		if err != nil {
			return err
		}
		keys.Store(int64(mdb.Keys()))
		log.Info("preload finished", "file", cfg.Preload, "commands", stats.Commands,
			"writes", stats.Writes, "errors", stats.Errors, "elapsed", time.Since(start))
	}

	if err := srv.Listen(); err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		go func() {
			if err := m.Serve(ctx, cfg.MetricsAddr); err != nil {
				log.Error("metrics server failed", "addr", cfg.MetricsAddr, "error", err)
			}
		}()
	}

	serveErr := srv.Serve(ctx)
	if err := srv.Shutdown(); err != nil {
		log.Warn("shutdown", "error", err)
	}
	if serveErr != nil {
		return fmt.Errorf("serve: %w", serveErr)
	}
	return nil
}
