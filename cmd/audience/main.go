package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/JoeShih716/virtual-audience/internal/config"
	"github.com/JoeShih716/virtual-audience/internal/control"
	"github.com/JoeShih716/virtual-audience/internal/infrastructure/notify"
	"github.com/JoeShih716/virtual-audience/internal/kit/bootstrap"
	"github.com/JoeShih716/virtual-audience/internal/simulation"
	"github.com/JoeShih716/virtual-audience/pkg/redis"
	"github.com/JoeShih716/virtual-audience/pkg/wss"
)

func main() {
	// 1. 載入 .env (可選) 並初始化 App (Config, Logger)
	_ = godotenv.Load()
	app := bootstrap.NewApp("virtual-audience", os.Getenv(config.EnvConfigPath))
	cfg := app.Config

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Redis (可選)：事件輸出、指令頻道與單一頻道鎖
	var rdb *redis.Client
	if cfg.Notify.RedisEnabled {
		client, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("Redis unavailable, continuing without it", "addr", cfg.Redis.Addr, "error", err)
		} else {
			rdb = client
			slog.Info("Redis initialized", "addr", cfg.Redis.Addr)
		}
	}

	instanceID := uuid.NewString()
	locking := rdb != nil && cfg.Notify.LockTTL > 0
	if locking {
		ok, err := rdb.AcquireLock(ctx, cfg.Notify.Redis.LockKey(), instanceID, cfg.Notify.LockTTL)
		if err != nil || !ok {
			slog.Error("Another simulator owns this channel", "channel", cfg.Notify.Redis.Channel, "error", err)
			os.Exit(1)
		}
	}

	// 3. WebSocket Server (Overlay 推播 + 控制指令)
	wsServer := wss.NewServer(ctx, cfg.WSS.Server(), app.Logger)

	// 4. 事件輸出: Log + Redis + Overlay，經由非同步佇列送出
	sinks := notify.Fanout{notify.NewOverlaySink(wsServer)}
	if cfg.Notify.LogLevel != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(cfg.Notify.LogLevel)); err != nil {
			slog.Warn("Invalid notify log level, using info", "level", cfg.Notify.LogLevel)
			level = slog.LevelInfo
		}
		sinks = append(sinks, notify.NewLogSink(app.Logger, level))
	}
	if rdb != nil {
		sinks = append(sinks, notify.NewRedisSink(cfg.Notify.Redis, rdb))
	}
	async := notify.NewAsync(sinks, cfg.Notify.AsyncBuffer, cfg.Notify.Timeout, app.Logger)

	// 5. 模擬器
	sim := simulation.New(cfg.Simulation, simulation.Options{
		Logger: app.Logger,
		Sink:   async,
	})

	// 6. 控制指令
	handler := control.NewHandler(sim, app.Logger)
	wsServer.Register(control.NewWebsocketHandler(handler, app.Logger))
	if rdb != nil {
		listener := control.NewRedisListener(handler, rdb, cfg.Notify.Redis.RepliesChannel(), app.Logger)
		if err := listener.Listen(ctx, cfg.Notify.Redis.CommandsChannel()); err != nil {
			slog.Warn("Failed to subscribe command channel", "error", err)
		}
	}

	// 7. gRPC Health
	var healthServer *bootstrap.HealthServer
	if cfg.App.GrpcPort != 0 {
		healthServer = bootstrap.NewHealthServer(cfg.App.GrpcPort)
	}
	setServing := func(serving bool) {
		if healthServer != nil {
			healthServer.SetServing(serving)
		}
	}

	// 8. HTTP Server
	mux := http.NewServeMux()
	path := cfg.WSS.Path
	if path == "" {
		path = "/ws"
	}
	mux.Handle(path, wsServer)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !sim.Running() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// 9. 執行
	app.Run(func() error {
		sim.Start()
		setServing(true)

		if locking {
			go keepLock(ctx, rdb, cfg, instanceID, func() {
				sim.Stop()
				setServing(false)
			})
		}
		var g errgroup.Group
		if healthServer != nil {
			g.Go(healthServer.Serve)
		}
		g.Go(func() error {
			slog.Info("Listening on", "addr", httpServer.Addr, "path", path)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		return g.Wait()
	}, func() {
		setServing(false)
		sim.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("HTTP shutdown failed", "error", err)
		}
		if healthServer != nil {
			healthServer.Stop()
		}
		async.Close()

		if locking {
			if err := rdb.ReleaseLock(shutdownCtx, cfg.Notify.Redis.LockKey(), instanceID); err != nil {
				slog.Warn("Failed to release lock", "error", err)
			}
		}
		if rdb != nil {
			_ = rdb.Close()
		}
		cancel()
	})
}

// keepLock 定期續約頻道鎖；續約失敗代表鎖已被他人取得，呼叫 onLost 停止模擬
func keepLock(ctx context.Context, rdb *redis.Client, cfg *config.Config, owner string, onLost func()) {
	ticker := time.NewTicker(cfg.Notify.LockTTL / 3)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok, err := rdb.ExtendLock(ctx, cfg.Notify.Redis.LockKey(), owner, cfg.Notify.LockTTL)
			if err != nil {
				slog.Warn("ExtendLock failed", "error", err)
				continue
			}
			if !ok {
				slog.Error("Channel lock lost, stopping simulation", "channel", cfg.Notify.Redis.Channel)
				onLost()
				return
			}
		}
	}
}
