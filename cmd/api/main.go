package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/DeniProtoshark/Discord-prefix-site-filter-API/internal/api"
	"github.com/DeniProtoshark/Discord-prefix-site-filter-API/internal/collector"
	"github.com/DeniProtoshark/Discord-prefix-site-filter-API/internal/config"
	"github.com/DeniProtoshark/Discord-prefix-site-filter-API/internal/logger"
	"github.com/DeniProtoshark/Discord-prefix-site-filter-API/internal/metrics"
	"github.com/DeniProtoshark/Discord-prefix-site-filter-API/internal/processor"
	"github.com/DeniProtoshark/Discord-prefix-site-filter-API/internal/scheduler"
	"github.com/DeniProtoshark/Discord-prefix-site-filter-API/internal/storage"
)

func main() {
	// .env 不存在时忽略
	_ = godotenv.Load()
	cfg := config.Load()

	zl, err := logger.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	m := metrics.New()

	var fetcher collector.Fetcher
	if cfg.MockMode() {
		zl.Warn("no GUILD_ID or DISCORD_BOT_TOKEN, using mock data")
	} else {
		fetcher = collector.NewDiscordEventsFetcher(cfg.GuildID, cfg.DiscordToken, cfg.DiscordAPIBase, cfg.UpstreamTimeout, zl)
	}

	// 多实例部署时通过 Redis 共享限流窗口
	var gate storage.Gate = storage.NewMemoryGate(nil)
	if cfg.RedisAddr != "" {
		rg := storage.NewRedisGate(cfg.RedisAddr, zl)
		defer func() { _ = rg.Shutdown() }()
		gate = rg
	}

	store := storage.NewEventStore(fetcher, storage.Options{
		TTL:        cfg.CacheTTL,
		Normalizer: processor.NewNormalizer(cfg.DiscordCDNBase),
		Gate:       gate,
		Metrics:    m,
		Logger:     zl,
	})

	if !store.MockMode() {
		w, err := scheduler.New(cfg.RefreshCron, store, zl)
		if err != nil {
			zl.Fatal("init cache warmer failed", zap.Error(err))
		}
		if w != nil {
			w.Start()
			defer w.Stop()
		}
	}

	r := gin.Default()
	api.NewServer(store, m, zl).RegisterRoutes(r)
	serveStatic(r, cfg.WebRoot, zl)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("events API running", zap.String("addr", "http://localhost:"+cfg.AppPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server exit", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zl.Error("server shutdown", zap.Error(err))
	}
	zl.Info("server stopped")
}

// serveStatic 托管前端静态文件：未匹配 API 的 GET 请求按文件返回，找不到时回落到 index.html
func serveStatic(r *gin.Engine, root string, zl *zap.Logger) {
	if root == "" {
		return
	}
	if fi, err := os.Stat(root); err != nil || !fi.IsDir() {
		zl.Info("static web root not found, skipping", zap.String("root", root))
		return
	}

	fs := http.FileServer(http.Dir(root))
	indexFile := filepath.Join(root, "index.html")
	r.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.Status(http.StatusNotFound)
			return
		}
		p := filepath.Join(root, filepath.Clean("/"+c.Request.URL.Path))
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			fs.ServeHTTP(c.Writer, c.Request)
			return
		}
		c.File(indexFile)
	})
}
