package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/DeniProtoshark/Discord-prefix-site-filter-API/internal/api"
	"github.com/DeniProtoshark/Discord-prefix-site-filter-API/internal/collector"
	"github.com/DeniProtoshark/Discord-prefix-site-filter-API/internal/config"
	"github.com/DeniProtoshark/Discord-prefix-site-filter-API/internal/logger"
	"github.com/DeniProtoshark/Discord-prefix-site-filter-API/internal/processor"
	"github.com/DeniProtoshark/Discord-prefix-site-filter-API/internal/storage"
)

// 一个仅拉取一次的命令行入口：打印规范化后的活动列表，便于排查上游数据
func main() {
	query := flag.String("query", "", "filters in /api/events form, e.g. type=irl&status=live&limit=5")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	zl, err := logger.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	var fetcher collector.Fetcher
	if !cfg.MockMode() {
		fetcher = collector.NewDiscordEventsFetcher(cfg.GuildID, cfg.DiscordToken, cfg.DiscordAPIBase, cfg.UpstreamTimeout, zl)
	}
	store := storage.NewEventStore(fetcher, storage.Options{
		Normalizer: processor.NewNormalizer(cfg.DiscordCDNBase),
		Logger:     zl,
	})

	q, err := api.ParseQueryString(*query)
	if err != nil {
		zl.Fatal("invalid -query", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.UpstreamTimeout+5*time.Second)
	defer cancel()

	res, err := store.Fetch(ctx, true)
	if err != nil {
		zl.Fatal("fetch events failed", zap.Error(err))
	}
	zl.Info("fetched events", zap.String("source", string(res.Source)), zap.Int("count", len(res.Events)))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(q.Apply(res.Events)); err != nil {
		zl.Fatal("encode events failed", zap.Error(err))
	}
}
