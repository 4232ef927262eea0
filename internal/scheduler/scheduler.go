package scheduler

import (
	"context"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/DeniProtoshark/Discord-prefix-site-filter-API/internal/storage"
)

// 单次预热的上限，避免上游挂起时任务堆积
const warmTimeout = 30 * time.Second

// Refresher 由 storage.EventStore 实现
type Refresher interface {
	Fetch(ctx context.Context, force bool) (storage.Result, error)
}

// Warmer 定时调用 Fetch(force=false)，缓存过期时提前刷新，用户请求尽量命中缓存
type Warmer struct {
	cron  *cron.Cron
	store Refresher
	log   *zap.Logger
}

// New spec 为空或 "off" 时返回 nil, nil，表示不启用
func New(spec string, store Refresher, log *zap.Logger) (*Warmer, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" || strings.EqualFold(spec, "off") {
		return nil, nil
	}
	if log == nil {
		log = zap.NewNop()
	}

	w := &Warmer{
		cron:  cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		store: store,
		log:   log,
	}

	if _, err := w.cron.AddFunc(spec, w.runOnce); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Warmer) Start() {
	w.cron.Start()
	w.log.Info("cache warmer started", zap.Int("jobs", len(w.cron.Entries())))
}

// Stop 等待正在执行的任务结束
func (w *Warmer) Stop() {
	<-w.cron.Stop().Done()
}

// RunOnce 对外暴露的单次执行入口，方便手动触发
func (w *Warmer) RunOnce() {
	w.runOnce()
}

func (w *Warmer) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), warmTimeout)
	defer cancel()

	res, err := w.store.Fetch(ctx, false)
	if err != nil {
		w.log.Warn("cache warm failed", zap.Error(err))
		return
	}
	w.log.Debug("cache warm done", zap.String("source", string(res.Source)), zap.Int("count", len(res.Events)))
}
