package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/DeniProtoshark/Discord-prefix-site-filter-API/internal/metrics"
	"github.com/DeniProtoshark/Discord-prefix-site-filter-API/internal/processor"
	"github.com/DeniProtoshark/Discord-prefix-site-filter-API/internal/storage"
)

// headerSource 告诉调用方这次数据来自哪条路径（fresh / cached / stale / mock）
const headerSource = "X-Events-Source"

// EventSource 由 storage.EventStore 实现，测试中可以替换
type EventSource interface {
	Fetch(ctx context.Context, force bool) (storage.Result, error)
	Snapshot() ([]processor.NormalizedEvent, bool)
	RecordInterest(id, action string) (processor.StatsSnapshot, error)
}

type Server struct {
	store   EventSource
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewServer(store EventSource, m *metrics.Metrics, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{store: store, metrics: m, log: log}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	events := r.Group("/api/events")
	{
		events.GET("", s.listEvents)
		events.GET("/live", s.listLive)
		events.GET("/:id", s.getEvent)
		events.POST("/:id/interest", s.recordInterest)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listEvents(c *gin.Context) {
	q := ParseQuery(c.Request.URL.Query())

	res, err := s.store.Fetch(c.Request.Context(), q.Force)
	if err != nil {
		s.log.Error("load events failed", zap.Error(err))

		// 上游失败但有旧缓存：按同样的条件过滤后返回
		if cached, ok := s.store.Snapshot(); ok {
			s.log.Warn("returning cached events due to error")
			c.Header(headerSource, string(storage.SourceStale))
			c.JSON(http.StatusOK, q.Apply(cached))
			return
		}
		writeError(c, http.StatusInternalServerError, "Failed to load events")
		return
	}

	c.Header(headerSource, string(res.Source))
	c.JSON(http.StatusOK, q.Apply(res.Events))
}

func (s *Server) listLive(c *gin.Context) {
	res, err := s.store.Fetch(c.Request.Context(), false)
	if err != nil {
		s.log.Error("load live events failed", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "Failed to load live events")
		return
	}

	live := make([]processor.NormalizedEvent, 0, len(res.Events))
	for _, e := range res.Events {
		if e.Status.Code == processor.StatusLive {
			live = append(live, e)
		}
	}
	c.Header(headerSource, string(res.Source))
	c.JSON(http.StatusOK, live)
}

func (s *Server) getEvent(c *gin.Context) {
	id := c.Param("id")

	res, err := s.store.Fetch(c.Request.Context(), false)
	if err != nil {
		s.log.Error("load event failed", zap.String("id", id), zap.Error(err))
		writeError(c, http.StatusInternalServerError, "Failed to load event")
		return
	}

	for _, e := range res.Events {
		if e.ID == id {
			c.Header(headerSource, string(res.Source))
			c.JSON(http.StatusOK, e)
			return
		}
	}
	writeError(c, http.StatusNotFound, "Event not found")
}

type interestRequest struct {
	Action string `json:"action"`
}

func (s *Server) recordInterest(c *gin.Context) {
	var req interestRequest
	// 只解析 application/json；body 缺失、类型不对或不是 JSON 时 action 为空，统一按非法 action 处理
	if c.ContentType() == gin.MIMEJSON {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.log.Debug("decode interest body failed", zap.Error(err))
		}
	}

	snap, err := s.store.RecordInterest(c.Param("id"), req.Action)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidAction) {
			writeError(c, http.StatusBadRequest, "Invalid action")
			return
		}
		s.log.Error("record interest failed", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "Failed to record interest")
		return
	}
	c.JSON(http.StatusOK, snap)
}

func writeError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}
