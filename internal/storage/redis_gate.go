package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultGateKey = "guild_events:upstream:rate_limited"

// extendScript 剩余 TTL 小于新窗口时才覆盖，PTTL 与 SET 在 Redis 内原子执行
var extendScript = redis.NewScript(`
local ttl = redis.call('PTTL', KEYS[1])
if ttl < tonumber(ARGV[1]) then
  redis.call('SET', KEYS[1], '1', 'PX', ARGV[1])
  return 1
end
return 0
`)

// RedisGate 多个实例共享同一个上游限流窗口；Redis 不可用时视为未限流
type RedisGate struct {
	Redis *redis.Client
	Key   string
	log   *zap.Logger
}

func NewRedisGate(addr string, log *zap.Logger) *RedisGate {
	if log == nil {
		log = zap.NewNop()
	}
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis ping failed", zap.String("addr", addr), zap.Error(err))
	}

	return &RedisGate{Redis: rdb, Key: defaultGateKey, log: log}
}

func (g *RedisGate) key() string {
	if g.Key == "" {
		return defaultGateKey
	}
	return g.Key
}

func (g *RedisGate) Closed(ctx context.Context) bool {
	n, err := g.Redis.Exists(ctx, g.key()).Result()
	if err != nil {
		g.log.Warn("redis gate check failed", zap.Error(err))
		return false
	}
	return n > 0
}

// Close 只会延长已有窗口，不会缩短
func (g *RedisGate) Close(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	ms := d.Milliseconds()
	if ms <= 0 {
		ms = 1
	}
	if err := extendScript.Run(ctx, g.Redis, []string{g.key()}, ms).Err(); err != nil {
		g.log.Warn("redis gate update failed", zap.Error(err))
	}
}

func (g *RedisGate) Shutdown() error {
	return g.Redis.Close()
}
