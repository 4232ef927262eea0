package config

import (
	"log"
	"os"
	"strings"
	"time"
)

type Config struct {
	AppPort string

	// Discord 凭据；任一为空时进入 mock 模式
	GuildID      string
	DiscordToken string

	DiscordAPIBase string
	DiscordCDNBase string

	CacheTTL        time.Duration
	UpstreamTimeout time.Duration

	// 可选：配置后用 Redis 在多实例间共享上游限流状态
	RedisAddr string

	// 预热缓存的 cron 表达式，"off" 表示关闭
	RefreshCron string

	WebRoot string

	LogLevel    string
	LogEncoding string
}

func Load() *Config {
	cfg := &Config{
		AppPort:         getEnv("APP_PORT", getEnv("PORT", "3000")),
		GuildID:         strings.TrimSpace(os.Getenv("GUILD_ID")),
		DiscordToken:    strings.TrimSpace(os.Getenv("DISCORD_BOT_TOKEN")),
		DiscordAPIBase:  getEnv("DISCORD_API_BASE", ""),
		DiscordCDNBase:  getEnv("DISCORD_CDN_BASE", ""),
		CacheTTL:        getDuration("CACHE_TTL", 60*time.Second),
		UpstreamTimeout: getDuration("UPSTREAM_TIMEOUT", 10*time.Second),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RefreshCron:     getEnv("REFRESH_CRON", "*/5 * * * *"),
		WebRoot:         getEnv("WEB_ROOT", "public"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogEncoding:     getEnv("LOG_ENCODING", "console"),
	}

	log.Printf("config loaded: port=%s mock=%t ttl=%s cron=%s", cfg.AppPort, cfg.MockMode(), cfg.CacheTTL, cfg.RefreshCron)
	return cfg
}

// MockMode 未配置 GUILD_ID 或 DISCORD_BOT_TOKEN 时返回 true
func (c *Config) MockMode() bool {
	return c.GuildID == "" || c.DiscordToken == ""
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getDuration 支持 "90s" 这类写法，也兼容纯数字（按秒）
func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if d, err := time.ParseDuration(v + "s"); err == nil && d > 0 {
		return d
	}
	log.Printf("warn: invalid duration %s=%q, using %s", key, v, def)
	return def
}
