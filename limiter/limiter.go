package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Strategy 定义限流算法策略接口
type Strategy interface {
	// Allow key: 限流标识 (如 IP)，limit: 次数或桶容量，window: 时间窗口
	Allow(ctx context.Context, rdb *redis.Client, key string, limit int, window time.Duration) (bool, error)
}

// NewStrategy name: fixed_window | token_bucket
func NewStrategy(name string) (Strategy, error) {
	switch name {
	case "", "fixed_window":
		return &FixedWindowStrategy{}, nil
	case "token_bucket":
		return &TokenBucketStrategy{}, nil
	}
	return nil, fmt.Errorf("unknown rate limit strategy %q", name)
}

// Manager 限流管理器，绑定一个 redis 连接、一个策略和一组限额
type Manager struct {
	rdb      *redis.Client
	strategy Strategy
	prefix   string
	limit    int
	window   time.Duration
}

func NewManager(rdb *redis.Client, strategy Strategy, limit int, window time.Duration) *Manager {
	return &Manager{
		rdb:      rdb,
		strategy: strategy,
		prefix:   "recticket:limiter",
		limit:    limit,
		window:   window,
	}
}

// Key 不同路由使用不同的计数器
func (m *Manager) Key(scope, ident string) string {
	return fmt.Sprintf("%s:%s:%s", m.prefix, scope, ident)
}

// Allow 代理执行具体的策略
func (m *Manager) Allow(ctx context.Context, key string) (bool, error) {
	return m.strategy.Allow(ctx, m.rdb, key, m.limit, m.window)
}

// FixedWindowStrategy 固定窗口计数
type FixedWindowStrategy struct{}

// INCR 和 EXPIRE 在一个脚本里原子执行
var fixedWindowScript = redis.NewScript(`
	local current = redis.call("INCR", KEYS[1])
	if current == 1 then
		redis.call("PEXPIRE", KEYS[1], ARGV[2])
	end
	if current > tonumber(ARGV[1]) then
		return 0
	end
	return 1
`)

func (s *FixedWindowStrategy) Allow(ctx context.Context, rdb *redis.Client, key string, limit int, window time.Duration) (bool, error) {
	result, err := fixedWindowScript.Run(ctx, rdb, []string{key}, limit, window.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return result == 1, nil
}

// TokenBucketStrategy 令牌桶，容量为 limit，每个 window 补满
type TokenBucketStrategy struct{}

// ARGV: 容量, 每毫秒生成的令牌数, 当前毫秒时间戳, 过期毫秒
var tokenBucketScript = redis.NewScript(`
	local capacity = tonumber(ARGV[1])
	local rate = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])

	local info = redis.call("HMGET", KEYS[1], "tokens", "last_time")
	local tokens = tonumber(info[1])
	local last_time = tonumber(info[2])
	if tokens == nil then
		tokens = capacity
		last_time = now
	end

	tokens = math.min(capacity, tokens + math.max(0, now - last_time) * rate)
	local allowed = 0
	if tokens >= 1 then
		tokens = tokens - 1
		allowed = 1
	end
	redis.call("HSET", KEYS[1], "tokens", tokens, "last_time", now)
	redis.call("PEXPIRE", KEYS[1], ARGV[4])
	return allowed
`)

func (s *TokenBucketStrategy) Allow(ctx context.Context, rdb *redis.Client, key string, limit int, window time.Duration) (bool, error) {
	ms := window.Milliseconds()
	if ms <= 0 {
		ms = 1000
	}
	rate := float64(limit) / float64(ms)
	now := time.Now().UnixMilli()
	result, err := tokenBucketScript.Run(ctx, rdb, []string{key}, limit, rate, now, 2*ms).Int()
	if err != nil {
		return false, err
	}
	return result == 1, nil
}
