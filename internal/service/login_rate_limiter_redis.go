package service

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cuenta el intento y devuelve {contador, ttl} en una sola ida: el TTL alimenta
// el Retry-After que el handler expone cuando la ventana está llena.
const redisLoginAllowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("TTL", KEYS[1])
return {current, ttl}
`

type redisLoginRateLimiter struct {
	client redisEvaler
	window time.Duration
	max    int
	prefix string
}

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// NewRedisLoginRateLimiter comparte la ventana de intentos entre procesos.
func NewRedisLoginRateLimiter(client *redis.Client, window time.Duration, max int) LoginRateLimiter {
	if client == nil {
		return nil
	}
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &redisLoginRateLimiter{
		client: client,
		window: window,
		max:    max,
		prefix: "login:rl:",
	}
}

func (l *redisLoginRateLimiter) Allow(key string) (bool, time.Duration) {
	if l == nil || l.client == nil {
		return true, 0
	}
	normalizedKey := strings.ToLower(strings.TrimSpace(key))
	if normalizedKey == "" {
		return false, l.window
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	redisKey := l.prefix + normalizedKey
	seconds := int(l.window.Seconds())
	if seconds <= 0 {
		seconds = 60
	}
	res, err := l.client.Eval(ctx, redisLoginAllowScript, []string{redisKey}, seconds).Result()
	if err != nil {
		// Ante un Redis caído no bloqueamos logins.
		return true, 0
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return true, 0
	}
	count, _ := vals[0].(int64)
	ttl, _ := vals[1].(int64)
	if count <= int64(l.max) {
		return true, 0
	}
	if ttl < 0 {
		ttl = int64(seconds)
	}
	return false, time.Duration(ttl) * time.Second
}
