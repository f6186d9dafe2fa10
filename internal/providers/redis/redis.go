package redis

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisProvider wraps the client used for cache-aside reads and the
// realtime bridge.
type RedisProvider struct {
	Client *redis.Client
	URL    string
	logger *zap.SugaredLogger
	ttl    time.Duration
	stop   context.CancelFunc
}

// NewRedisProvider accepts a redis:// URL or a bare host:port. It does not
// fail when Redis is down: callers treat the cache as optional and the
// monitor logs when the connection comes back.
func NewRedisProvider(redisURL string, logger *zap.Logger, ttl time.Duration) *RedisProvider {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		opts = &redis.Options{Addr: redisURL}
	}
	opts.MaxRetries = 3
	opts.MinRetryBackoff = 100 * time.Millisecond
	opts.MaxRetryBackoff = 500 * time.Millisecond

	client := redis.NewClient(opts)

	monitorCtx, stop := context.WithCancel(context.Background())
	provider := &RedisProvider{
		Client: client,
		URL:    redisURL,
		logger: logger.Sugar(),
		ttl:    ttl,
		stop:   stop,
	}
	client.AddHook(&loggerHook{logger: provider.logger})

	if err := client.Ping(context.Background()).Err(); err != nil {
		provider.logger.Errorw("Redis connection failed at startup", "error", err)
	} else {
		provider.logger.Infow("Redis connected", "url", redisURL, "db", opts.DB, "default_ttl", ttl.String())
	}
	go provider.monitor(monitorCtx, err == nil)

	return provider
}

func (r *RedisProvider) Del(ctx context.Context, keys ...string) {
	if err := r.Client.Del(ctx, keys...).Err(); err != nil {
		r.logger.Warnw("Cache delete failed", "keys", keys, "error", err)
	}
}

// GetJSON decodes the cached value at key into dst. A miss or an undecodable
// value reports false.
func (r *RedisProvider) GetJSON(ctx context.Context, key string, dst interface{}) bool {
	data, err := r.Client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warnw("Cache read failed", "key", key, "error", err)
		}
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

// SetJSON caches value at key; ttl <= 0 uses the provider default.
func (r *RedisProvider) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		r.logger.Warnw("Cache encode failed", "key", key, "error", err)
		return
	}
	if ttl <= 0 {
		ttl = r.ttl
	}
	if err := r.Client.Set(ctx, key, data, ttl).Err(); err != nil {
		r.logger.Warnw("Cache write failed", "key", key, "error", err)
	}
}

func (r *RedisProvider) Close() error {
	r.stop()
	return r.Client.Close()
}

// monitor logs connection state changes until ctx is cancelled.
func (r *RedisProvider) monitor(ctx context.Context, connected bool) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := r.Client.Ping(ctx).Err()
			switch {
			case err != nil && connected:
				r.logger.Errorw("Redis disconnected", "error", err)
				connected = false
			case err == nil && !connected:
				r.logger.Infow("Redis reconnected", "url", r.URL)
				connected = true
			}
		}
	}
}

// loggerHook logs failed commands. Arguments are left out since cached
// values carry user data.
type loggerHook struct {
	logger *zap.SugaredLogger
}

func (h *loggerHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			h.logger.Errorw("Redis dial failed", "addr", addr, "error", err)
		}
		return conn, err
	}
}

func (h *loggerHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.log(cmd, err, time.Since(start))
		return err
	}
}

func (h *loggerHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		for _, cmd := range cmds {
			h.log(cmd, cmd.Err(), time.Since(start))
		}
		return err
	}
}

func (h *loggerHook) log(cmd redis.Cmder, err error, took time.Duration) {
	switch {
	case err == nil:
		h.logger.Debugw("Redis command executed", "command", cmd.Name(), "duration_ms", took.Milliseconds())
	case errors.Is(err, redis.Nil):
	case cmd.Name() == "ping":
	default:
		h.logger.Errorw("Redis command failed", "command", cmd.Name(), "duration_ms", took.Milliseconds(), "error", err)
	}
}
