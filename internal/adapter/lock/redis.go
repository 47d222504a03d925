package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// releaseScript deletes the lock only while it still carries our token.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

var ErrLockTimeout = errors.New("timed out waiting for event lock")

type RedisLockerConfig struct {
	TTL         time.Duration
	RetryDelay  time.Duration
	WaitTimeout time.Duration
	KeyPrefix   string
}

// RedisLocker serializes writers of one event across instances with
// SET NX PX. The TTL bounds how long a crashed holder blocks the event.
type RedisLocker struct {
	client *redis.Client
	cfg    RedisLockerConfig
	log    zerolog.Logger
	token  func() string
}

func NewRedisLocker(client *redis.Client, cfg RedisLockerConfig, log zerolog.Logger) *RedisLocker {
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Second
	}

	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 50 * time.Millisecond
	}

	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 5 * time.Second
	}

	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "lock:event:"
	}

	return &RedisLocker{
		client: client,
		cfg:    cfg,
		log:    log,
		token:  func() string { return uuid.NewString() },
	}
}

func (l *RedisLocker) Key(eventID uuid.UUID) string {
	return l.cfg.KeyPrefix + eventID.String()
}

func (l *RedisLocker) Lock(ctx context.Context, eventID uuid.UUID) (func(), error) {
	key := l.Key(eventID)
	token := l.token()
	deadline := time.Now().Add(l.cfg.WaitTimeout)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.cfg.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}

		if ok {
			break
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.cfg.RetryDelay):
		}
	}

	return func() {
		// Release on a fresh context; the caller's may already be done.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := l.client.Eval(releaseCtx, releaseScript, []string{key}, token).Err(); err != nil {
			l.log.Warn().Err(err).Str("key", key).Msg("release event lock")
		}
	}, nil
}
