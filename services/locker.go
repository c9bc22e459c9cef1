package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"practice-hub/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// UserLocker serialises read-modify-write cycles on one user's stats
type UserLocker interface {
	Lock(ctx context.Context, userID string) (unlock func(), err error)
}

// LocalLocker is a keyed mutex for single-instance deployments
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*userLock)}
}

func (l *LocalLocker) Lock(ctx context.Context, userID string) (func(), error) {
	l.mu.Lock()
	ul, ok := l.locks[userID]
	if !ok {
		ul = &userLock{ch: make(chan struct{}, 1)}
		l.locks[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	select {
	case ul.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(userID, ul)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-ul.ch
			l.release(userID, ul)
		})
	}, nil
}

func (l *LocalLocker) release(userID string, ul *userLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ul.refs--
	if ul.refs == 0 {
		delete(l.locks, userID)
	}
}

// ErrLockTimeout is returned when a Redis lock could not be taken in time
var ErrLockTimeout = errors.New("timed out waiting for user lock")

// releaseScript deletes the key only if we still own it
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker takes the lock with SET NX PX so several instances share it
type RedisLocker struct {
	client *redis.Client
	log    *utils.Logger
	prefix string
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

func NewRedisLocker(client *redis.Client, log *utils.Logger) *RedisLocker {
	if log == nil {
		log = utils.NewNopLogger()
	}
	return &RedisLocker{
		client: client,
		log:    log.With("component", "RedisLocker"),
		prefix: "practice-hub:lock:user:",
		ttl:    10 * time.Second,
		wait:   5 * time.Second,
		retry:  25 * time.Millisecond,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, userID string) (func(), error) {
	key := l.prefix + userID
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}
		select {
		case <-time.After(l.retry):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// release even if the request context is already cancelled
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			n, err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Int()
			if err != nil {
				l.log.Warn("failed to release user lock", "key", key, "error", err)
				return
			}
			if n == 0 {
				// ttl expired and someone else holds it now
				l.log.Warn("user lock expired before release", "key", key)
			}
		})
	}, nil
}
