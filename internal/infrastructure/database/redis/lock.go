package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/caselens/claimsift/pkg/errors"
)

// ErrLockNotHeld is returned when releasing a lock owned by someone else.
var ErrLockNotHeld = errors.New(errors.ErrCodeConflict, "lock not held by this owner")

// JobLock serializes work on one document across workers: the consumer
// acquires the lock for the document hash before analyzing, so a job
// delivered to two group members is only processed once.
type JobLock interface {
	// TryAcquire returns true when this process now holds the lock.
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release frees the lock if still held by this process.
	Release(ctx context.Context, key string) error
}

// releaseScript deletes the key only when the stored owner token matches,
// so an expired-and-reacquired lock is never released by the old owner.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type jobLock struct {
	client *Client
	prefix string
	owner  string
}

// NewJobLock builds a lock namespace on an existing client. Each process gets
// a random owner token.
func NewJobLock(client *Client) JobLock {
	return &jobLock{
		client: client,
		prefix: "claimsift:lock:",
		owner:  uuid.NewString(),
	}
}

func (l *jobLock) TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	ok, err := l.client.rdb.SetNX(ctx, l.prefix+key, l.owner, ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "lock acquire failed")
	}
	return ok, nil
}

func (l *jobLock) Release(ctx context.Context, key string) error {
	n, err := releaseScript.Run(ctx, l.client.rdb, []string{l.prefix + key}, l.owner).Int()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "lock release failed")
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}
