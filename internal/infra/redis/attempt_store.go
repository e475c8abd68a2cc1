package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-miniapp/internal/app"
	"quiz-miniapp/internal/domain"
)

var _ app.AttemptRegistry = (*AttemptStore)(nil)

// AttemptStore is a Redis implementation of app.AttemptRegistry. Each live
// attempt holds a liveness key so every instance sees it:
//
//	SET quiz:attempt:{quizID}:{userID} {attemptID} NX PX hold+ttl
type AttemptStore struct {
	client *redis.Client
	ttl    time.Duration
}

// releaseScript deletes the key only while attemptID still holds it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewAttemptStore(client *redis.Client, ttl time.Duration) *AttemptStore {
	return &AttemptStore{client: client, ttl: ttl}
}

func (s *AttemptStore) Begin(ctx context.Context, userID, quizID int64, attemptID string, hold time.Duration) error {
	key := s.key(userID, quizID)
	ttl := hold + s.ttl
	ok, err := s.client.SetNX(ctx, key, attemptID, ttl).Result()
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	holder, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// expired between the two calls
		return s.Begin(ctx, userID, quizID, attemptID, hold)
	}
	if err != nil {
		return err
	}
	if holder == attemptID {
		return s.client.Expire(ctx, key, ttl).Err()
	}
	return domain.ErrAttemptInProgress
}

func (s *AttemptStore) End(ctx context.Context, userID, quizID int64, attemptID string) error {
	return releaseScript.Run(ctx, s.client, []string{s.key(userID, quizID)}, attemptID).Err()
}

func (s *AttemptStore) key(userID, quizID int64) string {
	return "quiz:attempt:" + app.AttemptKey(userID, quizID)
}
