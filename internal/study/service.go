package study

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kapsa-app/backend/internal/auth"
	"github.com/kapsa-app/backend/internal/logger"
	"github.com/kapsa-app/backend/internal/replicate"
)

// Service composes the study use cases. Validation happens in the handler;
// everything from the ownership check onward lives here.
type Service struct {
	repo     *Repo
	ai       replicate.Runner
	verifier auth.Verifier
	rdb      *redis.Client
	log      *logger.Logger
}

func NewService(repo *Repo, ai replicate.Runner, verifier auth.Verifier, rdb *redis.Client, log *logger.Logger) *Service {
	return &Service{repo: repo, ai: ai, verifier: verifier, rdb: rdb, log: log}
}

// trackUsage bumps the per-user feature counter in the database and mirrors
// it in redis. Both writes are best effort; a miss never fails the request.
func (s *Service) trackUsage(ctx context.Context, userID, feature string) {
	day := time.Now().UTC().Format("2006-01-02")
	if err := s.repo.IncrementUsage(ctx, userID, feature, day); err != nil {
		s.log.Warn("usage increment failed", "user_id", userID, "feature", feature, "err", err)
	}
	if s.rdb != nil {
		key := usageKey(userID, feature, day)
		if err := s.rdb.Incr(ctx, key).Err(); err != nil {
			s.log.Warn("usage redis incr failed", "key", key, "err", err)
		} else {
			s.rdb.Expire(ctx, key, 48*time.Hour)
		}
	}
}

func usageKey(userID, feature, day string) string {
	return "usage:" + userID + ":" + feature + ":" + day
}
