package state

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"digikala/crawler/internal/domain"
)

type redisVisitedSet struct {
	redisClient *redis.Client
	key         string
}

// NewRedisVisitedSet stores the set under a single Redis key. SADD gives
// the atomic add-if-absent the traversal relies on.
func NewRedisVisitedSet(redisClient *redis.Client, key string) VisitedSet {
	return &redisVisitedSet{
		redisClient: redisClient,
		key:         key,
	}
}

func (s *redisVisitedSet) Add(ctx context.Context, category domain.Category) (bool, error) {
	added, err := s.redisClient.SAdd(ctx, s.key, category.String()).Result()
	if err != nil {
		return false, fmt.Errorf("failed to add category %s to visited set: %w", category, err)
	}
	return added == 1, nil
}

func (s *redisVisitedSet) Contains(ctx context.Context, category domain.Category) (bool, error) {
	ok, err := s.redisClient.SIsMember(ctx, s.key, category.String()).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check category %s: %w", category, err)
	}
	return ok, nil
}

func (s *redisVisitedSet) Members(ctx context.Context) ([]domain.Category, error) {
	vals, err := s.redisClient.SMembers(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list visited categories: %w", err)
	}

	out := make([]domain.Category, 0, len(vals))
	for _, v := range vals {
		out = append(out, domain.Category(v))
	}
	sortCategories(out)
	return out, nil
}

func (s *redisVisitedSet) Len(ctx context.Context) (int, error) {
	n, err := s.redisClient.SCard(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count visited categories: %w", err)
	}
	return int(n), nil
}

func (s *redisVisitedSet) Reset(ctx context.Context) error {
	if err := s.redisClient.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to reset visited set %s: %w", s.key, err)
	}
	return nil
}
