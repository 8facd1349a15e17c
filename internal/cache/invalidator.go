package cache

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/coursebridge/migration-backend/internal/logger"
)

// Invalidator drops cached views of a course after the migration rewrites
// it. Invalidation is best effort; a miss only delays freshness.
type Invalidator interface {
	InvalidateCourse(ctx context.Context, courseID uuid.UUID)
	InvalidateEnrollmentCounts(ctx context.Context, courseID uuid.UUID)
}

// Fanout applies every configured invalidator; zero invalidators is fine.
type Fanout struct {
	invalidators []Invalidator
}

func NewFanout(invalidators ...Invalidator) *Fanout {
	active := make([]Invalidator, 0, len(invalidators))
	for _, inv := range invalidators {
		if inv != nil {
			active = append(active, inv)
		}
	}
	return &Fanout{invalidators: active}
}

func (f *Fanout) InvalidateCourse(ctx context.Context, courseID uuid.UUID) {
	for _, inv := range f.invalidators {
		inv.InvalidateCourse(ctx, courseID)
	}
}

func (f *Fanout) InvalidateEnrollmentCounts(ctx context.Context, courseID uuid.UUID) {
	for _, inv := range f.invalidators {
		inv.InvalidateEnrollmentCounts(ctx, courseID)
	}
}

type redisInvalidator struct {
	log *logger.Logger
	rdb *goredis.Client
}

// NewRedisInvalidator connects to REDIS_ADDR. A missing address is an
// error so callers can decide to run without cache invalidation.
func NewRedisInvalidator(log *logger.Logger) (Invalidator, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisInvalidator{
		log: log.With("service", "RedisInvalidator"),
		rdb: rdb,
	}, nil
}

func (r *redisInvalidator) InvalidateCourse(ctx context.Context, courseID uuid.UUID) {
	keys := []string{
		"course:" + courseID.String(),
		"course:" + courseID.String() + ":sections_items",
	}
	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		r.log.Warn("Failed to invalidate course cache", "course_id", courseID, "error", err)
	}
}

func (r *redisInvalidator) InvalidateEnrollmentCounts(ctx context.Context, courseID uuid.UUID) {
	key := "course:" + courseID.String() + ":student_count"
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		r.log.Warn("Failed to invalidate enrollment count cache", "course_id", courseID, "error", err)
	}
}
