package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

const (
	assessmentsKey       = "assessments" // Set: Stores all assessment IDs
	assessmentInfoPrefix = "assessment:" // String prefix: assessment:{id} -> JSON document
)

// RedisService stores records as JSON strings in Redis
type RedisService struct {
	Client *redis.Client
}

// NewRedisService creates a new RedisService instance
func NewRedisService(client *redis.Client) *RedisService {
	return &RedisService{
		Client: client,
	}
}

// Helper to generate assessment document key
func getAssessmentKey(id string) string {
	return assessmentInfoPrefix + id
}

func (s *RedisService) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.Client.Get(ctx, getAssessmentKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get assessment from Redis: %w", err)
	}
	return data, nil
}

func (s *RedisService) Put(ctx context.Context, key string, value []byte) error {
	pipe := s.Client.TxPipeline()
	// Add the ID to the global set of assessments
	pipe.SAdd(ctx, assessmentsKey, key)
	// Store the document itself
	pipe.Set(ctx, getAssessmentKey(key), value, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save assessment to Redis: %w", err)
	}
	return nil
}

// List walks the ID set; IDs whose document vanished are dropped from the set
func (s *RedisService) List(ctx context.Context) ([]Record, error) {
	ids, err := s.Client.SMembers(ctx, assessmentsKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("failed to get assessment IDs from Redis: %w", err)
	}
	if len(ids) == 0 {
		return []Record{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = getAssessmentKey(id)
	}
	values, err := s.Client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get assessments from Redis: %w", err)
	}

	records := make([]Record, 0, len(ids))
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			log.Debug().Str("id", ids[i]).Msg("assessment listed but document missing")
			s.Client.SRem(ctx, assessmentsKey, ids[i])
			continue
		}
		records = append(records, Record{Key: ids[i], Value: []byte(str)})
	}
	return records, nil
}

func (s *RedisService) Delete(ctx context.Context, key string) (bool, error) {
	pipe := s.Client.TxPipeline()
	del := pipe.Del(ctx, getAssessmentKey(key))
	pipe.SRem(ctx, assessmentsKey, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to delete assessment from Redis: %w", err)
	}
	return del.Val() > 0, nil
}

func (s *RedisService) Close() error {
	return s.Client.Close()
}

// InitializeRedisClient creates and tests a Redis client connection
func InitializeRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Ping Redis to check connection
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("could not connect to Redis at %s: %w", addr, err)
	}

	log.Info().Str("addr", addr).Int("db", db).Msg("connected to Redis")
	return rdb, nil
}
