package redisstore

import (
	"context"
	"errors"
	"slices"
	"strings"

	redis "github.com/redis/go-redis/v9"
)

const defaultPrefix = "backoffice:local:"

// Store keeps each local key as a plain Redis string under a prefix, so
// several gateway replicas share one offline copy.
type Store struct {
	client *redis.Client
	prefix string
}

func New(addr string, password string, db int) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Store{client: client, prefix: defaultPrefix}
}

// WithPrefix namespaces keys, per tenant in production and per run in tests.
func (s *Store) WithPrefix(prefix string) *Store {
	return &Store{client: s.client, prefix: prefix}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, s.prefix+key, value, 0).Err()
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, 16)
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	slices.Sort(keys)
	return keys, nil
}
