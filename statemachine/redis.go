package statemachine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	rd "github.com/go-redis/redis/v9"
	"github.com/mohitkumar/eventflow/logger"
	"github.com/mohitkumar/eventflow/util"
	"go.uber.org/zap"
)

const STATE_KEY string = "STATE"

type RedisConfig struct {
	Addrs         []string
	Namespace     string
	Password      string
	MaxRetry      uint64
	RetryInterval time.Duration
}

type RedisStore struct {
	redisClient    rd.UniversalClient
	namespace      string
	encoderDecoder util.EncoderDecoder[any]
	maxRetry       uint64
	retryInterval  time.Duration
}

var _ Store = new(RedisStore)

func NewRedisStore(conf RedisConfig) *RedisStore {
	redisClient := rd.NewUniversalClient(&rd.UniversalOptions{
		Addrs:    conf.Addrs,
		Password: conf.Password,
	})
	if conf.RetryInterval <= 0 {
		conf.RetryInterval = 100 * time.Millisecond
	}
	return &RedisStore{
		redisClient:    redisClient,
		namespace:      conf.Namespace,
		encoderDecoder: util.NewJsonEncoderDecoder[any](),
		maxRetry:       conf.MaxRetry,
		retryInterval:  conf.RetryInterval,
	}
}

func (s *RedisStore) getNamespaceKey(args ...string) string {
	return fmt.Sprintf("%s:%s", s.namespace, strings.Join(args, ":"))
}

func (s *RedisStore) retry(ctx context.Context, fn func() error) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(s.retryInterval), s.maxRetry), ctx)
	return backoff.Retry(fn, policy)
}

func (s *RedisStore) Put(ctx context.Context, key string, value any) error {
	data, err := s.encoderDecoder.Encode(value)
	if err != nil {
		return err
	}
	k := s.getNamespaceKey(STATE_KEY, key)
	err = s.retry(ctx, func() error {
		return s.redisClient.Set(ctx, k, string(data), 0).Err()
	})
	if err != nil {
		logger.Error("error in saving state", zap.String("key", key), zap.Error(err))
		return StorageError{Message: err.Error()}
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (any, bool, error) {
	k := s.getNamespaceKey(STATE_KEY, key)
	var data string
	err := s.retry(ctx, func() error {
		var err error
		data, err = s.redisClient.Get(ctx, k).Result()
		if errors.Is(err, rd.Nil) {
			return backoff.Permanent(err)
		}
		return err
	})
	if errors.Is(err, rd.Nil) {
		return nil, false, nil
	}
	if err != nil {
		logger.Error("error in getting state", zap.String("key", key), zap.Error(err))
		return nil, false, StorageError{Message: err.Error()}
	}
	value, err := s.encoderDecoder.Decode([]byte(data))
	if err != nil {
		return nil, false, err
	}
	return *value, true, nil
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	k := s.getNamespaceKey(STATE_KEY, key)
	err := s.retry(ctx, func() error {
		return s.redisClient.Del(ctx, k).Err()
	})
	if err != nil {
		logger.Error("error in removing state", zap.String("key", key), zap.Error(err))
		return StorageError{Message: err.Error()}
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.redisClient.Close()
}
