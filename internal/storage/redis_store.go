package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/annel0/navgrid/internal/logging"
	"github.com/go-redis/redis/v8"
)

// RedisStore хранит снимки регионов в Redis, по ключу на регион
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Addr      string        // Адрес Redis сервера
	Password  string        // Пароль (пустой если не требуется)
	DB        int           // Номер базы данных
	KeyPrefix string        // Префикс для ключей
	TTL       time.Duration // Время жизни записей, 0 без ограничения
}

// DefaultRedisConfig возвращает конфигурацию по умолчанию
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "navgrid:",
	}
}

// NewRedisStore подключается к Redis и проверяет соединение
func NewRedisStore(config *RedisConfig) (*RedisStore, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.Info("Подключено к Redis %s", config.Addr)
	return &RedisStore{
		client:    client,
		keyPrefix: config.KeyPrefix,
		ttl:       config.TTL,
	}, nil
}

func (rs *RedisStore) Save(ctx context.Context, snap *RegionSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal region: %w", err)
	}
	if err := rs.client.Set(ctx, regionKey(rs.keyPrefix, snap.X, snap.Y), data, rs.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save region (%d, %d): %w", snap.X, snap.Y, err)
	}
	return nil
}

func (rs *RedisStore) Load(ctx context.Context, x, y int) (*RegionSnapshot, bool, error) {
	data, err := rs.client.Get(ctx, regionKey(rs.keyPrefix, x, y)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load region (%d, %d): %w", x, y, err)
	}

	var snap RegionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal region: %w", err)
	}
	return &snap, true, nil
}

func (rs *RedisStore) Delete(ctx context.Context, x, y int) error {
	return rs.client.Del(ctx, regionKey(rs.keyPrefix, x, y)).Err()
}

func (rs *RedisStore) Close() error {
	return rs.client.Close()
}
