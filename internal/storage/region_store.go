package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/navgrid/internal/config"
)

// ErrClosed хранилище уже закрыто
var ErrClosed = errors.New("storage: store is closed")

// EntityRecord сохранённое состояние сущности
type EntityRecord struct {
	ID      uint64                 `json:"id" bson:"id"`
	Type    string                 `json:"type" bson:"type"`
	X       float64                `json:"x" bson:"x"`
	Y       float64                `json:"y" bson:"y"`
	Height  float64                `json:"height" bson:"height"`
	Payload map[string]interface{} `json:"payload,omitempty" bson:"payload,omitempty"`
}

// RegionSnapshot сущности региона на момент выгрузки
type RegionSnapshot struct {
	X        int            `json:"x" bson:"x"`
	Y        int            `json:"y" bson:"y"`
	Entities []EntityRecord `json:"entities" bson:"entities"`
	SavedAt  time.Time      `json:"saved_at" bson:"saved_at"`
}

// RegionStore определяет интерфейс для сохранения сущностей регионов между
// выгрузкой и повторной активацией.
type RegionStore interface {
	// Save заменяет снимок региона целиком.
	Save(ctx context.Context, snap *RegionSnapshot) error

	// Load загружает снимок. bool == false, если регион ещё не сохранялся.
	Load(ctx context.Context, x, y int) (*RegionSnapshot, bool, error)

	// Delete удаляет снимок региона. Отсутствие снимка не ошибка.
	Delete(ctx context.Context, x, y int) error

	Close() error
}

// Open создаёт хранилище по конфигурации. Для backend "none" возвращает nil.
func Open(cfg config.StorageConfig) (RegionStore, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemoryStore(), nil
	case "badger":
		return NewBadgerStore(cfg.Path)
	case "redis":
		return NewRedisStore(&RedisConfig{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.KeyPrefix,
			TTL:       time.Duration(cfg.TTLMinutes) * time.Minute,
		})
	case "mysql":
		return NewMariaStore(cfg.DSN)
	case "mongo":
		return NewMongoStore(MongoConfig{
			URI:        cfg.MongoURI,
			Database:   cfg.MongoDatabase,
			Collection: cfg.MongoCollection,
		})
	default:
		return nil, fmt.Errorf("storage: неизвестное хранилище %q", cfg.Backend)
	}
}

func regionKey(prefix string, x, y int) string {
	return fmt.Sprintf("%sregion:%d:%d", prefix, x, y)
}
