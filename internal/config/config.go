package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации сервиса навигации.
type Config struct {
	NavGrid   NavGridConfig   `yaml:"navgrid"`
	Terrain   TerrainConfig   `yaml:"terrain"`
	World     WorldConfig     `yaml:"world"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Storage   StorageConfig   `yaml:"storage"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	LogLevel  string          `yaml:"log_level"`
}

// NavGridConfig параметры сетки свободных позиций одного региона
type NavGridConfig struct {
	FieldSize           float64 `yaml:"field_size"`            // Размер клетки в мировых единицах
	RegionScale         float64 `yaml:"region_scale"`          // Сторона региона в мировых единицах
	MaxWalkableSlope    float64 `yaml:"max_walkable_slope"`    // Градусы
	MaxSearchIterations int     `yaml:"max_search_iterations"` // Предел итераций A*
	ShuffleSeed         int64   `yaml:"shuffle_seed"`          // 0: от сида региона
}

// TerrainConfig параметры генератора ландшафта
type TerrainConfig struct {
	Seed        int64   `yaml:"seed"`
	NoiseScale  float64 `yaml:"noise_scale"`
	BiomeScale  float64 `yaml:"biome_scale"`
	HeightScale float64 `yaml:"height_scale"`
	WaterLevel  float64 `yaml:"water_level"`
	Octaves     int     `yaml:"octaves"`
}

// WorldConfig параметры симуляции регионов
type WorldConfig struct {
	Workers       int `yaml:"workers"`
	TickMs        int `yaml:"tick_ms"`
	AIRequeryMs   int `yaml:"ai_requery_ms"`
	AIMaxFailures int `yaml:"ai_max_failures"`
}

type EventBusConfig struct {
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
	Buffer    int    `yaml:"buffer"`
}

// StorageConfig хранилище сущностей выгруженных регионов
type StorageConfig struct {
	Backend   string `yaml:"backend"` // none, memory, badger, redis, mysql, mongo
	Path      string `yaml:"path"`    // Каталог BadgerDB
	TimeoutMs int    `yaml:"timeout_ms"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	KeyPrefix     string `yaml:"key_prefix"`
	TTLMinutes    int    `yaml:"ttl_minutes"` // 0: без срока жизни

	DSN string `yaml:"dsn"` // user:pass@tcp(host:port)/dbname

	MongoURI        string `yaml:"mongo_uri"`
	MongoDatabase   string `yaml:"mongo_database"`
	MongoCollection string `yaml:"mongo_collection"`
}

type ServerConfig struct {
	RESTPort    int    `yaml:"rest_port"`
	MetricsPort int    `yaml:"metrics_port"`
	AuthSecret  string `yaml:"auth_secret"` // base64, пусто: изменяющие запросы без токена
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		NavGrid: NavGridConfig{
			FieldSize:           2.0,
			RegionScale:         128.0,
			MaxWalkableSlope:    35.0,
			MaxSearchIterations: 5000,
		},
		Terrain: TerrainConfig{
			Seed:        12345,
			NoiseScale:  0.01,
			BiomeScale:  0.004,
			HeightScale: 40.0,
			WaterLevel:  12.0,
			Octaves:     3,
		},
		World: WorldConfig{
			Workers:       4,
			TickMs:        50,
			AIRequeryMs:   300,
			AIMaxFailures: 5,
		},
		EventBus: EventBusConfig{
			Stream:    "NAVGRID",
			Retention: 24,
			Buffer:    1024,
		},
		Storage: StorageConfig{
			Backend:         "none",
			Path:            "./data",
			TimeoutMs:       2000,
			RedisAddr:       "localhost:6379",
			KeyPrefix:       "navgrid:",
			MongoURI:        "mongodb://localhost:27017",
			MongoDatabase:   "navgrid",
			MongoCollection: "regions",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "navgrid",
		},
		LogLevel: "info",
	}
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "NAVGRID_REST_PORT", 8088)
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "NAVGRID_METRICS_PORT", 2112)
}

// GetAuthSecret возвращает секрет подписи токенов API (config -> env NAVGRID_AUTH_SECRET)
func (s *ServerConfig) GetAuthSecret() string {
	if s.AuthSecret != "" {
		return s.AuthSecret
	}
	return os.Getenv("NAVGRID_AUTH_SECRET")
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Validate проверяет согласованность параметров.
// Регион нулевого размера считается ошибкой конфигурации.
func (c *Config) Validate() error {
	if c.NavGrid.FieldSize <= 0 {
		return fmt.Errorf("navgrid.field_size должен быть > 0, получено %v", c.NavGrid.FieldSize)
	}
	if int(c.NavGrid.RegionScale/c.NavGrid.FieldSize) <= 0 {
		return fmt.Errorf("navgrid.region_scale (%v) меньше field_size (%v): пустой регион",
			c.NavGrid.RegionScale, c.NavGrid.FieldSize)
	}
	if c.NavGrid.MaxSearchIterations <= 0 {
		return fmt.Errorf("navgrid.max_search_iterations должен быть > 0")
	}
	if c.World.Workers <= 0 {
		return fmt.Errorf("world.workers должен быть > 0")
	}
	if c.World.TickMs <= 0 {
		return fmt.Errorf("world.tick_ms должен быть > 0")
	}
	switch c.Storage.Backend {
	case "", "none", "memory", "badger", "redis", "mysql", "mongo":
	default:
		return fmt.Errorf("storage.backend: неизвестное хранилище %q", c.Storage.Backend)
	}
	return nil
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", пытается прочитать из ENV NAVGRID_CONFIG, иначе возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("NAVGRID_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
