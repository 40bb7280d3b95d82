package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/oggyb/discovery/internal/validation"
)

// PathEnvVar names an optional YAML file layered between defaults and env.
const PathEnvVar = "CONFIG_PATH"

type Config struct {
	Log       LogConfig       `koanf:"log"`
	DB        DBConfig        `koanf:"db"`
	Redis     RedisConfig     `koanf:"redis"`
	GRPC      GRPCConfig      `koanf:"grpc"`
	HTTP      HTTPConfig      `koanf:"http"`
	AMQP      AMQPConfig      `koanf:"amqp"`
	Discovery DiscoveryConfig `koanf:"discovery"`
	App       AppConfig       `koanf:"app"`
}

type LogConfig struct {
	Level     string `koanf:"level"`
	Format    string `koanf:"format" validate:"oneof=text json"`
	Component string `koanf:"component"`
	Source    bool   `koanf:"source"`
}

// DBConfig selects the relational store. MaxOpenConns bounds the pool shared by all requests.
type DBConfig struct {
	Driver          string        `koanf:"driver" validate:"oneof=mysql sqlite"`
	DSN             string        `koanf:"dsn"`
	Host            string        `koanf:"host"`
	Port            string        `koanf:"port"`
	User            string        `koanf:"user"`
	Password        string        `koanf:"password"`
	Name            string        `koanf:"name"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"gte=1"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	LogSQL          bool          `koanf:"log_sql"`
}

type RedisConfig struct {
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	CountTTL time.Duration `koanf:"count_ttl"`
}

type GRPCConfig struct {
	Host           string        `koanf:"host"`
	Port           string        `koanf:"port"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

type HTTPConfig struct {
	Host           string        `koanf:"host"`
	Port           string        `koanf:"port"`
	CORSOrigins    []string      `koanf:"cors_origins"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// AMQPConfig enables the broker notification sink when URL is set.
type AMQPConfig struct {
	URL      string `koanf:"url"`
	Exchange string `koanf:"exchange"`
}

// DiscoveryConfig drives the default filter/sort policy.
// SmartFilter/SmartSort map to DEFAULT_FILTER/DEFAULT_SORT.
type DiscoveryConfig struct {
	SmartFilter        bool    `koanf:"smart_filter"`
	SmartSort          bool    `koanf:"smart_sort"`
	RadiusKm           float64 `koanf:"radius_km" validate:"gt=0"`
	MinFameRating      int     `koanf:"min_fame_rating" validate:"gte=0"`
	MinCommonInterests int     `koanf:"min_common_interests" validate:"gte=0"`
}

type AppConfig struct {
	Env string `koanf:"env"`
}

func defaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:     "info",
			Format:    "text",
			Component: "grpc_server",
		},
		DB: DBConfig{
			Driver:          "mysql",
			Host:            "localhost",
			Port:            "3306",
			User:            "root",
			Password:        "root",
			Name:            "discovery",
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			CountTTL: 10 * time.Minute,
		},
		GRPC: GRPCConfig{
			Host:           "127.0.0.1",
			Port:           "50051",
			RequestTimeout: 5 * time.Second,
		},
		HTTP: HTTPConfig{
			Host:           "0.0.0.0",
			Port:           "8080",
			CORSOrigins:    []string{"*"},
			RequestTimeout: 5 * time.Second,
		},
		AMQP: AMQPConfig{
			Exchange: "notifications",
		},
		Discovery: DiscoveryConfig{
			SmartFilter:        true,
			SmartSort:          true,
			RadiusKm:           100,
			MinFameRating:      0,
			MinCommonInterests: 2,
		},
		App: AppConfig{Env: "development"},
	}
}

// envKeys maps the supported environment variables onto config paths.
// Variables not listed here are ignored.
var envKeys = map[string]string{
	"LOG_LEVEL":     "log.level",
	"LOG_FORMAT":    "log.format",
	"LOG_COMPONENT": "log.component",
	"LOG_SOURCE":    "log.source",

	"DB_DRIVER":            "db.driver",
	"MYSQL_DSN":            "db.dsn",
	"DB_HOST":              "db.host",
	"DB_PORT":              "db.port",
	"DB_USER":              "db.user",
	"DB_PASSWORD":          "db.password",
	"DB_NAME":              "db.name",
	"DB_MAX_OPEN_CONNS":    "db.max_open_conns",
	"DB_MAX_IDLE_CONNS":    "db.max_idle_conns",
	"DB_CONN_MAX_LIFETIME": "db.conn_max_lifetime",
	"DB_LOG_SQL":           "db.log_sql",

	"REDIS_ADDR":      "redis.addr",
	"REDIS_PASSWORD":  "redis.password",
	"REDIS_DB":        "redis.db",
	"REDIS_COUNT_TTL": "redis.count_ttl",

	"GRPC_HOST":            "grpc.host",
	"GRPC_PORT":            "grpc.port",
	"GRPC_REQUEST_TIMEOUT": "grpc.request_timeout",

	"HTTP_HOST":            "http.host",
	"HTTP_PORT":            "http.port",
	"HTTP_CORS_ORIGINS":    "http.cors_origins",
	"HTTP_REQUEST_TIMEOUT": "http.request_timeout",

	"AMQP_URL":      "amqp.url",
	"AMQP_EXCHANGE": "amqp.exchange",

	"DEFAULT_FILTER":               "discovery.smart_filter",
	"DEFAULT_SORT":                 "discovery.smart_sort",
	"DEFAULT_RADIUS_KM":            "discovery.radius_km",
	"DEFAULT_MIN_FAME_RATING":      "discovery.min_fame_rating",
	"DEFAULT_MIN_COMMON_INTERESTS": "discovery.min_common_interests",

	"APP_ENV": "app.env",
}

var boolKeys = map[string]bool{
	"log.source":             true,
	"db.log_sql":             true,
	"discovery.smart_filter": true,
	"discovery.smart_sort":   true,
}

// New loads the configuration.
//
// Precedence, lowest first:
//  1. built-in defaults
//  2. YAML file named by CONFIG_PATH (optional)
//  3. environment variables listed in envKeys
//
// When no DSN is given for MySQL it is assembled from host/port/user/password/name.
func New() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := strings.TrimSpace(os.Getenv(PathEnvVar)); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.DB.DSN == "" {
		cfg.DB.DSN = cfg.DB.defaultDSN()
	}

	if err := validation.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func envValue(key, value string) (string, any) {
	path, ok := envKeys[key]
	if !ok {
		return "", nil
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	if boolKeys[path] {
		return path, isTruthy(value)
	}
	if path == "http.cors_origins" {
		return path, splitList(value)
	}
	return path, value
}

func (c DBConfig) defaultDSN() string {
	if c.Driver == "sqlite" {
		return "file:discovery.db?_busy_timeout=5000&_txlock=immediate&_foreign_keys=on"
	}
	return fmt.Sprintf(
		"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.User, c.Password, c.Host, c.Port, c.Name,
	)
}

// Addr returns host:port of the gRPC listener.
func (c GRPCConfig) Addr() string { return c.Host + ":" + c.Port }

// Addr returns host:port of the HTTP listener.
func (c HTTPConfig) Addr() string { return c.Host + ":" + c.Port }

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
