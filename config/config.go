package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// DefaultPath 默认配置文件位置
const DefaultPath = "config/config.json"

type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Auth      AuthConfig      `json:"auth"`
	Redis     RedisConfig     `json:"redis"`
	Kafka     KafkaConfig     `json:"kafka"`
	Events    EventsConfig    `json:"events"`
	Connector ConnectorConfig `json:"connector"`
	Log       LogConfig       `json:"log"`
	Bootstrap BootstrapConfig `json:"bootstrap"`
	RateLimit RateLimitConfig `json:"rate_limit"`
}

type ServerConfig struct {
	Addr         string   `json:"addr" env:"SERVER_ADDR"`
	AllowOrigins []string `json:"allow_origins" env:"CORS_ORIGINS" envSeparator:","`
}

type DatabaseConfig struct {
	DSN string `json:"dsn" env:"DATABASE_DSN"`
}

type OAuthProvider struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	RedirectURL  string   `json:"redirect_url"`
	Scopes       []string `json:"scopes"`
	AuthURL      string   `json:"auth_url"`  // For custom OAuth providers
	TokenURL     string   `json:"token_url"` // For custom OAuth providers
	UserInfoURL  string   `json:"user_info_url"`
}

type AuthConfig struct {
	JWTSecret     string `json:"jwt_secret" env:"JWT_SECRET"`
	TokenExpiry   int    `json:"token_expiry" env:"JWT_TOKEN_EXPIRY"`     // in hours
	RefreshExpiry int    `json:"refresh_expiry" env:"JWT_REFRESH_EXPIRY"` // in hours
	OAuth         struct {
		Google   OAuthProvider            `json:"google"`
		GitHub   OAuthProvider            `json:"github"`
		Facebook OAuthProvider            `json:"facebook"`
		Custom   map[string]OAuthProvider `json:"custom"`
	} `json:"oauth"`
}

// RedisConfig Addr 为空时不启用 Redis（在线状态、限流、跨实例广播都会关闭）
type RedisConfig struct {
	Addr     string `json:"addr" env:"REDIS_ADDR"`
	Password string `json:"password" env:"REDIS_PASSWORD"`
	DB       int    `json:"db" env:"REDIS_DB"`
	PoolSize int    `json:"pool_size" env:"REDIS_POOL_SIZE"`
}

type KafkaConfig struct {
	Brokers   []string `json:"brokers" env:"KAFKA_BROKERS" envSeparator:","`
	Topic     string   `json:"topic" env:"KAFKA_TOPIC"`
	Username  string   `json:"username" env:"KAFKA_USERNAME"`
	Password  string   `json:"password" env:"KAFKA_PASSWORD"`
	Mechanism string   `json:"mechanism" env:"KAFKA_SASL_MECHANISM"` // PLAIN, SCRAM-SHA-256, SCRAM-SHA-512
	UseTLS    bool     `json:"use_tls" env:"KAFKA_USE_TLS"`
	CertFile  string   `json:"cert_file" env:"KAFKA_CERT_FILE"`
	KeyFile   string   `json:"key_file" env:"KAFKA_KEY_FILE"`
	CAFile    string   `json:"ca_file" env:"KAFKA_CA_FILE"`
}

// EventsConfig Relay: local | redis | kafka
type EventsConfig struct {
	Relay        string `json:"relay" env:"EVENTS_RELAY"`
	Channel      string `json:"channel" env:"EVENTS_REDIS_CHANNEL"`
	QueueSize    int    `json:"queue_size" env:"EVENTS_QUEUE_SIZE"`
	Workers      int    `json:"workers" env:"EVENTS_WORKERS"`
	ClientBuffer int    `json:"client_buffer" env:"EVENTS_CLIENT_BUFFER"`
}

type ConnectorConfig struct {
	GatewayURL string        `json:"gateway_url" env:"CONNECTOR_GATEWAY_URL"`
	Token      string        `json:"token" env:"CONNECTOR_TOKEN"`
	Timeout    time.Duration `json:"timeout" env:"CONNECTOR_TIMEOUT"`
}

type LogConfig struct {
	Level      string `json:"level" env:"LOG_LEVEL"`   // trace, debug, info, warn, error
	Format     string `json:"format" env:"LOG_FORMAT"` // text, json
	Output     string `json:"output" env:"LOG_OUTPUT"` // stdout, file, both
	Path       string `json:"path" env:"LOG_PATH"`
	MaxSize    int    `json:"max_size" env:"LOG_MAX_SIZE"` // MB
	MaxBackups int    `json:"max_backups" env:"LOG_MAX_BACKUPS"`
	MaxAge     int    `json:"max_age" env:"LOG_MAX_AGE"` // days
	Compress   bool   `json:"compress" env:"LOG_COMPRESS"`
}

// BootstrapConfig 首次启动且没有任何用户时创建的管理员
type BootstrapConfig struct {
	AdminName     string `json:"admin_name" env:"BOOTSTRAP_ADMIN_NAME"`
	AdminEmail    string `json:"admin_email" env:"BOOTSTRAP_ADMIN_EMAIL"`
	AdminPassword string `json:"admin_password" env:"BOOTSTRAP_ADMIN_PASSWORD"`
}

// RateLimitConfig Strategy: fixed_window | token_bucket
type RateLimitConfig struct {
	Enabled  bool          `json:"enabled" env:"RATE_LIMIT_ENABLED"`
	Strategy string        `json:"strategy" env:"RATE_LIMIT_STRATEGY"`
	Limit    int           `json:"limit" env:"RATE_LIMIT_MAX"`
	Window   time.Duration `json:"window" env:"RATE_LIMIT_WINDOW"`
}

// UnmarshalJSON 允许在 JSON 中用 "10s" 这种写法
func (c *ConnectorConfig) UnmarshalJSON(data []byte) error {
	type alias ConnectorConfig
	aux := struct {
		*alias
		Timeout string `json:"timeout"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Timeout != "" {
		d, err := time.ParseDuration(aux.Timeout)
		if err != nil {
			return fmt.Errorf("connector.timeout: %w", err)
		}
		c.Timeout = d
	}
	return nil
}

func (c *RateLimitConfig) UnmarshalJSON(data []byte) error {
	type alias RateLimitConfig
	aux := struct {
		*alias
		Window string `json:"window"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Window != "" {
		d, err := time.ParseDuration(aux.Window)
		if err != nil {
			return fmt.Errorf("rate_limit.window: %w", err)
		}
		c.Window = d
	}
	return nil
}

// Default 所有配置项的默认值，JSON 和环境变量在此基础上覆盖
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":8080",
			AllowOrigins: []string{"http://localhost:3000"},
		},
		Auth: AuthConfig{
			TokenExpiry:   24,
			RefreshExpiry: 24 * 7,
		},
		Redis: RedisConfig{
			PoolSize: 10,
		},
		Kafka: KafkaConfig{
			Topic:     "recticket.events",
			Mechanism: "PLAIN",
		},
		Events: EventsConfig{
			Relay:        "local",
			Channel:      "recticket:events",
			QueueSize:    1024,
			Workers:      4,
			ClientBuffer: 256,
		},
		Connector: ConnectorConfig{
			Timeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stdout",
			Path:       "./logs",
			MaxSize:    100,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   true,
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Strategy: "fixed_window",
			Limit:    10,
			Window:   time.Minute,
		},
	}
}

// LoadConfig 依次加载：默认值 -> JSON 文件 -> .env -> 环境变量
func LoadConfig(path string) (config Config, err error) {
	config = Default()
	if path == "" {
		path = DefaultPath
	}
	if err = loadFile(path, &config); err != nil {
		return config, err
	}
	if err = godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config, fmt.Errorf("load .env: %w", err)
	}
	if err = env.Parse(&config); err != nil {
		return config, fmt.Errorf("parse env: %w", err)
	}
	if err = config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

func loadFile(path string, config *Config) error {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer func(file *os.File) {
		closeErr := file.Close()
		if closeErr != nil {
			log.Printf("Error closing config file: %v", closeErr)
		}
	}(file)
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c Config) Validate() error {
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	switch c.Events.Relay {
	case "local":
	case "redis":
		if c.Redis.Addr == "" {
			return errors.New("events.relay=redis requires redis.addr")
		}
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			return errors.New("events.relay=kafka requires kafka.brokers")
		}
	default:
		return fmt.Errorf("unknown events.relay %q", c.Events.Relay)
	}
	if c.Connector.Timeout <= 0 {
		return errors.New("connector.timeout must be positive")
	}
	if c.RateLimit.Enabled {
		switch c.RateLimit.Strategy {
		case "fixed_window", "token_bucket":
		default:
			return fmt.Errorf("unknown rate_limit.strategy %q", c.RateLimit.Strategy)
		}
		if c.RateLimit.Limit <= 0 || c.RateLimit.Window <= 0 {
			return errors.New("rate_limit.limit and rate_limit.window must be positive")
		}
	}
	return nil
}
