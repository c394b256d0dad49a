package config

import (
	"os"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	mu sync.RWMutex `yaml:"-"`

	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Web       WebConfig       `yaml:"web"`
	Messaging MessagingConfig `yaml:"messaging"`
	Editing   EditingConfig   `yaml:"editing"`
}

type DatabaseConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig accepts either discrete fields or a full connection URL.
// URL wins when set.
type PostgresConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type RedisConfig struct {
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type WebConfig struct {
	Host          string   `yaml:"host"`
	Port          int      `yaml:"port"`
	SessionSecret string   `yaml:"session_secret"`
	SecureCookies bool     `yaml:"secure_cookies"` // set when served over HTTPS only
	CORSOrigins   []string `yaml:"cors_origins"`
}

type MessagingConfig struct {
	Backend             string        `yaml:"backend"` // "kafka", "mqtt" or "none"
	Kafka               KafkaConfig   `yaml:"kafka"`
	MQTT                MQTTConfig    `yaml:"mqtt"`
	ChangesTopic        string        `yaml:"changes_topic"`
	OutboxDrainInterval time.Duration `yaml:"outbox_drain_interval"`
	StationID           string        `yaml:"station_id"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	GroupID string   `yaml:"group_id"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
}

type EditingConfig struct {
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	// PrefixFallback scopes a parent with no stored children to root products
	// whose category contains the first letter of the parent's code.
	PrefixFallback bool `yaml:"prefix_fallback"`
}

func Defaults() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{Path: "vendroute.db"},
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "vendroute",
				User:     "vendroute",
				Password: "",
				SSLMode:  "disable",
			},
		},
		Redis: RedisConfig{
			Address:  "localhost:6379",
			Password: "",
			DB:       0,
			TTL:      10 * time.Minute,
		},
		Web: WebConfig{
			Host:          "0.0.0.0",
			Port:          3001,
			SessionSecret: "change-me-in-production",
			CORSOrigins:   []string{"*"},
		},
		Messaging: MessagingConfig{
			Backend: "none",
			Kafka: KafkaConfig{
				Brokers: []string{"localhost:9092"},
				GroupID: "vendroute",
			},
			MQTT: MQTTConfig{
				Broker:   "localhost",
				Port:     1883,
				ClientID: "vendroute",
			},
			ChangesTopic:        "vendroute.changes",
			OutboxDrainInterval: 5 * time.Second,
			StationID:           "vendroute",
		},
		Editing: EditingConfig{
			IdleTimeout:   2 * time.Hour,
			SweepInterval: time.Minute,
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

// applyEnv honours the DATABASE_URL and PORT variables used by hosted deployments.
func (c *Config) applyEnv() {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		c.Database.Driver = "postgres"
		c.Database.Postgres.URL = url
	}
	if p := os.Getenv("PORT"); p != "" {
		if port, err := strconv.Atoi(p); err == nil && port > 0 {
			c.Web.Port = port
		}
	}
}

func (c *Config) Save(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Lock()   { c.mu.Lock() }
func (c *Config) Unlock() { c.mu.Unlock() }
