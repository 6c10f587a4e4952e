package db

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
)

const driverName = "mysql"

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

type Certs struct {
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

// EngineConfig tunes the attendance engine.
type EngineConfig struct {
	GraceMinutes     int `yaml:"grace_minutes"`     // late threshold after session start
	WindowMinutes    int `yaml:"window_minutes"`    // default verification window duration
	SweepSeconds     int `yaml:"sweep_seconds"`     // expired-window sweep interval
	AggregateMinutes int `yaml:"aggregate_minutes"` // historical aggregation interval
}

type Config struct {
	Version     string         `yaml:"version"`
	Mode        string         `yaml:"mode"`
	DB          DatabaseConfig `yaml:"database"`
	Certificate Certs          `yaml:"certificate"`
	Engine      EngineConfig   `yaml:"engine"`
}

func LoadConfig(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.Engine.applyDefaults()
	return &cfg, nil
}

func (e *EngineConfig) applyDefaults() {
	if e.GraceMinutes <= 0 {
		e.GraceMinutes = 10
	}
	if e.WindowMinutes <= 0 {
		e.WindowMinutes = 3
	}
	if e.SweepSeconds <= 0 {
		e.SweepSeconds = 30
	}
	if e.AggregateMinutes <= 0 {
		e.AggregateMinutes = 60
	}
}

func Connect(c DatabaseConfig) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&tls=false&timeout=3s&readTimeout=5s&writeTimeout=5s&loc=UTC",
		c.Username, c.Password, c.Host, c.Port, c.DBName)

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}

	// Connection pool (keep the sum below MySQL max_connections)
	db.SetMaxOpenConns(80)
	db.SetMaxIdleConns(20)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}
