// Package config reads the runtime settings shared by the API server and
// the kansoctl tool.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/synth"
	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/timer"
)

var (
	ErrInvalidTimezone   = errors.New("config: TIMEZONE is not a known IANA zone")
	ErrInvalidDuration   = errors.New("config: focus durations must be positive")
	ErrInvalidSampleRate = errors.New("config: SAMPLE_RATE must be between 8000 and 192000")
)

type DBConfig struct {
	User     string
	Password string
	Host     string
	Port     string
	Name     string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type Config struct {
	DB    DBConfig
	Redis RedisConfig

	Port      string
	JWTSecret string
	JWTIssuer string
	TokenTTL  time.Duration

	Timezone          string
	WorkMinutes       int
	ShortBreakMinutes int
	LongBreakMinutes  int
	AutoCycle         bool
	SampleRate        int

	SQLitePath string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DB_USER", "kanso_user")
	v.SetDefault("DB_PASSWORD", "secret")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "kanso_db")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("PORT", "8080")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "kanso-wellness-engine")
	v.SetDefault("TOKEN_TTL", "72h")

	v.SetDefault("TIMEZONE", "UTC")
	v.SetDefault("WORK_MINUTES", 25)
	v.SetDefault("SHORT_BREAK_MINUTES", 5)
	v.SetDefault("LONG_BREAK_MINUTES", 15)
	v.SetDefault("AUTO_CYCLE", false)
	v.SetDefault("SAMPLE_RATE", synth.DefaultSampleRate)

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	v.SetDefault("SQLITE_PATH", filepath.Join(home, ".kanso", "kanso.db"))
}

// Load reads envFile if it exists, then an optional kanso.yaml in dir, then
// the environment. Later sources win.
func Load(envFile, dir string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: reading %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("kanso")
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: reading kanso.yaml: %w", err)
		}
	}
	v.AutomaticEnv()

	cfg := &Config{
		DB: DBConfig{
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Port:              v.GetString("PORT"),
		JWTSecret:         v.GetString("JWT_SECRET"),
		JWTIssuer:         v.GetString("JWT_ISSUER"),
		TokenTTL:          v.GetDuration("TOKEN_TTL"),
		Timezone:          v.GetString("TIMEZONE"),
		WorkMinutes:       v.GetInt("WORK_MINUTES"),
		ShortBreakMinutes: v.GetInt("SHORT_BREAK_MINUTES"),
		LongBreakMinutes:  v.GetInt("LONG_BREAK_MINUTES"),
		AutoCycle:         v.GetBool("AUTO_CYCLE"),
		SampleRate:        v.GetInt("SAMPLE_RATE"),
		SQLitePath:        v.GetString("SQLITE_PATH"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return ErrInvalidTimezone
	}
	if c.WorkMinutes <= 0 || c.ShortBreakMinutes <= 0 || c.LongBreakMinutes <= 0 {
		return ErrInvalidDuration
	}
	if c.SampleRate < 8000 || c.SampleRate > 192000 {
		return ErrInvalidSampleRate
	}
	return nil
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

// Location is the zone used for users that never set one.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) FocusSettings() timer.FocusSettings {
	return timer.FocusSettings{
		Durations: timer.Durations{
			Work:       time.Duration(c.WorkMinutes) * time.Minute,
			ShortBreak: time.Duration(c.ShortBreakMinutes) * time.Minute,
			LongBreak:  time.Duration(c.LongBreakMinutes) * time.Minute,
		},
		AutoCycle: c.AutoCycle,
	}
}
