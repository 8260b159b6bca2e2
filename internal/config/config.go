// Package config loads server configuration from flags, the environment,
// an optional .env file and an optional YAML config file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/abrezinsky/jackpot/internal/lottery"
)

// EnvPrefix is prepended to every environment variable
const EnvPrefix = "JACKPOT"

// Config is the resolved server configuration
type Config struct {
	ListenAddress string
	DBPath        string
	PublicURL     string
	CORSOrigins   []string

	AdminIdentity string
	AdminPassword string

	LogLevel  string
	LogFormat string

	InitialJackpot    uint64
	BaseInterval      time.Duration
	FastInterval      time.Duration
	FastModeThreshold uint64
	PayoutSchedule    string

	AutoPayout        bool
	DrawCron          string
	CountdownInterval time.Duration

	SolanaRPCURL string

	EntryRatePerSecond float64
	EntryBurst         int
}

// Defaults
const (
	DefaultListenAddress     = ":8080"
	DefaultDBPath            = "jackpot.db"
	DefaultDrawCron          = "@every 1m"
	DefaultCountdownInterval = time.Second
)

// New returns a viper instance with defaults and env bindings applied.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen_address", DefaultListenAddress)
	v.SetDefault("db_path", DefaultDBPath)
	v.SetDefault("public_url", "")
	v.SetDefault("cors_origins", []string{})
	v.SetDefault("admin_identity", "")
	v.SetDefault("admin_password", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("initial_jackpot", uint64(1_000_000_000))
	v.SetDefault("base_interval", lottery.DefaultBaseInterval)
	v.SetDefault("fast_interval", lottery.DefaultFastInterval)
	v.SetDefault("fast_mode_threshold", lottery.DefaultFastModeThreshold)
	v.SetDefault("payout_schedule", lottery.CanonicalSchedule.Name)
	v.SetDefault("auto_payout", true)
	v.SetDefault("draw_cron", DefaultDrawCron)
	v.SetDefault("countdown_interval", DefaultCountdownInterval)
	v.SetDefault("solana_rpc_url", "")
	v.SetDefault("entry_rate_per_second", 2.0)
	v.SetDefault("entry_burst", 5)
	return v
}

// Load resolves configuration. envFile and configFile are optional; a
// missing file is not an error unless it was named explicitly.
func Load(v *viper.Viper, flags *pflag.FlagSet, envFile, configFile string) (*Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil && bindErr == nil {
				bindErr = fmt.Errorf("bind flag %s: %w", f.Name, err)
			}
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		ListenAddress:      v.GetString("listen_address"),
		DBPath:             v.GetString("db_path"),
		PublicURL:          v.GetString("public_url"),
		CORSOrigins:        v.GetStringSlice("cors_origins"),
		AdminIdentity:      v.GetString("admin_identity"),
		AdminPassword:      v.GetString("admin_password"),
		LogLevel:           v.GetString("log_level"),
		LogFormat:          v.GetString("log_format"),
		InitialJackpot:     v.GetUint64("initial_jackpot"),
		BaseInterval:       v.GetDuration("base_interval"),
		FastInterval:       v.GetDuration("fast_interval"),
		FastModeThreshold:  v.GetUint64("fast_mode_threshold"),
		PayoutSchedule:     v.GetString("payout_schedule"),
		AutoPayout:         v.GetBool("auto_payout"),
		DrawCron:           v.GetString("draw_cron"),
		CountdownInterval:  v.GetDuration("countdown_interval"),
		SolanaRPCURL:       v.GetString("solana_rpc_url"),
		EntryRatePerSecond: v.GetFloat64("entry_rate_per_second"),
		EntryBurst:         v.GetInt("entry_burst"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	err := godotenv.Load(path)
	if err == nil || (!explicit && errors.Is(err, fs.ErrNotExist)) {
		return nil
	}
	return fmt.Errorf("load env file %s: %w", path, err)
}

// Validate checks values the lottery would otherwise reject at runtime.
func (c *Config) Validate() error {
	if c.ListenAddress == "" {
		return errors.New("listen_address is required")
	}
	if c.DBPath == "" {
		return errors.New("db_path is required")
	}
	if c.BaseInterval <= 0 || c.FastInterval <= 0 {
		return errors.New("base_interval and fast_interval must be positive")
	}
	if c.InitialJackpot == 0 || c.InitialJackpot > lottery.MaxInitialJackpot {
		return fmt.Errorf("initial_jackpot must be between 1 and %d", lottery.MaxInitialJackpot)
	}
	if _, ok := lottery.ScheduleByName(c.PayoutSchedule); !ok {
		return fmt.Errorf("unknown payout_schedule %q", c.PayoutSchedule)
	}
	if c.EntryRatePerSecond < 0 || c.EntryBurst < 0 {
		return errors.New("entry rate limits must not be negative")
	}
	if c.CountdownInterval <= 0 {
		return errors.New("countdown_interval must be positive")
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log_format %q", c.LogFormat)
	}
	return nil
}

// Schedule returns the configured payout schedule
func (c *Config) Schedule() lottery.Schedule {
	sc, _ := lottery.ScheduleByName(c.PayoutSchedule)
	return sc
}
