package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/abrezinsky/jackpot/internal/config"
	"github.com/abrezinsky/jackpot/internal/lottery"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load(config.New(), nil, "", "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ListenAddress != config.DefaultListenAddress {
		t.Errorf("expected %s, got %s", config.DefaultListenAddress, cfg.ListenAddress)
	}
	if cfg.BaseInterval != lottery.DefaultBaseInterval || cfg.FastInterval != lottery.DefaultFastInterval {
		t.Errorf("unexpected intervals %v / %v", cfg.BaseInterval, cfg.FastInterval)
	}
	if cfg.FastModeThreshold != lottery.DefaultFastModeThreshold {
		t.Errorf("unexpected threshold %d", cfg.FastModeThreshold)
	}
	if cfg.Schedule().Name != lottery.CanonicalSchedule.Name {
		t.Errorf("expected canonical schedule, got %s", cfg.Schedule().Name)
	}
	if !cfg.AutoPayout {
		t.Error("expected auto payout on by default")
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JACKPOT_LISTEN_ADDRESS", ":9999")
	t.Setenv("JACKPOT_BASE_INTERVAL", "10h")
	t.Setenv("JACKPOT_PAYOUT_SCHEDULE", "legacy68")
	t.Setenv("JACKPOT_INITIAL_JACKPOT", "5000")

	cfg, err := config.Load(config.New(), nil, "", "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ListenAddress != ":9999" {
		t.Errorf("expected :9999, got %s", cfg.ListenAddress)
	}
	if cfg.BaseInterval != 10*time.Hour {
		t.Errorf("expected 10h, got %v", cfg.BaseInterval)
	}
	if cfg.Schedule().Name != "legacy68" {
		t.Errorf("expected legacy68, got %s", cfg.Schedule().Name)
	}
	if cfg.InitialJackpot != 5000 {
		t.Errorf("expected 5000, got %d", cfg.InitialJackpot)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	envFile := filepath.Join(dir, "custom.env")
	if err := os.WriteFile(envFile, []byte("JACKPOT_DB_PATH=/tmp/from-env-file.db\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("JACKPOT_DB_PATH") })

	cfg, err := config.Load(config.New(), nil, envFile, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DBPath != "/tmp/from-env-file.db" {
		t.Errorf("expected db path from env file, got %s", cfg.DBPath)
	}
}

func TestLoad_MissingExplicitEnvFile(t *testing.T) {
	t.Chdir(t.TempDir())
	if _, err := config.Load(config.New(), nil, "does-not-exist.env", ""); err == nil {
		t.Error("expected error for missing explicit env file")
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "jackpot.yaml")
	yaml := strings.Join([]string{
		"fast_interval: 12h",
		"auto_payout: false",
		"cors_origins:",
		"  - https://a.example",
		"  - https://b.example",
	}, "\n")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(config.New(), nil, "", path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.FastInterval != 12*time.Hour {
		t.Errorf("expected 12h, got %v", cfg.FastInterval)
	}
	if cfg.AutoPayout {
		t.Error("expected auto payout disabled")
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Errorf("expected 2 origins, got %v", cfg.CORSOrigins)
	}
}

func TestLoad_FlagsOverrideEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JACKPOT_LOG_LEVEL", "warn")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "info", "")
	if err := flags.Parse([]string{"--log-level=debug"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(config.New(), flags, "", "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected debug from flag, got %s", cfg.LogLevel)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *config.Config {
		return &config.Config{
			ListenAddress:     ":8080",
			DBPath:            "x.db",
			InitialJackpot:    1,
			BaseInterval:      time.Hour,
			FastInterval:      time.Hour,
			PayoutSchedule:    "canonical",
			LogFormat:         "json",
			CountdownInterval: time.Second,
		}
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("expected valid config: %v", err)
	}

	tests := map[string]func(c *config.Config){
		"zero base interval": func(c *config.Config) { c.BaseInterval = 0 },
		"zero jackpot":       func(c *config.Config) { c.InitialJackpot = 0 },
		"huge jackpot":       func(c *config.Config) { c.InitialJackpot = lottery.MaxInitialJackpot + 1 },
		"unknown schedule":   func(c *config.Config) { c.PayoutSchedule = "70/30" },
		"bad log format":     func(c *config.Config) { c.LogFormat = "xml" },
		"negative burst":     func(c *config.Config) { c.EntryBurst = -1 },
		"no listen address":  func(c *config.Config) { c.ListenAddress = "" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
