package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Budget    BudgetConfig    `mapstructure:"budget"`
	Breaker   BreakerConfig   `mapstructure:"breaker"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Governor  GovernorConfig  `mapstructure:"governor"`
	Health    HealthConfig    `mapstructure:"health"`
	App       AppConfig       `mapstructure:"app"`
}

type BudgetConfig struct {
	MaxTokensPerMinute  int `mapstructure:"max_tokens_per_minute"`
	MaxTokensPerRequest int `mapstructure:"max_tokens_per_request"`
}

type BreakerConfig struct {
	Threshold int           `mapstructure:"threshold"`
	Cooldown  time.Duration `mapstructure:"cooldown"`
}

type CacheConfig struct {
	Dir           string        `mapstructure:"dir"`
	DefaultTTL    time.Duration `mapstructure:"default_ttl"`
	AgentTTL      time.Duration `mapstructure:"agent_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type SchedulerConfig struct {
	Workers      int           `mapstructure:"workers"`
	DrainTimeout time.Duration `mapstructure:"drain_timeout"`
}

type GovernorConfig struct {
	CPUMaxPercent    float64       `mapstructure:"cpu_max_percent"`
	MemoryMaxPercent float64       `mapstructure:"memory_max_percent"`
	BackoffDelay     time.Duration `mapstructure:"backoff_delay"`
	AgentTimeout     time.Duration `mapstructure:"agent_timeout"`
}

type HealthConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	AlertCooldown time.Duration `mapstructure:"alert_cooldown"`
}

type AppConfig struct {
	Port     string `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
	StateDir string `mapstructure:"state_dir"`
}

func Load() (*Config, error) {
	viper.SetDefault("budget.max_tokens_per_minute", 10000)
	viper.SetDefault("budget.max_tokens_per_request", 2000)

	viper.SetDefault("breaker.threshold", 5)
	viper.SetDefault("breaker.cooldown", "30s")

	viper.SetDefault("cache.dir", "cache")
	viper.SetDefault("cache.default_ttl", "1h")
	viper.SetDefault("cache.agent_ttl", "30m")
	viper.SetDefault("cache.sweep_interval", "5m")

	viper.SetDefault("scheduler.workers", 3)
	viper.SetDefault("scheduler.drain_timeout", "10s")

	viper.SetDefault("governor.cpu_max_percent", 80.0)
	viper.SetDefault("governor.memory_max_percent", 85.0)
	viper.SetDefault("governor.backoff_delay", "1s")
	viper.SetDefault("governor.agent_timeout", "60s")

	viper.SetDefault("health.interval", "30s")
	viper.SetDefault("health.alert_cooldown", "5m")

	viper.SetDefault("app.port", "8080")
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.state_dir", "cache")

	viper.SetEnvPrefix("MENTOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv("budget.max_tokens_per_minute")
	_ = viper.BindEnv("budget.max_tokens_per_request")
	_ = viper.BindEnv("breaker.threshold")
	_ = viper.BindEnv("breaker.cooldown")
	_ = viper.BindEnv("cache.dir")
	_ = viper.BindEnv("cache.default_ttl")
	_ = viper.BindEnv("scheduler.workers")
	_ = viper.BindEnv("scheduler.drain_timeout")
	_ = viper.BindEnv("governor.cpu_max_percent")
	_ = viper.BindEnv("governor.memory_max_percent")
	_ = viper.BindEnv("governor.agent_timeout")
	_ = viper.BindEnv("health.interval")
	_ = viper.BindEnv("app.port")
	_ = viper.BindEnv("app.log_level")
	_ = viper.BindEnv("app.state_dir")

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
