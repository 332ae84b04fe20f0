package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Events    EventsConfig
	Analyzer  AnalyzerConfig
	Insights  InsightsConfig
	Reasoning ReasoningConfig
	SQLite    SQLiteConfig
	Redis     RedisConfig
	Notify    NotifyConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type EventsConfig struct {
	BatchSize     int
	FlushInterval time.Duration
}

type AnalyzerConfig struct {
	SequenceWindow    int
	SlowEventMS       int
	MinStepDurationMS int
}

type InsightsConfig struct {
	SweepInterval time.Duration
}

type ReasoningConfig struct {
	Provider    string
	Model       string
	APIKey      string
	Temperature float32
	MaxTokens   int
	TimeoutSec  int
	CacheTTL    time.Duration
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type NotifyConfig struct {
	SMTPHost    string
	SMTPPort    int
	SMTPFrom    string
	SlackURL    string
	SMSGateway  string
	PushGateway string
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

// Load reads config.yaml plus USERPULSE_* environment overrides. Every
// recognized option carries an explicit default; unknown keys are ignored.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/userpulse")

	viper.SetEnvPrefix("USERPULSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 10485760)

	viper.SetDefault("events.batchSize", 100)
	viper.SetDefault("events.flushInterval", 5*time.Second)

	viper.SetDefault("analyzer.sequenceWindow", 3)
	viper.SetDefault("analyzer.slowEventMS", 1000)
	viper.SetDefault("analyzer.minStepDurationMS", 500)

	viper.SetDefault("insights.sweepInterval", 30*time.Second)

	viper.SetDefault("reasoning.provider", "openai")
	viper.SetDefault("reasoning.model", "gpt-4")
	viper.SetDefault("reasoning.temperature", 0.2)
	viper.SetDefault("reasoning.maxTokens", 2048)
	viper.SetDefault("reasoning.timeoutSec", 30)
	viper.SetDefault("reasoning.cacheTTL", time.Hour)

	viper.SetDefault("sqlite.path", "./data/userpulse.db")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("notify.smtpHost", "localhost")
	viper.SetDefault("notify.smtpPort", 587)
	viper.SetDefault("notify.smtpFrom", "alerts@userpulse.local")
	viper.SetDefault("notify.slackURL", "")
	viper.SetDefault("notify.smsGateway", "")
	viper.SetDefault("notify.pushGateway", "")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
