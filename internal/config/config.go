package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type AIConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	APIURL     string        `mapstructure:"api_url"`
	Model      string        `mapstructure:"model"`
	DailyQuota int           `mapstructure:"daily_quota"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type SchedulerConfig struct {
	SweepSpec string `mapstructure:"sweep_spec"`
}

type EmailConfig struct {
	From            string   `mapstructure:"from"`
	SMTPHost        string   `mapstructure:"smtp_host"`
	SMTPPort        int      `mapstructure:"smtp_port"`
	Username        string   `mapstructure:"username"`
	Password        string   `mapstructure:"password"`
	AlertRecipients []string `mapstructure:"alert_recipients"`
}

type Config struct {
	DatabaseURL string          `mapstructure:"database_url"`
	ServerPort  string          `mapstructure:"server_port"`
	JWTSecret   string          `mapstructure:"jwt_secret"`
	AI          AIConfig        `mapstructure:"ai"`
	Scheduler   SchedulerConfig `mapstructure:"scheduler"`
	Email       EmailConfig     `mapstructure:"email"`
}

// Load reads the configuration from a YAML file and returns a Config instance.
func Load() *Config {
	v := viper.New()

	// Look for config in the current directory and ./config
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.AddConfigPath("./config")
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		log.Fatalf("Error unmarshalling config: %v", err)
	}

	// Fallback defaults
	if config.ServerPort == "" {
		config.ServerPort = "8080"
	}

	if config.JWTSecret == "" {
		log.Fatal("JWT secret must be set in the config file")
	}

	if config.AI.APIURL == "" {
		config.AI.APIURL = "https://api.deepseek.com/v1"
	}
	if config.AI.Model == "" {
		config.AI.Model = "deepseek-chat"
	}
	if config.AI.DailyQuota == 0 {
		config.AI.DailyQuota = 50
	}
	if config.AI.Timeout == 0 {
		config.AI.Timeout = 60 * time.Second
	}

	if config.Scheduler.SweepSpec == "" {
		config.Scheduler.SweepSpec = "@hourly"
	}

	if config.Email.SMTPPort == 0 {
		config.Email.SMTPPort = 587
	}

	return &config
}
