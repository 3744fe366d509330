package conf

import "time"

const (
	DefaultBackendURL   = "http://127.0.0.1:10010"
	DefaultWebhookAddr  = "0.0.0.0:10011"
	DefaultPollInterval = 30 * time.Second
)

// Config 服务配置,命令行 / 环境变量 / 配置文件三来源合并
type Config struct {
	BackendURL      string        `mapstructure:"backend_url"`
	WebhookAddr     string        `mapstructure:"webhook_addr"`
	WebhookDisabled bool          `mapstructure:"webhook_disabled"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`

	// Storage 取 memory 或 redis
	Storage        string `mapstructure:"storage"`
	RedisAddr      string `mapstructure:"redis_addr"`
	RedisPassword  string `mapstructure:"redis_password"`
	RedisDB        int    `mapstructure:"redis_db"`
	RedisKeyPrefix string `mapstructure:"redis_key_prefix"`
}

var Defaults = map[string]any{
	"backend_url":      DefaultBackendURL,
	"webhook_addr":     DefaultWebhookAddr,
	"poll_interval":    DefaultPollInterval,
	"storage":          "memory",
	"redis_addr":       "127.0.0.1:6379",
	"redis_key_prefix": "ferry:",
}

func (c *Config) GetBackendURL() string {
	if c.BackendURL == "" {
		c.BackendURL = DefaultBackendURL
	}
	return c.BackendURL
}

func (c *Config) GetWebhookAddr() string {
	if c.WebhookAddr == "" {
		c.WebhookAddr = DefaultWebhookAddr
	}
	return c.WebhookAddr
}

func (c *Config) GetPollInterval() time.Duration {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	return c.PollInterval
}
