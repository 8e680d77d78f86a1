package config

import (
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AdapterConfig configures one logging output adapter.
type AdapterConfig struct {
	Name    string                 `yaml:"name"`
	Type    string                 `yaml:"type"`
	Enabled bool                   `yaml:"enabled"`
	Options map[string]interface{} `yaml:"options"`
}

// Config represents the application configuration
type Config struct {
	Server struct {
		Port         int           `yaml:"port"`
		Host         string        `yaml:"host"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		IdleTimeout  time.Duration `yaml:"idle_timeout"`
	} `yaml:"server"`

	Scraper struct {
		UserAgent      string        `yaml:"user_agent"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
		MaxAttempts    int           `yaml:"max_attempts"`
		RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
		SuccessDelay   time.Duration `yaml:"success_delay"`
		ErrorDelay     time.Duration `yaml:"error_delay"`
		HeadlessMode   bool          `yaml:"headless_mode"`
		StealthMode    bool          `yaml:"stealth_mode"`
		RateLimit      int           `yaml:"rate_limit"` // requests per minute per source
		JitterMax      time.Duration `yaml:"jitter_max"` // random extra delay before each request
	} `yaml:"scraper"`

	Browser struct {
		NavigationTimeout time.Duration `yaml:"navigation_timeout"`
		RenderDwell       time.Duration `yaml:"render_dwell"`
		SelectorTimeout   time.Duration `yaml:"selector_timeout"`
	} `yaml:"browser"`

	LLM struct {
		Provider    string        `yaml:"provider"`
		APIKey      string        `yaml:"api_key"`
		Model       string        `yaml:"model"`
		MaxTokens   int           `yaml:"max_tokens"`
		Temperature float64       `yaml:"temperature"`
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"llm"`

	Mongo struct {
		URI        string        `yaml:"uri"`
		Database   string        `yaml:"database"`
		Collection string        `yaml:"collection"`
		Timeout    time.Duration `yaml:"timeout"`
	} `yaml:"mongo"`

	Pipeline struct {
		DailyQuotaPerSource int  `yaml:"daily_quota_per_source"`
		RunPhases           int  `yaml:"run_phases"` // passes over the source rotation per run
		SweepExpired        bool `yaml:"sweep_expired"`
	} `yaml:"pipeline"`

	Scheduler struct {
		Enabled          bool          `yaml:"enabled"`
		CronSpec         string        `yaml:"cron_spec"`
		Timezone         string        `yaml:"timezone"`
		FailureThreshold int           `yaml:"failure_threshold"`
		AlertInterval    time.Duration `yaml:"alert_interval"`
		MaintenanceSpec  string        `yaml:"maintenance_spec"`
		RestartDelay     time.Duration `yaml:"restart_delay"`
		ContinuousSpec   string        `yaml:"continuous_spec"`
		DailyTarget      int           `yaml:"daily_target"` // jobs per day across all sources
	} `yaml:"scheduler"`

	Webhook struct {
		Secret          string        `yaml:"secret"`
		Cooldown        time.Duration `yaml:"cooldown"`
		PerMinuteLimit  int           `yaml:"per_minute_limit"`
		WindowLimit     int           `yaml:"window_limit"`
		Window          time.Duration `yaml:"window"`
		DailyLimit      int           `yaml:"daily_limit"`
		PerIPLimit      int           `yaml:"per_ip_limit"`
		BusinessStart   int           `yaml:"business_start"` // hour, inclusive
		BusinessEnd     int           `yaml:"business_end"`   // hour, exclusive
		OffHoursMinimum string        `yaml:"off_hours_minimum"`
	} `yaml:"webhook"`

	Logging struct {
		Level    string          `yaml:"level"`
		Format   string          `yaml:"format"`
		Adapters []AdapterConfig `yaml:"adapters"`
	} `yaml:"logging"`
}

// expandEnvVars expands environment variables in a string using ${VAR} or $VAR syntax
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	re2 := regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	s = re2.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[1:]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	return s
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	_ = godotenv.Load()

	config := &Config{}

	// Set defaults
	config.Server.Port = 8080
	config.Server.Host = "0.0.0.0"
	config.Server.ReadTimeout = 30 * time.Second
	config.Server.WriteTimeout = 30 * time.Second
	config.Server.IdleTimeout = 60 * time.Second

	config.Scraper.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	config.Scraper.RequestTimeout = 30 * time.Second
	config.Scraper.MaxAttempts = 3
	config.Scraper.RetryBaseDelay = 2 * time.Second
	config.Scraper.SuccessDelay = 1 * time.Second
	config.Scraper.ErrorDelay = 2 * time.Second
	config.Scraper.HeadlessMode = true
	config.Scraper.StealthMode = true
	config.Scraper.RateLimit = 60
	config.Scraper.JitterMax = 300 * time.Millisecond

	config.Browser.NavigationTimeout = 45 * time.Second
	config.Browser.RenderDwell = 3 * time.Second
	config.Browser.SelectorTimeout = 10 * time.Second

	config.LLM.Provider = "claude"
	config.LLM.Model = "claude-3-haiku-20240307"
	config.LLM.MaxTokens = 8192
	config.LLM.Temperature = 0.1
	config.LLM.Timeout = 120 * time.Second

	config.Mongo.URI = "mongodb://localhost:27017"
	config.Mongo.Database = "jobharvest"
	config.Mongo.Collection = "jobs"
	config.Mongo.Timeout = 10 * time.Second

	config.Pipeline.DailyQuotaPerSource = 10
	config.Pipeline.RunPhases = 2
	config.Pipeline.SweepExpired = true

	config.Scheduler.Enabled = true
	config.Scheduler.CronSpec = "0 6 * * *"
	config.Scheduler.Timezone = "Africa/Kigali"
	config.Scheduler.FailureThreshold = 3
	config.Scheduler.AlertInterval = 1 * time.Hour
	config.Scheduler.MaintenanceSpec = "0 3 * * *"
	config.Scheduler.RestartDelay = 5 * time.Minute
	config.Scheduler.ContinuousSpec = "0 */4 * * *"
	config.Scheduler.DailyTarget = 20

	config.Webhook.Cooldown = 2 * time.Minute
	config.Webhook.PerMinuteLimit = 3
	config.Webhook.WindowLimit = 10
	config.Webhook.Window = 5 * time.Minute
	config.Webhook.DailyLimit = 100
	config.Webhook.PerIPLimit = 20
	config.Webhook.BusinessStart = 8
	config.Webhook.BusinessEnd = 18
	config.Webhook.OffHoursMinimum = "high"

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	// Load from YAML file if it exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			yamlContent := expandEnvVars(string(data))

			if err := yaml.Unmarshal([]byte(yamlContent), config); err != nil {
				return nil, err
			}
		}
	}

	// Override with environment variables
	config.loadFromEnv()

	return config, nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if host := os.Getenv("HOST"); host != "" {
		c.Server.Host = host
	}

	if apiKey := os.Getenv("LLM_API_KEY"); apiKey != "" {
		c.LLM.APIKey = apiKey
	}

	if provider := os.Getenv("LLM_PROVIDER"); provider != "" {
		c.LLM.Provider = provider
	}

	if model := os.Getenv("LLM_MODEL"); model != "" {
		c.LLM.Model = model
	}

	if uri := os.Getenv("MONGO_URI"); uri != "" {
		c.Mongo.URI = uri
	}

	if db := os.Getenv("MONGO_DATABASE"); db != "" {
		c.Mongo.Database = db
	}

	if secret := os.Getenv("WEBHOOK_SECRET"); secret != "" {
		c.Webhook.Secret = secret
	}

	if quota := os.Getenv("DAILY_QUOTA_PER_SOURCE"); quota != "" {
		if q, err := strconv.Atoi(quota); err == nil && q > 0 {
			c.Pipeline.DailyQuotaPerSource = q
		}
	}

	if spec := os.Getenv("SCRAPE_CRON_SPEC"); spec != "" {
		c.Scheduler.CronSpec = spec
	}

	if tz := os.Getenv("SCRAPE_TIMEZONE"); tz != "" {
		c.Scheduler.Timezone = tz
	}

	if enabled := os.Getenv("SCHEDULER_ENABLED"); enabled != "" {
		c.Scheduler.Enabled = enabled == "true" || enabled == "1"
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	if logFormat := os.Getenv("LOG_FORMAT"); logFormat != "" {
		c.Logging.Format = logFormat
	}
}
