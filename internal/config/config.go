package config

import (
	"log"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"
	configPathEnv   = "SHADOWNEWS_CONFIG"

	// FetchArticlesJob is the name of the scraping job.
	FetchArticlesJob = "fetch-articles"

	// DefaultAudioCacheTTL is how long a generated TTS URL stays valid.
	DefaultAudioCacheTTL = 7 * 24 * time.Hour
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Fetch         FetchConfig        `yaml:"fetch"`
	LLM           LLMConfig          `yaml:"llm"`
	Speech        SpeechConfig       `yaml:"speech"`
	Cache         CacheConfig        `yaml:"cache"`
	Audio         AudioConfig        `yaml:"audio"`
	HTTP          HTTPConfig         `yaml:"http"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// LoggingConfig selects slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig picks the article store backend ("sqlite" or "postgres").
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// SchedulerConfig defines the recurring jobs.
type SchedulerConfig struct {
	Timezone string         `yaml:"timezone"`
	Jobs     []JobConfig    `yaml:"jobs"`
	location *time.Location `yaml:"-"`
}

// JobConfig is one cron entry; Enabled defaults to true.
type JobConfig struct {
	Name     string `yaml:"name"`
	Schedule string `yaml:"schedule"`
	Enabled  *bool  `yaml:"enabled"`
}

// IsEnabled reports whether the job should be registered.
func (j JobConfig) IsEnabled() bool {
	return j.Enabled == nil || *j.Enabled
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// FetchConfig controls the scraping run.
type FetchConfig struct {
	Sources   []string      `yaml:"sources"`
	PerSource int           `yaml:"perSource"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"userAgent"`
}

// LLMConfig defines how to contact the chat-completion API.
type LLMConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
	MaxTokens    int    `yaml:"maxTokens"`
}

// SpeechConfig describes the TTS and transcription service; an empty BaseURL disables it.
type SpeechConfig struct {
	BaseURL            string `yaml:"baseUrl"`
	APIKey             string `yaml:"apiKey"`
	Voice              string `yaml:"voice"`
	Model              string `yaml:"model"`
	TranscriptionModel string `yaml:"transcriptionModel"`
}

// CacheConfig selects the key-value backend behind the audio cache and learning records.
type CacheConfig struct {
	Backend       string        `yaml:"backend"`
	RedisAddr     string        `yaml:"redisAddr"`
	RedisPassword string        `yaml:"redisPassword"`
	RedisDB       int           `yaml:"redisDb"`
	TTL           time.Duration `yaml:"ttl"`
}

// AudioConfig points at the offline audio directory; empty disables downloads.
type AudioConfig struct {
	Dir string `yaml:"dir"`
}

// HTTPConfig is the listen address of the query API.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

type envOverrides struct {
	LogLevel       string `env:"LOG_LEVEL"`
	DatabaseDriver string `env:"DATABASE_DRIVER"`
	DatabaseDSN    string `env:"DATABASE_DSN"`
	LLMAPIKey      string `env:"LLM_API_KEY"`
	LLMModel       string `env:"LLM_MODEL"`
	SpeechAPIKey   string `env:"TTS_API_KEY"`
	SpeechBaseURL  string `env:"TTS_BASE_URL"`
	RedisAddr      string `env:"REDIS_ADDR"`
	TelegramToken  string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID string `env:"TELEGRAM_CHAT_ID"`
	HTTPAddr       string `env:"HTTP_ADDR"`
	AudioDir       string `env:"AUDIO_DIR"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if fileCfg, err := Parse(raw); err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
		} else {
			cfg = mergeConfig(cfg, fileCfg)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		log.Printf("config: %v (ignoring environment overrides)", err)
	}
	cfg.bindTimezone()

	return cfg
}

// Parse decodes a YAML document without applying defaults.
func Parse(raw []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return err
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Logging.Level, o.LogLevel)
	set(&c.Database.Driver, o.DatabaseDriver)
	set(&c.Database.DSN, o.DatabaseDSN)
	set(&c.LLM.APIKey, o.LLMAPIKey)
	set(&c.LLM.Model, o.LLMModel)
	set(&c.Speech.APIKey, o.SpeechAPIKey)
	set(&c.Speech.BaseURL, o.SpeechBaseURL)
	set(&c.Notifications.Telegram.BotToken, o.TelegramToken)
	set(&c.Notifications.Telegram.ChatID, o.TelegramChatID)
	set(&c.HTTP.Addr, o.HTTPAddr)
	set(&c.Audio.Dir, o.AudioDir)
	if o.RedisAddr != "" {
		c.Cache.RedisAddr = o.RedisAddr
		c.Cache.Backend = "redis"
	}
	return nil
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}

	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}
	if len(override.Scheduler.Jobs) > 0 {
		base.Scheduler.Jobs = override.Scheduler.Jobs
	}

	if len(override.Fetch.Sources) > 0 {
		base.Fetch.Sources = override.Fetch.Sources
	}
	if override.Fetch.PerSource > 0 {
		base.Fetch.PerSource = override.Fetch.PerSource
	}
	if override.Fetch.Timeout > 0 {
		base.Fetch.Timeout = override.Fetch.Timeout
	}
	if override.Fetch.UserAgent != "" {
		base.Fetch.UserAgent = override.Fetch.UserAgent
	}

	if override.LLM.Endpoint != "" {
		base.LLM.Endpoint = override.LLM.Endpoint
	}
	if override.LLM.Model != "" {
		base.LLM.Model = override.LLM.Model
	}
	if override.LLM.APIKey != "" {
		base.LLM.APIKey = override.LLM.APIKey
	}
	if override.LLM.SystemPrompt != "" {
		base.LLM.SystemPrompt = override.LLM.SystemPrompt
	}
	if override.LLM.MaxTokens > 0 {
		base.LLM.MaxTokens = override.LLM.MaxTokens
	}

	if override.Speech.BaseURL != "" {
		base.Speech.BaseURL = override.Speech.BaseURL
	}
	if override.Speech.APIKey != "" {
		base.Speech.APIKey = override.Speech.APIKey
	}
	if override.Speech.Voice != "" {
		base.Speech.Voice = override.Speech.Voice
	}
	if override.Speech.Model != "" {
		base.Speech.Model = override.Speech.Model
	}
	if override.Speech.TranscriptionModel != "" {
		base.Speech.TranscriptionModel = override.Speech.TranscriptionModel
	}

	if override.Cache.Backend != "" {
		base.Cache.Backend = override.Cache.Backend
	}
	if override.Cache.RedisAddr != "" {
		base.Cache.RedisAddr = override.Cache.RedisAddr
	}
	if override.Cache.RedisPassword != "" {
		base.Cache.RedisPassword = override.Cache.RedisPassword
	}
	if override.Cache.RedisDB != 0 {
		base.Cache.RedisDB = override.Cache.RedisDB
	}
	if override.Cache.TTL > 0 {
		base.Cache.TTL = override.Cache.TTL
	}

	if override.Audio.Dir != "" {
		base.Audio.Dir = override.Audio.Dir
	}
	if override.HTTP.Addr != "" {
		base.HTTP.Addr = override.HTTP.Addr
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "shadownews.db"},
		Scheduler: SchedulerConfig{
			Timezone: defaultTimezone,
			Jobs: []JobConfig{
				{Name: FetchArticlesJob, Schedule: "0 */6 * * *"},
			},
			location: tz,
		},
		Fetch: FetchConfig{
			Sources:   []string{"bbc", "voa", "engoo"},
			PerSource: 10,
			Timeout:   10 * time.Second,
		},
		LLM: LLMConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			SystemPrompt: "You are a professional translator.",
			MaxTokens:    4000,
		},
		Speech: SpeechConfig{
			Voice:              "alloy",
			Model:              "tts-1",
			TranscriptionModel: "whisper-1",
		},
		Cache: CacheConfig{Backend: "memory", TTL: DefaultAudioCacheTTL},
		HTTP:  HTTPConfig{Addr: ":8080"},
	}
}
