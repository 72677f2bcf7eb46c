package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Azure      AzureConfig      `yaml:"azure"`
	Grok       GrokConfig       `yaml:"grok"`
	ElevenLabs ElevenLabsConfig `yaml:"elevenlabs"`
	Cache      CacheConfig      `yaml:"cache"`
	Tools      ToolsConfig      `yaml:"tools"`
	Frames     FramesConfig     `yaml:"frames"`
	Timeouts   TimeoutsConfig   `yaml:"timeouts"`
	Dedup      DedupConfig      `yaml:"dedup"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host           string        `yaml:"host" envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port           int           `yaml:"port" envconfig:"SERVER_PORT" default:"8000"`
	ReadTimeout    time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout   time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT" default:"2m"`
	RequestTimeout time.Duration `yaml:"request_timeout" envconfig:"SERVER_REQUEST_TIMEOUT" default:"2m"`
	CORSOrigins    []string      `yaml:"cors_origins" envconfig:"CORS_ORIGINS" default:"http://localhost:8080,http://localhost:5173,http://localhost:8083"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `yaml:"level" envconfig:"LOG_LEVEL" default:"info"`
}

// ProvidersConfig selects which hosted provider serves each capability.
// "auto" picks the first configured provider; "none" forces stub output.
type ProvidersConfig struct {
	Vision        string        `yaml:"vision" envconfig:"VISION_PROVIDER" default:"auto"`
	Text          string        `yaml:"text" envconfig:"TEXT_PROVIDER" default:"auto"`
	Chat          string        `yaml:"chat" envconfig:"CHAT_PROVIDER" default:"auto"`
	Audio         string        `yaml:"audio" envconfig:"AUDIO_PROVIDER" default:"auto"`
	MaxAttempts   int           `yaml:"max_attempts" envconfig:"PROVIDER_MAX_ATTEMPTS" default:"2"`
	RetryDelay    time.Duration `yaml:"retry_delay" envconfig:"PROVIDER_RETRY_DELAY" default:"3s"`
	MaxRetryDelay time.Duration `yaml:"max_retry_delay" envconfig:"PROVIDER_MAX_RETRY_DELAY" default:"30s"`
}

// GeminiConfig holds Google Gemini configuration.
type GeminiConfig struct {
	APIKey string `yaml:"api_key" envconfig:"GEMINI_API_KEY"`
	Model  string `yaml:"model" envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
}

// OpenAIConfig holds OpenAI configuration. The same key serves Whisper.
type OpenAIConfig struct {
	APIKey       string `yaml:"api_key" envconfig:"OPENAI_API_KEY"`
	BaseURL      string `yaml:"base_url" envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	Model        string `yaml:"model" envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	WhisperModel string `yaml:"whisper_model" envconfig:"WHISPER_MODEL" default:"whisper-1"`
}

// AzureConfig holds Azure OpenAI configuration.
type AzureConfig struct {
	APIKey           string `yaml:"api_key" envconfig:"AZURE_OPENAI_KEY"`
	Endpoint         string `yaml:"endpoint" envconfig:"AZURE_OPENAI_ENDPOINT"`
	Deployment       string `yaml:"deployment" envconfig:"AZURE_OPENAI_DEPLOYMENT" default:"gpt-4o-mini"`
	VisionDeployment string `yaml:"vision_deployment" envconfig:"AZURE_OPENAI_VISION_DEPLOYMENT" default:"gpt-4o-mini"`
	APIVersion       string `yaml:"api_version" envconfig:"AZURE_OPENAI_API_VERSION" default:"2024-07-01-preview"`
}

// GrokConfig holds Grok AI configuration.
type GrokConfig struct {
	APIKey  string        `yaml:"api_key" envconfig:"GROK_API_KEY"`
	BaseURL string        `yaml:"base_url" envconfig:"GROK_BASE_URL" default:"https://api.x.ai/v1"`
	Timeout time.Duration `yaml:"timeout" envconfig:"GROK_TIMEOUT" default:"30s"`
	Model   string        `yaml:"model" envconfig:"GROK_MODEL" default:"grok-2-vision-latest"`
}

// ElevenLabsConfig holds text-to-speech configuration.
type ElevenLabsConfig struct {
	APIKey  string        `yaml:"api_key" envconfig:"ELEVENLABS_API_KEY"`
	VoiceID string        `yaml:"voice_id" envconfig:"ELEVENLABS_VOICE_ID" default:"21m00Tcm4TlvDq8ikWAM"`
	BaseURL string        `yaml:"base_url" envconfig:"ELEVENLABS_BASE_URL" default:"https://api.elevenlabs.io"`
	Timeout time.Duration `yaml:"timeout" envconfig:"ELEVENLABS_TIMEOUT" default:"30s"`
}

// CacheConfig holds analysis cache configuration.
type CacheConfig struct {
	Backend       string        `yaml:"backend" envconfig:"CACHE_BACKEND" default:"memory"`
	TTL           time.Duration `yaml:"ttl" envconfig:"CACHE_TTL" default:"300s"`
	AnalyzeTTL    time.Duration `yaml:"analyze_ttl" envconfig:"ANALYZE_CACHE_TTL" default:"600s"`
	MaxEntries    int           `yaml:"max_entries" envconfig:"CACHE_MAX_ENTRIES" default:"10000"`
	SweepInterval time.Duration `yaml:"sweep_interval" envconfig:"CACHE_SWEEP_INTERVAL" default:"1m"`
	RedisAddr     string        `yaml:"redis_addr" envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string        `yaml:"redis_password" envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db" envconfig:"REDIS_DB" default:"0"`
}

// ToolsConfig locates the external media tools.
type ToolsConfig struct {
	YTDLPPath  string `yaml:"ytdlp_path" envconfig:"YTDLP_PATH" default:"yt-dlp"`
	FFmpegPath string `yaml:"ffmpeg_path" envconfig:"FFMPEG_PATH" default:"ffmpeg"`
}

// FramesConfig holds frame extraction configuration.
type FramesConfig struct {
	MaxFrames       int           `yaml:"max_frames" envconfig:"FRAME_WINDOW_MAX_FRAMES" default:"4"`
	MaxEdge         int           `yaml:"max_edge" envconfig:"FRAME_MAX_EDGE" default:"640"`
	JPEGQuality     int           `yaml:"jpeg_quality" envconfig:"FRAME_JPEG_QUALITY" default:"78"`
	Concurrency     int           `yaml:"concurrency" envconfig:"FRAME_CONCURRENCY" default:"3"`
	StreamURLTTL    time.Duration `yaml:"stream_url_ttl" envconfig:"STREAM_URL_TTL" default:"120s"`
	SimilarDistance int           `yaml:"similar_distance" envconfig:"FRAME_SIMILAR_DISTANCE" default:"2"`
}

// TimeoutsConfig holds per-stage deadlines.
type TimeoutsConfig struct {
	CaptionFetch   time.Duration `yaml:"caption_fetch" envconfig:"CAPTION_FETCH_TIMEOUT" default:"15s"`
	AnalyzeVision  time.Duration `yaml:"analyze_vision" envconfig:"ANALYZE_VISION_TIMEOUT" default:"15s"`
	AnalyzeCaption time.Duration `yaml:"analyze_caption" envconfig:"ANALYZE_CAPTION_TIMEOUT" default:"2s"`
	AnalyzeAudio   time.Duration `yaml:"analyze_audio" envconfig:"ANALYZE_AUDIO_TIMEOUT" default:"15s"`
	Live           time.Duration `yaml:"live" envconfig:"LIVE_TIMEOUT" default:"10s"`
	Metadata       time.Duration `yaml:"metadata" envconfig:"METADATA_TIMEOUT" default:"10s"`
	Chat           time.Duration `yaml:"chat" envconfig:"CHAT_TIMEOUT" default:"30s"`
	Text           time.Duration `yaml:"text" envconfig:"TEXT_TIMEOUT" default:"10s"`
	Frame          time.Duration `yaml:"frame" envconfig:"FRAME_TIMEOUT" default:"8s"`
}

// DedupConfig holds live commentary deduplication configuration.
type DedupConfig struct {
	Threshold  float64 `yaml:"threshold" envconfig:"DEDUP_THRESHOLD" default:"0.85"`
	MaxHistory int     `yaml:"max_history" envconfig:"DEDUP_MAX_HISTORY" default:"10"`
}

// EnrichmentConfig points at an external object detection and pose server.
type EnrichmentConfig struct {
	URL     string        `yaml:"url" envconfig:"ENRICHMENT_URL"`
	Timeout time.Duration `yaml:"timeout" envconfig:"ENRICHMENT_TIMEOUT" default:"5s"`
}

var (
	validProviders = map[string]bool{"auto": true, "none": true, "gemini": true, "openai": true, "azure": true, "grok": true}
	validAudio     = map[string]bool{"auto": true, "none": true, "gemini": true, "whisper": true}
	validBackends  = map[string]bool{"memory": true, "redis": true}
	validLevels    = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
)

// Load reads configuration from file and environment variables.
// A .env file (ENV_FILE, default ".env") is applied first when present;
// environment variables override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	// Load from YAML file if provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Override with environment variables
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func loadDotEnv() error {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	// godotenv.Load never overrides variables that are already set.
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

func (c *Config) normalize() {
	c.Providers.Vision = strings.ToLower(strings.TrimSpace(c.Providers.Vision))
	c.Providers.Text = strings.ToLower(strings.TrimSpace(c.Providers.Text))
	c.Providers.Chat = strings.ToLower(strings.TrimSpace(c.Providers.Chat))
	c.Providers.Audio = strings.ToLower(strings.TrimSpace(c.Providers.Audio))
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Frames.MaxFrames = ClampMaxFrames(c.Frames.MaxFrames)

	origins := c.Server.CORSOrigins[:0]
	for _, o := range c.Server.CORSOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.Server.CORSOrigins = origins
}

// ClampMaxFrames keeps the frame window size within 1..8.
func ClampMaxFrames(n int) int {
	if n < 1 {
		return 1
	}
	if n > 8 {
		return 8
	}
	return n
}

// Validate checks that configuration values are usable.
// Missing provider keys are not errors: the service runs in stub mode.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	for name, v := range map[string]string{
		"VISION_PROVIDER": c.Providers.Vision,
		"TEXT_PROVIDER":   c.Providers.Text,
		"CHAT_PROVIDER":   c.Providers.Chat,
	} {
		if !validProviders[v] {
			return fmt.Errorf("%s %q is not supported", name, v)
		}
	}
	if !validAudio[c.Providers.Audio] {
		return fmt.Errorf("AUDIO_PROVIDER %q is not supported", c.Providers.Audio)
	}
	if c.Providers.MaxAttempts < 1 {
		return fmt.Errorf("PROVIDER_MAX_ATTEMPTS must be at least 1")
	}
	if !validBackends[c.Cache.Backend] {
		return fmt.Errorf("CACHE_BACKEND %q is not supported", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required for the redis cache backend")
	}
	if c.Log.Level != "" && !validLevels[c.Log.Level] {
		return fmt.Errorf("LOG_LEVEL %q is not supported", c.Log.Level)
	}
	if c.Dedup.Threshold <= 0 || c.Dedup.Threshold > 1 {
		return fmt.Errorf("DEDUP_THRESHOLD must be in (0, 1], got %v", c.Dedup.Threshold)
	}
	if c.Dedup.MaxHistory < 1 {
		return fmt.Errorf("DEDUP_MAX_HISTORY must be at least 1")
	}
	if c.Frames.JPEGQuality < 1 || c.Frames.JPEGQuality > 100 {
		return fmt.Errorf("FRAME_JPEG_QUALITY must be between 1 and 100")
	}
	if c.Azure.APIKey != "" && c.Azure.Endpoint == "" {
		return fmt.Errorf("AZURE_OPENAI_ENDPOINT is required when AZURE_OPENAI_KEY is set")
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// HasAnyProviderKey reports whether at least one hosted LLM provider is configured.
func (c *Config) HasAnyProviderKey() bool {
	return c.Gemini.APIKey != "" || c.OpenAI.APIKey != "" || c.Grok.APIKey != "" ||
		(c.Azure.APIKey != "" && c.Azure.Endpoint != "")
}
