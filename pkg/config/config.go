package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath        = "config.yaml"
	defaultLLMProvider       = "groq"
	defaultGroqModel         = "llama-3.3-70b-versatile"
	defaultOpenAIModel       = "gpt-4o-mini"
	defaultOpenAIURL         = "https://api.openai.com/v1"
	defaultElevenLabsVoice   = "21m00Tcm4TlvDq8ikWAM"
	defaultElevenLabsModel   = "eleven_multilingual_v2"
	defaultStability         = 0.5
	defaultSimilarity        = 0.75
	defaultCreatomateURL     = "https://api.creatomate.com/v1"
	defaultPollInterval      = 5 * time.Second
	defaultMaxWait           = 600 * time.Second
	defaultRequestsPerSecond = 2.0
	defaultOutputDir         = "./output"
	defaultAudioPrefix       = "audio"
	defaultTokenPath         = "./youtube_token.json"
	defaultCategoryID        = "22"
	defaultIdeas             = 5
	defaultMode              = "generate"
	defaultRedisAddr         = "localhost:6379"
	defaultQueue             = "default"
)

type Config struct {
	GroqAPIKey          string `yaml:"-"`
	OpenAIAPIKey        string `yaml:"-"`
	ElevenLabsAPIKey    string `yaml:"-"`
	CreatomateAPIKey    string `yaml:"-"`
	YouTubeClientID     string `yaml:"-"`
	YouTubeClientSecret string `yaml:"-"`
	YouTubeTokenPath    string `yaml:"-"`
	DatabaseURL         string `yaml:"-"`
	GCPProject          string `yaml:"-"`

	LLM        LLMConfig        `yaml:"llm"`
	Groq       GroqConfig       `yaml:"groq"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	ElevenLabs ElevenLabsConfig `yaml:"elevenlabs"`
	Creatomate CreatomateConfig `yaml:"creatomate"`
	Storage    StorageConfig    `yaml:"storage"`
	YouTube    YouTubeConfig    `yaml:"youtube"`
	Workflow   WorkflowConfig   `yaml:"workflow"`
	Worker     WorkerConfig     `yaml:"worker"`
}

// LLMConfig selects the chat model backend used for ideas and scripts.
// Provider is "groq" or "openai"; Prompts optionally points at a prompt file.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	Prompts  string `yaml:"prompts"`
}

type GroqConfig struct {
	Model string `yaml:"model"`
}

// OpenAIConfig also serves OpenAI-compatible APIs through BaseURL.
type OpenAIConfig struct {
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type ElevenLabsConfig struct {
	VoiceID    string  `yaml:"voice_id"`
	Model      string  `yaml:"model"`
	Stability  float64 `yaml:"stability"`
	Similarity float64 `yaml:"similarity"`
}

type CreatomateConfig struct {
	BaseURL           string        `yaml:"base_url"`
	PollInterval      time.Duration `yaml:"poll_interval"`
	MaxWait           time.Duration `yaml:"max_wait"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

type StorageConfig struct {
	OutputDir   string `yaml:"output_dir"`
	AudioBucket string `yaml:"audio_bucket"`
	AudioPrefix string `yaml:"audio_prefix"`
}

type YouTubeConfig struct {
	CategoryID  string   `yaml:"category_id"`
	DefaultTags []string `yaml:"default_tags"`
}

type WorkflowConfig struct {
	DefaultIdeas int    `yaml:"default_ideas"`
	Mode         string `yaml:"mode"`
}

type WorkerConfig struct {
	RedisAddr string `yaml:"redis_addr"`
	Queue     string `yaml:"queue"`
}

// Load reads .env, the environment and config.yaml from the working directory.
// Secrets missing from the environment are fetched from Secret Manager when
// GOOGLE_CLOUD_PROJECT is set.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, defaultConfigPath, nil)
}

// LoadFrom is Load with an explicit config path and secret source. A nil
// source means Secret Manager in GOOGLE_CLOUD_PROJECT, if set.
func LoadFrom(ctx context.Context, path string, secrets SecretSource) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		GroqAPIKey:          os.Getenv("GROQ_API_KEY"),
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		ElevenLabsAPIKey:    os.Getenv("ELEVENLABS_API_KEY"),
		CreatomateAPIKey:    os.Getenv("CREATOMATE_API_KEY"),
		YouTubeClientID:     os.Getenv("YOUTUBE_CLIENT_ID"),
		YouTubeClientSecret: os.Getenv("YOUTUBE_CLIENT_SECRET"),
		YouTubeTokenPath:    getEnvOrDefault("YOUTUBE_TOKEN_PATH", defaultTokenPath),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		GCPProject:          os.Getenv("GOOGLE_CLOUD_PROJECT"),
	}

	if err := loadYAMLConfig(path, cfg); err != nil {
		return nil, err
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Worker.RedisAddr = addr
	}

	if err := resolveSecrets(ctx, cfg, secrets); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	return cfg, nil
}

func loadYAMLConfig(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	applyLLMDefaults(cfg)
	applyElevenLabsDefaults(cfg)
	applyCreatomateDefaults(cfg)
	applyStorageDefaults(cfg)
	applyYouTubeDefaults(cfg)
	applyWorkflowDefaults(cfg)
	applyWorkerDefaults(cfg)
}

func applyLLMDefaults(cfg *Config) {
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = defaultLLMProvider
	}
	if cfg.Groq.Model == "" {
		cfg.Groq.Model = defaultGroqModel
	}
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = defaultOpenAIModel
	}
	if cfg.OpenAI.BaseURL == "" {
		cfg.OpenAI.BaseURL = defaultOpenAIURL
	}
}

func applyElevenLabsDefaults(cfg *Config) {
	if cfg.ElevenLabs.VoiceID == "" {
		cfg.ElevenLabs.VoiceID = defaultElevenLabsVoice
	}
	if cfg.ElevenLabs.Model == "" {
		cfg.ElevenLabs.Model = defaultElevenLabsModel
	}
	if cfg.ElevenLabs.Stability == 0 {
		cfg.ElevenLabs.Stability = defaultStability
	}
	if cfg.ElevenLabs.Similarity == 0 {
		cfg.ElevenLabs.Similarity = defaultSimilarity
	}
}

func applyCreatomateDefaults(cfg *Config) {
	if cfg.Creatomate.BaseURL == "" {
		cfg.Creatomate.BaseURL = defaultCreatomateURL
	}
	if cfg.Creatomate.PollInterval <= 0 {
		cfg.Creatomate.PollInterval = defaultPollInterval
	}
	if cfg.Creatomate.MaxWait <= 0 {
		cfg.Creatomate.MaxWait = defaultMaxWait
	}
	if cfg.Creatomate.RequestsPerSecond <= 0 {
		cfg.Creatomate.RequestsPerSecond = defaultRequestsPerSecond
	}
}

func applyStorageDefaults(cfg *Config) {
	if cfg.Storage.OutputDir == "" {
		cfg.Storage.OutputDir = defaultOutputDir
	}
	if cfg.Storage.AudioPrefix == "" {
		cfg.Storage.AudioPrefix = defaultAudioPrefix
	}
}

func applyYouTubeDefaults(cfg *Config) {
	if cfg.YouTube.CategoryID == "" {
		cfg.YouTube.CategoryID = defaultCategoryID
	}
	if len(cfg.YouTube.DefaultTags) == 0 {
		cfg.YouTube.DefaultTags = []string{"shorts"}
	}
}

func applyWorkflowDefaults(cfg *Config) {
	if cfg.Workflow.DefaultIdeas <= 0 {
		cfg.Workflow.DefaultIdeas = defaultIdeas
	}
	if cfg.Workflow.Mode == "" {
		cfg.Workflow.Mode = defaultMode
	}
}

func applyWorkerDefaults(cfg *Config) {
	if cfg.Worker.RedisAddr == "" {
		cfg.Worker.RedisAddr = defaultRedisAddr
	}
	if cfg.Worker.Queue == "" {
		cfg.Worker.Queue = defaultQueue
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
