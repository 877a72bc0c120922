// Package config loads briefcast settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Provider names accepted for embedding and generation.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderBedrock   = "bedrock"
)

// Config holds all configuration values.
// It is built once by Load and passed by value into constructors.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// Embeddings
	EmbedProvider  string
	EmbedModel     string
	EmbedDimension int

	// Script generation
	LLMProvider    string
	LLMModel       string
	LLMTemperature float64

	// Provider credentials
	OpenAIAPIKey    string
	AnthropicAPIKey string
	OllamaHost      string
	AWSRegion       string

	// Transcription
	DeepgramAPIKey string
	DeepgramModel  string

	// Text-to-speech
	ElevenLabsAPIKey string
	ElevenLabsModel  string
	VoiceID          string

	// Publication (Cloudflare R2 or any S3-compatible store)
	R2EndpointURL     string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicDomain    string
	R2Region          string
	PodcastTitle      string
	PodcastAuthor     string

	// Pipeline
	DedupThreshold float64
	WorkDir        string
	OutputDir      string
	AssetsDir      string
	FFmpegPath     string
	FFprobePath    string
	YTDLPPath      string

	// Sources
	SourcesFile string
	Sources     Sources

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Sources lists the content sources polled on every run.
type Sources struct {
	Feeds           []string `yaml:"feeds"`
	YouTubeChannels []string `yaml:"youtube_channels"`
}

// DefaultSources is used when no sources file is configured.
var DefaultSources = Sources{
	Feeds: []string{
		"https://www.raskmedia.com.au/feed/",
		"https://www.fool.com.au/feed/",
	},
	YouTubeChannels: []string{
		"https://www.youtube.com/@RaskAustralia",
	},
}

// Load reads configuration from a .env file (if present) and the environment.
func Load() (Config, error) {
	if err := loadDotEnv(getEnv("BRIEFCAST_ENV_FILE", ".env")); err != nil {
		return Config{}, err
	}

	cfg := Config{
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "briefcast"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "memory"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		EmbedProvider:  getEnv("BRIEFCAST_EMBED_PROVIDER", ProviderOpenAI),
		EmbedModel:     getEnv("BRIEFCAST_EMBED_MODEL", "text-embedding-3-small"),
		EmbedDimension: getEnvInt("BRIEFCAST_EMBED_DIMENSION", 1536),

		LLMProvider:    getEnv("BRIEFCAST_LLM_PROVIDER", ProviderOpenAI),
		LLMModel:       getEnv("BRIEFCAST_LLM_MODEL", "gpt-4o"),
		LLMTemperature: getEnvFloat("BRIEFCAST_LLM_TEMPERATURE", 0.7),

		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		AWSRegion:       getEnv("AWS_REGION", "us-east-1"),

		DeepgramAPIKey: getEnv("DEEPGRAM_API_KEY", ""),
		DeepgramModel:  getEnv("DEEPGRAM_MODEL", "nova-2"),

		ElevenLabsAPIKey: getEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsModel:  getEnv("ELEVENLABS_MODEL", "eleven_turbo_v2_5"),
		VoiceID:          getEnv("BRIEFCAST_VOICE_ID", "JBFqnCBsd6RMkjVDRZzb"),

		R2EndpointURL:     getEnv("R2_ENDPOINT_URL", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2PublicDomain:    getEnv("R2_PUBLIC_DOMAIN", ""),
		R2Region:          getEnv("R2_REGION", "auto"),
		PodcastTitle:      getEnv("BRIEFCAST_PODCAST_TITLE", "ASX Market Briefing"),
		PodcastAuthor:     getEnv("BRIEFCAST_PODCAST_AUTHOR", "briefcast"),

		DedupThreshold: getEnvFloat("BRIEFCAST_DEDUP_THRESHOLD", 0.85),
		WorkDir:        getEnv("BRIEFCAST_WORK_DIR", ""),
		OutputDir:      getEnv("BRIEFCAST_OUTPUT_DIR", "episodes"),
		AssetsDir:      getEnv("BRIEFCAST_ASSETS_DIR", "assets"),
		FFmpegPath:     getEnv("BRIEFCAST_FFMPEG", "ffmpeg"),
		FFprobePath:    getEnv("BRIEFCAST_FFPROBE", "ffprobe"),
		YTDLPPath:      getEnv("BRIEFCAST_YTDLP", "yt-dlp"),

		SourcesFile: getEnv("BRIEFCAST_SOURCES_FILE", ""),
		Sources:     DefaultSources,

		LogFile:  getEnv("BRIEFCAST_LOG_FILE", "/tmp/briefcast.log"),
		LogLevel: parseLogLevel(getEnv("BRIEFCAST_LOG_LEVEL", "INFO")),
	}

	if cfg.SourcesFile != "" {
		sources, err := LoadSources(cfg.SourcesFile)
		if err != nil {
			return Config{}, err
		}
		cfg.Sources = sources
	}

	return cfg, nil
}

// LoadSources reads a YAML sources file.
func LoadSources(path string) (Sources, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Sources{}, fmt.Errorf("read sources file: %w", err)
	}
	var s Sources
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Sources{}, fmt.Errorf("parse sources file %s: %w", path, err)
	}
	return s, nil
}

// Validate reports missing settings required for a full publishing run.
func (c Config) Validate() error {
	var missing []string
	require := func(key, val string) {
		if val == "" {
			missing = append(missing, key)
		}
	}

	if c.EmbedProvider == ProviderOpenAI || c.LLMProvider == ProviderOpenAI {
		require("OPENAI_API_KEY", c.OpenAIAPIKey)
	}
	if c.LLMProvider == ProviderAnthropic {
		require("ANTHROPIC_API_KEY", c.AnthropicAPIKey)
	}
	if len(c.Sources.YouTubeChannels) > 0 {
		require("DEEPGRAM_API_KEY", c.DeepgramAPIKey)
	}
	require("ELEVENLABS_API_KEY", c.ElevenLabsAPIKey)
	require("R2_ENDPOINT_URL", c.R2EndpointURL)
	require("R2_ACCESS_KEY_ID", c.R2AccessKeyID)
	require("R2_SECRET_ACCESS_KEY", c.R2SecretAccessKey)
	require("R2_BUCKET_NAME", c.R2BucketName)
	require("R2_PUBLIC_DOMAIN", c.R2PublicDomain)

	if c.DedupThreshold < 0 || c.DedupThreshold > 1 {
		return fmt.Errorf("dedup threshold %.2f out of range [0,1]", c.DedupThreshold)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
