package cfg

import (
	"cmp"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath      string `long:"db-path" env:"DB_PATH" default:"./data/radio.db" description:"Path to the SQLite database file"`
	StorageDir  string `long:"storage-dir" env:"STORAGE_DIR" default:"./data/storage" description:"Directory holding uploaded audio objects"`
	AudioBucket string `long:"audio-bucket" env:"AUDIO_BUCKET" default:"audio" description:"Bucket name for synthesized audio"`

	// Application configuration
	CatalogDir        string `long:"catalog-dir" env:"CATALOG_DIR" default:"./catalog" description:"Directory containing curated feed catalog files"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl           string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://radio.example.com)"`
	OwnerID           string `long:"owner-id" env:"OWNER_ID" default:"default" description:"Owner identifier for feeds, articles and credentials"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers for feed refresh"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"300" description:"Scheduler interval in seconds"`
	RefreshInterval   int    `long:"refresh-interval" env:"REFRESH_INTERVAL" default:"0" description:"Background feed refresh interval in seconds (0 disables)"`
	RequestTimeout    int    `long:"request-timeout" env:"REQUEST_TIMEOUT" default:"120" description:"Timeout in seconds for each external request"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	Extractor         string `long:"extractor" env:"EXTRACTOR" default:"paragraphs" choice:"paragraphs" choice:"readability" description:"Article content extraction strategy"`

	// External services
	GeminiModel       string `long:"gemini-model" env:"GEMINI_MODEL" default:"gemini-2.0-flash" description:"Generative model used for transcripts"`
	GeminiBaseUrl     string `long:"gemini-base-url" env:"GEMINI_BASE_URL" description:"Override for the Gemini API endpoint"`
	ElevenLabsBaseUrl string `long:"elevenlabs-base-url" env:"ELEVENLABS_BASE_URL" default:"https://api.elevenlabs.io/v1" description:"ElevenLabs API endpoint"`
	VoiceID           string `long:"voice-id" env:"VOICE_ID" default:"21m00Tcm4TlvDq8ikWAM" description:"Default ElevenLabs voice"`
	ModelID           string `long:"model-id" env:"MODEL_ID" default:"eleven_multilingual_v2" description:"Default ElevenLabs model"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"RSS Radio/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

// Load parses flags and environment. Variables from a .env file in the
// working directory fill in anything not already set in the environment.
func Load() (*Cfg, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:            raw.DBPath,
		StorageDir:        raw.StorageDir,
		AudioBucket:       raw.AudioBucket,
		CatalogDir:        raw.CatalogDir,
		Port:              raw.Port,
		BaseUrl:           raw.BaseUrl,
		OwnerID:           raw.OwnerID,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		RefreshInterval:   raw.RefreshInterval,
		RequestTimeout:    raw.RequestTimeout,
		APIAccessKey:      raw.APIAccessKey,
		Extractor:         raw.Extractor,
		GeminiModel:       raw.GeminiModel,
		GeminiBaseUrl:     raw.GeminiBaseUrl,
		ElevenLabsBaseUrl: raw.ElevenLabsBaseUrl,
		VoiceID:           raw.VoiceID,
		ModelID:           raw.ModelID,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// Set replaces the active configuration. Used by tests and embedders.
func Set(c *Cfg) {
	globalCfg = c
}

func validate(c *Cfg) error {
	if c.OwnerID == "" {
		return fmt.Errorf("owner id must not be empty")
	}
	nonNegative := map[string]int{
		"worker count":       c.WorkerCount,
		"scheduler interval": c.SchedulerInterval,
		"refresh interval":   c.RefreshInterval,
		"request timeout":    c.RequestTimeout,
	}
	for name, value := range nonNegative {
		if value < 0 {
			return fmt.Errorf("%s must be non-negative", name)
		}
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
