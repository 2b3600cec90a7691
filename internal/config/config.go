// ABOUTME: Centralized configuration for the engagement agent
// ABOUTME: Loads from environment variables with validation and defaults
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ScoreWeights are the seven quality-score factor weights. The scorer
// divides by their sum, so they need not add up to 1.0.
type ScoreWeights struct {
	Upvote     float64
	Karma      float64
	Freshness  float64
	Velocity   float64
	Question   float64
	Depth      float64
	Historical float64
}

// Config holds all configuration for the agent.
type Config struct {
	// Storage
	DBPath string // empty means the XDG default path

	// Platform
	AllowedSubreddits string
	RedditBaseURL     string
	RedditToken       string
	UserAgent         string

	// OpenAI settings
	OpenAIKey  string
	ChatModel  string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration

	// Notification settings
	TelegramToken  string
	TelegramChatID string
	PublicURL      string

	// Safety limits
	MaxPerDay         int
	MaxPerRun         int
	MaxPerSubreddit   int
	DiversityOverride float64
	InboxCooldown     time.Duration
	StandardCooldown  time.Duration

	// Scoring
	Weights            ScoreWeights
	ScoreThreshold     float64
	ExplorationRate    float64
	LearningMinSamples int

	// Circuit breaker
	BreakerThreshold int
	BreakerCooldown  time.Duration

	// Redemption server
	ListenAddr string

	// Mode
	DryRun bool
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		DBPath:            os.Getenv("ENGAGE_DB_PATH"),
		AllowedSubreddits: os.Getenv("ALLOWED_SUBREDDITS"),
		RedditBaseURL:     getEnv("REDDIT_BASE_URL", "https://oauth.reddit.com"),
		RedditToken:       os.Getenv("REDDIT_TOKEN"),
		UserAgent:         getEnv("REDDIT_USER_AGENT", "engage-agent/1.0"),

		OpenAIKey:  os.Getenv("OPENAI_API_KEY"),
		ChatModel:  getEnv("ENGAGE_OPENAI_MODEL", "gpt-4o-mini"),
		Timeout:    getEnvDuration("OPENAI_TIMEOUT", 30*time.Second),
		MaxRetries: getEnvInt("OPENAI_MAX_RETRIES", 3),
		RetryDelay: getEnvDuration("OPENAI_RETRY_DELAY", 2*time.Second),

		TelegramToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID: os.Getenv("TELEGRAM_CHAT_ID"),
		PublicURL:      getEnv("PUBLIC_URL", "http://localhost:8787"),

		MaxPerDay:         getEnvInt("MAX_COMMENTS_PER_DAY", 8),
		MaxPerRun:         getEnvInt("MAX_COMMENTS_PER_RUN", 3),
		MaxPerSubreddit:   getEnvInt("MAX_PER_SUBREDDIT", 2),
		DiversityOverride: getEnvFloat("DIVERSITY_OVERRIDE_THRESHOLD", 0.75),
		InboxCooldown:     getEnvDuration("INBOX_COOLDOWN", 6*time.Hour),
		StandardCooldown:  getEnvDuration("STANDARD_COOLDOWN", 24*time.Hour),

		Weights: ScoreWeights{
			Upvote:     getEnvFloat("SCORE_WEIGHT_UPVOTE", 0.15),
			Karma:      getEnvFloat("SCORE_WEIGHT_KARMA", 0.10),
			Freshness:  getEnvFloat("SCORE_WEIGHT_FRESHNESS", 0.20),
			Velocity:   getEnvFloat("SCORE_WEIGHT_VELOCITY", 0.15),
			Question:   getEnvFloat("SCORE_WEIGHT_QUESTION", 0.15),
			Depth:      getEnvFloat("SCORE_WEIGHT_DEPTH", 0.10),
			Historical: getEnvFloat("SCORE_WEIGHT_HISTORICAL", 0.15),
		},
		ScoreThreshold:     getEnvFloat("SCORE_MINIMUM_THRESHOLD", 0.35),
		ExplorationRate:    getEnvFloat("SCORE_EXPLORATION_RATE", 0.25),
		LearningMinSamples: getEnvInt("LEARNING_MIN_SAMPLES", 5),

		BreakerThreshold: getEnvInt("BREAKER_FAILURE_THRESHOLD", 5),
		BreakerCooldown:  getEnvDuration("BREAKER_COOLDOWN", 6*time.Hour),

		ListenAddr: getEnv("ENGAGE_LISTEN_ADDR", ":8787"),

		DryRun: getEnvBool("DRY_RUN", false),
	}

	return cfg, cfg.Validate()
}

// Validate checks bounds on the loaded configuration.
func (c *Config) Validate() error {
	if c.MaxPerDay < 1 {
		return fmt.Errorf("MAX_COMMENTS_PER_DAY must be >= 1, got %d", c.MaxPerDay)
	}
	if c.MaxPerRun < 1 || c.MaxPerRun > c.MaxPerDay {
		return fmt.Errorf("MAX_COMMENTS_PER_RUN must be 1-%d, got %d", c.MaxPerDay, c.MaxPerRun)
	}
	if c.ScoreThreshold < 0 || c.ScoreThreshold > 1 {
		return fmt.Errorf("SCORE_MINIMUM_THRESHOLD must be 0-1, got %f", c.ScoreThreshold)
	}
	if c.ExplorationRate < 0 || c.ExplorationRate > 1 {
		return fmt.Errorf("SCORE_EXPLORATION_RATE must be 0-1, got %f", c.ExplorationRate)
	}
	if c.DiversityOverride < 0 || c.DiversityOverride > 1 {
		return fmt.Errorf("DIVERSITY_OVERRIDE_THRESHOLD must be 0-1, got %f", c.DiversityOverride)
	}
	if c.BreakerThreshold < 1 {
		return fmt.Errorf("BREAKER_FAILURE_THRESHOLD must be >= 1, got %d", c.BreakerThreshold)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("OPENAI_MAX_RETRIES must be 0-10, got %d", c.MaxRetries)
	}
	return nil
}

// SubredditsList returns the allowed subreddits as a slice.
func (c *Config) SubredditsList() []string {
	var out []string
	for _, s := range strings.Split(c.AllowedSubreddits, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v == "true" || v == "1"
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
