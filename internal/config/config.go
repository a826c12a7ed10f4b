// Package config provides environment configuration for the renewal engine.
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// Database settings
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string

	// NATS settings
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// JWT settings
	JWTSecret string

	// Sweep settings
	SweepSecret      string
	SweepInterval    time.Duration // 0 disables the background ticker
	SweepConcurrency int

	// LLM settings
	AnthropicAPIKey string
	OpenAIAPIKey    string
	DefaultLLM      string
	LLMTimeout      time.Duration

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool

	// Engine tunables
	Engine EngineConfig
}

// EngineConfig holds the business parameters of the decision engine.
// Defaults mirror the calibration the model shipped with; all of them are
// expected to be tuned per region or per landlord.
type EngineConfig struct {
	// Probability model weights, must sum to 1.0.
	WeightPaymentHistory  float64
	WeightDaysLateAvg     float64
	WeightMaintenanceFreq float64
	WeightLeaseDuration   float64
	WeightMarketDelta     float64

	// Elasticity curve: probability lost per 1% rent increase at market parity.
	BaseElasticity float64

	// Vacancy and turnover assumptions.
	AvgVacancyMonths         float64
	TurnoverCostFixed        float64
	TurnoverLettingFeeFactor float64

	// Pricing sweep range, in percent.
	MinIncreasePct float64
	MaxIncreasePct float64
	IncreaseStep   float64
	TopNScenarios  int

	// Below this confidence an offer is held for landlord approval.
	MinConfidenceToAutoSend float64

	// Workflow timing.
	FirstContactDaysBeforeExpiry int
	InitiateWindowSlackDays      int
	FollowUpAfter                time.Duration
	AutoListAfter                time.Duration

	// Scoring model version tag recorded on every score row.
	ModelVersion string
}

// Validate checks the engine parameters for internal consistency.
func (e EngineConfig) Validate() error {
	sum := e.WeightPaymentHistory + e.WeightDaysLateAvg + e.WeightMaintenanceFreq +
		e.WeightLeaseDuration + e.WeightMarketDelta
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("scoring weights must sum to 1.0, got %.4f", sum)
	}
	if e.IncreaseStep <= 0 {
		return fmt.Errorf("increase step must be positive, got %.2f", e.IncreaseStep)
	}
	if e.MaxIncreasePct < e.MinIncreasePct {
		return fmt.Errorf("max increase %.2f below min increase %.2f", e.MaxIncreasePct, e.MinIncreasePct)
	}
	if e.BaseElasticity <= 0 {
		return fmt.Errorf("base elasticity must be positive, got %.4f", e.BaseElasticity)
	}
	return nil
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first if present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 60*time.Second),

		// Database
		DatabaseDriver: getEnv("DATABASE_DRIVER", "sqlite"),
		DatabaseDSN:    getEnv("DATABASE_DSN", "renewal.db"),

		// NATS
		NATSURL:      getEnv("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "development-secret-change-in-production"),

		// Sweep
		SweepSecret:      getEnv("SWEEP_SECRET", ""),
		SweepInterval:    getDurationEnv("SWEEP_INTERVAL", 24*time.Hour),
		SweepConcurrency: getIntEnv("SWEEP_CONCURRENCY", 4),

		// LLM
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		DefaultLLM:      getEnv("DEFAULT_LLM", "anthropic"),
		LLMTimeout:      getDurationEnv("LLM_TIMEOUT", 30*time.Second),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),

		Engine: EngineConfig{
			WeightPaymentHistory:  getFloatEnv("WEIGHT_PAYMENT_HISTORY", 0.30),
			WeightDaysLateAvg:     getFloatEnv("WEIGHT_DAYS_LATE_AVG", 0.15),
			WeightMaintenanceFreq: getFloatEnv("WEIGHT_MAINTENANCE_FREQ", 0.15),
			WeightLeaseDuration:   getFloatEnv("WEIGHT_LEASE_DURATION", 0.15),
			WeightMarketDelta:     getFloatEnv("WEIGHT_MARKET_DELTA", 0.25),

			BaseElasticity: getFloatEnv("BASE_ELASTICITY", 0.035),

			AvgVacancyMonths:         getFloatEnv("AVG_VACANCY_MONTHS", 1.5),
			TurnoverCostFixed:        getFloatEnv("TURNOVER_COST_FIXED", 1500.0),
			TurnoverLettingFeeFactor: getFloatEnv("TURNOVER_LETTING_FEE_FACTOR", 0.5),

			MinIncreasePct: getFloatEnv("MIN_INCREASE_PCT", 0.0),
			MaxIncreasePct: getFloatEnv("MAX_INCREASE_PCT", 15.0),
			IncreaseStep:   getFloatEnv("INCREASE_STEP_PCT", 1.0),
			TopNScenarios:  getIntEnv("TOP_N_SCENARIOS", 3),

			MinConfidenceToAutoSend: getFloatEnv("MIN_CONFIDENCE_TO_AUTO_SEND", 0.65),

			FirstContactDaysBeforeExpiry: getIntEnv("FIRST_CONTACT_DAYS_BEFORE_EXPIRY", 90),
			InitiateWindowSlackDays:      getIntEnv("INITIATE_WINDOW_SLACK_DAYS", 5),
			FollowUpAfter:                getDurationEnv("FOLLOW_UP_AFTER", 7*24*time.Hour),
			AutoListAfter:                getDurationEnv("AUTO_LIST_AFTER", 14*24*time.Hour),

			ModelVersion: getEnv("SCORING_MODEL_VERSION", "weighted-v1"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
