package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseConfig  DatabaseConfig  `json:"database"`
	RedisConfig     RedisConfig     `json:"redis"`
	ProvidersConfig ProvidersConfig `json:"providers"`
	ScannerConfig   ScannerConfig   `json:"scanner"`
	ConsensusConfig ConsensusConfig `json:"consensus"`
	LearnerConfig   LearnerConfig   `json:"learner"`
	MetricsConfig   MetricsConfig   `json:"metrics"`
	LoggingConfig   LoggingConfig   `json:"logging"`
}

type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// ProvidersConfig holds per-vendor settings for the acquisition chains.
// Key-less providers work out of the box; a provider whose key is unset
// reports "not configured" and its chain advances past it.
type ProvidersConfig struct {
	CoinGeckoAPIKey   string        `json:"coingecko_api_key"`
	CryptoQuantAPIKey string        `json:"cryptoquant_api_key"`
	BinanceSpotURL    string        `json:"binance_spot_url"`
	BinanceFuturesURL string        `json:"binance_futures_url"`
	RequestPace       time.Duration `json:"request_pace"` // delay between paginated calls to one vendor
	PriceFeedEnabled  bool          `json:"price_feed_enabled"`
}

type ScannerConfig struct {
	Enabled         bool          `json:"enabled"`
	Interval        time.Duration `json:"interval"`
	CoinLimit       int           `json:"coin_limit"`
	Workers         int           `json:"workers"`
	WallClockBudget time.Duration `json:"wall_clock_budget"`
	Timeframe       string        `json:"timeframe"`
	CandleLimit     int           `json:"candle_limit"`
	MinPrice        float64       `json:"min_price"`
	MaxPrice        float64       `json:"max_price"`
}

// ConsensusConfig tunes the aggregation filters. The confidence floor set
// here is only the starting point; the learner retunes it at runtime.
type ConsensusConfig struct {
	ConfidenceFloor  float64 `json:"confidence_floor"`
	MinParticipation int     `json:"min_participation"`
}

type LearnerConfig struct {
	Enabled               bool   `json:"enabled"`
	EvaluateOutcomes      string `json:"evaluate_outcomes_cron"`
	UpdateWeights         string `json:"update_weights_cron"`
	CheckProbation        string `json:"check_probation_cron"`
	CalculateCorrelations string `json:"calculate_correlations_cron"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Address string `json:"address"` // e.g. ":9090"
}

type LoggingConfig struct {
	Level       string `json:"level"`        // DEBUG, INFO, WARN, ERROR
	Output      string `json:"output"`       // stdout, stderr, or file path
	JSONFormat  bool   `json:"json_format"`  // Output as JSON
	IncludeFile bool   `json:"include_file"` // Include file and line number
}

func Load() (*Config, error) {
	// First try to load base config from file
	cfg, err := loadFromFile("config.json")
	if err != nil {
		// If no config file, start with empty config
		cfg = &Config{}
	}

	// Apply environment variable overrides (these take precedence)
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	// Database config
	cfg.DatabaseConfig.Host = getEnvOrDefault("DB_HOST", defaultStr(cfg.DatabaseConfig.Host, "localhost"))
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DB_PORT", defaultInt(cfg.DatabaseConfig.Port, 5432))
	cfg.DatabaseConfig.User = getEnvOrDefault("DB_USER", defaultStr(cfg.DatabaseConfig.User, "postgres"))
	cfg.DatabaseConfig.Password = getEnvOrDefault("DB_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Database = getEnvOrDefault("DB_NAME", defaultStr(cfg.DatabaseConfig.Database, "consensus"))
	cfg.DatabaseConfig.SSLMode = getEnvOrDefault("DB_SSL_MODE", defaultStr(cfg.DatabaseConfig.SSLMode, "disable"))

	// Redis config
	cfg.RedisConfig.Enabled = getEnvOrDefault("REDIS_ENABLED", boolStr(cfg.RedisConfig.Enabled)) == "true"
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", defaultStr(cfg.RedisConfig.Address, "localhost:6379"))
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)
	cfg.RedisConfig.PoolSize = getEnvIntOrDefault("REDIS_POOL_SIZE", defaultInt(cfg.RedisConfig.PoolSize, 10))

	// Provider config
	cfg.ProvidersConfig.CoinGeckoAPIKey = getEnvOrDefault("COINGECKO_API_KEY", cfg.ProvidersConfig.CoinGeckoAPIKey)
	cfg.ProvidersConfig.CryptoQuantAPIKey = getEnvOrDefault("CRYPTOQUANT_API_KEY", cfg.ProvidersConfig.CryptoQuantAPIKey)
	cfg.ProvidersConfig.BinanceSpotURL = getEnvOrDefault("BINANCE_SPOT_URL", defaultStr(cfg.ProvidersConfig.BinanceSpotURL, "https://api.binance.com"))
	cfg.ProvidersConfig.BinanceFuturesURL = getEnvOrDefault("BINANCE_FUTURES_URL", defaultStr(cfg.ProvidersConfig.BinanceFuturesURL, "https://fapi.binance.com"))
	cfg.ProvidersConfig.RequestPace = getEnvDurationOrDefault("PROVIDER_REQUEST_PACE", defaultDur(cfg.ProvidersConfig.RequestPace, 250*time.Millisecond))
	cfg.ProvidersConfig.PriceFeedEnabled = getEnvOrDefault("PRICE_FEED_ENABLED", "true") == "true"

	// Scanner config
	cfg.ScannerConfig.Enabled = getEnvOrDefault("SCANNER_ENABLED", "true") == "true"
	cfg.ScannerConfig.Interval = getEnvDurationOrDefault("SCAN_INTERVAL", defaultDur(cfg.ScannerConfig.Interval, time.Hour))
	cfg.ScannerConfig.CoinLimit = getEnvIntOrDefault("SCAN_COIN_LIMIT", defaultInt(cfg.ScannerConfig.CoinLimit, 50))
	cfg.ScannerConfig.Workers = getEnvIntOrDefault("SCAN_WORKERS", defaultInt(cfg.ScannerConfig.Workers, 8))
	cfg.ScannerConfig.WallClockBudget = getEnvDurationOrDefault("SCAN_WALL_CLOCK_BUDGET", defaultDur(cfg.ScannerConfig.WallClockBudget, 10*time.Minute))
	cfg.ScannerConfig.Timeframe = getEnvOrDefault("SCAN_TIMEFRAME", defaultStr(cfg.ScannerConfig.Timeframe, "1h"))
	cfg.ScannerConfig.CandleLimit = getEnvIntOrDefault("SCAN_CANDLE_LIMIT", defaultInt(cfg.ScannerConfig.CandleLimit, 250))
	cfg.ScannerConfig.MinPrice = getEnvFloatOrDefault("SCAN_MIN_PRICE", cfg.ScannerConfig.MinPrice)
	cfg.ScannerConfig.MaxPrice = getEnvFloatOrDefault("SCAN_MAX_PRICE", cfg.ScannerConfig.MaxPrice)

	// Consensus config
	cfg.ConsensusConfig.ConfidenceFloor = getEnvFloatOrDefault("CONSENSUS_CONFIDENCE_FLOOR", defaultFloat(cfg.ConsensusConfig.ConfidenceFloor, 0.6))
	cfg.ConsensusConfig.MinParticipation = getEnvIntOrDefault("CONSENSUS_MIN_PARTICIPATION", defaultInt(cfg.ConsensusConfig.MinParticipation, 3))

	// Learner config
	cfg.LearnerConfig.Enabled = getEnvOrDefault("LEARNER_ENABLED", "true") == "true"
	cfg.LearnerConfig.EvaluateOutcomes = getEnvOrDefault("LEARNER_EVALUATE_OUTCOMES_CRON", defaultStr(cfg.LearnerConfig.EvaluateOutcomes, "5 * * * *"))
	cfg.LearnerConfig.UpdateWeights = getEnvOrDefault("LEARNER_UPDATE_WEIGHTS_CRON", defaultStr(cfg.LearnerConfig.UpdateWeights, "20 */6 * * *"))
	cfg.LearnerConfig.CheckProbation = getEnvOrDefault("LEARNER_CHECK_PROBATION_CRON", defaultStr(cfg.LearnerConfig.CheckProbation, "35 2 * * *"))
	cfg.LearnerConfig.CalculateCorrelations = getEnvOrDefault("LEARNER_CORRELATIONS_CRON", defaultStr(cfg.LearnerConfig.CalculateCorrelations, "50 3 * * *"))

	// Metrics config
	cfg.MetricsConfig.Enabled = getEnvOrDefault("METRICS_ENABLED", "true") == "true"
	cfg.MetricsConfig.Address = getEnvOrDefault("METRICS_ADDRESS", defaultStr(cfg.MetricsConfig.Address, ":9090"))

	// Logging config
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", defaultStr(cfg.LoggingConfig.Level, "INFO"))
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", defaultStr(cfg.LoggingConfig.Output, "stdout"))
	cfg.LoggingConfig.JSONFormat = getEnvOrDefault("LOG_JSON", "true") == "true"
	cfg.LoggingConfig.IncludeFile = getEnvOrDefault("LOG_INCLUDE_FILE", "false") == "true"
}

// Validate rejects configurations that cannot possibly run. Provider keys
// are deliberately not required: the fallback chains carry key-less
// vendors for every data kind.
func (c *Config) Validate() error {
	if c.ScannerConfig.CoinLimit <= 0 {
		return fmt.Errorf("scanner coin_limit must be positive, got %d", c.ScannerConfig.CoinLimit)
	}
	if c.ScannerConfig.Workers <= 0 {
		return fmt.Errorf("scanner workers must be positive, got %d", c.ScannerConfig.Workers)
	}
	if c.ScannerConfig.CandleLimit < 2 {
		return fmt.Errorf("scanner candle_limit must be at least 2, got %d", c.ScannerConfig.CandleLimit)
	}
	if f := c.ConsensusConfig.ConfidenceFloor; f < 0 || f > 1 {
		return fmt.Errorf("consensus confidence_floor must be within [0,1], got %v", f)
	}
	if c.ConsensusConfig.MinParticipation < 1 {
		return fmt.Errorf("consensus min_participation must be at least 1, got %d", c.ConsensusConfig.MinParticipation)
	}
	if c.DatabaseConfig.Host == "" || c.DatabaseConfig.Database == "" {
		return fmt.Errorf("database host and name are required")
	}
	return nil
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func defaultStr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func defaultInt(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}

func defaultFloat(v, fallback float64) float64 {
	if v == 0 {
		return fallback
	}
	return v
}

func defaultDur(v, fallback time.Duration) time.Duration {
	if v == 0 {
		return fallback
	}
	return v
}

func boolStr(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
