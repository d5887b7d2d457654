// Package config defines service configuration and its defaults.
//
// Values are layered by Load: defaults from New, then an optional YAML file,
// then COMPINTEL_ prefixed environment variables.
package config

import "time"

// Capability modes accepted by the *_mode keys.
const (
	ModeAuto     = "auto"
	ModeRich     = "rich"
	ModeFallback = "fallback"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// RunQueueSize bounds the number of runs waiting for a worker.
	RunQueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of run workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize bounds the remembered request ids.
	DedupeSize int `koanf:"dedupe_size"`
	// RunHistory bounds the completed runs kept in memory.
	RunHistory int `koanf:"run_history"`

	// Default run request.
	Competitors           []string `koanf:"competitors"`
	Regions               []string `koanf:"regions"`
	SearchTimeframeDays   int      `koanf:"search_timeframe_days"`
	MaxArticlesPerCompany int      `koanf:"max_articles_per_company"`
	RecommendationFocus   string   `koanf:"recommendation_focus"`

	// Our own company profile, used as analysis context.
	CompanySize           string   `koanf:"company_size"`
	CompanyMarketPosition string   `koanf:"company_market_position"`
	CompanyStrengths      []string `koanf:"company_strengths"`
	CompanyResources      string   `koanf:"company_resources"`

	// Capability modes: auto, rich or fallback.
	RetrievalMode   string `koanf:"retrieval_mode"`
	ClassifierMode  string `koanf:"classifier_mode"`
	ScorerMode      string `koanf:"scorer_mode"`
	AnalystMode     string `koanf:"analyst_mode"`
	RecommenderMode string `koanf:"recommender_mode"`
	AggregatorMode  string `koanf:"aggregator_mode"`

	// OpenAI compatible chat completion endpoint.
	LLMAPIKey    string `koanf:"llm_api_key"`
	LLMModel     string `koanf:"llm_model"`
	LLMEndpoint  string `koanf:"llm_endpoint"`
	LLMTimeoutMS int    `koanf:"llm_timeout_ms"`
	LLMRetryMax  int    `koanf:"llm_retry_max"`

	// News search endpoint.
	NewsAPIKey      string `koanf:"news_api_key"`
	NewsEndpoint    string `koanf:"news_endpoint"`
	NewsTimeoutMS   int    `koanf:"news_timeout_ms"`
	NewsConcurrency int    `koanf:"news_concurrency"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		RunQueueSize:          64,
		WorkerCount:           1,
		DedupeSize:            10_000,
		RunHistory:            50,
		Competitors:           []string{"Samsung", "Apple", "Xiaomi"},
		Regions:               []string{"US", "EU", "KSA", "UAE", "IN"},
		SearchTimeframeDays:   7,
		MaxArticlesPerCompany: 15,
		CompanySize:           "Medium",
		CompanyMarketPosition: "Value midrange challenger",
		CompanyStrengths:      []string{"camera_quality", "battery_life", "after_sales_service"},
		CompanyResources:      "Medium",
		RetrievalMode:         ModeAuto,
		ClassifierMode:        ModeAuto,
		ScorerMode:            ModeAuto,
		AnalystMode:           ModeAuto,
		RecommenderMode:       ModeAuto,
		AggregatorMode:        ModeAuto,
		LLMModel:              "gpt-4o-mini",
		LLMEndpoint:           "https://api.openai.com/v1/chat/completions",
		LLMTimeoutMS:          30_000,
		LLMRetryMax:           2,
		NewsEndpoint:          "https://newsapi.org/v2/everything",
		NewsTimeoutMS:         15_000,
		NewsConcurrency:       4,
	}
}

// LLMTimeout returns the chat completion timeout.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutMS) * time.Millisecond
}

// NewsTimeout returns the news search timeout.
func (c *Config) NewsTimeout() time.Duration {
	return time.Duration(c.NewsTimeoutMS) * time.Millisecond
}
