// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make
// network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "evidence-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// PubMedConfig holds settings for the literature search client.
type PubMedConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIKey is an optional NCBI API key for elevated rate limits.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxResults is the maximum number of IDs requested per search
	// (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// RateInterval is the minimum spacing between E-utilities calls,
	// enforced globally across the client (default 350ms; 110ms when an
	// API key is set).
	RateInterval time.Duration `json:"rate_interval" yaml:"rate_interval"`
}

// AIConfig holds shared settings for components that call a Generative
// AI API.
type AIConfig struct {
	// Model is the AI model identifier.
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for failed API calls
	// (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// ClassifierConfig holds settings for the sentiment classification step.
type ClassifierConfig struct {
	AIConfig `yaml:",inline"`

	// Concurrency bounds the number of in-flight classification calls
	// (default 5).
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// MaxChars truncates title+abstract text sent to the classifier
	// (default 800).
	MaxChars int `json:"max_chars" yaml:"max_chars"`
}

// StrategyConfig holds settings for the multi-strategy search
// orchestration.
type StrategyConfig struct {
	// MaxResults caps the IDs requested per strategy (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// IncludeNegativeSearch enables the negative-evidence query strategy
	// (default true).
	IncludeNegativeSearch bool `json:"include_negative_search" yaml:"include_negative_search"`

	// IncludeSystematicReviews enables the systematic-review query
	// strategy (default true).
	IncludeSystematicReviews bool `json:"include_systematic_reviews" yaml:"include_systematic_reviews"`

	// RecentOnly swaps the high-quality strategy for the recent-window
	// variant, restricting the primary search to the last
	// RecentWindowYears years.
	RecentOnly bool `json:"recent_only" yaml:"recent_only"`

	// RecentWindowYears is the lookback window for the recent query
	// variant (default 5).
	RecentWindowYears int `json:"recent_window_years" yaml:"recent_window_years"`
}

// RankingConfig holds settings for the final balancing step.
type RankingConfig struct {
	// TopPositive is the maximum supporting studies returned (default 5).
	TopPositive int `json:"top_positive" yaml:"top_positive"`

	// TopNegative is the maximum opposing studies returned (default 5).
	TopNegative int `json:"top_negative" yaml:"top_negative"`

	// MinConfidence drops classifications below this confidence before
	// bucketing (default 0.1).
	MinConfidence float64 `json:"min_confidence" yaml:"min_confidence"`
}

// EngineConfig groups all component configurations for the engine.
type EngineConfig struct {
	PubMed     PubMedConfig     `json:"pubmed" yaml:"pubmed"`
	Classifier ClassifierConfig `json:"classifier" yaml:"classifier"`
	Strategy   StrategyConfig   `json:"strategy" yaml:"strategy"`
	Ranking    RankingConfig    `json:"ranking" yaml:"ranking"`
}

// DefaultEngineConfig returns the engine defaults used when a setting is
// absent from the config file.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		PubMed: PubMedConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   30 * time.Second,
				UserAgent: "evidence-engine/0.1",
			},
			MaxResults:   20,
			RateInterval: 350 * time.Millisecond,
		},
		Classifier: ClassifierConfig{
			AIConfig: AIConfig{
				Model:      "claude-sonnet-4-5-20250929",
				MaxRetries: 3,
			},
			Concurrency: 5,
			MaxChars:    800,
		},
		Strategy: StrategyConfig{
			MaxResults:               20,
			IncludeNegativeSearch:    true,
			IncludeSystematicReviews: true,
			RecentWindowYears:        5,
		},
		Ranking: RankingConfig{
			TopPositive:   5,
			TopNegative:   5,
			MinConfidence: 0.1,
		},
	}
}
