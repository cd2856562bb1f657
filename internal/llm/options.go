package llm

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/promptwright/internal/config"
)

// Options configures a single backend.
type Options struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerMinute float64
	Burst             int
	MaxTokens         int
	MaxRetries        int
	BaseBackoff       time.Duration
}

// OptionsFromConfig converts provider settings from the config file.
func OptionsFromConfig(pc config.ProviderConfig) Options {
	return Options{
		BaseURL:           pc.BaseURL,
		APIKey:            pc.APIKey.Value(),
		Timeout:           pc.Timeout.Duration(),
		RequestsPerMinute: pc.RequestsPerMinute,
		Burst:             pc.Burst,
		MaxTokens:         pc.MaxTokens,
	}
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = defaultMaxTokens
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultMaxRetries
	}
	if o.BaseBackoff <= 0 {
		o.BaseBackoff = defaultBaseBackoff
	}
	if o.Burst <= 0 {
		o.Burst = 1
	}
	return o
}

// limiter returns an unlimited limiter when no rate is configured.
func (o Options) limiter() *rate.Limiter {
	if o.RequestsPerMinute <= 0 {
		return rate.NewLimiter(rate.Inf, o.Burst)
	}
	return rate.NewLimiter(rate.Limit(o.RequestsPerMinute/60.0), o.Burst)
}
