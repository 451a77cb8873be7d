package ethcall

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration defaults.
const (
	DefaultRequiredConfirmations = 3
	DefaultPollingInterval       = time.Second
	DefaultTimeout               = 750 * time.Second
	DefaultBlockTimeout          = 50
	DefaultRetryCount            = 3
	DefaultRetryInitialBackoff   = 250 * time.Millisecond
	DefaultRetryMaxBackoff       = 5 * time.Second
	DefaultDisplacementRetries   = 1
)

// TrackingStrategy selects how the confirmation tracker learns about new blocks.
type TrackingStrategy uint8

const (
	// PollingStrategy issues receipt and block-number requests on a fixed interval.
	PollingStrategy TrackingStrategy = iota

	// SubscriptionStrategy listens to newHeads notifications and re-checks on every head.
	// It falls back to polling when the transport can't subscribe.
	SubscriptionStrategy
)

func (s TrackingStrategy) String() string {
	if s == SubscriptionStrategy {
		return "subscription"
	}
	return "polling"
}

// MarshalText implements encoding.TextMarshaler.
func (s TrackingStrategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *TrackingStrategy) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "polling", "poll":
		*s = PollingStrategy
	case "subscription", "subscribe", "ws":
		*s = SubscriptionStrategy
	default:
		return fmt.Errorf("ethcall: unknown tracking strategy %q", text)
	}
	return nil
}

// Config controls confirmation tracking.
type Config struct {
	// RequiredConfirmations is the number of blocks on top of the receipt's
	// block before a transaction counts as confirmed. Zero resolves on the receipt.
	RequiredConfirmations uint64
	// PollingInterval is the delay between receipt / block-number polls.
	PollingInterval time.Duration
	// Timeout bounds the wait for a receipt. Zero disables it.
	Timeout time.Duration
	// BlockTimeout bounds the wait for a receipt in blocks. Zero disables it.
	BlockTimeout uint64
	// Strategy selects polling or head subscription.
	Strategy TrackingStrategy
	// RetryCount is the number of retries of a failed polling request before
	// the tracker gives up with ErrProviderError. Zero disables retries and
	// negative values use DefaultRetryCount.
	RetryCount int
	// RetryInitialBackoff and RetryMaxBackoff bound the exponential backoff
	// between retries.
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	// DisplacementRetries is how many times a displaced receipt is searched
	// for again before the tracker fails with ErrDisplaced.
	DisplacementRetries int
}

// DefaultConfig returns the default tracking configuration.
func DefaultConfig() Config {
	return Config{
		RequiredConfirmations: DefaultRequiredConfirmations,
		PollingInterval:       DefaultPollingInterval,
		Timeout:               DefaultTimeout,
		BlockTimeout:          DefaultBlockTimeout,
		Strategy:              PollingStrategy,
		RetryCount:            DefaultRetryCount,
		RetryInitialBackoff:   DefaultRetryInitialBackoff,
		RetryMaxBackoff:       DefaultRetryMaxBackoff,
		DisplacementRetries:   DefaultDisplacementRetries,
	}
}

func (c Config) normalize() Config {
	if c.PollingInterval <= 0 {
		c.PollingInterval = DefaultPollingInterval
	}
	if c.RetryCount < 0 {
		c.RetryCount = DefaultRetryCount
	}
	if c.RetryInitialBackoff <= 0 {
		c.RetryInitialBackoff = DefaultRetryInitialBackoff
	}
	if c.RetryMaxBackoff < c.RetryInitialBackoff {
		c.RetryMaxBackoff = c.RetryInitialBackoff
	}
	if c.DisplacementRetries < 0 {
		c.DisplacementRetries = 0
	}
	return c
}

// FileConfig is the YAML form of Config. Absent keys keep their defaults,
// except timeoutMs: leaving it out disables the wall-clock timeout.
type FileConfig struct {
	RequiredConfirmations *uint64           `yaml:"requiredConfirmations"`
	PollingIntervalMs     *int64            `yaml:"pollingIntervalMs"`
	TimeoutMs             *int64            `yaml:"timeoutMs"`
	TimeoutBlocks         *uint64           `yaml:"timeoutBlocks"`
	TrackingStrategy      *TrackingStrategy `yaml:"trackingStrategy"`
	RetryCount            *int              `yaml:"retryCount"`
	DisplacementRetries   *int              `yaml:"displacementRetries"`
}

// Config overlays the file settings onto DefaultConfig and validates them.
func (f FileConfig) Config() (Config, error) {
	cfg := DefaultConfig()
	if f.RequiredConfirmations != nil {
		cfg.RequiredConfirmations = *f.RequiredConfirmations
	}
	if f.PollingIntervalMs != nil {
		if *f.PollingIntervalMs <= 0 {
			return Config{}, errors.New("ethcall: pollingIntervalMs must be positive")
		}
		cfg.PollingInterval = time.Duration(*f.PollingIntervalMs) * time.Millisecond
	}
	if f.TimeoutMs != nil {
		if *f.TimeoutMs <= 0 {
			return Config{}, errors.New("ethcall: timeoutMs must be positive, omit it to disable the timeout")
		}
		cfg.Timeout = time.Duration(*f.TimeoutMs) * time.Millisecond
	} else {
		cfg.Timeout = 0
	}
	if f.TimeoutBlocks != nil {
		cfg.BlockTimeout = *f.TimeoutBlocks
	}
	if f.TrackingStrategy != nil {
		cfg.Strategy = *f.TrackingStrategy
	}
	if f.RetryCount != nil {
		if *f.RetryCount < 0 {
			return Config{}, errors.New("ethcall: retryCount must not be negative")
		}
		cfg.RetryCount = *f.RetryCount
	}
	if f.DisplacementRetries != nil {
		if *f.DisplacementRetries < 0 {
			return Config{}, errors.New("ethcall: displacementRetries must not be negative")
		}
		cfg.DisplacementRetries = *f.DisplacementRetries
	}
	return cfg.normalize(), nil
}

// ParseConfig parses a YAML tracking configuration.
func ParseConfig(data []byte) (Config, error) {
	var f FileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Config{}, fmt.Errorf("ethcall: parse config: %w", err)
	}
	return f.Config()
}

// LoadConfig reads and parses a YAML tracking configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("ethcall: read config: %w", err)
	}
	return ParseConfig(data)
}
