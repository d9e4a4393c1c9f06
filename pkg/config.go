package dfsblockcache

// config.go defines the construction-time configuration object and the
// functional options applied on top of it. All fields are immutable once a
// table is constructed.
//
// © 2025 dfsblockcache authors. MIT License.

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/voskan/dfsblockcache/internal/bitutil"
)

const (
	defaultBlockLimit  = 32 << 20 // 32 MiB
	defaultBlockSize   = 64 << 10 // 64 KiB
	defaultConcurrency = 32
	defaultStreamRatio = 0.30
	minBlockSize       = 512
)

// Config bundles every knob recognized by table construction.
type Config struct {
	// BlockLimit is the soft byte budget enforced by clock eviction.
	BlockLimit int64
	// BlockSize is the alignment and read granularity; must be a power of
	// two, minimum 512.
	BlockSize int
	// ConcurrencyLevel hints the number of stripes; rounded up to a power
	// of two.
	ConcurrencyLevel int
	// StreamRatio bounds the fraction of BlockLimit a single
	// copy-through-cache pack may occupy; clamped to [0,1].
	StreamRatio float64
	// PartitionMap routes ext tags to partition ids for
	// PackExtPartitionedTable; nil means "single table, no partitioning".
	PartitionMap map[ExtTag]int
	// PartitionWeights gives each partition id its share of BlockLimit,
	// relative to the sum of all weights. Defaults to equal weights.
	PartitionWeights map[int]float64

	registry *prometheus.Registry
	logger   *zap.Logger
}

// Option mutates a Config at construction time.
type Option func(*Config)

func defaultConfig() *Config {
	return &Config{
		BlockLimit:       defaultBlockLimit,
		BlockSize:        defaultBlockSize,
		ConcurrencyLevel: defaultConcurrency,
		StreamRatio:      defaultStreamRatio,
		logger:           zap.NewNop(),
	}
}

// WithBlockLimit overrides the soft byte budget.
func WithBlockLimit(n int64) Option {
	return func(c *Config) { c.BlockLimit = n }
}

// WithBlockSize overrides the block alignment/read granularity. Must be a
// power of two >= 512; validated in applyOptions.
func WithBlockSize(n int) Option {
	return func(c *Config) { c.BlockSize = n }
}

// WithConcurrencyLevel hints the stripe count; rounded up to a power of two.
func WithConcurrencyLevel(n int) Option {
	return func(c *Config) { c.ConcurrencyLevel = n }
}

// WithStreamRatio overrides the max fraction of BlockLimit a single
// copy-through-cache pack may occupy. Clamped to [0,1].
func WithStreamRatio(r float64) Option {
	return func(c *Config) { c.StreamRatio = r }
}

// WithPartitionMap configures PackExtPartitionedTable routing: ext tag to
// partition id, plus optional relative weights per partition id.
func WithPartitionMap(m map[ExtTag]int, weights map[int]float64) Option {
	return func(c *Config) {
		c.PartitionMap = m
		c.PartitionWeights = weights
	}
}

// WithMetrics enables Prometheus metrics collection. Passing nil disables
// metrics (default).
func WithMetrics(reg *prometheus.Registry) Option {
	return func(c *Config) { c.registry = reg }
}

// WithLogger plugs an external zap.Logger. The cache never logs on the hot
// path; only slow events (clock sweeps that run out of budget, failed block
// loads such as channel errors and short reads) are emitted. Configuration
// errors are returned from construction and not logged.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.logger = l
		}
	}
}

// applyOptions applies opts on top of defaultConfig and validates the
// result, returning ErrBudgetConfig (wrapped with detail) on invalid input.
func applyOptions(opts []Option) (*Config, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.BlockLimit <= 0 {
		return nil, fmt.Errorf("%w: block-limit must be > 0", ErrBudgetConfig)
	}
	if cfg.BlockSize < minBlockSize || !bitutil.IsPowerOfTwo(uint64(cfg.BlockSize)) {
		return nil, fmt.Errorf("%w: block-size must be a power of two >= %d, got %d", ErrBudgetConfig, minBlockSize, cfg.BlockSize)
	}
	if cfg.ConcurrencyLevel <= 0 {
		return nil, fmt.Errorf("%w: concurrency-level must be > 0", ErrBudgetConfig)
	}
	cfg.ConcurrencyLevel = bitutil.NextPow2(cfg.ConcurrencyLevel)

	if cfg.StreamRatio < 0 {
		cfg.StreamRatio = 0
	}
	if cfg.StreamRatio > 1 {
		cfg.StreamRatio = 1
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	return cfg, nil
}

// ShouldCopyThroughCache is the caller-side gate deciding whether a whole
// pack should be streamed through the cache rather than read directly: the
// table itself never rejects a Put of an oversize block, so callers that
// care about StreamRatio consult this predicate before choosing to cache a
// stream at all.
func (c *Config) ShouldCopyThroughCache(length int64) bool {
	return length <= int64(float64(c.BlockLimit)*c.StreamRatio)
}
