package enrich

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"
)

// Retry constants.
const (
	// DefaultMaxAttempts is the total number of live attempts per lookup.
	DefaultMaxAttempts = 3

	// defaultBackoffBase is the base duration for exponential backoff
	// between live attempts. Sequence with the default multiplier:
	// 0s (immediate), 250ms, 1s.
	defaultBackoffBase = 250 * time.Millisecond

	// defaultBackoffMultiplier is the exponential growth factor.
	defaultBackoffMultiplier = 4

	// defaultBackoffCeiling caps any single wait, including server-provided
	// Retry-After hints. The gateway never honors a hint past this ceiling;
	// it degrades to the cached tier instead of stalling the analysis.
	defaultBackoffCeiling = 5 * time.Second
)

// GatewayConfig holds the knobs for a Gateway.
type GatewayConfig struct {
	// MaxAttempts is the live attempt budget per lookup. Zero means
	// DefaultMaxAttempts.
	MaxAttempts int

	// BackoffBase, BackoffMultiplier, and BackoffCeiling shape the wait
	// between live attempts. Zero values take the package defaults.
	BackoffBase       time.Duration
	BackoffMultiplier int
	BackoffCeiling    time.Duration
}

// withDefaults fills zero fields with package defaults.
func (cfg GatewayConfig) withDefaults() GatewayConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}

	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = defaultBackoffBase
	}

	if cfg.BackoffMultiplier <= 0 {
		cfg.BackoffMultiplier = defaultBackoffMultiplier
	}

	if cfg.BackoffCeiling <= 0 {
		cfg.BackoffCeiling = defaultBackoffCeiling
	}

	return cfg
}

// Gateway performs tiered enrichment lookups: live service first, bundled
// dataset second, explicit fallback record last. Lookup never returns an
// error; the record's Source tag carries the degradation state.
//
// The gateway is safe for concurrent use: the dataset is read-only after
// construction and the client carries its own connection pool.
type Gateway struct {
	client  Client
	dataset *Dataset
	config  GatewayConfig
	logger  *slog.Logger

	// Metrics, when set, receives one observation per lookup with the tier
	// that answered.
	Metrics MetricsRecorder
}

// MetricsRecorder counts enrichment lookups by source tier.
type MetricsRecorder interface {
	RecordEnrichment(ctx context.Context, source string)
}

// NewGateway creates a gateway. client may be nil when the live service is
// not configured; lookups then start at the cached tier. dataset may be nil
// when no local data is bundled; lookups then degrade straight to fallback.
func NewGateway(client Client, dataset *Dataset, cfg GatewayConfig, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}

	return &Gateway{
		client:  client,
		dataset: dataset,
		config:  cfg.withDefaults(),
		logger:  logger,
	}
}

// Lookup resolves key through the tier chain. The context bounds the live
// tier only; once the live budget is spent (or ctx expires) the local tiers
// answer without I/O.
func (gw *Gateway) Lookup(ctx context.Context, key string) Record {
	rec := gw.lookup(ctx, key)

	if gw.Metrics != nil {
		gw.Metrics.RecordEnrichment(ctx, string(rec.Source))
	}

	return rec
}

// lookup walks the tier chain without recording metrics.
func (gw *Gateway) lookup(ctx context.Context, key string) Record {
	if gw.client != nil {
		rec, found := gw.lookupLive(ctx, key)
		if found {
			return rec
		}
	}

	if gw.dataset != nil {
		rec, ok := gw.dataset.Lookup(key)
		if ok {
			return rec
		}
	}

	return Fallback(key)
}

// lookupLive runs the live attempt loop. Returns found=false when the
// budget is exhausted, the failure is definitive, or the context expired.
func (gw *Gateway) lookupLive(ctx context.Context, key string) (Record, bool) {
	// hint carries a server-provided Retry-After into the next wait, where
	// it replaces the computed backoff. Exactly one wait precedes a retry.
	var hint time.Duration

	for attempt := 0; attempt < gw.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			waited := gw.waitBackoff(ctx, attempt, hint)
			if !waited {
				return Record{}, false
			}

			hint = 0
		}

		rec, err := gw.client.Fetch(ctx, key)
		if err == nil {
			return rec, true
		}

		if errors.Is(err, ErrAdvisoryNotFound) {
			// Definitive answer; the local tiers may still know the key.
			return Record{}, false
		}

		var rateLimited *RateLimitedError
		if errors.As(err, &rateLimited) {
			gw.logger.Warn("advisory service rate limited",
				"key", key, "attempt", attempt+1, "retry_after", rateLimited.RetryAfter)

			hint = rateLimited.RetryAfter

			continue
		}

		var transient *TransientError
		if errors.As(err, &transient) {
			gw.logger.Debug("transient advisory failure",
				"key", key, "attempt", attempt+1, "error", transient.Err)

			continue
		}

		// Non-retryable failure class (malformed response, cancellation).
		gw.logger.Warn("advisory lookup failed", "key", key, "error", err)

		return Record{}, false
	}

	gw.logger.Info("advisory retry budget exhausted, degrading to local tiers", "key", key)

	return Record{}, false
}

// waitBackoff sleeps for the attempt's backoff duration, preferring a
// server-provided hint when present. Both are clamped to the ceiling.
// Returns false when the context expired during the wait.
func (gw *Gateway) waitBackoff(ctx context.Context, attempt int, hint time.Duration) bool {
	wait := gw.backoffFor(attempt)
	if hint > 0 {
		wait = hint
	}

	if wait > gw.config.BackoffCeiling {
		wait = gw.config.BackoffCeiling
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// backoffFor computes the exponential backoff with jitter for the given
// attempt (1-based for waits). Jitter spreads concurrent lookups so a
// recovering service is not hit by a synchronized burst.
func (gw *Gateway) backoffFor(attempt int) time.Duration {
	wait := gw.config.BackoffBase
	for i := 1; i < attempt; i++ {
		wait *= time.Duration(gw.config.BackoffMultiplier)
	}

	// Up to 25% jitter.
	jitter := time.Duration(rand.Int63n(int64(wait)/4 + 1))

	return wait + jitter
}
