package reconcile

import (
	"log/slog"
	"time"
)

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithGuard sets the single-writer guard held for the whole pass.
func WithGuard(g Guard) Option {
	return func(r *Reconciler) {
		r.guard = g
	}
}

// WithExtractTimeout bounds the extraction call. Zero means no bound.
func WithExtractTimeout(d time.Duration) Option {
	return func(r *Reconciler) {
		r.extractTimeout = d
	}
}

// WithSkipOnExtractionFailure controls whether a failed extraction skips the
// pass (true, default) or reconciles against zero candidates.
func WithSkipOnExtractionFailure(skip bool) Option {
	return func(r *Reconciler) {
		r.skipOnFailure = skip
	}
}

// WithDryRun computes and applies commands in memory without saving.
func WithDryRun(dryRun bool) Option {
	return func(r *Reconciler) {
		r.dryRun = dryRun
	}
}

// WithRunID overrides run id generation. Used by tests.
func WithRunID(fn func() string) Option {
	return func(r *Reconciler) {
		r.newRunID = fn
	}
}
