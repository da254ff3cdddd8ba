package provider

import (
	"context"
	"log/slog"
	"time"

	"ibp/pkg/domain"
)

// loggingAdapter wraps an Adapter with query/result logging so the
// adapters themselves stay free of cross-cutting concerns.
type loggingAdapter struct {
	inner  Adapter
	logger *slog.Logger
}

// WithLogging decorates an adapter with structured query logging. A nil
// logger returns the adapter unchanged.
func WithLogging(inner Adapter, logger *slog.Logger) Adapter {
	if logger == nil {
		return inner
	}
	return &loggingAdapter{inner: inner, logger: logger.With("jurisdiction", inner.Jurisdiction().String())}
}

func (a *loggingAdapter) Jurisdiction() domain.Jurisdiction {
	return a.inner.Jurisdiction()
}

func (a *loggingAdapter) FormatID(id int) (string, error) {
	return a.inner.FormatID(id)
}

func (a *loggingAdapter) QueryByID(ctx context.Context, id int, timeout time.Duration) ([]Record, error) {
	a.logger.DebugContext(ctx, "querying provider by inmate id", "inmate_id", id)

	matches, err := a.inner.QueryByID(ctx, id, timeout)
	if err != nil {
		a.logger.ErrorContext(ctx, "provider query failed", "error", err)
		return nil, err
	}

	switch len(matches) {
	case 0:
		a.logger.DebugContext(ctx, "no results returned")
	case 1:
		a.logger.DebugContext(ctx, "a single result was returned")
	default:
		// An id identifies one individual; more than one match is a
		// provider-side anomaly worth surfacing.
		a.logger.ErrorContext(ctx, "multiple results were returned for an id query", "count", len(matches))
	}
	return matches, nil
}

func (a *loggingAdapter) QueryByName(ctx context.Context, first, last string, timeout time.Duration) ([]Record, error) {
	a.logger.DebugContext(ctx, "querying provider by name", "first_name", first, "last_name", last)

	matches, err := a.inner.QueryByName(ctx, first, last, timeout)
	if err != nil {
		a.logger.ErrorContext(ctx, "provider query failed", "error", err)
		return nil, err
	}

	if len(matches) == 0 {
		a.logger.DebugContext(ctx, "no results returned")
		return matches, nil
	}
	for _, m := range matches {
		a.logger.DebugContext(ctx, "match",
			"last_name", m.LastName,
			"first_name", m.FirstName,
			"inmate_id", m.ID,
		)
	}
	a.logger.DebugContext(ctx, "results returned", "count", len(matches))
	return matches, nil
}
