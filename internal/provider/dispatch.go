package provider

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	providermetrics "ibp/internal/provider/metrics"
	"ibp/pkg/domain"
)

// Dispatcher fans one logical query out to every configured adapter
// concurrently and aggregates records and per-provider failures. One
// provider failing or timing out never aborts the others; completion order
// across providers is unspecified.
type Dispatcher struct {
	adapters map[domain.Jurisdiction]Adapter
	order    []domain.Jurisdiction
	timeout  time.Duration
	metrics  *providermetrics.Metrics
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithMetrics attaches provider query metrics.
func WithMetrics(m *providermetrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// NewDispatcher builds a Dispatcher over the given adapters. The default
// timeout bounds each adapter call unless a query overrides it.
func NewDispatcher(adapters []Adapter, defaultTimeout time.Duration, opts ...DispatcherOption) (*Dispatcher, error) {
	if len(adapters) == 0 {
		return nil, fmt.Errorf("at least one provider adapter is required")
	}

	d := &Dispatcher{
		adapters: make(map[domain.Jurisdiction]Adapter, len(adapters)),
		timeout:  defaultTimeout,
	}
	for _, a := range adapters {
		j := a.Jurisdiction()
		if _, dup := d.adapters[j]; dup {
			return nil, fmt.Errorf("duplicate adapter for jurisdiction %s", j)
		}
		d.adapters[j] = a
		d.order = append(d.order, j)
	}

	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// QueryOption restricts or tunes a single dispatch call.
type QueryOption func(*querySettings)

type querySettings struct {
	jurisdictions []domain.Jurisdiction
	timeout       time.Duration
}

// WithJurisdictions restricts the query to the named jurisdictions.
func WithJurisdictions(js ...domain.Jurisdiction) QueryOption {
	return func(s *querySettings) {
		s.jurisdictions = js
	}
}

// WithTimeout overrides the dispatcher's default per-adapter timeout.
func WithTimeout(timeout time.Duration) QueryOption {
	return func(s *querySettings) {
		s.timeout = timeout
	}
}

// QueryByInmateID queries every requested jurisdiction by inmate number.
// Records and per-provider errors accumulate independently: every
// requested jurisdiction lands in exactly one of the two. The returned
// error is non-nil only when the call itself is invalid (an unrecognized
// jurisdiction), in which case no request was made.
func (d *Dispatcher) QueryByInmateID(ctx context.Context, id int, opts ...QueryOption) ([]Record, []error, error) {
	return d.dispatch(ctx, opts, func(ctx context.Context, a Adapter, timeout time.Duration) ([]Record, error) {
		return a.QueryByID(ctx, id, timeout)
	})
}

// QueryByName queries every requested jurisdiction by name.
func (d *Dispatcher) QueryByName(ctx context.Context, first, last string, opts ...QueryOption) ([]Record, []error, error) {
	return d.dispatch(ctx, opts, func(ctx context.Context, a Adapter, timeout time.Duration) ([]Record, error) {
		return a.QueryByName(ctx, first, last, timeout)
	})
}

func (d *Dispatcher) dispatch(
	ctx context.Context,
	opts []QueryOption,
	query func(ctx context.Context, a Adapter, timeout time.Duration) ([]Record, error),
) ([]Record, []error, error) {
	settings := querySettings{timeout: d.timeout}
	for _, opt := range opts {
		opt(&settings)
	}

	jurisdictions := dedupe(settings.jurisdictions)
	if jurisdictions == nil {
		jurisdictions = d.order
	}
	for _, j := range jurisdictions {
		if _, ok := d.adapters[j]; !ok {
			return nil, nil, fmt.Errorf("%w: %q", ErrUnknownJurisdiction, j)
		}
	}

	// An abandoned caller must not cancel in-flight provider work; each
	// adapter call is bounded by its own timeout instead.
	ctx = context.WithoutCancel(ctx)

	// Slot per jurisdiction: no locking, and aggregation order stays
	// deterministic even though completion order is not.
	results := make([][]Record, len(jurisdictions))
	failures := make([]error, len(jurisdictions))

	var g errgroup.Group
	for i, j := range jurisdictions {
		adapter := d.adapters[j]
		g.Go(func() error {
			start := time.Now()
			records, err := query(ctx, adapter, settings.timeout)
			d.metrics.Observe(j.String(), err, time.Since(start))
			if err != nil {
				failures[i] = err
				return nil
			}
			results[i] = records
			return nil
		})
	}
	_ = g.Wait() // adapter failures are collected, never returned

	var records []Record
	var errs []error
	for i := range jurisdictions {
		if failures[i] != nil {
			errs = append(errs, failures[i])
			continue
		}
		records = append(records, results[i]...)
	}
	return records, errs, nil
}

func dedupe(js []domain.Jurisdiction) []domain.Jurisdiction {
	if js == nil {
		return nil
	}
	seen := make(map[domain.Jurisdiction]struct{}, len(js))
	out := make([]domain.Jurisdiction, 0, len(js))
	for _, j := range js {
		if _, ok := seen[j]; ok {
			continue
		}
		seen[j] = struct{}{}
		out = append(out, j)
	}
	return out
}
