// Package service implements the inmate use cases: cached lookups against
// the provider dispatcher, reconciliation into the store, and child-record
// management under per-inmate locks.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"ibp/internal/inmate/locks"
	"ibp/internal/inmate/models"
	"ibp/internal/inmate/store"
	"ibp/internal/platform/metrics"
	"ibp/internal/provider"
	"ibp/pkg/domain"
	"ibp/pkg/platform/sentinel"
)

// Querier is the provider dispatch surface the service depends on.
type Querier interface {
	QueryByInmateID(ctx context.Context, id int, opts ...provider.QueryOption) ([]provider.Record, []error, error)
	QueryByName(ctx context.Context, first, last string, opts ...provider.QueryOption) ([]provider.Record, []error, error)
}

// Service coordinates provider queries, the store and per-inmate locks.
type Service struct {
	store   store.Store
	querier Querier
	locks   *locks.Registry

	logger  *slog.Logger
	metrics *metrics.Metrics

	cacheTTL   time.Duration
	maxLookups int

	now func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics attaches reconciliation metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New builds a Service. cacheTTL bounds how long a confirmed entry is
// served without re-querying its provider; maxLookups bounds the lookup
// history kept per inmate.
func New(st store.Store, querier Querier, cacheTTL time.Duration, maxLookups int, opts ...Option) *Service {
	s := &Service{
		store:      st,
		querier:    querier,
		locks:      locks.NewRegistry(),
		logger:     slog.New(slog.DiscardHandler),
		cacheTTL:   cacheTTL,
		maxLookups: maxLookups,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns one inmate, refreshing the entry from its provider when the
// cached copy is stale or missing. The second return carries provider
// failures that did not prevent serving an entry; the third is
// sentinel.ErrNotFound when no entry could be found or fetched.
func (s *Service) Get(ctx context.Context, jurisdiction domain.Jurisdiction, id int) (models.Inmate, []error, error) {
	var inmate models.Inmate
	var providerErrs []error

	err := s.locks.With(jurisdiction, id, func() error {
		var err error
		inmate, err = s.store.FindInmate(ctx, jurisdiction, id)
		fresh := err == nil && inmate.EntryIsFresh(s.now(), s.cacheTTL)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}

		if !fresh {
			records, errs, dispatchErr := s.querier.QueryByInmateID(ctx, id,
				provider.WithJurisdictions(jurisdiction))
			if dispatchErr != nil {
				return dispatchErr
			}
			providerErrs = errs

			if err := s.reconcile(ctx, records); err != nil {
				return err
			}

			inmate, err = s.store.FindInmate(ctx, jurisdiction, id)
			if err != nil {
				return err
			}
		}

		return s.recordLookup(ctx, jurisdiction, id)
	})
	if err != nil {
		return models.Inmate{}, providerErrs, err
	}
	return inmate, providerErrs, nil
}

// SearchByID queries every jurisdiction for an inmate number, reconciles
// whatever came back, and returns the stored entries for that number.
func (s *Service) SearchByID(ctx context.Context, id int) ([]models.Inmate, []error, error) {
	records, providerErrs, err := s.querier.QueryByInmateID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := s.reconcile(ctx, records); err != nil {
		return nil, providerErrs, err
	}

	found, err := s.store.FindInmatesByID(ctx, id)
	if err != nil {
		return nil, providerErrs, err
	}
	return found, providerErrs, nil
}

// SearchByName queries every jurisdiction by name, reconciles the results,
// and returns the matching stored entries.
func (s *Service) SearchByName(ctx context.Context, first, last string) ([]models.Inmate, []error, error) {
	records, providerErrs, err := s.querier.QueryByName(ctx, first, last)
	if err != nil {
		return nil, nil, err
	}
	if err := s.reconcile(ctx, records); err != nil {
		return nil, providerErrs, err
	}

	found, err := s.store.FindInmatesByName(ctx, first, last)
	if err != nil {
		return nil, providerErrs, err
	}
	return found, providerErrs, nil
}

// reconcile upserts provider records into the store in one transaction.
// Records arrive in dispatch order; when two records share a key the later
// one wins, since its upsert lands last.
func (s *Service) reconcile(ctx context.Context, records []provider.Record) error {
	if len(records) == 0 {
		return nil
	}

	err := s.store.InTransaction(ctx, func(ctx context.Context) error {
		for _, record := range records {
			id, err := parseRecordID(record.ID)
			if err != nil {
				s.logger.WarnContext(ctx, "skipping record with unparsable id",
					"jurisdiction", record.Jurisdiction, "id", record.ID)
				continue
			}

			inmate := models.Inmate{
				Jurisdiction: record.Jurisdiction,
				ID:           id,
				FirstName:    record.FirstName,
				LastName:     record.LastName,
				Race:         record.Race,
				Sex:          record.Sex,
				URL:          record.URL,
				Release:      record.Release,
			}
			fetched := record.FetchedAt
			inmate.FetchedAt = &fetched

			// An unknown unit name is kept as nil rather than inventing
			// a unit row; volunteers maintain the unit table separately.
			if record.Unit != "" {
				unit, err := s.store.FindUnit(ctx, record.Jurisdiction, record.Unit)
				if err == nil {
					inmate.Unit = &unit
				} else if !errors.Is(err, sentinel.ErrNotFound) {
					return err
				}
			}

			if err := s.store.UpsertInmate(ctx, inmate); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.AddInmatesReconciled(len(records))
	s.logger.DebugContext(ctx, "reconciled provider records", "count", len(records))
	return nil
}

func (s *Service) recordLookup(ctx context.Context, jurisdiction domain.Jurisdiction, id int) error {
	if err := s.store.AddLookup(ctx, jurisdiction, id, s.now(), s.maxLookups); err != nil {
		return err
	}
	s.metrics.IncLookupsRecorded()
	return nil
}

// AddComment attaches a comment to an inmate.
func (s *Service) AddComment(ctx context.Context, jurisdiction domain.Jurisdiction, id int, author, body string) (models.Comment, error) {
	var added models.Comment
	err := s.locks.With(jurisdiction, id, func() error {
		var err error
		added, err = s.store.AddComment(ctx, jurisdiction, id, models.Comment{
			CreatedAt: s.now(),
			Author:    author,
			Body:      body,
		})
		return err
	})
	return added, err
}

// DeleteComment removes one comment by index.
func (s *Service) DeleteComment(ctx context.Context, jurisdiction domain.Jurisdiction, id int, index int) error {
	return s.locks.With(jurisdiction, id, func() error {
		return s.store.DeleteComment(ctx, jurisdiction, id, index)
	})
}

// AddRequest attaches a request to an inmate.
func (s *Service) AddRequest(ctx context.Context, jurisdiction domain.Jurisdiction, id int, request models.Request) (models.Request, error) {
	var added models.Request
	err := s.locks.With(jurisdiction, id, func() error {
		var err error
		added, err = s.store.AddRequest(ctx, jurisdiction, id, request)
		return err
	})
	return added, err
}

// DeleteRequest removes one request by index.
func (s *Service) DeleteRequest(ctx context.Context, jurisdiction domain.Jurisdiction, id int, index int) error {
	return s.locks.With(jurisdiction, id, func() error {
		return s.store.DeleteRequest(ctx, jurisdiction, id, index)
	})
}

// GetInmate loads one stored inmate without consulting providers.
func (s *Service) GetInmate(ctx context.Context, jurisdiction domain.Jurisdiction, id int) (models.Inmate, error) {
	return s.store.FindInmate(ctx, jurisdiction, id)
}

// ListUnits returns every known unit.
func (s *Service) ListUnits(ctx context.Context) ([]models.Unit, error) {
	return s.store.ListUnits(ctx)
}

// GetUnit loads one unit.
func (s *Service) GetUnit(ctx context.Context, jurisdiction domain.Jurisdiction, name string) (models.Unit, error) {
	return s.store.FindUnit(ctx, jurisdiction, name)
}

// SaveUnit inserts or updates a unit.
func (s *Service) SaveUnit(ctx context.Context, unit models.Unit) error {
	return s.store.SaveUnit(ctx, unit)
}

// parseRecordID turns a provider-formatted id back into its numeric form.
// Texas ids are zero-padded digits; federal register numbers carry a dash.
func parseRecordID(formatted string) (int, error) {
	return strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(formatted), "-", ""))
}
