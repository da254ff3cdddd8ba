package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ibp/internal/inmate/models"
	"ibp/internal/inmate/service"
	"ibp/internal/inmate/store"
	"ibp/internal/provider"
	"ibp/pkg/domain"
	"ibp/pkg/platform/sentinel"
)

// stubQuerier plays back canned records and failures and counts calls.
type stubQuerier struct {
	records []provider.Record
	errs    []error

	idCalls   int
	nameCalls int
}

func (q *stubQuerier) QueryByInmateID(_ context.Context, _ int, _ ...provider.QueryOption) ([]provider.Record, []error, error) {
	q.idCalls++
	return q.records, q.errs, nil
}

func (q *stubQuerier) QueryByName(_ context.Context, _, _ string, _ ...provider.QueryOption) ([]provider.Record, []error, error) {
	q.nameCalls++
	return q.records, q.errs, nil
}

type ServiceSuite struct {
	suite.Suite

	ctx     context.Context
	store   *store.Memory
	querier *stubQuerier
	now     time.Time
	svc     *service.Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

const (
	cacheTTL   = 12 * time.Hour
	maxLookups = 3
)

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewMemory()
	s.querier = &stubQuerier{}
	s.now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.svc = service.New(s.store, s.querier, cacheTTL, maxLookups,
		service.WithClock(func() time.Time { return s.now }))
}

func (s *ServiceSuite) record(jurisdiction domain.Jurisdiction, id, first, last string) provider.Record {
	return provider.Record{
		ID:           id,
		Jurisdiction: jurisdiction,
		FirstName:    first,
		LastName:     last,
		FetchedAt:    s.now,
	}
}

func (s *ServiceSuite) TestGetFetchesUnknownInmate() {
	s.querier.records = []provider.Record{
		s.record(domain.JurisdictionTexas, "12345678", "John", "Doe"),
	}

	inmate, providerErrs, err := s.svc.Get(s.ctx, domain.JurisdictionTexas, 12345678)
	s.Require().NoError(err)
	s.Empty(providerErrs)
	s.Equal(1, s.querier.idCalls)
	s.Equal("Doe", inmate.LastName)
	s.Require().NotNil(inmate.FetchedAt)

	s.Run("lookup was recorded", func() {
		stored, err := s.store.FindInmate(s.ctx, domain.JurisdictionTexas, 12345678)
		s.Require().NoError(err)
		s.Len(stored.Lookups, 1)
	})
}

func (s *ServiceSuite) TestGetServesFreshEntryWithoutQuerying() {
	s.querier.records = []provider.Record{
		s.record(domain.JurisdictionTexas, "00000001", "Jane", "Roe"),
	}
	_, _, err := s.svc.Get(s.ctx, domain.JurisdictionTexas, 1)
	s.Require().NoError(err)
	s.Equal(1, s.querier.idCalls)

	// One minute later the entry is still fresh.
	s.now = s.now.Add(time.Minute)
	inmate, providerErrs, err := s.svc.Get(s.ctx, domain.JurisdictionTexas, 1)
	s.Require().NoError(err)
	s.Empty(providerErrs)
	s.Equal(1, s.querier.idCalls, "fresh entry must not trigger a provider query")
	s.Equal("Roe", inmate.LastName)

	stored, err := s.store.FindInmate(s.ctx, domain.JurisdictionTexas, 1)
	s.Require().NoError(err)
	s.Len(stored.Lookups, 2, "every get records a lookup")
}

func (s *ServiceSuite) TestGetRefreshesStaleEntry() {
	s.querier.records = []provider.Record{
		s.record(domain.JurisdictionTexas, "00000001", "Jane", "Roe"),
	}
	_, _, err := s.svc.Get(s.ctx, domain.JurisdictionTexas, 1)
	s.Require().NoError(err)

	s.now = s.now.Add(cacheTTL)
	s.querier.records = []provider.Record{
		s.record(domain.JurisdictionTexas, "00000001", "Jane", "Smith"),
	}

	inmate, _, err := s.svc.Get(s.ctx, domain.JurisdictionTexas, 1)
	s.Require().NoError(err)
	s.Equal(2, s.querier.idCalls, "entry exactly ttl old must be re-queried")
	s.Equal("Smith", inmate.LastName)
}

func (s *ServiceSuite) TestGetServesStaleEntryWhenProviderFails() {
	stale := s.now.Add(-2 * cacheTTL)
	s.Require().NoError(s.store.UpsertInmate(s.ctx, models.Inmate{
		Jurisdiction: domain.JurisdictionTexas,
		ID:           1,
		LastName:     "Doe",
		FetchedAt:    &stale,
	}))
	s.querier.errs = []error{
		&provider.TimeoutError{Jurisdiction: domain.JurisdictionTexas, Timeout: time.Second},
	}

	inmate, providerErrs, err := s.svc.Get(s.ctx, domain.JurisdictionTexas, 1)
	s.Require().NoError(err)
	s.Len(providerErrs, 1)
	s.Equal("Doe", inmate.LastName)
}

func (s *ServiceSuite) TestGetNotFoundAnywhere() {
	_, _, err := s.svc.Get(s.ctx, domain.JurisdictionTexas, 404)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ServiceSuite) TestSearchByNameReconcilesResults() {
	s.querier.records = []provider.Record{
		s.record(domain.JurisdictionTexas, "00000001", "John", "Doe"),
		s.record(domain.JurisdictionFederal, "11111-222", "John", "Doe"),
	}

	found, providerErrs, err := s.svc.SearchByName(s.ctx, "John", "Doe")
	s.Require().NoError(err)
	s.Empty(providerErrs)
	s.Equal(1, s.querier.nameCalls)
	s.Require().Len(found, 2)

	s.Run("federal register number parses without its dash", func() {
		_, err := s.store.FindInmate(s.ctx, domain.JurisdictionFederal, 11111222)
		s.NoError(err)
	})
}

func (s *ServiceSuite) TestReconcileLastRecordWins() {
	s.querier.records = []provider.Record{
		s.record(domain.JurisdictionTexas, "00000001", "John", "Doe"),
		s.record(domain.JurisdictionTexas, "00000001", "Jon", "Doe"),
	}

	found, _, err := s.svc.SearchByID(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.Equal("Jon", found[0].FirstName)
}

func (s *ServiceSuite) TestReconcileResolvesKnownUnit() {
	s.Require().NoError(s.store.SaveUnit(s.ctx, models.Unit{
		Jurisdiction: domain.JurisdictionTexas,
		Name:         "Allred",
		City:         "Iowa Park",
	}))

	known := s.record(domain.JurisdictionTexas, "00000001", "John", "Doe")
	known.Unit = "Allred"
	unknown := s.record(domain.JurisdictionTexas, "00000002", "Jane", "Roe")
	unknown.Unit = "Nowhere"
	s.querier.records = []provider.Record{known, unknown}

	_, _, err := s.svc.SearchByName(s.ctx, "", "")
	s.Require().NoError(err)

	withUnit, err := s.store.FindInmate(s.ctx, domain.JurisdictionTexas, 1)
	s.Require().NoError(err)
	s.Require().NotNil(withUnit.Unit)
	s.Equal("Iowa Park", withUnit.Unit.City)

	withoutUnit, err := s.store.FindInmate(s.ctx, domain.JurisdictionTexas, 2)
	s.Require().NoError(err)
	s.Nil(withoutUnit.Unit, "an unrecognized unit name stays unresolved")
}

func (s *ServiceSuite) TestCommentLifecycle() {
	s.querier.records = []provider.Record{
		s.record(domain.JurisdictionTexas, "00000001", "John", "Doe"),
	}
	_, _, err := s.svc.Get(s.ctx, domain.JurisdictionTexas, 1)
	s.Require().NoError(err)

	added, err := s.svc.AddComment(s.ctx, domain.JurisdictionTexas, 1, "volunteer", "name checked")
	s.Require().NoError(err)
	s.Equal(0, added.Index)
	s.Equal("volunteer", added.Author)
	s.True(added.CreatedAt.Equal(s.now))

	s.Require().NoError(s.svc.DeleteComment(s.ctx, domain.JurisdictionTexas, 1, added.Index))
	s.ErrorIs(s.svc.DeleteComment(s.ctx, domain.JurisdictionTexas, 1, added.Index), sentinel.ErrNotFound)
}

func (s *ServiceSuite) TestRequestLifecycle() {
	s.querier.records = []provider.Record{
		s.record(domain.JurisdictionFederal, "11111-222", "John", "Doe"),
	}
	_, _, err := s.svc.Get(s.ctx, domain.JurisdictionFederal, 11111222)
	s.Require().NoError(err)

	added, err := s.svc.AddRequest(s.ctx, domain.JurisdictionFederal, 11111222, models.Request{
		DatePostmarked: time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC),
		DateProcessed:  time.Date(2024, 5, 25, 0, 0, 0, 0, time.UTC),
		Action:         models.ActionFilled,
	})
	s.Require().NoError(err)
	s.Equal(0, added.Index)

	s.Require().NoError(s.svc.DeleteRequest(s.ctx, domain.JurisdictionFederal, 11111222, added.Index))
}
