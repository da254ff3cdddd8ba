package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ibp/internal/inmate/models"
	"ibp/internal/provider"
	transport "ibp/internal/transport/http"
	"ibp/internal/warnings"
	"ibp/pkg/domain"
	"ibp/pkg/platform/sentinel"
)

// stubService plays back canned inmates and records what was asked of it.
type stubService struct {
	inmate       models.Inmate
	inmates      []models.Inmate
	units        []models.Unit
	providerErrs []error
	err          error

	lastFirst, lastLast string
	lastID              int
	savedUnit           models.Unit
}

func (s *stubService) Get(_ context.Context, _ domain.Jurisdiction, id int) (models.Inmate, []error, error) {
	s.lastID = id
	return s.inmate, s.providerErrs, s.err
}

func (s *stubService) SearchByID(_ context.Context, id int) ([]models.Inmate, []error, error) {
	s.lastID = id
	return s.inmates, s.providerErrs, s.err
}

func (s *stubService) SearchByName(_ context.Context, first, last string) ([]models.Inmate, []error, error) {
	s.lastFirst, s.lastLast = first, last
	return s.inmates, s.providerErrs, s.err
}

func (s *stubService) AddComment(_ context.Context, _ domain.Jurisdiction, _ int, author, body string) (models.Comment, error) {
	if s.err != nil {
		return models.Comment{}, s.err
	}
	return models.Comment{Index: 0, Author: author, Body: body}, nil
}

func (s *stubService) DeleteComment(_ context.Context, _ domain.Jurisdiction, _ int, _ int) error {
	return s.err
}

func (s *stubService) AddRequest(_ context.Context, _ domain.Jurisdiction, _ int, request models.Request) (models.Request, error) {
	if s.err != nil {
		return models.Request{}, s.err
	}
	request.Index = 0
	return request, nil
}

func (s *stubService) DeleteRequest(_ context.Context, _ domain.Jurisdiction, _ int, _ int) error {
	return s.err
}

func (s *stubService) GetInmate(_ context.Context, _ domain.Jurisdiction, _ int) (models.Inmate, error) {
	return s.inmate, s.err
}

func (s *stubService) ListUnits(_ context.Context) ([]models.Unit, error) {
	return s.units, s.err
}

func (s *stubService) GetUnit(_ context.Context, _ domain.Jurisdiction, _ string) (models.Unit, error) {
	if len(s.units) == 0 {
		return models.Unit{}, sentinel.ErrNotFound
	}
	return s.units[0], s.err
}

func (s *stubService) SaveUnit(_ context.Context, unit models.Unit) error {
	s.savedUnit = unit
	return s.err
}

var warningCfg = warnings.Config{
	CacheTTL:        12 * time.Hour,
	MinReleaseDays:  60,
	MinPostmarkDays: 90,
}

func newServer(t *testing.T, svc *stubService) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	handler := transport.New(svc, logger, warningCfg)
	server := httptest.NewServer(transport.NewRouter(handler, logger))
	t.Cleanup(server.Close)
	return server
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func TestSearchNumericQuery(t *testing.T) {
	svc := &stubService{inmates: []models.Inmate{
		{Jurisdiction: domain.JurisdictionTexas, ID: 12345678, LastName: "Doe"},
	}}
	server := newServer(t, svc)

	resp, err := http.Get(server.URL + "/inmates?query=12345678")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	assert.Equal(t, 12345678, svc.lastID)
	assert.Len(t, body["inmates"], 1)
}

func TestSearchDashedFederalNumber(t *testing.T) {
	svc := &stubService{}
	server := newServer(t, svc)

	resp, err := http.Get(server.URL + "/inmates?query=11111-222")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 11111222, svc.lastID)
}

func TestSearchNameQuery(t *testing.T) {
	svc := &stubService{}
	server := newServer(t, svc)

	resp, err := http.Get(server.URL + "/inmates?query=Doe,%20John")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "John", svc.lastFirst)
	assert.Equal(t, "Doe", svc.lastLast)
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	server := newServer(t, &stubService{})

	resp, err := http.Get(server.URL + "/inmates")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearchSurfacesProviderErrors(t *testing.T) {
	svc := &stubService{providerErrs: []error{
		&provider.TimeoutError{Jurisdiction: domain.JurisdictionTexas, Timeout: 10 * time.Second},
	}}
	server := newServer(t, svc)

	resp, err := http.Get(server.URL + "/inmates?query=1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[struct {
		Errors []string `json:"errors"`
	}](t, resp)
	require.Len(t, body.Errors, 1)
	assert.Contains(t, body.Errors[0], "Texas")
}

func TestGetInmateIncludesWarnings(t *testing.T) {
	svc := &stubService{inmate: models.Inmate{
		Jurisdiction: domain.JurisdictionTexas,
		ID:           12345678,
		LastName:     "Doe",
	}}
	server := newServer(t, svc)

	resp, err := http.Get(server.URL + "/inmates/Texas/12345678")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[struct {
		Warnings map[string]string `json:"warnings"`
	}](t, resp)
	assert.Contains(t, body.Warnings["entry age"], "has never been verified")
}

func TestGetInmateNotFound(t *testing.T) {
	svc := &stubService{err: sentinel.ErrNotFound}
	server := newServer(t, svc)

	resp, err := http.Get(server.URL + "/inmates/Texas/404")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetInmateRejectsBadJurisdiction(t *testing.T) {
	server := newServer(t, &stubService{})

	resp, err := http.Get(server.URL + "/inmates/Mars/1")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAddComment(t *testing.T) {
	server := newServer(t, &stubService{})

	resp := postJSON(t, server.URL+"/inmates/Texas/1/comments", map[string]string{
		"author": "volunteer", "body": "name verified",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	assert.Equal(t, "name verified", body["body"])
}

func TestAddCommentRequiresBody(t *testing.T) {
	server := newServer(t, &stubService{})

	resp := postJSON(t, server.URL+"/inmates/Texas/1/comments", map[string]string{
		"author": "volunteer",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAddRequestReturnsPostmarkWarnings(t *testing.T) {
	svc := &stubService{inmate: models.Inmate{
		Jurisdiction: domain.JurisdictionTexas,
		ID:           1,
		Requests: []models.Request{
			{Index: 0, DatePostmarked: time.Now().UTC(), Action: models.ActionFilled},
		},
	}}
	server := newServer(t, svc)

	resp := postJSON(t, server.URL+"/inmates/Texas/1/requests", map[string]string{
		"date_postmarked": time.Now().UTC().Format("2006-01-02"),
		"action":          "Filled",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decode[struct {
		Warnings map[string]string `json:"warnings"`
	}](t, resp)
	assert.Equal(t, "No time has transpired since the last postmark.", body.Warnings["postmarkdate"])
}

func TestAddRequestRejectsUnknownAction(t *testing.T) {
	server := newServer(t, &stubService{})

	resp := postJSON(t, server.URL+"/inmates/Texas/1/requests", map[string]string{
		"date_postmarked": "2024-05-01",
		"action":          "Shredded",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestValidateRequestDoesNotPersist(t *testing.T) {
	svc := &stubService{inmate: models.Inmate{Jurisdiction: domain.JurisdictionTexas, ID: 1}}
	server := newServer(t, svc)

	resp := postJSON(t, server.URL+"/inmates/Texas/1/requests/validate", map[string]string{
		"date_postmarked": "2024-05-01",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[struct {
		Warnings map[string]string `json:"warnings"`
	}](t, resp)
	assert.Empty(t, body.Warnings)
}

func TestPutAndGetUnit(t *testing.T) {
	svc := &stubService{}
	server := newServer(t, svc)

	req, err := http.NewRequest(http.MethodPut, server.URL+"/units/Texas/Allred",
		bytes.NewReader([]byte(`{"city":"Iowa Park","state":"TX","shipping_method":"Box"}`)))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "Allred", svc.savedUnit.Name)
	assert.Equal(t, models.ShipBox, svc.savedUnit.ShippingMethod)
}

func TestHealthz(t *testing.T) {
	server := newServer(t, &stubService{})

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
