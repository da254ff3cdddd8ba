// Package http is the HTTP transport: routing, request decoding and
// response shaping. Business rules live in the service and warnings
// packages; handlers only translate.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"ibp/internal/inmate/models"
	"ibp/internal/warnings"
	"ibp/pkg/domain"
	"ibp/pkg/nameparse"
	"ibp/pkg/requestcontext"
)

// dateLayout is the wire form for request and release dates.
const dateLayout = "2006-01-02"

// Service is the inmate use-case surface the handler depends on.
type Service interface {
	Get(ctx context.Context, jurisdiction domain.Jurisdiction, id int) (models.Inmate, []error, error)
	SearchByID(ctx context.Context, id int) ([]models.Inmate, []error, error)
	SearchByName(ctx context.Context, first, last string) ([]models.Inmate, []error, error)

	AddComment(ctx context.Context, jurisdiction domain.Jurisdiction, id int, author, body string) (models.Comment, error)
	DeleteComment(ctx context.Context, jurisdiction domain.Jurisdiction, id int, index int) error
	AddRequest(ctx context.Context, jurisdiction domain.Jurisdiction, id int, request models.Request) (models.Request, error)
	DeleteRequest(ctx context.Context, jurisdiction domain.Jurisdiction, id int, index int) error

	GetInmate(ctx context.Context, jurisdiction domain.Jurisdiction, id int) (models.Inmate, error)
	ListUnits(ctx context.Context) ([]models.Unit, error)
	GetUnit(ctx context.Context, jurisdiction domain.Jurisdiction, name string) (models.Unit, error)
	SaveUnit(ctx context.Context, unit models.Unit) error
}

// Handler serves the inmate API.
type Handler struct {
	service  Service
	logger   *slog.Logger
	warnings warnings.Config
}

// New creates a Handler.
func New(service Service, logger *slog.Logger, warningCfg warnings.Config) *Handler {
	return &Handler{
		service:  service,
		logger:   logger,
		warnings: warningCfg,
	}
}

// Register mounts the API routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/inmates", h.handleSearch)
	r.Route("/inmates/{jurisdiction}/{id}", func(r chi.Router) {
		r.Get("/", h.handleGetInmate)
		r.Post("/comments", h.handleAddComment)
		r.Delete("/comments/{index}", h.handleDeleteComment)
		r.Post("/requests", h.handleAddRequest)
		r.Post("/requests/validate", h.handleValidateRequest)
		r.Delete("/requests/{index}", h.handleDeleteRequest)
	})

	r.Get("/units", h.handleListUnits)
	r.Get("/units/{jurisdiction}/{name}", h.handleGetUnit)
	r.Put("/units/{jurisdiction}/{name}", h.handlePutUnit)
}

type searchResponse struct {
	Inmates []inmateDTO `json:"inmates"`
	Errors  []string    `json:"errors"`
}

// handleSearch answers GET /inmates?query=. A numeric query searches by
// inmate number, anything else is parsed as a name.
func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeBadRequest(w, "query parameter is required")
		return
	}

	var (
		found        []models.Inmate
		providerErrs []error
		err          error
	)
	if id, numeric := parseNumericQuery(query); numeric {
		found, providerErrs, err = h.service.SearchByID(ctx, id)
	} else {
		name := nameparse.Parse(query)
		if name.Last == "" {
			writeBadRequest(w, "name query needs at least a last name")
			return
		}
		found, providerErrs, err = h.service.SearchByName(ctx, name.First, name.Last)
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "search failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		writeError(w, err)
		return
	}

	resp := searchResponse{
		Inmates: make([]inmateDTO, 0, len(found)),
		Errors:  errorStrings(providerErrs),
	}
	for _, inmate := range found {
		resp.Inmates = append(resp.Inmates, toInmateDTO(inmate))
	}
	writeJSON(w, http.StatusOK, resp)
}

type inmateResponse struct {
	Inmate   inmateDTO         `json:"inmate"`
	Warnings map[string]string `json:"warnings"`
	Errors   []string          `json:"errors"`
}

func (h *Handler) handleGetInmate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	jurisdiction, id, ok := h.inmateKey(w, r)
	if !ok {
		return
	}

	inmate, providerErrs, err := h.service.Get(ctx, jurisdiction, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, inmateResponse{
		Inmate:   toInmateDTO(inmate),
		Warnings: warnings.ForInmate(inmate, requestcontext.Now(ctx), h.warnings),
		Errors:   errorStrings(providerErrs),
	})
}

type addCommentRequest struct {
	Author string `json:"author"`
	Body   string `json:"body"`
}

func (h *Handler) handleAddComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	jurisdiction, id, ok := h.inmateKey(w, r)
	if !ok {
		return
	}

	var req addCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		writeBadRequest(w, "comment body is required")
		return
	}

	added, err := h.service.AddComment(ctx, jurisdiction, id, req.Author, req.Body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCommentDTO(added))
}

func (h *Handler) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	jurisdiction, id, ok := h.inmateKey(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeBadRequest(w, "index must be an integer")
		return
	}

	if err := h.service.DeleteComment(r.Context(), jurisdiction, id, index); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addRequestRequest struct {
	DatePostmarked string `json:"date_postmarked"`
	Action         string `json:"action"`
}

type requestResponse struct {
	Request  requestDTO        `json:"request"`
	Warnings map[string]string `json:"warnings"`
}

func (h *Handler) handleAddRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	jurisdiction, id, ok := h.inmateKey(w, r)
	if !ok {
		return
	}

	var req addRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	postmarked, err := time.Parse(dateLayout, req.DatePostmarked)
	if err != nil {
		writeBadRequest(w, "date_postmarked must be a YYYY-MM-DD date")
		return
	}
	action := models.RequestAction(req.Action)
	if action != models.ActionFilled && action != models.ActionTossed {
		writeBadRequest(w, "action must be Filled or Tossed")
		return
	}

	// Warnings are computed against the state before the new request lands.
	inmate, err := h.service.GetInmate(ctx, jurisdiction, id)
	if err != nil {
		writeError(w, err)
		return
	}
	found := warnings.ForRequest(inmate, postmarked, h.warnings)

	added, err := h.service.AddRequest(ctx, jurisdiction, id, models.Request{
		DatePostmarked: postmarked,
		DateProcessed:  requestcontext.Now(ctx),
		Action:         action,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, requestResponse{
		Request:  toRequestDTO(added),
		Warnings: found,
	})
}

type validateRequestRequest struct {
	DatePostmarked string `json:"date_postmarked"`
}

type validateRequestResponse struct {
	Warnings map[string]string `json:"warnings"`
}

// handleValidateRequest runs the postmark rules without persisting
// anything, so the intake UI can warn before a volunteer commits.
func (h *Handler) handleValidateRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	jurisdiction, id, ok := h.inmateKey(w, r)
	if !ok {
		return
	}

	var req validateRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	postmarked, err := time.Parse(dateLayout, req.DatePostmarked)
	if err != nil {
		writeBadRequest(w, "date_postmarked must be a YYYY-MM-DD date")
		return
	}

	inmate, err := h.service.GetInmate(ctx, jurisdiction, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, validateRequestResponse{
		Warnings: warnings.ForRequest(inmate, postmarked, h.warnings),
	})
}

func (h *Handler) handleDeleteRequest(w http.ResponseWriter, r *http.Request) {
	jurisdiction, id, ok := h.inmateKey(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeBadRequest(w, "index must be an integer")
		return
	}

	if err := h.service.DeleteRequest(r.Context(), jurisdiction, id, index); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.service.ListUnits(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	dtos := make([]unitDTO, 0, len(units))
	for _, unit := range units {
		dtos = append(dtos, toUnitDTO(unit))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) handleGetUnit(w http.ResponseWriter, r *http.Request) {
	jurisdiction, err := domain.ParseJurisdiction(chi.URLParam(r, "jurisdiction"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	unit, err := h.service.GetUnit(r.Context(), jurisdiction, chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUnitDTO(unit))
}

type putUnitRequest struct {
	StreetAddress  string `json:"street_address"`
	City           string `json:"city"`
	State          string `json:"state"`
	Zipcode        string `json:"zipcode"`
	URL            string `json:"url"`
	ShippingMethod string `json:"shipping_method"`
}

func (h *Handler) handlePutUnit(w http.ResponseWriter, r *http.Request) {
	jurisdiction, err := domain.ParseJurisdiction(chi.URLParam(r, "jurisdiction"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	var req putUnitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	method := models.ShippingMethod(req.ShippingMethod)
	if method == "" {
		method = models.ShipBox
	}
	if method != models.ShipBox && method != models.ShipIndividual {
		writeBadRequest(w, "shipping_method must be Box or Individual")
		return
	}

	unit := models.Unit{
		Jurisdiction:   jurisdiction,
		Name:           chi.URLParam(r, "name"),
		StreetAddress:  req.StreetAddress,
		City:           req.City,
		State:          req.State,
		Zipcode:        req.Zipcode,
		URL:            req.URL,
		ShippingMethod: method,
	}
	if err := h.service.SaveUnit(r.Context(), unit); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUnitDTO(unit))
}

// inmateKey parses the jurisdiction and id path segments, writing a 400 and
// returning ok=false on bad input.
func (h *Handler) inmateKey(w http.ResponseWriter, r *http.Request) (domain.Jurisdiction, int, bool) {
	jurisdiction, err := domain.ParseJurisdiction(chi.URLParam(r, "jurisdiction"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return "", 0, false
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 0 {
		writeBadRequest(w, "id must be a non-negative integer")
		return "", 0, false
	}
	return jurisdiction, id, true
}

// parseNumericQuery accepts plain digits and dashed federal register
// numbers.
func parseNumericQuery(query string) (int, bool) {
	normalized := strings.ReplaceAll(query, "-", "")
	for _, r := range normalized {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.Atoi(normalized)
	if err != nil {
		return 0, false
	}
	return id, true
}

func errorStrings(errs []error) []string {
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		out = append(out, err.Error())
	}
	return out
}
