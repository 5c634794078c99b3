package reconcile

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes the reporting engine as a JSON API for the admin surfaces.
// Amounts cross the wire as decimal strings; formatting is the client's job.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	query, ok := h.parseSummaryQuery(w, r)
	if !ok {
		return
	}
	window, err := query.Window()
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := h.service.Summary(r.Context(), window, RecognitionModel(query.Model))
	if err != nil {
		h.logger.Error("summary failed", slog.Any("error", err))
		h.respondError(w, http.StatusBadGateway, "record source unavailable")
		return
	}
	h.respondJSON(w, http.StatusOK, summaryResponse{Period: window.Label(), Summary: *summary})
}

func (h *Handler) Trend(w http.ResponseWriter, r *http.Request) {
	query, ok := h.parseSummaryQuery(w, r)
	if !ok {
		return
	}
	window, err := query.Window()
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	points, err := h.service.Trend(r.Context(), window, RecognitionModel(query.Model))
	if err != nil {
		h.logger.Error("trend failed", slog.Any("error", err))
		h.respondError(w, http.StatusBadGateway, "record source unavailable")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"monthly": points})
}

func (h *Handler) OrderBalances(w http.ResponseWriter, r *http.Request) {
	query, ok := h.parseSummaryQuery(w, r)
	if !ok {
		return
	}
	window, err := query.Window()
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	orders, diags, err := h.service.OrderBalances(r.Context(), window)
	if err != nil {
		h.logger.Error("order balances failed", slog.Any("error", err))
		h.respondError(w, http.StatusBadGateway, "record source unavailable")
		return
	}
	if diags == nil {
		diags = []Diagnostic{}
	}
	h.respondJSON(w, http.StatusOK, orderBalancesResponse{Orders: orders, Diagnostics: diags})
}

func (h *Handler) CarryForward(w http.ResponseWriter, r *http.Request) {
	var req CarryForwardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	window := shared.MonthWindow(req.Year, time.Month(req.Month))
	key := r.Header.Get("X-Idempotency-Key")

	tx, err := h.service.CarryForward(r.Context(), window, RecognitionModel(req.Model), key)
	switch {
	case errors.Is(err, ErrNothingToCarry):
		h.respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrCarryForwardConflict):
		h.respondError(w, http.StatusConflict, err.Error())
	case err != nil:
		h.logger.Error("carry-forward failed", slog.Any("error", err))
		h.respondError(w, http.StatusBadGateway, "record source unavailable")
	default:
		h.respondJSON(w, http.StatusCreated, map[string]any{
			"id":          tx.ID,
			"amount":      tx.Amount,
			"description": tx.Description,
		})
	}
}

func (h *Handler) parseSummaryQuery(w http.ResponseWriter, r *http.Request) (SummaryQuery, bool) {
	q := r.URL.Query()
	query := SummaryQuery{
		From:  q.Get("from"),
		To:    q.Get("to"),
		Model: q.Get("model"),
	}
	if query.Model == "" {
		query.Model = string(RecognitionOrders)
	}
	if v := q.Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "invalid year")
			return SummaryQuery{}, false
		}
		query.Year = year
	}
	if v := q.Get("month"); v != "" {
		month, err := strconv.Atoi(v)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "invalid month")
			return SummaryQuery{}, false
		}
		query.Month = month
	}
	if err := h.validate.Struct(query); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return SummaryQuery{}, false
	}
	return query, true
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("encode response", slog.Any("error", err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
