package handler

import (
	"encoding/json"
	goerrors "errors"
	"net/http"
	"strconv"
	"time"

	"simtinel/internal/domain"
	"simtinel/internal/repository/postgres"
	"simtinel/pkg/errors"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type AlertsHandler struct {
	alerts      *postgres.AlertRepository
	predictions *postgres.PredictionRepository
	accounts    *postgres.AccountRepository
	logger      Logger
}

func NewAlertsHandler(
	alerts *postgres.AlertRepository,
	predictions *postgres.PredictionRepository,
	accounts *postgres.AccountRepository,
	log Logger,
) *AlertsHandler {
	return &AlertsHandler{alerts: alerts, predictions: predictions, accounts: accounts, logger: log}
}

func parseLimit(r *http.Request, def, max int) int {
	limit := def
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= max {
			limit = n
		}
	}
	return limit
}

// Feed returns recent alerts joined with their verdicts and target phones,
// newest first.
func (h *AlertsHandler) Feed(w http.ResponseWriter, r *http.Request) {
	items, err := h.alerts.RecentFeed(r.Context(), parseLimit(r, 20, 100))
	if err != nil {
		h.logger.Error("failed to load alert feed", map[string]interface{}{"error": err.Error()})
		respondError(w, http.StatusInternalServerError, "Failed to load alerts")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"alerts": items})
}

// Incidents returns alerts shaped for the admin review queue.
func (h *AlertsHandler) Incidents(w http.ResponseWriter, r *http.Request) {
	incidents, err := h.alerts.Incidents(r.Context(), parseLimit(r, 50, 200))
	if err != nil {
		h.logger.Error("failed to load incidents", map[string]interface{}{"error": err.Error()})
		respondError(w, http.StatusInternalServerError, "Failed to load incidents")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"incidents": incidents})
}

type updateAlertStatusRequest struct {
	Status domain.AlertStatus `json:"status"`
}

func (h *AlertsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid alert ID")
		return
	}

	var req updateAlertStatusRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	switch req.Status {
	case domain.AlertStatusOpen, domain.AlertStatusInReview, domain.AlertStatusClosed:
	default:
		respondError(w, http.StatusBadRequest, "Invalid alert status")
		return
	}

	if err := h.alerts.UpdateStatus(r.Context(), id, req.Status); err != nil {
		if goerrors.Is(err, errors.ErrAlertNotFound) {
			respondError(w, http.StatusNotFound, "Alert not found")
			return
		}
		h.logger.Error("failed to update alert", map[string]interface{}{"error": err.Error()})
		respondError(w, http.StatusInternalServerError, "Failed to update alert")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": string(req.Status)})
}

// Stats summarizes system-wide counters for the dashboard.
func (h *AlertsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	totalAccounts, err := h.accounts.CountAll(r.Context())
	if err != nil {
		h.logger.Warn("failed to count accounts", map[string]interface{}{"error": err.Error()})
	}
	blockedToday, err := h.predictions.CountBlockedWithin(r.Context(), 24*time.Hour)
	if err != nil {
		h.logger.Warn("failed to count blocked predictions", map[string]interface{}{"error": err.Error()})
	}
	activeThreats, err := h.alerts.CountActive(r.Context())
	if err != nil {
		h.logger.Warn("failed to count active alerts", map[string]interface{}{"error": err.Error()})
	}

	respondJSON(w, http.StatusOK, domain.SystemStats{
		TotalAccounts:       totalAccounts,
		ThreatsBlockedToday: blockedToday,
		ActiveThreats:       activeThreats,
	})
}
