package handler

import (
	"encoding/json"
	goerrors "errors"
	"net/http"

	"simtinel/internal/simulation"
	"simtinel/pkg/errors"
	"simtinel/pkg/validator"

	"github.com/google/uuid"
)

type SimulationHandler struct {
	service   *simulation.Service
	validator *validator.Validator
	logger    Logger
}

func NewSimulationHandler(service *simulation.Service, val *validator.Validator, log Logger) *SimulationHandler {
	return &SimulationHandler{service: service, validator: val, logger: log}
}

type simulateRequest struct {
	AccountID string `json:"account_id" validate:"omitempty,uuid"`
	Phone     string `json:"phone" validate:"omitempty,local_phone"`
}

// Simulate injects a synthetic swap and transaction for the targeted account
// and runs the full pipeline. An empty body targets the most recently
// registered account that has a phone number.
func (h *SimulationHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if r.Body != nil && r.ContentLength != 0 {
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if errs := h.validator.ValidateStructured(&req); errs != nil {
			respondValidationErrors(w, errs)
			return
		}
	}

	in := simulation.Input{Phone: req.Phone}
	if req.AccountID != "" {
		id, err := uuid.Parse(req.AccountID)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid account ID")
			return
		}
		in.AccountID = &id
	}

	res, err := h.service.Run(r.Context(), in)
	if err != nil {
		switch {
		case goerrors.Is(err, errors.ErrNoEligibleAccount):
			respondError(w, http.StatusNotFound, errors.ErrNoEligibleAccount.Error())
		case goerrors.Is(err, errors.ErrAccountNotFound):
			respondError(w, http.StatusNotFound, "Account not found")
		default:
			h.logger.Error("simulation failed", map[string]interface{}{"error": err.Error()})
			payload := map[string]interface{}{"error": "Simulation failed"}
			if res != nil {
				// Committed steps survive the failure; report how far the run got.
				payload["steps"] = res.Steps
			}
			respondJSON(w, http.StatusInternalServerError, payload)
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"message":  res.Message,
		"steps":    res.Steps,
		"target":   res.Target,
		"analysis": res.Verdict,
		"alert_id": res.AlertID,
		"sms":      res.SMS,
	})
}
