package handler

import (
	"encoding/json"
	goerrors "errors"
	"net/http"

	"simtinel/internal/fraud"
	"simtinel/pkg/errors"
	"simtinel/pkg/validator"

	"github.com/google/uuid"
)

type AnalysisHandler struct {
	service   *fraud.Service
	validator *validator.Validator
	logger    Logger
}

func NewAnalysisHandler(service *fraud.Service, val *validator.Validator, log Logger) *AnalysisHandler {
	return &AnalysisHandler{service: service, validator: val, logger: log}
}

type analyzeRequest struct {
	AccountID     string                 `json:"account_id" validate:"required,uuid"`
	SMSText       string                 `json:"sms_text" validate:"required,max=2048"`
	DeviceContext map[string]interface{} `json:"device_context"`
}

// Analyze records an SMS-derived transaction signal and returns the verdict
// plus the identifiers of anything the pipeline persisted.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
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

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid account ID")
		return
	}

	res, err := h.service.AnalyzeSignal(r.Context(), fraud.AnalyzeInput{
		AccountID:     accountID,
		SMSText:       validator.Sanitize(req.SMSText),
		DeviceContext: req.DeviceContext,
	})
	if err != nil {
		if goerrors.Is(err, errors.ErrAccountNotFound) {
			respondError(w, http.StatusNotFound, "Account not found")
			return
		}
		h.logger.Error("analysis failed", map[string]interface{}{"error": err.Error()})
		respondError(w, http.StatusInternalServerError, "Analysis failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"analysis":       res.Verdict,
		"transaction_id": res.TransactionID,
		"prediction_id":  res.PredictionID,
		"alert_id":       res.AlertID,
		"sms":            res.SMS,
	})
}
