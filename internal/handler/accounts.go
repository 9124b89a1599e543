package handler

import (
	"encoding/json"
	goerrors "errors"
	"net/http"
	"strconv"
	"time"

	"simtinel/internal/device"
	"simtinel/internal/domain"
	"simtinel/internal/repository/postgres"
	"simtinel/internal/sms"
	"simtinel/pkg/errors"
	"simtinel/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type AccountsHandler struct {
	accounts     *postgres.AccountRepository
	transactions *postgres.TransactionRepository
	devices      *device.Service
	validator    *validator.Validator
	logger       Logger
}

func NewAccountsHandler(
	accounts *postgres.AccountRepository,
	transactions *postgres.TransactionRepository,
	devices *device.Service,
	val *validator.Validator,
	log Logger,
) *AccountsHandler {
	return &AccountsHandler{
		accounts:     accounts,
		transactions: transactions,
		devices:      devices,
		validator:    val,
		logger:       log,
	}
}

type createAccountRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=128"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"omitempty,local_phone"`
}

func (h *AccountsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
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

	account := &domain.Account{
		ID:        uuid.New(),
		Name:      validator.Sanitize(req.Name),
		Email:     req.Email,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if req.Phone != "" {
		phone := sms.Sanitize(req.Phone)
		account.Phone = &phone
	}

	if err := h.accounts.Create(r.Context(), account); err != nil {
		if goerrors.Is(err, errors.ErrAccountExists) {
			respondError(w, http.StatusConflict, "Account already exists")
			return
		}
		h.logger.Error("failed to create account", map[string]interface{}{"error": err.Error()})
		respondError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	respondJSON(w, http.StatusCreated, account)
}

func (h *AccountsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	accounts, err := h.accounts.FindAll(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("failed to list accounts", map[string]interface{}{"error": err.Error()})
		respondError(w, http.StatusInternalServerError, "Failed to list accounts")
		return
	}
	total, err := h.accounts.CountAll(r.Context())
	if err != nil {
		h.logger.Warn("failed to count accounts", map[string]interface{}{"error": err.Error()})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accounts,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

func (h *AccountsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid account ID")
		return
	}
	account, err := h.accounts.FindByID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Account not found")
		return
	}
	respondJSON(w, http.StatusOK, account)
}

type updatePhoneRequest struct {
	Phone string `json:"phone" validate:"required,local_phone"`
}

func (h *AccountsHandler) UpdatePhone(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid account ID")
		return
	}

	var req updatePhoneRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		respondValidationErrors(w, errs)
		return
	}

	phone := sms.Sanitize(req.Phone)
	if err := h.accounts.UpdatePhone(r.Context(), id, phone); err != nil {
		if goerrors.Is(err, errors.ErrAccountNotFound) {
			respondError(w, http.StatusNotFound, "Account not found")
			return
		}
		h.logger.Error("failed to update phone", map[string]interface{}{"error": err.Error()})
		respondError(w, http.StatusInternalServerError, "Failed to update phone")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "phone_updated"})
}

type registerDeviceRequest struct {
	IMEI     string `json:"imei" validate:"required,len=15,numeric"`
	Location string `json:"location" validate:"omitempty,max=128"`
}

// RegisterDevice records the account's current device identity. Registering
// the same IMEI again is reported as unchanged without a new event.
func (h *AccountsHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid account ID")
		return
	}
	if _, err := h.accounts.FindByID(r.Context(), id); err != nil {
		respondError(w, http.StatusNotFound, "Account not found")
		return
	}

	var req registerDeviceRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		respondValidationErrors(w, errs)
		return
	}

	status, event, err := h.devices.Register(r.Context(), id, req.IMEI, validator.Sanitize(req.Location))
	if err != nil {
		h.logger.Error("failed to register device", map[string]interface{}{"error": err.Error()})
		respondError(w, http.StatusInternalServerError, "Failed to register device")
		return
	}

	message := "Device registered"
	if status == device.StatusUnchanged {
		message = "Device verified"
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": message,
		"status":  status,
		"event":   event,
	})
}

func (h *AccountsHandler) DeviceHistory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid account ID")
		return
	}
	events, err := h.devices.History(r.Context(), id, 50)
	if err != nil {
		h.logger.Error("failed to load device history", map[string]interface{}{"error": err.Error()})
		respondError(w, http.StatusInternalServerError, "Failed to load device history")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

func (h *AccountsHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid account ID")
		return
	}
	limit := 50
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	txs, err := h.transactions.FindByAccount(r.Context(), id, limit, offset)
	if err != nil {
		h.logger.Error("failed to list transactions", map[string]interface{}{"error": err.Error()})
		respondError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"transactions": txs})
}
