package handler

import (
	"net/http"

	"simtinel/internal/sms"
)

type SMSHandler struct {
	service *sms.Service
	logger  Logger
}

func NewSMSHandler(service *sms.Service, log Logger) *SMSHandler {
	return &SMSHandler{service: service, logger: log}
}

// Quota reports today's remaining sends. The class query parameter selects
// the bucket; alerts are the default.
func (h *SMSHandler) Quota(w http.ResponseWriter, r *http.Request) {
	class := sms.ClassAlert
	if r.URL.Query().Get("class") == string(sms.ClassGeneric) {
		class = sms.ClassGeneric
	}
	remaining, limit := h.service.RemainingQuota(class)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"class":     string(class),
		"remaining": remaining,
		"limit":     limit,
	})
}
