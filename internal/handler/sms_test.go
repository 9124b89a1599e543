package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"simtinel/internal/sms"
	"simtinel/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotaEndpoint(t *testing.T) {
	svc := sms.NewService(nil, sms.NewQuota(3, 10), logger.NewNop())
	h := NewSMSHandler(svc, logger.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sms/quota", nil)
	w := httptest.NewRecorder()
	h.Quota(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "alert", body["class"])
	assert.Equal(t, float64(3), body["remaining"])
	assert.Equal(t, float64(3), body["limit"])
}

func TestQuotaEndpointGenericClass(t *testing.T) {
	svc := sms.NewService(nil, sms.NewQuota(3, 10), logger.NewNop())
	h := NewSMSHandler(svc, logger.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sms/quota?class=generic", nil)
	w := httptest.NewRecorder()
	h.Quota(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "generic", body["class"])
	assert.Equal(t, float64(10), body["limit"])
}
