package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/fastspring-cashier/internal/app/service/webhook"
	"github.com/fatflowers/fastspring-cashier/pkg/metrics"
)

func newWebhookRouter(secret string, maxBody int64) (*gin.Engine, *webhook.SignatureVerifier) {
	gin.SetMode(gin.TestMode)
	log := zap.NewNop().Sugar()
	verifier := webhook.NewSignatureVerifier(secret)
	d := webhook.NewDispatcher(log, metrics.NoopWebhookMetrics{})
	d.Define("OrderCompleted", "SubscriptionCanceled")
	d.Listen("SubscriptionCanceled", webhook.ListenerFunc(func(context.Context, *webhook.Event) error {
		return errors.New("boom")
	}))
	svc := webhook.NewService(verifier, d, log)

	r := gin.New()
	RegisterFastspringWebhookRoutes(r.Group("/api/v1"), svc, maxBody, log)
	RegisterLegacyWebhookRoute(r, svc, maxBody, log)
	return r, verifier
}

func postWebhook(r *gin.Engine, path string, body []byte, sig string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sig != "" {
		req.Header.Set(webhook.SignatureHeader, sig)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestApiFastspringWebhook_PartialSuccess(t *testing.T) {
	r, v := newWebhookRouter("secret", 1<<20)
	body := []byte(`{"events":[
		{"id":"e1","type":"order.completed","live":true,"processed":false,"created":1700000000000,"data":{}},
		{"id":"e2","type":"subscription.canceled","live":true,"processed":false,"created":1700000000000,"data":{}},
		{"id":"e3","type":"mailingListEntry.updated","live":true,"processed":false,"created":1700000000000,"data":{}},
		{"id":"e4","type":"order.completed","live":true,"processed":false,"created":1700000000000,"data":{}}
	]}`)

	for _, path := range []string{"/api/v1/fastspring/webhook", "/webhook"} {
		w := postWebhook(r, path, body, v.Sign(body))
		require.Equal(t, http.StatusAccepted, w.Code)
		require.Equal(t, "e1\ne4", w.Body.String())
		require.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	}
}

func TestApiFastspringWebhook_EmptyBatch(t *testing.T) {
	r, v := newWebhookRouter("secret", 1<<20)
	body := []byte(`{"events":[]}`)
	w := postWebhook(r, "/webhook", body, v.Sign(body))
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Empty(t, w.Body.String())
}

func TestApiFastspringWebhook_Rejections(t *testing.T) {
	r, v := newWebhookRouter("secret", 64)
	valid := []byte(`{"events":[]}`)
	malformed := []byte(`{"nope":true}`)
	large := bytes.Repeat([]byte("x"), 128)

	require.Equal(t, http.StatusUnauthorized, postWebhook(r, "/webhook", valid, "").Code)
	require.Equal(t, http.StatusUnauthorized, postWebhook(r, "/webhook", valid, v.Sign([]byte("other"))).Code)
	require.Equal(t, http.StatusBadRequest, postWebhook(r, "/webhook", malformed, v.Sign(malformed)).Code)

	w := postWebhook(r, "/webhook", large, v.Sign(large))
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	require.Contains(t, w.Body.String(), `"code":41300`)

	unconfigured, _ := newWebhookRouter("", 1<<20)
	w = postWebhook(unconfigured, "/webhook", valid, "anything")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Contains(t, w.Body.String(), `"code":50300`)
}
