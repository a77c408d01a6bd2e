package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/fastspring-cashier/internal/app/service/webhook"
	"github.com/fatflowers/fastspring-cashier/pkg/logctx"
	"github.com/fatflowers/fastspring-cashier/pkg/response"
)

// WebhookHandler authenticates and dispatches a raw Fastspring webhook body.
type WebhookHandler interface {
	HandleWebhook(ctx context.Context, body []byte, signature string) (*webhook.BatchResult, error)
}

// @Summary      Fastspring webhook
// @Description  Receives a batch of Fastspring events signed with X-FS-Signature. Answers 202 with the ids of the handled events, one per line.
// @Tags         Fastspring
// @Accept       json
// @Produce      plain
// @Param        X-FS-Signature  header  string  true  "base64 HMAC-SHA256 of the body"
// @Success      202  {string}  string  "newline separated event ids"
// @Failure      400  {object}  RespOK
// @Failure      401  {object}  RespOK
// @Failure      413  {object}  RespOK
// @Failure      503  {object}  RespOK
// @Router       /api/v1/fastspring/webhook [post]
func ApiFastspringWebhook(h WebhookHandler, maxBody int64, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		lg := logctx.FromGin(c, log)
		if maxBody > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBody)
		}
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			lg.Warnw("webhook_body_read_failed", "error", err)
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, response.ErrorT[any](response.APIResponseCodeTooLarge, err.Error()))
				return
			}
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}

		res, err := h.HandleWebhook(c.Request.Context(), body, c.GetHeader(webhook.SignatureHeader))
		if err != nil {
			status, code := webhookErrorStatus(err)
			c.JSON(status, response.ErrorT[any](code, err.Error()))
			return
		}
		c.String(http.StatusAccepted, res.Body())
	}
}

func webhookErrorStatus(err error) (int, response.APIResponseCode) {
	switch {
	case errors.Is(err, webhook.ErrSignatureSecretMissing):
		return http.StatusServiceUnavailable, response.APIResponseCodeUnavailable
	case errors.Is(err, webhook.ErrMissingSignature), errors.Is(err, webhook.ErrInvalidSignature):
		return http.StatusUnauthorized, response.APIResponseCodeUnauthorized
	case errors.Is(err, webhook.ErrMalformedBatch):
		return http.StatusBadRequest, response.APIResponseCodeBadRequest
	default:
		return http.StatusInternalServerError, response.APIResponseCodeError
	}
}

// RegisterFastspringWebhookRoutes mounts the webhook under r. The same handler
// is served at /webhook on the root router for older Fastspring configurations.
func RegisterFastspringWebhookRoutes(r gin.IRouter, h WebhookHandler, maxBody int64, log *zap.SugaredLogger) {
	r.POST("/fastspring/webhook", ApiFastspringWebhook(h, maxBody, log))
}

func RegisterLegacyWebhookRoute(r gin.IRouter, h WebhookHandler, maxBody int64, log *zap.SugaredLogger) {
	r.POST("/webhook", ApiFastspringWebhook(h, maxBody, log))
}
