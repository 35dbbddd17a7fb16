package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"app/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// SignatureVerifier はWebhookのHMAC署名検証。
type SignatureVerifier interface {
	VerifySignature(signatureHeader string, requestID string, dataID string) bool
}

// WebhookProcessor は検証済み通知の処理。
type WebhookProcessor interface {
	HandleNotification(ctx context.Context, in usecase.WebhookInput) (usecase.WebhookResult, error)
}

type WebhookHandler struct {
	uc       WebhookProcessor
	verifier SignatureVerifier
	log      *zap.Logger
}

func NewWebhookHandler(uc WebhookProcessor, verifier SignatureVerifier, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{uc: uc, verifier: verifier, log: log}
}

func (h *WebhookHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/webhooks/mercadopago", h.mercadopago)
}

// 通知bodyの形（必要な部分だけ）。
type webhookBody struct {
	Type string `json:"type"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// ゲートウェイへのackは常に200。処理失敗をステータスで返すと
// 無限再送になるため、失敗はログとメトリクスにだけ残す。
func (h *WebhookHandler) mercadopago(c echo.Context) error {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		h.log.Warn("failed to read webhook body", zap.Error(err))
		return c.JSON(http.StatusOK, map[string]any{"ok": true})
	}

	var body webhookBody
	//壊れたJSONでもackする
	_ = json.Unmarshal(raw, &body)

	//data.idはクエリでも届く（通知方式による）
	paymentID := body.Data.ID
	if paymentID == "" {
		paymentID = c.QueryParam("data.id")
	}
	if paymentID == "" {
		paymentID = c.QueryParam("id")
	}

	topic := body.Type
	if topic == "" {
		topic = c.QueryParam("type")
	}
	if topic == "" {
		topic = c.QueryParam("topic")
	}

	//署名はdata.id+X-Request-Idに対して検証する
	if !h.verifier.VerifySignature(c.Request().Header.Get("X-Signature"), c.Request().Header.Get("X-Request-Id"), paymentID) {
		h.log.Warn("webhook signature verification failed",
			zap.String("payment_id", paymentID),
			zap.String("request_id", c.Request().Header.Get("X-Request-Id")))
		return c.JSON(http.StatusOK, map[string]any{"ok": true, "verified": false})
	}

	res, err := h.uc.HandleNotification(c.Request().Context(), usecase.WebhookInput{
		PaymentID: paymentID,
		Topic:     topic,
	})
	if err != nil {
		h.log.Error("webhook processing failed",
			zap.String("payment_id", paymentID), zap.Error(err))
		return c.JSON(http.StatusOK, map[string]any{"ok": true, "handled": false})
	}

	return c.JSON(http.StatusOK, map[string]any{"ok": true, "handled": res.Handled})
}
