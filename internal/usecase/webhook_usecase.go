package usecase

import (
	"context"
	"strconv"

	"app/internal/apperr"
	"app/internal/metrics"

	"go.uber.org/zap"
)

type WebhookUsecase struct {
	payments *PaymentUsecase
	gateway  PaymentGateway
	log      *zap.Logger
	mset     *metrics.Metrics
}

func NewWebhookUsecase(payments *PaymentUsecase, gateway PaymentGateway, log *zap.Logger, mset *metrics.Metrics) *WebhookUsecase {
	return &WebhookUsecase{payments: payments, gateway: gateway, log: log, mset: mset}
}

type WebhookInput struct {
	PaymentID string
	Topic     string
}

// WebhookResult は受信結果。ackはハンドラ側で常に200を返すため、
// ここでは処理の成否だけを報告する。
type WebhookResult struct {
	Handled bool
	Reason  string
}

// HandleNotification はゲートウェイ通知を処理する。通知body内の金額や
// statusは信用せず、必ず決済をIDで取り直してからsettleする。
// リトライ・再送・順序入替のどれが来てもsettle側の冪等性で吸収される。
func (u *WebhookUsecase) HandleNotification(ctx context.Context, in WebhookInput) (WebhookResult, error) {
	if u.mset != nil {
		u.mset.WebhooksReceived.Inc()
	}

	if in.Topic != "" && in.Topic != "payment" {
		return WebhookResult{Handled: false, Reason: "ignored_topic"}, nil
	}
	if in.PaymentID == "" {
		return WebhookResult{Handled: false, Reason: "missing_payment_id"}, nil
	}

	payment, err := u.gateway.FetchByID(ctx, in.PaymentID)
	if err != nil {
		u.log.Warn("failed to fetch payment for webhook",
			zap.String("payment_id", in.PaymentID), zap.Error(err))
		return WebhookResult{}, err
	}

	orderID := orderIDFromPayment(payment.ExternalReference, payment.Metadata)
	if orderID == "" {
		//注文へ紐付けられない通知。ackして捨てる（ゲートウェイの再送は止める）
		u.log.Warn("webhook payment has no order reference",
			zap.String("payment_id", in.PaymentID))
		return WebhookResult{Handled: false, Reason: "unresolved_order"}, nil
	}

	_, err = u.payments.Settle(ctx, orderID, GatewayOutcome{
		PaymentID:    strconv.FormatInt(payment.ID, 10),
		Status:       payment.Status,
		StatusDetail: payment.StatusDetail,
	})
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			//既に消えた注文への遅延通知。再送されても結果は同じなのでack
			u.log.Warn("webhook references unknown order",
				zap.String("payment_id", in.PaymentID), zap.String("order_id", orderID))
			return WebhookResult{Handled: false, Reason: "order_not_found"}, nil
		}
		return WebhookResult{}, err
	}

	u.log.Info("webhook settled",
		zap.String("payment_id", in.PaymentID),
		zap.String("order_id", orderID),
		zap.String("status", payment.Status))
	return WebhookResult{Handled: true}, nil
}

func orderIDFromPayment(externalReference string, metadata map[string]any) string {
	if externalReference != "" {
		return externalReference
	}
	for _, key := range []string{"order_id", "orderId"} {
		if v, ok := metadata[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
