package usecase_test

import (
	"context"
	"testing"

	"app/internal/domain/model"
	"app/internal/gateway/mercadopago"
	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func newWebhookUC(gw *GatewayMock) (*usecase.WebhookUsecase, *txReposStub) {
	payments, r := newPaymentUC(gw)
	return usecase.NewWebhookUsecase(payments, gw, zap.NewNop(), nil), r
}

func TestWebhook_IgnoresUnknownTopic(t *testing.T) {
	gw := new(GatewayMock)
	uc, _ := newWebhookUC(gw)

	res, err := uc.HandleNotification(context.Background(), usecase.WebhookInput{
		PaymentID: "42", Topic: "merchant_order",
	})
	assert.NoError(t, err)
	assert.False(t, res.Handled)
	assert.Equal(t, "ignored_topic", res.Reason)
	gw.AssertNotCalled(t, "FetchByID", mock.Anything, mock.Anything)
}

func TestWebhook_IgnoresMissingPaymentID(t *testing.T) {
	gw := new(GatewayMock)
	uc, _ := newWebhookUC(gw)

	res, err := uc.HandleNotification(context.Background(), usecase.WebhookInput{Topic: "payment"})
	assert.NoError(t, err)
	assert.False(t, res.Handled)
	assert.Equal(t, "missing_payment_id", res.Reason)
}

// 通知body内の情報は使わず、必ずIDで取り直した結果でsettleする。
func TestWebhook_FetchesAndSettles(t *testing.T) {
	gw := new(GatewayMock)
	uc, r := newWebhookUC(gw)

	gw.On("FetchByID", mock.Anything, "42").Return(mercadopago.Payment{
		ID: 42, Status: "approved", ExternalReference: "o1",
	}, nil)

	order := pendingOrder(150000)
	r.orders.On("SetPaymentResult", mock.Anything, "o1", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	r.orders.On("FindByIDForUpdate", mock.Anything, "o1").Return(order, nil)
	r.orders.On("MarkPaid", mock.Anything, "o1").Return(true, nil)
	r.products.On("FindByIDsForUpdate", mock.Anything, []string{"p1"}).
		Return([]model.Product{{ID: "p1", Stock: 5}}, nil)
	r.products.On("UpdateStock", mock.Anything, "p1", int64(4)).Return(nil)

	res, err := uc.HandleNotification(context.Background(), usecase.WebhookInput{
		PaymentID: "42", Topic: "payment",
	})
	assert.NoError(t, err)
	assert.True(t, res.Handled)
	r.products.AssertExpectations(t)
}

// external_referenceが無い場合はmetadataのorder_idへフォールバックする。
func TestWebhook_ResolvesOrderFromMetadata(t *testing.T) {
	gw := new(GatewayMock)
	uc, r := newWebhookUC(gw)

	gw.On("FetchByID", mock.Anything, "42").Return(mercadopago.Payment{
		ID: 42, Status: "rejected",
		Metadata: map[string]any{"order_id": "o1"},
	}, nil)

	rejected := pendingOrder(150000)
	rejected.Status = model.OrderStatusRejected
	r.orders.On("SetPaymentResult", mock.Anything, "o1", "42", "rejected", "").Return(nil)
	r.orders.On("MarkRejected", mock.Anything, "o1").Return(true, nil)
	r.orders.On("FindByID", mock.Anything, "o1").Return(rejected, nil)

	res, err := uc.HandleNotification(context.Background(), usecase.WebhookInput{
		PaymentID: "42", Topic: "payment",
	})
	assert.NoError(t, err)
	assert.True(t, res.Handled)
	r.orders.AssertExpectations(t)
}

// 注文へ紐付けられない通知は処理せずack対象として返す。
func TestWebhook_UnresolvedOrderAcked(t *testing.T) {
	gw := new(GatewayMock)
	uc, _ := newWebhookUC(gw)

	gw.On("FetchByID", mock.Anything, "42").Return(mercadopago.Payment{ID: 42, Status: "approved"}, nil)

	res, err := uc.HandleNotification(context.Background(), usecase.WebhookInput{
		PaymentID: "42", Topic: "payment",
	})
	assert.NoError(t, err)
	assert.False(t, res.Handled)
	assert.Equal(t, "unresolved_order", res.Reason)
}

// 消えた注文への遅延通知もエラーにしない（再送ループを断ち切る）。
func TestWebhook_UnknownOrderAcked(t *testing.T) {
	gw := new(GatewayMock)
	uc, r := newWebhookUC(gw)

	gw.On("FetchByID", mock.Anything, "42").Return(mercadopago.Payment{
		ID: 42, Status: "approved", ExternalReference: "gone",
	}, nil)
	r.orders.On("SetPaymentResult", mock.Anything, "gone", mock.Anything, mock.Anything, mock.Anything).
		Return(repo.ErrNotFound)

	res, err := uc.HandleNotification(context.Background(), usecase.WebhookInput{
		PaymentID: "42", Topic: "payment",
	})
	assert.NoError(t, err)
	assert.False(t, res.Handled)
	assert.Equal(t, "order_not_found", res.Reason)
}

// 同じ通知の再送はsettle側の冪等性で吸収される。
func TestWebhook_ReplayIsIdempotent(t *testing.T) {
	gw := new(GatewayMock)
	uc, r := newWebhookUC(gw)

	gw.On("FetchByID", mock.Anything, "42").Return(mercadopago.Payment{
		ID: 42, Status: "approved", ExternalReference: "o1",
	}, nil)

	paid := pendingOrder(150000)
	paid.Status = model.OrderStatusPaid
	r.orders.On("SetPaymentResult", mock.Anything, "o1", "42", "approved", "").Return(nil)
	r.orders.On("FindByIDForUpdate", mock.Anything, "o1").Return(paid, nil)

	for i := 0; i < 3; i++ {
		res, err := uc.HandleNotification(context.Background(), usecase.WebhookInput{
			PaymentID: "42", Topic: "payment",
		})
		assert.NoError(t, err)
		assert.True(t, res.Handled)
	}

	r.products.AssertNotCalled(t, "UpdateStock", mock.Anything, mock.Anything, mock.Anything)
	r.orders.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything)
}
