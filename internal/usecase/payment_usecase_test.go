package usecase_test

import (
	"context"
	"encoding/json"
	"testing"

	"app/internal/apperr"
	"app/internal/domain/model"
	"app/internal/gateway/mercadopago"
	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// txスタブとdirectアクセスで同じmockを共有させる。
func newPaymentUC(gw *GatewayMock) (*usecase.PaymentUsecase, *txReposStub) {
	tx, r := newTxStub()
	orderUC := usecase.NewOrderUsecase(tx, nil)
	uc := usecase.NewPaymentUsecase(tx, r.orders, r.cust, r.saved, orderUC, gw, zap.NewNop(), nil, "https://shop.example.com")
	return uc, r
}

func pendingOrder(total int64) model.Order {
	pid := "p1"
	return model.Order{
		ID:          "o1",
		Status:      model.OrderStatusPending,
		TotalAmount: total,
		Items: []model.OrderItem{
			{ProductID: &pid, ProductName: "Yerba", ProductPrice: total, Quantity: 1},
		},
	}
}

func TestProcessPayment_MissingData(t *testing.T) {
	uc, _ := newPaymentUC(new(GatewayMock))

	_, err := uc.ProcessPayment(context.Background(), nil, usecase.ProcessPaymentInput{
		OrderID: "o1",
		Token:   "tok",
	})
	assertKind(t, err, apperr.KindValidation, "missing_payment_data")
}

func TestProcessPayment_OrderNotFound(t *testing.T) {
	uc, r := newPaymentUC(new(GatewayMock))
	r.orders.On("FindByID", mock.Anything, "missing").Return(model.Order{}, repo.ErrNotFound)

	_, err := uc.ProcessPayment(context.Background(), nil, usecase.ProcessPaymentInput{
		OrderID:           "missing",
		Token:             "tok",
		PaymentMethodID:   "visa",
		TransactionAmount: json.Number("100"),
		PayerEmail:        "a@b.com",
	})
	assertKind(t, err, apperr.KindNotFound, "order_not_found")
}

// 支払済み注文への再試行は課金せずに成功として返す。
func TestProcessPayment_AlreadyPaidShortCircuit(t *testing.T) {
	gw := new(GatewayMock)
	uc, r := newPaymentUC(gw)

	order := pendingOrder(150000)
	order.Status = model.OrderStatusPaid
	r.orders.On("FindByID", mock.Anything, "o1").Return(order, nil)

	out, err := uc.ProcessPayment(context.Background(), nil, usecase.ProcessPaymentInput{
		OrderID:           "o1",
		Token:             "tok",
		PaymentMethodID:   "visa",
		TransactionAmount: json.Number("1500"),
		PayerEmail:        "a@b.com",
	})
	assert.NoError(t, err)
	assert.Equal(t, "approved", out.Status)
	assert.Equal(t, "paid", out.OrderStatus)
	gw.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything)
}

// 申告額がサーバー保持の確定金額と合わなければ課金しない。
func TestProcessPayment_AmountMismatch(t *testing.T) {
	gw := new(GatewayMock)
	uc, r := newPaymentUC(gw)

	r.orders.On("FindByID", mock.Anything, "o1").Return(pendingOrder(150000), nil)

	_, err := uc.ProcessPayment(context.Background(), nil, usecase.ProcessPaymentInput{
		OrderID:           "o1",
		Token:             "tok",
		PaymentMethodID:   "visa",
		TransactionAmount: json.Number("1499.99"),
		PayerEmail:        "a@b.com",
	})
	assertKind(t, err, apperr.KindConflict, "amount_mismatch")
	gw.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything)
}

func TestProcessPayment_MissingCardToken(t *testing.T) {
	gw := new(GatewayMock)
	uc, r := newPaymentUC(gw)

	r.orders.On("FindByID", mock.Anything, "o1").Return(pendingOrder(150000), nil)

	_, err := uc.ProcessPayment(context.Background(), nil, usecase.ProcessPaymentInput{
		OrderID:           "o1",
		PaymentMethodID:   "visa",
		TransactionAmount: json.Number("1500"),
		PayerEmail:        "a@b.com",
	})
	assertKind(t, err, apperr.KindValidation, "missing_card_token")
}

// 他人の保存済みカードは使えない。
func TestProcessPayment_SavedMethodOwnershipEnforced(t *testing.T) {
	gw := new(GatewayMock)
	uc, r := newPaymentUC(gw)

	r.orders.On("FindByID", mock.Anything, "o1").Return(pendingOrder(150000), nil)
	r.saved.On("FindByID", mock.Anything, "card-1").Return(model.SavedPaymentMethod{
		ID: "card-1", CustomerID: "someone-else", CardToken: "tok-x",
	}, nil)

	customer := &usecase.CustomerClaims{ID: "cust-1"}
	_, err := uc.ProcessPayment(context.Background(), customer, usecase.ProcessPaymentInput{
		OrderID:               "o1",
		PaymentMethodID:       "visa",
		TransactionAmount:     json.Number("1500"),
		PayerEmail:            "a@b.com",
		SelectedSavedMethodID: "card-1",
	})
	assertKind(t, err, apperr.KindValidation, "missing_card_token")
	gw.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything)
}

// approvedの同期応答で在庫が減り、注文がpaidになる。
func TestProcessPayment_ApprovedDecrementsAndMarksPaid(t *testing.T) {
	gw := new(GatewayMock)
	uc, r := newPaymentUC(gw)

	order := pendingOrder(150000)
	r.orders.On("FindByID", mock.Anything, "o1").Return(order, nil)
	r.orders.On("FindByIDForUpdate", mock.Anything, "o1").Return(order, nil)
	r.orders.On("SetPaymentResult", mock.Anything, "o1", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	r.orders.On("MarkPaid", mock.Anything, "o1").Return(true, nil)
	r.products.On("FindByIDsForUpdate", mock.Anything, []string{"p1"}).
		Return([]model.Product{{ID: "p1", Stock: 5, Price: 150000}}, nil)
	r.products.On("UpdateStock", mock.Anything, "p1", int64(4)).Return(nil)

	gw.On("Charge", mock.Anything, mock.MatchedBy(func(req mercadopago.ChargeRequest) bool {
		return req.Token == "tok" &&
			req.ExternalReference == "o1" &&
			req.Description == "Pedido o1" &&
			req.NotificationURL == "https://shop.example.com/api/webhooks/mercadopago"
	})).Return(mercadopago.Payment{ID: 42, Status: "approved"}, nil)

	out, err := uc.ProcessPayment(context.Background(), nil, usecase.ProcessPaymentInput{
		OrderID:           "o1",
		Token:             "tok",
		PaymentMethodID:   "visa",
		TransactionAmount: json.Number("1500"),
		PayerEmail:        "a@b.com",
	})
	assert.NoError(t, err)
	assert.Equal(t, "42", out.PaymentID)
	assert.Equal(t, "approved", out.PaymentStatus)
	assert.Equal(t, "paid", out.OrderStatus)

	r.products.AssertExpectations(t)
	r.orders.AssertExpectations(t)
}

// rejectedは在庫に触れない。
func TestProcessPayment_RejectedNeverTouchesStock(t *testing.T) {
	gw := new(GatewayMock)
	uc, r := newPaymentUC(gw)

	order := pendingOrder(150000)
	rejected := order
	rejected.Status = model.OrderStatusRejected
	r.orders.On("FindByID", mock.Anything, "o1").Return(order, nil).Once()
	r.orders.On("SetPaymentResult", mock.Anything, "o1", "42", "rejected", "cc_rejected_insufficient_amount").Return(nil)
	r.orders.On("MarkRejected", mock.Anything, "o1").Return(true, nil)
	r.orders.On("FindByID", mock.Anything, "o1").Return(rejected, nil)

	gw.On("Charge", mock.Anything, mock.Anything).
		Return(mercadopago.Payment{ID: 42, Status: "rejected", StatusDetail: "cc_rejected_insufficient_amount"}, nil)

	out, err := uc.ProcessPayment(context.Background(), nil, usecase.ProcessPaymentInput{
		OrderID:           "o1",
		Token:             "tok",
		PaymentMethodID:   "visa",
		TransactionAmount: json.Number("1500"),
		PayerEmail:        "a@b.com",
	})
	assert.NoError(t, err)
	assert.Equal(t, "rejected", out.OrderStatus)

	r.products.AssertNotCalled(t, "FindByIDsForUpdate", mock.Anything, mock.Anything)
	r.products.AssertNotCalled(t, "UpdateStock", mock.Anything, mock.Anything, mock.Anything)
}

// 同じapprovedが何度届いても在庫の減算は1回だけ。
func TestSettle_IdempotentOnReplay(t *testing.T) {
	gw := new(GatewayMock)
	uc, r := newPaymentUC(gw)

	paid := pendingOrder(150000)
	paid.Status = model.OrderStatusPaid
	r.orders.On("SetPaymentResult", mock.Anything, "o1", "42", "approved", "").Return(nil)
	r.orders.On("FindByIDForUpdate", mock.Anything, "o1").Return(paid, nil)

	out, err := uc.Settle(context.Background(), "o1", usecase.GatewayOutcome{
		PaymentID: "42", Status: "approved",
	})
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, out.Status)

	r.products.AssertNotCalled(t, "FindByIDsForUpdate", mock.Anything, mock.Anything)
	r.orders.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything)
}

// rejected確定後にapprovedが届いてもpaidへは戻さない。
func TestSettle_RejectedOrderStaysRejected(t *testing.T) {
	gw := new(GatewayMock)
	uc, r := newPaymentUC(gw)

	rejected := pendingOrder(150000)
	rejected.Status = model.OrderStatusRejected
	r.orders.On("SetPaymentResult", mock.Anything, "o1", "42", "approved", "").Return(nil)
	r.orders.On("FindByIDForUpdate", mock.Anything, "o1").Return(rejected, nil)

	out, err := uc.Settle(context.Background(), "o1", usecase.GatewayOutcome{
		PaymentID: "42", Status: "approved",
	})
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusRejected, out.Status)

	r.orders.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything)
	r.products.AssertNotCalled(t, "UpdateStock", mock.Anything, mock.Anything, mock.Anything)
}

// pending/in_processは未確定のまま何も動かさない。
func TestSettle_PendingOutcomeLeavesOrderPending(t *testing.T) {
	gw := new(GatewayMock)
	uc, r := newPaymentUC(gw)

	order := pendingOrder(150000)
	r.orders.On("SetPaymentResult", mock.Anything, "o1", "42", "in_process", "").Return(nil)
	r.orders.On("FindByID", mock.Anything, "o1").Return(order, nil)

	out, err := uc.Settle(context.Background(), "o1", usecase.GatewayOutcome{
		PaymentID: "42", Status: "in_process",
	})
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, out.Status)

	r.orders.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything)
	r.orders.AssertNotCalled(t, "MarkRejected", mock.Anything, mock.Anything)
}

// 在庫が尽きた商品は行ごと消える。
func TestSettle_ExhaustedStockDeletesProduct(t *testing.T) {
	gw := new(GatewayMock)
	uc, r := newPaymentUC(gw)

	order := pendingOrder(150000)
	order.Items[0].Quantity = 3
	r.orders.On("SetPaymentResult", mock.Anything, "o1", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	r.orders.On("FindByIDForUpdate", mock.Anything, "o1").Return(order, nil)
	r.orders.On("MarkPaid", mock.Anything, "o1").Return(true, nil)
	r.products.On("FindByIDsForUpdate", mock.Anything, []string{"p1"}).
		Return([]model.Product{{ID: "p1", Stock: 3}}, nil)
	r.products.On("Delete", mock.Anything, "p1").Return(nil)

	out, err := uc.Settle(context.Background(), "o1", usecase.GatewayOutcome{
		PaymentID: "42", Status: "approved",
	})
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, out.Status)

	r.products.AssertExpectations(t)
	r.products.AssertNotCalled(t, "UpdateStock", mock.Anything, mock.Anything, mock.Anything)
}

// 決済成功後に在庫を確保できなければ注文をrejectedへ落とし、照合エラーを返す。
func TestSettle_InsufficientStockAfterPayment(t *testing.T) {
	gw := new(GatewayMock)
	uc, r := newPaymentUC(gw)

	order := pendingOrder(150000)
	order.Items[0].Quantity = 5
	r.orders.On("SetPaymentResult", mock.Anything, "o1", "42", "approved", "").Return(nil).Once()
	r.orders.On("FindByIDForUpdate", mock.Anything, "o1").Return(order, nil)
	r.orders.On("SetPaymentResult", mock.Anything, "o1", mock.Anything, "rejected", model.StatusDetailInsufficientStock).Return(nil).Once()
	r.orders.On("MarkRejected", mock.Anything, "o1").Return(true, nil)
	r.products.On("FindByIDsForUpdate", mock.Anything, []string{"p1"}).
		Return([]model.Product{{ID: "p1", Stock: 2}}, nil)

	_, err := uc.Settle(context.Background(), "o1", usecase.GatewayOutcome{
		PaymentID: "42", Status: "approved",
	})
	assertKind(t, err, apperr.KindReconciliation, model.StatusDetailInsufficientStock)

	r.orders.AssertExpectations(t)
	r.products.AssertNotCalled(t, "UpdateStock", mock.Anything, mock.Anything, mock.Anything)
	r.orders.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything)
}

// ゲートウェイ到達不能なら結果不明のままエラーにし、状態は動かさない。
func TestProcessPayment_GatewayUnreachable(t *testing.T) {
	gw := new(GatewayMock)
	uc, r := newPaymentUC(gw)

	r.orders.On("FindByID", mock.Anything, "o1").Return(pendingOrder(150000), nil)
	gw.On("Charge", mock.Anything, mock.Anything).
		Return(mercadopago.Payment{}, apperr.Gateway("gateway_unreachable", "request failed"))

	_, err := uc.ProcessPayment(context.Background(), nil, usecase.ProcessPaymentInput{
		OrderID:           "o1",
		Token:             "tok",
		PaymentMethodID:   "visa",
		TransactionAmount: json.Number("1500"),
		PayerEmail:        "a@b.com",
	})
	assertKind(t, err, apperr.KindGateway, "gateway_unreachable")

	r.orders.AssertNotCalled(t, "SetPaymentResult", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestInitPayment_TotalMismatchRejected(t *testing.T) {
	gw := new(GatewayMock)
	uc, r := newPaymentUC(gw)

	r.products.On("FindByIDs", mock.Anything, []string{"p1"}).
		Return([]model.Product{{ID: "p1", Price: 150000, Stock: 5}}, nil)
	r.orders.On("Create", mock.Anything, mock.AnythingOfType("model.Order")).
		Return(model.Order{ID: "o1", TotalAmount: 150000}, nil)

	_, err := uc.InitPayment(context.Background(), nil, usecase.InitPaymentInput{
		Shipping:    validShipping(),
		Items:       []usecase.CartItemInput{{ProductID: "p1", Quantity: 1}},
		TotalAmount: json.Number("999"),
	})
	assertKind(t, err, apperr.KindConflict, "total_mismatch")
}

func TestInitPayment_ReturnsPrefillForCustomer(t *testing.T) {
	gw := new(GatewayMock)
	uc, r := newPaymentUC(gw)

	first := "Taro"
	r.products.On("FindByIDs", mock.Anything, []string{"p1"}).
		Return([]model.Product{{ID: "p1", Price: 150000, Stock: 5}}, nil)
	r.orders.On("Create", mock.Anything, mock.AnythingOfType("model.Order")).
		Return(model.Order{ID: "o1", TotalAmount: 150000}, nil)
	r.cust.On("FindByID", mock.Anything, "cust-1").
		Return(model.Customer{ID: "cust-1", Email: "taro@example.com", FirstName: &first}, nil)
	r.saved.On("ListByCustomerID", mock.Anything, "cust-1").
		Return([]model.SavedPaymentMethod{{ID: "card-1", Brand: "visa", Last4: "4242"}}, nil)

	out, err := uc.InitPayment(context.Background(), &usecase.CustomerClaims{ID: "cust-1"}, usecase.InitPaymentInput{
		Shipping:    validShipping(),
		Items:       []usecase.CartItemInput{{ProductID: "p1", Quantity: 1}},
		TotalAmount: json.Number("1500"),
	})
	assert.NoError(t, err)
	assert.Equal(t, "o1", out.OrderID)
	assert.Equal(t, 1500.0, out.Amount)
	if assert.NotNil(t, out.Payer.Email) {
		assert.Equal(t, "taro@example.com", *out.Payer.Email)
	}
	assert.Len(t, out.SavedPaymentMethods, 1)
	assert.Equal(t, "4242", out.SavedPaymentMethods[0].Last4)
}
