package usecase

import (
	"context"
	"encoding/json"
	"strconv"

	"app/internal/apperr"
	"app/internal/domain/model"
	"app/internal/gateway/mercadopago"
	"app/internal/metrics"
	"app/internal/pricing"
	repo "app/internal/repository"

	"go.uber.org/zap"
)

// PaymentGateway は外部ゲートウェイ境界。課金と決済の取り直しのみ。
type PaymentGateway interface {
	Charge(ctx context.Context, req mercadopago.ChargeRequest) (mercadopago.Payment, error)
	FetchByID(ctx context.Context, id string) (mercadopago.Payment, error)
}

type PaymentUsecase struct {
	tx        repo.TransactionManager
	orders    repo.OrderRepository
	customers repo.CustomerRepository
	saved     repo.SavedPaymentMethodRepository
	orderUC   *OrderUsecase
	gateway   PaymentGateway
	log       *zap.Logger
	mset      *metrics.Metrics
	baseURL   string
}

func NewPaymentUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	customers repo.CustomerRepository,
	saved repo.SavedPaymentMethodRepository,
	orderUC *OrderUsecase,
	gateway PaymentGateway,
	log *zap.Logger,
	mset *metrics.Metrics,
	baseURL string,
) *PaymentUsecase {
	return &PaymentUsecase{
		tx:        tx,
		orders:    orders,
		customers: customers,
		saved:     saved,
		orderUC:   orderUC,
		gateway:   gateway,
		log:       log,
		mset:      mset,
		baseURL:   baseURL,
	}
}

// ゲートウェイのstatus語彙を注文statusへ写像する。
// approved→paid、pending/in_process→pending（未確定のまま）、他はrejected。
func normalizePaymentStatus(status string) model.OrderStatus {
	switch status {
	case "approved":
		return model.OrderStatusPaid
	case "pending", "in_process":
		return model.OrderStatusPending
	default:
		return model.OrderStatusRejected
	}
}

type InitPaymentInput struct {
	Shipping         ShippingInput
	Items            []CartItemInput
	TotalAmount      json.Number // クライアント申告値。検算にのみ使う
	SaveCustomerData bool
}

type PayerOutput struct {
	Email     *string `json:"email"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}

type SavedMethodOutput struct {
	ID              string  `json:"id"`
	Brand           string  `json:"brand"`
	Last4           string  `json:"last4"`
	ExpirationMonth *int    `json:"expirationMonth"`
	ExpirationYear  *int    `json:"expirationYear"`
	CardholderName  *string `json:"cardholderName"`
	IsDefault       bool    `json:"isDefault"`
}

type InitPaymentOutput struct {
	OrderID             string              `json:"orderId"`
	Amount              float64             `json:"amount"`
	Payer               PayerOutput         `json:"payer"`
	SavedPaymentMethods []SavedMethodOutput `json:"savedPaymentMethods"`
}

// InitPayment はpending注文を作り、決済ウィジェット初期化用の情報を返す。
// クライアント申告のtotalAmountはサーバー計算値との検算にだけ使う。
func (u *PaymentUsecase) InitPayment(ctx context.Context, customer *CustomerClaims, in InitPaymentInput) (InitPaymentOutput, error) {
	order, err := u.orderUC.CreatePendingOrder(ctx, customer, CreatePendingOrderInput{
		Shipping:         in.Shipping,
		Items:            in.Items,
		SaveCustomerData: in.SaveCustomerData,
	})
	if err != nil {
		return InitPaymentOutput{}, err
	}

	computed := pricing.FormatCentsToNumber(order.TotalAmount)

	//改ざん/UIバグ検出。1セントを超えるズレは拒否
	if raw := in.TotalAmount.String(); raw != "" && raw != "0" {
		declared, err := pricing.ParsePriceToCents(raw)
		if err != nil {
			return InitPaymentOutput{}, err
		}
		diff := declared - order.TotalAmount
		if diff < -1 || diff > 1 {
			return InitPaymentOutput{}, apperr.Conflict("total_mismatch", "total mismatch")
		}
	}

	out := InitPaymentOutput{
		OrderID:             order.ID,
		Amount:              computed,
		SavedPaymentMethods: []SavedMethodOutput{},
	}

	if customer != nil {
		c, err := u.customers.FindByID(ctx, customer.ID)
		if err == nil {
			email := c.Email
			out.Payer = PayerOutput{Email: &email, FirstName: c.FirstName, LastName: c.LastName}
		}

		methods, err := u.saved.ListByCustomerID(ctx, customer.ID)
		if err != nil {
			return InitPaymentOutput{}, err
		}
		for _, m := range methods {
			out.SavedPaymentMethods = append(out.SavedPaymentMethods, toSavedMethodOutput(m))
		}
	}

	return out, nil
}

type ProcessPaymentInput struct {
	OrderID               string      `json:"orderId"`
	Token                 string      `json:"token"`
	PaymentMethodID       string      `json:"payment_method_id"`
	IssuerID              string      `json:"issuer_id"`
	Installments          int         `json:"installments"`
	TransactionAmount     json.Number `json:"transaction_amount"`
	PayerEmail            string      `json:"-"`
	SavePaymentMethod     bool        `json:"savePaymentMethod"`
	SelectedSavedMethodID string      `json:"selectedSavedMethodId"`
}

type ProcessPaymentOutput struct {
	PaymentID     string `json:"paymentId,omitempty"`
	PaymentStatus string `json:"paymentStatus,omitempty"`
	StatusDetail  string `json:"statusDetail,omitempty"`
	Status        string `json:"status,omitempty"`
	OrderStatus   string `json:"orderStatus"`
}

// ProcessPayment は同期課金パス。金額検証→トークン解決→課金→settle。
func (u *PaymentUsecase) ProcessPayment(ctx context.Context, customer *CustomerClaims, in ProcessPaymentInput) (ProcessPaymentOutput, error) {
	if in.OrderID == "" || in.PaymentMethodID == "" || in.TransactionAmount.String() == "" || in.PayerEmail == "" {
		return ProcessPaymentOutput{}, apperr.Validation("missing_payment_data", "missing payment data")
	}

	order, err := u.orders.FindByID(ctx, in.OrderID)
	if err == repo.ErrNotFound {
		return ProcessPaymentOutput{}, apperr.NotFound("order_not_found", "order not found")
	}
	if err != nil {
		return ProcessPaymentOutput{}, err
	}

	//すでに支払済みなら再課金せずに返す
	if order.Status == model.OrderStatusPaid {
		return ProcessPaymentOutput{Status: "approved", OrderStatus: string(model.OrderStatusPaid)}, nil
	}

	//申告額はサーバー保持の確定金額と完全一致でなければ課金しない
	amountInCents, err := pricing.ParsePriceToCents(in.TransactionAmount.String())
	if err != nil {
		return ProcessPaymentOutput{}, err
	}
	if amountInCents != order.TotalAmount {
		return ProcessPaymentOutput{}, apperr.Conflict("amount_mismatch", "amount mismatch")
	}

	//トークン解決。保存済みカードは所有者のみ使える
	effectiveToken := in.Token
	if effectiveToken == "" && in.SelectedSavedMethodID != "" && customer != nil {
		saved, err := u.saved.FindByID(ctx, in.SelectedSavedMethodID)
		if err == nil && saved.CustomerID == customer.ID && saved.CardToken != "" {
			effectiveToken = saved.CardToken
		}
	}
	if effectiveToken == "" {
		return ProcessPaymentOutput{}, apperr.Validation("missing_card_token", "missing card token")
	}

	var notificationURL string
	if u.baseURL != "" {
		notificationURL = u.baseURL + "/api/webhooks/mercadopago"
	}

	amount, _ := in.TransactionAmount.Float64()
	installments := in.Installments
	if installments < 1 {
		installments = 1
	}

	payment, err := u.gateway.Charge(ctx, mercadopago.ChargeRequest{
		TransactionAmount: amount,
		Token:             effectiveToken,
		Description:       "Pedido " + order.ID,
		Installments:      installments,
		PaymentMethodID:   in.PaymentMethodID,
		IssuerID:          in.IssuerID,
		Payer:             mercadopago.Payer{Email: in.PayerEmail},
		NotificationURL:   notificationURL,
		ExternalReference: order.ID,
		Metadata:          map[string]any{"order_id": order.ID},
	})
	if err != nil {
		return ProcessPaymentOutput{}, err
	}

	paymentStatus := payment.Status
	if paymentStatus == "" {
		paymentStatus = "rejected"
	}
	paymentID := strconv.FormatInt(payment.ID, 10)

	if u.mset != nil {
		u.mset.PaymentsProcessed.WithLabelValues(paymentStatus).Inc()
	}

	settled, err := u.Settle(ctx, order.ID, GatewayOutcome{
		PaymentID:    paymentID,
		Status:       paymentStatus,
		StatusDetail: payment.StatusDetail,
	})
	if err != nil {
		return ProcessPaymentOutput{}, err
	}

	//希望があればカードの表示メタデータとトークンを保存する（生カード情報は持たない）
	if in.SavePaymentMethod && customer != nil && payment.Card != nil && payment.Card.LastFourDigits != "" {
		u.savePaymentMethod(ctx, customer.ID, effectiveToken, in, payment)
	}

	return ProcessPaymentOutput{
		PaymentID:     paymentID,
		PaymentStatus: paymentStatus,
		StatusDetail:  payment.StatusDetail,
		OrderStatus:   string(settled.Status),
	}, nil
}

func (u *PaymentUsecase) savePaymentMethod(ctx context.Context, customerID string, token string, in ProcessPaymentInput, payment mercadopago.Payment) {
	brand := payment.PaymentMethodID
	if brand == "" {
		brand = in.PaymentMethodID
	}

	m := model.SavedPaymentMethod{
		CustomerID:      customerID,
		CardToken:       token,
		Brand:           brand,
		Last4:           payment.Card.LastFourDigits,
		PaymentMethodID: brand,
	}
	if payment.Card.ExpirationMonth > 0 {
		v := payment.Card.ExpirationMonth
		m.ExpirationMonth = &v
	}
	if payment.Card.ExpirationYear > 0 {
		v := payment.Card.ExpirationYear
		m.ExpirationYear = &v
	}
	if payment.Card.Cardholder != nil && payment.Card.Cardholder.Name != "" {
		v := payment.Card.Cardholder.Name
		m.CardholderName = &v
	}
	if in.IssuerID != "" {
		v := in.IssuerID
		m.IssuerID = &v
	}

	//保存失敗は決済結果に影響させない
	if _, err := u.saved.Create(ctx, m); err != nil && u.log != nil {
		u.log.Warn("failed to save payment method", zap.String("customer_id", customerID), zap.Error(err))
	}
}

// GatewayOutcome はゲートウェイが報告した決済結果。
type GatewayOutcome struct {
	PaymentID    string
	Status       string // ゲートウェイの生status
	StatusDetail string
}

// Settle は決済結果を注文へ適用する。同期応答・Webhook・リトライの
// どこから何度呼ばれても、在庫への副作用は注文ごとに最大1回。
func (u *PaymentUsecase) Settle(ctx context.Context, orderID string, outcome GatewayOutcome) (model.Order, error) {
	mapped := normalizePaymentStatus(outcome.Status)

	//メタデータは結果を問わず常に残す（監査・サポート用）。statusはここでは動かさない
	if err := u.orders.SetPaymentResult(ctx, orderID, outcome.PaymentID, outcome.Status, outcome.StatusDetail); err != nil {
		if err == repo.ErrNotFound {
			return model.Order{}, apperr.NotFound("order_not_found", "order not found")
		}
		return model.Order{}, err
	}

	switch mapped {
	case model.OrderStatusPaid:
		return u.commitSettlement(ctx, orderID)
	case model.OrderStatusRejected:
		//paidラッチがあるので支払済み注文がrejectedに落ちることはない
		if _, err := u.orders.MarkRejected(ctx, orderID); err != nil {
			return model.Order{}, err
		}
	}
	//pending/in_processは未確定のまま。後続のWebhookで再settleされる

	return u.orders.FindByID(ctx, orderID)
}

// commitSettlement は冪等な確定処理。注文行をロックして状態を読み直し、
// pendingのときだけ在庫を減らしてpaidにする。
func (u *PaymentUsecase) commitSettlement(ctx context.Context, orderID string) (model.Order, error) {
	var settled model.Order
	var reconciliation error

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		order, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err == repo.ErrNotFound {
			return apperr.NotFound("order_not_found", "order not found")
		}
		if err != nil {
			return err
		}

		//すでに支払済みなら何もしない（at-most-once保証）
		if order.Status == model.OrderStatusPaid {
			settled = order
			return nil
		}

		//rejectedからpaidへは戻さない
		if order.Status == model.OrderStatusRejected {
			settled = order
			if u.log != nil {
				u.log.Warn("approved outcome for rejected order ignored",
					zap.String("order_id", order.ID),
					zap.String("payment_id", order.PaymentID))
			}
			return nil
		}

		ids := make([]string, 0, len(order.Items))
		want := map[string]int64{}
		for _, item := range order.Items {
			if item.ProductID == nil {
				continue
			}
			if _, seen := want[*item.ProductID]; !seen {
				ids = append(ids, *item.ProductID)
			}
			want[*item.ProductID] += item.Quantity
		}

		//注文作成時のチェックから時間が経っている。行ロック下で在庫を再確認する
		products, err := r.Products().FindByIDsForUpdate(ctx, ids)
		if err != nil {
			return err
		}

		productByID := map[string]model.Product{}
		for _, p := range products {
			productByID[p.ID] = p
		}

		for _, id := range ids {
			p, ok := productByID[id]
			if !ok || p.Stock < want[id] {
				//決済は成功済みなのに在庫が確保できない。注文をrejectedへ落とし、
				//予約済みのstatusDetailで人手対応（返金）に回す
				if err := r.Orders().SetPaymentResult(ctx, order.ID, order.PaymentID, "rejected", model.StatusDetailInsufficientStock); err != nil {
					return err
				}
				if _, err := r.Orders().MarkRejected(ctx, order.ID); err != nil {
					return err
				}
				reconciliation = apperr.Reconciliation(model.StatusDetailInsufficientStock, "payment succeeded but stock could not be honored")
				return nil //rejected状態を確定させるためrollbackしない
			}
		}

		if err := applyDecrement(ctx, r, products, want); err != nil {
			return err
		}

		transitioned, err := r.Orders().MarkPaid(ctx, order.ID)
		if err != nil {
			return err
		}
		if !transitioned {
			//ロック下でpendingを確認済みなので来ないはずだが、来たら減算ごと巻き戻す
			return apperr.Internal("settlement_conflict", "order state changed during settlement")
		}

		if err := r.Orders().SetPaymentResult(ctx, order.ID, order.PaymentID, "approved", order.StatusDetail); err != nil {
			return err
		}

		order.Status = model.OrderStatusPaid
		order.PaymentStatus = "approved"
		settled = order
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}

	if reconciliation != nil {
		if u.log != nil {
			u.log.Error("settlement failed after successful payment",
				zap.String("order_id", orderID),
				zap.String("status_detail", model.StatusDetailInsufficientStock))
		}
		return model.Order{}, reconciliation
	}

	return settled, nil
}

func toSavedMethodOutput(m model.SavedPaymentMethod) SavedMethodOutput {
	return SavedMethodOutput{
		ID:              m.ID,
		Brand:           m.Brand,
		Last4:           m.Last4,
		ExpirationMonth: m.ExpirationMonth,
		ExpirationYear:  m.ExpirationYear,
		CardholderName:  m.CardholderName,
		IsDefault:       m.IsDefault,
	}
}
