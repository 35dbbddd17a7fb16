package usecase

import (
	"context"
	"strings"

	"app/internal/apperr"
	"app/internal/domain/model"
	"app/internal/metrics"
	"app/internal/pricing"
	repo "app/internal/repository"
)

// 認証済みユーザーの識別子。middlewareがJWTから復元する
type CustomerClaims struct {
	ID    string
	Email string
}

type OrderUsecase struct {
	tx   repo.TransactionManager
	mset *metrics.Metrics
}

func NewOrderUsecase(tx repo.TransactionManager, mset *metrics.Metrics) *OrderUsecase {
	return &OrderUsecase{tx: tx, mset: mset}
}

type CartItemInput struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

type ShippingInput struct {
	CustomerName   string `json:"customerName"`
	Province       string `json:"province"`
	City           string `json:"city"`
	Address1       string `json:"address1"`
	Address2       string `json:"address2"`
	PostalCode     string `json:"postalCode"`
	Phone          string `json:"phone"`
	DeliveryMethod string `json:"deliveryMethod"`
}

type CreatePendingOrderInput struct {
	Shipping         ShippingInput
	Items            []CartItemInput
	SaveCustomerData bool
}

type OrderItemOutput struct {
	ProductID    *string `json:"productId"`
	ProductName  string  `json:"productName"`
	ProductPrice float64 `json:"productPrice"` // 表示用
	ProductImage string  `json:"productImage"`
	Quantity     int64   `json:"quantity"`
}

type OrderOutput struct {
	ID             string            `json:"id"`
	CustomerName   string            `json:"customerName"`
	Province       string            `json:"province"`
	City           string            `json:"city"`
	Address1       string            `json:"address1"`
	Address2       *string           `json:"address2"`
	PostalCode     string            `json:"postalCode"`
	Phone          string            `json:"phone"`
	DeliveryMethod string            `json:"deliveryMethod"`
	TotalAmount    float64           `json:"totalAmount"` // 表示用
	Status         string            `json:"status"`
	PaymentStatus  string            `json:"paymentStatus"`
	StatusDetail   string            `json:"statusDetail"`
	Items          []OrderItemOutput `json:"items"`
}

// CreatePendingOrder はカートからpending注文を組み立てる。
// ここでは在庫チェックのみで減算しない（確定減算はsettlement側）。
// 合計金額は現在のカタログ価格から再計算し、クライアント申告値は使わない。
func (u *OrderUsecase) CreatePendingOrder(ctx context.Context, customer *CustomerClaims, in CreatePendingOrderInput) (model.Order, error) {
	s := in.Shipping

	//必須の配送先情報
	if s.CustomerName == "" || s.Province == "" || s.City == "" || s.Address1 == "" ||
		s.PostalCode == "" || s.Phone == "" || s.DeliveryMethod == "" {
		return model.Order{}, apperr.Validation("missing_customer_data", "missing customer data")
	}

	if len(in.Items) == 0 {
		return model.Order{}, apperr.Validation("cart_empty", "cart is empty")
	}

	delivery, ok := model.ParseDeliveryMethod(s.DeliveryMethod)
	if !ok {
		return model.Order{}, apperr.Validation("invalid_delivery_method", "invalid delivery method")
	}

	//同じ商品が複数行ある場合は数量を合算する
	want := map[string]int64{}
	ids := make([]string, 0, len(in.Items))
	for _, item := range in.Items {
		if item.ProductID == "" {
			return model.Order{}, apperr.Validation("invalid_cart_item", "invalid cart item")
		}
		if _, seen := want[item.ProductID]; !seen {
			ids = append(ids, item.ProductID)
		}
		want[item.ProductID] += pricing.NormalizeQuantity(item.Quantity)
	}

	var created model.Order

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		products, err := loadRequestedProducts(ctx, r, ids, false)
		if err != nil {
			return err
		}

		//楽観チェック。settlement時に再チェックするのでここでは減算しない
		if err := checkAvailability(products, want); err != nil {
			return err
		}

		var total int64
		items := make([]model.OrderItem, 0, len(products))
		for _, p := range products {
			qty := want[p.ID]
			total += p.Price * qty

			//スナップショット。以後カタログ価格が変わっても注文は変わらない
			pid := p.ID
			items = append(items, model.OrderItem{
				ProductID:    &pid,
				ProductName:  p.Name,
				ProductPrice: p.Price,
				ProductImage: p.Image,
				Quantity:     qty,
			})
		}

		order := model.Order{
			CustomerName:   s.CustomerName,
			Province:       s.Province,
			City:           s.City,
			Address1:       s.Address1,
			Address2:       optional(s.Address2),
			PostalCode:     s.PostalCode,
			Phone:          s.Phone,
			DeliveryMethod: delivery,
			TotalAmount:    total,
			Status:         model.OrderStatusPending,
			Items:          items,
		}
		if customer != nil {
			id := customer.ID
			order.CustomerID = &id
		}

		created, err = r.Orders().Create(ctx, order)
		if err != nil {
			return err
		}

		//希望があれば配送先をプロフィールへ保存（同一トランザクション）
		if customer != nil && in.SaveCustomerData {
			first, last := splitName(s.CustomerName)
			_, err := r.Customers().UpdateProfile(ctx, customer.ID, repo.CustomerProfile{
				FirstName:  first,
				LastName:   last,
				Province:   optional(s.Province),
				City:       optional(s.City),
				Address1:   optional(s.Address1),
				Address2:   optional(s.Address2),
				PostalCode: optional(s.PostalCode),
				Phone:      optional(s.Phone),
			})
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return model.Order{}, err
	}

	if u.mset != nil {
		u.mset.OrdersCreated.Inc()
	}
	return created, nil
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, customerID string) ([]OrderOutput, error) {
	if customerID == "" {
		return nil, apperr.Unauthorized("unauthorized", "unauthorized")
	}

	var outs []OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, err := r.Orders().ListByCustomerID(ctx, customerID)
		if err != nil {
			return err
		}
		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			outs = append(outs, ToOrderOutput(o))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outs, nil
}

// GetMyOrder は自分の注文を1件返す。他人の注文はnot found扱い。
func (u *OrderUsecase) GetMyOrder(ctx context.Context, customerID string, orderID string) (OrderOutput, error) {
	if customerID == "" {
		return OrderOutput{}, apperr.Unauthorized("unauthorized", "unauthorized")
	}

	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		order, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return apperr.NotFound("order_not_found", "order not found")
		}
		if err != nil {
			return err
		}
		if order.CustomerID == nil || *order.CustomerID != customerID {
			return apperr.NotFound("order_not_found", "order not found")
		}
		out = ToOrderOutput(order)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// ToOrderOutput は金額をセントから表示用の小数へ変換したJSON形を作る。
func ToOrderOutput(o model.Order) OrderOutput {
	items := make([]OrderItemOutput, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemOutput{
			ProductID:    it.ProductID,
			ProductName:  it.ProductName,
			ProductPrice: pricing.FormatCentsToNumber(it.ProductPrice),
			ProductImage: it.ProductImage,
			Quantity:     it.Quantity,
		})
	}

	return OrderOutput{
		ID:             o.ID,
		CustomerName:   o.CustomerName,
		Province:       o.Province,
		City:           o.City,
		Address1:       o.Address1,
		Address2:       o.Address2,
		PostalCode:     o.PostalCode,
		Phone:          o.Phone,
		DeliveryMethod: string(o.DeliveryMethod),
		TotalAmount:    pricing.FormatCentsToNumber(o.TotalAmount),
		Status:         string(o.Status),
		PaymentStatus:  o.PaymentStatus,
		StatusDetail:   o.StatusDetail,
		Items:          items,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// "Taro Yamada" → ("Taro", "Yamada")。名のみならlastはnil
func splitName(full string) (*string, *string) {
	parts := strings.Fields(strings.TrimSpace(full))
	if len(parts) == 0 {
		return nil, nil
	}
	first := parts[0]
	if len(parts) == 1 {
		return &first, nil
	}
	last := strings.Join(parts[1:], " ")
	return &first, &last
}
