package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusPaid     OrderStatus = "paid"
	OrderStatusRejected OrderStatus = "rejected"
)

type DeliveryMethod string

const (
	DeliveryPickup         DeliveryMethod = "PICKUP"
	DeliveryHomeDelivery   DeliveryMethod = "HOME_DELIVERY"
	DeliveryBranchDelivery DeliveryMethod = "BRANCH_DELIVERY"
)

// ParseDeliveryMethod は大文字化して閉じた候補と照合する。
func ParseDeliveryMethod(s string) (DeliveryMethod, bool) {
	switch DeliveryMethod(strings.ToUpper(strings.TrimSpace(s))) {
	case DeliveryPickup:
		return DeliveryPickup, true
	case DeliveryHomeDelivery:
		return DeliveryHomeDelivery, true
	case DeliveryBranchDelivery:
		return DeliveryBranchDelivery, true
	}
	return "", false
}

// StatusDetailInsufficientStock は「決済は成功したが在庫を確保できなかった」予約値。
// 返金など手動対応が必要になる。
const StatusDetailInsufficientStock = "insufficient_stock_after_payment"

type Order struct {
	ID string `gorm:"type:varchar(36);primaryKey" json:"id"`

	// 顧客削除後も注文は残す（弱参照）
	CustomerID *string `gorm:"type:varchar(36);index" json:"customer_id"`

	CustomerName   string         `gorm:"type:varchar(255);not null" json:"customerName"`
	Province       string         `gorm:"type:varchar(100);not null" json:"province"`
	City           string         `gorm:"type:varchar(100);not null" json:"city"`
	Address1       string         `gorm:"type:varchar(255);not null" json:"address1"`
	Address2       *string        `gorm:"type:varchar(255)" json:"address2"`
	PostalCode     string         `gorm:"type:varchar(20);not null" json:"postalCode"`
	Phone          string         `gorm:"type:varchar(50);not null" json:"phone"`
	DeliveryMethod DeliveryMethod `gorm:"type:varchar(20);not null" json:"deliveryMethod"`

	// サーバー側で再計算した確定金額（セント）。クライアント申告値は信用しない。
	TotalAmount int64 `gorm:"not null" json:"totalAmount"`

	Status        OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	PaymentID     string      `gorm:"type:varchar(64)" json:"paymentId"`
	PaymentStatus string      `gorm:"type:varchar(30)" json:"paymentStatus"`
	StatusDetail  string      `gorm:"type:varchar(100)" json:"statusDetail"`

	Items []OrderItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}
