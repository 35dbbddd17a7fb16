package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderItem は注文時点のスナップショット。作成後にProductから再計算しない。
type OrderItem struct {
	ID      string `gorm:"type:varchar(36);primaryKey" json:"-"`
	OrderID string `gorm:"type:varchar(36);not null;index" json:"-"`

	// 商品が後から消えてもitemは残る（弱参照）
	ProductID    *string `gorm:"type:varchar(36);index" json:"productId"`
	ProductName  string  `gorm:"type:varchar(255);not null" json:"productName"`
	ProductPrice int64   `gorm:"not null" json:"productPrice"` // 注文時点の価格（セント）
	ProductImage string  `gorm:"type:varchar(512)" json:"productImage"`
	Quantity     int64   `gorm:"not null" json:"quantity"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}
