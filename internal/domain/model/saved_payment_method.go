package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SavedPaymentMethod は決済ゲートウェイのトークンと表示用メタデータのみ保持する。
// カード番号/CVVは一切保存しない。
type SavedPaymentMethod struct {
	ID         string `gorm:"type:varchar(36);primaryKey" json:"id"`
	CustomerID string `gorm:"type:varchar(36);not null;index" json:"-"`

	CardToken string `gorm:"type:varchar(255);not null" json:"-"`

	Brand           string  `gorm:"type:varchar(50)" json:"brand"`
	Last4           string  `gorm:"type:varchar(4)" json:"last4"`
	ExpirationMonth *int    `json:"expirationMonth"`
	ExpirationYear  *int    `json:"expirationYear"`
	CardholderName  *string `gorm:"type:varchar(255)" json:"cardholderName"`
	IssuerID        *string `gorm:"type:varchar(50)" json:"-"`
	PaymentMethodID string  `gorm:"type:varchar(50)" json:"-"`
	IsDefault       bool    `gorm:"not null;default:false" json:"isDefault"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (m *SavedPaymentMethod) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
