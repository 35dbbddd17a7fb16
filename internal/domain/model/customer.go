package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Customer struct {
	ID        string  `gorm:"type:varchar(36);primaryKey" json:"id"`
	Email     string  `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	FirstName *string `gorm:"type:varchar(100)" json:"firstName"`
	LastName  *string `gorm:"type:varchar(100)" json:"lastName"`

	Province   *string `gorm:"type:varchar(100)" json:"province"`
	City       *string `gorm:"type:varchar(100)" json:"city"`
	Address1   *string `gorm:"type:varchar(255)" json:"address1"`
	Address2   *string `gorm:"type:varchar(255)" json:"address2"`
	PostalCode *string `gorm:"type:varchar(20)" json:"postalCode"`
	Phone      *string `gorm:"type:varchar(50)" json:"phone"`

	SavedPaymentMethods []SavedPaymentMethod `gorm:"constraint:OnDelete:CASCADE" json:"savedPaymentMethods,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
