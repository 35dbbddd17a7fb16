package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
)

type ProductMedia struct {
	ID        string `gorm:"type:varchar(36);primaryKey" json:"-"`
	ProductID string `gorm:"type:varchar(36);not null;index" json:"-"`
	URL       string `gorm:"type:varchar(512);not null" json:"url"`
	Type      string `gorm:"type:varchar(10);not null" json:"type"`
	Position  int    `gorm:"not null" json:"position"`
}

func (m *ProductMedia) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
