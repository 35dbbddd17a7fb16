package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type SavedPaymentMethodGormRepository struct {
	db *gorm.DB
}

func NewSavedPaymentMethodGormRepository(db *gorm.DB) *SavedPaymentMethodGormRepository {
	return &SavedPaymentMethodGormRepository{db: db}
}

func (r *SavedPaymentMethodGormRepository) ListByCustomerID(ctx context.Context, customerID string) ([]model.SavedPaymentMethod, error) {
	var methods []model.SavedPaymentMethod
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("is_default desc").
		Order("created_at desc").
		Find(&methods).Error
	if err != nil {
		return []model.SavedPaymentMethod{}, err
	}
	return methods, nil
}

func (r *SavedPaymentMethodGormRepository) FindByID(ctx context.Context, id string) (model.SavedPaymentMethod, error) {
	var m model.SavedPaymentMethod
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.SavedPaymentMethod{}, repo.ErrNotFound
	}
	if err != nil {
		return model.SavedPaymentMethod{}, err
	}
	return m, nil
}

func (r *SavedPaymentMethodGormRepository) Create(ctx context.Context, m model.SavedPaymentMethod) (model.SavedPaymentMethod, error) {
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return model.SavedPaymentMethod{}, err
	}
	return m, nil
}

func (r *SavedPaymentMethodGormRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.SavedPaymentMethod{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
