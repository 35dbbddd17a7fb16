package repository

import (
	"context"

	"app/internal/domain/model"
)

type SavedPaymentMethodRepository interface {
	// isDefault優先、新しい順
	ListByCustomerID(ctx context.Context, customerID string) ([]model.SavedPaymentMethod, error)

	FindByID(ctx context.Context, id string) (model.SavedPaymentMethod, error)
	Create(ctx context.Context, m model.SavedPaymentMethod) (model.SavedPaymentMethod, error)
	Delete(ctx context.Context, id string) error
}
