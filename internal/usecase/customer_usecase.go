package usecase

import (
	"context"

	"app/internal/apperr"
	"app/internal/domain/model"
	repo "app/internal/repository"
)

type CustomerUsecase struct {
	customers repo.CustomerRepository
	saved     repo.SavedPaymentMethodRepository
}

func NewCustomerUsecase(customers repo.CustomerRepository, saved repo.SavedPaymentMethodRepository) *CustomerUsecase {
	return &CustomerUsecase{customers: customers, saved: saved}
}

// Me は保存済みカード一覧込みで自分の顧客情報を返す。
func (u *CustomerUsecase) Me(ctx context.Context, customerID string) (model.Customer, error) {
	c, err := u.customers.FindByIDWithMethods(ctx, customerID)
	if err == repo.ErrNotFound {
		return model.Customer{}, apperr.NotFound("customer_not_found", "customer not found")
	}
	return c, err
}

func (u *CustomerUsecase) UpdateProfile(ctx context.Context, customerID string, p repo.CustomerProfile) (model.Customer, error) {
	c, err := u.customers.UpdateProfile(ctx, customerID, p)
	if err == repo.ErrNotFound {
		return model.Customer{}, apperr.NotFound("customer_not_found", "customer not found")
	}
	return c, err
}

// DeletePaymentMethod は自分のカードだけ消せる。他人のIDはnot foundとして扱う
// （存在の有無を漏らさない）。
func (u *CustomerUsecase) DeletePaymentMethod(ctx context.Context, customerID string, methodID string) error {
	m, err := u.saved.FindByID(ctx, methodID)
	if err == repo.ErrNotFound {
		return apperr.NotFound("payment_method_not_found", "payment method not found")
	}
	if err != nil {
		return err
	}
	if m.CustomerID != customerID {
		return apperr.NotFound("payment_method_not_found", "payment method not found")
	}
	return u.saved.Delete(ctx, methodID)
}
