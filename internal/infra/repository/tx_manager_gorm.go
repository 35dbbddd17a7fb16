package repository

import (
	"context"

	repo "app/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	products  repo.ProductRepository
	orders    repo.OrderRepository
	customers repo.CustomerRepository
	saved     repo.SavedPaymentMethodRepository
}

func (r *txReposGorm) Products() repo.ProductRepository                      { return r.products }
func (r *txReposGorm) Orders() repo.OrderRepository                          { return r.orders }
func (r *txReposGorm) Customers() repo.CustomerRepository                    { return r.customers }
func (r *txReposGorm) SavedPaymentMethods() repo.SavedPaymentMethodRepository { return r.saved }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			products:  NewProductGormRepository(tx),
			orders:    NewOrderGormRepository(tx),
			customers: NewCustomerGormRepository(tx),
			saved:     NewSavedPaymentMethodGormRepository(tx),
		}
		return fn(r)
	})
}
