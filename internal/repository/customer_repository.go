package repository

import (
	"context"

	"app/internal/domain/model"
)

// プロフィール更新の入力。nilの項目はNULLで上書きする（原本挙動）。
type CustomerProfile struct {
	FirstName  *string
	LastName   *string
	Province   *string
	City       *string
	Address1   *string
	Address2   *string
	PostalCode *string
	Phone      *string
}

type CustomerRepository interface {
	FindByID(ctx context.Context, id string) (model.Customer, error)

	// savedPaymentMethods付きで取得
	FindByIDWithMethods(ctx context.Context, id string) (model.Customer, error)

	FindByEmail(ctx context.Context, email string) (model.Customer, error)

	// emailで検索し、なければ作成。createdは新規作成かどうか
	UpsertByEmail(ctx context.Context, email string, firstName *string, lastName *string) (c model.Customer, created bool, err error)

	UpdateProfile(ctx context.Context, id string, p CustomerProfile) (model.Customer, error)
}
