package usecase

import (
	"context"
	"fmt"

	"app/internal/apperr"
	"app/internal/domain/model"
	repo "app/internal/repository"
)

// 在庫の予約台帳。必ず呼び出し側のトランザクション内で使う
// （ここでは新しいTxを開始しない）。

// checkAvailability は要求数量に対する在庫を確認するだけで、減算はしない。
// productsは要求ID分すべて揃っている前提（揃っていなければ呼び出し側でエラー済み）。
func checkAvailability(products []model.Product, want map[string]int64) error {
	for _, p := range products {
		if p.Stock < want[p.ID] {
			return apperr.Conflict("insufficient_stock", fmt.Sprintf("insufficient stock for %s", p.Name))
		}
	}
	return nil
}

// loadRequestedProducts は要求IDを一括ロードし、欠けがあればエラーにする。
// 1件でも見つからなければ部分成功にはしない。
func loadRequestedProducts(ctx context.Context, r repo.TxRepos, ids []string, forUpdate bool) ([]model.Product, error) {
	var (
		products []model.Product
		err      error
	)
	if forUpdate {
		products, err = r.Products().FindByIDsForUpdate(ctx, ids)
	} else {
		products, err = r.Products().FindByIDs(ctx, ids)
	}
	if err != nil {
		return nil, err
	}
	if len(products) != len(ids) {
		return nil, apperr.NotFound("products_missing", "one or more products are missing")
	}
	return products, nil
}

// applyDecrement は在庫を確定的に減らす。残りが0以下になった商品は
// カタログから行ごと削除する（売り切れ表示は存在しない）。
// この操作自体は冪等ではない。呼び出し側が注文ごとに最大1回を保証すること。
func applyDecrement(ctx context.Context, r repo.TxRepos, products []model.Product, want map[string]int64) error {
	for _, p := range products {
		remaining := p.Stock - want[p.ID]
		if remaining <= 0 {
			if err := r.Products().Delete(ctx, p.ID); err != nil {
				return err
			}
			continue
		}
		if err := r.Products().UpdateStock(ctx, p.ID, remaining); err != nil {
			return err
		}
	}
	return nil
}
