package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

// 商品の永続化だけを約束。
type ProductRepository interface {
	// 在庫が残っている商品のみ（カタログ表示用、media付き）
	ListAvailable(ctx context.Context) ([]model.Product, error)

	FindByID(ctx context.Context, id string) (model.Product, error)

	// まとめて取得。見つからなかったIDは結果に含まれないだけで、エラーにはしない。
	FindByIDs(ctx context.Context, ids []string) ([]model.Product, error)

	// 行ロック付きで取得（決済確定時の在庫再チェック用）
	FindByIDsForUpdate(ctx context.Context, ids []string) ([]model.Product, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, p model.Product) error

	// mediaを丸ごと入れ替える（positionは呼び出し側で採番済み）
	ReplaceMedia(ctx context.Context, productID string, media []model.ProductMedia) error

	UpdateStock(ctx context.Context, productID string, stock int64) error

	// 物理削除。mediaはcascadeで消える
	Delete(ctx context.Context, id string) error
}
