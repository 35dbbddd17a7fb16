package repository

import (
	"context"

	"app/internal/domain/model"
)

type OrderRepository interface {
	Create(ctx context.Context, order model.Order) (model.Order, error)

	// items付きで取得
	FindByID(ctx context.Context, orderID string) (model.Order, error)

	// 行ロック付きで取得（settlementのcheck-then-actを直列化する）
	FindByIDForUpdate(ctx context.Context, orderID string) (model.Order, error)

	ListByCustomerID(ctx context.Context, customerID string) ([]model.Order, error)

	// 決済メタデータのみ更新。statusは触らない
	// （再通知でpaymentId/statusDetailは上書きされ得る）
	SetPaymentResult(ctx context.Context, orderID string, paymentID string, paymentStatus string, statusDetail string) error

	// paidへの遷移はpendingからのみ（rejected→paidを構造的に禁止）
	MarkPaid(ctx context.Context, orderID string) (bool, error)

	// paidは一方通行ラッチなので上書きしない
	MarkRejected(ctx context.Context, orderID string) (bool, error)
}
