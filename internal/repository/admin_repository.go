package repository

import (
	"context"

	"app/internal/domain/model"
)

type AdminRepository interface {
	FindByUsername(ctx context.Context, username string) (model.Admin, error)
	Create(ctx context.Context, a model.Admin) (model.Admin, error)
}
