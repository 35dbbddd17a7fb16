package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type CustomerGormRepository struct {
	db *gorm.DB
}

func NewCustomerGormRepository(db *gorm.DB) *CustomerGormRepository {
	return &CustomerGormRepository{db: db}
}

func (r *CustomerGormRepository) FindByID(ctx context.Context, id string) (model.Customer, error) {
	var c model.Customer
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Customer{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Customer{}, err
	}
	return c, nil
}

func (r *CustomerGormRepository) FindByIDWithMethods(ctx context.Context, id string) (model.Customer, error) {
	var c model.Customer
	err := r.db.WithContext(ctx).
		Preload("SavedPaymentMethods", func(db *gorm.DB) *gorm.DB {
			return db.Order("is_default desc").Order("created_at desc")
		}).
		Where("id = ?", id).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Customer{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Customer{}, err
	}
	return c, nil
}

func (r *CustomerGormRepository) FindByEmail(ctx context.Context, email string) (model.Customer, error) {
	var c model.Customer
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Customer{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Customer{}, err
	}
	return c, nil
}

// Googleログイン用のupsert。既存なら名前だけ上書き（nilは据え置き）
func (r *CustomerGormRepository) UpsertByEmail(ctx context.Context, email string, firstName *string, lastName *string) (model.Customer, bool, error) {
	existing, err := r.FindByEmail(ctx, email)
	if err == nil {
		updates := map[string]interface{}{}
		if firstName != nil {
			updates["first_name"] = *firstName
		}
		if lastName != nil {
			updates["last_name"] = *lastName
		}
		if len(updates) > 0 {
			if err := r.db.WithContext(ctx).Model(&model.Customer{}).
				Where("id = ?", existing.ID).
				Updates(updates).Error; err != nil {
				return model.Customer{}, false, err
			}
		}
		updated, err := r.FindByEmail(ctx, email)
		return updated, false, err
	} else if !errors.Is(err, repo.ErrNotFound) {
		return model.Customer{}, false, err
	}

	created := model.Customer{
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
	}
	if err := r.db.WithContext(ctx).Create(&created).Error; err != nil {
		return model.Customer{}, false, err
	}
	return created, true, nil
}

func (r *CustomerGormRepository) UpdateProfile(ctx context.Context, id string, p repo.CustomerProfile) (model.Customer, error) {
	res := r.db.WithContext(ctx).Model(&model.Customer{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"first_name":  p.FirstName,
			"last_name":   p.LastName,
			"province":    p.Province,
			"city":        p.City,
			"address1":    p.Address1,
			"address2":    p.Address2,
			"postal_code": p.PostalCode,
			"phone":       p.Phone,
		})
	if res.Error != nil {
		return model.Customer{}, res.Error
	}
	if res.RowsAffected == 0 {
		return model.Customer{}, repo.ErrNotFound
	}
	return r.FindByID(ctx, id)
}
