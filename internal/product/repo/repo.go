package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/mbelenkov/microshop/internal/product/models"
)

type GormRepo struct {
	DB *gorm.DB
}

func (r *GormRepo) CreateProduct(ctx context.Context, prod *models.Product) (*models.Product, error) {
	if err := r.DB.WithContext(ctx).Create(prod).Error; err != nil {
		return nil, err
	}
	return prod, nil
}
