package usecase

import (
	"context"

	"app/internal/apperr"
	"app/internal/domain/model"
	"app/internal/pricing"
	repo "app/internal/repository"
)

type ProductUsecase struct {
	products repo.ProductRepository
}

func NewProductUsecase(products repo.ProductRepository) *ProductUsecase {
	return &ProductUsecase{products: products}
}

type ProductMediaOutput struct {
	URL      string `json:"url"`
	Type     string `json:"type"`
	Position int    `json:"position"`
}

type ProductOutput struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description *string              `json:"description"`
	Price       float64              `json:"price"` // 表示単位
	Stock       int64                `json:"stock"`
	Width       float64              `json:"width"`
	Height      float64              `json:"height"`
	Weight      float64              `json:"weight"`
	Image       string               `json:"image"`
	Media       []ProductMediaOutput `json:"media"`
}

func toProductOutput(p model.Product) ProductOutput {
	out := ProductOutput{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       pricing.FormatCentsToNumber(p.Price),
		Stock:       p.Stock,
		Width:       p.Width,
		Height:      p.Height,
		Weight:      p.Weight,
		Image:       p.Image,
		Media:       []ProductMediaOutput{},
	}
	for _, m := range p.Media {
		out.Media = append(out.Media, ProductMediaOutput{URL: m.URL, Type: m.Type, Position: m.Position})
	}
	return out
}

// ListAvailable は在庫が残っている商品だけを返す（カタログ表示）。
func (u *ProductUsecase) ListAvailable(ctx context.Context) ([]ProductOutput, error) {
	products, err := u.products.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ProductOutput, 0, len(products))
	for _, p := range products {
		out = append(out, toProductOutput(p))
	}
	return out, nil
}

func (u *ProductUsecase) GetByID(ctx context.Context, id string) (ProductOutput, error) {
	p, err := u.products.FindByID(ctx, id)
	if err == repo.ErrNotFound {
		return ProductOutput{}, apperr.NotFound("product_not_found", "product not found")
	}
	if err != nil {
		return ProductOutput{}, err
	}
	return toProductOutput(p), nil
}

type ProductMediaInput struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

type CreateProductInput struct {
	Name        string
	Description *string
	Price       string // 表示文字列のまま受けてサーバーで正規化する
	Stock       *int64
	Width       float64
	Height      float64
	Weight      float64
	Media       []ProductMediaInput
}

func (u *ProductUsecase) Create(ctx context.Context, in CreateProductInput) (ProductOutput, error) {
	if in.Name == "" || in.Price == "" {
		return ProductOutput{}, apperr.Validation("missing_product_data", "name and price are required")
	}
	if in.Width <= 0 || in.Height <= 0 || in.Weight <= 0 {
		return ProductOutput{}, apperr.Validation("missing_dimensions", "width, height and weight are required")
	}
	if len(in.Media) == 0 {
		return ProductOutput{}, apperr.Validation("missing_media", "at least one media file is required")
	}
	//カバー（先頭のmedia）は画像でなければならない
	if in.Media[0].Type != model.MediaTypeImage {
		return ProductOutput{}, apperr.Validation("cover_must_be_image", "first media must be an image")
	}

	priceInCents, err := pricing.ParsePriceToCents(in.Price)
	if err != nil {
		return ProductOutput{}, err
	}

	stock := int64(1)
	if in.Stock != nil && *in.Stock > 0 {
		stock = *in.Stock
	}

	p := model.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       priceInCents,
		Stock:       stock,
		Width:       in.Width,
		Height:      in.Height,
		Weight:      in.Weight,
		Image:       in.Media[0].URL,
	}
	for i, m := range in.Media {
		p.Media = append(p.Media, model.ProductMedia{URL: m.URL, Type: m.Type, Position: i})
	}

	created, err := u.products.Create(ctx, p)
	if err != nil {
		return ProductOutput{}, err
	}
	return toProductOutput(created), nil
}

type UpdateProductInput struct {
	Name        *string
	Description *string
	Price       *string
	Stock       *int64
	Width       *float64
	Height      *float64
	Weight      *float64
	// nilなら据え置き、非nilなら丸ごと入れ替え
	Media []ProductMediaInput
}

type UpdateProductResult struct {
	Deleted bool
	Product ProductOutput
}

// Update は部分更新。stockを0以下にすると商品ごと削除される（売切れ＝撤去）。
func (u *ProductUsecase) Update(ctx context.Context, id string, in UpdateProductInput) (UpdateProductResult, error) {
	p, err := u.products.FindByID(ctx, id)
	if err == repo.ErrNotFound {
		return UpdateProductResult{}, apperr.NotFound("product_not_found", "product not found")
	}
	if err != nil {
		return UpdateProductResult{}, err
	}

	if in.Stock != nil && *in.Stock <= 0 {
		if err := u.products.Delete(ctx, id); err != nil {
			return UpdateProductResult{}, err
		}
		return UpdateProductResult{Deleted: true}, nil
	}

	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = in.Description
	}
	if in.Price != nil {
		priceInCents, err := pricing.ParsePriceToCents(*in.Price)
		if err != nil {
			return UpdateProductResult{}, err
		}
		p.Price = priceInCents
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.Width != nil {
		p.Width = *in.Width
	}
	if in.Height != nil {
		p.Height = *in.Height
	}
	if in.Weight != nil {
		p.Weight = *in.Weight
	}

	if in.Media != nil {
		if len(in.Media) == 0 {
			return UpdateProductResult{}, apperr.Validation("missing_media", "at least one media file is required")
		}
		if in.Media[0].Type != model.MediaTypeImage {
			return UpdateProductResult{}, apperr.Validation("cover_must_be_image", "first media must be an image")
		}
		media := make([]model.ProductMedia, 0, len(in.Media))
		for i, m := range in.Media {
			media = append(media, model.ProductMedia{ProductID: id, URL: m.URL, Type: m.Type, Position: i})
		}
		if err := u.products.ReplaceMedia(ctx, id, media); err != nil {
			return UpdateProductResult{}, err
		}
		p.Media = media
		p.Image = media[0].URL
	}

	if err := u.products.Update(ctx, p); err != nil {
		return UpdateProductResult{}, err
	}
	return UpdateProductResult{Product: toProductOutput(p)}, nil
}

func (u *ProductUsecase) Delete(ctx context.Context, id string) error {
	if _, err := u.products.FindByID(ctx, id); err != nil {
		if err == repo.ErrNotFound {
			return apperr.NotFound("product_not_found", "product not found")
		}
		return err
	}
	return u.products.Delete(ctx, id)
}
