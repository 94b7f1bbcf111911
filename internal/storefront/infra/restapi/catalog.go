package restapi

import (
	"context"
	"fmt"

	"github.com/evercart/storefront/internal/storefront/core/domain/entity"
	"github.com/evercart/storefront/internal/storefront/core/ports"
)

var _ ports.CatalogService = (*CatalogClient)(nil)

// CatalogClient fetches products over GET /products/{productId}, used when
// a customer arrives via a direct product link.
type CatalogClient struct {
	c *Client
}

func NewCatalogClient(c *Client) *CatalogClient {
	return &CatalogClient{c: c}
}

type productDTO struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Stock       int      `json:"stock"`
	Images      []string `json:"images"`
}

func (p *CatalogClient) Product(ctx context.Context, productID string) (*entity.Product, error) {
	var dto productDTO
	if err := p.c.do(ctx, "GET", "/products/"+productID, nil, &dto); err != nil {
		return nil, fmt.Errorf("fetch product %s: %w", productID, err)
	}
	return &entity.Product{
		ID:          dto.ID,
		Name:        dto.Name,
		Description: dto.Description,
		Price:       dto.Price,
		Stock:       dto.Stock,
		Images:      dto.Images,
	}, nil
}
