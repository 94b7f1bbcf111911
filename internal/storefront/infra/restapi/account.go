package restapi

import (
	"context"
	"fmt"

	"github.com/evercart/storefront/internal/storefront/core/domain/entity"
	"github.com/evercart/storefront/internal/storefront/core/ports"
)

var _ ports.AccountService = (*AccountClient)(nil)

// AccountClient fetches customer profiles over GET /user/auth/{userId}.
type AccountClient struct {
	c *Client
}

func NewAccountClient(c *Client) *AccountClient {
	return &AccountClient{c: c}
}

type addressDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
}

type userDTO struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Email     string       `json:"email"`
	Wishlist  []string     `json:"wishlist"`
	Addresses []addressDTO `json:"addresses"`
}

func (a *AccountClient) Profile(ctx context.Context, userID string) (*entity.User, error) {
	var dto userDTO
	if err := a.c.do(ctx, "GET", "/user/auth/"+userID, nil, &dto); err != nil {
		return nil, fmt.Errorf("fetch profile %s: %w", userID, err)
	}

	user := &entity.User{
		ID:       dto.ID,
		Name:     dto.Name,
		Email:    dto.Email,
		Wishlist: dto.Wishlist,
	}
	for _, ad := range dto.Addresses {
		user.Addresses = append(user.Addresses, mapAddress(ad))
	}
	return user, nil
}

func mapAddress(dto addressDTO) entity.Address {
	return entity.Address{
		ID:         dto.ID,
		Name:       dto.Name,
		Line1:      dto.Line1,
		Line2:      dto.Line2,
		City:       dto.City,
		State:      dto.State,
		PostalCode: dto.PostalCode,
		Country:    dto.Country,
		Phone:      dto.Phone,
	}
}

func addressToDTO(a entity.Address) addressDTO {
	return addressDTO{
		ID:         a.ID,
		Name:       a.Name,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Phone:      a.Phone,
	}
}
