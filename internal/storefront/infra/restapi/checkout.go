package restapi

import (
	"context"
	"net/http"

	"github.com/evercart/storefront/internal/storefront/core/domain/entity"
	"github.com/evercart/storefront/internal/storefront/core/ports"
)

var _ ports.CheckoutService = (*CheckoutClient)(nil)

// CheckoutClient covers the mid-flow backend calls: address validation and
// coupon verification.
type CheckoutClient struct {
	c *Client
}

func NewCheckoutClient(c *Client) *CheckoutClient {
	return &CheckoutClient{c: c}
}

type validateAddressDTO struct {
	UserID    string `json:"userId"`
	AddressID string `json:"addressId"`
}

// The backend answers address validation with 200 and a success flag, not
// an HTTP error, so the flag is checked here and mapped onto the same
// BackendError the rest of the contract uses.
type validateAddressResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (cc *CheckoutClient) ValidateAddress(ctx context.Context, req ports.ValidateAddressRequest) error {
	var resp validateAddressResponse
	err := cc.c.do(ctx, "POST", "/user/auth/order", validateAddressDTO{
		UserID:    req.UserID,
		AddressID: req.AddressID,
	}, &resp)
	if err != nil {
		return err
	}
	if !resp.Success {
		return &BackendError{StatusCode: http.StatusOK, Message: resp.Message}
	}
	return nil
}

type verifyCouponDTO struct {
	Code      string  `json:"code"`
	ProductID string  `json:"productId"`
	Subtotal  float64 `json:"subtotal"`
}

type verifyCouponResponse struct {
	Code        string  `json:"code"`
	DiscountAmt float64 `json:"discountAmt"`
}

func (cc *CheckoutClient) VerifyCoupon(ctx context.Context, req ports.VerifyCouponRequest) (*entity.Coupon, error) {
	var resp verifyCouponResponse
	err := cc.c.do(ctx, "POST", "/user/auth/verify", verifyCouponDTO{
		Code:      req.Code,
		ProductID: req.ProductID,
		Subtotal:  req.Subtotal,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &entity.Coupon{
		Code:           resp.Code,
		DiscountAmount: resp.DiscountAmt,
	}, nil
}
