package restapi

import (
	"context"
	"fmt"

	"github.com/evercart/storefront/internal/storefront/core/ports"
)

var _ ports.PaymentService = (*PaymentClient)(nil)

// PaymentClient begins online payments over POST /payment/initiate. The
// backend owns the gateway integration; all the storefront receives is the
// URL of the externally hosted payment page to hand the customer to.
type PaymentClient struct {
	c *Client
}

func NewPaymentClient(c *Client) *PaymentClient {
	return &PaymentClient{c: c}
}

type initiatePaymentDTO struct {
	DraftID string  `json:"draftId"`
	UserID  string  `json:"userId"`
	Amount  float64 `json:"amount"`
}

type initiatePaymentResponse struct {
	RedirectURL string `json:"redirectUrl"`
}

func (p *PaymentClient) Initiate(ctx context.Context, req ports.InitiatePaymentRequest) (string, error) {
	var resp initiatePaymentResponse
	err := p.c.do(ctx, "POST", "/payment/initiate", initiatePaymentDTO{
		DraftID: req.DraftID,
		UserID:  req.UserID,
		Amount:  req.Amount,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.RedirectURL == "" {
		return "", fmt.Errorf("restapi: payment initiation returned no redirect URL")
	}
	return resp.RedirectURL, nil
}
