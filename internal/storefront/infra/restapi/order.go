package restapi

import (
	"context"
	"fmt"
	"time"

	"github.com/evercart/storefront/internal/storefront/core/domain/entity"
	"github.com/evercart/storefront/internal/storefront/core/ports"
)

var _ ports.OrderService = (*OrderClient)(nil)

// OrderClient creates and tracks persisted orders. Cancellation is the
// status-transition call the backend permits within the cancellation
// window.
type OrderClient struct {
	c *Client
}

func NewOrderClient(c *Client) *OrderClient {
	return &OrderClient{c: c}
}

type orderItemDTO struct {
	ProductID string  `json:"productId"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
}

type couponDTO struct {
	Code        string  `json:"code"`
	DiscountAmt float64 `json:"discountAmt"`
}

type totalsDTO struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Delivery float64 `json:"delivery"`
	Discount float64 `json:"discount"`
	Total    float64 `json:"total"`
}

type createOrderDTO struct {
	UserID        string         `json:"userId"`
	Items         []orderItemDTO `json:"items"`
	Address       addressDTO     `json:"address"`
	Coupon        *couponDTO     `json:"coupon,omitempty"`
	Totals        totalsDTO      `json:"totals"`
	PaymentMethod string         `json:"paymentMethod"`
}

type orderDTO struct {
	ID            string         `json:"id"`
	UserID        string         `json:"userId"`
	Items         []orderItemDTO `json:"items"`
	Address       addressDTO     `json:"address"`
	Coupon        *couponDTO     `json:"coupon"`
	Totals        totalsDTO      `json:"totals"`
	PaymentMethod string         `json:"paymentMethod"`
	Status        string         `json:"status"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

type updateStatusDTO struct {
	Status string `json:"status"`
}

func (o *OrderClient) Create(ctx context.Context, req ports.CreateOrderRequest) (*entity.Order, error) {
	dto := createOrderDTO{
		UserID:        req.UserID,
		Address:       addressToDTO(req.Address),
		Totals:        totalsToDTO(req.Totals),
		PaymentMethod: string(req.PaymentMethod),
	}
	for _, it := range req.Items {
		dto.Items = append(dto.Items, orderItemDTO{
			ProductID: it.ProductID,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		})
	}
	if req.Coupon != nil {
		dto.Coupon = &couponDTO{Code: req.Coupon.Code, DiscountAmt: req.Coupon.DiscountAmount}
	}

	var resp orderDTO
	if err := o.c.do(ctx, "POST", "/orders", dto, &resp); err != nil {
		return nil, err
	}
	return mapOrder(resp), nil
}

func (o *OrderClient) Get(ctx context.Context, id string) (*entity.Order, error) {
	var resp orderDTO
	if err := o.c.do(ctx, "GET", "/orders/"+id, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch order %s: %w", id, err)
	}
	return mapOrder(resp), nil
}

func (o *OrderClient) Cancel(ctx context.Context, id string) (*entity.Order, error) {
	var resp orderDTO
	err := o.c.do(ctx, "PATCH", "/orders/"+id+"/status", updateStatusDTO{
		Status: string(entity.StatusCancelled),
	}, &resp)
	if err != nil {
		return nil, err
	}
	return mapOrder(resp), nil
}

func mapOrder(dto orderDTO) *entity.Order {
	order := &entity.Order{
		ID:            dto.ID,
		UserID:        dto.UserID,
		Address:       mapAddress(dto.Address),
		Totals:        mapTotals(dto.Totals),
		PaymentMethod: entity.PaymentMethod(dto.PaymentMethod),
		Status:        entity.OrderStatus(dto.Status),
		CreatedAt:     dto.CreatedAt,
		UpdatedAt:     dto.UpdatedAt,
	}
	for _, it := range dto.Items {
		order.Items = append(order.Items, entity.OrderItem{
			ProductID: it.ProductID,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		})
	}
	if dto.Coupon != nil {
		order.Coupon = &entity.Coupon{Code: dto.Coupon.Code, DiscountAmount: dto.Coupon.DiscountAmt}
	}
	return order
}

func mapTotals(dto totalsDTO) entity.Totals {
	return entity.Totals{
		Subtotal: dto.Subtotal,
		Tax:      dto.Tax,
		Delivery: dto.Delivery,
		Discount: dto.Discount,
		Total:    dto.Total,
	}
}

func totalsToDTO(t entity.Totals) totalsDTO {
	return totalsDTO{
		Subtotal: t.Subtotal,
		Tax:      t.Tax,
		Delivery: t.Delivery,
		Discount: t.Discount,
		Total:    t.Total,
	}
}
