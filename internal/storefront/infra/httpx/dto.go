package httpx

// Request bodies accepted from the rendering layer. Field names follow the
// storefront's own snake_case surface, distinct from the backend's contract.

type StartSessionRequest struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

type SetItemsRequest struct {
	Items []ItemDTO `json:"items"`
}

type ItemDTO struct {
	ProductID string  `json:"product_id"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
}

type SelectAddressRequest struct {
	AddressID string `json:"address_id"`
}

type ApplyCouponRequest struct {
	Code string `json:"code"`
}

type ChoosePaymentRequest struct {
	Method string `json:"method"`
}

// Responses.

type DraftResponse struct {
	DraftID        string          `json:"draft_id"`
	Step           int             `json:"step"`
	StepName       string          `json:"step_name"`
	PaymentPending bool            `json:"payment_pending"`
	Items          []ItemDTO       `json:"items"`
	AddressID      string          `json:"address_id,omitempty"`
	Coupon         *CouponResponse `json:"coupon,omitempty"`
	PaymentMethod  string          `json:"payment_method,omitempty"`
	Totals         TotalsResponse  `json:"totals"`
}

type CouponResponse struct {
	Code           string  `json:"code"`
	DiscountAmount float64 `json:"discount_amount"`
}

type TotalsResponse struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Delivery float64 `json:"delivery"`
	Discount float64 `json:"discount"`
	Total    float64 `json:"total"`
}

type AdvanceResponse struct {
	Step        int    `json:"step"`
	StepName    string `json:"step_name"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

type AddressResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
}

type ProfileResponse struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Email     string            `json:"email"`
	Wishlist  []string          `json:"wishlist"`
	Addresses []AddressResponse `json:"addresses"`
}

type ProductResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Stock       int      `json:"stock"`
	Images      []string `json:"images"`
}

type OrderResponse struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Items         []ItemDTO       `json:"items"`
	Address       AddressResponse `json:"address"`
	Coupon        *CouponResponse `json:"coupon,omitempty"`
	Totals        TotalsResponse  `json:"totals"`
	PaymentMethod string          `json:"payment_method"`
	Status        string          `json:"status"`
	Cancellable   bool            `json:"cancellable"`
	CreatedAt     string          `json:"created_at"`
	UpdatedAt     string          `json:"updated_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
