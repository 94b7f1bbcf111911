package entity

// Product is a catalog entry. Pricing and stock are backend-owned; the
// storefront treats them as read-only facts valid at fetch time.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       float64
	Stock       int
	Images      []string
}

// InStock reports whether the requested quantity was available when the
// product was fetched. The backend re-checks on order creation.
func (p *Product) InStock(quantity int) bool {
	return p.Stock >= quantity
}
