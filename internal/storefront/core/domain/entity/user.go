package entity

// Address is a delivery address from the user's address book.
type Address struct {
	ID         string
	Name       string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
	Phone      string
}

// User is the authenticated customer profile as returned by the backend,
// including the wishlist and address book that the profile screens render.
type User struct {
	ID        string
	Name      string
	Email     string
	Wishlist  []string
	Addresses []Address
}

// AddressByID looks up an address in the user's address book.
func (u *User) AddressByID(id string) (Address, bool) {
	for _, a := range u.Addresses {
		if a.ID == id {
			return a, true
		}
	}
	return Address{}, false
}
