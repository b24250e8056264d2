package models

// Role is the closed set of principals the API knows about.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
	RoleAdmin    Role = "admin"
	RoleStaff    Role = "staff"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleVendor, RoleAdmin, RoleStaff:
		return true
	}
	return false
}

// CanPlaceOrders reports whether the role shops as a buyer. Vendors keep
// their customer account and may still buy.
func (r Role) CanPlaceOrders() bool {
	return r == RoleCustomer || r == RoleVendor
}

func (r Role) CanSell() bool {
	return r == RoleVendor
}

func (r Role) CanModerate() bool {
	return r == RoleAdmin || r == RoleStaff
}

// CanReadAnyInvoice reports whether the role may read invoices it does not own.
func (r Role) CanReadAnyInvoice() bool {
	return r == RoleVendor || r.CanModerate()
}
