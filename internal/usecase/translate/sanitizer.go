package translate

import (
	"github.com/stripe/stripe-go/v79"
)

const (
	maxCustomerDescriptionLength = 350
	maxShippingPhoneLength       = 20
	// Stripe accepts at most 12 decimal places on decimal amounts
	maxPricePrecision = 12
)

// sanitizeCustomer trims values Stripe would reject. It reports whether a
// partial shipping hash without an address was dropped.
func sanitizeCustomer(params *stripe.CustomerParams) bool {
	if params.Description != nil {
		*params.Description = truncate(*params.Description, maxCustomerDescriptionLength)
	}
	if params.Shipping == nil {
		return false
	}
	if params.Shipping.Phone != nil {
		*params.Shipping.Phone = truncate(*params.Shipping.Phone, maxShippingPhoneLength)
	}
	if params.Shipping.Address == nil || emptyAddress(params.Shipping.Address) {
		params.Shipping = nil
		return true
	}
	return false
}

func emptyAddress(a *stripe.AddressParams) bool {
	for _, v := range []*string{a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country} {
		if v != nil && *v != "" {
			return false
		}
	}
	return true
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
