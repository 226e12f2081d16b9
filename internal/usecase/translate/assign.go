package translate

import (
	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"
)

// assignCustomer copies mapped values onto customer params and returns unknown fields
func assignCustomer(params *stripe.CustomerParams, values Values) []string {
	var unknown []string
	for _, field := range values.fields() {
		value := stripe.String(values.String(field))
		switch field {
		case "name":
			params.Name = value
		case "description":
			params.Description = value
		case "email":
			params.Email = value
		case "phone":
			params.Phone = value
		case "preferred_locales":
			params.PreferredLocales = []*string{value}
		case "address.line1", "address.line2", "address.city", "address.state", "address.postal_code", "address.country":
			if params.Address == nil {
				params.Address = &stripe.AddressParams{}
			}
			assignAddress(params.Address, field[len("address."):], value)
		case "shipping.name":
			shipping(params).Name = value
		case "shipping.phone":
			shipping(params).Phone = value
		case "shipping.address.line1", "shipping.address.line2", "shipping.address.city",
			"shipping.address.state", "shipping.address.postal_code", "shipping.address.country":
			s := shipping(params)
			if s.Address == nil {
				s.Address = &stripe.AddressParams{}
			}
			assignAddress(s.Address, field[len("shipping.address."):], value)
		default:
			unknown = append(unknown, field)
		}
	}
	params.Metadata = mergeMetadata(params.Metadata, values.Metadata())
	return unknown
}

func shipping(params *stripe.CustomerParams) *stripe.CustomerShippingParams {
	if params.Shipping == nil {
		params.Shipping = &stripe.CustomerShippingParams{}
	}
	return params.Shipping
}

func assignAddress(address *stripe.AddressParams, field string, value *string) {
	switch field {
	case "line1":
		address.Line1 = value
	case "line2":
		address.Line2 = value
	case "city":
		address.City = value
	case "state":
		address.State = value
	case "postal_code":
		address.PostalCode = value
	case "country":
		address.Country = value
	}
}

func assignProduct(params *stripe.ProductParams, values Values) []string {
	var unknown []string
	for _, field := range values.fields() {
		switch field {
		case "name":
			params.Name = stripe.String(values.String(field))
		case "description":
			params.Description = stripe.String(values.String(field))
		case "unit_label":
			params.UnitLabel = stripe.String(values.String(field))
		case "statement_descriptor":
			params.StatementDescriptor = stripe.String(values.String(field))
		case "url":
			params.URL = stripe.String(values.String(field))
		case "active":
			active, _ := values[field].(bool)
			params.Active = stripe.Bool(active)
		default:
			unknown = append(unknown, field)
		}
	}
	params.Metadata = mergeMetadata(params.Metadata, values.Metadata())
	return unknown
}

func assignInvoice(params *stripe.InvoiceParams, values Values) []string {
	var unknown []string
	for _, field := range values.fields() {
		switch field {
		case "description":
			params.Description = stripe.String(values.String(field))
		case "footer":
			params.Footer = stripe.String(values.String(field))
		case "collection_method":
			params.CollectionMethod = stripe.String(values.String(field))
		case "days_until_due":
			if days, ok, err := values.Decimal(field); err == nil && ok {
				params.DaysUntilDue = stripe.Int64(days.IntPart())
			}
		default:
			unknown = append(unknown, field)
		}
	}
	params.Metadata = mergeMetadata(params.Metadata, values.Metadata())
	return unknown
}

func logUnknownFields(logger *zap.Logger, target Target, fields []string) {
	if len(fields) > 0 {
		logger.Warn("Ignoring mapped fields the translator cannot assign",
			zap.String("target", string(target)),
			zap.Strings("fields", fields))
	}
}
