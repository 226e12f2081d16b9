package translate

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/crm"
	domainErrors "github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/errors"
)

func decimalPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func int64Ptr(v int64) *int64 {
	return &v
}

func TestSortTiers_InfinityLast(t *testing.T) {
	tiers := []priceTier{
		{UpTo: nil, UnitAmount: decimalPtr("1")},
		{UpTo: int64Ptr(100), UnitAmount: decimalPtr("3")},
		{UpTo: int64Ptr(10), UnitAmount: decimalPtr("5")},
	}

	sortTiers(tiers)

	require.NotNil(t, tiers[0].UpTo)
	assert.Equal(t, int64(10), *tiers[0].UpTo)
	assert.Equal(t, int64(100), *tiers[1].UpTo)
	assert.Nil(t, tiers[2].UpTo)
}

func TestToMinorUnits(t *testing.T) {
	assert.True(t, decimal.NewFromInt(12050).Equal(toMinorUnits(decimal.RequireFromString("120.50"), "usd")))
	assert.True(t, decimal.NewFromInt(500).Equal(toMinorUnits(decimal.NewFromInt(500), "JPY")))
}

func TestRoundPrecision(t *testing.T) {
	amount := decimal.RequireFromString("833.33333333333333333")
	assert.Equal(t, "833.333333333333", roundPrecision(amount).String())
	assert.Equal(t, "1000", roundPrecision(decimal.NewFromInt(1000)).String())
}

func TestBillingEqual_IgnoresMetadata(t *testing.T) {
	a := &priceSpec{
		Currency:   "usd",
		UnitAmount: decimalPtr("1000"),
		Recurring:  &priceRecurring{Interval: "month", IntervalCount: 1, UsageType: "licensed"},
		Metadata:   map[string]string{"salesforce_pricebook_entry_id": "01u"},
	}
	b := &priceSpec{
		Currency:   "usd",
		UnitAmount: decimalPtr("1000.0"),
		Recurring:  &priceRecurring{Interval: "month", IntervalCount: 1, UsageType: "licensed"},
		Metadata:   map[string]string{"salesforce_order_item_id": "802"},
	}
	assert.True(t, billingEqual(a, b))

	b.Recurring.IntervalCount = 3
	assert.False(t, billingEqual(a, b))

	b.Recurring = nil
	assert.False(t, billingEqual(a, b))
}

func TestSpecFromPrice_RoundTrip(t *testing.T) {
	spec := &priceSpec{
		Currency:      "usd",
		BillingScheme: "tiered",
		TiersMode:     "graduated",
		Tiers: []priceTier{
			{UpTo: int64Ptr(10), UnitAmount: decimalPtr("500")},
			{FlatAmount: decimalPtr("2000")},
		},
		Recurring: &priceRecurring{Interval: "month", IntervalCount: 1, UsageType: "metered"},
	}
	price := &stripe.Price{
		Currency:      stripe.CurrencyUSD,
		BillingScheme: stripe.PriceBillingSchemeTiered,
		TiersMode:     stripe.PriceTiersModeGraduated,
		Tiers: []*stripe.PriceTier{
			{UpTo: 10, UnitAmountDecimal: 500},
			{FlatAmountDecimal: 2000},
		},
		Recurring: &stripe.PriceRecurring{
			Interval:      stripe.PriceRecurringIntervalMonth,
			IntervalCount: 1,
			UsageType:     stripe.PriceRecurringUsageTypeMetered,
		},
	}

	assert.True(t, billingEqual(spec, specFromPrice(price)))
	assert.True(t, spec.metered())
}

func TestPriceSpecParams(t *testing.T) {
	spec := &priceSpec{
		Currency:      "usd",
		BillingScheme: "tiered",
		TiersMode:     "volume",
		Tiers: []priceTier{
			{UpTo: int64Ptr(10), UnitAmount: decimalPtr("500")},
			{FlatAmount: decimalPtr("2000")},
		},
	}

	params := spec.params("prod_123")

	assert.Equal(t, "prod_123", *params.Product)
	assert.Nil(t, params.UnitAmountDecimal)
	require.Len(t, params.Tiers, 2)
	assert.Equal(t, int64(10), *params.Tiers[0].UpTo)
	assert.Equal(t, 500.0, *params.Tiers[0].UnitAmountDecimal)
	assert.True(t, *params.Tiers[1].UpToInf)
	assert.Equal(t, 2000.0, *params.Tiers[1].FlatAmountDecimal)
	assert.Nil(t, params.Recurring)
}

func TestIntervalCountFromBillingFrequency(t *testing.T) {
	count, err := intervalCountFromBillingFrequency("Quarterly")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	_, err = intervalCountFromBillingFrequency("Biweekly")
	assert.True(t, domainErrors.IsKind(err, domainErrors.KindRawUserError))
}

func TestBillingFrequencyInMonths(t *testing.T) {
	yearly := &stripe.Price{Recurring: &stripe.PriceRecurring{Interval: stripe.PriceRecurringIntervalYear, IntervalCount: 1}}
	months, err := billingFrequencyInMonths(yearly)
	require.NoError(t, err)
	assert.Equal(t, int64(12), months)

	weekly := &stripe.Price{Recurring: &stripe.PriceRecurring{Interval: stripe.PriceRecurringIntervalWeek, IntervalCount: 1}}
	_, err = billingFrequencyInMonths(weekly)
	assert.True(t, domainErrors.IsKind(err, domainErrors.KindUnhandledEdgeCase))
}

func TestTermMultiplier(t *testing.T) {
	origin := crm.NewRecord(crm.ObjectOrder, "8010000000000001", nil)

	multiplier, err := termMultiplier(origin, 12, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(12), multiplier)

	multiplier, err = termMultiplier(origin, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), multiplier)

	_, err = termMultiplier(origin, 13, 3)
	require.Error(t, err)
	te, ok := domainErrors.AsTranslationError(err)
	require.True(t, ok)
	assert.Equal(t, domainErrors.KindUserError, te.Kind)
	assert.Equal(t, "Prorated order amendments are not yet supported", te.Message)
	assert.Equal(t, origin, te.Record)
}

func TestRecurringItem(t *testing.T) {
	assert.True(t, recurringItem(crm.NewRecord(crm.ObjectProduct, productID, map[string]interface{}{
		crm.FieldSubscriptionPricing: "Fixed Price",
	})))
	assert.False(t, recurringItem(crm.NewRecord(crm.ObjectProduct, productID, map[string]interface{}{
		crm.FieldSubscriptionPricing: "",
	})))
	assert.False(t, recurringItem(crm.NewRecord(crm.ObjectProduct, productID, map[string]interface{}{})))
}
