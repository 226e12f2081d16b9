package translate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/crm"
	domainErrors "github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/errors"
)

var zeroDecimalCurrencies = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true,
	"krw": true, "mga": true, "pyg": true, "rwf": true, "ugx": true, "vnd": true,
	"vuv": true, "xaf": true, "xof": true, "xpf": true,
}

var hundred = decimal.NewFromInt(100)

// CPQ picklist values
const (
	billingTypeAdvance = "Advance"
	billingTypeArrears = "Arrears"

	scheduleTypeRange = "Range"
	scheduleTypeSlab  = "Slab"

	pricingMethodPerUnit = "PerUnit"
	pricingMethodFlatFee = "FlatFee"

	ratingMethodTier = "Tier"
)

var billingFrequencyMonths = map[string]int64{
	"Monthly":    1,
	"Quarterly":  3,
	"Semiannual": 6,
	"Annual":     12,
}

type priceTier struct {
	// UpTo is nil for the unbounded tier
	UpTo       *int64
	UnitAmount *decimal.Decimal
	FlatAmount *decimal.Decimal
}

type priceRecurring struct {
	Interval      string
	IntervalCount int64
	UsageType     string
}

// priceSpec is the generated form of a Stripe price before creation.
// Amounts are in minor currency units.
type priceSpec struct {
	Currency      string
	UnitAmount    *decimal.Decimal
	BillingScheme string
	TiersMode     string
	Tiers         []priceTier
	Recurring     *priceRecurring
	Nickname      string
	Metadata      map[string]string
}

func (p *priceSpec) tiered() bool {
	return len(p.Tiers) > 0
}

func (p *priceSpec) metered() bool {
	return p.Recurring != nil && p.Recurring.UsageType == string(stripe.PriceRecurringUsageTypeMetered)
}

// params converts the spec into create params for product
func (p *priceSpec) params(productID string) *stripe.PriceParams {
	params := &stripe.PriceParams{
		Currency: stripe.String(p.Currency),
		Product:  stripe.String(productID),
		Metadata: mergeMetadata(p.Metadata),
	}
	if p.UnitAmount != nil {
		params.UnitAmountDecimal = stripe.Float64(p.UnitAmount.InexactFloat64())
	}
	if p.Nickname != "" {
		params.Nickname = stripe.String(p.Nickname)
	}
	if p.tiered() {
		params.BillingScheme = stripe.String(p.BillingScheme)
		params.TiersMode = stripe.String(p.TiersMode)
		for _, tier := range p.Tiers {
			tp := &stripe.PriceTierParams{}
			if tier.UpTo == nil {
				tp.UpToInf = stripe.Bool(true)
			} else {
				tp.UpTo = stripe.Int64(*tier.UpTo)
			}
			if tier.UnitAmount != nil {
				tp.UnitAmountDecimal = stripe.Float64(tier.UnitAmount.InexactFloat64())
			}
			if tier.FlatAmount != nil {
				tp.FlatAmountDecimal = stripe.Float64(tier.FlatAmount.InexactFloat64())
			}
			params.Tiers = append(params.Tiers, tp)
		}
	}
	if p.Recurring != nil {
		params.Recurring = &stripe.PriceRecurringParams{
			Interval:      stripe.String(p.Recurring.Interval),
			IntervalCount: stripe.Int64(p.Recurring.IntervalCount),
			UsageType:     stripe.String(p.Recurring.UsageType),
		}
	}
	return params
}

// specFromPrice rebuilds the billing fields of an existing price
func specFromPrice(price *stripe.Price) *priceSpec {
	spec := &priceSpec{
		Currency: strings.ToLower(string(price.Currency)),
		Nickname: price.Nickname,
		Metadata: mergeMetadata(price.Metadata),
	}
	if price.BillingScheme == stripe.PriceBillingSchemeTiered {
		spec.BillingScheme = string(price.BillingScheme)
		spec.TiersMode = string(price.TiersMode)
		for _, tier := range price.Tiers {
			t := priceTier{}
			if tier.UpTo != 0 {
				upTo := tier.UpTo
				t.UpTo = &upTo
			}
			if tier.UnitAmountDecimal != 0 {
				d := decimal.NewFromFloat(tier.UnitAmountDecimal)
				t.UnitAmount = &d
			}
			if tier.FlatAmountDecimal != 0 {
				d := decimal.NewFromFloat(tier.FlatAmountDecimal)
				t.FlatAmount = &d
			}
			spec.Tiers = append(spec.Tiers, t)
		}
	} else {
		d := decimal.NewFromFloat(price.UnitAmountDecimal)
		spec.UnitAmount = &d
	}
	if price.Recurring != nil {
		spec.Recurring = &priceRecurring{
			Interval:      string(price.Recurring.Interval),
			IntervalCount: price.Recurring.IntervalCount,
			UsageType:     string(price.Recurring.UsageType),
		}
	}
	return spec
}

// billingEqual compares everything that affects what a customer is charged,
// ignoring metadata and nickname
func billingEqual(a, b *priceSpec) bool {
	if a.Currency != b.Currency || a.BillingScheme != b.BillingScheme || a.TiersMode != b.TiersMode {
		return false
	}
	if !amountsEqual(a.UnitAmount, b.UnitAmount) {
		return false
	}
	if len(a.Tiers) != len(b.Tiers) {
		return false
	}
	for i := range a.Tiers {
		ta, tb := a.Tiers[i], b.Tiers[i]
		if (ta.UpTo == nil) != (tb.UpTo == nil) || (ta.UpTo != nil && *ta.UpTo != *tb.UpTo) {
			return false
		}
		if !amountsEqual(ta.UnitAmount, tb.UnitAmount) || !amountsEqual(ta.FlatAmount, tb.FlatAmount) {
			return false
		}
	}
	if (a.Recurring == nil) != (b.Recurring == nil) {
		return false
	}
	if a.Recurring != nil && *a.Recurring != *b.Recurring {
		return false
	}
	return true
}

// amountsEqual treats a missing amount as zero since Stripe omits zero tier amounts
func amountsEqual(a, b *decimal.Decimal) bool {
	x, y := decimal.Zero, decimal.Zero
	if a != nil {
		x = *a
	}
	if b != nil {
		y = *b
	}
	return x.Round(maxPricePrecision).Equal(y.Round(maxPricePrecision))
}

// toMinorUnits converts a major-unit amount into the currency's minor unit
func toMinorUnits(amount decimal.Decimal, currency string) decimal.Decimal {
	if zeroDecimalCurrencies[strings.ToLower(currency)] {
		return amount
	}
	return amount.Mul(hundred)
}

// roundPrecision rounds non-integer amounts to the precision Stripe accepts
func roundPrecision(amount decimal.Decimal) decimal.Decimal {
	if amount.IsInteger() {
		return amount
	}
	return amount.Round(maxPricePrecision)
}

func usageTypeFromBillingType(billingType string) (string, error) {
	switch billingType {
	case billingTypeAdvance:
		return string(stripe.PriceRecurringUsageTypeLicensed), nil
	case billingTypeArrears:
		return string(stripe.PriceRecurringUsageTypeMetered), nil
	default:
		return "", domainErrors.NewRawUserError(fmt.Sprintf("unexpected billing type %s", billingType))
	}
}

func intervalCountFromBillingFrequency(frequency string) (int64, error) {
	months, ok := billingFrequencyMonths[frequency]
	if !ok {
		return 0, domainErrors.NewRawUserError(fmt.Sprintf("Unexpected billing frequency %s. Must use default CPQ billing frequencies.", frequency))
	}
	return months, nil
}

func tiersModeFromScheduleType(scheduleType string) (string, error) {
	switch scheduleType {
	case scheduleTypeRange:
		return string(stripe.PriceTiersModeVolume), nil
	case scheduleTypeSlab:
		return string(stripe.PriceTiersModeGraduated), nil
	default:
		return "", domainErrors.NewRawUserError(fmt.Sprintf("unexpected consumption schedule type %s", scheduleType))
	}
}

// sortTiers orders tiers by upper bound with the unbounded tier last
func sortTiers(tiers []priceTier) {
	sort.SliceStable(tiers, func(i, j int) bool {
		if tiers[i].UpTo == nil {
			return false
		}
		if tiers[j].UpTo == nil {
			return true
		}
		return *tiers[i].UpTo < *tiers[j].UpTo
	})
}

// billingFrequencyInMonths returns how many months one billing cycle of price covers
func billingFrequencyInMonths(price *stripe.Price) (int64, error) {
	if price.Recurring == nil {
		return 0, domainErrors.NewImpossibleStateError(fmt.Sprintf("price %s is not recurring", price.ID))
	}
	switch price.Recurring.Interval {
	case stripe.PriceRecurringIntervalMonth:
		return price.Recurring.IntervalCount, nil
	case stripe.PriceRecurringIntervalYear:
		return price.Recurring.IntervalCount * 12, nil
	case stripe.PriceRecurringIntervalWeek, stripe.PriceRecurringIntervalDay:
		return 0, domainErrors.NewUnhandledEdgeCaseError("unsupported price interval")
	default:
		return 0, domainErrors.NewUnhandledEdgeCaseError("unexpected stripe pricing interval")
	}
}

// termMultiplier is how many billing cycles fit in a subscription term
func termMultiplier(origin *crm.Record, term, frequency int64) (int64, error) {
	if term < frequency {
		return 1, nil
	}
	if term%frequency != 0 {
		return 0, domainErrors.NewUserError(origin, "Prorated order amendments are not yet supported")
	}
	return term / frequency, nil
}
