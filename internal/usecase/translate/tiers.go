package translate

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/crm"
	domainErrors "github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/errors"
	"go.uber.org/zap"
)

const tierBoundDecimalMessage = "Decimal value provided for tier bound. Ensure all tier bounds are integers."

// consumptionFields names the schedule and rate fields of one consumption schedule flavor.
// Standard schedules hang off products, CPQ schedules off order lines.
type consumptionFields struct {
	ratingMethod  string
	scheduleType  string
	upperBound    string
	pricingMethod string
	price         string
	// checkActive is false for CPQ schedules, which have no IsActive field
	checkActive bool
}

var (
	standardConsumption = consumptionFields{
		ratingMethod:  "RatingMethod",
		scheduleType:  "Type",
		upperBound:    "UpperBound",
		pricingMethod: "PricingMethod",
		price:         "Price",
		checkActive:   true,
	}
	orderLineConsumption = consumptionFields{
		ratingMethod:  "SBQQ__RatingMethod__c",
		scheduleType:  "SBQQ__Type__c",
		upperBound:    "SBQQ__UpperBound__c",
		pricingMethod: "SBQQ__PricingMethod__c",
		price:         "SBQQ__Price__c",
	}
)

type tierSet struct {
	Mode     string
	Tiers    []priceTier
	Metadata map[string]string
}

// pricebookTiers reads the consumption schedule joined to the entry's product.
// It returns nil when the price is not tiered.
func (s *session) pricebookTiers(ctx context.Context, entry *crm.Record) (*tierSet, error) {
	schedules, err := s.cpq.FindConsumptionSchedulesForProduct(ctx, entry.GetString(crm.FieldPricebookEntryProduct))
	if err != nil {
		return nil, err
	}
	return s.tiersFromSchedules(ctx, schedules, standardConsumption, "should not be more than one consumption schedule linked to a pricebook", s.cpq.FindConsumptionRates)
}

// orderLineTiers reads the CPQ consumption schedule attached to an order line
func (s *session) orderLineTiers(ctx context.Context, line *crm.Record) (*tierSet, error) {
	schedules, err := s.cpq.FindOrderLineConsumptionSchedules(ctx, line.ID)
	if err != nil {
		return nil, err
	}
	return s.tiersFromSchedules(ctx, schedules, orderLineConsumption, "should not be more than one consumption schedule associated with an order line", s.cpq.FindOrderLineConsumptionRates)
}

func (s *session) tiersFromSchedules(
	ctx context.Context,
	schedules []*crm.Record,
	fields consumptionFields,
	cardinalityMessage string,
	findRates func(context.Context, string) ([]*crm.Record, error),
) (*tierSet, error) {
	switch {
	case len(schedules) == 0:
		return nil, nil
	case len(schedules) > 1:
		return nil, domainErrors.NewImpossibleStateError(cardinalityMessage)
	}

	schedule := schedules[0]
	if schedule.GetBool(crm.FieldIsDeleted) {
		s.logger.Warn("Consumption schedule is deleted, ignoring", zap.String("salesforce_id", schedule.ID))
		return nil, nil
	}
	if fields.checkActive && !schedule.GetBool(crm.FieldIsActive) {
		s.logger.Warn("Consumption schedule is not active, ignoring", zap.String("salesforce_id", schedule.ID))
		return nil, nil
	}
	if method := schedule.GetString(fields.ratingMethod); method != ratingMethodTier {
		return nil, domainErrors.NewImpossibleStateError(fmt.Sprintf("unexpected rating method %s", method))
	}

	mode, err := tiersModeFromScheduleType(schedule.GetString(fields.scheduleType))
	if err != nil {
		return nil, err
	}

	rates, err := findRates(ctx, schedule.ID)
	if err != nil {
		return nil, err
	}

	set := &tierSet{
		Mode:     mode,
		Tiers:    make([]priceTier, 0, len(rates)),
		Metadata: s.metadata.forRecord(schedule),
	}
	for _, rate := range rates {
		tier, err := s.tierFromRate(rate, fields)
		if err != nil {
			return nil, err
		}
		set.Tiers = append(set.Tiers, tier)
	}

	s.logger.Info("Consumption schedule found, configuring as tiered price",
		zap.String("consumption_schedule_id", schedule.ID),
		zap.Int("tiers", len(set.Tiers)))
	return set, nil
}

func (s *session) tierFromRate(rate *crm.Record, fields consumptionFields) (priceTier, error) {
	var tier priceTier

	if raw, ok := rate.Get(fields.upperBound); ok {
		bound, err := toDecimal(raw)
		if err != nil || !bound.IsInteger() {
			return tier, domainErrors.NewUserError(rate, tierBoundDecimalMessage)
		}
		upTo := bound.IntPart()
		tier.UpTo = &upTo
	}

	raw, _ := rate.Get(fields.price)
	price, err := toDecimal(raw)
	if err != nil {
		return tier, domainErrors.NewUserError(rate, fmt.Sprintf("expected a number for %s, got %v", fields.price, raw))
	}
	amount := roundPrecision(toMinorUnits(price, s.conn.Currency))

	switch method := rate.GetString(fields.pricingMethod); method {
	case pricingMethodPerUnit:
		tier.UnitAmount = &amount
	case pricingMethodFlatFee:
		tier.FlatAmount = &amount
	default:
		return tier, domainErrors.NewRawUserError(fmt.Sprintf("unexpected pricing method %s", method))
	}
	return tier, nil
}

func (t *tierSet) apply(spec *priceSpec) {
	spec.BillingScheme = string(stripe.PriceBillingSchemeTiered)
	spec.TiersMode = t.Mode
	spec.Tiers = t.Tiers
}
