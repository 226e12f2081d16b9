package translate

import (
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/crm"
	domainErrors "github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/errors"
)

const (
	salesforceDateLayout  = "2006-01-02"
	prorationBehaviorNone = "none"
)

// phaseItem is one priced line of a subscription phase, either built from an
// order line or rebuilt from a phase that already exists in Stripe
type phaseItem struct {
	Price string
	// Quantity is kept for metered items, where it only tracks whether the line is active
	Quantity int64
	Metered  bool
	Metadata map[string]string

	// OrderLine is nil for items rebuilt from Stripe
	OrderLine           *crm.Record
	OriginalOrderLineID string

	previous *phaseItem
}

func (i *phaseItem) terminated() bool {
	return i.Quantity <= 0
}

// supersede makes the item replace prev: quantities add up and the revision
// lineage is carried in metadata so later amendments can find the item
func (i *phaseItem) supersede(prev *phaseItem, lineageKey string) {
	i.Quantity += prev.Quantity
	i.previous = prev

	lineage := prev.Metadata[lineageKey]
	if lineage == "" {
		lineage = i.OriginalOrderLineID
	}
	if i.Metadata == nil {
		i.Metadata = map[string]string{}
	}
	i.Metadata[lineageKey] = lineage
}

func (i *phaseItem) itemParams() *stripe.SubscriptionSchedulePhaseItemParams {
	params := &stripe.SubscriptionSchedulePhaseItemParams{
		Price:    stripe.String(i.Price),
		Metadata: mergeMetadata(i.Metadata),
	}
	if !i.Metered {
		params.Quantity = stripe.Int64(i.Quantity)
	}
	return params
}

func (i *phaseItem) invoiceItemParams() *stripe.SubscriptionSchedulePhaseAddInvoiceItemParams {
	return &stripe.SubscriptionSchedulePhaseAddInvoiceItemParams{
		Price:    stripe.String(i.Price),
		Quantity: stripe.Int64(i.Quantity),
	}
}

func phaseItemFromStripe(item *stripe.SubscriptionSchedulePhaseItem) *phaseItem {
	built := &phaseItem{
		Quantity: item.Quantity,
		Metadata: mergeMetadata(item.Metadata),
	}
	if item.Price != nil {
		built.Price = item.Price.ID
		built.Metered = item.Price.Recurring != nil && item.Price.Recurring.UsageType == stripe.PriceRecurringUsageTypeMetered
	}
	if built.Metered {
		built.Quantity = 1
	}
	return built
}

// phase is the working form of a subscription schedule phase
type phase struct {
	StartDate    int64
	EndDate      int64
	Iterations   int64
	Items        []*phaseItem
	InvoiceItems []*phaseItem
	Metadata     map[string]string
}

func (p *phase) params() *stripe.SubscriptionSchedulePhaseParams {
	params := &stripe.SubscriptionSchedulePhaseParams{
		ProrationBehavior: stripe.String(prorationBehaviorNone),
		Metadata:          mergeMetadata(p.Metadata),
	}
	if p.StartDate != 0 {
		params.StartDate = stripe.Int64(p.StartDate)
	}
	if p.EndDate != 0 {
		params.EndDate = stripe.Int64(p.EndDate)
	} else if p.Iterations != 0 {
		params.Iterations = stripe.Int64(p.Iterations)
	}
	for _, item := range p.Items {
		params.Items = append(params.Items, item.itemParams())
	}
	for _, item := range p.InvoiceItems {
		params.AddInvoiceItems = append(params.AddInvoiceItems, item.invoiceItemParams())
	}
	return params
}

func phasesFromStripe(schedule *stripe.SubscriptionSchedule) []*phase {
	phases := make([]*phase, 0, len(schedule.Phases))
	for _, p := range schedule.Phases {
		built := &phase{
			StartDate: p.StartDate,
			EndDate:   p.EndDate,
			Metadata:  mergeMetadata(p.Metadata),
		}
		for _, item := range p.Items {
			built.Items = append(built.Items, phaseItemFromStripe(item))
		}
		for _, item := range p.AddInvoiceItems {
			invoiceItem := &phaseItem{Quantity: item.Quantity}
			if item.Price != nil {
				invoiceItem.Price = item.Price.ID
			}
			built.InvoiceItems = append(built.InvoiceItems, invoiceItem)
		}
		phases = append(phases, built)
	}
	return phases
}

func phaseParams(phases []*phase) []*stripe.SubscriptionSchedulePhaseParams {
	params := make([]*stripe.SubscriptionSchedulePhaseParams, 0, len(phases))
	for _, p := range phases {
		params = append(params, p.params())
	}
	return params
}

// salesforceDateToUnix converts a Salesforce date or datetime to a UTC unix timestamp
func salesforceDateToUnix(raw interface{}) (int64, error) {
	value := strings.TrimSpace(fmt.Sprint(raw))
	for _, layout := range []string{salesforceDateLayout, time.RFC3339, "2006-01-02T15:04:05.000-0700"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC().Unix(), nil
		}
	}
	return 0, domainErrors.NewRawUserError(fmt.Sprintf("unexpected date format %s", value))
}
