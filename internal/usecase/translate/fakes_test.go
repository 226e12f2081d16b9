package translate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/crm"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/errors"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/provider"
)

// fakeCRM is an in-memory Salesforce org. Find returns copies so that
// refreshed reads only see what was written through Update.
type fakeCRM struct {
	records map[string]*crm.Record
	updates []crmWrite
	upserts map[string]map[string]interface{}
}

type crmWrite struct {
	Type   crm.ObjectType
	ID     string
	Fields map[string]interface{}
}

func newFakeCRM() *fakeCRM {
	return &fakeCRM{
		records: map[string]*crm.Record{},
		upserts: map[string]map[string]interface{}{},
	}
}

func (f *fakeCRM) add(record *crm.Record) *crm.Record {
	f.records[record.ID] = record
	return record
}

func (f *fakeCRM) Find(ctx context.Context, objectType crm.ObjectType, id string) (*crm.Record, error) {
	record, ok := f.records[id]
	if !ok {
		return nil, domainErrors.NewCRMAPIError("record not found", fmt.Errorf("%s %s", objectType, id))
	}
	return crm.NewRecord(record.Type, record.ID, record.Fields), nil
}

func (f *fakeCRM) Query(ctx context.Context, soql string) ([]*crm.Record, error) {
	return nil, nil
}

func (f *fakeCRM) Update(ctx context.Context, objectType crm.ObjectType, id string, fields map[string]interface{}) error {
	record, ok := f.records[id]
	if !ok {
		return domainErrors.NewCRMAPIError("record not found", fmt.Errorf("%s %s", objectType, id))
	}
	record.Merge(fields)
	f.updates = append(f.updates, crmWrite{Type: objectType, ID: id, Fields: fields})
	return nil
}

func (f *fakeCRM) Upsert(ctx context.Context, objectType crm.ObjectType, externalIDField, externalID string, fields map[string]interface{}) error {
	f.upserts[externalID] = fields
	return nil
}

// stripeID returns the Stripe id written back on a record
func (f *fakeCRM) stripeID(id string) string {
	return f.records[id].GetString(entity.FieldStripeID)
}

// fakeCPQ answers the CPQ traversals from explicit relationship tables
type fakeCPQ struct {
	crm *fakeCRM

	initialOrders    map[string]string
	contracts        map[string]string
	amendments       map[string][]string
	lines            map[string][]string
	productSchedules map[string][]string
	rates            map[string][]string
	lineSchedules    map[string][]string
	lineRates        map[string][]string
}

func newFakeCPQ(crmProvider *fakeCRM) *fakeCPQ {
	return &fakeCPQ{
		crm:              crmProvider,
		initialOrders:    map[string]string{},
		contracts:        map[string]string{},
		amendments:       map[string][]string{},
		lines:            map[string][]string{},
		productSchedules: map[string][]string{},
		rates:            map[string][]string{},
		lineSchedules:    map[string][]string{},
		lineRates:        map[string][]string{},
	}
}

func (f *fakeCPQ) FindInitialOrderForAmendment(ctx context.Context, amendment *crm.Record) (*crm.Record, error) {
	id, ok := f.initialOrders[amendment.ID]
	if !ok {
		return nil, domainErrors.NewImpossibleStateError("order amendments should always be associated with the initial quote")
	}
	return f.crm.Find(ctx, crm.ObjectOrder, id)
}

func (f *fakeCPQ) FindContractForQuote(ctx context.Context, quoteID string) (*crm.Record, error) {
	id, ok := f.contracts[quoteID]
	if !ok {
		return nil, nil
	}
	return crm.NewRecord(crm.ObjectContract, id, map[string]interface{}{crm.FieldContractQuote: quoteID}), nil
}

func (f *fakeCPQ) FindAmendmentsForContract(ctx context.Context, contractID string) ([]*crm.Record, error) {
	amendments, err := f.findAll(ctx, crm.ObjectOrder, f.amendments[contractID])
	if err != nil {
		return nil, err
	}
	sort.SliceStable(amendments, func(i, j int) bool {
		return amendments[i].GetString(crm.QuoteStartDatePath) < amendments[j].GetString(crm.QuoteStartDatePath)
	})
	return amendments, nil
}

func (f *fakeCPQ) FindOrderLines(ctx context.Context, orderID string) ([]*crm.Record, error) {
	return f.findAll(ctx, crm.ObjectOrderItem, f.lines[orderID])
}

func (f *fakeCPQ) FindConsumptionSchedulesForProduct(ctx context.Context, productID string) ([]*crm.Record, error) {
	return f.findAll(ctx, crm.ObjectConsumptionSchedule, f.productSchedules[productID])
}

func (f *fakeCPQ) FindConsumptionRates(ctx context.Context, scheduleID string) ([]*crm.Record, error) {
	return f.findAll(ctx, crm.ObjectConsumptionRate, f.rates[scheduleID])
}

func (f *fakeCPQ) FindOrderLineConsumptionSchedules(ctx context.Context, orderLineID string) ([]*crm.Record, error) {
	return f.findAll(ctx, crm.ObjectOrderItemConsumption, f.lineSchedules[orderLineID])
}

func (f *fakeCPQ) FindOrderLineConsumptionRates(ctx context.Context, scheduleID string) ([]*crm.Record, error) {
	return f.findAll(ctx, crm.ObjectOrderItemConsumptionRt, f.lineRates[scheduleID])
}

func (f *fakeCPQ) findAll(ctx context.Context, objectType crm.ObjectType, ids []string) ([]*crm.Record, error) {
	records := make([]*crm.Record, 0, len(ids))
	for _, id := range ids {
		record, err := f.crm.Find(ctx, objectType, id)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// fakeBilling is an in-memory Stripe account. Creates honor idempotency keys
// and schedule phases get end dates the way Stripe computes them.
type fakeBilling struct {
	seq int

	customers    map[string]*stripe.Customer
	products     map[string]*stripe.Product
	prices       map[string]*stripe.Price
	schedules    map[string]*stripe.SubscriptionSchedule
	invoices     map[string]*stripe.Invoice
	invoiceItems []*stripe.InvoiceItemParams
	idempotent   map[string]string

	scheduleCreates []*stripe.SubscriptionScheduleParams
	scheduleUpdates []*stripe.SubscriptionScheduleParams
	priceCreates    []*stripe.PriceParams
}

func newFakeBilling() *fakeBilling {
	return &fakeBilling{
		customers:  map[string]*stripe.Customer{},
		products:   map[string]*stripe.Product{},
		prices:     map[string]*stripe.Price{},
		schedules:  map[string]*stripe.SubscriptionSchedule{},
		invoices:   map[string]*stripe.Invoice{},
		idempotent: map[string]string{},
	}
}

func (f *fakeBilling) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s_%03d", prefix, f.seq)
}

// replay returns the id created earlier with the same idempotency key
func (f *fakeBilling) replay(kind string, params stripe.Params) (string, bool) {
	if params.IdempotencyKey == nil {
		return "", false
	}
	id, ok := f.idempotent[kind+":"+*params.IdempotencyKey]
	return id, ok
}

func (f *fakeBilling) remember(kind string, params stripe.Params, id string) {
	if params.IdempotencyKey != nil {
		f.idempotent[kind+":"+*params.IdempotencyKey] = id
	}
}

func (f *fakeBilling) RetrieveCustomer(ctx context.Context, id string) (*stripe.Customer, error) {
	return f.customers[id], nil
}

func (f *fakeBilling) CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error) {
	customer := &stripe.Customer{
		ID:       f.nextID("cus"),
		Name:     stripe.StringValue(params.Name),
		Metadata: mergeMetadata(params.Metadata),
	}
	f.customers[customer.ID] = customer
	return customer, nil
}

func (f *fakeBilling) RetrieveProduct(ctx context.Context, id string) (*stripe.Product, error) {
	return f.products[id], nil
}

func (f *fakeBilling) CreateProduct(ctx context.Context, params *stripe.ProductParams) (*stripe.Product, error) {
	product := &stripe.Product{
		ID:       f.nextID("prod"),
		Name:     stripe.StringValue(params.Name),
		Metadata: mergeMetadata(params.Metadata),
	}
	f.products[product.ID] = product
	return product, nil
}

func (f *fakeBilling) RetrievePrice(ctx context.Context, id string) (*stripe.Price, error) {
	return f.prices[id], nil
}

func (f *fakeBilling) CreatePrice(ctx context.Context, params *stripe.PriceParams) (*stripe.Price, error) {
	if id, ok := f.replay("price", params.Params); ok {
		return f.prices[id], nil
	}
	f.priceCreates = append(f.priceCreates, params)

	price := &stripe.Price{
		ID:                f.nextID("price"),
		Currency:          stripe.Currency(stripe.StringValue(params.Currency)),
		Nickname:          stripe.StringValue(params.Nickname),
		UnitAmountDecimal: stripe.Float64Value(params.UnitAmountDecimal),
		BillingScheme:     stripe.PriceBillingSchemePerUnit,
		Product:           &stripe.Product{ID: stripe.StringValue(params.Product)},
		Metadata:          mergeMetadata(params.Metadata),
	}
	if params.BillingScheme != nil {
		price.BillingScheme = stripe.PriceBillingScheme(*params.BillingScheme)
		price.TiersMode = stripe.PriceTiersMode(stripe.StringValue(params.TiersMode))
	}
	for _, tier := range params.Tiers {
		price.Tiers = append(price.Tiers, &stripe.PriceTier{
			UpTo:              stripe.Int64Value(tier.UpTo),
			UnitAmountDecimal: stripe.Float64Value(tier.UnitAmountDecimal),
			FlatAmountDecimal: stripe.Float64Value(tier.FlatAmountDecimal),
		})
	}
	if params.Recurring != nil {
		price.Recurring = &stripe.PriceRecurring{
			Interval:      stripe.PriceRecurringInterval(stripe.StringValue(params.Recurring.Interval)),
			IntervalCount: stripe.Int64Value(params.Recurring.IntervalCount),
			UsageType:     stripe.PriceRecurringUsageType(stripe.StringValue(params.Recurring.UsageType)),
		}
	}

	f.prices[price.ID] = price
	f.remember("price", params.Params, price.ID)
	return price, nil
}

func (f *fakeBilling) RetrieveSubscriptionSchedule(ctx context.Context, id string) (*stripe.SubscriptionSchedule, error) {
	return f.schedules[id], nil
}

func (f *fakeBilling) CreateSubscriptionSchedule(ctx context.Context, params *stripe.SubscriptionScheduleParams) (*stripe.SubscriptionSchedule, error) {
	if id, ok := f.replay("schedule", params.Params); ok {
		return f.schedules[id], nil
	}
	f.scheduleCreates = append(f.scheduleCreates, params)

	schedule := &stripe.SubscriptionSchedule{
		ID:          f.nextID("sub_sched"),
		Status:      stripe.SubscriptionScheduleStatusNotStarted,
		Customer:    &stripe.Customer{ID: stripe.StringValue(params.Customer)},
		EndBehavior: stripe.SubscriptionScheduleEndBehavior(stripe.StringValue(params.EndBehavior)),
		Metadata:    mergeMetadata(params.Metadata),
	}
	schedule.Phases = f.buildPhases(stripe.Int64Value(params.StartDate), params.Phases)

	f.schedules[schedule.ID] = schedule
	f.remember("schedule", params.Params, schedule.ID)
	return schedule, nil
}

func (f *fakeBilling) UpdateSubscriptionSchedule(ctx context.Context, id string, params *stripe.SubscriptionScheduleParams) (*stripe.SubscriptionSchedule, error) {
	schedule, ok := f.schedules[id]
	if !ok {
		return nil, domainErrors.NewBillingAPIError("No such subscription schedule", "req_missing", nil)
	}
	f.scheduleUpdates = append(f.scheduleUpdates, params)

	start := int64(0)
	if len(schedule.Phases) > 0 {
		start = schedule.Phases[0].StartDate
	}
	schedule.Phases = f.buildPhases(start, params.Phases)
	return schedule, nil
}

func (f *fakeBilling) CancelSubscriptionSchedule(ctx context.Context, id string, params *stripe.SubscriptionScheduleCancelParams) (*stripe.SubscriptionSchedule, error) {
	schedule, ok := f.schedules[id]
	if !ok {
		return nil, domainErrors.NewBillingAPIError("No such subscription schedule", "req_missing", nil)
	}
	schedule.Status = stripe.SubscriptionScheduleStatusCanceled
	return schedule, nil
}

// buildPhases chains phases the way Stripe does: each phase starts where the
// previous one ended and iterations are converted to an end date
func (f *fakeBilling) buildPhases(start int64, params []*stripe.SubscriptionSchedulePhaseParams) []*stripe.SubscriptionSchedulePhase {
	phases := make([]*stripe.SubscriptionSchedulePhase, 0, len(params))
	for _, p := range params {
		if p.StartDate != nil {
			start = *p.StartDate
		}
		built := &stripe.SubscriptionSchedulePhase{
			StartDate: start,
			Metadata:  mergeMetadata(p.Metadata),
		}
		for _, item := range p.Items {
			built.Items = append(built.Items, &stripe.SubscriptionSchedulePhaseItem{
				Price:    f.prices[stripe.StringValue(item.Price)],
				Quantity: stripe.Int64Value(item.Quantity),
				Metadata: mergeMetadata(item.Metadata),
			})
		}
		for _, item := range p.AddInvoiceItems {
			built.AddInvoiceItems = append(built.AddInvoiceItems, &stripe.SubscriptionSchedulePhaseAddInvoiceItem{
				Price:    f.prices[stripe.StringValue(item.Price)],
				Quantity: stripe.Int64Value(item.Quantity),
			})
		}

		switch {
		case p.EndDate != nil:
			built.EndDate = *p.EndDate
		case p.Iterations != nil && len(built.Items) > 0:
			months, _ := billingFrequencyInMonths(built.Items[0].Price)
			built.EndDate = time.Unix(start, 0).UTC().AddDate(0, int(*p.Iterations*months), 0).Unix()
		}

		phases = append(phases, built)
		start = built.EndDate
	}
	return phases
}

func (f *fakeBilling) RetrieveInvoice(ctx context.Context, id string) (*stripe.Invoice, error) {
	return f.invoices[id], nil
}

func (f *fakeBilling) CreateInvoice(ctx context.Context, params *stripe.InvoiceParams) (*stripe.Invoice, error) {
	invoice := &stripe.Invoice{
		ID:       f.nextID("in"),
		Status:   stripe.InvoiceStatusDraft,
		Customer: &stripe.Customer{ID: stripe.StringValue(params.Customer)},
		Metadata: mergeMetadata(params.Metadata),
	}
	f.invoices[invoice.ID] = invoice
	return invoice, nil
}

func (f *fakeBilling) FinalizeInvoice(ctx context.Context, id string) (*stripe.Invoice, error) {
	invoice, ok := f.invoices[id]
	if !ok {
		return nil, domainErrors.NewBillingAPIError("No such invoice", "req_missing", nil)
	}
	invoice.Status = stripe.InvoiceStatusOpen
	invoice.HostedInvoiceURL = "https://invoice.stripe.com/i/" + id
	return invoice, nil
}

func (f *fakeBilling) CreateInvoiceItem(ctx context.Context, params *stripe.InvoiceItemParams) (*stripe.InvoiceItem, error) {
	f.invoiceItems = append(f.invoiceItems, params)
	return &stripe.InvoiceItem{ID: f.nextID("ii")}, nil
}

func (f *fakeBilling) UpdateMetadata(ctx context.Context, object provider.StripeObject, id string, metadata map[string]string) error {
	var current map[string]string
	switch object {
	case provider.StripeCustomer:
		current = f.customers[id].Metadata
	case provider.StripeProduct:
		current = f.products[id].Metadata
	case provider.StripePrice:
		current = f.prices[id].Metadata
	case provider.StripeSubscriptionSchedule:
		current = f.schedules[id].Metadata
	case provider.StripeInvoice:
		current = f.invoices[id].Metadata
	}
	for k, v := range metadata {
		current[k] = v
	}
	return nil
}

type fakeSyncRecords struct {
	records map[string]*entity.SyncRecord
}

func (f *fakeSyncRecords) Upsert(ctx context.Context, record *entity.SyncRecord) error {
	f.records[record.CompoundID] = record
	return nil
}

func (f *fakeSyncRecords) ListByPrimary(ctx context.Context, connectionID, primaryRecordID string) ([]*entity.SyncRecord, error) {
	var records []*entity.SyncRecord
	for _, record := range f.records {
		if record.ConnectionID == connectionID && record.PrimaryRecordID == primaryRecordID {
			records = append(records, record)
		}
	}
	return records, nil
}

type fakeLinks struct {
	links map[string]*entity.TranslationLink
}

func (f *fakeLinks) Save(ctx context.Context, link *entity.TranslationLink) error {
	f.links[link.SalesforceID+"/"+link.StripeObject] = link
	return nil
}

func (f *fakeLinks) Find(ctx context.Context, connectionID, salesforceID, stripeObject string) (*entity.TranslationLink, error) {
	return f.links[salesforceID+"/"+stripeObject], nil
}
