package translate

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/crm"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/errors"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/provider"
	"go.uber.org/zap"
)

// Target is the Stripe object a field mapping table applies to
type Target string

const (
	TargetCustomer             Target = "customer"
	TargetProduct              Target = "product"
	TargetPrice                Target = "price"
	TargetPriceOrderItem       Target = "price_order_item"
	TargetSubscriptionSchedule Target = "subscription_schedule"
	TargetSubscriptionItem     Target = "subscription_item"
	TargetInvoice              Target = "invoice"
)

// Mapped field paths read by the translator
const (
	fieldName              = "name"
	fieldUnitAmountDecimal = "unit_amount_decimal"
	fieldUsageType         = "recurring.usage_type"
	fieldIntervalCount     = "recurring.interval_count"
	fieldStartDate         = "start_date"
	fieldIterations        = "iterations"
	fieldQuantity          = "quantity"
	metadataFieldPrefix    = "metadata."
)

// requiredMappings must resolve to a value or the record fails with missing fields
var requiredMappings = map[Target]map[string]string{
	TargetCustomer:       {fieldName: "Name"},
	TargetProduct:        {fieldName: "Name"},
	TargetPrice:          {fieldUnitAmountDecimal: "UnitPrice"},
	TargetPriceOrderItem: {fieldUnitAmountDecimal: "UnitPrice"},
	TargetSubscriptionSchedule: {
		fieldStartDate:  "SBQQ__Quote__r.SBQQ__StartDate__c",
		fieldIterations: "SBQQ__Quote__r.SBQQ__SubscriptionTerm__c",
	},
	TargetSubscriptionItem: {fieldQuantity: "SBQQ__OrderedQuantity__c"},
	TargetInvoice:          {},
}

var defaultMappings = map[Target]map[string]string{
	TargetCustomer: {
		"description":                  "Description",
		"phone":                        "Phone",
		"address.line1":                "BillingStreet",
		"address.city":                 "BillingCity",
		"address.state":                "BillingState",
		"address.postal_code":          "BillingPostalCode",
		"address.country":              "BillingCountry",
		"shipping.name":                "Name",
		"shipping.phone":               "Phone",
		"shipping.address.line1":       "ShippingStreet",
		"shipping.address.city":        "ShippingCity",
		"shipping.address.state":       "ShippingState",
		"shipping.address.postal_code": "ShippingPostalCode",
		"shipping.address.country":     "ShippingCountry",
	},
	TargetProduct: {"description": "Description"},
	TargetPrice: {
		fieldUsageType:     "Product2.SBQQ__BillingType__c",
		fieldIntervalCount: "Product2.SBQQ__BillingFrequency__c",
	},
	TargetPriceOrderItem: {
		fieldUsageType:     "SBQQ__BillingType__c",
		fieldIntervalCount: "SBQQ__BillingFrequency__c",
	},
	TargetInvoice: {"description": "Description"},
}

// Values are mapped Stripe field paths and their Salesforce values
type Values map[string]interface{}

// Has reports whether field resolved to a non-nil value
func (v Values) Has(field string) bool {
	return v[field] != nil
}

func (v Values) String(field string) string {
	switch t := v[field].(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// Decimal returns the field as a decimal. ok is false when the field is absent.
func (v Values) Decimal(field string) (decimal.Decimal, bool, error) {
	raw, present := v[field]
	if !present || raw == nil {
		return decimal.Zero, false, nil
	}
	d, err := toDecimal(raw)
	if err != nil {
		return decimal.Zero, true, domainErrors.NewRawUserError(fmt.Sprintf("expected a number for %s, got %v", field, raw))
	}
	return d, true, nil
}

// Metadata collects metadata.* fields
func (v Values) Metadata() map[string]string {
	metadata := map[string]string{}
	for field := range v {
		if key, ok := strings.CutPrefix(field, metadataFieldPrefix); ok && v.Has(field) {
			metadata[key] = v.String(field)
		}
	}
	return metadata
}

// fields returns the non-metadata field paths in stable order
func (v Values) fields() []string {
	fields := make([]string, 0, len(v))
	for field := range v {
		if !strings.HasPrefix(field, metadataFieldPrefix) && v.Has(field) {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)
	return fields
}

func toDecimal(raw interface{}) (decimal.Decimal, error) {
	switch t := raw.(type) {
	case decimal.Decimal:
		return t, nil
	case float64:
		return decimal.NewFromFloat(t), nil
	case float32:
		return decimal.NewFromFloat32(t), nil
	case int:
		return decimal.NewFromInt(int64(t)), nil
	case int64:
		return decimal.NewFromInt(t), nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(t))
	default:
		return decimal.Zero, fmt.Errorf("unsupported numeric value %T", raw)
	}
}

// Mapper resolves field mapping tables against Salesforce records. Related
// records reached through relationship paths are cached for the mapper's lifetime.
type Mapper struct {
	conn    *entity.Connection
	crm     provider.CRMProvider
	logger  *zap.Logger
	related map[string]*crm.Record
}

func newMapper(conn *entity.Connection, crmProvider provider.CRMProvider, logger *zap.Logger) *Mapper {
	return &Mapper{
		conn:    conn,
		crm:     crmProvider,
		logger:  logger,
		related: map[string]*crm.Record{},
	}
}

// Map resolves required, default and custom mappings plus static defaults for target.
// Any required mapping without a value fails with MissingRequiredFields.
func (m *Mapper) Map(ctx context.Context, record *crm.Record, target Target) (Values, error) {
	required, ok := requiredMappings[target]
	if !ok {
		return nil, domainErrors.NewImpossibleInternalError(fmt.Sprintf("expected mappings for %s but they were nil", target))
	}

	values := Values{}
	var missing []string
	for _, field := range sortedKeys(required) {
		value, err := m.Resolve(ctx, record, required[field])
		if err != nil {
			return nil, err
		}
		if value == nil {
			missing = append(missing, required[field])
			continue
		}
		values[field] = value
	}
	if len(missing) > 0 {
		return nil, domainErrors.NewMissingRequiredFieldsError(record, missing)
	}

	defaults := mergeMappings(defaultMappings[target], m.conn.DefaultMappings[string(target)])
	if err := m.resolveInto(ctx, record, defaults, values); err != nil {
		return nil, err
	}
	if err := m.resolveInto(ctx, record, m.conn.FieldMappings[string(target)], values); err != nil {
		return nil, err
	}
	for field, value := range m.conn.FieldDefaults[string(target)] {
		values[field] = value
	}
	return values, nil
}

// RequiredPath returns the source path of a required field, honoring custom overrides
func (m *Mapper) RequiredPath(target Target, field string) string {
	if path := m.conn.FieldMappings[string(target)][field]; path != "" {
		return path
	}
	return requiredMappings[target][field]
}

// HasCustomMapping reports whether the user mapped field of target
func (m *Mapper) HasCustomMapping(target Target, field string) bool {
	return m.conn.FieldMappings[string(target)][field] != ""
}

func (m *Mapper) resolveInto(ctx context.Context, record *crm.Record, mappings map[string]string, values Values) error {
	for _, field := range sortedKeys(mappings) {
		value, err := m.Resolve(ctx, record, mappings[field])
		if err != nil {
			return err
		}
		if value != nil {
			values[field] = value
		}
	}
	return nil
}

// Resolve reads a dotted source path from record, following relationship
// segments such as SBQQ__Quote__r or Product2 with lookups when the related
// record is not embedded. It returns nil when any segment is empty.
func (m *Mapper) Resolve(ctx context.Context, record *crm.Record, path string) (interface{}, error) {
	if path == "" || record == nil {
		return nil, nil
	}
	if value, ok := record.Get(path); ok {
		return value, nil
	}

	head, rest, nested := strings.Cut(path, ".")
	if !nested {
		return nil, nil
	}

	objectType, idField, ok := crm.RelationshipType(head)
	if !ok {
		m.logger.Warn("Unknown relationship in mapping path",
			zap.String("path", path),
			zap.String("salesforce_type", string(record.Type)))
		return nil, nil
	}

	relatedID := record.GetString(idField)
	if relatedID == "" {
		return nil, nil
	}

	related, err := m.find(ctx, objectType, relatedID)
	if err != nil {
		return nil, err
	}
	return m.Resolve(ctx, related, rest)
}

func (m *Mapper) find(ctx context.Context, objectType crm.ObjectType, id string) (*crm.Record, error) {
	if cached, ok := m.related[id]; ok {
		return cached, nil
	}
	record, err := m.crm.Find(ctx, objectType, id)
	if err != nil {
		return nil, err
	}
	m.related[id] = record
	return record, nil
}

func mergeMappings(base, overrides map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(overrides))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
