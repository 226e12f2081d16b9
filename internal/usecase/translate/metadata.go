package translate

import (
	"strings"
	"unicode"

	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/crm"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/entity"
)

// Stripe rejects metadata keys longer than 40 characters
const maxMetadataKeyLength = 40

// Metadata key suffixes written by the translator
const (
	metadataAutoArchive              = "auto_archive"
	metadataDuplicate                = "duplicate"
	metadataOriginalStripePriceID    = "original_stripe_price_id"
	metadataOriginalOrderItemID      = "original_order_item_id"
	metadataEffectiveTerminationDate = "effective_termination_date"
)

var namespaceMetadataNames = []string{
	underscore(entity.NamespaceQA),
	underscore(entity.NamespaceProduction),
}

// underscore converts CamelCase to snake_case
func underscore(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// metadataName derives the short object name used in metadata keys,
// e.g. SBQQ__OrderItemConsumptionSchedule__c becomes oi_consumption_schedule.
func metadataName(objectType crm.ObjectType) string {
	name := underscore(string(objectType))
	name = strings.TrimSuffix(name, "__c")
	name = strings.ReplaceAll(name, "sbqq__", "")
	name = strings.ReplaceAll(name, "order_item_", "oi_")
	for _, ns := range namespaceMetadataNames {
		if strings.Contains(name, ns) {
			name = strings.Replace(name, ns, "", 1)
			break
		}
	}
	return name
}

type metadataBuilder struct {
	conn *entity.Connection
}

// key prefixes a metadata key with the connection's metadata prefix
func (m metadataBuilder) key(name string) string {
	return m.conn.MetadataPrefix + name
}

func (m metadataBuilder) bounded(name, suffix string) string {
	key := m.key(name)
	if overflow := len(key) + len(suffix) - maxMetadataKeyLength; overflow > 0 && overflow < len(key) {
		key = key[:len(key)-overflow]
	}
	return key + suffix
}

// idKey is the metadata key holding the id of a record of objectType
func (m metadataBuilder) idKey(objectType crm.ObjectType) string {
	return m.bounded(metadataName(objectType), "_id")
}

func (m metadataBuilder) linkKey(objectType crm.ObjectType) string {
	return m.bounded(metadataName(objectType), "_link")
}

// forRecord returns the cross-reference key and link of record
func (m metadataBuilder) forRecord(record *crm.Record) map[string]string {
	return map[string]string{
		m.idKey(record.Type):   record.ID,
		m.linkKey(record.Type): m.conn.SalesforceInstanceURL + "/" + record.ID,
	}
}

// missingFrom returns the cross-reference entries absent from or differing in current
func (m metadataBuilder) missingFrom(record *crm.Record, current map[string]string) map[string]string {
	missing := map[string]string{}
	for k, v := range m.forRecord(record) {
		if current[k] != v {
			missing[k] = v
		}
	}
	return missing
}

func mergeMetadata(maps ...map[string]string) map[string]string {
	merged := map[string]string{}
	for _, m := range maps {
		for k, v := range m {
			merged[k] = v
		}
	}
	return merged
}
