package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/crm"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/entity"
)

func TestMetadataName(t *testing.T) {
	cases := map[crm.ObjectType]string{
		crm.ObjectOrder:                   "order",
		crm.ObjectOrderItem:               "order_item",
		crm.ObjectPricebookEntry:          "pricebook_entry",
		crm.ObjectProduct:                 "product2",
		crm.ObjectOrderItemConsumption:    "oi_consumption_schedule",
		crm.ObjectConsumptionSchedule:     "consumption_schedule",
		"stripeConnector__Sync_Record__c": "__sync_record",
	}
	for objectType, want := range cases {
		assert.Equal(t, want, metadataName(objectType), string(objectType))
	}
}

func TestMetadataForRecord(t *testing.T) {
	m := metadataBuilder{conn: &entity.Connection{
		SalesforceInstanceURL: "https://acme.my.salesforce.com",
		MetadataPrefix:        "salesforce_",
	}}
	record := crm.NewRecord(crm.ObjectOrderItem, "8020000000000001", nil)

	assert.Equal(t, map[string]string{
		"salesforce_order_item_id":   "8020000000000001",
		"salesforce_order_item_link": "https://acme.my.salesforce.com/8020000000000001",
	}, m.forRecord(record))
}

func TestMetadataKeyTruncation(t *testing.T) {
	m := metadataBuilder{conn: &entity.Connection{MetadataPrefix: "a_very_long_connector_prefix_"}}

	key := m.linkKey(crm.ObjectOrderItemConsumptionRt)
	assert.Len(t, key, maxMetadataKeyLength)
	assert.Contains(t, key, "_link")
}

func TestMetadataMissingFrom(t *testing.T) {
	m := metadataBuilder{conn: &entity.Connection{SalesforceInstanceURL: "https://x", MetadataPrefix: "salesforce_"}}
	record := crm.NewRecord(crm.ObjectAccount, "0010000000000001", nil)

	missing := m.missingFrom(record, map[string]string{"salesforce_account_id": "0010000000000001"})
	assert.Equal(t, map[string]string{"salesforce_account_link": "https://x/0010000000000001"}, missing)
}
