package crm

import (
	"fmt"
	"strings"
)

// ObjectType is a Salesforce sobject API name
type ObjectType string

const (
	ObjectAccount                ObjectType = "Account"
	ObjectContact                ObjectType = "Contact"
	ObjectContract               ObjectType = "Contract"
	ObjectOpportunity            ObjectType = "Opportunity"
	ObjectOrder                  ObjectType = "Order"
	ObjectOrderItem              ObjectType = "OrderItem"
	ObjectPricebook              ObjectType = "Pricebook2"
	ObjectPricebookEntry         ObjectType = "PricebookEntry"
	ObjectProduct                ObjectType = "Product2"
	ObjectConsumptionSchedule    ObjectType = "ConsumptionSchedule"
	ObjectConsumptionRate        ObjectType = "ConsumptionRate"
	ObjectProductConsumption     ObjectType = "ProductConsumptionSchedule"
	ObjectQuote                  ObjectType = "SBQQ__Quote__c"
	ObjectOrderItemConsumption   ObjectType = "SBQQ__OrderItemConsumptionSchedule__c"
	ObjectOrderItemConsumptionRt ObjectType = "SBQQ__OrderItemConsumptionRate__c"
)

// Standard and CPQ field names read by the translator
const (
	FieldID        = "Id"
	FieldIsDeleted = "IsDeleted"
	FieldIsActive  = "IsActive"

	FieldOrderType       = "Type"
	FieldOrderAccount    = "AccountId"
	FieldOrderQuote      = "SBQQ__Quote__c"
	FieldOrderContracted = "SBQQ__Contracted__c"

	FieldOrderItemOrder        = "OrderId"
	FieldOrderItemProduct      = "Product2Id"
	FieldOrderItemPricebook    = "PricebookEntryId"
	FieldOrderItemRevised      = "SBQQ__RevisedOrderProduct__c"
	FieldOrderItemActivated    = "SBQQ__Activated__c"
	FieldSubscriptionPricing   = "SBQQ__SubscriptionPricing__c"
	FieldPricebookEntryProduct = "Product2Id"

	FieldContractQuote     = "SBQQ__Quote__c"
	FieldQuoteStartDate    = "SBQQ__StartDate__c"
	FieldQuoteSubscription = "SBQQ__SubscriptionTerm__c"

	// QuoteStartDatePath is the amendment sort key, read through the order's quote
	QuoteStartDatePath = "SBQQ__Quote__r.SBQQ__StartDate__c"
)

// Order types written by CPQ
const (
	OrderTypeNew       = "New"
	OrderTypeAmendment = "Amendment"
)

var idPrefixes = map[string]ObjectType{
	"01s": ObjectPricebook,
	"01t": ObjectProduct,
	"01u": ObjectPricebookEntry,
	"001": ObjectAccount,
	"003": ObjectContact,
	"800": ObjectContract,
	"801": ObjectOrder,
	"802": ObjectOrderItem,
	"0Mh": ObjectConsumptionSchedule,
	"0Mo": ObjectConsumptionRate,
}

// TypeFromID derives the object type from the three character key prefix
func TypeFromID(id string) (ObjectType, error) {
	if len(id) < 3 {
		return "", fmt.Errorf("invalid salesforce id %q", id)
	}
	if t, ok := idPrefixes[id[:3]]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown object type for id %q", id)
}

// RelationshipType returns the object type and id field behind a relationship
// path segment, such as SBQQ__Quote__r or Product2.
func RelationshipType(segment string) (ObjectType, string, bool) {
	if strings.HasSuffix(segment, "__r") {
		base := strings.TrimSuffix(segment, "__r")
		return ObjectType(base + "__c"), base + "__c", true
	}
	switch ObjectType(segment) {
	case ObjectAccount, ObjectContract, ObjectOpportunity, ObjectOrder, ObjectProduct, ObjectPricebookEntry:
		return ObjectType(segment), segment + "Id", true
	}
	return "", "", false
}
