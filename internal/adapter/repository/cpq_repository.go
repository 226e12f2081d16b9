package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/crm"
	domainErrors "github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/errors"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/provider"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/repository"
	"go.uber.org/zap"
)

const amendedContractQuotePath = "Opportunity.SBQQ__AmendedContract__r.SBQQ__Quote__c"

type cpqRepository struct {
	crm    provider.CRMProvider
	logger *zap.Logger
}

// NewCPQRepository builds the CPQ traversals on SOQL
func NewCPQRepository(crmProvider provider.CRMProvider, logger *zap.Logger) repository.CPQRepository {
	return &cpqRepository{
		crm:    crmProvider,
		logger: logger,
	}
}

func (r *cpqRepository) FindInitialOrderForAmendment(ctx context.Context, amendment *crm.Record) (*crm.Record, error) {
	rows, err := r.crm.Query(ctx, fmt.Sprintf(
		"SELECT %s FROM %s WHERE Id = '%s'",
		amendedContractQuotePath, crm.ObjectOrder, escape(amendment.ID),
	))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domainErrors.NewImpossibleStateError("order amendments should always be associated with the initial quote")
	}
	if len(rows) > 1 {
		return nil, domainErrors.NewImpossibleStateError("exact ID match yields two records")
	}

	quoteID := rows[0].GetString(amendedContractQuotePath)
	if quoteID == "" {
		return nil, domainErrors.NewImpossibleStateError("amended contract has no quote")
	}
	r.logger.Info("Initial quote found", zap.String("quote_id", quoteID))

	orders, err := r.crm.Query(ctx, fmt.Sprintf(
		"SELECT Id FROM %s WHERE %s = '%s'",
		crm.ObjectOrder, crm.FieldOrderQuote, escape(quoteID),
	))
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, domainErrors.NewImpossibleStateError("initial order should be associated with an initial quote")
	}
	if len(orders) > 1 {
		return nil, domainErrors.NewImpossibleStateError("exact ID match yields two records")
	}

	return r.crm.Find(ctx, crm.ObjectOrder, orders[0].ID)
}

func (r *cpqRepository) FindContractForQuote(ctx context.Context, quoteID string) (*crm.Record, error) {
	rows, err := r.crm.Query(ctx, fmt.Sprintf(
		"SELECT Id FROM %s WHERE %s = '%s'",
		crm.ObjectContract, crm.FieldContractQuote, escape(quoteID),
	))
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return rows[0], nil
	default:
		return nil, domainErrors.NewImpossibleStateError("more than one contract associated with order")
	}
}

func (r *cpqRepository) FindAmendmentsForContract(ctx context.Context, contractID string) ([]*crm.Record, error) {
	rows, err := r.crm.Query(ctx, fmt.Sprintf(
		"SELECT Id, %s FROM %s WHERE Opportunity.SBQQ__AmendedContract__c = '%s' ORDER BY %s ASC",
		crm.QuoteStartDatePath, crm.ObjectOrder, escape(contractID), crm.QuoteStartDatePath,
	))
	if err != nil {
		return nil, err
	}

	amendments := make([]*crm.Record, 0, len(rows))
	for _, row := range rows {
		order, err := r.crm.Find(ctx, crm.ObjectOrder, row.ID)
		if err != nil {
			return nil, err
		}
		// Find does not expand relationships
		if quote, ok := row.Get("SBQQ__Quote__r"); ok && !order.Has(crm.QuoteStartDatePath) {
			order.Set("SBQQ__Quote__r", quote)
		}
		amendments = append(amendments, order)
	}

	sort.SliceStable(amendments, func(i, j int) bool {
		return amendments[i].GetString(crm.QuoteStartDatePath) < amendments[j].GetString(crm.QuoteStartDatePath)
	})
	return amendments, nil
}

func (r *cpqRepository) FindOrderLines(ctx context.Context, orderID string) ([]*crm.Record, error) {
	return r.findAll(ctx, crm.ObjectOrderItem, "Id", fmt.Sprintf(
		"SELECT Id FROM %s WHERE %s = '%s'",
		crm.ObjectOrderItem, crm.FieldOrderItemOrder, escape(orderID),
	))
}

func (r *cpqRepository) FindConsumptionSchedulesForProduct(ctx context.Context, productID string) ([]*crm.Record, error) {
	return r.findAll(ctx, crm.ObjectConsumptionSchedule, "ConsumptionScheduleId", fmt.Sprintf(
		"SELECT ConsumptionScheduleId FROM %s WHERE ProductId = '%s'",
		crm.ObjectProductConsumption, escape(productID),
	))
}

func (r *cpqRepository) FindConsumptionRates(ctx context.Context, scheduleID string) ([]*crm.Record, error) {
	return r.findAll(ctx, crm.ObjectConsumptionRate, "Id", fmt.Sprintf(
		"SELECT Id FROM %s WHERE ConsumptionScheduleId = '%s'",
		crm.ObjectConsumptionRate, escape(scheduleID),
	))
}

func (r *cpqRepository) FindOrderLineConsumptionSchedules(ctx context.Context, orderLineID string) ([]*crm.Record, error) {
	return r.findAll(ctx, crm.ObjectOrderItemConsumption, "Id", fmt.Sprintf(
		"SELECT Id FROM %s WHERE SBQQ__OrderItem__c = '%s'",
		crm.ObjectOrderItemConsumption, escape(orderLineID),
	))
}

func (r *cpqRepository) FindOrderLineConsumptionRates(ctx context.Context, scheduleID string) ([]*crm.Record, error) {
	return r.findAll(ctx, crm.ObjectOrderItemConsumptionRt, "Id", fmt.Sprintf(
		"SELECT Id FROM %s WHERE %s = '%s'",
		crm.ObjectOrderItemConsumptionRt, crm.ObjectOrderItemConsumption, escape(scheduleID),
	))
}

// findAll runs an id query and loads each full record
func (r *cpqRepository) findAll(ctx context.Context, objectType crm.ObjectType, idField, soql string) ([]*crm.Record, error) {
	rows, err := r.crm.Query(ctx, soql)
	if err != nil {
		return nil, err
	}
	records := make([]*crm.Record, 0, len(rows))
	for _, row := range rows {
		record, err := r.crm.Find(ctx, objectType, row.GetString(idField))
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

var soqlEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func escape(value string) string {
	return soqlEscaper.Replace(value)
}
