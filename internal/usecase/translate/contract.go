package translate

import (
	"context"

	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/crm"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/errors"
	"go.uber.org/zap"
)

// contractStructure resolves the initial order and its amendments, in
// effective date order, for any order of a contract
func (s *session) contractStructure(ctx context.Context, order *crm.Record) (*entity.ContractStructure, error) {
	orderType := order.GetString(crm.FieldOrderType)
	if orderType != crm.OrderTypeNew && orderType != crm.OrderTypeAmendment {
		s.logger.Error("Unexpected order type", zap.String("type", orderType))
	}

	if orderType == crm.OrderTypeNew && !order.GetBool(crm.FieldOrderContracted) {
		s.logger.Info("Order is not contracted, assuming only initial order")
		return &entity.ContractStructure{Initial: order}, nil
	}

	initial := order
	if orderType != crm.OrderTypeNew {
		var err error
		initial, err = s.cpq.FindInitialOrderForAmendment(ctx, order)
		if err != nil {
			return nil, err
		}
		s.logger.Info("Found initial order", zap.String("initial_order_id", initial.ID))
	}

	quoteID := initial.GetString(crm.FieldOrderQuote)
	if quoteID == "" {
		return nil, domainErrors.NewImpossibleStateError("no quote associated with order")
	}

	contract, err := s.cpq.FindContractForQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		s.logger.Info("Order is contracted, but no contract is associated", zap.String("initial_order_id", initial.ID))
		return &entity.ContractStructure{Initial: initial}, nil
	}
	s.logger.Info("Contract for order found", zap.String("contract_id", contract.ID))

	amendments, err := s.cpq.FindAmendmentsForContract(ctx, contract.ID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(amendments))
	for _, amendment := range amendments {
		ids = append(ids, amendment.ID)
	}
	s.logger.Info("Order amendments found", zap.Strings("amendment_ids", ids))

	return &entity.ContractStructure{Initial: initial, Amendments: amendments}, nil
}
