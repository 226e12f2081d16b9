package translate

import (
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/crm"
	domainErrors "github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/errors"
	"go.uber.org/zap"
)

const skippedRevisionMessage = "Any order items that are revising order items from a previous order must not be skipped."

// mergePhaseItems folds the items of an amendment into the aggregate items of
// the phase it follows. Items revising an earlier line replace that line's item.
// The aggregate slice and its items are left untouched.
func (s *session) mergePhaseItems(aggregate, additions []*phaseItem) ([]*phaseItem, error) {
	lineKey := s.metadata.idKey(crm.ObjectOrderItem)
	lineageKey := s.metadata.key(metadataOriginalOrderItemID)

	merged := make([]*phaseItem, len(aggregate), len(aggregate)+len(additions))
	copy(merged, aggregate)

	for _, item := range additions {
		if item.OriginalOrderLineID == "" {
			s.logger.Info("Line is not revising a previous line item", zap.String("price", item.Price))
			merged = append(merged, item)
			continue
		}

		index := -1
		for i, candidate := range merged {
			if candidate.Metadata[lineKey] == item.OriginalOrderLineID || candidate.Metadata[lineageKey] == item.OriginalOrderLineID {
				index = i
				break
			}
		}
		if index < 0 {
			return nil, domainErrors.NewUserError(item.OrderLine, skippedRevisionMessage)
		}

		item.supersede(merged[index], lineageKey)
		merged = append(merged[:index], merged[index+1:]...)
		s.logger.Info("Removed old phase item",
			zap.String("revised_order_item_id", item.OriginalOrderLineID),
			zap.Int64("quantity", item.Quantity))

		merged = append(merged, item)
	}
	return merged, nil
}

// activeItems drops terminated items, returning the kept and dropped items
func activeItems(items []*phaseItem) (active, terminated []*phaseItem) {
	for _, item := range items {
		if item.terminated() {
			terminated = append(terminated, item)
		} else {
			active = append(active, item)
		}
	}
	return active, terminated
}

// markTerminated stamps the effective termination date on the items of prev
// that the terminated items replace, and on prev itself
func (s *session) markTerminated(prev *phase, terminated []*phaseItem, date string) {
	if len(terminated) == 0 {
		return
	}
	key := s.metadata.key(metadataEffectiveTerminationDate)
	lineKey := s.metadata.idKey(crm.ObjectOrderItem)

	for _, item := range terminated {
		if item.previous == nil {
			continue
		}
		for _, candidate := range prev.Items {
			if candidate.Price != item.previous.Price || candidate.Metadata[lineKey] != item.previous.Metadata[lineKey] {
				continue
			}
			if candidate.Metadata == nil {
				candidate.Metadata = map[string]string{}
			}
			candidate.Metadata[key] = date
		}
	}
	if prev.Metadata == nil {
		prev.Metadata = map[string]string{}
	}
	prev.Metadata[key] = date
}
