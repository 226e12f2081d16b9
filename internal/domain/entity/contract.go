package entity

import "github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/crm"

// ContractStructure is an initial order and its amendments in effective date order
type ContractStructure struct {
	Initial    *crm.Record
	Amendments []*crm.Record
}

// ContractSummary is the diagnostic view of a ContractStructure
type ContractSummary struct {
	InitialOrderID string               `json:"initial_order_id"`
	Amendments     []AmendmentReference `json:"amendments"`
}

type AmendmentReference struct {
	OrderID   string `json:"order_id"`
	StartDate string `json:"start_date"`
}

// Summary returns the ids and start dates of the structure
func (c *ContractStructure) Summary() ContractSummary {
	summary := ContractSummary{
		InitialOrderID: c.Initial.ID,
		Amendments:     make([]AmendmentReference, 0, len(c.Amendments)),
	}
	for _, amendment := range c.Amendments {
		summary.Amendments = append(summary.Amendments, AmendmentReference{
			OrderID:   amendment.ID,
			StartDate: amendment.GetString(crm.QuoteStartDatePath),
		})
	}
	return summary
}
