package repository

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/crm"
	domainErrors "github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/errors"
	"go.uber.org/zap"
)

// stubCRM answers queries by the first matching substring
type stubCRM struct {
	queries map[string][]*crm.Record
	records map[string]*crm.Record
	seen    []string
}

func (s *stubCRM) Find(ctx context.Context, objectType crm.ObjectType, id string) (*crm.Record, error) {
	if r, ok := s.records[id]; ok {
		return r, nil
	}
	return crm.NewRecord(objectType, id, nil), nil
}

func (s *stubCRM) Query(ctx context.Context, soql string) ([]*crm.Record, error) {
	s.seen = append(s.seen, soql)
	for fragment, rows := range s.queries {
		if strings.Contains(soql, fragment) {
			return rows, nil
		}
	}
	return nil, nil
}

func (s *stubCRM) Update(ctx context.Context, objectType crm.ObjectType, id string, fields map[string]interface{}) error {
	return nil
}

func (s *stubCRM) Upsert(ctx context.Context, objectType crm.ObjectType, externalIDField, externalID string, fields map[string]interface{}) error {
	return nil
}

func TestCPQRepository_FindInitialOrderForAmendment(t *testing.T) {
	stub := &stubCRM{
		queries: map[string][]*crm.Record{
			"FROM Order WHERE Id = '801AMEND'": {crm.NewRecord(crm.ObjectOrder, "801AMEND", map[string]interface{}{
				"Opportunity": map[string]interface{}{
					"SBQQ__AmendedContract__r": map[string]interface{}{"SBQQ__Quote__c": "a0zQUOTE"},
				},
			})},
			"SBQQ__Quote__c = 'a0zQUOTE'": {crm.NewRecord(crm.ObjectOrder, "801INIT", nil)},
		},
		records: map[string]*crm.Record{
			"801INIT": crm.NewRecord(crm.ObjectOrder, "801INIT", map[string]interface{}{"Type": "New"}),
		},
	}
	repo := NewCPQRepository(stub, zap.NewNop())

	initial, err := repo.FindInitialOrderForAmendment(context.Background(), crm.NewRecord(crm.ObjectOrder, "801AMEND", nil))
	require.NoError(t, err)
	assert.Equal(t, "801INIT", initial.ID)
	assert.Equal(t, "New", initial.GetString("Type"))
}

func TestCPQRepository_FindInitialOrderForAmendment_NoInitialOrder(t *testing.T) {
	stub := &stubCRM{
		queries: map[string][]*crm.Record{
			"FROM Order WHERE Id = '801AMEND'": {crm.NewRecord(crm.ObjectOrder, "801AMEND", map[string]interface{}{
				"Opportunity": map[string]interface{}{
					"SBQQ__AmendedContract__r": map[string]interface{}{"SBQQ__Quote__c": "a0zQUOTE"},
				},
			})},
		},
	}
	repo := NewCPQRepository(stub, zap.NewNop())

	_, err := repo.FindInitialOrderForAmendment(context.Background(), crm.NewRecord(crm.ObjectOrder, "801AMEND", nil))
	assert.True(t, domainErrors.IsKind(err, domainErrors.KindImpossibleState))
}

func TestCPQRepository_FindContractForQuote(t *testing.T) {
	stub := &stubCRM{queries: map[string][]*crm.Record{}}
	repo := NewCPQRepository(stub, zap.NewNop())

	contract, err := repo.FindContractForQuote(context.Background(), "a0zQUOTE")
	require.NoError(t, err)
	assert.Nil(t, contract)

	stub.queries["FROM Contract"] = []*crm.Record{
		crm.NewRecord(crm.ObjectContract, "800A", nil),
		crm.NewRecord(crm.ObjectContract, "800B", nil),
	}
	_, err = repo.FindContractForQuote(context.Background(), "a0zQUOTE")
	assert.True(t, domainErrors.IsKind(err, domainErrors.KindImpossibleState))
}

func TestCPQRepository_FindAmendmentsForContract_SortsByQuoteStartDate(t *testing.T) {
	row := func(id, date string) *crm.Record {
		return crm.NewRecord(crm.ObjectOrder, id, map[string]interface{}{
			"SBQQ__Quote__r": map[string]interface{}{"SBQQ__StartDate__c": date},
		})
	}
	stub := &stubCRM{queries: map[string][]*crm.Record{
		"SBQQ__AmendedContract__c = '800A'": {row("801C", "2024-03-01"), row("801B", "2024-02-01")},
	}}
	repo := NewCPQRepository(stub, zap.NewNop())

	amendments, err := repo.FindAmendmentsForContract(context.Background(), "800A")
	require.NoError(t, err)
	require.Len(t, amendments, 2)
	assert.Equal(t, "801B", amendments[0].ID)
	assert.Equal(t, "2024-03-01", amendments[1].GetString(crm.QuoteStartDatePath))
	assert.Contains(t, stub.seen[0], "ORDER BY SBQQ__Quote__r.SBQQ__StartDate__c ASC")
}

func TestEscape(t *testing.T) {
	assert.Equal(t, `a\'b\\c`, escape(`a'b\c`))
}
