package salesforce

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/crm"
	domainErrors "github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/errors"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL+"/", "token-123", "v58.0", server.Client(), zap.NewNop())
}

func TestClient_Find(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/services/data/v58.0/sobjects/Order/801000000000001", r.URL.Path)
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"attributes": map[string]interface{}{"type": "Order", "url": "/x"},
			"Id":         "801000000000001",
			"Type":       "New",
			"SBQQ__Quote__r": map[string]interface{}{
				"attributes":         map[string]interface{}{"type": "SBQQ__Quote__c"},
				"SBQQ__StartDate__c": "2024-01-01",
			},
		})
	})

	record, err := client.Find(context.Background(), crm.ObjectOrder, "801000000000001")
	require.NoError(t, err)
	assert.Equal(t, crm.ObjectOrder, record.Type)
	assert.Equal(t, "801000000000001", record.ID)
	assert.Equal(t, "New", record.GetString("Type"))
	assert.Equal(t, "2024-01-01", record.GetString(crm.QuoteStartDatePath))
	assert.False(t, record.Has("attributes"))
	assert.False(t, record.Has("SBQQ__Quote__r.attributes"))
}

func TestClient_QueryFollowsPagination(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/services/data/v58.0/query":
			assert.Equal(t, "SELECT Id FROM OrderItem", r.URL.Query().Get("q"))
			json.NewEncoder(w).Encode(map[string]interface{}{
				"done":           false,
				"nextRecordsUrl": "/services/data/v58.0/query/01g-2000",
				"records": []map[string]interface{}{
					{"attributes": map[string]interface{}{"type": "OrderItem"}, "Id": "802000000000001"},
				},
			})
		case "/services/data/v58.0/query/01g-2000":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"done": true,
				"records": []map[string]interface{}{
					{"attributes": map[string]interface{}{"type": "OrderItem"}, "Id": "802000000000002"},
				},
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	records, err := client.Query(context.Background(), "SELECT Id FROM OrderItem")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "802000000000001", records[0].ID)
	assert.Equal(t, crm.ObjectOrderItem, records[1].Type)
}

func TestClient_Upsert(t *testing.T) {
	var body map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/services/data/v58.0/sobjects/Sync_Record__c/Compound_ID__c/801-802", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &body)
		w.WriteHeader(http.StatusCreated)
	})

	err := client.Upsert(context.Background(), "Sync_Record__c", "Compound_ID__c", "801-802", map[string]interface{}{
		"Resolution_Status__c": "Error",
	})
	require.NoError(t, err)
	assert.Equal(t, "Error", body["Resolution_Status__c"])
}

func TestClient_ErrorResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`[{"message":"No such column 'Foo'","errorCode":"INVALID_FIELD"}]`))
	})

	_, err := client.Query(context.Background(), "SELECT Foo FROM Order")
	require.Error(t, err)
	assert.True(t, domainErrors.IsKind(err, domainErrors.KindCRMAPI))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "INVALID_FIELD", apiErr.ErrorCode)
	assert.False(t, IsTransient(err))
}
