package salesforce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/crm"
	domainErrors "github.com/wekeepgrowing/stripe-cpq-connector/internal/domain/errors"
	pkgErrors "github.com/wekeepgrowing/stripe-cpq-connector/pkg/errors"
	"go.uber.org/zap"
)

// APIError is an error response from the Salesforce REST API
type APIError struct {
	StatusCode int
	ErrorCode  string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("salesforce %d %s: %s", e.StatusCode, e.ErrorCode, e.Message)
}

// Code maps the HTTP status to an application error code
func (e *APIError) Code() string {
	return pkgErrors.FromHTTPStatus(e.StatusCode)
}

// Client implements the CRMProvider interface over the Salesforce REST API
type Client struct {
	instanceURL string
	accessToken string
	apiVersion  string
	client      *http.Client
	logger      *zap.Logger
}

// NewClient creates a REST client for one org
func NewClient(instanceURL, accessToken, apiVersion string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		instanceURL: strings.TrimRight(instanceURL, "/"),
		accessToken: accessToken,
		apiVersion:  apiVersion,
		client:      httpClient,
		logger:      logger.Named("salesforce"),
	}
}

// Find returns every field of a single record
// GET /services/data/{version}/sobjects/{type}/{id}
func (c *Client) Find(ctx context.Context, objectType crm.ObjectType, id string) (*crm.Record, error) {
	var raw map[string]interface{}
	path := fmt.Sprintf("/sobjects/%s/%s", objectType, url.PathEscape(id))
	if err := c.do(ctx, http.MethodGet, c.dataURL(path), nil, &raw); err != nil {
		return nil, domainErrors.NewCRMAPIError(fmt.Sprintf("failed to find %s %s", objectType, id), err)
	}
	return toRecord(raw, objectType), nil
}

type queryResponse struct {
	Done           bool                     `json:"done"`
	NextRecordsURL string                   `json:"nextRecordsUrl"`
	Records        []map[string]interface{} `json:"records"`
}

// Query runs SOQL and follows nextRecordsUrl until done
// GET /services/data/{version}/query?q=
func (c *Client) Query(ctx context.Context, soql string) ([]*crm.Record, error) {
	target := c.dataURL("/query?q=" + url.QueryEscape(soql))
	var records []*crm.Record

	for {
		var resp queryResponse
		if err := c.do(ctx, http.MethodGet, target, nil, &resp); err != nil {
			return nil, domainErrors.NewCRMAPIError("query failed", err)
		}
		for _, raw := range resp.Records {
			records = append(records, toRecord(raw, ""))
		}
		if resp.Done || resp.NextRecordsURL == "" {
			break
		}
		target = c.instanceURL + resp.NextRecordsURL
	}

	c.logger.Debug("Query completed",
		zap.String("soql", soql),
		zap.Int("records", len(records)))
	return records, nil
}

// Update patches fields on a record
// PATCH /services/data/{version}/sobjects/{type}/{id}
func (c *Client) Update(ctx context.Context, objectType crm.ObjectType, id string, fields map[string]interface{}) error {
	path := fmt.Sprintf("/sobjects/%s/%s", objectType, url.PathEscape(id))
	if err := c.do(ctx, http.MethodPatch, c.dataURL(path), fields, nil); err != nil {
		return domainErrors.NewCRMAPIError(fmt.Sprintf("failed to update %s %s", objectType, id), err)
	}
	c.logger.Info("Record updated",
		zap.String("salesforce_type", string(objectType)),
		zap.String("salesforce_id", id))
	return nil
}

// Upsert creates or updates a record by external id.
// A missing external id field is reported by Salesforce as NOT_FOUND.
// PATCH /services/data/{version}/sobjects/{type}/{field}/{value}
func (c *Client) Upsert(ctx context.Context, objectType crm.ObjectType, externalIDField, externalID string, fields map[string]interface{}) error {
	path := fmt.Sprintf("/sobjects/%s/%s/%s", objectType, externalIDField, url.PathEscape(externalID))
	if err := c.do(ctx, http.MethodPatch, c.dataURL(path), fields, nil); err != nil {
		return domainErrors.NewCRMAPIError(fmt.Sprintf("failed to upsert %s %s", objectType, externalID), err)
	}
	return nil
}

func (c *Client) dataURL(path string) string {
	return fmt.Sprintf("%s/services/data/%s%s", c.instanceURL, c.apiVersion, path)
}

func (c *Client) do(ctx context.Context, method, target string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to prepare request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := parseError(resp.StatusCode, respBody)
		c.logger.Warn("Salesforce API error",
			zap.String("method", method),
			zap.Int("status_code", resp.StatusCode),
			zap.String("error_code", apiErr.ErrorCode),
			zap.String("message", apiErr.Message))
		return apiErr
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func parseError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Message: http.StatusText(status)}

	var errs []struct {
		Message   string `json:"message"`
		ErrorCode string `json:"errorCode"`
	}
	if err := json.Unmarshal(body, &errs); err == nil && len(errs) > 0 {
		apiErr.ErrorCode = errs[0].ErrorCode
		apiErr.Message = errs[0].Message
	}
	return apiErr
}

// toRecord strips attributes recursively and types the record from them
func toRecord(raw map[string]interface{}, fallback crm.ObjectType) *crm.Record {
	objectType := fallback
	if attrs, ok := raw["attributes"].(map[string]interface{}); ok {
		if t, ok := attrs["type"].(string); ok {
			objectType = crm.ObjectType(t)
		}
	}
	id, _ := raw[crm.FieldID].(string)
	return crm.NewRecord(objectType, id, stripAttributes(raw))
}

func stripAttributes(raw map[string]interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		if k == "attributes" {
			continue
		}
		if nested, ok := v.(map[string]interface{}); ok {
			v = stripAttributes(nested)
		}
		fields[k] = v
	}
	return fields
}
