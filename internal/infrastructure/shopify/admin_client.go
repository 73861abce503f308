package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"vendhub-portal-api/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

type adminClient struct {
	client      *goshopify.Client
	storeDomain string
	accessToken string
	apiVersion  string
	httpClient  *http.Client
	logger      zerolog.Logger
}

// customerListOptions is encoded into the customers.json query string by the
// go-shopify query-options mechanism.
type customerListOptions struct {
	Tags  string `url:"tags,omitempty"`
	Limit int    `url:"limit,omitempty"`
}

// NewAdminClient creates an Admin API adapter authenticated with a static
// access token.
func NewAdminClient(storeDomain, accessToken, apiVersion string, logger zerolog.Logger) (ports.AdminClient, error) {
	client, err := goshopify.NewClient(
		goshopify.App{},
		storeDomain,
		accessToken,
		goshopify.WithVersion(apiVersion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return &adminClient{
		client:      client,
		storeDomain: storeDomain,
		accessToken: accessToken,
		apiVersion:  apiVersion,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
	}, nil
}

// Customer API

func (c *adminClient) ListCustomersByTag(ctx context.Context, tag string, limit int) ([]goshopify.Customer, error) {
	customers, err := c.client.Customer.List(ctx, customerListOptions{Tags: tag, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	return customers, nil
}

func (c *adminClient) GetCustomer(ctx context.Context, customerID uint64) (*goshopify.Customer, error) {
	customer, err := c.client.Customer.Get(ctx, customerID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return customer, nil
}

func (c *adminClient) CreateCustomer(ctx context.Context, customer goshopify.Customer) (*goshopify.Customer, error) {
	created, err := c.client.Customer.Create(ctx, customer)
	if err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	return created, nil
}

func (c *adminClient) UpdateCustomerTags(ctx context.Context, customerID uint64, tags string) error {
	_, err := c.client.Customer.Update(ctx, goshopify.Customer{
		Id:   customerID,
		Tags: tags,
	})
	if err != nil {
		return fmt.Errorf("failed to update customer tags: %w", err)
	}
	return nil
}

// Customer metafields

func (c *adminClient) ListMetafields(ctx context.Context, customerID uint64) ([]goshopify.Metafield, error) {
	metafields, err := c.client.Customer.ListMetafields(ctx, customerID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list metafields: %w", err)
	}
	return metafields, nil
}

func (c *adminClient) CreateMetafield(ctx context.Context, customerID uint64, metafield goshopify.Metafield) (*goshopify.Metafield, error) {
	created, err := c.client.Customer.CreateMetafield(ctx, customerID, metafield)
	if err != nil {
		return nil, fmt.Errorf("failed to create metafield: %w", err)
	}
	return created, nil
}

func (c *adminClient) UpdateMetafield(ctx context.Context, customerID uint64, metafield goshopify.Metafield) (*goshopify.Metafield, error) {
	updated, err := c.client.Customer.UpdateMetafield(ctx, customerID, metafield)
	if err != nil {
		return nil, fmt.Errorf("failed to update metafield: %w", err)
	}
	return updated, nil
}

// Admin GraphQL
//
// The go-shopify library exposes no Admin GraphQL surface, so customerUpdate
// goes over a direct HTTP call, same as the token-exchange fallback this
// adapter descends from.

const customerUpdateMutation = `
mutation customerUpdate($input: CustomerInput!) {
  customerUpdate(input: $input) {
    customer {
      id
      note
    }
    userErrors {
      field
      message
    }
  }
}`

func (c *adminClient) UpdateCustomerNote(ctx context.Context, customerGID string, note string) (*ports.NoteCustomer, error) {
	payload := map[string]any{
		"query": customerUpdateMutation,
		"variables": map[string]any{
			"input": map[string]any{
				"id":   customerGID,
				"note": note,
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode mutation: %w", err)
	}

	graphqlURL := fmt.Sprintf("https://%s/admin/api/%s/graphql.json", c.storeDomain, c.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, graphqlURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call admin graphql: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("admin graphql returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Data struct {
			CustomerUpdate struct {
				Customer   *ports.NoteCustomer `json:"customer"`
				UserErrors []ports.UserError   `json:"userErrors"`
			} `json:"customerUpdate"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode admin graphql response: %w", err)
	}

	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("admin graphql error: %s", result.Errors[0].Message)
	}
	if errs := result.Data.CustomerUpdate.UserErrors; len(errs) > 0 {
		c.logger.Warn().
			Str("customerId", customerGID).
			Str("message", errs[0].Message).
			Msg("customerUpdate returned user errors")
		return nil, &errs[0]
	}

	return result.Data.CustomerUpdate.Customer, nil
}
