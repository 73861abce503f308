// Package storefront is a thin client for the Shopify Storefront
// customer-account API. The portal delegates identity entirely to Shopify;
// this client only moves typed GraphQL documents over HTTP.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"vendhub-portal-api/internal/domain"
	"vendhub-portal-api/internal/ports"

	"github.com/rs/zerolog"
)

type client struct {
	endpoint    string
	accessToken string
	httpClient  *http.Client
	logger      zerolog.Logger
}

// NewClient creates a Storefront API client for one shop.
func NewClient(storeDomain, storefrontAccessToken, apiVersion string, logger zerolog.Logger) ports.StorefrontClient {
	return &client{
		endpoint:    fmt.Sprintf("https://%s/api/%s/graphql.json", storeDomain, apiVersion),
		accessToken: storefrontAccessToken,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
	}
}

const customerCreateMutation = `
mutation customerCreate($input: CustomerCreateInput!) {
  customerCreate(input: $input) {
    customer {
      id
      email
    }
    customerUserErrors {
      code
      message
    }
  }
}`

const accessTokenCreateMutation = `
mutation customerAccessTokenCreate($input: CustomerAccessTokenCreateInput!) {
  customerAccessTokenCreate(input: $input) {
    customerAccessToken {
      accessToken
      expiresAt
    }
    customerUserErrors {
      code
      message
    }
  }
}`

const accessTokenDeleteMutation = `
mutation customerAccessTokenDelete($customerAccessToken: String!) {
  customerAccessTokenDelete(customerAccessToken: $customerAccessToken) {
    deletedAccessToken
  }
}`

const customerRecoverMutation = `
mutation customerRecover($email: String!) {
  customerRecover(email: $email) {
    customerUserErrors {
      code
      message
    }
  }
}`

const customerQuery = `
query customer($customerAccessToken: String!) {
  customer(customerAccessToken: $customerAccessToken) {
    id
    email
    firstName
    lastName
    phone
    acceptsMarketing
    createdAt
    tags
    orders(first: 10) {
      edges {
        node {
          id
          name
          processedAt
          totalPrice {
            amount
            currencyCode
          }
        }
      }
    }
  }
}`

type userErrors []ports.CustomerUserError

// first converts a non-empty userErrors list into an error the caller can
// surface, or nil.
func (u userErrors) first() error {
	if len(u) == 0 {
		return nil
	}
	e := u[0]
	return &e
}

func (c *client) CreateCustomer(ctx context.Context, input ports.SignUpInput) (*domain.CustomerAccount, error) {
	var result struct {
		CustomerCreate struct {
			Customer *struct {
				ID    string `json:"id"`
				Email string `json:"email"`
			} `json:"customer"`
			CustomerUserErrors userErrors `json:"customerUserErrors"`
		} `json:"customerCreate"`
	}
	if err := c.do(ctx, customerCreateMutation, map[string]any{"input": input}, &result); err != nil {
		return nil, err
	}
	if err := result.CustomerCreate.CustomerUserErrors.first(); err != nil {
		return nil, err
	}
	created := result.CustomerCreate.Customer
	if created == nil {
		return nil, fmt.Errorf("storefront returned no customer")
	}
	return &domain.CustomerAccount{ID: created.ID, Email: created.Email}, nil
}

func (c *client) CreateAccessToken(ctx context.Context, email, password string) (*domain.StorefrontToken, error) {
	var result struct {
		CustomerAccessTokenCreate struct {
			CustomerAccessToken *domain.StorefrontToken `json:"customerAccessToken"`
			CustomerUserErrors  userErrors              `json:"customerUserErrors"`
		} `json:"customerAccessTokenCreate"`
	}
	input := map[string]any{"email": email, "password": password}
	if err := c.do(ctx, accessTokenCreateMutation, map[string]any{"input": input}, &result); err != nil {
		return nil, err
	}
	if err := result.CustomerAccessTokenCreate.CustomerUserErrors.first(); err != nil {
		return nil, err
	}
	token := result.CustomerAccessTokenCreate.CustomerAccessToken
	if token == nil {
		return nil, fmt.Errorf("storefront returned no access token")
	}
	return token, nil
}

func (c *client) DeleteAccessToken(ctx context.Context, accessToken string) error {
	var result struct {
		CustomerAccessTokenDelete struct {
			DeletedAccessToken string `json:"deletedAccessToken"`
		} `json:"customerAccessTokenDelete"`
	}
	return c.do(ctx, accessTokenDeleteMutation, map[string]any{"customerAccessToken": accessToken}, &result)
}

func (c *client) RecoverCustomer(ctx context.Context, email string) error {
	var result struct {
		CustomerRecover struct {
			CustomerUserErrors userErrors `json:"customerUserErrors"`
		} `json:"customerRecover"`
	}
	if err := c.do(ctx, customerRecoverMutation, map[string]any{"email": email}, &result); err != nil {
		return err
	}
	return result.CustomerRecover.CustomerUserErrors.first()
}

func (c *client) GetCustomer(ctx context.Context, accessToken string) (*domain.CustomerAccount, error) {
	var result struct {
		Customer *struct {
			ID               string   `json:"id"`
			Email            string   `json:"email"`
			FirstName        string   `json:"firstName"`
			LastName         string   `json:"lastName"`
			Phone            string   `json:"phone"`
			AcceptsMarketing bool     `json:"acceptsMarketing"`
			CreatedAt        string   `json:"createdAt"`
			Tags             []string `json:"tags"`
			Orders           struct {
				Edges []struct {
					Node struct {
						ID          string `json:"id"`
						Name        string `json:"name"`
						ProcessedAt string `json:"processedAt"`
						TotalPrice  struct {
							Amount       string `json:"amount"`
							CurrencyCode string `json:"currencyCode"`
						} `json:"totalPrice"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"orders"`
		} `json:"customer"`
	}
	if err := c.do(ctx, customerQuery, map[string]any{"customerAccessToken": accessToken}, &result); err != nil {
		return nil, err
	}

	// A null customer means Shopify does not recognize the token.
	if result.Customer == nil {
		return nil, ports.ErrInvalidAccessToken
	}

	account := &domain.CustomerAccount{
		ID:               result.Customer.ID,
		Email:            result.Customer.Email,
		FirstName:        result.Customer.FirstName,
		LastName:         result.Customer.LastName,
		Phone:            result.Customer.Phone,
		AcceptsMarketing: result.Customer.AcceptsMarketing,
		CreatedAt:        result.Customer.CreatedAt,
		Tags:             result.Customer.Tags,
	}
	for _, edge := range result.Customer.Orders.Edges {
		account.Orders = append(account.Orders, domain.Order{
			ID:          edge.Node.ID,
			Name:        edge.Node.Name,
			ProcessedAt: edge.Node.ProcessedAt,
			TotalAmount: edge.Node.TotalPrice.Amount,
			Currency:    edge.Node.TotalPrice.CurrencyCode,
		})
	}
	return account, nil
}

// do posts one GraphQL document and decodes data into out.
func (c *client) do(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(map[string]any{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return fmt.Errorf("failed to encode storefront request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create storefront request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Storefront-Access-Token", c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call storefront api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("storefront api returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode storefront response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("storefront api error: %s", envelope.Errors[0].Message)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to decode storefront data: %w", err)
	}
	return nil
}
