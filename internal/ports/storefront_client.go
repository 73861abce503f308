package ports

import (
	"context"
	"errors"

	"vendhub-portal-api/internal/domain"
)

// ErrInvalidAccessToken is returned when Shopify does not recognize a
// storefront access token (expired, revoked, or malformed).
var ErrInvalidAccessToken = errors.New("invalid or expired customer access token")

// CustomerUserError is a customer-facing validation error returned by the
// Storefront API (wrong password, email taken, weak password, ...). Its
// message is safe to surface to the caller.
type CustomerUserError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (e *CustomerUserError) Error() string { return e.Message }

// SignUpInput mirrors the Storefront CustomerCreateInput fields the portal
// collects.
type SignUpInput struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	FirstName        string `json:"firstName,omitempty"`
	LastName         string `json:"lastName,omitempty"`
	Phone            string `json:"phone,omitempty"`
	AcceptsMarketing bool   `json:"acceptsMarketing,omitempty"`
}

// StorefrontClient defines the Storefront customer-account operations the
// portal delegates to Shopify. CreateCustomer returns the created customer
// fragment (id and email) Shopify echoes back.
type StorefrontClient interface {
	CreateCustomer(ctx context.Context, input SignUpInput) (*domain.CustomerAccount, error)
	CreateAccessToken(ctx context.Context, email, password string) (*domain.StorefrontToken, error)
	DeleteAccessToken(ctx context.Context, accessToken string) error
	RecoverCustomer(ctx context.Context, email string) error
	GetCustomer(ctx context.Context, accessToken string) (*domain.CustomerAccount, error)
}
