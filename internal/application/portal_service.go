package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vendhub-portal-api/internal/domain"
	"vendhub-portal-api/internal/ports"

	"github.com/rs/zerolog"
)

// PortalService delegates customer identity to the Shopify Storefront API.
// It holds no session state: the storefront access token issued by Shopify is
// the only credential, and approval is re-derived from the customer's tags on
// every profile read.
type PortalService struct {
	storefront ports.StorefrontClient
	logger     zerolog.Logger
}

// NewPortalService creates the customer portal service.
func NewPortalService(storefront ports.StorefrontClient, logger zerolog.Logger) *PortalService {
	return &PortalService{storefront: storefront, logger: logger}
}

// Profile is the portal's view of the signed-in customer.
type Profile struct {
	Customer *domain.CustomerAccount `json:"customer"`
	Approved bool                    `json:"approved"`
}

// SignUp creates a customer and immediately exchanges the credentials for an
// access token. The created customer fragment is returned alongside the token.
func (s *PortalService) SignUp(ctx context.Context, input ports.SignUpInput) (*domain.StorefrontToken, *domain.CustomerAccount, error) {
	if strings.TrimSpace(input.Email) == "" || input.Password == "" {
		return nil, nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	customer, err := s.storefront.CreateCustomer(ctx, input)
	if err != nil {
		return nil, nil, classifyStorefrontErr(s.logger, "sign up", err)
	}
	token, err := s.storefront.CreateAccessToken(ctx, input.Email, input.Password)
	if err != nil {
		return nil, nil, classifyStorefrontErr(s.logger, "sign up token exchange", err)
	}

	s.logger.Info().Str("email", input.Email).Str("customerId", customer.ID).Msg("Portal customer signed up")
	return token, customer, nil
}

// SignIn exchanges credentials for an access token.
func (s *PortalService) SignIn(ctx context.Context, email, password string) (*domain.StorefrontToken, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}
	token, err := s.storefront.CreateAccessToken(ctx, email, password)
	if err != nil {
		return nil, classifyStorefrontErr(s.logger, "sign in", err)
	}
	return token, nil
}

// SignOut invalidates the access token upstream. Failures are logged but not
// surfaced: locally the token is gone either way.
func (s *PortalService) SignOut(ctx context.Context, accessToken string) {
	if accessToken == "" {
		return
	}
	if err := s.storefront.DeleteAccessToken(ctx, accessToken); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to invalidate storefront access token")
	}
}

// Recover triggers a password-recovery email. It always reports success so
// callers cannot probe which emails exist.
func (s *PortalService) Recover(ctx context.Context, email string) {
	if strings.TrimSpace(email) == "" {
		return
	}
	if err := s.storefront.RecoverCustomer(ctx, email); err != nil {
		s.logger.Warn().Err(err).Msg("Password recovery call failed")
	}
}

// GetProfile resolves the customer behind an access token along with the
// approval gate result.
func (s *PortalService) GetProfile(ctx context.Context, accessToken string) (*Profile, error) {
	customer, err := s.storefront.GetCustomer(ctx, accessToken)
	if err != nil {
		if errors.Is(err, ports.ErrInvalidAccessToken) {
			return nil, err
		}
		s.logger.Error().Err(err).Msg("Failed to fetch portal customer")
		return nil, fmt.Errorf("failed to fetch customer: %w", err)
	}
	return &Profile{Customer: customer, Approved: customer.Approved()}, nil
}

// classifyStorefrontErr keeps Shopify's customer-facing messages surfaceable
// and hides everything else behind a generic failure.
func classifyStorefrontErr(logger zerolog.Logger, op string, err error) error {
	var userErr *ports.CustomerUserError
	if errors.As(err, &userErr) {
		return fmt.Errorf("%w: %s", ErrValidation, userErr.Message)
	}
	logger.Error().Err(err).Str("op", op).Msg("Storefront call failed")
	return fmt.Errorf("%s failed: %w", op, err)
}
