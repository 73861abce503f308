package ports

import (
	"context"

	shopify "github.com/bold-commerce/go-shopify/v4"
)

// NoteCustomer is the customer fragment returned by the Admin GraphQL
// customerUpdate mutation.
type NoteCustomer struct {
	ID   string `json:"id"`
	Note string `json:"note"`
}

// UserError is a userErrors entry from an Admin GraphQL mutation. Its message
// is safe to surface to the caller.
type UserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

func (e *UserError) Error() string { return e.Message }

// AdminClient defines the Shopify Admin API operations this system uses.
type AdminClient interface {
	// Customer API
	ListCustomersByTag(ctx context.Context, tag string, limit int) ([]shopify.Customer, error)
	GetCustomer(ctx context.Context, customerID uint64) (*shopify.Customer, error)
	CreateCustomer(ctx context.Context, customer shopify.Customer) (*shopify.Customer, error)
	UpdateCustomerTags(ctx context.Context, customerID uint64, tags string) error

	// Customer metafields
	ListMetafields(ctx context.Context, customerID uint64) ([]shopify.Metafield, error)
	CreateMetafield(ctx context.Context, customerID uint64, metafield shopify.Metafield) (*shopify.Metafield, error)
	UpdateMetafield(ctx context.Context, customerID uint64, metafield shopify.Metafield) (*shopify.Metafield, error)

	// Admin GraphQL (no REST equivalent for note-only updates)
	UpdateCustomerNote(ctx context.Context, customerGID string, note string) (*NoteCustomer, error)
}
