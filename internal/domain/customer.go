package domain

// CustomerAccount is the subset of a Shopify storefront customer the portal
// reads. Shopify owns the record; this is a per-request projection.
type CustomerAccount struct {
	ID               string   `json:"id"`
	Email            string   `json:"email"`
	FirstName        string   `json:"firstName,omitempty"`
	LastName         string   `json:"lastName,omitempty"`
	Phone            string   `json:"phone,omitempty"`
	AcceptsMarketing bool     `json:"acceptsMarketing"`
	CreatedAt        string   `json:"createdAt,omitempty"`
	Tags             []string `json:"tags"`
	Orders           []Order  `json:"orders"`
}

// Approved reports whether the account carries the approval tag. The check is
// re-derived from Shopify on every protected page load, so an admin approval
// takes effect on the customer's next navigation.
func (c *CustomerAccount) Approved() bool {
	for _, t := range c.Tags {
		if HasTag(t, ApprovedTag) {
			return true
		}
	}
	return false
}

// Order is the read-only order projection shown on the customer dashboard.
type Order struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ProcessedAt string `json:"processedAt"`
	TotalAmount string `json:"totalAmount"`
	Currency    string `json:"currency"`
}

// StorefrontToken is a customer access token issued by Shopify. Lifetime is
// dictated entirely by Shopify's response.
type StorefrontToken struct {
	AccessToken string `json:"accessToken"`
	ExpiresAt   string `json:"expiresAt"`
}
