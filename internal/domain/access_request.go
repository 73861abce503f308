package domain

import "time"

// MetafieldNamespace is the Shopify metafield namespace holding all
// access-request fields on a customer record.
const MetafieldNamespace = "access_request"

// RequestTag marks a customer record as an access request. It is present in
// the tag set for every lifecycle state.
const RequestTag = "access-request"

// ApprovedTag gates commerce access for portal customers.
const ApprovedTag = "approved"

// AccessRequest is the view this system derives from a Shopify customer
// tagged as an access request. It is never stored locally.
type AccessRequest struct {
	ID           string `json:"id"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	Company      string `json:"company"`
	Location     string `json:"location"`
	MachineCount string `json:"machineCount"`
	Role         string `json:"role"`
	Message      string `json:"message"`
	SubmittedAt  string `json:"submittedAt"`
	Status       Status `json:"status"`
	Tags         string `json:"tags"`
}

// Submission carries a new access-request form. The first four fields are
// required; the rest are free-form.
type Submission struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	Company      string `json:"company"`
	Location     string `json:"location"`
	MachineCount string `json:"machineCount"`
	Role         string `json:"role"`
	Message      string `json:"message"`
	SubmittedAt  time.Time
}
