package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"vendhub-portal-api/internal/domain"
	"vendhub-portal-api/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

var (
	// ErrValidation wraps client input errors; the wrapped message is safe
	// to return to the caller.
	ErrValidation = errors.New("validation error")

	// ErrDuplicateEmail is returned when the customer store reports the
	// submission email already exists.
	ErrDuplicateEmail = errors.New("a request with this email already exists")
)

const listLimit = 250

// RequestService owns the access-request lifecycle: submission, listing for
// the admin console, and status transitions. All state lives in Shopify as
// customer tags and access_request metafields.
type RequestService struct {
	admin  ports.AdminClient
	now    func() time.Time
	logger zerolog.Logger
}

// NewRequestService creates the lifecycle service.
func NewRequestService(admin ports.AdminClient, logger zerolog.Logger) *RequestService {
	return &RequestService{
		admin:  admin,
		now:    time.Now,
		logger: logger,
	}
}

// Submit validates a submission and creates the backing customer record with
// pending-review tags, a summary note and the access_request metafields.
func (s *RequestService) Submit(ctx context.Context, sub domain.Submission) (uint64, error) {
	required := []struct {
		name  string
		value string
	}{
		{"firstName", sub.FirstName},
		{"lastName", sub.LastName},
		{"email", sub.Email},
		{"company", sub.Company},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return 0, fmt.Errorf("%w: missing required field: %s", ErrValidation, r.name)
		}
	}

	sub.SubmittedAt = s.now().UTC()
	submittedAt := sub.SubmittedAt.Format(time.RFC3339)

	customer := goshopify.Customer{
		FirstName: sub.FirstName,
		LastName:  sub.LastName,
		Email:     sub.Email,
		Tags:      domain.TagsForStatus("", domain.StatusPending),
		Note:      submissionNote(sub, submittedAt),
		Metafields: []goshopify.Metafield{
			textMetafield("company", sub.Company),
			textMetafield("location", sub.Location),
			textMetafield("machine_count", orDefault(sub.MachineCount, "0")),
			textMetafield("role", sub.Role),
			multilineMetafield("message", sub.Message),
			textMetafield("submitted_at", submittedAt),
			textMetafield("status", string(domain.StatusPending)),
		},
	}

	created, err := s.admin.CreateCustomer(ctx, customer)
	if err != nil {
		if isDuplicateEmail(err) {
			return 0, ErrDuplicateEmail
		}
		s.logger.Error().Err(err).Str("email", sub.Email).Msg("Failed to create access request")
		return 0, fmt.Errorf("failed to submit access request: %w", err)
	}

	s.logger.Info().
		Uint64("customerId", created.Id).
		Str("email", sub.Email).
		Str("company", sub.Company).
		Msg("Access request submitted")
	return created.Id, nil
}

// ListResult is the admin-console view: one row per tagged customer plus the
// IDs of returned rows whose metafield fetch failed and were degraded to an
// empty metafield set.
type ListResult struct {
	Requests []domain.AccessRequest `json:"requests"`
	Degraded []string               `json:"degraded"`
}

// List fetches up to 250 customers tagged access-request and joins each with
// its access_request metafields. The per-customer fetches run concurrently;
// a failing fetch degrades that row instead of failing the whole read.
// filter, when non-empty, keeps only rows with that status.
func (s *RequestService) List(ctx context.Context, filter domain.Status) (*ListResult, error) {
	customers, err := s.admin.ListCustomersByTag(ctx, domain.RequestTag, listLimit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list access-request customers")
		return nil, fmt.Errorf("failed to fetch access requests: %w", err)
	}

	type rowResult struct {
		fields map[string]string
		err    error
	}
	rows := make([]rowResult, len(customers))

	var wg sync.WaitGroup
	for i := range customers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fields, err := s.fetchRequestFields(ctx, customers[i].Id)
			rows[i] = rowResult{fields: fields, err: err}
		}(i)
	}
	wg.Wait()

	result := &ListResult{
		Requests: make([]domain.AccessRequest, 0, len(customers)),
		Degraded: []string{},
	}
	for i, customer := range customers {
		req := buildRequest(customer, rows[i].fields)
		if filter != "" && req.Status != filter {
			continue
		}
		if rows[i].err != nil {
			s.logger.Warn().
				Err(rows[i].err).
				Uint64("customerId", customer.Id).
				Msg("Metafield fetch failed, degrading to empty fields")
			result.Degraded = append(result.Degraded, strconv.FormatUint(customer.Id, 10))
		}
		result.Requests = append(result.Requests, req)
	}

	// Newest first; rows without a parseable timestamp sort last.
	sort.SliceStable(result.Requests, func(a, b int) bool {
		return submittedTime(result.Requests[a].SubmittedAt).After(submittedTime(result.Requests[b].SubmittedAt))
	})

	return result, nil
}

// SetStatus moves a request to a validated status. The status metafield is
// upserted first, then the customer's tag string is rewritten; there is no
// rollback across the two writes, but the tag read and the tag write are each
// retried once and a persistent failure is returned to the caller so the
// inconsistency is never silent. Re-issuing the call converges.
func (s *RequestService) SetStatus(ctx context.Context, customerID uint64, status domain.Status) error {
	metafields, err := s.admin.ListMetafields(ctx, customerID)
	if err != nil {
		s.logger.Error().Err(err).Uint64("customerId", customerID).Msg("Failed to fetch metafields for status update")
		return fmt.Errorf("failed to fetch metafields: %w", err)
	}

	statusField := textMetafield("status", string(status))
	var existing *goshopify.Metafield
	for i := range metafields {
		if metafields[i].Namespace == domain.MetafieldNamespace && metafields[i].Key == "status" {
			existing = &metafields[i]
			break
		}
	}

	if existing != nil {
		statusField.Id = existing.Id
		_, err = s.admin.UpdateMetafield(ctx, customerID, statusField)
	} else {
		_, err = s.admin.CreateMetafield(ctx, customerID, statusField)
	}
	if err != nil {
		s.logger.Error().Err(err).Uint64("customerId", customerID).Str("status", string(status)).Msg("Failed to write status metafield")
		return fmt.Errorf("failed to update status: %w", err)
	}

	// The tag rewrite preserves tags outside the access-request vocabulary,
	// so the current tags must be read first. Rewriting blind would drop
	// unrelated tags; the read is retried once and a persistent failure is
	// returned with the tags left untouched. Re-issuing the call converges.
	customer, err := s.admin.GetCustomer(ctx, customerID)
	if err != nil {
		s.logger.Warn().Err(err).Uint64("customerId", customerID).Msg("Tag read failed, retrying once")
		if customer, err = s.admin.GetCustomer(ctx, customerID); err != nil {
			s.logger.Error().
				Err(err).
				Uint64("customerId", customerID).
				Str("status", string(status)).
				Msg("Could not read existing tags; leaving tags untouched")
			return fmt.Errorf("status metafield updated but tag read failed: %w", err)
		}
	}
	newTags := domain.TagsForStatus(customer.Tags, status)

	if err := s.admin.UpdateCustomerTags(ctx, customerID, newTags); err != nil {
		s.logger.Warn().Err(err).Uint64("customerId", customerID).Msg("Tag update failed, retrying once")
		if err := s.admin.UpdateCustomerTags(ctx, customerID, newTags); err != nil {
			s.logger.Error().
				Err(err).
				Uint64("customerId", customerID).
				Str("status", string(status)).
				Msg("Tag update failed after retry; metafield and tags are now inconsistent")
			return fmt.Errorf("status metafield updated but tag update failed: %w", err)
		}
	}

	s.logger.Info().
		Uint64("customerId", customerID).
		Str("status", string(status)).
		Str("tags", newTags).
		Msg("Access request status updated")
	return nil
}

// UpdateNotes rewrites a customer's note from the request-access form fields
// via the Admin GraphQL customerUpdate mutation.
func (s *RequestService) UpdateNotes(ctx context.Context, customerGID string, sub domain.Submission) (string, *ports.NoteCustomer, error) {
	if strings.TrimSpace(customerGID) == "" {
		return "", nil, fmt.Errorf("%w: customer ID is required", ErrValidation)
	}

	note := strings.TrimSpace(fmt.Sprintf(`
REQUEST ACCESS FORM
-------------------
Company: %s
Location: %s
Machines: %s
Role: %s
Message:
%s
Submitted: %s
`,
		orDefault(sub.Company, "-"),
		orDefault(sub.Location, "-"),
		orDefault(sub.MachineCount, "-"),
		orDefault(sub.Role, "-"),
		orDefault(sub.Message, "-"),
		s.now().UTC().Format(time.RFC3339),
	))

	customer, err := s.admin.UpdateCustomerNote(ctx, customerGID, note)
	if err != nil {
		var userErr *ports.UserError
		if errors.As(err, &userErr) {
			return "", nil, fmt.Errorf("%w: %s", ErrValidation, userErr.Message)
		}
		s.logger.Error().Err(err).Str("customerId", customerGID).Msg("Failed to update customer notes")
		return "", nil, fmt.Errorf("failed to update notes: %w", err)
	}
	return note, customer, nil
}

// fetchRequestFields returns the access_request metafields of one customer
// as a key/value map.
func (s *RequestService) fetchRequestFields(ctx context.Context, customerID uint64) (map[string]string, error) {
	metafields, err := s.admin.ListMetafields(ctx, customerID)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]string)
	for _, m := range metafields {
		if m.Namespace != domain.MetafieldNamespace {
			continue
		}
		if v, ok := m.Value.(string); ok {
			fields[m.Key] = v
		}
	}
	return fields, nil
}

func buildRequest(customer goshopify.Customer, fields map[string]string) domain.AccessRequest {
	submittedAt := fields["submitted_at"]
	if submittedAt == "" && customer.CreatedAt != nil {
		submittedAt = customer.CreatedAt.Format(time.RFC3339)
	}
	return domain.AccessRequest{
		ID:           strconv.FormatUint(customer.Id, 10),
		FirstName:    customer.FirstName,
		LastName:     customer.LastName,
		Email:        customer.Email,
		Company:      fields["company"],
		Location:     fields["location"],
		MachineCount: fields["machine_count"],
		Role:         fields["role"],
		Message:      fields["message"],
		SubmittedAt:  submittedAt,
		Status:       domain.StatusFromMetafield(fields["status"]),
		Tags:         customer.Tags,
	}
}

func submissionNote(sub domain.Submission, submittedAt string) string {
	return fmt.Sprintf(
		"Company: %s\nLocation: %s\nMachine Count: %s\nRole: %s\nMessage: %s\nSubmitted: %s",
		sub.Company,
		orDefault(sub.Location, "N/A"),
		orDefault(sub.MachineCount, "N/A"),
		orDefault(sub.Role, "N/A"),
		orDefault(sub.Message, "N/A"),
		submittedAt,
	)
}

func textMetafield(key, value string) goshopify.Metafield {
	return goshopify.Metafield{
		Namespace: domain.MetafieldNamespace,
		Key:       key,
		Value:     value,
		Type:      goshopify.MetafieldTypeSingleLineTextField,
	}
}

func multilineMetafield(key, value string) goshopify.Metafield {
	return goshopify.Metafield{
		Namespace: domain.MetafieldNamespace,
		Key:       key,
		Value:     value,
		Type:      goshopify.MetafieldTypeMultiLineTextField,
	}
}

func submittedTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// isDuplicateEmail classifies the upstream create error by message; the
// Admin API reports duplicates as an email validation error.
func isDuplicateEmail(err error) bool {
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "email") {
		return false
	}
	return strings.Contains(msg, "taken") || strings.Contains(msg, "already")
}
