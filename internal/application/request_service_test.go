package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"vendhub-portal-api/internal/domain"
	"vendhub-portal-api/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

// fakeAdmin is an in-memory stand-in for the Shopify Admin API.
type fakeAdmin struct {
	mu         sync.Mutex
	nextID     uint64
	customers  map[uint64]*goshopify.Customer
	metafields map[uint64][]goshopify.Metafield

	listErr       error
	metafieldErr  map[uint64]error
	getFailures   int // number of customer reads to fail before succeeding
	tagFailures   int // number of tag updates to fail before succeeding
	tagWrites     []string
	noteWritten   string
	metafieldGets int
}

func newFakeAdmin() *fakeAdmin {
	return &fakeAdmin{
		customers:    make(map[uint64]*goshopify.Customer),
		metafields:   make(map[uint64][]goshopify.Metafield),
		metafieldErr: make(map[uint64]error),
	}
}

func (f *fakeAdmin) ListCustomersByTag(ctx context.Context, tag string, limit int) ([]goshopify.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []goshopify.Customer
	for id := uint64(1); id <= f.nextID; id++ {
		c, ok := f.customers[id]
		if ok && domain.HasTag(c.Tags, tag) {
			out = append(out, *c)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeAdmin) GetCustomer(ctx context.Context, customerID uint64) (*goshopify.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getFailures > 0 {
		f.getFailures--
		return nil, errors.New("injected customer read failure")
	}
	c, ok := f.customers[customerID]
	if !ok {
		return nil, fmt.Errorf("customer %d not found", customerID)
	}
	copy := *c
	return &copy, nil
}

func (f *fakeAdmin) CreateCustomer(ctx context.Context, customer goshopify.Customer) (*goshopify.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.customers {
		if strings.EqualFold(existing.Email, customer.Email) {
			return nil, errors.New("email: has already been taken")
		}
	}
	f.nextID++
	customer.Id = f.nextID
	now := time.Now()
	customer.CreatedAt = &now
	stored := customer
	f.customers[customer.Id] = &stored
	for _, m := range customer.Metafields {
		m.Id = uint64(len(f.metafields[customer.Id]) + 1)
		f.metafields[customer.Id] = append(f.metafields[customer.Id], m)
	}
	return &stored, nil
}

func (f *fakeAdmin) UpdateCustomerTags(ctx context.Context, customerID uint64, tags string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tagFailures > 0 {
		f.tagFailures--
		return errors.New("injected tag failure")
	}
	c, ok := f.customers[customerID]
	if !ok {
		return fmt.Errorf("customer %d not found", customerID)
	}
	c.Tags = tags
	f.tagWrites = append(f.tagWrites, tags)
	return nil
}

func (f *fakeAdmin) ListMetafields(ctx context.Context, customerID uint64) ([]goshopify.Metafield, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metafieldGets++
	if err := f.metafieldErr[customerID]; err != nil {
		return nil, err
	}
	return append([]goshopify.Metafield(nil), f.metafields[customerID]...), nil
}

func (f *fakeAdmin) CreateMetafield(ctx context.Context, customerID uint64, metafield goshopify.Metafield) (*goshopify.Metafield, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	metafield.Id = uint64(len(f.metafields[customerID]) + 1)
	f.metafields[customerID] = append(f.metafields[customerID], metafield)
	return &metafield, nil
}

func (f *fakeAdmin) UpdateMetafield(ctx context.Context, customerID uint64, metafield goshopify.Metafield) (*goshopify.Metafield, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, m := range f.metafields[customerID] {
		if m.Id == metafield.Id {
			f.metafields[customerID][i] = metafield
			return &metafield, nil
		}
	}
	return nil, fmt.Errorf("metafield %d not found", metafield.Id)
}

func (f *fakeAdmin) UpdateCustomerNote(ctx context.Context, customerGID string, note string) (*ports.NoteCustomer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.noteWritten = note
	return &ports.NoteCustomer{ID: customerGID, Note: note}, nil
}

// statusOf reads the stored status metafield of a customer.
func (f *fakeAdmin) statusOf(customerID uint64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.metafields[customerID] {
		if m.Namespace == domain.MetafieldNamespace && m.Key == "status" {
			s, _ := m.Value.(string)
			return s
		}
	}
	return ""
}

func newTestService(fake *fakeAdmin) *RequestService {
	return NewRequestService(fake, zerolog.Nop())
}

func validSubmission() domain.Submission {
	return domain.Submission{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@x.com",
		Company:   "Acme",
	}
}

func TestSubmitCreatesPendingRequest(t *testing.T) {
	fake := newFakeAdmin()
	svc := newTestService(fake)

	id, err := svc.Submit(context.Background(), validSubmission())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	customer := fake.customers[id]
	if customer == nil {
		t.Fatal("no customer created")
	}
	if !domain.HasTag(customer.Tags, "access-request") || !domain.HasTag(customer.Tags, "pending-review") {
		t.Errorf("unexpected tags %q", customer.Tags)
	}
	if fake.statusOf(id) != "pending" {
		t.Errorf("expected status metafield pending, got %q", fake.statusOf(id))
	}
	if !strings.Contains(customer.Note, "Company: Acme") {
		t.Errorf("note missing company: %q", customer.Note)
	}

	// All seven access_request metafields must be present.
	keys := map[string]bool{}
	for _, m := range fake.metafields[id] {
		keys[m.Key] = true
	}
	for _, k := range []string{"company", "location", "machine_count", "role", "message", "submitted_at", "status"} {
		if !keys[k] {
			t.Errorf("missing metafield %q", k)
		}
	}
}

func TestSubmitMissingRequiredField(t *testing.T) {
	svc := newTestService(newFakeAdmin())

	for _, mutate := range []func(*domain.Submission){
		func(s *domain.Submission) { s.FirstName = "" },
		func(s *domain.Submission) { s.LastName = "" },
		func(s *domain.Submission) { s.Email = "" },
		func(s *domain.Submission) { s.Company = "  " },
	} {
		sub := validSubmission()
		mutate(&sub)
		if _, err := svc.Submit(context.Background(), sub); !errors.Is(err, ErrValidation) {
			t.Errorf("expected ErrValidation for %+v, got %v", sub, err)
		}
	}
}

func TestSubmitDuplicateEmail(t *testing.T) {
	fake := newFakeAdmin()
	svc := newTestService(fake)

	if _, err := svc.Submit(context.Background(), validSubmission()); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	if _, err := svc.Submit(context.Background(), validSubmission()); !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestListJoinsMetafields(t *testing.T) {
	fake := newFakeAdmin()
	svc := newTestService(fake)

	sub := validSubmission()
	sub.Location = "Madrid"
	sub.MachineCount = "12"
	id, err := svc.Submit(context.Background(), sub)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	result, err := svc.List(context.Background(), "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(result.Requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(result.Requests))
	}
	req := result.Requests[0]
	if req.ID != fmt.Sprint(id) || req.Company != "Acme" || req.Location != "Madrid" || req.MachineCount != "12" {
		t.Errorf("unexpected request row: %+v", req)
	}
	if req.Status != domain.StatusPending {
		t.Errorf("expected pending, got %q", req.Status)
	}
	if len(result.Degraded) != 0 {
		t.Errorf("unexpected degraded entries: %v", result.Degraded)
	}
}

func TestListDegradesFailedMetafieldFetch(t *testing.T) {
	fake := newFakeAdmin()
	svc := newTestService(fake)

	id1, _ := svc.Submit(context.Background(), validSubmission())
	sub2 := validSubmission()
	sub2.Email = "john@x.com"
	id2, _ := svc.Submit(context.Background(), sub2)

	fake.metafieldErr[id2] = errors.New("injected metafield failure")

	result, err := svc.List(context.Background(), "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(result.Requests) != 2 {
		t.Fatalf("expected both rows despite partial failure, got %d", len(result.Requests))
	}
	if len(result.Degraded) != 1 || result.Degraded[0] != fmt.Sprint(id2) {
		t.Errorf("expected degraded=[%d], got %v", id2, result.Degraded)
	}

	for _, req := range result.Requests {
		if req.ID == fmt.Sprint(id2) {
			if req.Company != "" || req.Status != domain.StatusPending {
				t.Errorf("degraded row should have empty fields and pending status: %+v", req)
			}
			// submittedAt falls back to the customer creation timestamp
			if req.SubmittedAt == "" {
				t.Error("degraded row should fall back to created_at")
			}
		}
		if req.ID == fmt.Sprint(id1) && req.Company != "Acme" {
			t.Errorf("healthy row degraded unexpectedly: %+v", req)
		}
	}
}

func TestListStatusFilter(t *testing.T) {
	fake := newFakeAdmin()
	svc := newTestService(fake)

	id1, _ := svc.Submit(context.Background(), validSubmission())
	sub2 := validSubmission()
	sub2.Email = "john@x.com"
	id2, _ := svc.Submit(context.Background(), sub2)

	if err := svc.SetStatus(context.Background(), id2, domain.StatusApproved); err != nil {
		t.Fatalf("set status failed: %v", err)
	}

	result, err := svc.List(context.Background(), domain.StatusPending)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(result.Requests) != 1 || result.Requests[0].ID != fmt.Sprint(id1) {
		t.Errorf("pending filter returned wrong rows: %+v", result.Requests)
	}

	result, err = svc.List(context.Background(), domain.StatusApproved)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(result.Requests) != 1 || result.Requests[0].ID != fmt.Sprint(id2) {
		t.Errorf("approved filter returned wrong rows: %+v", result.Requests)
	}
}

func TestListDegradedOnlyNamesReturnedRows(t *testing.T) {
	fake := newFakeAdmin()
	svc := newTestService(fake)

	id1, _ := svc.Submit(context.Background(), validSubmission())
	sub2 := validSubmission()
	sub2.Email = "john@x.com"
	id2, _ := svc.Submit(context.Background(), sub2)

	if err := svc.SetStatus(context.Background(), id1, domain.StatusApproved); err != nil {
		t.Fatalf("set status failed: %v", err)
	}
	// A failed metafield fetch degrades the row to pending.
	fake.metafieldErr[id2] = errors.New("injected metafield failure")

	result, err := svc.List(context.Background(), domain.StatusApproved)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(result.Requests) != 1 || result.Requests[0].ID != fmt.Sprint(id1) {
		t.Fatalf("approved filter returned wrong rows: %+v", result.Requests)
	}
	// The degraded row is pending and filtered out, so it must not be named.
	if len(result.Degraded) != 0 {
		t.Errorf("degraded names a row absent from the response: %v", result.Degraded)
	}

	result, err = svc.List(context.Background(), domain.StatusPending)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(result.Degraded) != 1 || result.Degraded[0] != fmt.Sprint(id2) {
		t.Errorf("expected degraded=[%d], got %v", id2, result.Degraded)
	}
}

func TestListSortsNewestFirst(t *testing.T) {
	fake := newFakeAdmin()
	svc := newTestService(fake)

	older := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	svc.now = func() time.Time { return older }
	id1, _ := svc.Submit(context.Background(), validSubmission())

	svc.now = func() time.Time { return newer }
	sub2 := validSubmission()
	sub2.Email = "john@x.com"
	id2, _ := svc.Submit(context.Background(), sub2)

	result, err := svc.List(context.Background(), "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if result.Requests[0].ID != fmt.Sprint(id2) || result.Requests[1].ID != fmt.Sprint(id1) {
		t.Errorf("expected newest first, got %v then %v", result.Requests[0].ID, result.Requests[1].ID)
	}
}

func TestSetStatusUpdatesMetafieldAndTags(t *testing.T) {
	fake := newFakeAdmin()
	svc := newTestService(fake)

	id, _ := svc.Submit(context.Background(), validSubmission())

	if err := svc.SetStatus(context.Background(), id, domain.StatusApproved); err != nil {
		t.Fatalf("set status failed: %v", err)
	}
	if fake.statusOf(id) != "approved" {
		t.Errorf("metafield status = %q, want approved", fake.statusOf(id))
	}
	if got := fake.customers[id].Tags; got != "access-request,approved" {
		t.Errorf("tags = %q, want access-request,approved", got)
	}
}

func TestSetStatusRoundTripConverges(t *testing.T) {
	fake := newFakeAdmin()
	svc := newTestService(fake)

	id, _ := svc.Submit(context.Background(), validSubmission())

	if err := svc.SetStatus(context.Background(), id, domain.StatusApproved); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if err := svc.SetStatus(context.Background(), id, domain.StatusPending); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	if fake.statusOf(id) != "pending" {
		t.Errorf("metafield status = %q, want pending", fake.statusOf(id))
	}
	if got := fake.customers[id].Tags; got != "access-request,pending-review" {
		t.Errorf("tags = %q, want access-request,pending-review", got)
	}
}

func TestSetStatusCreatesMetafieldWhenAbsent(t *testing.T) {
	fake := newFakeAdmin()
	svc := newTestService(fake)

	// Customer tagged as a request but with no metafields at all.
	fake.nextID++
	fake.customers[fake.nextID] = &goshopify.Customer{
		Id:    fake.nextID,
		Email: "bare@x.com",
		Tags:  "access-request",
	}

	if err := svc.SetStatus(context.Background(), fake.nextID, domain.StatusRejected); err != nil {
		t.Fatalf("set status failed: %v", err)
	}
	if fake.statusOf(fake.nextID) != "rejected" {
		t.Errorf("expected insert path to create status metafield, got %q", fake.statusOf(fake.nextID))
	}
	if got := fake.customers[fake.nextID].Tags; got != "access-request,rejected" {
		t.Errorf("tags = %q", got)
	}
}

func TestSetStatusPreservesForeignTags(t *testing.T) {
	fake := newFakeAdmin()
	svc := newTestService(fake)

	id, _ := svc.Submit(context.Background(), validSubmission())
	fake.customers[id].Tags = "access-request,pending-review,vip"

	if err := svc.SetStatus(context.Background(), id, domain.StatusApproved); err != nil {
		t.Fatalf("set status failed: %v", err)
	}
	if got := fake.customers[id].Tags; got != "access-request,approved,vip" {
		t.Errorf("tags = %q, want foreign tag preserved", got)
	}
}

func TestSetStatusRetriesTagReadOnce(t *testing.T) {
	fake := newFakeAdmin()
	svc := newTestService(fake)

	id, _ := svc.Submit(context.Background(), validSubmission())
	fake.customers[id].Tags = "access-request,pending-review,vip,wholesale"

	fake.getFailures = 1
	if err := svc.SetStatus(context.Background(), id, domain.StatusApproved); err != nil {
		t.Fatalf("expected read retry to succeed, got %v", err)
	}
	if got := fake.customers[id].Tags; got != "access-request,approved,vip,wholesale" {
		t.Errorf("tags = %q, want foreign tags preserved", got)
	}
}

func TestSetStatusPersistentTagReadFailureLeavesTagsUntouched(t *testing.T) {
	fake := newFakeAdmin()
	svc := newTestService(fake)

	id, _ := svc.Submit(context.Background(), validSubmission())
	fake.customers[id].Tags = "access-request,pending-review,vip,wholesale"

	fake.getFailures = 2
	err := svc.SetStatus(context.Background(), id, domain.StatusApproved)
	if err == nil {
		t.Fatal("expected error when tags cannot be read")
	}
	// Rewriting blind would drop vip/wholesale; the tags must stay as they were.
	if got := fake.customers[id].Tags; got != "access-request,pending-review,vip,wholesale" {
		t.Errorf("tags = %q, want untouched", got)
	}
	if len(fake.tagWrites) != 0 {
		t.Errorf("unexpected tag writes: %v", fake.tagWrites)
	}
	// The metafield write is not rolled back; re-issuing converges.
	if fake.statusOf(id) != "approved" {
		t.Errorf("metafield should keep the new status, got %q", fake.statusOf(id))
	}
}

func TestSetStatusRetriesTagWriteOnce(t *testing.T) {
	fake := newFakeAdmin()
	svc := newTestService(fake)

	id, _ := svc.Submit(context.Background(), validSubmission())

	fake.tagFailures = 1
	if err := svc.SetStatus(context.Background(), id, domain.StatusApproved); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if got := fake.customers[id].Tags; got != "access-request,approved" {
		t.Errorf("tags = %q after retry", got)
	}
}

func TestSetStatusReportsPersistentTagFailure(t *testing.T) {
	fake := newFakeAdmin()
	svc := newTestService(fake)

	id, _ := svc.Submit(context.Background(), validSubmission())

	fake.tagFailures = 2
	err := svc.SetStatus(context.Background(), id, domain.StatusApproved)
	if err == nil {
		t.Fatal("expected error after retry exhausted")
	}
	// The metafield write is not rolled back; re-issuing converges.
	if fake.statusOf(id) != "approved" {
		t.Errorf("metafield should keep the new status, got %q", fake.statusOf(id))
	}
}

func TestUpdateNotesFormatsForm(t *testing.T) {
	fake := newFakeAdmin()
	svc := newTestService(fake)

	note, customer, err := svc.UpdateNotes(context.Background(), "gid://shopify/Customer/42", domain.Submission{
		Company:      "Acme",
		MachineCount: "3",
	})
	if err != nil {
		t.Fatalf("update notes failed: %v", err)
	}
	if customer.ID != "gid://shopify/Customer/42" {
		t.Errorf("unexpected customer id %q", customer.ID)
	}
	if !strings.HasPrefix(note, "REQUEST ACCESS FORM") {
		t.Errorf("unexpected note format: %q", note)
	}
	if !strings.Contains(note, "Company: Acme") || !strings.Contains(note, "Machines: 3") {
		t.Errorf("note missing fields: %q", note)
	}
	if !strings.Contains(note, "Location: -") {
		t.Errorf("empty fields should render as dash: %q", note)
	}
	if fake.noteWritten != note {
		t.Error("note not written upstream")
	}
}

func TestUpdateNotesRequiresCustomerID(t *testing.T) {
	svc := newTestService(newFakeAdmin())
	if _, _, err := svc.UpdateNotes(context.Background(), " ", domain.Submission{}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}
