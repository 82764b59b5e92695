package quotations

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfv-tech/sfv-ops/internal/materials"
	"github.com/sfv-tech/sfv-ops/internal/platform/httpx"
	"github.com/sfv-tech/sfv-ops/internal/shared"
)

type memoryRepo struct {
	nextQuotationID int64
	nextItemID      int64
	quotations      map[int64]*Quotation
	items           map[int64][]LineItem
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		nextQuotationID: 1,
		nextItemID:      1,
		quotations:      make(map[int64]*Quotation),
		items:           make(map[int64][]LineItem),
	}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) Get(_ context.Context, id int64) (*Quotation, error) {
	q, ok := m.quotations[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *q
	return &clone, nil
}

func (m *memoryRepo) LockHeader(ctx context.Context, id int64) (*Quotation, error) {
	return m.Get(ctx, id)
}

func (m *memoryRepo) GetItems(_ context.Context, quotationID int64) ([]LineItem, error) {
	items := append([]LineItem(nil), m.items[quotationID]...)
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (m *memoryRepo) List(_ context.Context, req ListQuotationsRequest) ([]QuotationSummary, int, error) {
	var summaries []QuotationSummary
	for _, q := range m.quotations {
		if req.Status != nil && q.Status != *req.Status {
			continue
		}
		if req.CreatedBy != nil && q.CreatedBy != *req.CreatedBy {
			continue
		}
		s := QuotationSummary{Quotation: *q}
		for _, item := range m.items[q.ID] {
			s.ItemCount++
			s.TotalAmount += item.TotalPrice
		}
		summaries = append(summaries, s)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID > summaries[j].ID })
	return summaries, len(summaries), nil
}

func (m *memoryRepo) Create(_ context.Context, q Quotation) (int64, error) {
	q.ID = m.nextQuotationID
	m.nextQuotationID++
	q.CreatedAt = time.Now()
	m.quotations[q.ID] = &q
	return q.ID, nil
}

func (m *memoryRepo) InsertItem(_ context.Context, item LineItem) (int64, error) {
	item.ID = m.nextItemID
	m.nextItemID++
	item.CreatedAt = time.Now()
	m.items[item.QuotationID] = append(m.items[item.QuotationID], item)
	return item.ID, nil
}

func (m *memoryRepo) ReplaceItems(ctx context.Context, quotationID int64, items []LineItem) error {
	m.items[quotationID] = nil
	for _, item := range items {
		item.QuotationID = quotationID
		if _, err := m.InsertItem(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (m *memoryRepo) UpdateHeader(_ context.Context, id int64, q Quotation) error {
	existing, ok := m.quotations[id]
	if !ok {
		return ErrNotFound
	}
	updated := q
	updated.ID = existing.ID
	updated.RefNo = existing.RefNo
	updated.Status = existing.Status
	updated.CreatedBy = existing.CreatedBy
	updated.CreatedAt = existing.CreatedAt
	updated.ApprovedBy = existing.ApprovedBy
	updated.ApprovedAt = existing.ApprovedAt
	m.quotations[id] = &updated
	return nil
}

func (m *memoryRepo) SetApproved(_ context.Context, id int64, approvedBy int64, approvedAt time.Time) error {
	q, ok := m.quotations[id]
	if !ok {
		return ErrNotFound
	}
	if q.Status == StatusApproved {
		return ErrAlreadyApproved
	}
	q.Status = StatusApproved
	q.ApprovedBy = &approvedBy
	q.ApprovedAt = &approvedAt
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.quotations[id]; !ok {
		return ErrNotFound
	}
	delete(m.quotations, id)
	delete(m.items, id)
	return nil
}

type memoryCatalog struct {
	materials map[int64]*materials.Material
}

func (c *memoryCatalog) Get(_ context.Context, id int64) (*materials.Material, error) {
	material, ok := c.materials[id]
	if !ok {
		return nil, fmt.Errorf("%w: material %d", httpx.ErrNotFound, id)
	}
	return material, nil
}

var (
	adminActor  = shared.Actor{ID: 1, Name: "Ada Admin", Role: shared.RoleAdmin}
	staffActor  = shared.Actor{ID: 2, Name: "Sam Staff", Role: shared.RoleStaff}
	otherActor  = shared.Actor{ID: 3, Name: "Olu Other", Role: shared.RoleEngineer}
	cementPrice = 5500.0
)

func newTestService(repo Repository) *Service {
	catalog := &memoryCatalog{materials: map[int64]*materials.Material{
		10: {ID: 10, Name: "Cement 50kg", Category: "Building", Unit: "bag", UnitPrice: cementPrice, IsActive: true},
	}}
	return NewService(repo, catalog, nil, nil, Defaults{DiscountPercent: 0, VATPercent: 7.5})
}

func float64Ptr(v float64) *float64 { return &v }
func int64Ptr(v int64) *int64       { return &v }

func TestCreateComputesAndStoresTotals(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	result, err := svc.Create(context.Background(), CreateQuotationRequest{
		CustomerName:    "Acme Ltd",
		QuoteFor:        "Warehouse fit-out",
		DiscountPercent: float64Ptr(10),
		VATPercent:      float64Ptr(7.5),
		Items: []LineItemInput{
			{Name: "Custom beam", Category: "Steel", Unit: "pc", Quantity: 2, UnitPrice: 50000},
		},
	}, staffActor)
	require.NoError(t, err)
	require.NotNil(t, result)

	stored, err := svc.Get(context.Background(), result.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, stored.Status)
	assert.Equal(t, staffActor.ID, stored.CreatedBy)
	assert.InDelta(t, 100000, stored.Subtotal, 1e-9)
	assert.InDelta(t, 10000, stored.DiscountAmount, 1e-9)
	assert.InDelta(t, 6750, stored.VATAmount, 1e-9)
	assert.InDelta(t, 96750, stored.GrandTotal, 1e-9)
	require.Len(t, stored.Items, 1)
	assert.InDelta(t, 100000, stored.Items[0].TotalPrice, 1e-9)
}

func TestCreateRequiresCustomerNameAndQuoteFor(t *testing.T) {
	svc := newTestService(newMemoryRepo())

	_, err := svc.Create(context.Background(), CreateQuotationRequest{QuoteFor: "x"}, staffActor)
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.Create(context.Background(), CreateQuotationRequest{CustomerName: "  ", QuoteFor: "x"}, staffActor)
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.Create(context.Background(), CreateQuotationRequest{CustomerName: "Acme"}, staffActor)
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCreateUsesConfiguredDefaults(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	result, err := svc.Create(context.Background(), CreateQuotationRequest{
		CustomerName: "Acme Ltd",
		QuoteFor:     "Fence",
		Items:        []LineItemInput{{Name: "Wire", Unit: "roll", Quantity: 1, UnitPrice: 1000}},
	}, staffActor)
	require.NoError(t, err)

	stored, err := svc.Get(context.Background(), result.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0, stored.DiscountPercent, 1e-9)
	assert.InDelta(t, 7.5, stored.VATPercent, 1e-9)
	assert.InDelta(t, 75, stored.VATAmount, 1e-9)
}

func TestCreateSnapshotsCatalogMaterialAndIgnoresClientPrice(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	result, err := svc.Create(context.Background(), CreateQuotationRequest{
		CustomerName: "Acme Ltd",
		QuoteFor:     "Foundation",
		VATPercent:   float64Ptr(0),
		Items: []LineItemInput{
			{MaterialID: int64Ptr(10), Name: "bogus", Unit: "bogus", Quantity: 4, UnitPrice: 1},
		},
	}, staffActor)
	require.NoError(t, err)

	stored, err := svc.Get(context.Background(), result.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	item := stored.Items[0]
	assert.Equal(t, "Cement 50kg", item.Name)
	assert.Equal(t, "bag", item.Unit)
	assert.InDelta(t, cementPrice, item.UnitPrice, 1e-9)
	assert.InDelta(t, 4*cementPrice, item.TotalPrice, 1e-9)
	assert.InDelta(t, 4*cementPrice, stored.GrandTotal, 1e-9)
}

func TestCreateUnknownMaterialFails(t *testing.T) {
	svc := newTestService(newMemoryRepo())

	_, err := svc.Create(context.Background(), CreateQuotationRequest{
		CustomerName: "Acme Ltd",
		QuoteFor:     "Roof",
		Items:        []LineItemInput{{MaterialID: int64Ptr(999), Quantity: 1}},
	}, staffActor)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestCreateWithNoItemsYieldsZeroTotals(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	result, err := svc.Create(context.Background(), CreateQuotationRequest{
		CustomerName: "Acme Ltd",
		QuoteFor:     "Placeholder",
	}, staffActor)
	require.NoError(t, err)

	stored, err := svc.Get(context.Background(), result.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.Subtotal)
	assert.Zero(t, stored.GrandTotal)
	assert.Empty(t, stored.Items)
}

func TestUpdatePreservesRefNoAndRecomputesTotals(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	result, err := svc.Create(context.Background(), CreateQuotationRequest{
		CustomerName: "Acme Ltd",
		QuoteFor:     "Fence",
		VATPercent:   float64Ptr(0),
		Items:        []LineItemInput{{Name: "Wire", Unit: "roll", Quantity: 1, UnitPrice: 1000}},
	}, staffActor)
	require.NoError(t, err)

	err = svc.Update(context.Background(), result.ID, CreateQuotationRequest{
		CustomerName: "Acme Limited",
		QuoteFor:     "Fence phase 2",
		VATPercent:   float64Ptr(0),
		Items:        []LineItemInput{{Name: "Wire", Unit: "roll", Quantity: 3, UnitPrice: 1000}},
	}, staffActor)
	require.NoError(t, err)

	stored, err := svc.Get(context.Background(), result.ID)
	require.NoError(t, err)
	assert.Equal(t, result.RefNo, stored.RefNo)
	assert.Equal(t, "Acme Limited", stored.CustomerName)
	assert.InDelta(t, 3000, stored.GrandTotal, 1e-9)
	require.Len(t, stored.Items, 1)
	assert.InDelta(t, 3, stored.Items[0].Quantity, 1e-9)
}

func TestUpdateForbiddenForNonAuthor(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	result, err := svc.Create(context.Background(), CreateQuotationRequest{
		CustomerName: "Acme Ltd",
		QuoteFor:     "Fence",
	}, staffActor)
	require.NoError(t, err)

	err = svc.Update(context.Background(), result.ID, CreateQuotationRequest{
		CustomerName: "Hijack",
		QuoteFor:     "Fence",
	}, otherActor)
	assert.ErrorIs(t, err, httpx.ErrForbidden)
}

func TestUpdateApprovedQuotationAdminOnly(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	result, err := svc.Create(context.Background(), CreateQuotationRequest{
		CustomerName: "Acme Ltd",
		QuoteFor:     "Fence",
	}, staffActor)
	require.NoError(t, err)
	require.NoError(t, svc.Approve(context.Background(), result.ID, staffActor))

	// The author loses edit rights once approved.
	err = svc.Update(context.Background(), result.ID, CreateQuotationRequest{
		CustomerName: "Acme Ltd",
		QuoteFor:     "Fence",
	}, staffActor)
	assert.ErrorIs(t, err, httpx.ErrForbidden)

	err = svc.Update(context.Background(), result.ID, CreateQuotationRequest{
		CustomerName: "Acme Ltd (rev)",
		QuoteFor:     "Fence",
	}, adminActor)
	require.NoError(t, err)
}

// approveBeforeTxRepo approves the target quotation right before the update
// transaction begins, simulating an approval that commits between the
// service's pre-check read and its row lock.
type approveBeforeTxRepo struct {
	*memoryRepo
	targetID   int64
	approverID int64
	fired      bool
}

func (r *approveBeforeTxRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	if !r.fired {
		r.fired = true
		if err := r.memoryRepo.SetApproved(ctx, r.targetID, r.approverID, time.Now()); err != nil {
			return err
		}
	}
	return r.memoryRepo.WithTx(ctx, fn)
}

func TestUpdateRejectsEditWhenApprovalLandsConcurrently(t *testing.T) {
	base := newMemoryRepo()
	created, err := newTestService(base).Create(context.Background(), CreateQuotationRequest{
		CustomerName: "Acme Ltd",
		QuoteFor:     "Fence",
	}, staffActor)
	require.NoError(t, err)

	racing := &approveBeforeTxRepo{memoryRepo: base, targetID: created.ID, approverID: adminActor.ID}
	svc := newTestService(racing)

	err = svc.Update(context.Background(), created.ID, CreateQuotationRequest{
		CustomerName: "Mutated After Approval",
		QuoteFor:     "Fence",
	}, staffActor)
	assert.ErrorIs(t, err, httpx.ErrForbidden)

	stored, err := newTestService(base).Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, stored.Status)
	assert.Equal(t, "Acme Ltd", stored.CustomerName)
}

func TestApproveStampsApprover(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	result, err := svc.Create(context.Background(), CreateQuotationRequest{
		CustomerName: "Acme Ltd",
		QuoteFor:     "Fence",
	}, staffActor)
	require.NoError(t, err)

	require.NoError(t, svc.Approve(context.Background(), result.ID, staffActor))

	stored, err := svc.Get(context.Background(), result.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, stored.Status)
	require.NotNil(t, stored.ApprovedBy)
	assert.Equal(t, staffActor.ID, *stored.ApprovedBy)
	require.NotNil(t, stored.ApprovedAt)
}

func TestApproveTwiceConflictsAndKeepsOriginalStamp(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	result, err := svc.Create(context.Background(), CreateQuotationRequest{
		CustomerName: "Acme Ltd",
		QuoteFor:     "Fence",
	}, staffActor)
	require.NoError(t, err)
	require.NoError(t, svc.Approve(context.Background(), result.ID, staffActor))

	first, err := svc.Get(context.Background(), result.ID)
	require.NoError(t, err)

	err = svc.Approve(context.Background(), result.ID, adminActor)
	assert.ErrorIs(t, err, httpx.ErrConflict)

	second, err := svc.Get(context.Background(), result.ID)
	require.NoError(t, err)
	assert.Equal(t, *first.ApprovedBy, *second.ApprovedBy)
	assert.True(t, first.ApprovedAt.Equal(*second.ApprovedAt))
}

func TestApproveForbiddenForNonAuthor(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	result, err := svc.Create(context.Background(), CreateQuotationRequest{
		CustomerName: "Acme Ltd",
		QuoteFor:     "Fence",
	}, staffActor)
	require.NoError(t, err)

	err = svc.Approve(context.Background(), result.ID, otherActor)
	assert.ErrorIs(t, err, httpx.ErrForbidden)
}

func TestApproveMissingQuotation(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	err := svc.Approve(context.Background(), 404, adminActor)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestDeleteAdminOnly(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	result, err := svc.Create(context.Background(), CreateQuotationRequest{
		CustomerName: "Acme Ltd",
		QuoteFor:     "Fence",
	}, staffActor)
	require.NoError(t, err)

	err = svc.Delete(context.Background(), result.ID, staffActor)
	assert.ErrorIs(t, err, httpx.ErrForbidden)

	require.NoError(t, svc.Delete(context.Background(), result.ID, adminActor))

	_, err = svc.Get(context.Background(), result.ID)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestListAggregates(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	result, err := svc.Create(context.Background(), CreateQuotationRequest{
		CustomerName: "Acme Ltd",
		QuoteFor:     "Fence",
		VATPercent:   float64Ptr(0),
		Items: []LineItemInput{
			{Name: "Wire", Unit: "roll", Quantity: 2, UnitPrice: 100},
			{Name: "Posts", Unit: "pc", Quantity: 10, UnitPrice: 50},
		},
	}, staffActor)
	require.NoError(t, err)

	summaries, total, err := svc.List(context.Background(), ListQuotationsRequest{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, summaries, 1)
	assert.Equal(t, result.ID, summaries[0].ID)
	assert.Equal(t, 2, summaries[0].ItemCount)
	assert.InDelta(t, 700, summaries[0].TotalAmount, 1e-9)
}
