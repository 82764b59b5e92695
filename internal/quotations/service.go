package quotations

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sfv-tech/sfv-ops/internal/materials"
	"github.com/sfv-tech/sfv-ops/internal/platform/httpx"
	"github.com/sfv-tech/sfv-ops/internal/shared"
)

// MaterialCatalog is the read-only view of the materials catalog the engine
// needs for snapshot resolution.
type MaterialCatalog interface {
	Get(ctx context.Context, id int64) (*materials.Material, error)
}

// Defaults are the company-level percentages applied when a request omits
// them. Injected from configuration rather than read from a global.
type Defaults struct {
	DiscountPercent float64
	VATPercent      float64
}

type Service struct {
	repo     Repository
	catalog  MaterialCatalog
	cache    *ListCache
	audit    *shared.AuditLogger
	defaults Defaults
}

func NewService(repo Repository, catalog MaterialCatalog, cache *ListCache, audit *shared.AuditLogger, defaults Defaults) *Service {
	return &Service{
		repo:     repo,
		catalog:  catalog,
		cache:    cache,
		audit:    audit,
		defaults: defaults,
	}
}

// Create validates, resolves catalog snapshots, computes totals and persists
// the quotation atomically. Status starts at Draft and the reference number
// is minted here, never again.
func (s *Service) Create(ctx context.Context, req CreateQuotationRequest, actor shared.Actor) (*CreateQuotationResult, error) {
	if strings.TrimSpace(req.CustomerName) == "" {
		return nil, fmt.Errorf("%w: customer_name is required", httpx.ErrValidation)
	}
	if strings.TrimSpace(req.QuoteFor) == "" {
		return nil, fmt.Errorf("%w: quote_for is required", httpx.ErrValidation)
	}

	items, err := s.resolveItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	discountPercent := s.defaults.DiscountPercent
	if req.DiscountPercent != nil {
		discountPercent = *req.DiscountPercent
	}
	vatPercent := s.defaults.VATPercent
	if req.VATPercent != nil {
		vatPercent = *req.VATPercent
	}
	totals := ComputeTotals(itemInputs(items), discountPercent, vatPercent)

	quotation := Quotation{
		RefNo:           NewReferenceNumber(time.Now()),
		CustomerName:    strings.TrimSpace(req.CustomerName),
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
		QuoteFor:        strings.TrimSpace(req.QuoteFor),
		ProjectTitle:    req.ProjectTitle,
		Notes:           req.Notes,
		Subtotal:        totals.Subtotal,
		DiscountPercent: discountPercent,
		DiscountAmount:  totals.DiscountAmount,
		VATPercent:      vatPercent,
		VATAmount:       totals.VATAmount,
		GrandTotal:      totals.GrandTotal,
		Status:          StatusDraft,
		CreatedBy:       actor.ID,
	}

	var quotationID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		id, err := repo.Create(ctx, quotation)
		if err != nil {
			return fmt.Errorf("create quotation: %w", err)
		}
		quotationID = id
		for _, item := range items {
			item.QuotationID = quotationID
			if _, err := repo.InsertItem(ctx, item); err != nil {
				return fmt.Errorf("insert line item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Get(ctx, quotationID)
	if err != nil {
		return nil, fmt.Errorf("read back quotation: %w", err)
	}

	s.recordAudit(ctx, actor, "quotation.created", quotationID, map[string]any{"ref_no": created.RefNo})
	s.cache.Bump(ctx)

	return &CreateQuotationResult{ID: created.ID, RefNo: created.RefNo, CreatedAt: created.CreatedAt}, nil
}

// Update replaces the full line-item set and rewrites the mutable header
// fields in one transaction. Authorization is checked twice: a fast pre-check
// for the common rejection, then again against the row-locked header inside
// the transaction, so a concurrent approval cannot slip an edit past the
// approved-quotation gate. Status and reference number are never changed
// here.
func (s *Service) Update(ctx context.Context, id int64, req CreateQuotationRequest, actor shared.Actor) error {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: quotation %d", httpx.ErrNotFound, id)
		}
		return fmt.Errorf("get quotation: %w", err)
	}
	if err := editGate(actor, existing); err != nil {
		return err
	}

	if strings.TrimSpace(req.CustomerName) == "" {
		return fmt.Errorf("%w: customer_name is required", httpx.ErrValidation)
	}
	if strings.TrimSpace(req.QuoteFor) == "" {
		return fmt.Errorf("%w: quote_for is required", httpx.ErrValidation)
	}

	items, err := s.resolveItems(ctx, req.Items)
	if err != nil {
		return err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		// Row lock serialises concurrent writes on the same quotation. The
		// locked row is authoritative for the gate and the percentage
		// fallbacks; the pre-transaction read may be stale by now.
		locked, err := repo.LockHeader(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("%w: quotation %d", httpx.ErrNotFound, id)
			}
			return fmt.Errorf("lock quotation: %w", err)
		}
		if err := editGate(actor, locked); err != nil {
			return err
		}

		discountPercent := locked.DiscountPercent
		if req.DiscountPercent != nil {
			discountPercent = *req.DiscountPercent
		}
		vatPercent := locked.VATPercent
		if req.VATPercent != nil {
			vatPercent = *req.VATPercent
		}
		totals := ComputeTotals(itemInputs(items), discountPercent, vatPercent)

		header := *locked
		header.CustomerName = strings.TrimSpace(req.CustomerName)
		header.CustomerPhone = req.CustomerPhone
		header.CustomerAddress = req.CustomerAddress
		header.QuoteFor = strings.TrimSpace(req.QuoteFor)
		header.ProjectTitle = req.ProjectTitle
		header.Notes = req.Notes
		header.Subtotal = totals.Subtotal
		header.DiscountPercent = discountPercent
		header.DiscountAmount = totals.DiscountAmount
		header.VATPercent = vatPercent
		header.VATAmount = totals.VATAmount
		header.GrandTotal = totals.GrandTotal

		if err := repo.UpdateHeader(ctx, id, header); err != nil {
			return fmt.Errorf("update header: %w", err)
		}
		if err := repo.ReplaceItems(ctx, id, items); err != nil {
			return fmt.Errorf("replace items: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.recordAudit(ctx, actor, "quotation.updated", id, map[string]any{"ref_no": existing.RefNo})
	s.cache.Bump(ctx)
	return nil
}

// editGate applies the edit authorization rules to the given header state.
func editGate(actor shared.Actor, q *Quotation) error {
	ref := shared.QuotationRef{CreatedBy: q.CreatedBy, Approved: q.Status == StatusApproved}
	if shared.CanEditQuotation(actor, ref) {
		return nil
	}
	if ref.Approved && !actor.IsAdmin() {
		return fmt.Errorf("%w: approved quotations can only be edited by an administrator", httpx.ErrForbidden)
	}
	return fmt.Errorf("%w: you can only edit your own quotations", httpx.ErrForbidden)
}

// Approve transitions Draft to Approved and stamps the approver. A second
// call fails with a conflict; the original stamp is never overwritten.
func (s *Service) Approve(ctx context.Context, id int64, actor shared.Actor) error {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: quotation %d", httpx.ErrNotFound, id)
		}
		return fmt.Errorf("get quotation: %w", err)
	}

	ref := shared.QuotationRef{CreatedBy: existing.CreatedBy, Approved: existing.Status == StatusApproved}
	if !shared.CanApproveQuotation(actor, ref) {
		return fmt.Errorf("%w: approval requires the author or an administrator", httpx.ErrForbidden)
	}
	if existing.Status == StatusApproved {
		return fmt.Errorf("%w: quotation already approved", httpx.ErrConflict)
	}

	if err := s.repo.SetApproved(ctx, id, actor.ID, time.Now()); err != nil {
		if errors.Is(err, ErrAlreadyApproved) {
			return fmt.Errorf("%w: quotation already approved", httpx.ErrConflict)
		}
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: quotation %d", httpx.ErrNotFound, id)
		}
		return fmt.Errorf("approve quotation: %w", err)
	}

	s.recordAudit(ctx, actor, "quotation.approved", id, map[string]any{"ref_no": existing.RefNo})
	s.cache.Bump(ctx)
	return nil
}

// Get returns the header with its resolved line items.
func (s *Service) Get(ctx context.Context, id int64) (*Quotation, error) {
	quotation, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: quotation %d", httpx.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get quotation: %w", err)
	}
	items, err := s.repo.GetItems(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get line items: %w", err)
	}
	quotation.Items = items
	return quotation, nil
}

// List returns summaries with per-quotation aggregates, served through the
// redis cache when available.
func (s *Service) List(ctx context.Context, req ListQuotationsRequest) ([]QuotationSummary, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}

	type listResult struct {
		Summaries []QuotationSummary `json:"summaries"`
		Total     int                `json:"total"`
	}

	var result listResult
	err := s.cache.FetchJSON(ctx, listKey(req), &result, func(ctx context.Context) (interface{}, error) {
		summaries, total, err := s.repo.List(ctx, req)
		if err != nil {
			return nil, err
		}
		return listResult{Summaries: summaries, Total: total}, nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list quotations: %w", err)
	}
	return result.Summaries, result.Total, nil
}

// Delete removes a quotation and its items. Admin only.
func (s *Service) Delete(ctx context.Context, id int64, actor shared.Actor) error {
	if !shared.CanDeleteQuotation(actor) {
		return fmt.Errorf("%w: deleting quotations requires admin", httpx.ErrForbidden)
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: quotation %d", httpx.ErrNotFound, id)
		}
		return fmt.Errorf("get quotation: %w", err)
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete quotation: %w", err)
	}

	s.recordAudit(ctx, actor, "quotation.deleted", id, map[string]any{"ref_no": existing.RefNo})
	s.cache.Bump(ctx)
	return nil
}

// resolveItems turns the incoming lines into persistable line items. Catalog
// lines re-fetch the material and snapshot its fields; the client-supplied
// price is ignored for those. Custom lines are taken as given. Lookups for
// independent lines fan out concurrently; output order matches input order.
func (s *Service) resolveItems(ctx context.Context, inputs []LineItemInput) ([]LineItem, error) {
	items := make([]LineItem, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	for i, input := range inputs {
		items[i] = LineItem{
			MaterialID: input.MaterialID,
			Name:       input.Name,
			Category:   input.Category,
			Unit:       input.Unit,
			Quantity:   input.Quantity,
			UnitPrice:  input.UnitPrice,
		}
		if input.MaterialID == nil {
			items[i].TotalPrice = LineTotal(input.Quantity, input.UnitPrice)
			continue
		}
		i, materialID := i, *input.MaterialID
		g.Go(func() error {
			material, err := s.catalog.Get(gctx, materialID)
			if err != nil {
				if errors.Is(err, httpx.ErrNotFound) || errors.Is(err, materials.ErrNotFound) {
					return fmt.Errorf("%w: material %d", httpx.ErrNotFound, materialID)
				}
				return fmt.Errorf("resolve material %d: %w", materialID, err)
			}
			items[i].Name = material.Name
			items[i].Category = material.Category
			items[i].Unit = material.Unit
			items[i].UnitPrice = material.UnitPrice
			items[i].TotalPrice = LineTotal(items[i].Quantity, material.UnitPrice)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Service) recordAudit(ctx context.Context, actor shared.Actor, action string, quotationID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   "quotation",
		EntityID: strconv.FormatInt(quotationID, 10),
		Meta:     meta,
	})
}

func itemInputs(items []LineItem) []ItemInput {
	inputs := make([]ItemInput, len(items))
	for i, item := range items {
		inputs[i] = ItemInput{Quantity: item.Quantity, UnitPrice: item.UnitPrice}
	}
	return inputs
}
