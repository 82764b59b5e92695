package quotations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sfv-tech/sfv-ops/internal/platform/db"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrAlreadyApproved = errors.New("already approved")
)

// Repository is the persistence boundary for quotations. Operations that
// touch both the header and the items run inside WithTx; a partial write is
// a corruption condition the transaction prevents.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Quotation, error)
	GetItems(ctx context.Context, quotationID int64) ([]LineItem, error)
	List(ctx context.Context, req ListQuotationsRequest) ([]QuotationSummary, int, error)
	Create(ctx context.Context, q Quotation) (int64, error)
	InsertItem(ctx context.Context, item LineItem) (int64, error)
	ReplaceItems(ctx context.Context, quotationID int64, items []LineItem) error
	UpdateHeader(ctx context.Context, id int64, q Quotation) error
	LockHeader(ctx context.Context, id int64) (*Quotation, error)
	SetApproved(ctx context.Context, id int64, approvedBy int64, approvedAt time.Time) error
	Delete(ctx context.Context, id int64) error
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		repoTx := &repository{db: tx, pool: r.pool}
		return fn(ctx, repoTx)
	})
}

const headerColumns = `id, ref_no, customer_name, customer_phone, customer_address, quote_for,
	project_title, notes, subtotal, discount_percent, discount_amount, vat_percent, vat_amount,
	grand_total, status, created_by, approved_by, approved_at, created_at`

func (r *repository) Get(ctx context.Context, id int64) (*Quotation, error) {
	row := r.db.QueryRow(ctx, `SELECT `+headerColumns+` FROM quotations WHERE id = $1`, id)
	return scanQuotation(row)
}

// LockHeader reads the header with a row lock. Only meaningful inside WithTx;
// it serialises concurrent item-replacement on the same quotation.
func (r *repository) LockHeader(ctx context.Context, id int64) (*Quotation, error) {
	row := r.db.QueryRow(ctx, `SELECT `+headerColumns+` FROM quotations WHERE id = $1 FOR UPDATE`, id)
	return scanQuotation(row)
}

func (r *repository) GetItems(ctx context.Context, quotationID int64) ([]LineItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, quotation_id, material_id, name, category, unit, quantity, unit_price, total_price, created_at
		FROM quotation_items
		WHERE quotation_id = $1
		ORDER BY id ASC
	`, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []LineItem
	for rows.Next() {
		var item LineItem
		if err := rows.Scan(&item.ID, &item.QuotationID, &item.MaterialID, &item.Name, &item.Category,
			&item.Unit, &item.Quantity, &item.UnitPrice, &item.TotalPrice, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *repository) List(ctx context.Context, req ListQuotationsRequest) ([]QuotationSummary, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("q.status = $%d", argPos))
		args = append(args, string(*req.Status))
		argPos++
	}
	if req.CreatedBy != nil {
		conditions = append(conditions, fmt.Sprintf("q.created_by = $%d", argPos))
		args = append(args, *req.CreatedBy)
		argPos++
	}
	if req.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(q.customer_name ILIKE $%d OR q.ref_no ILIKE $%d)", argPos, argPos))
		args = append(args, "%"+req.Search+"%")
		argPos++
	}
	if req.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("q.created_at >= $%d", argPos))
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("q.created_at <= $%d", argPos))
		args = append(args, *req.DateTo)
		argPos++
	}

	whereClause := ""
	for i, cond := range conditions {
		if i == 0 {
			whereClause = "WHERE " + cond
		} else {
			whereClause += " AND " + cond
		}
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM quotations q %s", whereClause)
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT q.id, q.ref_no, q.customer_name, q.customer_phone, q.customer_address, q.quote_for,
		       q.project_title, q.notes, q.subtotal, q.discount_percent, q.discount_amount,
		       q.vat_percent, q.vat_amount, q.grand_total, q.status, q.created_by, q.approved_by,
		       q.approved_at, q.created_at,
		       u1.full_name AS created_by_name,
		       u2.full_name AS approved_by_name,
		       COALESCE(i.item_count, 0),
		       COALESCE(i.total_amount, 0)
		FROM quotations q
		JOIN users u1 ON q.created_by = u1.id
		LEFT JOIN users u2 ON q.approved_by = u2.id
		LEFT JOIN (
			SELECT quotation_id, COUNT(*) AS item_count, SUM(total_price) AS total_amount
			FROM quotation_items
			GROUP BY quotation_id
		) i ON i.quotation_id = q.id
		%s
		ORDER BY q.created_at DESC, q.id DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argPos, argPos+1)

	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var summaries []QuotationSummary
	for rows.Next() {
		var s QuotationSummary
		var status string
		var approvedByName *string
		err := rows.Scan(
			&s.ID, &s.RefNo, &s.CustomerName, &s.CustomerPhone, &s.CustomerAddress, &s.QuoteFor,
			&s.ProjectTitle, &s.Notes, &s.Subtotal, &s.DiscountPercent, &s.DiscountAmount,
			&s.VATPercent, &s.VATAmount, &s.GrandTotal, &status, &s.CreatedBy, &s.ApprovedBy,
			&s.ApprovedAt, &s.CreatedAt,
			&s.CreatedByName, &approvedByName,
			&s.ItemCount, &s.TotalAmount,
		)
		if err != nil {
			return nil, 0, err
		}
		s.Status = Status(status)
		s.ApprovedByName = approvedByName
		summaries = append(summaries, s)
	}
	return summaries, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, q Quotation) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO quotations (ref_no, customer_name, customer_phone, customer_address, quote_for,
			project_title, notes, subtotal, discount_percent, discount_amount, vat_percent,
			vat_amount, grand_total, status, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())
		RETURNING id
	`, q.RefNo, q.CustomerName, q.CustomerPhone, q.CustomerAddress, q.QuoteFor,
		q.ProjectTitle, q.Notes, q.Subtotal, q.DiscountPercent, q.DiscountAmount, q.VATPercent,
		q.VATAmount, q.GrandTotal, string(q.Status), q.CreatedBy).Scan(&id)
	return id, err
}

func (r *repository) InsertItem(ctx context.Context, item LineItem) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO quotation_items (quotation_id, material_id, name, category, unit, quantity,
			unit_price, total_price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING id
	`, item.QuotationID, item.MaterialID, item.Name, item.Category, item.Unit, item.Quantity,
		item.UnitPrice, item.TotalPrice).Scan(&id)
	return id, err
}

// ReplaceItems atomically swaps the full line-item set. Callers run it inside
// WithTx together with the header update.
func (r *repository) ReplaceItems(ctx context.Context, quotationID int64, items []LineItem) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM quotation_items WHERE quotation_id = $1`, quotationID); err != nil {
		return err
	}
	for _, item := range items {
		item.QuotationID = quotationID
		if _, err := r.InsertItem(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

// UpdateHeader rewrites every mutable header field. RefNo, status, created_by
// and created_at are never touched here.
func (r *repository) UpdateHeader(ctx context.Context, id int64, q Quotation) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE quotations
		SET customer_name = $1, customer_phone = $2, customer_address = $3, quote_for = $4,
		    project_title = $5, notes = $6, subtotal = $7, discount_percent = $8,
		    discount_amount = $9, vat_percent = $10, vat_amount = $11, grand_total = $12
		WHERE id = $13
	`, q.CustomerName, q.CustomerPhone, q.CustomerAddress, q.QuoteFor,
		q.ProjectTitle, q.Notes, q.Subtotal, q.DiscountPercent,
		q.DiscountAmount, q.VATPercent, q.VATAmount, q.GrandTotal, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetApproved transitions to Approved, conditioned on the row not already
// being approved so a second approval can never overwrite the first stamp.
func (r *repository) SetApproved(ctx context.Context, id int64, approvedBy int64, approvedAt time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE quotations
		SET status = $1, approved_by = $2, approved_at = $3
		WHERE id = $4 AND status <> $1
	`, string(StatusApproved), approvedBy, approvedAt, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM quotations WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrAlreadyApproved
	}
	return nil
}

// Delete removes the quotation and cascades to its items.
func (r *repository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM quotation_items WHERE quotation_id = $1`, id); err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM quotations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanQuotation(row pgx.Row) (*Quotation, error) {
	var q Quotation
	var status string
	err := row.Scan(
		&q.ID, &q.RefNo, &q.CustomerName, &q.CustomerPhone, &q.CustomerAddress, &q.QuoteFor,
		&q.ProjectTitle, &q.Notes, &q.Subtotal, &q.DiscountPercent, &q.DiscountAmount,
		&q.VATPercent, &q.VATAmount, &q.GrandTotal, &status, &q.CreatedBy, &q.ApprovedBy,
		&q.ApprovedAt, &q.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	q.Status = Status(status)
	return &q, nil
}
