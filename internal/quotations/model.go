package quotations

import "time"

// Status is the quotation lifecycle status. Draft is the initial state;
// Approved is terminal. There is no reversal transition.
type Status string

const (
	StatusDraft    Status = "Draft"
	StatusApproved Status = "Approved"
)

// Quotation is a priced proposal issued to a customer. The financial fields
// are stored, not derived on read; every write recomputes them from the line
// items so the two can never diverge.
type Quotation struct {
	ID              int64      `json:"id"`
	RefNo           string     `json:"ref_no"`
	CustomerName    string     `json:"customer_name"`
	CustomerPhone   *string    `json:"customer_phone,omitempty"`
	CustomerAddress *string    `json:"customer_address,omitempty"`
	QuoteFor        string     `json:"quote_for"`
	ProjectTitle    *string    `json:"project_title,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
	Subtotal        float64    `json:"subtotal"`
	DiscountPercent float64    `json:"discount_percent"`
	DiscountAmount  float64    `json:"discount_amount"`
	VATPercent      float64    `json:"vat_percent"`
	VATAmount       float64    `json:"vat_amount"`
	GrandTotal      float64    `json:"grand_total"`
	Status          Status     `json:"status"`
	CreatedBy       int64      `json:"created_by"`
	ApprovedBy      *int64     `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	Items           []LineItem `json:"items,omitempty"`
}

// LineItem is one priced row within a quotation. Material-backed items carry
// a snapshot of the catalog fields taken when the item was added; custom
// items (nil MaterialID) carry client-supplied values.
type LineItem struct {
	ID          int64     `json:"id"`
	QuotationID int64     `json:"quotation_id"`
	MaterialID  *int64    `json:"material_id,omitempty"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Unit        string    `json:"unit"`
	Quantity    float64   `json:"quantity"`
	UnitPrice   float64   `json:"unit_price"`
	TotalPrice  float64   `json:"total_price"`
	CreatedAt   time.Time `json:"created_at"`
}

// QuotationSummary is the listing row: the header plus per-quotation
// aggregates derived at read time.
type QuotationSummary struct {
	Quotation
	CreatedByName  string  `json:"created_by_name"`
	ApprovedByName *string `json:"approved_by_name,omitempty"`
	ItemCount      int     `json:"item_count"`
	TotalAmount    float64 `json:"total_amount"`
}
