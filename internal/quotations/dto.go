package quotations

import "time"

// CreateQuotationRequest carries the client payload for Create and Update.
// Discount and VAT percentages are deliberately not range-validated; the
// system accepts whatever the caller sends and passes it through.
type CreateQuotationRequest struct {
	CustomerName    string          `json:"customer_name" validate:"required"`
	CustomerPhone   *string         `json:"customer_phone,omitempty"`
	CustomerAddress *string         `json:"customer_address,omitempty"`
	QuoteFor        string          `json:"quote_for" validate:"required"`
	ProjectTitle    *string         `json:"project_title,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
	DiscountPercent *float64        `json:"discount_percent,omitempty"`
	VATPercent      *float64        `json:"vat_percent,omitempty"`
	Items           []LineItemInput `json:"items" validate:"dive"`
}

// LineItemInput is one incoming line. For material-backed lines the name,
// category, unit and unit price are resolved from the catalog server-side
// and any client-supplied values are ignored.
type LineItemInput struct {
	MaterialID *int64  `json:"material_id,omitempty"`
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	Unit       string  `json:"unit"`
	Quantity   float64 `json:"quantity" validate:"gte=0"`
	UnitPrice  float64 `json:"unit_price" validate:"gte=0"`
}

// CreateQuotationResult is the Create response payload.
type CreateQuotationResult struct {
	ID        int64     `json:"id"`
	RefNo     string    `json:"ref_no"`
	CreatedAt time.Time `json:"created_at"`
}

// ListQuotationsRequest carries listing filters.
type ListQuotationsRequest struct {
	Status    *Status    `json:"status,omitempty"`
	CreatedBy *int64     `json:"created_by,omitempty"`
	Search    string     `json:"search,omitempty"`
	DateFrom  *time.Time `json:"date_from,omitempty"`
	DateTo    *time.Time `json:"date_to,omitempty"`
	Limit     int        `json:"limit" validate:"gte=0,lte=1000"`
	Offset    int        `json:"offset" validate:"gte=0"`
}
