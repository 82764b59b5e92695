package materials

import "time"

// Material is a reusable, centrally priced catalog item. Quotation line items
// snapshot its fields at the time of use, so later price changes never alter
// historical quotations.
type Material struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Unit      string    `json:"unit"`
	UnitPrice float64   `json:"unit_price"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
