package quotations

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

// WriteCSV serialises quotation summaries to CSV, one row per quotation.
func WriteCSV(w io.Writer, summaries []QuotationSummary) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{"Ref No", "Customer", "Quote For", "Status", "Items", "Subtotal", "Discount", "VAT", "Grand Total", "Created By", "Created At"}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, s := range summaries {
		record := []string{
			s.RefNo,
			s.CustomerName,
			s.QuoteFor,
			string(s.Status),
			strconv.Itoa(s.ItemCount),
			formatFloat(s.Subtotal),
			formatFloat(s.DiscountAmount),
			formatFloat(s.VATAmount),
			formatFloat(s.GrandTotal),
			s.CreatedByName,
			s.CreatedAt.Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
