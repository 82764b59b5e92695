package quotations

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	created := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	summaries := []QuotationSummary{
		{
			Quotation: Quotation{
				RefNo:          "SFVQ-20260831-AB12CD34",
				CustomerName:   "Acme Ltd",
				QuoteFor:       "Warehouse fit-out",
				Status:         StatusDraft,
				Subtotal:       100000,
				DiscountAmount: 10000,
				VATAmount:      6750,
				GrandTotal:     96750,
				CreatedAt:      created,
			},
			CreatedByName: "Sam Staff",
			ItemCount:     2,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, summaries))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Ref No", records[0][0])
	assert.Equal(t, "SFVQ-20260831-AB12CD34", records[1][0])
	assert.Equal(t, "Acme Ltd", records[1][1])
	assert.Equal(t, "Draft", records[1][3])
	assert.Equal(t, "2", records[1][4])
	assert.Equal(t, "96750.00", records[1][8])
	assert.Equal(t, "2026-08-31T10:00:00Z", records[1][10])
}

func TestWriteCSVHeaderOnlyWhenEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
}
