package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/codr1/marketplace/internal/db/dbq"
)

func TestWriteOrders(t *testing.T) {
	orders := []dbq.OrderDetail{
		{
			Order: dbq.Order{
				ID:             1,
				Reference:      "ref-1",
				Status:         "confirmed",
				Quantity:       2,
				Notes:          "window seat",
				VisitAt:        time.Date(2026, 10, 16, 22, 30, 0, 0, time.UTC),
				TimezoneOffset: -120,
				CreatedAt:      time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC),
			},
			CatalogueName: "Haircut",
			CustomerName:  "Cara Customer",
			CustomerEmail: "customer@example.com",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteOrders(&buf, "Corner Barber", orders))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Corner Barber"}, f.GetSheetList())
	rows, err := f.GetRows("Corner Barber")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Reference", rows[0][0])
	assert.Equal(t, []string{
		"ref-1", "confirmed", "2026-10-17", "00:30", "Haircut", "2",
		"Cara Customer", "customer@example.com", "window seat", "2026-10-01 08:00:00",
	}, rows[1])
}

func TestNewOrdersWriter_SheetName(t *testing.T) {
	w, err := NewOrdersWriter(strings.Repeat("x", 40))
	require.NoError(t, err)
	defer w.Close()
	assert.Len(t, w.sheet, 31)

	w2, err := NewOrdersWriter("")
	require.NoError(t, err)
	defer w2.Close()
	assert.Equal(t, "Orders", w2.sheet)
}
