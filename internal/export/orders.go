// Package export renders order listings as spreadsheets.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/codr1/marketplace/internal/db/dbq"
	"github.com/codr1/marketplace/internal/slots"
)

const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var orderColumns = []string{
	"Reference", "Status", "Visit date", "Visit time", "Item", "Quantity",
	"Customer", "Customer email", "Notes", "Created (UTC)",
}

// OrdersWriter builds one sheet of orders.
type OrdersWriter struct {
	file  *excelize.File
	sheet string
	row   int
}

func NewOrdersWriter(sheet string) (*OrdersWriter, error) {
	// Excel limits sheet names to 31 characters.
	if len(sheet) > 31 {
		sheet = sheet[:31]
	}
	if sheet == "" {
		sheet = "Orders"
	}

	file := excelize.NewFile()
	if err := file.SetSheetName("Sheet1", sheet); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	w := &OrdersWriter{file: file, sheet: sheet, row: 1}
	if err := w.writeHeader(); err != nil {
		_ = file.Close()
		return nil, err
	}
	return w, nil
}

func (w *OrdersWriter) writeHeader() error {
	if err := w.writeRow(toCells(orderColumns)); err != nil {
		return err
	}
	style, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		endCell, _ := excelize.CoordinatesToCellName(len(orderColumns), 1)
		_ = w.file.SetCellStyle(w.sheet, "A1", endCell, style)
	}
	return w.file.SetPanes(w.sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

// Add appends an order. Visit date and time are shown in the zone the
// customer booked from.
func (w *OrdersWriter) Add(o dbq.OrderDetail) error {
	visit := o.VisitAt
	if loc, err := slots.ZoneForOffset(int(o.TimezoneOffset)); err == nil {
		visit = visit.In(loc)
	}
	return w.writeRow([]interface{}{
		o.Reference,
		o.Status,
		visit.Format("2006-01-02"),
		visit.Format("15:04"),
		o.CatalogueName,
		o.Quantity,
		o.CustomerName,
		o.CustomerEmail,
		o.Notes,
		o.CreatedAt.UTC().Format(time.DateTime),
	})
}

func (w *OrdersWriter) writeRow(values []interface{}) error {
	for i, val := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, w.row)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.sheet, cell, val); err != nil {
			return err
		}
	}
	w.row++
	return nil
}

func (w *OrdersWriter) WriteTo(out io.Writer) (int64, error) {
	return w.file.WriteTo(out)
}

func (w *OrdersWriter) Close() error {
	return w.file.Close()
}

// WriteOrders writes a complete workbook for orders to out.
func WriteOrders(out io.Writer, sheet string, orders []dbq.OrderDetail) error {
	w, err := NewOrdersWriter(sheet)
	if err != nil {
		return err
	}
	defer w.Close()

	for _, o := range orders {
		if err := w.Add(o); err != nil {
			return fmt.Errorf("write order %d: %w", o.ID, err)
		}
	}
	if _, err := w.WriteTo(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
