package dbq

import (
	"context"
	"time"
)

// OrderDetail is an order joined with the names shown in listings and emails.
type OrderDetail struct {
	Order
	ShopName      string `json:"shop_name"`
	CatalogueName string `json:"catalogue_name"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
}

const orderDetailSelect = `SELECT o.id, o.reference, o.shop_id, o.catalogue_id, o.customer_id, o.quantity, o.notes,
	o.visit_at, o.timezone_offset, o.status, o.reminder_sent, o.created_at, o.updated_at,
	s.name, COALESCE(c.name, ''), u.full_name, u.email
FROM orders o
JOIN shops s ON s.id = o.shop_id
JOIN users u ON u.id = o.customer_id
LEFT JOIN catalogues c ON c.id = o.catalogue_id`

func scanOrderDetail(row rowScanner) (OrderDetail, error) {
	var o OrderDetail
	err := row.Scan(
		&o.ID, &o.Reference, &o.ShopID, &o.CatalogueID, &o.CustomerID, &o.Quantity, &o.Notes,
		&o.VisitAt, &o.TimezoneOffset, &o.Status, &o.ReminderSent, &o.CreatedAt, &o.UpdatedAt,
		&o.ShopName, &o.CatalogueName, &o.CustomerName, &o.CustomerEmail,
	)
	return o, err
}

func (q *Queries) listOrders(ctx context.Context, query string, args ...interface{}) ([]OrderDetail, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderDetail
	for rows.Next() {
		o, err := scanOrderDetail(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// dbTime normalises instants so that stored values compare as text.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

type CreateOrderParams struct {
	Reference      string
	ShopID         int64
	CatalogueID    int64
	CustomerID     int64
	Quantity       int64
	Notes          string
	VisitAt        time.Time
	TimezoneOffset int64
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (OrderDetail, error) {
	var id int64
	err := q.db.QueryRowContext(ctx,
		`INSERT INTO orders (reference, shop_id, catalogue_id, customer_id, quantity, notes, visit_at, timezone_offset)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		arg.Reference, arg.ShopID, arg.CatalogueID, arg.CustomerID, arg.Quantity, arg.Notes,
		dbTime(arg.VisitAt), arg.TimezoneOffset,
	).Scan(&id)
	if err != nil {
		return OrderDetail{}, err
	}
	return q.GetOrder(ctx, id)
}

func (q *Queries) GetOrder(ctx context.Context, id int64) (OrderDetail, error) {
	return scanOrderDetail(q.db.QueryRowContext(ctx, orderDetailSelect+` WHERE o.id = ?`, id))
}

func (q *Queries) ListOrdersByCustomer(ctx context.Context, customerID int64) ([]OrderDetail, error) {
	return q.listOrders(ctx, orderDetailSelect+` WHERE o.customer_id = ? ORDER BY o.visit_at DESC, o.id DESC`, customerID)
}

type ListShopOrdersParams struct {
	ShopID int64
	Status string
	From   *time.Time
	To     *time.Time
}

// ListOrdersByShop filters by status when set and by visit time within [From, To).
func (q *Queries) ListOrdersByShop(ctx context.Context, arg ListShopOrdersParams) ([]OrderDetail, error) {
	query := orderDetailSelect + ` WHERE o.shop_id = ?`
	args := []interface{}{arg.ShopID}
	if arg.Status != "" {
		query += ` AND o.status = ?`
		args = append(args, arg.Status)
	}
	if arg.From != nil {
		query += ` AND o.visit_at >= ?`
		args = append(args, dbTime(*arg.From))
	}
	if arg.To != nil {
		query += ` AND o.visit_at < ?`
		args = append(args, dbTime(*arg.To))
	}
	query += ` ORDER BY o.visit_at, o.id`
	return q.listOrders(ctx, query, args...)
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, id int64, status string) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE orders SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, id,
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// ListOrdersDueForReminder returns confirmed orders visiting within [from, until)
// that have not been reminded yet.
func (q *Queries) ListOrdersDueForReminder(ctx context.Context, from, until time.Time) ([]OrderDetail, error) {
	return q.listOrders(ctx,
		orderDetailSelect+` WHERE o.status = 'confirmed' AND o.reminder_sent = 0
		AND o.visit_at >= ? AND o.visit_at < ?
		ORDER BY o.visit_at, o.id`,
		dbTime(from), dbTime(until),
	)
}

func (q *Queries) MarkReminderSent(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE orders SET reminder_sent = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		id,
	)
	return err
}

// ExpirePendingOrders moves pending orders whose visit time is before cutoff to
// expired and returns their ids.
func (q *Queries) ExpirePendingOrders(ctx context.Context, cutoff time.Time) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx,
		`UPDATE orders SET status = 'expired', updated_at = CURRENT_TIMESTAMP
		WHERE status = 'pending' AND visit_at < ?
		RETURNING id`,
		dbTime(cutoff),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
