package dbq

import "context"

func (q *Queries) ListOpeningHours(ctx context.Context, shopID int64) ([]OpeningHour, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, shop_id, day_id, is_closed, start_time, end_time
		FROM opening_hours
		WHERE shop_id = ?
		ORDER BY day_id, start_time, id`,
		shopID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OpeningHour
	for rows.Next() {
		var h OpeningHour
		if err := rows.Scan(&h.ID, &h.ShopID, &h.DayID, &h.IsClosed, &h.StartTime, &h.EndTime); err != nil {
			return nil, err
		}
		items = append(items, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type InsertOpeningHourParams struct {
	ShopID    int64
	DayID     int64
	IsClosed  bool
	StartTime string
	EndTime   string
}

func (q *Queries) InsertOpeningHour(ctx context.Context, arg InsertOpeningHourParams) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO opening_hours (shop_id, day_id, is_closed, start_time, end_time) VALUES (?, ?, ?, ?, ?)`,
		arg.ShopID, arg.DayID, boolToInt(arg.IsClosed), arg.StartTime, arg.EndTime,
	)
	return err
}

func (q *Queries) DeleteOpeningHoursForDay(ctx context.Context, shopID, dayID int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM opening_hours WHERE shop_id = ? AND day_id = ?`, shopID, dayID)
	return err
}

func (q *Queries) DeleteOpeningHours(ctx context.Context, shopID int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM opening_hours WHERE shop_id = ?`, shopID)
	return err
}
