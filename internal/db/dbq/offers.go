package dbq

import "context"

const offerColumns = `id, shop_id, title, description, discount_percent, starts_on, ends_on, created_at, updated_at`

func scanOffer(row rowScanner) (Offer, error) {
	var o Offer
	err := row.Scan(&o.ID, &o.ShopID, &o.Title, &o.Description, &o.DiscountPercent, &o.StartsOn, &o.EndsOn, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// ListOffers returns the shop's offers. When activeOn is non-empty only offers
// whose date range contains that YYYY-MM-DD day are returned.
func (q *Queries) ListOffers(ctx context.Context, shopID int64, activeOn string) ([]Offer, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+offerColumns+` FROM offers
		WHERE shop_id = ? AND (? = '' OR (starts_on <= ? AND ends_on >= ?))
		ORDER BY starts_on, id`,
		shopID, activeOn, activeOn, activeOn,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Offer
	for rows.Next() {
		o, err := scanOffer(rows)
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

func (q *Queries) GetOffer(ctx context.Context, shopID, id int64) (Offer, error) {
	return scanOffer(q.db.QueryRowContext(ctx,
		`SELECT `+offerColumns+` FROM offers WHERE id = ? AND shop_id = ?`, id, shopID))
}

type OfferParams struct {
	ID              int64
	ShopID          int64
	Title           string
	Description     string
	DiscountPercent int64
	StartsOn        string
	EndsOn          string
}

func (q *Queries) CreateOffer(ctx context.Context, arg OfferParams) (Offer, error) {
	var id int64
	err := q.db.QueryRowContext(ctx,
		`INSERT INTO offers (shop_id, title, description, discount_percent, starts_on, ends_on)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
		arg.ShopID, arg.Title, arg.Description, arg.DiscountPercent, arg.StartsOn, arg.EndsOn,
	).Scan(&id)
	if err != nil {
		return Offer{}, err
	}
	return q.GetOffer(ctx, arg.ShopID, id)
}

func (q *Queries) UpdateOffer(ctx context.Context, arg OfferParams) (Offer, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE offers SET title = ?, description = ?, discount_percent = ?, starts_on = ?, ends_on = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND shop_id = ?`,
		arg.Title, arg.Description, arg.DiscountPercent, arg.StartsOn, arg.EndsOn, arg.ID, arg.ShopID,
	)
	if err != nil {
		return Offer{}, err
	}
	if err := requireAffected(res); err != nil {
		return Offer{}, err
	}
	return q.GetOffer(ctx, arg.ShopID, arg.ID)
}

func (q *Queries) DeleteOffer(ctx context.Context, shopID, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM offers WHERE id = ? AND shop_id = ?`, id, shopID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
