package dbq

import "context"

const catalogueColumns = `id, shop_id, name, description, price_cents, duration_minutes, is_bookable, status, created_at, updated_at`

func scanCatalogue(row rowScanner) (Catalogue, error) {
	var c Catalogue
	err := row.Scan(&c.ID, &c.ShopID, &c.Name, &c.Description, &c.PriceCents, &c.DurationMinutes,
		&c.IsBookable, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (q *Queries) GetCatalogue(ctx context.Context, id int64) (Catalogue, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+catalogueColumns+` FROM catalogues WHERE id = ?`, id)
	return scanCatalogue(row)
}

// ListCatalogues returns the shop's items; hidden ones only when includeHidden is set.
func (q *Queries) ListCatalogues(ctx context.Context, shopID int64, includeHidden bool) ([]Catalogue, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+catalogueColumns+` FROM catalogues
		WHERE shop_id = ? AND (? = 1 OR status = 'active')
		ORDER BY name, id`,
		shopID, boolToInt(includeHidden),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Catalogue
	for rows.Next() {
		c, err := scanCatalogue(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type CatalogueParams struct {
	ID              int64
	ShopID          int64
	Name            string
	Description     string
	PriceCents      int64
	DurationMinutes int64
	IsBookable      bool
	Status          string
}

func (q *Queries) CreateCatalogue(ctx context.Context, arg CatalogueParams) (Catalogue, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO catalogues (shop_id, name, description, price_cents, duration_minutes, is_bookable, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		arg.ShopID, arg.Name, arg.Description, arg.PriceCents, arg.DurationMinutes, boolToInt(arg.IsBookable), arg.Status,
	)
	var id int64
	if err := row.Scan(&id); err != nil {
		return Catalogue{}, err
	}
	return q.GetCatalogue(ctx, id)
}

func (q *Queries) UpdateCatalogue(ctx context.Context, arg CatalogueParams) (Catalogue, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE catalogues SET name = ?, description = ?, price_cents = ?, duration_minutes = ?,
			is_bookable = ?, status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND shop_id = ?`,
		arg.Name, arg.Description, arg.PriceCents, arg.DurationMinutes, boolToInt(arg.IsBookable), arg.Status,
		arg.ID, arg.ShopID,
	)
	if err != nil {
		return Catalogue{}, err
	}
	if err := requireAffected(res); err != nil {
		return Catalogue{}, err
	}
	return q.GetCatalogue(ctx, arg.ID)
}

func (q *Queries) DeleteCatalogue(ctx context.Context, shopID, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM catalogues WHERE id = ? AND shop_id = ?`, id, shopID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
