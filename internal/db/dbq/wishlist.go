package dbq

import "context"

func (q *Queries) ListWishlist(ctx context.Context, userID int64) ([]WishlistItem, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT c.id, c.shop_id, c.name, c.price_cents, w.created_at
		FROM wishlist_items w
		JOIN catalogues c ON c.id = w.catalogue_id
		WHERE w.user_id = ?
		ORDER BY w.created_at DESC, c.id DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []WishlistItem
	for rows.Next() {
		var w WishlistItem
		if err := rows.Scan(&w.CatalogueID, &w.ShopID, &w.Name, &w.PriceCents, &w.AddedAt); err != nil {
			return nil, err
		}
		items = append(items, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// AddWishlistItem is a no-op when the item is already saved.
func (q *Queries) AddWishlistItem(ctx context.Context, userID, catalogueID int64) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO wishlist_items (user_id, catalogue_id) VALUES (?, ?)
		ON CONFLICT (user_id, catalogue_id) DO NOTHING`,
		userID, catalogueID,
	)
	return err
}

func (q *Queries) RemoveWishlistItem(ctx context.Context, userID, catalogueID int64) error {
	_, err := q.db.ExecContext(ctx,
		`DELETE FROM wishlist_items WHERE user_id = ? AND catalogue_id = ?`,
		userID, catalogueID,
	)
	return err
}
