package dbq

import (
	"context"
	"fmt"
	"strings"
)

const shopColumns = `s.id, s.business_id, s.name, s.slug, s.category, s.description, s.address, s.city,
	s.latitude, s.longitude, s.phone, s.timezone, s.status, s.created_at, s.updated_at`

func scanShop(row rowScanner) (Shop, error) {
	var s Shop
	err := row.Scan(
		&s.ID, &s.BusinessID, &s.Name, &s.Slug, &s.Category, &s.Description, &s.Address, &s.City,
		&s.Latitude, &s.Longitude, &s.Phone, &s.Timezone, &s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

func (q *Queries) listShops(ctx context.Context, query string, args ...interface{}) ([]Shop, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Shop
	for rows.Next() {
		s, err := scanShop(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (q *Queries) GetShop(ctx context.Context, id int64) (Shop, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+shopColumns+` FROM shops s WHERE s.id = ?`, id)
	return scanShop(row)
}

// GetShopOwner returns the user id owning the shop's business.
func (q *Queries) GetShopOwner(ctx context.Context, shopID int64) (int64, error) {
	var ownerID int64
	err := q.db.QueryRowContext(ctx,
		`SELECT b.owner_id FROM shops s JOIN businesses b ON b.id = s.business_id WHERE s.id = ?`,
		shopID,
	).Scan(&ownerID)
	return ownerID, err
}

func (q *Queries) ListShopsByOwner(ctx context.Context, ownerID int64) ([]Shop, error) {
	return q.listShops(ctx,
		`SELECT `+shopColumns+` FROM shops s
		JOIN businesses b ON b.id = s.business_id
		WHERE b.owner_id = ?
		ORDER BY s.name, s.id`,
		ownerID,
	)
}

type SearchShopsParams struct {
	Query    string
	Category string
	City     string
	// Bounding box, applied when HasBox is set.
	HasBox         bool
	MinLat, MaxLat float64
	MinLng, MaxLng float64
	Limit          int64
	Offset         int64
}

// SearchShops lists active shops. A negative Limit returns every match.
func (q *Queries) SearchShops(ctx context.Context, arg SearchShopsParams) ([]Shop, error) {
	where := []string{"s.status = 'active'"}
	var args []interface{}

	if term := strings.TrimSpace(arg.Query); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		where = append(where, "(LOWER(s.name) LIKE ? OR LOWER(s.description) LIKE ? OR LOWER(s.category) LIKE ?)")
		args = append(args, like, like, like)
	}
	if arg.Category != "" {
		where = append(where, "LOWER(s.category) = ?")
		args = append(args, strings.ToLower(arg.Category))
	}
	if arg.City != "" {
		where = append(where, "LOWER(s.city) = ?")
		args = append(args, strings.ToLower(arg.City))
	}
	if arg.HasBox {
		where = append(where,
			"s.latitude IS NOT NULL AND s.longitude IS NOT NULL",
			"s.latitude BETWEEN ? AND ?",
			"s.longitude BETWEEN ? AND ?",
		)
		args = append(args, arg.MinLat, arg.MaxLat, arg.MinLng, arg.MaxLng)
	}

	query := fmt.Sprintf(
		`SELECT %s FROM shops s WHERE %s ORDER BY s.name, s.id LIMIT ? OFFSET ?`,
		shopColumns, strings.Join(where, " AND "),
	)
	args = append(args, arg.Limit, arg.Offset)
	return q.listShops(ctx, query, args...)
}

type CreateShopParams struct {
	BusinessID  int64
	Name        string
	Slug        string
	Category    string
	Description string
	Address     string
	City        string
	Latitude    *float64
	Longitude   *float64
	Phone       string
	Timezone    string
}

func (q *Queries) CreateShop(ctx context.Context, arg CreateShopParams) (Shop, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO shops (business_id, name, slug, category, description, address, city, latitude, longitude, phone, timezone)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		arg.BusinessID, arg.Name, arg.Slug, arg.Category, arg.Description, arg.Address, arg.City,
		arg.Latitude, arg.Longitude, arg.Phone, arg.Timezone,
	)
	var id int64
	if err := row.Scan(&id); err != nil {
		return Shop{}, err
	}
	return q.GetShop(ctx, id)
}

type UpdateShopParams struct {
	ID          int64
	Name        string
	Category    string
	Description string
	Address     string
	City        string
	Latitude    *float64
	Longitude   *float64
	Phone       string
	Timezone    string
}

func (q *Queries) UpdateShop(ctx context.Context, arg UpdateShopParams) (Shop, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE shops SET name = ?, category = ?, description = ?, address = ?, city = ?,
			latitude = ?, longitude = ?, phone = ?, timezone = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		arg.Name, arg.Category, arg.Description, arg.Address, arg.City,
		arg.Latitude, arg.Longitude, arg.Phone, arg.Timezone, arg.ID,
	)
	if err != nil {
		return Shop{}, err
	}
	if err := requireAffected(res); err != nil {
		return Shop{}, err
	}
	return q.GetShop(ctx, arg.ID)
}

func (q *Queries) UpdateShopStatus(ctx context.Context, id int64, status string) (Shop, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE shops SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, id,
	)
	if err != nil {
		return Shop{}, err
	}
	if err := requireAffected(res); err != nil {
		return Shop{}, err
	}
	return q.GetShop(ctx, id)
}
