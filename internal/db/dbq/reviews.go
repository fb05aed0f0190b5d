package dbq

import "context"

// ReviewWithAuthor adds the reviewer's display name.
type ReviewWithAuthor struct {
	Review
	AuthorName string `json:"author_name"`
}

type ReviewStats struct {
	Count   int64   `json:"count"`
	Average float64 `json:"average"`
}

const reviewColumns = `r.id, r.shop_id, r.user_id, r.rating, r.comment, r.created_at, r.updated_at`

func scanReview(row rowScanner) (Review, error) {
	var r Review
	err := row.Scan(&r.ID, &r.ShopID, &r.UserID, &r.Rating, &r.Comment, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (q *Queries) ListReviews(ctx context.Context, shopID int64) ([]ReviewWithAuthor, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+reviewColumns+`, u.full_name
		FROM reviews r JOIN users u ON u.id = r.user_id
		WHERE r.shop_id = ?
		ORDER BY r.created_at DESC, r.id DESC`,
		shopID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ReviewWithAuthor
	for rows.Next() {
		var r ReviewWithAuthor
		if err := rows.Scan(&r.ID, &r.ShopID, &r.UserID, &r.Rating, &r.Comment, &r.CreatedAt, &r.UpdatedAt, &r.AuthorName); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (q *Queries) GetReview(ctx context.Context, id int64) (Review, error) {
	return scanReview(q.db.QueryRowContext(ctx, `SELECT `+reviewColumns+` FROM reviews r WHERE r.id = ?`, id))
}

func (q *Queries) GetReviewStats(ctx context.Context, shopID int64) (ReviewStats, error) {
	var stats ReviewStats
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(rating), 0) FROM reviews WHERE shop_id = ?`,
		shopID,
	).Scan(&stats.Count, &stats.Average)
	return stats, err
}

type CreateReviewParams struct {
	ShopID  int64
	UserID  int64
	Rating  int64
	Comment string
}

func (q *Queries) CreateReview(ctx context.Context, arg CreateReviewParams) (Review, error) {
	var id int64
	err := q.db.QueryRowContext(ctx,
		`INSERT INTO reviews (shop_id, user_id, rating, comment) VALUES (?, ?, ?, ?) RETURNING id`,
		arg.ShopID, arg.UserID, arg.Rating, arg.Comment,
	).Scan(&id)
	if err != nil {
		return Review{}, err
	}
	return q.GetReview(ctx, id)
}

func (q *Queries) UpdateReview(ctx context.Context, id, rating int64, comment string) (Review, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE reviews SET rating = ?, comment = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		rating, comment, id,
	)
	if err != nil {
		return Review{}, err
	}
	if err := requireAffected(res); err != nil {
		return Review{}, err
	}
	return q.GetReview(ctx, id)
}

func (q *Queries) DeleteReview(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
