package dbq

import "context"

const faqColumns = `id, shop_id, question, answer, position, created_at, updated_at`

func scanFaq(row rowScanner) (Faq, error) {
	var f Faq
	err := row.Scan(&f.ID, &f.ShopID, &f.Question, &f.Answer, &f.Position, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

func (q *Queries) ListFaqs(ctx context.Context, shopID int64) ([]Faq, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+faqColumns+` FROM faqs WHERE shop_id = ? ORDER BY position, id`,
		shopID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Faq
	for rows.Next() {
		f, err := scanFaq(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (q *Queries) GetFaq(ctx context.Context, shopID, id int64) (Faq, error) {
	return scanFaq(q.db.QueryRowContext(ctx,
		`SELECT `+faqColumns+` FROM faqs WHERE id = ? AND shop_id = ?`, id, shopID))
}

type FaqParams struct {
	ID       int64
	ShopID   int64
	Question string
	Answer   string
	Position int64
}

func (q *Queries) CreateFaq(ctx context.Context, arg FaqParams) (Faq, error) {
	var id int64
	err := q.db.QueryRowContext(ctx,
		`INSERT INTO faqs (shop_id, question, answer, position) VALUES (?, ?, ?, ?) RETURNING id`,
		arg.ShopID, arg.Question, arg.Answer, arg.Position,
	).Scan(&id)
	if err != nil {
		return Faq{}, err
	}
	return q.GetFaq(ctx, arg.ShopID, id)
}

func (q *Queries) UpdateFaq(ctx context.Context, arg FaqParams) (Faq, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE faqs SET question = ?, answer = ?, position = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND shop_id = ?`,
		arg.Question, arg.Answer, arg.Position, arg.ID, arg.ShopID,
	)
	if err != nil {
		return Faq{}, err
	}
	if err := requireAffected(res); err != nil {
		return Faq{}, err
	}
	return q.GetFaq(ctx, arg.ShopID, arg.ID)
}

func (q *Queries) DeleteFaq(ctx context.Context, shopID, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM faqs WHERE id = ? AND shop_id = ?`, id, shopID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
