package dbq

import "context"

const businessColumns = `id, owner_id, name, phone, email, registration_number, address, created_at, updated_at`

func scanBusiness(row rowScanner) (Business, error) {
	var b Business
	err := row.Scan(&b.ID, &b.OwnerID, &b.Name, &b.Phone, &b.Email, &b.RegistrationNumber, &b.Address, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func (q *Queries) GetBusinessByOwner(ctx context.Context, ownerID int64) (Business, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+businessColumns+` FROM businesses WHERE owner_id = ?`, ownerID)
	return scanBusiness(row)
}

type UpsertBusinessParams struct {
	OwnerID            int64
	Name               string
	Phone              string
	Email              string
	RegistrationNumber string
	Address            string
}

// UpsertBusiness creates the owner's business or updates it in place.
func (q *Queries) UpsertBusiness(ctx context.Context, arg UpsertBusinessParams) (Business, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO businesses (owner_id, name, phone, email, registration_number, address)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (owner_id) DO UPDATE SET
			name = excluded.name,
			phone = excluded.phone,
			email = excluded.email,
			registration_number = excluded.registration_number,
			address = excluded.address,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id`,
		arg.OwnerID, arg.Name, arg.Phone, arg.Email, arg.RegistrationNumber, arg.Address,
	)
	var id int64
	if err := row.Scan(&id); err != nil {
		return Business{}, err
	}
	return q.GetBusinessByOwner(ctx, arg.OwnerID)
}
