package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dsakai3418/paybot/internal/customer"
)

// pgColumns maps the sheet's 1-based column positions onto the customers
// table. The positional layout is the contract; both backends share it.
var pgColumns = map[int]string{
	customer.ColCompanyID:     "company_id",
	customer.ColCompanyName:   "company_name",
	customer.ColExistingEmail: "email",
	customer.ColUnpaidAmount:  "unpaid_amount",
	customer.ColDueDate:       "due_date",
	customer.ColStatus:        "status",
	customer.ColNewEmail:      "new_email",
	customer.ColPromisedDate:  "promised_date",
	customer.ColInquiry:       "inquiry",
}

// Postgres serves the same row contract from a customers table. row_num is
// the sheet row the record would occupy (first data row is 2), which keeps
// UpdateCell addressing identical across backends.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) Records(ctx context.Context) ([]map[string]string, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT COALESCE(company_id, ''), COALESCE(company_name, ''),
		       COALESCE(email, ''), COALESCE(unpaid_amount, '')
		FROM customers
		ORDER BY row_num`)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	var records []map[string]string
	for rows.Next() {
		var id, name, email, amount string
		if err := rows.Scan(&id, &name, &email, &amount); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		records = append(records, map[string]string{
			customer.HeaderCompanyID:     id,
			customer.HeaderCompanyName:   name,
			customer.HeaderExistingEmail: email,
			customer.HeaderUnpaidAmount:  amount,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}
	return records, nil
}

func (p *Postgres) UpdateCell(ctx context.Context, row, col int, value string) error {
	column, ok := pgColumns[col]
	if !ok {
		return fmt.Errorf("no column mapped at position %d", col)
	}
	// column comes from the fixed map above, never from input.
	query := fmt.Sprintf(`UPDATE customers SET %s = $1 WHERE row_num = $2`, column)
	tag, err := p.pool.Exec(ctx, query, value, row)
	if err != nil {
		return fmt.Errorf("update %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no customer at row %d", row)
	}
	return nil
}
