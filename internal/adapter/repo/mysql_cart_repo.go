package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	domain "github.com/Venomous-pie/knot-and-bloom-sub000/internal/entity"
	"github.com/Venomous-pie/knot-and-bloom-sub000/internal/usecase"
)

// MySQLCartRepo reads the storefront's cart and catalog tables. The checkout
// service never writes catalog rows; it only deletes purchased cart items.
type MySQLCartRepo struct{ db *sql.DB }

func NewMySQLCartRepo(db *sql.DB) *MySQLCartRepo { return &MySQLCartRepo{db: db} }

const cartLineQuery = `
SELECT ci.id, ci.quantity,
       p.id, p.name, p.price, p.discount, p.image_url,
       v.id, v.name, v.price, v.discount, v.stock
FROM cart_items ci
JOIN products p ON p.id = ci.product_id
LEFT JOIN product_variants v ON v.id = ci.variant_id
WHERE ci.customer_id = ? AND ci.id IN (%s)`

func (r *MySQLCartRepo) SelectedItems(ctx context.Context, customerID string, itemIDs []string) ([]usecase.CartLine, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(itemIDs)+1)
	args = append(args, customerID)
	for _, id := range itemIDs {
		args = append(args, id)
	}
	query := strings.Replace(cartLineQuery, "%s", placeholders(len(itemIDs)), 1)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []usecase.CartLine
	for rows.Next() {
		var (
			line     usecase.CartLine
			p        domain.ProductPricing
			discount sql.NullFloat64
			imageURL sql.NullString
			varID    sql.NullString
			varName  sql.NullString
			varPrice sql.NullFloat64
			varDisc  sql.NullFloat64
			varStock sql.NullInt64
		)
		if err := rows.Scan(&line.ItemID, &line.Quantity,
			&p.ProductID, &p.Name, &p.BasePrice, &discount, &imageURL,
			&varID, &varName, &varPrice, &varDisc, &varStock); err != nil {
			return nil, err
		}
		if discount.Valid {
			d := discount.Float64
			p.Discount = &d
		}
		p.ImageURL = imageURL.String
		if varID.Valid {
			id := varID.String
			p.VariantID = &id
			p.VariantName = varName.String
			if varPrice.Valid {
				v := varPrice.Float64
				p.VariantPrice = &v
			}
			if varDisc.Valid {
				v := varDisc.Float64
				p.VariantDiscount = &v
			}
			p.Stock = int(varStock.Int64)
		}
		line.Pricing = p
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *MySQLCartRepo) RemoveItems(ctx context.Context, customerID string, itemIDs []string) error {
	if len(itemIDs) == 0 {
		return nil
	}
	args := make([]any, 0, len(itemIDs)+1)
	args = append(args, customerID)
	for _, id := range itemIDs {
		args = append(args, id)
	}
	query := `DELETE FROM cart_items WHERE customer_id = ? AND id IN (` + placeholders(len(itemIDs)) + `)`
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *MySQLCartRepo) LivePricing(ctx context.Context, productID string, variantID *string) (domain.ProductPricing, error) {
	var (
		p        domain.ProductPricing
		discount sql.NullFloat64
		imageURL sql.NullString
	)
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, price, discount, image_url FROM products WHERE id=?`, productID)
	if err := row.Scan(&p.ProductID, &p.Name, &p.BasePrice, &discount, &imageURL); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, usecase.ErrNotFound
		}
		return p, err
	}
	if discount.Valid {
		d := discount.Float64
		p.Discount = &d
	}
	p.ImageURL = imageURL.String

	if variantID != nil {
		var (
			varName  sql.NullString
			varPrice sql.NullFloat64
			varDisc  sql.NullFloat64
			stock    int
		)
		row := r.db.QueryRowContext(ctx, `
SELECT name, price, discount, stock FROM product_variants WHERE id=?`, *variantID)
		if err := row.Scan(&varName, &varPrice, &varDisc, &stock); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return p, usecase.ErrNotFound
			}
			return p, err
		}
		id := *variantID
		p.VariantID = &id
		p.VariantName = varName.String
		if varPrice.Valid {
			v := varPrice.Float64
			p.VariantPrice = &v
		}
		if varDisc.Valid {
			v := varDisc.Float64
			p.VariantDiscount = &v
		}
		p.Stock = stock
	}
	return p, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

var (
	_ usecase.CartReader    = (*MySQLCartRepo)(nil)
	_ usecase.CatalogReader = (*MySQLCartRepo)(nil)
)
