package sources

import (
	"context"
	"strings"

	"consignment-reconciliation-service/internal/models"
	"consignment-reconciliation-service/pkg/errors"
	"consignment-reconciliation-service/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Supplier is a consignment partner row from the ERP database.
type Supplier struct {
	Code string
	Name string
}

// Order identifies a consignment order eligible for settlement.
type Order struct {
	Number   string
	Supplier string
	Branch   string
}

// Repository reads settlement and sales extracts straight from the ERP
// database, as an alternative to the spreadsheet drops.
type Repository struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

// NewRepository connects a pool to the ERP database.
func NewRepository(ctx context.Context, dsn string, log logger.Logger) (*Repository, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryStore, errors.CodeStoreUnavailable, "cannot connect to database")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, errors.CategoryStore, errors.CodeStoreUnavailable, "database ping failed")
	}
	return &Repository{pool: pool, logger: log.WithComponent("repository")}, nil
}

// Close releases the connection pool.
func (r *Repository) Close() {
	r.pool.Close()
}

// ListSuppliers returns the consignment partners known to the ERP.
func (r *Repository) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT code, name
		FROM consignment_suppliers
		WHERE active
		ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryStore, errors.CodeStoreUnavailable, "supplier query failed")
	}
	defer rows.Close()

	var suppliers []Supplier
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.Code, &s.Name); err != nil {
			return nil, errors.Wrap(err, errors.CategoryStore, errors.CodeStoreUnavailable, "supplier scan failed")
		}
		s.Name = strings.TrimSpace(s.Name)
		suppliers = append(suppliers, s)
	}
	return suppliers, rows.Err()
}

// ListOrders returns the open consignment orders for a supplier.
func (r *Repository) ListOrders(ctx context.Context, supplierCode string) ([]Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT order_number, supplier_code, branch
		FROM consignment_orders
		WHERE supplier_code = $1 AND status = 'open'
		ORDER BY order_number`, supplierCode)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryStore, errors.CodeStoreUnavailable, "order query failed")
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.Number, &o.Supplier, &o.Branch); err != nil {
			return nil, errors.Wrap(err, errors.CategoryStore, errors.CodeStoreUnavailable, "order scan failed")
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// SettlementLines loads the settlement extract for an order. The
// discount rate is derived from the gross and net unit prices because
// the ERP stores both columns but not the rate itself.
func (r *Repository) SettlementLines(ctx context.Context, orderNumber string) ([]models.CanonicalLine, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT branch, product_id, title, quantity, gross_unit_price, net_unit_price
		FROM consignment_order_items
		WHERE order_number = $1`, orderNumber)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryStore, errors.CodeStoreUnavailable, "settlement query failed")
	}
	defer rows.Close()

	acc := newAccumulator()
	dropped := 0
	for rows.Next() {
		var branch, rawProduct, title string
		var quantity, gross, net decimal.Decimal
		if err := rows.Scan(&branch, &rawProduct, &title, &quantity, &gross, &net); err != nil {
			return nil, errors.Wrap(err, errors.CategoryStore, errors.CodeStoreUnavailable, "settlement scan failed")
		}

		productID, ok := models.NormalizeProductID(rawProduct)
		if !ok {
			dropped++
			continue
		}
		acc.add(models.CanonicalLine{
			Branch:       models.NormalizeBranch(branch),
			ProductID:    productID,
			Title:        strings.TrimSpace(title),
			Quantity:     quantity,
			UnitPrice:    gross,
			DiscountRate: discountFromPrices(gross, net),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryStore, errors.CodeStoreUnavailable, "settlement read failed")
	}
	if dropped > 0 {
		r.logger.WithFields(logger.Fields{
			"order_number": orderNumber,
			"dropped":      dropped,
		}).Warn("Dropped settlement rows with invalid product ids")
	}
	return acc.result(), nil
}

// SalesLines loads the point-of-sale extract for a supplier within a
// settlement window.
func (r *Repository) SalesLines(ctx context.Context, supplierCode, from, to string) ([]models.CanonicalLine, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT branch, product_id, quantity, unit_value
		FROM pos_sales
		WHERE supplier_code = $1 AND sold_at >= $2 AND sold_at < $3`,
		supplierCode, from, to)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryStore, errors.CodeStoreUnavailable, "sales query failed")
	}
	defer rows.Close()

	acc := newAccumulator()
	for rows.Next() {
		var branch, rawProduct string
		var quantity, unitValue decimal.Decimal
		if err := rows.Scan(&branch, &rawProduct, &quantity, &unitValue); err != nil {
			return nil, errors.Wrap(err, errors.CategoryStore, errors.CodeStoreUnavailable, "sales scan failed")
		}

		productID, ok := models.NormalizeProductID(rawProduct)
		if !ok {
			continue
		}
		acc.add(models.CanonicalLine{
			Branch:    models.NormalizeBranch(branch),
			ProductID: productID,
			Quantity:  quantity,
			UnitPrice: unitValue,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryStore, errors.CodeStoreUnavailable, "sales read failed")
	}
	return acc.result(), nil
}

// discountFromPrices derives the fractional discount from the gross and
// net unit prices. Zero or inverted prices yield a zero rate.
func discountFromPrices(gross, net decimal.Decimal) decimal.Decimal {
	if gross.IsZero() || net.GreaterThan(gross) {
		return decimal.Zero
	}
	return decimal.NewFromInt(1).Sub(net.Div(gross))
}
