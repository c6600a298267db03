package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-ecom-chatbot/internal/logger"
	"github.com/ariefcatur/go-ecom-chatbot/internal/metrics"
	"github.com/ariefcatur/go-ecom-chatbot/internal/postgres"
	"github.com/ariefcatur/go-ecom-chatbot/internal/wire"
)

var ErrInsufficientStock = errors.New("stock cannot go below zero")

type Repo struct {
	DB  *postgres.Provider
	Log *logger.Logger
}

func NewRepo(db *postgres.Provider, log *logger.Logger) *Repo {
	if log == nil {
		log = logger.Nop()
	}
	return &Repo{DB: db, Log: log}
}

const columns = `product_id, name, description, price_cents, category, brand, sku,
	stock_quantity, images, specifications, is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Category, &p.Brand, &p.SKU,
		&p.StockQuantity, &p.Images, &p.Specifications, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Specifications == nil {
		p.Specifications = wire.Doc{}
	}
	return &p, nil
}

func scanProducts(rows pgx.Rows) ([]*Product, error) {
	defer rows.Close()
	out := []*Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) Save(ctx context.Context, p *Product) error {
	err := r.DB.WithTx(ctx, func(q postgres.Querier) error {
		return save(ctx, q, p)
	})
	metrics.StoreOp("product", "save", err)
	if err != nil {
		r.Log.Error("failed to save product", "product_id", p.ID, "op", "save", "error", err)
		return err
	}
	r.Log.Debug("product saved", "product_id", p.ID)
	return nil
}

func save(ctx context.Context, q postgres.Querier, p *Product) error {
	now := wire.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Specifications == nil {
		p.Specifications = wire.Doc{}
	}
	err := q.QueryRow(ctx, `
		INSERT INTO products (`+columns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (product_id) DO UPDATE SET
			name = EXCLUDED.name, description = EXCLUDED.description,
			price_cents = EXCLUDED.price_cents, category = EXCLUDED.category,
			brand = EXCLUDED.brand, sku = EXCLUDED.sku,
			stock_quantity = EXCLUDED.stock_quantity, images = EXCLUDED.images,
			specifications = EXCLUDED.specifications, is_active = EXCLUDED.is_active,
			updated_at = $14
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Description, p.PriceCents, p.Category, p.Brand, p.SKU,
		p.StockQuantity, p.Images, p.Specifications, p.IsActive, p.CreatedAt, p.UpdatedAt, now,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return postgres.Classify("save product", err)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return nil
}

// FindByID only sees active products; nil, nil otherwise.
func (r *Repo) FindByID(ctx context.Context, id string) (*Product, error) {
	var p *Product
	err := r.DB.Read(ctx, func(q postgres.Querier) error {
		var err error
		p, err = scanProduct(q.QueryRow(ctx,
			`SELECT `+columns+` FROM products WHERE product_id = $1 AND is_active = true`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			p = nil
			return nil
		}
		return postgres.Classify("product find_by_id", err)
	})
	metrics.StoreOp("product", "find_by_id", err)
	if err != nil {
		r.Log.Error("failed to find product", "product_id", id, "op", "find_by_id", "error", err)
		return nil, err
	}
	return p, nil
}

func (r *Repo) Search(ctx context.Context, f Filter) (Page, error) {
	f = f.normalized()
	sql, args := buildSearch(f)
	var page Page
	err := r.DB.Read(ctx, func(q postgres.Querier) error {
		rows, err := q.Query(ctx, sql, args...)
		if err != nil {
			return postgres.Classify("product search", err)
		}
		ps, err := scanProducts(rows)
		if err != nil {
			return postgres.Classify("product search", err)
		}
		if len(ps) > f.Limit {
			page.HasMore = true
			ps = ps[:f.Limit]
		}
		page.Products = ps
		return nil
	})
	metrics.StoreOp("product", "search", err)
	if err != nil {
		r.Log.Error("failed to search products", "op", "search", "query", f.Query, "category", f.Category, "error", err)
		return Page{Products: []*Product{}}, err
	}
	return page, nil
}

// Categories lists the distinct categories of active products, sorted.
func (r *Repo) Categories(ctx context.Context) ([]string, error) {
	out := []string{}
	err := r.DB.Read(ctx, func(q postgres.Querier) error {
		rows, err := q.Query(ctx, `
			SELECT DISTINCT category FROM products
			WHERE is_active = true AND category <> ''
			ORDER BY category`)
		if err != nil {
			return postgres.Classify("product categories", err)
		}
		defer rows.Close()
		for rows.Next() {
			var c string
			if err := rows.Scan(&c); err != nil {
				return postgres.Classify("product categories", err)
			}
			out = append(out, c)
		}
		return postgres.Classify("product categories", rows.Err())
	})
	metrics.StoreOp("product", "categories", err)
	if err != nil {
		r.Log.Error("failed to list categories", "op", "categories", "error", err)
		return []string{}, err
	}
	return out, nil
}

// Recommendations returns active products sharing the anchor's category,
// newest first. Without an anchor it falls back to the best-stocked
// products.
func (r *Repo) Recommendations(ctx context.Context, productID string, limit int) ([]*Product, error) {
	if limit <= 0 {
		limit = 5
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	var out []*Product
	err := r.DB.Read(ctx, func(q postgres.Querier) error {
		var (
			rows pgx.Rows
			err  error
		)
		if productID != "" {
			rows, err = q.Query(ctx, `
				SELECT `+prefixed("p2")+` FROM products p1
				JOIN products p2 ON p1.category = p2.category
				WHERE p1.product_id = $1 AND p2.product_id <> $1 AND p2.is_active = true
				ORDER BY p2.updated_at DESC, p2.product_id
				LIMIT $2`, productID, limit)
		} else {
			rows, err = q.Query(ctx, `
				SELECT `+columns+` FROM products
				WHERE is_active = true
				ORDER BY stock_quantity DESC, updated_at DESC, product_id
				LIMIT $1`, limit)
		}
		if err != nil {
			return postgres.Classify("product recommendations", err)
		}
		out, err = scanProducts(rows)
		return postgres.Classify("product recommendations", err)
	})
	metrics.StoreOp("product", "recommendations", err)
	if err != nil {
		r.Log.Error("failed to get recommendations", "product_id", productID, "op", "recommendations", "error", err)
		return []*Product{}, err
	}
	return out, nil
}

// UpdateStock applies delta to the in-memory quantity and saves. A result
// below zero is rejected before anything changes.
//
// This is read-modify-write without a version check: two concurrent
// adjustments of the same product can lose one update.
func (r *Repo) UpdateStock(ctx context.Context, p *Product, delta int) error {
	next := p.StockQuantity + delta
	if next < 0 {
		r.Log.Warn("cannot reduce stock below 0", "product_id", p.ID, "stock", p.StockQuantity, "delta", delta)
		return ErrInsufficientStock
	}
	prev := p.StockQuantity
	p.StockQuantity = next
	if err := r.Save(ctx, p); err != nil {
		p.StockQuantity = prev
		return err
	}
	return nil
}

// Deactivate is the soft delete.
func (r *Repo) Deactivate(ctx context.Context, p *Product) error {
	prev := p.IsActive
	p.IsActive = false
	if err := r.Save(ctx, p); err != nil {
		p.IsActive = prev
		return err
	}
	return nil
}

// prefixed qualifies every product column with a table alias.
func prefixed(alias string) string {
	cols := strings.Split(columns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}
