package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-ecom-chatbot/internal/logger"
	"github.com/ariefcatur/go-ecom-chatbot/internal/metrics"
	"github.com/ariefcatur/go-ecom-chatbot/internal/postgres"
	"github.com/ariefcatur/go-ecom-chatbot/internal/wire"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

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

const orderColumns = `order_id, user_id, status, total_amount_cents, shipping_address,
	billing_address, payment_method, payment_status, created_at, updated_at, metadata`

const itemColumns = `item_id, order_id, product_id, quantity, unit_price_cents,
	total_price_cents, created_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	if err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalCents, &o.ShippingAddress,
		&o.BillingAddress, &o.PaymentMethod, &o.PaymentStatus, &o.CreatedAt, &o.UpdatedAt, &o.Metadata); err != nil {
		return nil, err
	}
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	fillDocs(&o)
	return &o, nil
}

func scanItem(row pgx.Row) (*Item, error) {
	var it Item
	if err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPriceCents,
		&it.TotalCents, &it.CreatedAt); err != nil {
		return nil, err
	}
	it.CreatedAt = it.CreatedAt.UTC()
	return &it, nil
}

func fillDocs(o *Order) {
	if o.ShippingAddress == nil {
		o.ShippingAddress = wire.Doc{}
	}
	if o.BillingAddress == nil {
		o.BillingAddress = wire.Doc{}
	}
	if o.Metadata == nil {
		o.Metadata = wire.Doc{}
	}
}

func (r *Repo) Save(ctx context.Context, o *Order) error {
	err := r.DB.WithTx(ctx, func(q postgres.Querier) error {
		return saveOrder(ctx, q, o)
	})
	metrics.StoreOp("order", "save", err)
	if err != nil {
		r.Log.Error("failed to save order", "order_id", o.ID, "op", "save", "error", err)
		return err
	}
	r.Log.Debug("order saved", "order_id", o.ID, "status", o.Status)
	return nil
}

func saveOrder(ctx context.Context, q postgres.Querier, o *Order) error {
	now := wire.Now()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = now
	}
	if o.Status == "" {
		o.Status = StatusPending
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = PaymentPending
	}
	fillDocs(o)
	err := q.QueryRow(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (order_id) DO UPDATE SET
			user_id = EXCLUDED.user_id, status = EXCLUDED.status,
			total_amount_cents = EXCLUDED.total_amount_cents,
			shipping_address = EXCLUDED.shipping_address,
			billing_address = EXCLUDED.billing_address,
			payment_method = EXCLUDED.payment_method,
			payment_status = EXCLUDED.payment_status,
			metadata = EXCLUDED.metadata, updated_at = $12
		RETURNING created_at, updated_at`,
		o.ID, o.UserID, o.Status, o.TotalCents, o.ShippingAddress,
		o.BillingAddress, o.PaymentMethod, o.PaymentStatus, o.CreatedAt, o.UpdatedAt, o.Metadata, now,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return postgres.Classify("save order", err)
	}
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	return nil
}

// SaveItem writes one line on its own. Re-saving an existing line
// overwrites its quantity and prices; created_at is kept.
func (r *Repo) SaveItem(ctx context.Context, it *Item) error {
	err := r.DB.WithTx(ctx, func(q postgres.Querier) error {
		return saveItem(ctx, q, it)
	})
	metrics.StoreOp("order_item", "save", err)
	if err != nil {
		r.Log.Error("failed to save order item", "item_id", it.ID, "order_id", it.OrderID, "op", "save", "error", err)
		return err
	}
	return nil
}

func saveItem(ctx context.Context, q postgres.Querier, it *Item) error {
	if it.CreatedAt.IsZero() {
		it.CreatedAt = wire.Now()
	}
	err := q.QueryRow(ctx, `
		INSERT INTO order_items (`+itemColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (item_id) DO UPDATE SET
			order_id = EXCLUDED.order_id, product_id = EXCLUDED.product_id,
			quantity = EXCLUDED.quantity, unit_price_cents = EXCLUDED.unit_price_cents,
			total_price_cents = EXCLUDED.total_price_cents
		RETURNING created_at`,
		it.ID, it.OrderID, it.ProductID, it.Quantity, it.UnitPriceCents, it.TotalCents, it.CreatedAt,
	).Scan(&it.CreatedAt)
	if err != nil {
		return postgres.Classify("save order item", err)
	}
	it.CreatedAt = it.CreatedAt.UTC()
	return nil
}

// FindByID returns nil, nil when no order has that id.
func (r *Repo) FindByID(ctx context.Context, id string) (*Order, error) {
	var o *Order
	err := r.DB.Read(ctx, func(q postgres.Querier) error {
		var err error
		o, err = findOrder(ctx, q, id, false)
		return err
	})
	metrics.StoreOp("order", "find_by_id", err)
	if err != nil {
		r.Log.Error("failed to find order", "order_id", id, "op", "find_by_id", "error", err)
		return nil, err
	}
	return o, nil
}

func findOrder(ctx context.Context, q postgres.Querier, id string, lock bool) (*Order, error) {
	sql := `SELECT ` + orderColumns + ` FROM orders WHERE order_id = $1`
	if lock {
		sql += ` FOR UPDATE`
	}
	o, err := scanOrder(q.QueryRow(ctx, sql, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, postgres.Classify("order find_by_id", err)
	}
	return o, nil
}

// FindByUserID lists a user's orders newest first. An empty status means
// every status.
func (r *Repo) FindByUserID(ctx context.Context, userID string, status Status, limit, offset int) ([]*Order, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	out := []*Order{}
	err := r.DB.Read(ctx, func(q postgres.Querier) error {
		rows, err := q.Query(ctx, `
			SELECT `+orderColumns+` FROM orders
			WHERE user_id = $1 AND ($2::text = '' OR status = $2)
			ORDER BY created_at DESC, order_id
			LIMIT $3 OFFSET $4`, userID, string(status), limit, offset)
		if err != nil {
			return postgres.Classify("order find_by_user_id", err)
		}
		defer rows.Close()
		for rows.Next() {
			o, err := scanOrder(rows)
			if err != nil {
				return postgres.Classify("order find_by_user_id", err)
			}
			out = append(out, o)
		}
		return postgres.Classify("order find_by_user_id", rows.Err())
	})
	metrics.StoreOp("order", "find_by_user_id", err)
	if err != nil {
		r.Log.Error("failed to list orders", "user_id", userID, "op", "find_by_user_id", "error", err)
		return []*Order{}, err
	}
	return out, nil
}

// FindItemsByOrderID returns the lines of an order oldest first.
func (r *Repo) FindItemsByOrderID(ctx context.Context, orderID string) ([]*Item, error) {
	var out []*Item
	err := r.DB.Read(ctx, func(q postgres.Querier) error {
		var err error
		out, err = findItems(ctx, q, orderID)
		return err
	})
	metrics.StoreOp("order_item", "find_by_order_id", err)
	if err != nil {
		r.Log.Error("failed to list order items", "order_id", orderID, "op", "find_by_order_id", "error", err)
		return []*Item{}, err
	}
	return out, nil
}

func findItems(ctx context.Context, q postgres.Querier, orderID string) ([]*Item, error) {
	rows, err := q.Query(ctx, `
		SELECT `+itemColumns+` FROM order_items
		WHERE order_id = $1
		ORDER BY created_at, item_id`, orderID)
	if err != nil {
		return nil, postgres.Classify("order items", err)
	}
	defer rows.Close()
	out := []*Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, postgres.Classify("order items", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.Classify("order items", err)
	}
	return out, nil
}

// UpdateStatus moves o to next along the status machine and saves it.
func (r *Repo) UpdateStatus(ctx context.Context, o *Order, next Status) error {
	if !CanTransition(o.Status, next) {
		return ErrInvalidTransition
	}
	prev := o.Status
	o.Status = next
	if err := r.Save(ctx, o); err != nil {
		o.Status = prev
		return err
	}
	return nil
}
