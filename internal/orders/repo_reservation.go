package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-ecom-chatbot/internal/metrics"
	"github.com/ariefcatur/go-ecom-chatbot/internal/postgres"
	"github.com/ariefcatur/go-ecom-chatbot/internal/wire"
)

var (
	ErrEmptyOrder     = errors.New("order has no items")
	ErrInvalidQty     = errors.New("quantity must be positive")
	ErrUnknownProduct = errors.New("product not found")
	ErrNotFound       = errors.New("order not found")
)

type Line struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type StockShortage struct {
	ProductID string `json:"product_id"`
	Required  int    `json:"required"`
	Available int    `json:"available"`
}

// OutOfStockError lists every line that could not be reserved.
type OutOfStockError struct {
	Details []StockShortage
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %d product(s)", len(e.Details))
}

// mergeLines folds repeated products into one line and sorts by product id
// so concurrent placements lock rows in the same order.
func mergeLines(lines []Line) ([]Line, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyOrder
	}
	qty := map[string]int{}
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %s", ErrInvalidQty, l.ProductID)
		}
		qty[l.ProductID] += l.Quantity
	}
	out := make([]Line, 0, len(qty))
	for id, n := range qty {
		out = append(out, Line{ProductID: id, Quantity: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

// Place reserves stock for every line, prices the lines from the catalog and
// writes the order with its items in one transaction. If any line is short
// nothing is written and an *OutOfStockError lists the shortages.
func (r *Repo) Place(ctx context.Context, o *Order, lines []Line) ([]*Item, error) {
	merged, err := mergeLines(lines)
	if err != nil {
		return nil, err
	}

	var items []*Item
	err = r.DB.WithTx(ctx, func(q postgres.Querier) error {
		items = items[:0]
		var shortages []StockShortage
		var total int64
		now := wire.Now()

		for _, l := range merged {
			var (
				price  int64
				stock  int
				active bool
			)
			err := q.QueryRow(ctx, `
				SELECT price_cents, stock_quantity, is_active FROM products
				WHERE product_id = $1 FOR UPDATE`, l.ProductID).Scan(&price, &stock, &active)
			if errors.Is(err, pgx.ErrNoRows) || (err == nil && !active) {
				return fmt.Errorf("%w: %s", ErrUnknownProduct, l.ProductID)
			}
			if err != nil {
				return postgres.Classify("reserve stock", err)
			}
			if stock < l.Quantity {
				shortages = append(shortages, StockShortage{
					ProductID: l.ProductID, Required: l.Quantity, Available: stock,
				})
				continue
			}
			if _, err := q.Exec(ctx, `
				UPDATE products SET stock_quantity = stock_quantity - $2, updated_at = $3
				WHERE product_id = $1`, l.ProductID, l.Quantity, now); err != nil {
				return postgres.Classify("reserve stock", err)
			}
			it := NewItem(o.ID, l.ProductID, l.Quantity, price)
			total += it.TotalCents
			items = append(items, it)
		}
		if len(shortages) > 0 {
			return &OutOfStockError{Details: shortages}
		}

		o.TotalCents = total
		if err := saveOrder(ctx, q, o); err != nil {
			return err
		}
		for _, it := range items {
			if err := saveItem(ctx, q, it); err != nil {
				return err
			}
		}
		return nil
	})
	metrics.StoreOp("order", "place", err)
	if err != nil {
		r.Log.Warn("order not placed", "order_id", o.ID, "user_id", o.UserID, "op", "place", "error", err)
		return nil, err
	}
	r.Log.Info("order placed", "order_id", o.ID, "user_id", o.UserID, "items", len(items), "total_cents", o.TotalCents)
	return items, nil
}

// Cancel moves the order to cancelled and puts every line's quantity back
// into stock, all in one transaction. Orders already shipped, delivered or
// cancelled are rejected with ErrInvalidTransition.
func (r *Repo) Cancel(ctx context.Context, orderID string) (*Order, []*Item, error) {
	var (
		o     *Order
		items []*Item
	)
	err := r.DB.WithTx(ctx, func(q postgres.Querier) error {
		var err error
		if o, err = findOrder(ctx, q, orderID, true); err != nil {
			return err
		}
		if o == nil {
			return ErrNotFound
		}
		if !CanTransition(o.Status, StatusCancelled) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, StatusCancelled)
		}
		if items, err = findItems(ctx, q, orderID); err != nil {
			return err
		}
		byProduct := append([]*Item(nil), items...)
		sort.Slice(byProduct, func(i, j int) bool { return byProduct[i].ProductID < byProduct[j].ProductID })
		now := wire.Now()
		for _, it := range byProduct {
			if _, err := q.Exec(ctx, `
				UPDATE products SET stock_quantity = stock_quantity + $2, updated_at = $3
				WHERE product_id = $1`, it.ProductID, it.Quantity, now); err != nil {
				return postgres.Classify("release stock", err)
			}
		}
		o.Status = StatusCancelled
		return saveOrder(ctx, q, o)
	})
	metrics.StoreOp("order", "cancel", err)
	if err != nil {
		r.Log.Warn("order not cancelled", "order_id", orderID, "op", "cancel", "error", err)
		return nil, nil, err
	}
	r.Log.Info("order cancelled", "order_id", orderID, "restored_lines", len(items))
	return o, items, nil
}
