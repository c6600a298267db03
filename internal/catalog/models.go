package catalog

import (
	"time"

	"github.com/ariefcatur/go-ecom-chatbot/internal/wire"
)

type Product struct {
	ID             string
	Name           string
	Description    string
	PriceCents     int64
	Category       string
	Brand          string
	SKU            *string
	StockQuantity  int
	Images         []string
	Specifications wire.Doc
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func New(name string, priceCents int64) *Product {
	now := wire.Now()
	return &Product{
		ID:             wire.NewID(),
		Name:           name,
		PriceCents:     priceCents,
		Images:         []string{},
		Specifications: wire.Doc{},
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (p *Product) ToMap() map[string]any {
	var sku any
	if p.SKU != nil {
		sku = *p.SKU
	}
	return map[string]any{
		"product_id":     p.ID,
		"name":           p.Name,
		"description":    p.Description,
		"price":          wire.FormatMoney(p.PriceCents),
		"category":       p.Category,
		"brand":          p.Brand,
		"sku":            sku,
		"stock_quantity": p.StockQuantity,
		"images":         p.Images,
		"specifications": p.Specifications,
		"is_active":      p.IsActive,
		"created_at":     wire.FormatTime(p.CreatedAt),
		"updated_at":     wire.FormatTime(p.UpdatedAt),
	}
}

func FromMap(m map[string]any) (*Product, error) {
	f := wire.Read(m)
	price, _ := f.Money("price")
	p := &Product{
		ID:             f.String("product_id"),
		Name:           f.String("name"),
		Description:    f.String("description"),
		PriceCents:     price,
		Category:       f.String("category"),
		Brand:          f.String("brand"),
		SKU:            f.OptString("sku"),
		StockQuantity:  f.Int("stock_quantity", 0),
		Images:         f.Strings("images"),
		Specifications: f.Doc("specifications"),
		IsActive:       f.Bool("is_active", true),
		CreatedAt:      f.Time("created_at"),
		UpdatedAt:      f.Time("updated_at"),
	}
	if err := f.Err(); err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = wire.NewID()
	}
	now := wire.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	return p, nil
}
