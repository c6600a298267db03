package catalog

import (
	"fmt"
	"strings"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Filter narrows Search. Zero values mean "no filter"; price bounds are
// inclusive and in cents.
type Filter struct {
	Query    string
	Category string
	Brand    string
	MinPrice *int64
	MaxPrice *int64
	Limit    int
	Offset   int
}

// Page is one window of results. HasMore is true when at least one active
// product exists past the window.
type Page struct {
	Products []*Product
	HasMore  bool
}

func (f Filter) normalized() Filter {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	f.Query = strings.TrimSpace(f.Query)
	return f
}

// buildSearch fetches Limit+1 rows so the caller can tell whether another
// page exists without a count query.
func buildSearch(f Filter) (string, []any) {
	conds := []string{"is_active = true"}
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Query != "" {
		p := next("%" + escapeLike(f.Query) + "%")
		conds = append(conds, fmt.Sprintf("(name ILIKE %s OR description ILIKE %s)", p, p))
	}
	if f.Category != "" {
		conds = append(conds, "category = "+next(f.Category))
	}
	if f.Brand != "" {
		conds = append(conds, "brand = "+next(f.Brand))
	}
	if f.MinPrice != nil {
		conds = append(conds, "price_cents >= "+next(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		conds = append(conds, "price_cents <= "+next(*f.MaxPrice))
	}

	limit := next(f.Limit + 1)
	offset := next(f.Offset)
	sql := `SELECT ` + columns + ` FROM products WHERE ` + strings.Join(conds, " AND ") +
		` ORDER BY updated_at DESC, product_id LIMIT ` + limit + ` OFFSET ` + offset
	return sql, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
