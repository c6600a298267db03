package httpx

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-ecom-chatbot/internal/catalog"
	"github.com/ariefcatur/go-ecom-chatbot/internal/wire"
)

func (s *Server) productRoutes(r chi.Router) {
	r.Get("/search", s.searchProducts)
	r.Get("/categories", s.categories)
	r.Get("/recommendations", s.recommendations)
	r.Get("/{id}", s.getProduct)
}

func productMaps(ps []*catalog.Product) []map[string]any {
	out := make([]map[string]any, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ToMap())
	}
	return out
}

func priceParam(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	c, err := wire.ParseMoney(raw)
	if err != nil || c < 0 {
		return nil, fmt.Errorf("%s must be a non-negative amount", name)
	}
	return &c, nil
}

func (s *Server) searchProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := catalog.Filter{
		Query:    q.Get("q"),
		Category: q.Get("category"),
		Brand:    q.Get("brand"),
	}
	var err error
	if f.MinPrice, err = priceParam(r, "min_price"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if f.MaxPrice, err = priceParam(r, "max_price"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if f.Limit, err = intParam(r, "limit", catalog.DefaultLimit); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if f.Offset, err = intParam(r, "offset", 0); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := s.Products.Search(r.Context(), f)
	if err != nil {
		s.writeFault(w, r, "search products", err)
		return
	}
	limit := f.Limit
	if limit == 0 {
		limit = catalog.DefaultLimit
	}
	if limit > catalog.MaxLimit {
		limit = catalog.MaxLimit
	}
	writeData(w, http.StatusOK, map[string]any{
		"products": productMaps(page.Products),
		"has_more": page.HasMore,
		"limit":    limit,
		"offset":   f.Offset,
	})
}

func (s *Server) categories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.Products.Categories(r.Context())
	if err != nil {
		s.writeFault(w, r, "categories", err)
		return
	}
	writeData(w, http.StatusOK, cats)
}

func (s *Server) recommendations(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 5)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ps, err := s.Products.Recommendations(r.Context(), r.URL.Query().Get("product_id"), limit)
	if err != nil {
		s.writeFault(w, r, "recommendations", err)
		return
	}
	writeData(w, http.StatusOK, productMaps(ps))
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.Products.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeFault(w, r, "get product", err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	writeData(w, http.StatusOK, p.ToMap())
}
