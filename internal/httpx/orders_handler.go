package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-ecom-chatbot/internal/analytics"
	"github.com/ariefcatur/go-ecom-chatbot/internal/auth"
	"github.com/ariefcatur/go-ecom-chatbot/internal/orders"
	"github.com/ariefcatur/go-ecom-chatbot/internal/redisx"
	"github.com/ariefcatur/go-ecom-chatbot/internal/wire"
)

type placeOrderReq struct {
	Items           []orders.Line `json:"items"`
	ShippingAddress wire.Doc      `json:"shipping_address"`
	BillingAddress  wire.Doc      `json:"billing_address"`
	PaymentMethod   string        `json:"payment_method"`
	Metadata        wire.Doc      `json:"metadata"`
}

func (s *Server) orderRoutes(r chi.Router) {
	r.Use(s.Auth.Required)
	r.Post("/", s.placeOrder)
	r.Get("/", s.listOrders)
	r.Get("/{id}", s.getOrder)
	r.Post("/{id}/cancel", s.cancelOrder)
}

func orderBody(o *orders.Order, items []*orders.Item) map[string]any {
	m := o.ToMap()
	lines := make([]map[string]any, 0, len(items))
	for _, it := range items {
		lines = append(lines, it.ToMap())
	}
	m["items"] = lines
	return m
}

func (s *Server) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.UserID(ctx)

	var req placeOrderReq
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "Order items are required")
		return
	}

	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	owned := false
	if key != "" && s.Idem != nil {
		prev, err := s.Idem.Begin(ctx, userID, key)
		switch {
		case errors.Is(err, redisx.ErrInFlight):
			writeError(w, http.StatusConflict, "a request with this Idempotency-Key is in progress")
			return
		case err != nil:
			s.Log.Warn("idempotency store unavailable", "user_id", userID, "error", err)
		case prev != nil:
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Idempotent-Replayed", "true")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write(prev)
			return
		default:
			owned = true
		}
	}
	release := func() {
		if owned {
			if err := s.Idem.Abort(context.WithoutCancel(ctx), userID, key); err != nil {
				s.Log.Warn("idempotency abort failed", "user_id", userID, "error", err)
			}
		}
	}

	o := orders.New(userID)
	o.PaymentMethod = req.PaymentMethod
	if req.ShippingAddress != nil {
		o.ShippingAddress = req.ShippingAddress
	}
	if req.BillingAddress != nil {
		o.BillingAddress = req.BillingAddress
	}
	if req.Metadata != nil {
		o.Metadata = req.Metadata
	}

	items, err := s.Orders.Place(ctx, o, req.Items)
	if err != nil {
		release()
		var oos *orders.OutOfStockError
		switch {
		case errors.As(err, &oos):
			writeJSON(w, http.StatusConflict, map[string]any{"error": "insufficient stock", "details": oos.Details})
		case errors.Is(err, orders.ErrEmptyOrder), errors.Is(err, orders.ErrInvalidQty), errors.Is(err, orders.ErrUnknownProduct):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.writeFault(w, r, "place order", err)
		}
		return
	}

	body, err := json.Marshal(map[string]any{"success": true, "data": orderBody(o, items)})
	if err != nil {
		release()
		s.writeFault(w, r, "encode order", err)
		return
	}
	if owned {
		if err := s.Idem.Finish(context.WithoutCancel(ctx), userID, key, body); err != nil {
			s.Log.Warn("idempotency finish failed", "order_id", o.ID, "error", err)
		}
	}
	s.emit(ctx, s.Placed, orders.EventOrderPlaced, o, func() (orders.Envelope, error) {
		return orders.PlacedEvent(s.Service, o, items)
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(body)
}

// emit publishes an order event. The order is already committed, so a
// failed publish is logged and not surfaced to the client.
func (s *Server) emit(ctx context.Context, p analytics.Publisher, eventType string, o *orders.Order, build func() (orders.Envelope, error)) {
	if p == nil {
		return
	}
	env, err := build()
	if err == nil {
		var b []byte
		if b, err = json.Marshal(env); err == nil {
			pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			err = p.Publish(pctx, orders.PartitionKey(o.ID), b,
				kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
				kafkago.Header{Key: "x-event-version", Value: []byte("1")},
			)
			cancel()
		}
	}
	if err != nil {
		s.Log.Error("failed to publish order event", "order_id", o.ID, "event_type", eventType, "error", err)
	}
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	status := orders.Status(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeError(w, http.StatusBadRequest, "unknown order status")
		return
	}
	limit, err := intParam(r, "limit", orders.DefaultLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	list, err := s.Orders.FindByUserID(r.Context(), auth.UserID(r.Context()), status, limit, offset)
	if err != nil {
		s.writeFault(w, r, "list orders", err)
		return
	}
	out := make([]map[string]any, 0, len(list))
	for _, o := range list {
		out = append(out, o.ToMap())
	}
	writeData(w, http.StatusOK, map[string]any{"orders": out, "limit": limit, "offset": offset})
}

// ownOrder loads the order and hides other users' orders behind 404.
func (s *Server) ownOrder(w http.ResponseWriter, r *http.Request) *orders.Order {
	o, err := s.Orders.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeFault(w, r, "get order", err)
		return nil
	}
	if o == nil || o.UserID != auth.UserID(r.Context()) {
		writeError(w, http.StatusNotFound, "Order not found")
		return nil
	}
	return o
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	o := s.ownOrder(w, r)
	if o == nil {
		return
	}
	items, err := s.Orders.FindItemsByOrderID(r.Context(), o.ID)
	if err != nil {
		s.writeFault(w, r, "order items", err)
		return
	}
	writeData(w, http.StatusOK, orderBody(o, items))
}

func (s *Server) cancelOrder(w http.ResponseWriter, r *http.Request) {
	o := s.ownOrder(w, r)
	if o == nil {
		return
	}
	cancelled, items, err := s.Orders.Cancel(r.Context(), o.ID)
	switch {
	case errors.Is(err, orders.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "Order can no longer be cancelled")
		return
	case errors.Is(err, orders.ErrNotFound):
		writeError(w, http.StatusNotFound, "Order not found")
		return
	case err != nil:
		s.writeFault(w, r, "cancel order", err)
		return
	}
	s.emit(r.Context(), s.Cancelled, orders.EventOrderCancelled, cancelled, func() (orders.Envelope, error) {
		return orders.CancelledEvent(s.Service, cancelled, items)
	})
	writeData(w, http.StatusOK, orderBody(cancelled, items))
}
