package httpx

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-ecom-chatbot/internal/catalog"
	"github.com/ariefcatur/go-ecom-chatbot/internal/chat"
	"github.com/ariefcatur/go-ecom-chatbot/internal/orders"
	"github.com/ariefcatur/go-ecom-chatbot/internal/postgres"
)

func TestHealth(t *testing.T) {
	hs := newHarness(t)
	hs.srv.Checks["postgres"] = func(context.Context) error { return nil }

	rec, body := hs.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])

	hs.srv.Checks["redis"] = func(context.Context) error { return errors.New("dial tcp: refused") }
	rec, body = hs.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, map[string]any{"postgres": "ok", "redis": "unavailable"}, body["checks"])
}

func TestUnknownRoute(t *testing.T) {
	rec, body := newHarness(t).do(t, http.MethodGet, "/api/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", body["error"])
}

func TestRegisterAndLogin(t *testing.T) {
	hs := newHarness(t)

	rec, body := hs.do(t, http.MethodPost, "/api/auth/register", "", `{"email":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, body["error"])

	rec, _ = hs.do(t, http.MethodPost, "/api/auth/register", "", `{"email":"a@example.com","username":"a","password":"short"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = hs.do(t, http.MethodPost, "/api/auth/register", "",
		`{"email":"Alice@Example.com","username":"alice","password":"password123","first_name":"Alice"}`)
	require.Equal(t, http.StatusCreated, rec.Code, body)
	d := data(t, body)
	assert.NotEmpty(t, d["access_token"])
	u := d["user"].(map[string]any)
	assert.Equal(t, "alice@example.com", u["email"])
	assert.NotContains(t, u, "password_hash")

	rec, _ = hs.do(t, http.MethodPost, "/api/auth/register", "",
		`{"email":"alice@example.com","username":"other","password":"password123"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	hs.user(t, "bob")
	rec, body = hs.do(t, http.MethodPost, "/api/auth/login", "", `{"identifier":"bob","password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", body["error"])

	rec, body = hs.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"bob@example.com","password":"password123"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Bearer", data(t, body)["token_type"])

	rec, body = hs.do(t, http.MethodPost, "/api/auth/login", "", `{"identifier":"Alice@EXAMPLE.com","password":"password123"}`)
	require.Equal(t, http.StatusOK, rec.Code, body)
	assert.Equal(t, "alice", data(t, body)["user"].(map[string]any)["username"])
}

func TestLoginStoreUnavailable(t *testing.T) {
	hs := newHarness(t)
	hs.users.err = &postgres.Fault{Kind: postgres.KindUnavailable, Op: "begin", Err: errors.New("pool exhausted")}
	rec, body := hs.do(t, http.MethodPost, "/api/auth/login", "", `{"identifier":"bob","password":"password123"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "service temporarily unavailable", body["error"])
}

func TestProfile(t *testing.T) {
	hs := newHarness(t)
	rec, _ := hs.do(t, http.MethodGet, "/api/auth/profile", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	u, tok := hs.user(t, "carol")
	rec, body := hs.do(t, http.MethodGet, "/api/auth/profile", tok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, u.ID, data(t, body)["user_id"])

	rec, body = hs.do(t, http.MethodPut, "/api/auth/profile", tok, `{"first_name":"Carol","phone":"+62-811","preferences":{"theme":"dark"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	d := data(t, body)
	assert.Equal(t, "Carol", d["first_name"])
	assert.Equal(t, "+62-811", d["phone"])
	assert.Equal(t, map[string]any{"theme": "dark"}, d["preferences"])
}

func TestProductSearchParams(t *testing.T) {
	hs := newHarness(t)
	p := catalog.New("Laptop", 129900)
	hs.products.page = catalog.Page{Products: []*catalog.Product{p}, HasMore: true}

	rec, body := hs.do(t, http.MethodGet, "/api/products/search?q=lap&category=laptops&min_price=10.50&max_price=2000&limit=5&offset=10", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	f := hs.products.lastF
	assert.Equal(t, "lap", f.Query)
	assert.Equal(t, "laptops", f.Category)
	assert.Equal(t, int64(1050), *f.MinPrice)
	assert.Equal(t, int64(200000), *f.MaxPrice)
	assert.Equal(t, 5, f.Limit)
	assert.Equal(t, 10, f.Offset)

	d := data(t, body)
	assert.Equal(t, true, d["has_more"])
	items := d["products"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, 1299.0, items[0].(map[string]any)["price"])

	rec, _ = hs.do(t, http.MethodGet, "/api/products/search?min_price=abc", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = hs.do(t, http.MethodGet, "/api/products/search?limit=-1", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProductLookup(t *testing.T) {
	hs := newHarness(t)
	p := catalog.New("Phone", 99900)
	hs.products.byID[p.ID] = p

	rec, body := hs.do(t, http.MethodGet, "/api/products/"+p.ID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Phone", data(t, body)["name"])

	rec, _ = hs.do(t, http.MethodGet, "/api/products/missing", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = hs.do(t, http.MethodGet, "/api/products/categories", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"laptops", "phones"}, body["data"])

	rec, _ = hs.do(t, http.MethodGet, "/api/products/recommendations?product_id="+p.ID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, p.ID, hs.products.recAnchor)
}

const orderBodyJSON = `{"items":[{"product_id":"p1","quantity":2}],"payment_method":"card","shipping_address":{"city":"Bandung"}}`

func TestPlaceOrderIdempotent(t *testing.T) {
	hs := newHarness(t)
	_, tok := hs.user(t, "dave")

	rec, _ := hs.do(t, http.MethodPost, "/api/orders", "", orderBodyJSON)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body := hs.do(t, http.MethodPost, "/api/orders", tok, orderBodyJSON, "Idempotency-Key", "k1")
	require.Equal(t, http.StatusCreated, rec.Code, body)
	d := data(t, body)
	assert.Equal(t, 20.0, d["total_amount"])
	assert.Equal(t, map[string]any{"city": "Bandung"}, d["shipping_address"])
	assert.Len(t, d["items"], 1)
	assert.Len(t, hs.placed.values, 1)

	rec, again := hs.do(t, http.MethodPost, "/api/orders", tok, orderBodyJSON, "Idempotency-Key", "k1")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "true", rec.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, d["order_id"], data(t, again)["order_id"])
	assert.Equal(t, 1, hs.orders.placed)
	assert.Len(t, hs.placed.values, 1)
}

func TestPlaceOrderIdempotencyStoreDown(t *testing.T) {
	hs := newHarness(t)
	hs.idem.down = true
	_, tok := hs.user(t, "erin")

	rec, _ := hs.do(t, http.MethodPost, "/api/orders", tok, orderBodyJSON, "Idempotency-Key", "k1")
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestPlaceOrderFailures(t *testing.T) {
	hs := newHarness(t)
	u, tok := hs.user(t, "frank")

	rec, _ := hs.do(t, http.MethodPost, "/api/orders", tok, `{"items":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	hs.orders.placeErr = &orders.OutOfStockError{Details: []orders.StockShortage{{ProductID: "p1", Required: 2, Available: 1}}}
	rec, body := hs.do(t, http.MethodPost, "/api/orders", tok, orderBodyJSON, "Idempotency-Key", "k2")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "insufficient stock", body["error"])
	assert.Len(t, body["details"], 1)
	assert.NotContains(t, hs.idem.entries, u.ID+":k2", "failed placement releases its key")
	assert.Empty(t, hs.placed.values)

	hs.orders.placeErr = orders.ErrUnknownProduct
	rec, _ = hs.do(t, http.MethodPost, "/api/orders", tok, orderBodyJSON)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	hs.orders.placeErr = &postgres.Fault{Kind: postgres.KindReference, Op: "save order", Err: errors.New("fk")}
	rec, _ = hs.do(t, http.MethodPost, "/api/orders", tok, orderBodyJSON)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrderOwnershipAndCancel(t *testing.T) {
	hs := newHarness(t)
	_, owner := hs.user(t, "gina")
	_, stranger := hs.user(t, "hank")

	_, body := hs.do(t, http.MethodPost, "/api/orders", owner, orderBodyJSON)
	id := data(t, body)["order_id"].(string)

	rec, _ := hs.do(t, http.MethodGet, "/api/orders/"+id, stranger, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = hs.do(t, http.MethodPost, "/api/orders/"+id+"/cancel", stranger, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = hs.do(t, http.MethodGet, "/api/orders/"+id, owner, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, data(t, body)["items"], 1)

	rec, body = hs.do(t, http.MethodGet, "/api/orders?status=pending", owner, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, data(t, body)["orders"], 1)
	rec, _ = hs.do(t, http.MethodGet, "/api/orders?status=lost", owner, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = hs.do(t, http.MethodPost, "/api/orders/"+id+"/cancel", owner, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", data(t, body)["status"])
	assert.Len(t, hs.cancelled.values, 1)

	hs.orders.cancel = orders.ErrInvalidTransition
	rec, _ = hs.do(t, http.MethodPost, "/api/orders/"+id+"/cancel", owner, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestChatFlow(t *testing.T) {
	hs := newHarness(t)

	rec, body := hs.do(t, http.MethodPost, "/api/chat/message", "", `{"session_id":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Message is required", body["error"])

	rec, body = hs.do(t, http.MethodPost, "/api/chat/session", "", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	sid := data(t, body)["session_id"].(string)
	assert.Nil(t, data(t, body)["user_id"])

	rec, body = hs.do(t, http.MethodPost, "/api/chat/message", "", `{"session_id":"`+sid+`","message":"laptop please"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	d := data(t, body)
	assert.Equal(t, "bot", d["type"])
	assert.Contains(t, d["content"], "laptop please")
	assert.Len(t, d["suggestions"], 3)

	rec, body = hs.do(t, http.MethodGet, "/api/chat/history/"+sid, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, data(t, body)["messages"], 2)

	hs.chat.sessions[sid].Status = chat.StatusEnded
	rec, _ = hs.do(t, http.MethodPost, "/api/chat/message", "", `{"session_id":"`+sid+`","message":"hi"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestChatMessageWithoutSessionStartsOne(t *testing.T) {
	hs := newHarness(t)
	u, tok := hs.user(t, "ivy")

	rec, body := hs.do(t, http.MethodPost, "/api/chat/message", tok, `{"message":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	sid := data(t, body)["session_id"].(string)
	require.Contains(t, hs.chat.sessions, sid)
	assert.Equal(t, u.ID, *hs.chat.sessions[sid].UserID)

	rec, _ = hs.do(t, http.MethodGet, "/api/chat/history/"+sid, "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "another caller cannot read a user's session")
}

func TestAnalyticsEvent(t *testing.T) {
	hs := newHarness(t)

	rec, body := hs.do(t, http.MethodPost, "/api/analytics/event", "", `{"event_data":{}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Event type is required", body["error"])

	u, tok := hs.user(t, "jack")
	rec, body = hs.do(t, http.MethodPost, "/api/analytics/event", tok, `{"event_type":"product_view","user_id":"spoofed","event_data":{"product_id":"p1"}}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "evt-1", body["event_id"])
	require.Len(t, hs.tracker.events, 1)
	e := hs.tracker.events[0]
	assert.Equal(t, u.ID, e.UserID)
	assert.Equal(t, "192.0.2.10", e.IPAddress)

	hs.tracker.err = errors.New("producer closed")
	rec, _ = hs.do(t, http.MethodPost, "/api/analytics/event", "", `{"event_type":"x"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAnalyticsReportsRequireAuth(t *testing.T) {
	hs := newHarness(t)
	rec, _ := hs.do(t, http.MethodGet, "/api/analytics/dashboard", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	_, tok := hs.user(t, "kim")
	rec, body := hs.do(t, http.MethodGet, "/api/analytics/reports/sales?period=week", tok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	d := data(t, body)
	assert.Equal(t, "week", d["period"])
	assert.Equal(t, 150.0, d["total_orders"])

	rec, _ = hs.do(t, http.MethodGet, "/api/analytics/reports/chat", tok, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = hs.do(t, http.MethodGet, "/api/analytics/dashboard", tok, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFaultStatus(t *testing.T) {
	cases := map[postgres.Kind]int{
		postgres.KindUnavailable: http.StatusServiceUnavailable,
		postgres.KindConflict:    http.StatusConflict,
		postgres.KindReference:   http.StatusBadRequest,
		postgres.KindInvalid:     http.StatusBadRequest,
		postgres.KindInternal:    http.StatusInternalServerError,
	}
	for kind, want := range cases {
		code, _ := faultStatus(&postgres.Fault{Kind: kind, Op: "op", Err: errors.New("x")})
		assert.Equal(t, want, code, kind.String())
	}
	code, _ := faultStatus(errors.New("plain"))
	assert.Equal(t, http.StatusInternalServerError, code)
}
