package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-ecom-chatbot/internal/analytics"
	"github.com/ariefcatur/go-ecom-chatbot/internal/auth"
	"github.com/ariefcatur/go-ecom-chatbot/internal/catalog"
	"github.com/ariefcatur/go-ecom-chatbot/internal/chat"
	"github.com/ariefcatur/go-ecom-chatbot/internal/orders"
	"github.com/ariefcatur/go-ecom-chatbot/internal/redisx"
	"github.com/ariefcatur/go-ecom-chatbot/internal/users"
)

type fakeUsers struct {
	byID      map[string]*users.User
	passwords map[string]string
	err       error
}

func (f *fakeUsers) Register(_ context.Context, u *users.User) error {
	if f.err != nil {
		return f.err
	}
	for _, x := range f.byID {
		if x.Email == u.Email || x.Username == u.Username {
			return users.ErrDuplicate
		}
	}
	f.byID[u.ID] = u
	return nil
}

func (f *fakeUsers) Authenticate(_ context.Context, id, password string) (*users.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byID {
		pw, ok := f.passwords[u.ID]
		matches := (ok && pw == password) || (!ok && u.VerifyPassword(password))
		if (u.Email == users.NormalizeEmail(id) || u.Username == id) && matches && u.IsActive {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) FindByID(_ context.Context, id string) (*users.User, error) {
	return f.byID[id], f.err
}

func (f *fakeUsers) Save(_ context.Context, u *users.User) error {
	if f.err != nil {
		return f.err
	}
	f.byID[u.ID] = u
	return nil
}

type fakeProducts struct {
	byID      map[string]*catalog.Product
	lastF     catalog.Filter
	page      catalog.Page
	recAnchor string
	err       error
}

func (f *fakeProducts) FindByID(_ context.Context, id string) (*catalog.Product, error) {
	return f.byID[id], f.err
}

func (f *fakeProducts) Search(_ context.Context, flt catalog.Filter) (catalog.Page, error) {
	f.lastF = flt
	return f.page, f.err
}

func (f *fakeProducts) Categories(context.Context) ([]string, error) {
	return []string{"laptops", "phones"}, f.err
}

func (f *fakeProducts) Recommendations(_ context.Context, id string, _ int) ([]*catalog.Product, error) {
	f.recAnchor = id
	return []*catalog.Product{}, f.err
}

type fakeOrders struct {
	mu       sync.Mutex
	byID     map[string]*orders.Order
	items    map[string][]*orders.Item
	placeErr error
	cancel   error
	placed   int
}

func (f *fakeOrders) Place(_ context.Context, o *orders.Order, lines []orders.Line) ([]*orders.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.placeErr != nil {
		return nil, f.placeErr
	}
	f.placed++
	var items []*orders.Item
	for _, l := range lines {
		it := orders.NewItem(o.ID, l.ProductID, l.Quantity, 1000)
		o.TotalCents += it.TotalCents
		items = append(items, it)
	}
	f.byID[o.ID] = o
	f.items[o.ID] = items
	return items, nil
}

func (f *fakeOrders) FindByID(_ context.Context, id string) (*orders.Order, error) {
	return f.byID[id], nil
}

func (f *fakeOrders) FindByUserID(_ context.Context, userID string, status orders.Status, _, _ int) ([]*orders.Order, error) {
	out := []*orders.Order{}
	for _, o := range f.byID {
		if o.UserID == userID && (status == "" || o.Status == status) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrders) FindItemsByOrderID(_ context.Context, id string) ([]*orders.Item, error) {
	return f.items[id], nil
}

func (f *fakeOrders) Cancel(_ context.Context, id string) (*orders.Order, []*orders.Item, error) {
	if f.cancel != nil {
		return nil, nil, f.cancel
	}
	o := f.byID[id]
	o.Status = orders.StatusCancelled
	return o, f.items[id], nil
}

type fakeChat struct {
	sessions map[string]*chat.Session
	messages map[string][]*chat.Message
}

func (f *fakeChat) SaveSession(_ context.Context, s *chat.Session) error {
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeChat) FindSession(_ context.Context, id string) (*chat.Session, error) {
	return f.sessions[id], nil
}

func (f *fakeChat) Converse(ctx context.Context, s *chat.Session, text string, a chat.Assistant) (*chat.Message, *chat.Message, error) {
	if !s.Active() {
		return nil, nil, chat.ErrSessionClosed
	}
	content, sugg, err := a.Reply(ctx, f.messages[s.ID], text)
	if err != nil {
		return nil, nil, err
	}
	in := chat.NewMessage(s.ID, chat.SenderUser, text)
	out := chat.NewMessage(s.ID, chat.SenderBot, content)
	out.Metadata["suggestions"] = sugg
	f.messages[s.ID] = append(f.messages[s.ID], in, out)
	return in, out, nil
}

func (f *fakeChat) FindBySessionID(_ context.Context, id string, _ int) ([]*chat.Message, error) {
	return append([]*chat.Message{}, f.messages[id]...), nil
}

type fakeIdem struct {
	entries map[string][]byte
	down    bool
}

func (f *fakeIdem) Begin(_ context.Context, userID, key string) ([]byte, error) {
	if f.down {
		return nil, errors.New("redis down")
	}
	k := userID + ":" + key
	v, ok := f.entries[k]
	if !ok {
		f.entries[k] = nil
		return nil, nil
	}
	if v == nil {
		return nil, redisx.ErrInFlight
	}
	return v, nil
}

func (f *fakeIdem) Finish(_ context.Context, userID, key string, b []byte) error {
	f.entries[userID+":"+key] = b
	return nil
}

func (f *fakeIdem) Abort(_ context.Context, userID, key string) error {
	delete(f.entries, userID+":"+key)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	values [][]byte
}

func (p *fakePublisher) Publish(_ context.Context, _, value []byte, _ ...kafkago.Header) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values = append(p.values, value)
	return nil
}

type fakeTracker struct {
	events []*analytics.Event
	err    error
}

func (t *fakeTracker) Track(_ context.Context, e *analytics.Event) error {
	if t.err != nil {
		return t.err
	}
	if e.EventType == "" {
		return analytics.ErrMissingType
	}
	e.ID = "evt-1"
	t.events = append(t.events, e)
	return nil
}

type harness struct {
	h         http.Handler
	srv       *Server
	users     *fakeUsers
	products  *fakeProducts
	orders    *fakeOrders
	chat      *fakeChat
	idem      *fakeIdem
	placed    *fakePublisher
	cancelled *fakePublisher
	tracker   *fakeTracker
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	hs := &harness{
		users:     &fakeUsers{byID: map[string]*users.User{}, passwords: map[string]string{}},
		products:  &fakeProducts{byID: map[string]*catalog.Product{}, page: catalog.Page{Products: []*catalog.Product{}}},
		orders:    &fakeOrders{byID: map[string]*orders.Order{}, items: map[string][]*orders.Item{}},
		chat:      &fakeChat{sessions: map[string]*chat.Session{}, messages: map[string][]*chat.Message{}},
		idem:      &fakeIdem{entries: map[string][]byte{}},
		placed:    &fakePublisher{},
		cancelled: &fakePublisher{},
		tracker:   &fakeTracker{},
	}
	hs.srv = &Server{
		Users:     hs.users,
		Products:  hs.products,
		Orders:    hs.orders,
		Chat:      hs.chat,
		Auth:      auth.NewIssuer("test-secret", time.Hour),
		Idem:      hs.idem,
		Placed:    hs.placed,
		Cancelled: hs.cancelled,
		Tracker:   hs.tracker,
		Checks:    map[string]Check{},
		Service:   "ecom-test",
	}
	hs.h = NewRouter(hs.srv, RouterOptions{CORSOrigins: []string{"http://localhost:3000"}})
	return hs
}

// user stores an active user and returns a bearer token for it.
func (hs *harness) user(t *testing.T, name string) (*users.User, string) {
	t.Helper()
	u := users.New(name+"@example.com", name, "hash")
	hs.users.byID[u.ID] = u
	hs.users.passwords[u.ID] = "password123"
	tok, _, err := hs.srv.Auth.Issue(u.ID, u.Username)
	require.NoError(t, err)
	return u, tok
}

func (hs *harness) do(t *testing.T, method, path, token, body string, headers ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.RemoteAddr = "192.0.2.10:4000"
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	hs.h.ServeHTTP(rec, req)
	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	require.Equal(t, true, body["success"], body)
	d, ok := body["data"].(map[string]any)
	require.True(t, ok, "data is %T", body["data"])
	return d
}
