package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ariefcatur/go-ecom-chatbot/internal/analytics"
	"github.com/ariefcatur/go-ecom-chatbot/internal/auth"
	"github.com/ariefcatur/go-ecom-chatbot/internal/catalog"
	"github.com/ariefcatur/go-ecom-chatbot/internal/chat"
	"github.com/ariefcatur/go-ecom-chatbot/internal/logger"
	"github.com/ariefcatur/go-ecom-chatbot/internal/metrics"
	"github.com/ariefcatur/go-ecom-chatbot/internal/orders"
	"github.com/ariefcatur/go-ecom-chatbot/internal/users"
)

type UserStore interface {
	Register(ctx context.Context, u *users.User) error
	Authenticate(ctx context.Context, identifier, password string) (*users.User, error)
	FindByID(ctx context.Context, id string) (*users.User, error)
	Save(ctx context.Context, u *users.User) error
}

type ProductStore interface {
	FindByID(ctx context.Context, id string) (*catalog.Product, error)
	Search(ctx context.Context, f catalog.Filter) (catalog.Page, error)
	Categories(ctx context.Context) ([]string, error)
	Recommendations(ctx context.Context, productID string, limit int) ([]*catalog.Product, error)
}

type OrderStore interface {
	Place(ctx context.Context, o *orders.Order, lines []orders.Line) ([]*orders.Item, error)
	FindByID(ctx context.Context, id string) (*orders.Order, error)
	FindByUserID(ctx context.Context, userID string, status orders.Status, limit, offset int) ([]*orders.Order, error)
	FindItemsByOrderID(ctx context.Context, orderID string) ([]*orders.Item, error)
	Cancel(ctx context.Context, orderID string) (*orders.Order, []*orders.Item, error)
}

type ChatStore interface {
	SaveSession(ctx context.Context, s *chat.Session) error
	FindSession(ctx context.Context, id string) (*chat.Session, error)
	Converse(ctx context.Context, s *chat.Session, text string, a chat.Assistant) (*chat.Message, *chat.Message, error)
	FindBySessionID(ctx context.Context, sessionID string, limit int) ([]*chat.Message, error)
}

// Idempotency replays the stored response of a finished request.
type Idempotency interface {
	Begin(ctx context.Context, userID, key string) ([]byte, error)
	Finish(ctx context.Context, userID, key string, response []byte) error
	Abort(ctx context.Context, userID, key string) error
}

type Tracker interface {
	Track(ctx context.Context, e *analytics.Event) error
}

// Check is one dependency probe for /health.
type Check func(ctx context.Context) error

type Server struct {
	Users     UserStore
	Products  ProductStore
	Orders    OrderStore
	Chat      ChatStore
	Assistant chat.Assistant
	Auth      *auth.Issuer
	Idem      Idempotency
	Placed    analytics.Publisher // order.placed
	Cancelled analytics.Publisher // order.cancelled
	Tracker   Tracker
	Checks    map[string]Check
	Log       *logger.Logger
	Service   string
}

type RouterOptions struct {
	CORSOrigins []string
	RateLimit   func(http.Handler) http.Handler
	Timeout     time.Duration
}

func NewRouter(s *Server, opts RouterOptions) *chi.Mux {
	if s.Log == nil {
		s.Log = logger.Nop()
	}
	if s.Assistant == nil {
		s.Assistant = chat.EchoAssistant{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, accessLog(s.Log), middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-Request-Id", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.Timeout(opts.Timeout))

	r.Get("/health", s.health)
	r.Handle("/metrics", metrics.Handler())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})

	r.Route("/api", func(r chi.Router) {
		if opts.RateLimit != nil {
			r.Use(opts.RateLimit)
		}
		r.Route("/auth", s.authRoutes)
		r.Route("/products", s.productRoutes)
		r.Route("/orders", s.orderRoutes)
		r.Route("/chat", s.chatRoutes)
		r.Route("/analytics", s.analyticsRoutes)
	})
	return r
}
