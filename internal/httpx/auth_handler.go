package httpx

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-ecom-chatbot/internal/auth"
	"github.com/ariefcatur/go-ecom-chatbot/internal/users"
	"github.com/ariefcatur/go-ecom-chatbot/internal/wire"
)

const minPasswordLen = 8

type registerReq struct {
	Email     string  `json:"email"`
	Username  string  `json:"username"`
	Password  string  `json:"password"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Phone     *string `json:"phone"`
}

type loginReq struct {
	Identifier string `json:"identifier"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	Password   string `json:"password"`
}

type profileReq struct {
	FirstName   *string   `json:"first_name"`
	LastName    *string   `json:"last_name"`
	Phone       *string   `json:"phone"`
	Preferences *wire.Doc `json:"preferences"`
	Password    *string   `json:"password"`
}

func (s *Server) authRoutes(r chi.Router) {
	r.Post("/register", s.register)
	r.Post("/login", s.login)
	r.Group(func(r chi.Router) {
		r.Use(s.Auth.Required)
		r.Get("/profile", s.profile)
		r.Put("/profile", s.updateProfile)
	})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Email = users.NormalizeEmail(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	if req.Email == "" || req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email, username and password are required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "invalid email address")
		return
	}
	if len(req.Password) < minPasswordLen {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := users.HashPassword(req.Password)
	if err != nil {
		s.writeFault(w, r, "hash password", err)
		return
	}
	u := users.New(req.Email, req.Username, hash)
	u.FirstName, u.LastName, u.Phone = req.FirstName, req.LastName, req.Phone

	if err := s.Users.Register(r.Context(), u); err != nil {
		if errors.Is(err, users.ErrDuplicate) {
			writeError(w, http.StatusConflict, users.ErrDuplicate.Error())
			return
		}
		s.writeFault(w, r, "register", err)
		return
	}
	s.Log.Info("user registered", "user_id", u.ID)
	s.writeSession(w, r, http.StatusCreated, u)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := strings.TrimSpace(req.Identifier)
	if id == "" {
		id = users.NormalizeEmail(req.Email)
	}
	if id == "" {
		id = strings.TrimSpace(req.Username)
	}
	if id == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "identifier and password are required")
		return
	}

	u, err := s.Users.Authenticate(r.Context(), id, req.Password)
	if err != nil {
		s.writeFault(w, r, "login", err)
		return
	}
	if u == nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	s.writeSession(w, r, http.StatusOK, u)
}

func (s *Server) writeSession(w http.ResponseWriter, r *http.Request, code int, u *users.User) {
	tok, exp, err := s.Auth.Issue(u.ID, u.Username)
	if err != nil {
		s.writeFault(w, r, "issue token", err)
		return
	}
	writeData(w, code, map[string]any{
		"user":         u.ToMap(users.MapOptions{}),
		"access_token": tok,
		"token_type":   "Bearer",
		"expires_at":   exp.UTC().Format(time.RFC3339),
	})
}

func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) *users.User {
	u, err := s.Users.FindByID(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		s.writeFault(w, r, "load user", err)
		return nil
	}
	if u == nil || !u.IsActive {
		writeError(w, http.StatusNotFound, "User not found")
		return nil
	}
	return u
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	if u := s.currentUser(w, r); u != nil {
		writeData(w, http.StatusOK, u.ToMap(users.MapOptions{}))
	}
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileReq
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	u := s.currentUser(w, r)
	if u == nil {
		return
	}
	if req.FirstName != nil {
		u.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		u.LastName = *req.LastName
	}
	if req.Phone != nil {
		u.Phone = req.Phone
		if *req.Phone == "" {
			u.Phone = nil
		}
	}
	if req.Preferences != nil {
		u.Preferences = *req.Preferences
	}
	if req.Password != nil {
		if len(*req.Password) < minPasswordLen {
			writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
			return
		}
		hash, err := users.HashPassword(*req.Password)
		if err != nil {
			s.writeFault(w, r, "hash password", err)
			return
		}
		u.PasswordHash = hash
	}
	if err := s.Users.Save(r.Context(), u); err != nil {
		s.writeFault(w, r, "update profile", err)
		return
	}
	writeData(w, http.StatusOK, u.ToMap(users.MapOptions{}))
}
